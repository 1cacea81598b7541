package batch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teemow/attachdrop/internal/transfer"
)

// Summary aggregates the per-item results of a bulk transfer.
type Summary struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Results    []transfer.Result `json:"results"`
}

// Summarize counts successes and failures. Results keep their order.
func Summarize(results []transfer.Result) Summary {
	s := Summary{Total: len(results), Results: results}
	if s.Results == nil {
		s.Results = []transfer.Result{}
	}
	for _, r := range results {
		if r.OK() {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}

// FormatResults renders the summary of results as indented JSON.
func FormatResults(results []transfer.Result) string {
	jsonBytes, _ := json.MarshalIndent(Summarize(results), "", "  ")
	return string(jsonBytes)
}

// ParseStringOrArray parses a parameter that is a single string, an array
// of strings, or a JSON-encoded array of strings.
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var items []any
			if err := json.Unmarshal([]byte(v), &items); err != nil {
				return nil, fmt.Errorf("%s is not a valid JSON array: %w", paramName, err)
			}
			return ParseStringOrArray(items, paramName)
		}
		return []string{v}, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		result := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}
}

// requestFields are the string fields of a request object, in the order
// they are checked.
var requestFields = []string{"messageId", "partId", "folderId", "rename"}

// ParseRequests parses an array of transfer request objects, given either
// as a decoded array or as a JSON-encoded string. Only a parameter that is
// not an array fails as a whole. An item that is not an object, or a field
// that is not a string, yields a request marked Invalid at the same index,
// so the transfer reports it as that item's error. Missing fields are left
// empty for the transfer to validate.
func ParseRequests(param any, paramName string) ([]transfer.Request, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	items, ok := param.([]any)
	if !ok {
		s, isString := param.(string)
		if !isString {
			return nil, fmt.Errorf("%s must be an array of objects", paramName)
		}
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return nil, fmt.Errorf("%s is not a valid JSON array: %w", paramName, err)
		}
	}

	reqs := make([]transfer.Request, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			reqs = append(reqs, transfer.Request{
				Invalid: &transfer.ValidationError{Reason: fmt.Sprintf("%s[%d] must be an object", paramName, i)},
			})
			continue
		}

		var req transfer.Request
		dst := map[string]*string{
			"messageId": &req.MessageID,
			"partId":    &req.PartID,
			"folderId":  &req.FolderID,
			"rename":    &req.Rename,
		}
		for _, key := range requestFields {
			v, present := obj[key]
			if !present || v == nil {
				continue
			}
			str, ok := v.(string)
			if !ok {
				if req.Invalid == nil {
					req.Invalid = &transfer.ValidationError{Field: key, Reason: "must be a string"}
				}
				continue
			}
			*dst[key] = str
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
