package attachment

import (
	"encoding/base64"
	"errors"
)

// Decode converts attachment data as delivered by the mail source back into
// the original bytes. The source uses the URL-safe base64 alphabet
// ('-' and '_' in place of '+' and '/'); standard base64 is not accepted.
func Decode(encoded string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) {
			return nil, &DecodeError{Offset: int64(corrupt), Err: err}
		}
		return nil, &DecodeError{Err: err}
	}
	return data, nil
}

// Encode is the inverse of Decode. Mail sources that hold raw bytes use it
// to hand out data in the same form as the Gmail API.
func Encode(data []byte) string {
	return base64.URLEncoding.EncodeToString(data)
}
