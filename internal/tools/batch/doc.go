// Package batch parses bulk tool arguments and formats bulk results.
//
// Bulk tools accept their items either as a JSON array or as a string
// holding one, since not every MCP client sends structured arrays. Results
// are reported as a Summary with totals and one entry per requested item,
// in request order.
package batch
