package types

import "encoding/json"

// UnwrapData returns the "data" member of an {success, message, data} style
// upstream envelope, or the body itself when no such member exists.
func UnwrapData(body []byte) []byte {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return body
	}
	return envelope.Data
}
