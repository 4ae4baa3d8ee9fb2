package rpc

import (
	"bytes"
	"encoding/json"
)

// Decode reads params into target. Params may be an object, a one-element
// array holding an object, or absent.
func Decode(params json.RawMessage, target interface{}) error {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return InvalidParams(err)
		}
		if len(arr) == 0 {
			return nil
		}
		trimmed = arr[0]
	}

	if err := json.Unmarshal(trimmed, target); err != nil {
		return InvalidParams(err)
	}
	return nil
}
