package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingKey is returned when a response lacks an expected key.
var ErrMissingKey = errors.New("missing key in response")

// Extract walks a dot-separated key path through nested JSON objects and
// decodes the value found there into out.
func Extract(raw json.RawMessage, path string, out interface{}) error {
	cur := raw
	if path != "" {
		for _, key := range strings.Split(path, ".") {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(cur, &obj); err != nil {
				return fmt.Errorf("%w: %s (parent is not an object)", ErrMissingKey, path)
			}
			next, ok := obj[key]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingKey, path)
			}
			cur = next
		}
	}
	if err := json.Unmarshal(cur, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
