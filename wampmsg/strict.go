package wampmsg

import (
	"fmt"
	"strings"

	"github.com/segmentio/encoding/json"
)

// validateNoDuplicateKeys rejects a JSON object (or any object nested
// inside it, recursing through arrays and objects alike) that carries
// two keys differing only in case, e.g. both "receive_progress" and
// "Receive_Progress" in the same Options/Kwargs map. Go's JSON decoder
// matches struct fields case-insensitively but WAMP Options/Kwargs
// decode into plain maps, where both keys would otherwise survive and
// whichever one is read second silently wins — a smuggling vector for
// anyone relying on one of the two spellings being authoritative.
func validateNoDuplicateKeys(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	seen := make(map[string]string, len(raw))
	for key := range raw {
		lower := strings.ToLower(key)
		if original, exists := seen[lower]; exists && original != key {
			return fmt.Errorf("wampmsg: duplicate key with different case: %q and %q", original, key)
		}
		seen[lower] = key
	}
	for key, val := range raw {
		if err := validateNoDuplicateKeysRecursive(val); err != nil {
			return fmt.Errorf("in field %q: %w", key, err)
		}
	}
	return nil
}

func validateNoDuplicateKeysRecursive(data json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		seen := make(map[string]string, len(obj))
		for key := range obj {
			lower := strings.ToLower(key)
			if original, exists := seen[lower]; exists && original != key {
				return fmt.Errorf("duplicate key with different case: %q and %q", original, key)
			}
			seen[lower] = key
		}
		for key, val := range obj {
			if err := validateNoDuplicateKeysRecursive(val); err != nil {
				return fmt.Errorf("in field %q: %w", key, err)
			}
		}
		return nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		for i, elem := range arr {
			if err := validateNoDuplicateKeysRecursive(elem); err != nil {
				return fmt.Errorf("in array index %d: %w", i, err)
			}
		}
		return nil
	}

	return nil
}
