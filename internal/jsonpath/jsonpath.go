package jsonpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Lookup walks a JSON-parsed structure along a dot-separated path such as
// "profiles[0].record_button" and returns the node found there.
func Lookup(root interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	cur := root
	for _, part := range strings.Split(path, ".") {
		key, idxs, err := ParseKeyAndIndexes(part)
		if err != nil {
			return nil, false
		}

		if key != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil, false
			}
			next, exists := m[key]
			if !exists {
				return nil, false
			}
			cur = next
		}

		for _, idx := range idxs {
			arr, ok := cur.([]interface{})
			if !ok {
				return nil, false
			}
			if idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	return cur, true
}

// ExtractByPath extracts a scalar value as a string.
func ExtractByPath(root interface{}, path string) (string, bool) {
	cur, ok := Lookup(root, path)
	if !ok {
		return "", false
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprintf("%v", v), true
	case bool:
		return fmt.Sprintf("%v", v), true
	default:
		return "", false
	}
}

// Set stores value at path inside root. Missing objects along the path are
// created; array elements must already exist. A nil root is an error.
func Set(root map[string]interface{}, path string, value interface{}) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if root == nil {
		return fmt.Errorf("nil root")
	}
	parts := strings.Split(path, ".")
	var cur interface{} = root
	for i, part := range parts {
		key, idxs, err := ParseKeyAndIndexes(part)
		if err != nil {
			return err
		}
		last := i == len(parts)-1

		if key != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return fmt.Errorf("%s: not an object", part)
			}
			if last && len(idxs) == 0 {
				m[key] = value
				return nil
			}
			next, exists := m[key]
			if !exists {
				if len(idxs) > 0 {
					return fmt.Errorf("%s: array %q does not exist", part, key)
				}
				next = map[string]interface{}{}
				m[key] = next
			}
			cur = next
		}

		for j, idx := range idxs {
			arr, ok := cur.([]interface{})
			if !ok {
				return fmt.Errorf("%s: not an array", part)
			}
			if idx < 0 || idx >= len(arr) {
				return fmt.Errorf("%s: index %d out of range", part, idx)
			}
			if last && j == len(idxs)-1 {
				arr[idx] = value
				return nil
			}
			cur = arr[idx]
		}
	}
	return nil
}

// ParseKeyAndIndexes parses a token like "foo[0][1]" or "[0]" or "bar" into base key and indexes.
func ParseKeyAndIndexes(token string) (string, []int, error) {
	if token == "" {
		return "", nil, fmt.Errorf("empty token")
	}
	idxs := []int{}
	br := strings.Index(token, "[")
	var key string
	if br == -1 {
		key = token
		return key, idxs, nil
	}
	key = token[:br]
	rest := token[br:]
	for len(rest) > 0 {
		if !strings.HasPrefix(rest, "[") {
			return "", nil, fmt.Errorf("invalid index syntax in %s", token)
		}
		closePos := strings.Index(rest, "]")
		if closePos == -1 {
			return "", nil, fmt.Errorf("missing closing ] in %s", token)
		}
		numStr := rest[1:closePos]
		if numStr == "" {
			return "", nil, fmt.Errorf("empty index in %s", token)
		}
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return "", nil, fmt.Errorf("invalid index '%s' in %s", numStr, token)
		}
		idxs = append(idxs, n)
		rest = rest[closePos+1:]
	}
	return key, idxs, nil
}
