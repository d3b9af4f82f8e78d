package store

import (
	"encoding/json"
	"fmt"
)

// encodeIDs serialises an id list for the cache. nil is stored as an empty list
func encodeIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to marshal favourite ids: %w", err)
	}
	return string(data), nil
}

// decodeIDs accepts the value types returned by the cache drivers
func decodeIDs(val interface{}) ([]int64, error) {
	var raw []byte
	switch v := val.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return nil, fmt.Errorf("unexpected cached value type %T", val)
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal favourite ids: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}
