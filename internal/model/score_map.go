package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ScoreMap holds the per-check points of the identity matcher, stored as JSON text
type ScoreMap map[string]int

func (s ScoreMap) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}

	b, err := json.Marshal(map[string]int(s))
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

func (s *ScoreMap) Scan(value any) error {
	var raw []byte

	switch v := value.(type) {
	case nil:
		*s = ScoreMap{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("failed to scan ScoreMap, %v", value)
	}

	if len(raw) == 0 {
		*s = ScoreMap{}
		return nil
	}

	m := map[string]int{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("failed to scan ScoreMap, %w", err)
	}

	*s = m
	return nil
}
