// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DependentKey enumerates the fields that have dependants. Anything the
// connector does not know parses to KeyUnknown.
type DependentKey int

const (
	KeyUnknown DependentKey = iota
	KeyBoard
)

// Field keys.
const (
	KeyIDBoard   = "idBoard"
	KeyIDList    = "idList"
	KeyIDMembers = "idMembers"
)

// ParseDependentKey maps a field key onto its variant.
func ParseDependentKey(s string) DependentKey {
	switch s {
	case KeyIDBoard:
		return KeyBoard
	default:
		return KeyUnknown
	}
}

func (k DependentKey) String() string {
	switch k {
	case KeyBoard:
		return KeyIDBoard
	default:
		return "unknown"
	}
}

// FieldTarget names the field that changed on a follow-up call and its new
// value. Name keeps the raw key for logging when Field is KeyUnknown.
type FieldTarget struct {
	Field DependentKey
	Name  string
	Value string
}

// NewTarget parses name into a target.
func NewTarget(name, value string) *FieldTarget {
	return &FieldTarget{Field: ParseDependentKey(name), Name: name, Value: value}
}

type fieldTargetJSON struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (t FieldTarget) MarshalJSON() ([]byte, error) {
	name := t.Name
	if name == "" && t.Field != KeyUnknown {
		name = t.Field.String()
	}
	return json.Marshal(fieldTargetJSON{Field: name, Value: t.Value})
}

// UnmarshalJSON accepts string, number or null values.
func (t *FieldTarget) UnmarshalJSON(data []byte) error {
	var in struct {
		Field string          `json:"field"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	value := ""
	raw := bytes.TrimSpace(in.Value)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &value); err != nil {
			return err
		}
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		value = string(raw)
	default:
		return fmt.Errorf("target value must be a string or number")
	}

	*t = *NewTarget(in.Field, value)
	return nil
}
