// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fields builds the input schema the host renders for a method,
// including fields whose options depend on an earlier selection.
package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field types understood by the host UI.
const (
	TypeSelect   = "select"
	TypeText     = "text"
	TypeTextarea = "textarea"
	TypeDatetime = "datetime"
)

// Option is one selectable value of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Dependants marks a field whose value unlocks further fields. It is either
// "all" (legacy: some fields will follow) or an ordered list of keys.
type Dependants struct {
	all  bool
	keys []string
}

// DependsOnAll returns the legacy marker.
func DependsOnAll() *Dependants { return &Dependants{all: true} }

// DependsOn advertises the keys that will follow, in render order.
func DependsOn(keys ...string) *Dependants {
	return &Dependants{keys: append([]string(nil), keys...)}
}

// All reports whether this is the legacy marker.
func (d *Dependants) All() bool { return d != nil && d.all }

// Keys returns the advertised keys, nil for the legacy marker.
func (d *Dependants) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

func (d Dependants) MarshalJSON() ([]byte, error) {
	if d.all {
		return []byte("true"), nil
	}
	keys := d.keys
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal(keys)
}

func (d *Dependants) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*d = Dependants{all: true}
		return nil
	case bytes.Equal(data, []byte("false")), bytes.Equal(data, []byte("null")):
		*d = Dependants{}
		return nil
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("dependants must be a boolean or a list of keys: %w", err)
	}
	*d = Dependants{keys: keys}
	return nil
}

// InputField is one field of the input schema. Values are built fresh per
// resolution and not mutated afterwards.
type InputField struct {
	Key         string
	Label       string
	Type        string
	Required    bool
	Description string
	Options     []Option
	Dependants  *Dependants
}

type inputFieldJSON struct {
	Key         string      `json:"key"`
	Label       string      `json:"label"`
	Type        string      `json:"type"`
	Required    bool        `json:"required,omitempty"`
	Description string      `json:"description,omitempty"`
	Options     *[]Option   `json:"input_options,omitempty"`
	Dependants  *Dependants `json:"dependants,omitempty"`
}

// MarshalJSON always emits input_options as an array for select fields.
func (f InputField) MarshalJSON() ([]byte, error) {
	out := inputFieldJSON{
		Key:         f.Key,
		Label:       f.Label,
		Type:        f.Type,
		Required:    f.Required,
		Description: f.Description,
		Dependants:  f.Dependants,
	}
	if f.Options != nil || f.Type == TypeSelect {
		opts := f.Options
		if opts == nil {
			opts = []Option{}
		}
		out.Options = &opts
	}
	if f.Dependants != nil && !f.Dependants.all && f.Dependants.keys == nil {
		out.Dependants = nil
	}
	return json.Marshal(out)
}

func (f *InputField) UnmarshalJSON(data []byte) error {
	var in inputFieldJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*f = InputField{
		Key:         in.Key,
		Label:       in.Label,
		Type:        in.Type,
		Required:    in.Required,
		Description: in.Description,
	}
	if in.Options != nil {
		f.Options = *in.Options
	}
	if in.Dependants != nil && (in.Dependants.all || in.Dependants.keys != nil) {
		f.Dependants = in.Dependants
	}
	return nil
}
