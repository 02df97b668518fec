/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Frame mirrors the shape of a claim tree and selects what becomes selectively disclosable.
//
// On object nodes SD names member keys and Fields is keyed by member name. On array nodes both use
// decimal element indices. The JSON form is {"_sd": ["a", 1], "_sd_decoy": 2, "child": {...}}.
type Frame struct {
	// SD lists the keys or indices disclosed selectively at this node.
	SD []string
	// Decoy is the number of decoy digests added at this node.
	Decoy int
	// Fields holds the frames of child nodes.
	Fields map[string]*Frame
}

// IsEmpty reports whether the frame selects nothing at this node or below.
func (f *Frame) IsEmpty() bool {
	if f == nil {
		return true
	}

	if len(f.SD) > 0 || f.Decoy > 0 {
		return false
	}

	for _, child := range f.Fields {
		if !child.IsEmpty() {
			return false
		}
	}

	return true
}

// Child returns the frame of a child node, nil if there is none.
func (f *Frame) Child(key string) *Frame {
	if f == nil {
		return nil
	}

	return f.Fields[key]
}

// Selects reports whether key (or index) is selectively disclosable at this node.
func (f *Frame) Selects(key string) bool {
	return f != nil && slices.Contains(f.SD, key)
}

// SortedFieldKeys returns the child frame keys in sorted order.
func (f *Frame) SortedFieldKeys() []string {
	if f == nil {
		return nil
	}

	keys := maps.Keys(f.Fields)
	slices.Sort(keys)

	return keys
}

// MarshalJSON writes the frame in its JSON form.
func (f *Frame) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(f.Fields)+2)

	for k, child := range f.Fields {
		m[k] = child
	}

	if len(f.SD) > 0 {
		m[SDKey] = f.SD
	}

	if f.Decoy > 0 {
		m[SDDecoyKey] = f.Decoy
	}

	return json.Marshal(m)
}

// UnmarshalJSON reads the frame JSON form. Entries of _sd may be strings or non-negative integers.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage

	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("frame must be an object: %w", err)
	}

	parsed := Frame{}

	for key, value := range raw {
		switch key {
		case SDKey:
			sd, err := parseFrameSD(value)
			if err != nil {
				return err
			}

			parsed.SD = sd
		case SDDecoyKey:
			var decoy int

			if err := json.Unmarshal(value, &decoy); err != nil || decoy < 0 {
				return fmt.Errorf("%s must be a non-negative integer", SDDecoyKey)
			}

			parsed.Decoy = decoy
		default:
			if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
				continue
			}

			child := &Frame{}

			if err := json.Unmarshal(value, child); err != nil {
				return fmt.Errorf("frame '%s': %w", key, err)
			}

			if parsed.Fields == nil {
				parsed.Fields = make(map[string]*Frame)
			}

			parsed.Fields[key] = child
		}
	}

	*f = parsed

	return nil
}

func parseFrameSD(value json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()

	var entries []interface{}

	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("%s must be an array: %w", SDKey, err)
	}

	sd := make([]string, 0, len(entries))

	for _, entry := range entries {
		switch e := entry.(type) {
		case string:
			sd = append(sd, e)
		case json.Number:
			idx, err := strconv.ParseUint(e.String(), 10, 31)
			if err != nil {
				return nil, fmt.Errorf("%s index '%s' must be a non-negative integer", SDKey, e)
			}

			sd = append(sd, strconv.FormatUint(idx, 10))
		default:
			return nil, fmt.Errorf("%s entry type[%T] must be string or integer", SDKey, entry)
		}
	}

	return sd, nil
}
