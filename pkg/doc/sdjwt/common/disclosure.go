/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"bytes"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
)

const (
	objectDisclosureElements = 3
	arrayDisclosureElements  = 2
)

// Disclosure reveals one selectively disclosable value: [salt, key, value] for an object member or
// [salt, value] for an array element. It is immutable; its encoding and digests are computed once.
type Disclosure struct {
	salt  string
	key   string
	value interface{}
	array bool

	encodeOnce sync.Once
	encoded    string
	encodeErr  error

	mu      sync.Mutex
	digests map[crypto.Hash]string
}

// NewObjectDisclosure creates the disclosure of an object member.
func NewObjectDisclosure(salt, key string, value interface{}) *Disclosure {
	return &Disclosure{salt: salt, key: key, value: value}
}

// NewArrayDisclosure creates the disclosure of an array element.
func NewArrayDisclosure(salt string, value interface{}) *Disclosure {
	return &Disclosure{salt: salt, value: value, array: true}
}

// ParseDisclosure decodes a base64url disclosure. The given encoding is kept as is, digests are
// computed over it and not over a re-encoding.
func ParseDisclosure(encoded string) (*Disclosure, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, StructureErrorf("decode disclosure: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(decoded))
	dec.UseNumber()

	var elements []interface{}

	if err = dec.Decode(&elements); err != nil {
		return nil, StructureErrorf("unmarshal disclosure array: %w", err)
	}

	salt, ok := elementAt(elements, 0).(string)
	if !ok {
		return nil, StructureErrorf("disclosure salt type[%T] must be string", elementAt(elements, 0))
	}

	var d *Disclosure

	switch len(elements) {
	case arrayDisclosureElements:
		d = NewArrayDisclosure(salt, elements[1])
	case objectDisclosureElements:
		key, ok := elements[1].(string)
		if !ok {
			return nil, StructureErrorf("disclosure name type[%T] must be string", elements[1])
		}

		d = NewObjectDisclosure(salt, key, elements[2])
	default:
		return nil, StructureErrorf("disclosure array size[%d] must be %d or %d", len(elements),
			arrayDisclosureElements, objectDisclosureElements)
	}

	d.encodeOnce.Do(func() {
		d.encoded = encoded
	})

	return d, nil
}

func elementAt(elements []interface{}, i int) interface{} {
	if i < len(elements) {
		return elements[i]
	}

	return nil
}

// Salt returns the salt.
func (d *Disclosure) Salt() string {
	return d.salt
}

// Key returns the member name, and false for array element disclosures.
func (d *Disclosure) Key() (string, bool) {
	return d.key, !d.array
}

// Value returns the disclosed value.
func (d *Disclosure) Value() interface{} {
	return d.value
}

// IsArrayElement reports whether this is a two element disclosure.
func (d *Disclosure) IsArrayElement() bool {
	return d.array
}

// Encode returns base64url(JSON(array)). JSON is produced without HTML escaping.
func (d *Disclosure) Encode() (string, error) {
	d.encodeOnce.Do(func() {
		elements := []interface{}{d.salt, d.key, d.value}
		if d.array {
			elements = []interface{}{d.salt, d.value}
		}

		var buf bytes.Buffer

		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)

		if err := enc.Encode(elements); err != nil {
			d.encodeErr = fmt.Errorf("marshal disclosure: %w", err)

			return
		}

		d.encoded = base64.RawURLEncoding.EncodeToString(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	})

	return d.encoded, d.encodeErr
}

// Digest returns base64url(hash(Encode())).
func (d *Disclosure) Digest(hash crypto.Hash) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if digest, ok := d.digests[hash]; ok {
		return digest, nil
	}

	encoded, err := d.Encode()
	if err != nil {
		return "", err
	}

	digest, err := GetHash(hash, encoded)
	if err != nil {
		return "", err
	}

	if d.digests == nil {
		d.digests = make(map[crypto.Hash]string)
	}

	d.digests[hash] = digest

	return digest, nil
}

// EncodeDisclosures encodes every disclosure in order.
func EncodeDisclosures(disclosures []*Disclosure) ([]string, error) {
	encoded := make([]string, len(disclosures))

	for i, d := range disclosures {
		e, err := d.Encode()
		if err != nil {
			return nil, err
		}

		encoded[i] = e
	}

	return encoded, nil
}

// ParseDisclosures parses every encoded disclosure in order.
func ParseDisclosures(encoded []string) ([]*Disclosure, error) {
	disclosures := make([]*Disclosure, len(encoded))

	for i, e := range encoded {
		d, err := ParseDisclosure(e)
		if err != nil {
			return nil, err
		}

		disclosures[i] = d
	}

	return disclosures, nil
}
