/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto"
	"fmt"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// PathSeparator joins the segments of a claim path, e.g. "address.street" or "nationalities.0".
const PathSeparator = "."

// UnpackResult is the outcome of digest resolution.
type UnpackResult struct {
	// Value is the claim tree with every supplied disclosure restored and every other digest removed.
	Value interface{}
	// Paths maps the digest of each disclosure to the path of the claim it reveals. Array indices
	// are positions in the packed array.
	Paths map[string]string
}

type disclosureClaim struct {
	disclosure *Disclosure
	digest     string
	path       string
	used       bool
}

type unpacker struct {
	claims map[string]*disclosureClaim
	order  []string
	seen   map[string]struct{}
}

// Unpack restores the claims of a packed JWT payload from encoded disclosures. _sd_alg is removed from
// the result. Every disclosure must be referenced exactly once.
func Unpack(packed map[string]interface{}, disclosures []string, hash crypto.Hash) (map[string]interface{}, error) {
	parsed, err := ParseDisclosures(disclosures)
	if err != nil {
		return nil, err
	}

	result, err := UnpackValue(packed, parsed, hash)
	if err != nil {
		return nil, err
	}

	claims, ok := result.Value.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}, nil
	}

	delete(claims, SDAlgorithmKey)

	return claims, nil
}

// DisclosurePaths maps each disclosure digest to the path of the claim it reveals.
func DisclosurePaths(packed map[string]interface{}, disclosures []string, hash crypto.Hash) (map[string]string, error) {
	parsed, err := ParseDisclosures(disclosures)
	if err != nil {
		return nil, err
	}

	result, err := UnpackValue(packed, parsed, hash)
	if err != nil {
		return nil, err
	}

	return result.Paths, nil
}

// UnpackValue resolves _sd digests and array element placeholders of any packed value, recursively,
// without modifying it. Digests without a disclosure (undisclosed claims and decoys) are dropped.
//
// It fails when a digest appears more than once, when a disclosure has the wrong shape for the place
// referencing it, when a disclosed name already exists at its level or is reserved, and when a
// supplied disclosure is not referenced at all.
func UnpackValue(packed interface{}, disclosures []*Disclosure, hash crypto.Hash) (*UnpackResult, error) {
	u := &unpacker{
		claims: make(map[string]*disclosureClaim, len(disclosures)),
		seen:   make(map[string]struct{}),
	}

	for _, d := range disclosures {
		digest, err := d.Digest(hash)
		if err != nil {
			return nil, fmt.Errorf("get disclosure hash: %w", err)
		}

		if _, ok := u.claims[digest]; ok {
			return nil, StructureErrorf("disclosure with digest '%s' supplied more than once", digest)
		}

		u.claims[digest] = &disclosureClaim{disclosure: d, digest: digest}
		u.order = append(u.order, digest)
	}

	value, err := u.value(packed, "")
	if err != nil {
		return nil, err
	}

	paths := make(map[string]string, len(u.claims))

	for _, digest := range u.order {
		c := u.claims[digest]
		if !c.used {
			return nil, fmt.Errorf("disclosure digest '%s' not found in packed claims: %w", digest, ErrDigestNotFound)
		}

		paths[digest] = c.path
	}

	return &UnpackResult{Value: value, Paths: paths}, nil
}

func (u *unpacker) value(v interface{}, path string) (interface{}, error) {
	node := NewClaimNode(v)

	switch node.Kind {
	case ObjectNode:
		return u.object(node.Object, path)
	case ArrayNode:
		return u.array(node.Array, path)
	default:
		return v, nil
	}
}

func (u *unpacker) object(obj map[string]interface{}, path string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(obj))

	keys := maps.Keys(obj)
	slices.Sort(keys)

	for _, k := range keys {
		if k == SDKey {
			continue
		}

		v, err := u.value(obj[k], JoinPath(path, k))
		if err != nil {
			return nil, err
		}

		out[k] = v
	}

	raw, ok := obj[SDKey]
	if !ok {
		return out, nil
	}

	digests, err := stringArray(raw)
	if err != nil {
		return nil, StructureErrorf("%s at '%s': %w", SDKey, path, err)
	}

	for _, digest := range digests {
		c, err := u.lookup(digest)
		if err != nil {
			return nil, err
		}

		if c == nil {
			continue
		}

		key, isMember := c.disclosure.Key()
		if !isMember {
			return nil, StructureErrorf("disclosure '%s' referenced from %s must have three elements", digest, SDKey)
		}

		if key == SDKey || key == ArrayElementDigestKey {
			return nil, StructureErrorf("disclosed claim name '%s' is reserved", key)
		}

		if _, exists := out[key]; exists {
			return nil, StructureErrorf("claim name '%s' already exists at the same level", key)
		}

		claimPath := JoinPath(path, key)

		v, err := u.value(c.disclosure.Value(), claimPath)
		if err != nil {
			return nil, err
		}

		c.used, c.path = true, claimPath
		out[key] = v
	}

	return out, nil
}

func (u *unpacker) array(arr []interface{}, path string) ([]interface{}, error) {
	out := make([]interface{}, 0, len(arr))

	for i, el := range arr {
		elementPath := JoinPath(path, strconv.Itoa(i))

		digest, isPlaceholder, err := arrayElementDigest(el)
		if err != nil {
			return nil, err
		}

		if !isPlaceholder {
			v, err := u.value(el, elementPath)
			if err != nil {
				return nil, err
			}

			out = append(out, v)

			continue
		}

		c, err := u.lookup(digest)
		if err != nil {
			return nil, err
		}

		if c == nil {
			continue
		}

		if !c.disclosure.IsArrayElement() {
			return nil, StructureErrorf("disclosure '%s' referenced from an array element must have two elements", digest)
		}

		v, err := u.value(c.disclosure.Value(), elementPath)
		if err != nil {
			return nil, err
		}

		c.used, c.path = true, elementPath
		out = append(out, v)
	}

	return out, nil
}

// lookup records a digest occurrence and returns its disclosure, nil when none was supplied.
func (u *unpacker) lookup(digest string) (*disclosureClaim, error) {
	if _, ok := u.seen[digest]; ok {
		return nil, StructureErrorf("digest '%s' has been included in more than one place", digest)
	}

	u.seen[digest] = struct{}{}

	return u.claims[digest], nil
}

func arrayElementDigest(el interface{}) (string, bool, error) {
	m, ok := el.(map[string]interface{})
	if !ok || len(m) != 1 {
		return "", false, nil
	}

	raw, ok := m[ArrayElementDigestKey]
	if !ok {
		return "", false, nil
	}

	digest, ok := raw.(string)
	if !ok {
		return "", false, StructureErrorf("array element digest type[%T] must be string", raw)
	}

	return digest, true, nil
}

// JoinPath appends a segment to a claim path.
func JoinPath(path, segment string) string {
	if path == "" {
		return segment
	}

	return path + PathSeparator + segment
}
