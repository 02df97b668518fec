/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package packer turns a claim tree and a disclosure frame into packed claims and disclosures.
//
// Selected object members are replaced by salted digests listed under "_sd" (sorted), selected array
// elements by {"...": digest} placeholders, and decoy digests may be mixed in at every node.
package packer

import (
	"bytes"
	"crypto"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/common"
)

var logger = log.New("sdjwt-enc/sdjwt/packer")

// Packer packs claim trees. It holds no mutable state and is safe for concurrent use when its
// salt generator is.
type Packer struct {
	hash    crypto.Hash
	salt    common.SaltGenerator
	decoy   common.DecoyGenerator
	lenient bool
}

// Opt configures a Packer.
type Opt func(p *Packer)

// WithHashAlgorithm sets the digest algorithm. Defaults to SHA-256.
func WithHashAlgorithm(hash crypto.Hash) Opt {
	return func(p *Packer) {
		p.hash = hash
	}
}

// WithSaltGenerator sets the salt generator.
func WithSaltGenerator(salt common.SaltGenerator) Opt {
	return func(p *Packer) {
		p.salt = salt
	}
}

// WithRandomSource draws salts from r.
func WithRandomSource(r io.Reader) Opt {
	return func(p *Packer) {
		p.salt = common.NewSaltGenerator(r)
	}
}

// WithDecoyGenerator sets the decoy digest generator.
func WithDecoyGenerator(decoy common.DecoyGenerator) Opt {
	return func(p *Packer) {
		p.decoy = decoy
	}
}

// WithLenientFrame ignores frame entries without a matching claim instead of failing.
func WithLenientFrame() Opt {
	return func(p *Packer) {
		p.lenient = true
	}
}

// New returns a Packer.
func New(opts ...Opt) *Packer {
	p := &Packer{
		hash:  common.DefaultHash,
		salt:  common.DefaultSaltGenerator(),
		decoy: common.DefaultDecoyGenerator,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Result holds the outcome of Pack.
type Result struct {
	// PackedClaims is the claim tree with selected values replaced by digests.
	PackedClaims interface{}
	// Disclosures are ordered so that nested disclosures precede the disclosures of their parent node.
	Disclosures []*common.Disclosure
	// HashAlg is the _sd_alg name of the digest algorithm.
	HashAlg string
}

// Pack packs claims, any JSON serializable value, according to frame. A nil frame returns the claims
// unchanged with no disclosures. The input is never modified.
func (p *Packer) Pack(claims interface{}, frame *common.Frame) (*Result, error) {
	if !p.hash.Available() {
		return nil, fmt.Errorf("hash function not available for: %d", p.hash)
	}

	generic, err := toGeneric(claims)
	if err != nil {
		return nil, err
	}

	s := &packState{Packer: p, mismatches: &multierror.Error{}}

	packed, disclosures, err := s.pack(generic, frame, "")
	if err != nil {
		return nil, err
	}

	if !p.lenient {
		if err = common.NewFrameMismatchError(s.mismatches, s.mismatchPaths); err != nil {
			return nil, err
		}
	}

	logger.Debugf("packed %d disclosures and %d decoys with %s", len(disclosures), s.decoys, common.HashName(p.hash))

	return &Result{
		PackedClaims: packed,
		Disclosures:  disclosures,
		HashAlg:      common.HashName(p.hash),
	}, nil
}

// Pack packs claims with the given digest algorithm and salt generator.
func Pack(claims interface{}, frame *common.Frame, hash crypto.Hash,
	salt common.SaltGenerator) (interface{}, []*common.Disclosure, error) {
	r, err := New(WithHashAlgorithm(hash), WithSaltGenerator(salt)).Pack(claims, frame)
	if err != nil {
		return nil, nil, err
	}

	return r.PackedClaims, r.Disclosures, nil
}

type packState struct {
	*Packer
	mismatches    *multierror.Error
	mismatchPaths []string
	decoys        int
}

func (s *packState) mismatch(path, format string, args ...interface{}) {
	s.mismatchPaths = append(s.mismatchPaths, path)
	s.mismatches = multierror.Append(s.mismatches, fmt.Errorf("'%s': %s", path, fmt.Sprintf(format, args...)))
}

func (s *packState) pack(v interface{}, frame *common.Frame, path string) (interface{}, []*common.Disclosure, error) {
	if frame.IsEmpty() {
		return v, nil, nil
	}

	node := common.NewClaimNode(v)

	switch node.Kind {
	case common.ObjectNode:
		return s.packObject(node.Object, frame, path)
	case common.ArrayNode:
		return s.packArray(node.Array, frame, path)
	default:
		s.mismatch(path, "frame applied to a %s value", node.Kind)

		return v, nil, nil
	}
}

func (s *packState) packObject(obj map[string]interface{}, frame *common.Frame,
	path string) (interface{}, []*common.Disclosure, error) {
	if _, ok := obj[common.SDKey]; ok {
		return nil, nil, common.StructureErrorf("claims at '%s' must not contain reserved key %s", path, common.SDKey)
	}

	for _, key := range append(slices.Clone(frame.SD), frame.SortedFieldKeys()...) {
		if _, ok := obj[key]; !ok {
			s.mismatch(common.JoinPath(path, key), "no such claim")
		}
	}

	keys := maps.Keys(obj)
	slices.Sort(keys)

	out := make(map[string]interface{}, len(obj))

	var (
		nested, own []*common.Disclosure
		digests     []string
	)

	for _, key := range keys {
		value, children, err := s.pack(obj[key], frame.Child(key), common.JoinPath(path, key))
		if err != nil {
			return nil, nil, err
		}

		nested = append(nested, children...)

		if !frame.Selects(key) {
			out[key] = value

			continue
		}

		salt, err := s.salt(common.DefaultSaltSize)
		if err != nil {
			return nil, nil, err
		}

		d := common.NewObjectDisclosure(salt, key, value)

		digest, err := d.Digest(s.hash)
		if err != nil {
			return nil, nil, err
		}

		digests = append(digests, digest)
		own = append(own, d)
	}

	decoys, err := s.decoyDigests(frame.Decoy)
	if err != nil {
		return nil, nil, err
	}

	digests = append(digests, decoys...)

	if len(digests) > 0 {
		slices.Sort(digests)
		out[common.SDKey] = digests
	}

	return out, append(nested, own...), nil
}

func (s *packState) packArray(arr []interface{}, frame *common.Frame,
	path string) (interface{}, []*common.Disclosure, error) {
	for _, key := range append(slices.Clone(frame.SD), frame.SortedFieldKeys()...) {
		idx, err := strconv.Atoi(key)

		switch {
		case err != nil || idx < 0 || idx >= len(arr):
			s.mismatch(common.JoinPath(path, key), "no such array index")
		case strconv.Itoa(idx) != key:
			// selection compares the canonical form, so "01" or "+1" would select nothing.
			s.mismatch(common.JoinPath(path, key), "array index is not in canonical decimal form")
		}
	}

	out := make([]interface{}, 0, len(arr)+frame.Decoy)

	var nested, own []*common.Disclosure

	for i, el := range arr {
		key := strconv.Itoa(i)

		value, children, err := s.pack(el, frame.Child(key), common.JoinPath(path, key))
		if err != nil {
			return nil, nil, err
		}

		nested = append(nested, children...)

		if !frame.Selects(key) {
			out = append(out, value)

			continue
		}

		salt, err := s.salt(common.DefaultSaltSize)
		if err != nil {
			return nil, nil, err
		}

		d := common.NewArrayDisclosure(salt, value)

		digest, err := d.Digest(s.hash)
		if err != nil {
			return nil, nil, err
		}

		out = append(out, map[string]interface{}{common.ArrayElementDigestKey: digest})
		own = append(own, d)
	}

	decoys, err := s.decoyDigests(frame.Decoy)
	if err != nil {
		return nil, nil, err
	}

	for _, decoy := range decoys {
		out = append(out, map[string]interface{}{common.ArrayElementDigestKey: decoy})
	}

	return out, append(nested, own...), nil
}

func (s *packState) decoyDigests(n int) ([]string, error) {
	digests := make([]string, 0, n)

	for i := 0; i < n; i++ {
		digest, err := s.decoy(s.hash, s.salt)
		if err != nil {
			return nil, fmt.Errorf("generate decoy digest: %w", err)
		}

		digests = append(digests, digest)
	}

	s.decoys += n

	return digests, nil
}

// toGeneric converts claims to generic JSON values (maps, slices, json.Number) through a JSON round trip.
func toGeneric(claims interface{}) (interface{}, error) {
	b, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("marshal claims: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var generic interface{}

	if err = dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	return generic, nil
}
