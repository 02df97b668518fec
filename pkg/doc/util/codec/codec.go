/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package codec converts between raw bytes and the text encodings used for keys, digests and envelopes.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/multiformats/go-multibase"
)

// ErrInvalidEncoding is returned when text cannot be decoded with any accepted encoding.
var ErrInvalidEncoding = errors.New("invalid encoding")

// EncodeBase64 returns the standard, padded base64 form of b.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// EncodeBase64URL returns the unpadded base64url form of b.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBase64 decodes standard or url-safe base64, padded or not.
func DecodeBase64(s string) ([]byte, error) {
	normalized := strings.NewReplacer("+", "-", "/", "_").Replace(strings.TrimSpace(s))
	normalized = strings.TrimRight(normalized, "=")

	b, err := base64.RawURLEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	return b, nil
}

// EncodeBase58 returns the bitcoin alphabet base58 form of b.
func EncodeBase58(b []byte) string {
	return base58.Encode(b)
}

// DecodeBase58 decodes bitcoin alphabet base58 text.
func DecodeBase58(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}

	b := base58.Decode(s)
	if len(b) == 0 {
		return nil, fmt.Errorf("decode base58: %w", ErrInvalidEncoding)
	}

	return b, nil
}

// EncodeHex returns the lower case hex form of b.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex decodes hex text, with or without a 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}

	return b, nil
}

// EncodeMultibase returns the base58btc multibase form of b ('z' prefix).
func EncodeMultibase(b []byte) (string, error) {
	s, err := multibase.Encode(multibase.Base58BTC, b)
	if err != nil {
		return "", fmt.Errorf("encode multibase: %w", err)
	}

	return s, nil
}

// DecodeMultibase decodes multibase text of any registered base.
func DecodeMultibase(s string) ([]byte, error) {
	_, b, err := multibase.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode multibase: %w", err)
	}

	return b, nil
}

// Key encoding prefixes. A prefixed key is decoded with that encoding only.
const (
	HexPrefix       = "hex:"
	MultibasePrefix = "multibase:"
	Base58Prefix    = "base58:"
	Base64Prefix    = "base64:"
)

// ErrAmbiguousKey is returned when an unprefixed key decodes to different keys under different encodings.
var ErrAmbiguousKey = errors.New("ambiguous key encoding")

type keyDecoder struct {
	prefix string
	decode func(string) ([]byte, error)
}

//nolint:gochecknoglobals
var keyDecoders = []keyDecoder{
	{HexPrefix, DecodeHex},
	{MultibasePrefix, DecodeMultibase},
	{Base58Prefix, DecodeBase58},
	{Base64Prefix, DecodeBase64},
}

// DecodeKey parses a key given as hex, multibase, base58 or base64 text. The decoded value must be
// one of the accepted sizes. A "hex:", "multibase:", "base58:" or "base64:" prefix selects the encoding.
// Without one, every encoding is tried and all decodings of an accepted size must agree, otherwise
// ErrAmbiguousKey is returned.
func DecodeKey(s string, sizes ...int) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("decode key: empty value: %w", ErrInvalidEncoding)
	}

	for _, d := range keyDecoders {
		if !strings.HasPrefix(s, d.prefix) {
			continue
		}

		b, err := d.decode(strings.TrimPrefix(s, d.prefix))
		if err != nil {
			return nil, fmt.Errorf("decode key: %w", err)
		}

		if !acceptedSize(len(b), sizes) {
			return nil, fmt.Errorf("decode key: %d-byte key, expected size %v: %w", len(b), sizes, ErrInvalidEncoding)
		}

		return b, nil
	}

	var key []byte

	for _, d := range keyDecoders {
		b, err := d.decode(s)
		if err != nil || !acceptedSize(len(b), sizes) {
			continue
		}

		if key != nil && !bytes.Equal(key, b) {
			return nil, fmt.Errorf("decode key: prefix the key with %s, %s, %s or %s: %w",
				HexPrefix, MultibasePrefix, Base58Prefix, Base64Prefix, ErrAmbiguousKey)
		}

		key = b
	}

	if key == nil {
		return nil, fmt.Errorf("decode key: no encoding yields a key of size %v: %w", sizes, ErrInvalidEncoding)
	}

	return key, nil
}

func acceptedSize(n int, sizes []int) bool {
	if len(sizes) == 0 {
		return n > 0
	}

	for _, size := range sizes {
		if n == size {
			return true
		}
	}

	return false
}
