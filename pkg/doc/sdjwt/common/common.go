/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package common holds the SD-JWT building blocks shared by the packer, issuer, holder and verifier:
// disclosures, frames, digests, the compact serialization and digest resolution.
package common

import (
	"crypto"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	// hash implementations used by GetCryptoHash.
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// Reserved claim names.
const (
	// SDKey holds the sorted digest list of an object node.
	SDKey = "_sd"
	// SDDecoyKey holds the decoy count in the JSON form of a Frame.
	SDDecoyKey = "_sd_decoy"
	// ArrayElementDigestKey is the single key of an array element placeholder.
	ArrayElementDigestKey = "..."
	// SDAlgorithmKey names the digest algorithm in the JWT payload.
	SDAlgorithmKey = "_sd_alg"
	// CNFKey holds the holder confirmation key.
	CNFKey = "cnf"
	// JWKKey is the member of CNFKey carrying the holder JWK.
	JWKKey = "jwk"
	// SDHashKey holds the presentation digest in a key binding JWT.
	SDHashKey = "sd_hash"
)

// DefaultSaltSize is the salt size in bytes, 128 bits.
const DefaultSaltSize = 16

// DefaultHash is used when no digest algorithm is configured.
const DefaultHash = crypto.SHA256

// SaltGenerator returns a fresh random salt of byteLength random bytes in text form.
type SaltGenerator func(byteLength int) (string, error)

// DecoyGenerator returns a decoy digest indistinguishable from a real one.
type DecoyGenerator func(hash crypto.Hash, salt SaltGenerator) (string, error)

// NewSaltGenerator returns a SaltGenerator reading from r and encoding with base64url.
func NewSaltGenerator(r io.Reader) SaltGenerator {
	return func(byteLength int) (string, error) {
		salt := make([]byte, byteLength)

		if _, err := io.ReadFull(r, salt); err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}

		return base64.RawURLEncoding.EncodeToString(salt), nil
	}
}

// DefaultSaltGenerator reads from crypto/rand.
func DefaultSaltGenerator() SaltGenerator {
	return NewSaltGenerator(rand.Reader)
}

// DefaultDecoyGenerator hashes a fresh salt, which yields a digest with the length and alphabet of a real one.
func DefaultDecoyGenerator(hash crypto.Hash, salt SaltGenerator) (string, error) {
	s, err := salt(DefaultSaltSize)
	if err != nil {
		return "", err
	}

	return GetHash(hash, s)
}

// GetHash calculates the base64url digest of value.
func GetHash(hash crypto.Hash, value string) (string, error) {
	if !hash.Available() {
		return "", fmt.Errorf("hash function not available for: %d", hash)
	}

	h := hash.New()

	if _, err := h.Write([]byte(value)); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// HashName returns the _sd_alg name of hash, e.g. "sha-256".
func HashName(hash crypto.Hash) string {
	return strings.ToLower(hash.String())
}

// GetCryptoHash returns the hash registered under an _sd_alg name (case insensitive).
func GetCryptoHash(sdAlg string) (crypto.Hash, error) {
	switch strings.ToUpper(sdAlg) {
	case crypto.SHA256.String():
		return crypto.SHA256, nil
	case crypto.SHA384.String():
		return crypto.SHA384, nil
	case crypto.SHA512.String():
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%s '%s' not supported", SDAlgorithmKey, sdAlg)
	}
}

// GetCryptoHashFromClaims reads _sd_alg from a JWT payload. A missing claim means sha-256.
func GetCryptoHashFromClaims(claims map[string]interface{}) (crypto.Hash, error) {
	raw, ok := claims[SDAlgorithmKey]
	if !ok {
		return DefaultHash, nil
	}

	name, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("%s must be a string", SDAlgorithmKey)
	}

	return GetCryptoHash(name)
}

// KeyExistsInMap checks if key exists in map, at any depth of nested objects and arrays.
func KeyExistsInMap(key string, m map[string]interface{}) bool {
	for k, v := range m {
		if k == key || keyExistsInValue(key, v) {
			return true
		}
	}

	return false
}

func keyExistsInValue(key string, v interface{}) bool {
	switch value := v.(type) {
	case map[string]interface{}:
		return KeyExistsInMap(key, value)
	case []interface{}:
		for _, item := range value {
			if keyExistsInValue(key, item) {
				return true
			}
		}
	case []map[string]interface{}:
		for _, item := range value {
			if KeyExistsInMap(key, item) {
				return true
			}
		}
	}

	return false
}

func stringArray(entry interface{}) ([]string, error) {
	switch v := entry.(type) {
	case []string:
		return v, nil
	case []interface{}:
		result := make([]string, 0, len(v))

		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("entry item type[%T] must be string", item)
			}

			result = append(result, s)
		}

		return result, nil
	default:
		return nil, fmt.Errorf("entry type[%T] is not an array", entry)
	}
}
