/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package keyconv converts Ed25519 signing keys into the X25519 keys used for key agreement,
// so a single Ed25519 identity can both sign and receive encrypted content.
package keyconv

import (
	"crypto/ed25519"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/teserakt-io/golang-ed25519/extra25519"
)

// X25519KeySize is the size of X25519 public keys and scalars.
const X25519KeySize = 32

// ErrInvalidKey is wrapped by every KeyFormatError.
var ErrInvalidKey = errors.New("invalid key")

// lowOrderPoints are Montgomery u-coordinates (little endian) that would yield a predictable shared secret.
//
//nolint:gochecknoglobals
var lowOrderPoints = [][X25519KeySize]byte{
	{},
	{1},
}

// KeyFormatError reports a key that is malformed or cannot be converted.
type KeyFormatError struct {
	// KeyType is "public" or "private".
	KeyType string
	Reason  string
}

func (e *KeyFormatError) Error() string {
	return fmt.Sprintf("ed25519 %s key: %s", e.KeyType, e.Reason)
}

// Unwrap returns ErrInvalidKey.
func (e *KeyFormatError) Unwrap() error {
	return ErrInvalidKey
}

func publicKeyError(format string, args ...interface{}) error {
	return &KeyFormatError{KeyType: "public", Reason: fmt.Sprintf(format, args...)}
}

func privateKeyError(format string, args ...interface{}) error {
	return &KeyFormatError{KeyType: "private", Reason: fmt.Sprintf(format, args...)}
}

// EdPublicKeyToX25519 maps an Ed25519 public key to its X25519 counterpart, u = (1+y)/(1-y) mod p.
func EdPublicKeyToX25519(pub []byte) ([]byte, error) {
	if len(pub) == 0 {
		return nil, publicKeyError("key is nil")
	}

	if len(pub) != ed25519.PublicKeySize {
		return nil, publicKeyError("%d-byte key size is invalid", len(pub))
	}

	in := new([ed25519.PublicKeySize]byte)
	copy(in[:], pub)

	out := new([X25519KeySize]byte)

	if !extra25519.PublicKeyToCurve25519(out, in) {
		return nil, publicKeyError("not a valid curve point")
	}

	for i := range lowOrderPoints {
		if subtle.ConstantTimeCompare(out[:], lowOrderPoints[i][:]) == 1 {
			return nil, publicKeyError("converts to a low order point")
		}
	}

	return out[:], nil
}

// EdPrivateKeyToX25519 derives the X25519 scalar of an Ed25519 private key: the clamped lower half of
// SHA-512(seed). Both the 32-byte seed and the 64-byte seed||public form are accepted.
func EdPrivateKeyToX25519(priv []byte) ([]byte, error) {
	var expanded ed25519.PrivateKey

	switch len(priv) {
	case 0:
		return nil, privateKeyError("key is nil")
	case ed25519.SeedSize:
		expanded = ed25519.NewKeyFromSeed(priv)
	case ed25519.PrivateKeySize:
		expanded = ed25519.PrivateKey(priv)
	default:
		return nil, privateKeyError("%d-byte key size is invalid", len(priv))
	}

	in := new([ed25519.PrivateKeySize]byte)
	copy(in[:], expanded)

	defer zero(in[:])

	out := new([X25519KeySize]byte)
	extra25519.PrivateKeyToCurve25519(out, in)

	return out[:], nil
}

// X25519KeyPair converts a whole Ed25519 key pair.
func X25519KeyPair(pub ed25519.PublicKey, priv ed25519.PrivateKey) ([]byte, []byte, error) {
	xPub, err := EdPublicKeyToX25519(pub)
	if err != nil {
		return nil, nil, err
	}

	xPriv, err := EdPrivateKeyToX25519(priv)
	if err != nil {
		return nil, nil, err
	}

	return xPub, xPriv, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
