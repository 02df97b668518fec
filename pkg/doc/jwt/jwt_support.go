/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"crypto/ed25519"
	"errors"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jose"
)

// JoseED25519Signer is a Jose compliant signer.
type JoseED25519Signer struct {
	privKey ed25519.PrivateKey
	headers jose.Headers
}

// Sign data.
func (s JoseED25519Signer) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(s.privKey, data), nil
}

// Headers returns the signer's headers map.
func (s JoseED25519Signer) Headers() jose.Headers {
	return s.headers
}

// NewEd25519Signer returns a Jose compliant signer that can be passed as a signer to jwt.NewSigned().
// privKey is either a 32-byte seed or a 64-byte private key.
func NewEd25519Signer(privKey []byte, headers jose.Headers) (*JoseED25519Signer, error) {
	switch len(privKey) {
	case ed25519.SeedSize:
		privKey = ed25519.NewKeyFromSeed(privKey)
	case ed25519.PrivateKeySize:
	default:
		return nil, errors.New("bad ed25519 private key length")
	}

	return &JoseED25519Signer{
		privKey: privKey,
		headers: prepareJWSHeaders(headers, jose.AlgorithmEdDSA),
	}, nil
}

// JoseEd25519Verifier is a Jose compliant verifier.
type JoseEd25519Verifier struct {
	pubKey []byte
}

// Verify signingInput against signature. it validates that joseHeaders contains EdDSA alg for this implementation.
func (v JoseEd25519Verifier) Verify(joseHeaders jose.Headers, _, signingInput, signature []byte) error {
	alg, ok := joseHeaders.Algorithm()
	if !ok {
		return errors.New("alg is not defined")
	}

	if alg != jose.AlgorithmEdDSA {
		return errors.New("alg is not EdDSA")
	}

	return VerifyEdDSA(v.pubKey, signingInput, signature)
}

// NewEd25519Verifier returns a Jose compliant verifier that can be passed as a verifier option to jwt.Parse().
func NewEd25519Verifier(pubKey []byte) (*JoseEd25519Verifier, error) {
	if l := len(pubKey); l != ed25519.PublicKeySize {
		return nil, errors.New("bad ed25519 public key length")
	}

	return &JoseEd25519Verifier{pubKey: pubKey}, nil
}

// VerifyEdDSA verifies EdDSA signature.
func VerifyEdDSA(pubKey interface{}, message, signature []byte) error {
	pubKeyEdDSA, ok := pubKey.([]byte)
	if !ok {
		pubKeyEdDSA, ok = pubKey.(ed25519.PublicKey)
		if !ok {
			return errors.New("not []byte or ed25519.PublicKey public key")
		}
	}

	if l := len(pubKeyEdDSA); l != ed25519.PublicKeySize {
		return errors.New("bad ed25519 public key length")
	}

	if ok := ed25519.Verify(pubKeyEdDSA, message, signature); !ok {
		return errors.New("signature doesn't match")
	}

	return nil
}

func prepareJWSHeaders(headers jose.Headers, alg string) jose.Headers {
	newHeaders := make(jose.Headers, len(headers)+1)

	for k, v := range headers {
		newHeaders[k] = v
	}

	newHeaders[jose.HeaderAlgorithm] = alg

	return newHeaders
}
