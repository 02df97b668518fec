/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:generate mockgen -destination ../../internal/gomocks/doc/jose/mocks.gen.go -package jose github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jose Signer,SignatureVerifier

package jose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/json"
)

const jwsPartsCount = 3

// JSONWebSignature defines JSON Web Signature (https://tools.ietf.org/html/rfc7515)
type JSONWebSignature struct {
	ProtectedHeaders Headers

	Payload []byte

	signature []byte

	// compact form as signed or parsed; re-serialization returns it unchanged.
	compact string
}

// Signer defines JWS Signer interface. It makes signing of data and provides custom JWS headers relevant to the signer.
type Signer interface {
	// Sign signs.
	Sign(data []byte) ([]byte, error)

	// Headers provides JWS headers. "alg" header must be provided (see https://tools.ietf.org/html/rfc7515#section-4.1)
	Headers() Headers
}

// SignatureVerifier makes verification of JSON Web Signature.
type SignatureVerifier interface {
	// Verify verifies JWS based on the signing input.
	Verify(joseHeaders Headers, payload, signingInput, signature []byte) error
}

// SignatureVerifierFunc is a function wrapper for SignatureVerifier.
type SignatureVerifierFunc func(joseHeaders Headers, payload, signingInput, signature []byte) error

// Verify verifies JWS signature.
func (s SignatureVerifierFunc) Verify(joseHeaders Headers, payload, signingInput, signature []byte) error {
	return s(joseHeaders, payload, signingInput, signature)
}

// opaqueSigner lets go-jose sign through a Signer.
type opaqueSigner struct {
	signer Signer
	alg    jose.SignatureAlgorithm
}

func (s *opaqueSigner) Public() *jose.JSONWebKey {
	return nil
}

func (s *opaqueSigner) Algs() []jose.SignatureAlgorithm {
	return []jose.SignatureAlgorithm{s.alg}
}

func (s *opaqueSigner) SignPayload(signingInput []byte, _ jose.SignatureAlgorithm) ([]byte, error) {
	return s.signer.Sign(signingInput)
}

// opaqueVerifier lets go-jose verify through a SignatureVerifier. go-jose reports every verification
// failure as ErrCryptoFailure, so the verifier's own error is kept in err.
type opaqueVerifier struct {
	verifier SignatureVerifier
	headers  Headers
	payload  []byte
	err      error
}

func (v *opaqueVerifier) VerifyPayload(signingInput, signature []byte, _ jose.SignatureAlgorithm) error {
	v.err = v.verifier.Verify(v.headers, v.payload, signingInput, signature)

	return v.err
}

// NewJWS creates JSON Web Signature. Signer headers take precedence over protectedHeaders.
func NewJWS(protectedHeaders Headers, payload []byte, signer Signer) (*JSONWebSignature, error) {
	headers := make(Headers, len(protectedHeaders)+len(signer.Headers()))

	for k, v := range protectedHeaders {
		headers[k] = v
	}

	for k, v := range signer.Headers() {
		headers[k] = v
	}

	alg, ok := headers.Algorithm()
	if !ok {
		return nil, errors.New("alg JWS header is not defined")
	}

	// go-jose panics on headers it cannot serialize.
	if _, err := json.Marshal(headers); err != nil {
		return nil, fmt.Errorf("serialize JWS headers: %w", err)
	}

	opts := &jose.SignerOptions{}

	for k, v := range headers {
		if k != HeaderAlgorithm {
			opts.WithHeader(jose.HeaderKey(k), v)
		}
	}

	joseSigner, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.SignatureAlgorithm(alg),
		Key:       &opaqueSigner{signer: signer, alg: jose.SignatureAlgorithm(alg)},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("create JWS signer: %w", err)
	}

	signed, err := joseSigner.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("sign JWS verification data: %w", err)
	}

	compact, err := signed.CompactSerialize()
	if err != nil {
		return nil, fmt.Errorf("serialize compact JWS: %w", err)
	}

	return &JSONWebSignature{
		ProtectedHeaders: headers,
		Payload:          payload,
		signature:        signed.Signatures[0].Signature,
		compact:          compact,
	}, nil
}

// SerializeCompact makes JWS Compact Serialization (https://tools.ietf.org/html/rfc7515#section-7.1)
func (s *JSONWebSignature) SerializeCompact() string {
	return s.compact
}

// Signature returns a copy of JWS signature.
func (s *JSONWebSignature) Signature() []byte {
	if s.signature == nil {
		return nil
	}

	sCopy := make([]byte, len(s.signature))
	copy(sCopy, s.signature)

	return sCopy
}

// ParseJWS parses serialized JWS and verifies its signature with verifier.
func ParseJWS(jws string, verifier SignatureVerifier) (*JSONWebSignature, error) {
	if verifier == nil {
		return nil, errors.New("signature verifier is not defined")
	}

	if !IsCompactJWS(jws) {
		if strings.HasPrefix(strings.TrimSpace(jws), "{") {
			return nil, errors.New("JWS JSON serialization is not supported")
		}

		return nil, errors.New("invalid JWS compact format")
	}

	parsed, err := jose.ParseSigned(jws)
	if err != nil {
		return nil, fmt.Errorf("parse compact JWS: %w", err)
	}

	sig := parsed.Signatures[0]
	headers := headersFromJOSE(sig.Protected)

	if _, ok := headers.Algorithm(); !ok {
		return nil, errors.New("alg JWS header is not defined")
	}

	payload := parsed.UnsafePayloadWithoutVerification()

	v := &opaqueVerifier{verifier: verifier, headers: headers, payload: payload}

	if _, err = parsed.Verify(v); err != nil {
		if v.err != nil {
			return nil, v.err
		}

		return nil, fmt.Errorf("verify JWS: %w", err)
	}

	return &JSONWebSignature{
		ProtectedHeaders: headers,
		Payload:          payload,
		signature:        sig.Signature,
		compact:          jws,
	}, nil
}

func headersFromJOSE(h jose.Header) Headers {
	headers := make(Headers, len(h.ExtraHeaders)+3)

	for k, v := range h.ExtraHeaders {
		headers[string(k)] = v
	}

	if h.Algorithm != "" {
		headers[HeaderAlgorithm] = h.Algorithm
	}

	if h.KeyID != "" {
		headers[HeaderKeyID] = h.KeyID
	}

	if h.JSONWebKey != nil {
		headers[HeaderJSONWebKey] = h.JSONWebKey
	}

	return headers
}

// IsCompactJWS checks weather input is a compact JWS (based on https://tools.ietf.org/html/rfc7516#section-9)
func IsCompactJWS(s string) bool {
	parts := strings.Split(s, ".")

	return len(parts) == jwsPartsCount
}
