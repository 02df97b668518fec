/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/json"
)

// IANA registered JOSE headers (https://tools.ietf.org/html/rfc7515#section-4.1)
const (
	// HeaderAlgorithm identifies the cryptographic algorithm used to secure the JWS.
	HeaderAlgorithm = "alg" // string

	// HeaderJSONWebKey is the public key that corresponds to the key used to digitally sign the JWS.
	HeaderJSONWebKey = "jwk" // JSON

	// HeaderKeyID is a hint indicating which key was used to secure the JWS.
	HeaderKeyID = "kid" // string

	// HeaderType is used by JWS applications to declare the media type of this complete JWS.
	HeaderType = "typ" // string

	// HeaderContentType is used by JWS applications to declare the media type of the secured content.
	HeaderContentType = "cty" // string
)

// Signature algorithms.
const (
	// AlgorithmEdDSA is the JWS algorithm of Ed25519 signatures.
	AlgorithmEdDSA = "EdDSA"
	// AlgorithmNone marks an unsecured JWS.
	AlgorithmNone = "none"
)

// Headers represents JOSE headers.
type Headers map[string]interface{}

// KeyID gets Key ID from JOSE headers.
func (h Headers) KeyID() (string, bool) {
	return h.stringValue(HeaderKeyID)
}

// Algorithm gets Algorithm from JOSE headers.
func (h Headers) Algorithm() (string, bool) {
	return h.stringValue(HeaderAlgorithm)
}

// Type gets the media type of the complete JWS.
func (h Headers) Type() (string, bool) {
	return h.stringValue(HeaderType)
}

// ContentType gets the payload content type from JOSE headers.
func (h Headers) ContentType() (string, bool) {
	return h.stringValue(HeaderContentType)
}

func (h Headers) stringValue(key string) (string, bool) {
	raw, ok := h[key]
	if !ok {
		return "", false
	}

	str, ok := raw.(string)

	return str, ok
}

// JWK gets JWK from JOSE headers.
func (h Headers) JWK() (*jose.JSONWebKey, bool) {
	jwkRaw, ok := h[HeaderJSONWebKey]
	if !ok {
		return nil, false
	}

	jwkKey, err := JWKFromValue(jwkRaw)
	if err != nil {
		return nil, false
	}

	return jwkKey, true
}

// JWKFromValue reads a JWK out of a decoded JSON value, e.g. the "jwk" member of a "cnf" claim.
func JWKFromValue(v interface{}) (*jose.JSONWebKey, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var jwkKey jose.JSONWebKey

	if err = jwkKey.UnmarshalJSON(b); err != nil {
		return nil, err
	}

	return &jwkKey, nil
}
