/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	gojose "github.com/go-jose/go-jose/v3"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jose"
)

// ErrHolderKeyNotFound is returned when the JWT payload has no cnf.jwk holder key.
var ErrHolderKeyNotFound = errors.New("holder public key is not found in cnf claim")

// HolderKeyFromJWK returns the Ed25519 public key carried by jwk.
func HolderKeyFromJWK(jwk *gojose.JSONWebKey) (ed25519.PublicKey, error) {
	switch key := jwk.Key.(type) {
	case ed25519.PublicKey:
		return key, nil
	case ed25519.PrivateKey:
		return nil, errors.New("holder JWK must be a public key")
	default:
		return nil, fmt.Errorf("holder JWK key type[%T] is not supported, expected Ed25519", jwk.Key)
	}
}

// GetHolderPublicKey reads the holder key from the "cnf" claim of a JWT payload.
func GetHolderPublicKey(claims map[string]interface{}) (ed25519.PublicKey, error) {
	cnfRaw, ok := claims[CNFKey]
	if !ok {
		return nil, ErrHolderKeyNotFound
	}

	cnf, ok := cnfRaw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("cnf claim type[%T] must be an object", cnfRaw)
	}

	jwkRaw, ok := cnf[JWKKey]
	if !ok {
		return nil, ErrHolderKeyNotFound
	}

	jwk, err := jose.JWKFromValue(jwkRaw)
	if err != nil {
		return nil, fmt.Errorf("parse holder JWK: %w", err)
	}

	return HolderKeyFromJWK(jwk)
}
