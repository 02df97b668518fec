/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdjwt implements SD-JWTs whose disclosures travel encrypted for a single recipient.
//
// In an SD-JWT, claims can be hidden, but cryptographically protected against undetected modification.
// The issuer-signed JWT carries only salted digests of the hidden claims; the cleartext counterparts,
// the Disclosures, are sealed for the recipient's Ed25519 key (ephemeral X25519 ECDH, HKDF-SHA256,
// AES-256-GCM) so that nobody relaying the token learns them.
//
// The compact form has three positional segments:
//
//	<issuer-signed JWT>.<encrypted disclosures or empty>.<key binding JWT or empty>
//
// Sub-packages implement the roles: issuer creates the token, holder selects disclosures and re-encrypts
// them for a verifier, verifier decrypts, checks and restores the disclosed claims.
package sdjwt

import (
	"errors"
	"fmt"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/crypto/hybrid"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jose"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/common"
)

var logger = log.New("sdjwt-enc/sdjwt")

// SDJwtEnc is an SD-JWT with encrypted disclosures.
type SDJwtEnc struct {
	// JWT is the compact issuer-signed JWT.
	JWT string
	// EncryptedDisclosures is nil when the token carries no disclosures.
	EncryptedDisclosures *hybrid.EncryptedEnvelope
	// KeyBindingJWT is the compact key binding JWT, empty if absent.
	KeyBindingJWT string

	// Token is the decoded JWT. Set by Parse.
	Token *jwt.JSONWebToken

	separator string
}

type parseOpts struct {
	sigVerifier jose.SignatureVerifier
}

// ParseOpt is the SDJwtEnc parser option.
type ParseOpt func(opts *parseOpts)

// WithSignatureVerifier verifies the signature of the issuer-signed JWT. Without it the signature is not checked.
func WithSignatureVerifier(signatureVerifier jose.SignatureVerifier) ParseOpt {
	return func(opts *parseOpts) {
		opts.sigVerifier = signatureVerifier
	}
}

// Parse decodes a compact SDJwtEnc string.
func Parse(compact string, opts ...ParseOpt) (*SDJwtEnc, error) {
	pOpts := &parseOpts{
		sigVerifier: &NoopSignatureVerifier{},
	}

	for _, opt := range opts {
		opt(pOpts)
	}

	cf, err := common.ParseCombinedFormatForEncryption(compact)
	if err != nil {
		return nil, err
	}

	env, err := common.DecodeEncryptedDisclosures(cf.EncryptedDisclosures)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(cf.SDJWT, jwt.WithSignatureVerifier(pOpts.sigVerifier))
	if err != nil {
		return nil, fmt.Errorf("parse SD-JWT: %w", err)
	}

	if len(token.Payload) == 0 {
		return nil, common.StructureErrorf("payload is undefined on the JWT")
	}

	logger.Debugf("parsed SD-JWT (encrypted disclosures: %t, key binding: %t)", env != nil, cf.KeyBindingJWT != "")

	return &SDJwtEnc{
		JWT:                  cf.SDJWT,
		EncryptedDisclosures: env,
		KeyBindingJWT:        cf.KeyBindingJWT,
		Token:                token,
		separator:            cf.Separator,
	}, nil
}

func (s *SDJwtEnc) combinedFormat() (*common.CombinedFormatForEncryption, error) {
	if s.JWT == "" {
		return nil, errors.New("invalid SD-JWT: jwt is missing")
	}

	segment, err := common.EncodeEncryptedDisclosures(s.EncryptedDisclosures)
	if err != nil {
		return nil, err
	}

	return &common.CombinedFormatForEncryption{
		SDJWT:                s.JWT,
		EncryptedDisclosures: segment,
		KeyBindingJWT:        s.KeyBindingJWT,
		Separator:            s.separator,
	}, nil
}

// Serialize renders the compact form. The encrypted disclosures slot is emitted even when empty.
func (s *SDJwtEnc) Serialize() (string, error) {
	cf, err := s.combinedFormat()
	if err != nil {
		return "", err
	}

	return cf.Serialize(), nil
}

// PresentationPrefix returns the compact form up to and including the separator before the key binding JWT.
func (s *SDJwtEnc) PresentationPrefix() (string, error) {
	cf, err := s.combinedFormat()
	if err != nil {
		return "", err
	}

	return cf.PresentationPrefix(), nil
}

// Claims returns the packed JWT payload. It is nil unless the token came from Parse.
func (s *SDJwtEnc) Claims() map[string]interface{} {
	if s.Token == nil {
		return nil
	}

	return s.Token.Payload
}

// DecryptDisclosures opens the encrypted disclosures with the recipient's Ed25519 private key and returns
// the encoded disclosures. A token without encrypted disclosures yields none.
func (s *SDJwtEnc) DecryptDisclosures(recipientPrivKey []byte) ([]string, error) {
	if s.EncryptedDisclosures == nil {
		return nil, nil
	}

	disclosures, err := common.DecryptDisclosures(s.EncryptedDisclosures, recipientPrivKey)
	if err != nil {
		return nil, err
	}

	logger.Debugf("decrypted %d disclosures", len(disclosures))

	return disclosures, nil
}

// NoopSignatureVerifier accepts any signature. Holders use it to read tokens they do not need to verify.
type NoopSignatureVerifier struct{}

// Verify accepts the signature.
func (sv *NoopSignatureVerifier) Verify(_ jose.Headers, _, _, _ []byte) error {
	return nil
}
