/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package issuer enables the Issuer: An entity that creates SD-JWTs.

An SD-JWT is a digitally signed document containing digests over the claims
(per claim: a random salt, the claim name and the claim value).
It MAY further contain clear-text claims that are always disclosed to the Verifier.
It MUST be digitally signed using the Issuer's private key.

	SD-JWT-DOC = (METADATA, SD-CLAIMS, NON-SD-CLAIMS)
	SD-JWT = SD-JWT-DOC | SIG(SD-JWT-DOC, ISSUER-PRIV-KEY)

Which claims become selectively disclosable is described by a disclosure frame
mirroring the shape of the claims (see common.Frame).

The Disclosures are handed to the Holder encrypted for the Holder's Ed25519 key
(WithRecipientPublicKey), or in clear for the caller to deliver:

	COMBINED-ISSUANCE = SD-JWT . ENC(DISCLOSURES, RECIPIENT-PUB-KEY) .
*/
package issuer

import (
	"crypto"
	"errors"
	"fmt"
	"io"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/crypto/hybrid"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jose"
	afgjwt "github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/common"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/packer"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/internal/maphelpers"
)

var logger = log.New("sdjwt-enc/sdjwt/issuer")

// newOpts holds options for creating new SD-JWT.
type newOpts struct {
	Subject  string
	Audience string
	JTI      string

	Expiry    *jwt.NumericDate
	NotBefore *jwt.NumericDate
	IssuedAt  *jwt.NumericDate

	HolderPublicKey    *gojose.JSONWebKey
	RecipientPublicKey []byte

	HashAlg crypto.Hash

	headers jose.Headers
	getSalt common.SaltGenerator
	random  io.Reader
	lenient bool
}

// NewOpt is the SD-JWT New option.
type NewOpt func(opts *newOpts)

// WithHeaders adds protected headers to the issuer-signed JWT, e.g. "typ" or "kid".
func WithHeaders(headers jose.Headers) NewOpt {
	return func(opts *newOpts) {
		opts.headers = headers
	}
}

// WithSaltFnc is an option for generating salt. Mostly used for testing.
// A new salt MUST be chosen for each claim independently of other salts.
func WithSaltFnc(fnc common.SaltGenerator) NewOpt {
	return func(opts *newOpts) {
		opts.getSalt = fnc
	}
}

// WithRandomSource sets the entropy source of salts, decoys and the ephemeral encryption key.
func WithRandomSource(r io.Reader) NewOpt {
	return func(opts *newOpts) {
		opts.random = r
	}
}

// WithLenientFrame ignores frame entries that do not match any claim.
func WithLenientFrame() NewOpt {
	return func(opts *newOpts) {
		opts.lenient = true
	}
}

// WithIssuedAt is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithIssuedAt(issuedAt *jwt.NumericDate) NewOpt {
	return func(opts *newOpts) {
		opts.IssuedAt = issuedAt
	}
}

// WithAudience is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithAudience(audience string) NewOpt {
	return func(opts *newOpts) {
		opts.Audience = audience
	}
}

// WithExpiry is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithExpiry(expiry *jwt.NumericDate) NewOpt {
	return func(opts *newOpts) {
		opts.Expiry = expiry
	}
}

// WithNotBefore is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithNotBefore(notBefore *jwt.NumericDate) NewOpt {
	return func(opts *newOpts) {
		opts.NotBefore = notBefore
	}
}

// WithSubject is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithSubject(subject string) NewOpt {
	return func(opts *newOpts) {
		opts.Subject = subject
	}
}

// WithJTI is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithJTI(jti string) NewOpt {
	return func(opts *newOpts) {
		opts.JTI = jti
	}
}

// WithHolderPublicKey is an option for SD-JWT payload.
// The Holder can prove legitimate possession of an SD-JWT by proving control over the same private key during
// the issuance and presentation. The key is carried as the "cnf" claim "jwk" member and must be an Ed25519 key.
func WithHolderPublicKey(jwk *gojose.JSONWebKey) NewOpt {
	return func(opts *newOpts) {
		opts.HolderPublicKey = jwk
	}
}

// WithRecipientPublicKey encrypts the disclosures for the given Ed25519 public key, usually the Holder's.
func WithRecipientPublicKey(pubKey []byte) NewOpt {
	return func(opts *newOpts) {
		opts.RecipientPublicKey = pubKey
	}
}

// WithHashAlgorithm is an option for hashing disclosures.
func WithHashAlgorithm(alg crypto.Hash) NewOpt {
	return func(opts *newOpts) {
		opts.HashAlg = alg
	}
}

// New creates new signed Selective Disclosure JWT based on input claims. The members and array elements
// selected by frame are replaced by digests of their Disclosures; a nil frame discloses everything in clear.
func New(issuer string, claims interface{}, frame *common.Frame,
	signer jose.Signer, opts ...NewOpt) (*SelectiveDisclosureJWT, error) {
	nOpts := &newOpts{
		HashAlg: common.DefaultHash,
	}

	for _, opt := range opts {
		opt(nOpts)
	}

	claimsMap, err := afgjwt.PayloadToMap(claims)
	if err != nil {
		return nil, fmt.Errorf("convert payload to map: %w", err)
	}

	// check for the presence of the _sd claim in claims map
	if common.KeyExistsInMap(common.SDKey, claimsMap) {
		return nil, fmt.Errorf("key '%s' cannot be present in the claims", common.SDKey)
	}

	if err = checkHolderPublicKey(nOpts.HolderPublicKey); err != nil {
		return nil, err
	}

	result, err := packer.New(packerOpts(nOpts)...).Pack(claimsMap, frame)
	if err != nil {
		return nil, err
	}

	payload, err := mergePayload(createPayload(issuer, nOpts), result.PackedClaims)
	if err != nil {
		return nil, err
	}

	signedJWT, err := afgjwt.NewSigned(payload, nOpts.headers, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create SD-JWT from payload: %w", err)
	}

	disclosures, err := common.EncodeDisclosures(result.Disclosures)
	if err != nil {
		return nil, err
	}

	token := &SelectiveDisclosureJWT{
		SignedJWT:   signedJWT,
		Disclosures: disclosures,
		random:      nOpts.random,
	}

	if nOpts.RecipientPublicKey != nil {
		if err = token.EncryptFor(nOpts.RecipientPublicKey); err != nil {
			return nil, err
		}
	}

	logger.Debugf("issued SD-JWT with %d disclosures (encrypted: %t)", len(disclosures),
		token.EncryptedDisclosures != nil)

	return token, nil
}

func packerOpts(nOpts *newOpts) []packer.Opt {
	pOpts := []packer.Opt{packer.WithHashAlgorithm(nOpts.HashAlg)}

	if nOpts.random != nil {
		pOpts = append(pOpts, packer.WithRandomSource(nOpts.random))
	}

	if nOpts.getSalt != nil {
		pOpts = append(pOpts, packer.WithSaltGenerator(nOpts.getSalt))
	}

	if nOpts.lenient {
		pOpts = append(pOpts, packer.WithLenientFrame())
	}

	return pOpts
}

func checkHolderPublicKey(jwk *gojose.JSONWebKey) error {
	if jwk == nil {
		return nil
	}

	if _, err := common.HolderKeyFromJWK(jwk); err != nil {
		return fmt.Errorf("holder key: %w", err)
	}

	return nil
}

func createPayload(issuer string, nOpts *newOpts) *payload {
	var cnf map[string]interface{}
	if nOpts.HolderPublicKey != nil {
		cnf = make(map[string]interface{})
		cnf[common.JWKKey] = nOpts.HolderPublicKey
	}

	return &payload{
		Issuer:    issuer,
		JTI:       nOpts.JTI,
		Subject:   nOpts.Subject,
		Audience:  nOpts.Audience,
		IssuedAt:  nOpts.IssuedAt,
		Expiry:    nOpts.Expiry,
		NotBefore: nOpts.NotBefore,
		CNF:       cnf,
		SDAlg:     common.HashName(nOpts.HashAlg),
	}
}

// mergePayload adds the packed claims to the registered claims. A claim present in both is an error.
func mergePayload(p *payload, packed interface{}) (map[string]interface{}, error) {
	merged, err := afgjwt.PayloadToMap(p)
	if err != nil {
		return nil, fmt.Errorf("convert payload to map: %w", err)
	}

	claims, ok := packed.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("claims type[%T] must be an object", packed)
	}

	for k, v := range claims {
		if _, exists := merged[k]; exists {
			return nil, fmt.Errorf("claim '%s' is set both in claims and in SD-JWT options", k)
		}

		merged[k] = v
	}

	return merged, nil
}

// SelectiveDisclosureJWT defines Selective Disclosure JSON Web Token (https://tools.ietf.org/html/rfc7519)
type SelectiveDisclosureJWT struct {
	SignedJWT *afgjwt.JSONWebToken
	// Disclosures are the encoded plaintext disclosures.
	Disclosures []string
	// EncryptedDisclosures is set once the disclosures are encrypted for a recipient.
	EncryptedDisclosures *hybrid.EncryptedEnvelope

	random io.Reader
}

// EncryptFor encrypts the disclosures for the Ed25519 public key of a recipient, replacing any previous envelope.
func (j *SelectiveDisclosureJWT) EncryptFor(recipientPubKey []byte) error {
	var encOpts []hybrid.Opt
	if j.random != nil {
		encOpts = append(encOpts, hybrid.WithRandomSource(j.random))
	}

	env, err := common.EncryptDisclosures(hybrid.NewEncrypter(encOpts...), j.Disclosures, recipientPubKey)
	if err != nil {
		return err
	}

	j.EncryptedDisclosures = env

	return nil
}

// DecodeClaims fills input c with claims of a token.
func (j *SelectiveDisclosureJWT) DecodeClaims(c interface{}) error {
	return maphelpers.DecodeJSONMap(j.SignedJWT.Payload, c)
}

// LookupStringHeader makes look up of particular header with string value.
func (j *SelectiveDisclosureJWT) LookupStringHeader(name string) string {
	v, _ := j.SignedJWT.Headers[name].(string)

	return v
}

// Serialize makes the compact SDJwtEnc serialization of the token. Disclosures that are not encrypted
// are not part of it.
func (j *SelectiveDisclosureJWT) Serialize() (string, error) {
	if j.SignedJWT == nil {
		return "", errors.New("JWS serialization is supported only")
	}

	signedJWT, err := j.SignedJWT.Serialize()
	if err != nil {
		return "", err
	}

	token := &sdjwt.SDJwtEnc{
		JWT:                  signedJWT,
		EncryptedDisclosures: j.EncryptedDisclosures,
	}

	return token.Serialize()
}

// payload represents SD-JWT payload.
type payload struct {
	// registered claim names
	Issuer    string           `json:"iss,omitempty"`
	Subject   string           `json:"sub,omitempty"`
	Audience  string           `json:"aud,omitempty"`
	JTI       string           `json:"jti,omitempty"`
	Expiry    *jwt.NumericDate `json:"exp,omitempty"`
	NotBefore *jwt.NumericDate `json:"nbf,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`

	// SD-JWT specific
	CNF   map[string]interface{} `json:"cnf,omitempty"`
	SDAlg string                 `json:"_sd_alg,omitempty"`
}
