/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package verifier enables the Verifier: an entity that requests, checks and extracts the claims from an SD-JWT
and the disclosures the Holder encrypted for it.
*/
package verifier

import (
	"crypto"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
	"golang.org/x/exp/slices"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jose"
	afgjwt "github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/common"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/internal/maphelpers"
)

var logger = log.New("sdjwt-enc/sdjwt/verifier")

// parseOpts holds options for verifying a presentation.
type parseOpts struct {
	sigVerifier jose.SignatureVerifier

	issuerSigningAlgorithms []string
	holderSigningAlgorithms []string

	holderBindingRequired bool
	expectedAudience      string
	expectedNonce         string
	keyBindingMaxAge      time.Duration

	leewayForClaimsValidation time.Duration
}

// ParseOpt is the SD-JWT presentation parser option.
type ParseOpt func(opts *parseOpts)

// WithSignatureVerifier option is for definition of signature verifier of the issuer-signed JWT.
func WithSignatureVerifier(signatureVerifier jose.SignatureVerifier) ParseOpt {
	return func(opts *parseOpts) {
		opts.sigVerifier = signatureVerifier
	}
}

// WithIssuerPublicKey verifies the issuer-signed JWT with an Ed25519 public key, whatever its "iss" and "kid".
func WithIssuerPublicKey(pubKey ed25519.PublicKey) ParseOpt {
	return func(opts *parseOpts) {
		v, err := afgjwt.NewEd25519Verifier(pubKey)
		if err != nil {
			opts.sigVerifier = jose.SignatureVerifierFunc(func(jose.Headers, []byte, []byte, []byte) error {
				return err
			})

			return
		}

		opts.sigVerifier = v
	}
}

// WithIssuerSigningAlgorithms option is for defining secure signing algorithms (for issuer).
func WithIssuerSigningAlgorithms(algorithms []string) ParseOpt {
	return func(opts *parseOpts) {
		opts.issuerSigningAlgorithms = algorithms
	}
}

// WithHolderSigningAlgorithms option is for defining secure signing algorithms (for holder).
func WithHolderSigningAlgorithms(algorithms []string) ParseOpt {
	return func(opts *parseOpts) {
		opts.holderSigningAlgorithms = algorithms
	}
}

// WithHolderBindingRequired option is for enforcing holder binding.
func WithHolderBindingRequired(flag bool) ParseOpt {
	return func(opts *parseOpts) {
		opts.holderBindingRequired = flag
	}
}

// WithExpectedAudienceForHolderBinding option is to pass expected audience for holder binding.
func WithExpectedAudienceForHolderBinding(audience string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedAudience = audience
	}
}

// WithExpectedNonceForHolderBinding option is to pass nonce value for holder binding.
func WithExpectedNonceForHolderBinding(nonce string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedNonce = nonce
	}
}

// WithHolderBinding requires a Key Binding JWT issued for audience with nonce.
func WithHolderBinding(audience, nonce string) ParseOpt {
	return func(opts *parseOpts) {
		opts.holderBindingRequired = true
		opts.expectedAudience = audience
		opts.expectedNonce = nonce
	}
}

// WithKeyBindingMaxAge rejects Key Binding JWTs issued longer than maxAge ago. Zero means no limit.
func WithKeyBindingMaxAge(maxAge time.Duration) ParseOpt {
	return func(opts *parseOpts) {
		opts.keyBindingMaxAge = maxAge
	}
}

// WithLeewayForClaimsValidation is an option for claims time(s) validation.
func WithLeewayForClaimsValidation(duration time.Duration) ParseOpt {
	return func(opts *parseOpts) {
		opts.leewayForClaimsValidation = duration
	}
}

// Parse parses combined format for presentation and returns verified claims.
// The Verifier has to verify that all disclosed claim values were part of the original, Issuer-signed SD-JWT.
//
// At a high level, the Verifier:
//   - receives the presentation from the Holder and verifies the signature of the SD-JWT using the
//     Issuer's public key,
//   - decrypts the Holder-Selected Disclosures with its own Ed25519 private key,
//   - calculates the digests over the Disclosures and verifies that each digest is contained in the SD-JWT,
//   - verifies the Key Binding JWT, if holder binding is required by the Verifier's policy,
//     using the public key included in the SD-JWT.
//
// The Verifier will not, however, learn any claim values not disclosed in the Disclosures.
func Parse(combinedFormatForPresentation string, recipientPrivKey []byte,
	opts ...ParseOpt) (map[string]interface{}, error) {
	pOpts := &parseOpts{
		issuerSigningAlgorithms:   []string{jose.AlgorithmEdDSA},
		holderSigningAlgorithms:   []string{jose.AlgorithmEdDSA},
		leewayForClaimsValidation: jwt.DefaultLeeway,
	}

	for _, opt := range opts {
		opt(pOpts)
	}

	token, err := sdjwt.Parse(combinedFormatForPresentation, sdjwt.WithSignatureVerifier(pOpts.sigVerifier))
	if err != nil {
		return nil, err
	}

	if err = verifySigningAlg(token.Token.Headers, pOpts.issuerSigningAlgorithms); err != nil {
		return nil, fmt.Errorf("failed to verify issuer signing algorithm: %w", err)
	}

	if err = verifyJWT(token.Token, pOpts.leewayForClaimsValidation); err != nil {
		return nil, err
	}

	hash, err := common.GetCryptoHashFromClaims(token.Claims())
	if err != nil {
		return nil, err
	}

	disclosures, err := token.DecryptDisclosures(recipientPrivKey)
	if err != nil {
		return nil, err
	}

	claims, err := common.Unpack(token.Claims(), disclosures, hash)
	if err != nil {
		return nil, err
	}

	presentationPrefix := strings.TrimSuffix(combinedFormatForPresentation, token.KeyBindingJWT)

	if err = verifyKeyBinding(token, presentationPrefix, hash, pOpts); err != nil {
		return nil, err
	}

	logger.Debugf("verified SD-JWT presentation with %d disclosures (key binding: %t)", len(disclosures),
		token.KeyBindingJWT != "")

	return claims, nil
}

func verifyKeyBinding(token *sdjwt.SDJwtEnc, presentationPrefix string, hash crypto.Hash, pOpts *parseOpts) error {
	if pOpts.holderBindingRequired && token.KeyBindingJWT == "" {
		return errors.New("key binding is required")
	}

	if token.KeyBindingJWT == "" {
		// not required and not present - nothing to do
		return nil
	}

	holderKey, err := common.GetHolderPublicKey(token.Claims())
	if err != nil {
		return fmt.Errorf("failed to get signature verifier from presentation claims: %w", err)
	}

	signatureVerifier, err := afgjwt.NewEd25519Verifier(holderKey)
	if err != nil {
		return fmt.Errorf("failed to get signature verifier from presentation claims: %w", err)
	}

	holderJWT, err := afgjwt.Parse(token.KeyBindingJWT, afgjwt.WithSignatureVerifier(signatureVerifier))
	if err != nil {
		return fmt.Errorf("failed to parse key binding: %w", err)
	}

	if err = verifyKeyBindingJWT(holderJWT, presentationPrefix, hash, pOpts); err != nil {
		return fmt.Errorf("failed to verify holder JWT: %w", err)
	}

	return nil
}

// keyBindingPayload represents expected key binding payload.
type keyBindingPayload struct {
	Nonce    string           `json:"nonce,omitempty"`
	Audience string           `json:"aud,omitempty"`
	IssuedAt *jwt.NumericDate `json:"iat,omitempty"`
	SDHash   string           `json:"sd_hash,omitempty"`
}

func verifyKeyBindingJWT(holderJWT *afgjwt.JSONWebToken, presentationPrefix string, hash crypto.Hash,
	pOpts *parseOpts) error {
	// The none algorithm MUST NOT be accepted.
	if err := verifySigningAlg(holderJWT.Headers, pOpts.holderSigningAlgorithms); err != nil {
		return fmt.Errorf("failed to verify holder signing algorithm: %w", err)
	}

	if err := verifyTyp(holderJWT.Headers); err != nil {
		return fmt.Errorf("failed to verify typ header: %w", err)
	}

	var bindingPayload keyBindingPayload

	if err := maphelpers.DecodeJSONMap(holderJWT.Payload, &bindingPayload); err != nil {
		return fmt.Errorf("decode key binding payload: %w", err)
	}

	if err := verifyIssuedAt(bindingPayload.IssuedAt, pOpts); err != nil {
		return err
	}

	if pOpts.expectedNonce != "" && pOpts.expectedNonce != bindingPayload.Nonce {
		return fmt.Errorf("nonce value '%s' does not match expected nonce value '%s'",
			bindingPayload.Nonce, pOpts.expectedNonce)
	}

	if pOpts.expectedAudience != "" && pOpts.expectedAudience != bindingPayload.Audience {
		return fmt.Errorf("audience value '%s' does not match expected audience value '%s'",
			bindingPayload.Audience, pOpts.expectedAudience)
	}

	expectedSDHash, err := common.GetHash(hash, presentationPrefix)
	if err != nil {
		return err
	}

	if bindingPayload.SDHash != expectedSDHash {
		return errors.New("sd_hash does not match the presentation")
	}

	return nil
}

func verifyIssuedAt(iat *jwt.NumericDate, pOpts *parseOpts) error {
	if iat == nil {
		return errors.New("iat is missing")
	}

	now := time.Now()
	issuedAt := iat.Time()

	if issuedAt.After(now.Add(pOpts.leewayForClaimsValidation)) {
		return errors.New("iat is in the future")
	}

	if pOpts.keyBindingMaxAge > 0 && issuedAt.Before(now.Add(-pOpts.keyBindingMaxAge-pOpts.leewayForClaimsValidation)) {
		return errors.New("key binding JWT is too old")
	}

	return nil
}

func verifyTyp(joseHeaders jose.Headers) error {
	typ, ok := joseHeaders.Type()
	if !ok {
		return fmt.Errorf("missing typ")
	}

	if typ != afgjwt.TypeKeyBindingJWT {
		return fmt.Errorf("unexpected typ \"%s\"", typ)
	}

	return nil
}

func verifySigningAlg(joseHeaders jose.Headers, secureAlgs []string) error {
	alg, ok := joseHeaders.Algorithm()
	if !ok {
		return fmt.Errorf("missing alg")
	}

	if alg == jose.AlgorithmNone {
		return fmt.Errorf("alg value cannot be 'none'")
	}

	if !slices.Contains(secureAlgs, alg) {
		return fmt.Errorf("alg '%s' is not in the allowed list", alg)
	}

	return nil
}

// verifyJWT checks that the JWT is valid using nbf, iat, and exp claims (if provided in the JWT).
func verifyJWT(signedJWT *afgjwt.JSONWebToken, leeway time.Duration) error {
	var claims jwt.Claims

	if err := maphelpers.DecodeJSONMap(signedJWT.Payload, &claims); err != nil {
		return fmt.Errorf("decode JWT claims: %w", err)
	}

	// Validate checks claims in a token against expected values.
	// It is validated using the expected.Time, or time.Now if not provided
	expected := jwt.Expected{}

	if err := claims.ValidateWithLeeway(expected, leeway); err != nil {
		return fmt.Errorf("invalid JWT time values: %w", err)
	}

	return nil
}
