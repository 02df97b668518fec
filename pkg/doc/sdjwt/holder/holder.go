/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package holder enables the Holder: an entity that receives SD-JWTs from the Issuer and has control over them.

The Holder decrypts the Disclosures received from the Issuer, picks the ones to reveal, and encrypts those
for the Verifier:

	COMBINED-PRESENTATION = SD-JWT . ENC(SELECTED-DISCLOSURES, VERIFIER-PUB-KEY) . KB-JWT

The optional Key Binding JWT is signed with the key the Issuer bound into the "cnf" claim. Its "sd_hash"
covers the presentation up to and including the separator that precedes it.
*/
package holder

import (
	"crypto"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-jose/go-jose/v3/jwt"
	"golang.org/x/exp/slices"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/crypto/hybrid"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jose"
	afgjwt "github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/common"
)

var logger = log.New("sdjwt-enc/sdjwt/holder")

// Claim defines claim.
type Claim struct {
	Disclosure string
	// Name is empty for array elements.
	Name  string
	Path  string
	Value interface{}
}

// BindingPayload represents holder binding payload.
type BindingPayload struct {
	Nonce    string           `json:"nonce,omitempty"`
	Audience string           `json:"aud,omitempty"`
	IssuedAt *jwt.NumericDate `json:"iat,omitempty"`
}

// BindingInfo defines holder binding payload and signer.
type BindingInfo struct {
	Payload BindingPayload
	Signer  jose.Signer
}

type keyBindingPayload struct {
	BindingPayload
	SDHash string `json:"sd_hash"`
}

// options holds options for holder.
type options struct {
	signatureVerifier jose.SignatureVerifier
	disclosedClaims   []string
	holderBinding     *BindingInfo
	random            io.Reader
}

// Opt is the holder option.
type Opt func(opts *options)

// WithSignatureVerifier option is for definition of JWT signature verifier. By default the signature is not checked.
func WithSignatureVerifier(signatureVerifier jose.SignatureVerifier) Opt {
	return func(opts *options) {
		opts.signatureVerifier = signatureVerifier
	}
}

// WithDisclosedClaims selects the claims to reveal by path, e.g. "address.street_address" or "nationalities.1".
// Disclosures of ancestors and descendants of a path are revealed with it. Without the option every
// disclosure is revealed.
func WithDisclosedClaims(paths ...string) Opt {
	return func(opts *options) {
		opts.disclosedClaims = append(opts.disclosedClaims, paths...)
	}
}

// WithHolderBinding adds a Key Binding JWT to the presentation.
func WithHolderBinding(info *BindingInfo) Opt {
	return func(opts *options) {
		opts.holderBinding = info
	}
}

// WithRandomSource sets the entropy source of the ephemeral encryption key.
func WithRandomSource(r io.Reader) Opt {
	return func(opts *options) {
		opts.random = r
	}
}

func newOptions(opts []Opt) *options {
	hOpts := &options{
		signatureVerifier: &sdjwt.NoopSignatureVerifier{},
	}

	for _, opt := range opts {
		opt(hOpts)
	}

	return hOpts
}

type parsedIssuance struct {
	token  *sdjwt.SDJwtEnc
	hash   crypto.Hash
	claims []*Claim
	keys   []string
}

// Parse decrypts the disclosures of an issued SD-JWT with the holder's Ed25519 private key, checks that each of
// them is referenced by the SD-JWT and returns the claims they disclose.
func Parse(combinedFormatForIssuance string, holderPrivKey []byte, opts ...Opt) ([]*Claim, error) {
	p, err := parse(combinedFormatForIssuance, holderPrivKey, newOptions(opts))
	if err != nil {
		return nil, err
	}

	return p.claims, nil
}

func parse(combinedFormatForIssuance string, holderPrivKey []byte, hOpts *options) (*parsedIssuance, error) {
	token, err := sdjwt.Parse(combinedFormatForIssuance, sdjwt.WithSignatureVerifier(hOpts.signatureVerifier))
	if err != nil {
		return nil, err
	}

	if token.KeyBindingJWT != "" {
		return nil, errors.New("unexpected key binding JWT supplied")
	}

	hash, err := common.GetCryptoHashFromClaims(token.Claims())
	if err != nil {
		return nil, err
	}

	encoded, err := token.DecryptDisclosures(holderPrivKey)
	if err != nil {
		return nil, err
	}

	disclosures, err := common.ParseDisclosures(encoded)
	if err != nil {
		return nil, err
	}

	result, err := common.UnpackValue(token.Claims(), disclosures, hash)
	if err != nil {
		return nil, err
	}

	claims := make([]*Claim, len(disclosures))

	for i, d := range disclosures {
		digest, err := d.Digest(hash)
		if err != nil {
			return nil, err
		}

		name, _ := d.Key()

		claims[i] = &Claim{
			Disclosure: encoded[i],
			Name:       name,
			Path:       result.Paths[digest],
			Value:      d.Value(),
		}
	}

	logger.Debugf("holder parsed SD-JWT with %d disclosures", len(claims))

	return &parsedIssuance{
		token:  token,
		hash:   hash,
		claims: claims,
		keys:   common.ListKeys(result.Value),
	}, nil
}

// CreatePresentation is a convenience method to assemble combined format for presentation: the selected
// disclosures are encrypted for the Verifier's Ed25519 public key and a Key Binding JWT is appended when
// requested.
func CreatePresentation(combinedFormatForIssuance string, holderPrivKey, recipientPubKey []byte,
	opts ...Opt) (string, error) {
	if len(recipientPubKey) == 0 {
		return "", errors.New("recipient public key is required")
	}

	hOpts := newOptions(opts)

	p, err := parse(combinedFormatForIssuance, holderPrivKey, hOpts)
	if err != nil {
		return "", err
	}

	selected, err := selectDisclosures(p, hOpts.disclosedClaims)
	if err != nil {
		return "", err
	}

	var encOpts []hybrid.Opt
	if hOpts.random != nil {
		encOpts = append(encOpts, hybrid.WithRandomSource(hOpts.random))
	}

	env, err := common.EncryptDisclosures(hybrid.NewEncrypter(encOpts...), selected, recipientPubKey)
	if err != nil {
		return "", err
	}

	presentation := &sdjwt.SDJwtEnc{
		JWT:                  p.token.JWT,
		EncryptedDisclosures: env,
	}

	if hOpts.holderBinding != nil {
		prefix, err := presentation.PresentationPrefix()
		if err != nil {
			return "", err
		}

		presentation.KeyBindingJWT, err = createKeyBindingJWT(hOpts.holderBinding, prefix, p.hash)
		if err != nil {
			return "", fmt.Errorf("failed to create holder binding: %w", err)
		}
	}

	logger.Debugf("holder presents %d of %d disclosures (key binding: %t)", len(selected), len(p.claims),
		presentation.KeyBindingJWT != "")

	return presentation.Serialize()
}

// selectDisclosures keeps the disclosures on the paths to, or below, the requested claims in their original order.
func selectDisclosures(p *parsedIssuance, paths []string) ([]string, error) {
	selected := make([]string, 0, len(p.claims))

	if len(paths) == 0 {
		for _, c := range p.claims {
			selected = append(selected, c.Disclosure)
		}

		return selected, nil
	}

	for _, path := range paths {
		if !slices.Contains(p.keys, path) && !slices.ContainsFunc(p.claims, func(c *Claim) bool {
			return c.Path == path
		}) {
			return nil, fmt.Errorf("claim '%s' is not found in SD-JWT", path)
		}
	}

	for _, c := range p.claims {
		if slices.ContainsFunc(paths, func(path string) bool { return onSamePath(c.Path, path) }) {
			selected = append(selected, c.Disclosure)
		}
	}

	return selected, nil
}

// onSamePath reports whether one path equals, or is an ancestor of, the other.
func onSamePath(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}

	return a == b || strings.HasPrefix(b, a+common.PathSeparator)
}

func createKeyBindingJWT(info *BindingInfo, presentationPrefix string, hash crypto.Hash) (string, error) {
	if info.Signer == nil {
		return "", errors.New("holder binding signer is not defined")
	}

	sdHash, err := common.GetHash(hash, presentationPrefix)
	if err != nil {
		return "", err
	}

	headers := jose.Headers{
		jose.HeaderType: afgjwt.TypeKeyBindingJWT,
	}

	kbJWT, err := afgjwt.NewSigned(&keyBindingPayload{
		BindingPayload: info.Payload,
		SDHash:         sdHash,
	}, headers, info.Signer)
	if err != nil {
		return "", err
	}

	return kbJWT.Serialize()
}
