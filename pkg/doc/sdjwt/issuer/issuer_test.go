/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"bytes"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jose"
	afjwt "github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/common"
	mockjose "github.com/sd-jwt-enc/sdjwt-enc-go/pkg/internal/gomocks/doc/jose"
)

const (
	issuer     = "https://example.com/issuer"
	sampleSalt = "3jqcb67z9wks08zwiK7EyQ"
)

func sampleClaims() map[string]interface{} {
	return map[string]interface{}{
		"given_name": "Albert",
		"last_name":  "Smith",
		"address": map[string]interface{}{
			"street_address": "123 Main St",
			"country":        "US",
		},
		"nationalities": []interface{}{"US", "DE"},
	}
}

func sampleFrame() *common.Frame {
	return &common.Frame{
		SD: []string{"given_name", "last_name"},
		Fields: map[string]*common.Frame{
			"address":       {SD: []string{"street_address"}},
			"nationalities": {SD: []string{"1"}},
		},
	}
}

func TestNew(t *testing.T) {
	r := require.New(t)

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	r.NoError(err)

	signer, err := afjwt.NewEd25519Signer(privKey, nil)
	r.NoError(err)

	verifier, err := afjwt.NewEd25519Verifier(pubKey)
	r.NoError(err)

	t.Run("Create SD-JWT without frame", func(t *testing.T) {
		token, err := New(issuer, sampleClaims(), nil, signer)
		r.NoError(err)
		r.Empty(token.Disclosures)
		r.Nil(token.EncryptedDisclosures)

		var claims map[string]interface{}
		r.NoError(token.DecodeClaims(&claims))
		r.Equal("Albert", claims["given_name"])
		r.Equal("sha-256", claims[common.SDAlgorithmKey])
		r.NotContains(claims, common.SDKey)
	})

	t.Run("Create SD-JWT with frame", func(t *testing.T) {
		token, err := New(issuer, sampleClaims(), sampleFrame(), signer,
			WithSaltFnc(func(int) (string, error) { return sampleSalt, nil }))
		r.NoError(err)

		// address and nationalities children come first, in key order, then the top-level members.
		r.Len(token.Disclosures, 4)

		keys := make([]string, 0, len(token.Disclosures))

		for _, encoded := range token.Disclosures {
			d, err := common.ParseDisclosure(encoded)
			r.NoError(err)

			key, _ := d.Key()
			keys = append(keys, key)
		}

		r.Equal([]string{"street_address", "", "given_name", "last_name"}, keys)

		combined, err := token.Serialize()
		r.NoError(err)
		r.True(strings.HasSuffix(combined, ".."))

		parsed, err := sdjwt.Parse(combined, sdjwt.WithSignatureVerifier(verifier))
		r.NoError(err)
		r.Nil(parsed.EncryptedDisclosures)

		claims := parsed.Claims()
		r.Equal(issuer, claims["iss"])
		r.Len(claims[common.SDKey], 2)
		r.NotContains(claims, "given_name")
		r.NotContains(claims, "last_name")

		address, ok := claims["address"].(map[string]interface{})
		r.True(ok)
		r.Equal("US", address["country"])
		r.Len(address[common.SDKey], 1)

		nationalities, ok := claims["nationalities"].([]interface{})
		r.True(ok)
		r.Len(nationalities, 2)
		r.Equal("US", nationalities[0])
		r.Contains(nationalities[1], common.ArrayElementDigestKey)

		unpacked, err := common.Unpack(claims, token.Disclosures, crypto.SHA256)
		r.NoError(err)

		expected := sampleClaims()
		expected["iss"] = issuer
		r.Equal(expected, unpacked)
	})

	t.Run("Create SD-JWT with registered claims and holder key", func(t *testing.T) {
		holderPubKey, _, err := ed25519.GenerateKey(rand.Reader)
		r.NoError(err)

		now := time.Now()

		token, err := New(issuer, sampleClaims(), sampleFrame(), signer,
			WithSubject("user-42"),
			WithAudience("https://example.com/verifier"),
			WithJTI("jti-1"),
			WithIssuedAt(jwt.NewNumericDate(now)),
			WithNotBefore(jwt.NewNumericDate(now)),
			WithExpiry(jwt.NewNumericDate(now.Add(time.Hour))),
			WithHolderPublicKey(&gojose.JSONWebKey{Key: holderPubKey}),
			WithHashAlgorithm(crypto.SHA512),
			WithHeaders(jose.Headers{jose.HeaderType: "vc+sd-jwt", jose.HeaderKeyID: "issuer-key-1"}))
		r.NoError(err)

		r.Equal("vc+sd-jwt", token.LookupStringHeader(jose.HeaderType))
		r.Equal("issuer-key-1", token.LookupStringHeader(jose.HeaderKeyID))
		r.Equal(jose.AlgorithmEdDSA, token.LookupStringHeader(jose.HeaderAlgorithm))

		claims := token.SignedJWT.Payload
		r.Equal("user-42", claims["sub"])
		r.Equal("https://example.com/verifier", claims["aud"])
		r.Equal("jti-1", claims["jti"])
		r.Equal("sha-512", claims[common.SDAlgorithmKey])
		r.Contains(claims, "iat")
		r.Contains(claims, "nbf")
		r.Contains(claims, "exp")

		holderKey, err := common.GetHolderPublicKey(claims)
		r.NoError(err)
		r.Equal(ed25519.PublicKey(holderPubKey), holderKey)

		unpacked, err := common.Unpack(claims, token.Disclosures, crypto.SHA512)
		r.NoError(err)
		r.Equal("Albert", unpacked["given_name"])
	})

	t.Run("Create SD-JWT with encrypted disclosures", func(t *testing.T) {
		recipientPubKey, recipientPrivKey, err := ed25519.GenerateKey(rand.Reader)
		r.NoError(err)

		token, err := New(issuer, sampleClaims(), sampleFrame(), signer,
			WithRecipientPublicKey(recipientPubKey))
		r.NoError(err)
		r.NotNil(token.EncryptedDisclosures)

		combined, err := token.Serialize()
		r.NoError(err)

		segments := strings.Split(combined, ".")
		r.Len(segments, 5)
		r.NotEmpty(segments[3])
		r.Empty(segments[4])

		parsed, err := sdjwt.Parse(combined, sdjwt.WithSignatureVerifier(verifier))
		r.NoError(err)

		disclosures, err := parsed.DecryptDisclosures(recipientPrivKey)
		r.NoError(err)
		r.Equal(token.Disclosures, disclosures)

		_, otherPrivKey, err := ed25519.GenerateKey(rand.Reader)
		r.NoError(err)

		_, err = parsed.DecryptDisclosures(otherPrivKey)
		r.Error(err)
	})

	t.Run("Create SD-JWT and encrypt later", func(t *testing.T) {
		recipientPubKey, recipientPrivKey, err := ed25519.GenerateKey(rand.Reader)
		r.NoError(err)

		token, err := New(issuer, sampleClaims(), sampleFrame(), signer)
		r.NoError(err)
		r.Nil(token.EncryptedDisclosures)

		r.NoError(token.EncryptFor(recipientPubKey))
		r.NotNil(token.EncryptedDisclosures)

		disclosures, err := common.DecryptDisclosures(token.EncryptedDisclosures, recipientPrivKey)
		r.NoError(err)
		r.Equal(token.Disclosures, disclosures)
	})

	t.Run("Create SD-JWT with struct claims", func(t *testing.T) {
		type address struct {
			Street  string `json:"street_address"`
			Country string `json:"country"`
		}

		claims := struct {
			Name    string  `json:"name"`
			Address address `json:"address"`
		}{
			Name:    "Albert",
			Address: address{Street: "123 Main St", Country: "US"},
		}

		token, err := New(issuer, claims, &common.Frame{
			Fields: map[string]*common.Frame{"address": {SD: []string{"country"}}},
		}, signer)
		r.NoError(err)
		r.Len(token.Disclosures, 1)
		r.Equal("Albert", token.SignedJWT.Payload["name"])
	})

	t.Run("Create SD-JWT with lenient frame", func(t *testing.T) {
		frame := &common.Frame{SD: []string{"given_name", "unknown"}}

		_, err := New(issuer, sampleClaims(), frame, signer)
		r.Error(err)

		var mismatchErr *common.FrameMismatchError
		r.True(errors.As(err, &mismatchErr))
		r.Equal([]string{"unknown"}, mismatchErr.Paths)

		token, err := New(issuer, sampleClaims(), frame, signer, WithLenientFrame())
		r.NoError(err)
		r.Len(token.Disclosures, 1)
	})

	t.Run("Create SD-JWT with random source", func(t *testing.T) {
		frame := &common.Frame{SD: []string{"given_name"}}

		token1, err := New(issuer, sampleClaims(), frame, signer,
			WithRandomSource(bytes.NewReader(bytes.Repeat([]byte{1}, 64))))
		r.NoError(err)

		token2, err := New(issuer, sampleClaims(), frame, signer,
			WithRandomSource(bytes.NewReader(bytes.Repeat([]byte{1}, 64))))
		r.NoError(err)

		r.Equal(token1.Disclosures, token2.Disclosures)
	})
}

func TestNewErrors(t *testing.T) {
	r := require.New(t)

	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	r.NoError(err)

	signer, err := afjwt.NewEd25519Signer(privKey, nil)
	r.NoError(err)

	t.Run("error - claims contain _sd key (top level object)", func(t *testing.T) {
		claims := sampleClaims()
		claims[common.SDKey] = "whatever"

		token, err := New(issuer, claims, nil, signer)
		r.Error(err)
		r.Nil(token)
		r.Contains(err.Error(), "key '_sd' cannot be present in the claims")
	})

	t.Run("error - claims contain _sd key (inner object)", func(t *testing.T) {
		claims := sampleClaims()
		claims["address"].(map[string]interface{})[common.SDKey] = "whatever"

		_, err := New(issuer, claims, nil, signer)
		r.Error(err)
		r.Contains(err.Error(), "key '_sd' cannot be present in the claims")
	})

	t.Run("error - claims contain _sd key (object inside array)", func(t *testing.T) {
		claims := sampleClaims()
		claims["degrees"] = []interface{}{
			map[string]interface{}{"type": "Bachelor"},
			[]interface{}{map[string]interface{}{common.SDKey: []interface{}{"digest"}}},
		}

		_, err := New(issuer, claims, nil, signer)
		r.Error(err)
		r.Contains(err.Error(), "key '_sd' cannot be present in the claims")
	})

	t.Run("error - typed slice of objects with _sd", func(t *testing.T) {
		_, err := New(issuer, map[string]interface{}{
			"list": []map[string]interface{}{{common.SDKey: "whatever"}},
		}, nil, signer)
		r.Error(err)
		r.Contains(err.Error(), "key '_sd' cannot be present in the claims")
	})

	t.Run("error - claims contain _sd_alg", func(t *testing.T) {
		claims := sampleClaims()
		claims[common.SDAlgorithmKey] = "sha-256"

		_, err := New(issuer, claims, nil, signer)
		r.EqualError(err, "claim '_sd_alg' is set both in claims and in SD-JWT options")
	})

	t.Run("error - registered claim set twice", func(t *testing.T) {
		claims := sampleClaims()
		claims["sub"] = "user-1"

		_, err := New(issuer, claims, nil, signer, WithSubject("user-2"))
		r.EqualError(err, "claim 'sub' is set both in claims and in SD-JWT options")
	})

	t.Run("error - claims are not an object", func(t *testing.T) {
		_, err := New(issuer, []string{"a"}, nil, signer)
		r.Error(err)
		r.Contains(err.Error(), "convert payload to map")
	})

	t.Run("error - unsupported holder key", func(t *testing.T) {
		_, err := New(issuer, sampleClaims(), nil, signer,
			WithHolderPublicKey(&gojose.JSONWebKey{Key: []byte("secret")}))
		r.Error(err)
		r.Contains(err.Error(), "holder key")
	})

	t.Run("error - hash not available", func(t *testing.T) {
		_, err := New(issuer, sampleClaims(), sampleFrame(), signer, WithHashAlgorithm(0))
		r.Error(err)
		r.Contains(err.Error(), "hash function not available")
	})

	t.Run("error - salt generator", func(t *testing.T) {
		_, err := New(issuer, sampleClaims(), sampleFrame(), signer,
			WithSaltFnc(func(int) (string, error) { return "", errors.New("salt error") }))
		r.EqualError(err, "salt error")
	})

	t.Run("error - invalid recipient key", func(t *testing.T) {
		_, err := New(issuer, sampleClaims(), sampleFrame(), signer,
			WithRecipientPublicKey([]byte("short")))
		r.Error(err)
	})

	t.Run("error - signer", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockSigner := mockjose.NewMockSigner(ctrl)
		mockSigner.EXPECT().Headers().Return(jose.Headers{jose.HeaderAlgorithm: jose.AlgorithmEdDSA}).AnyTimes()
		mockSigner.EXPECT().Sign(gomock.Any()).Return(nil, errors.New("sign error"))

		_, err := New(issuer, sampleClaims(), sampleFrame(), mockSigner)
		r.Error(err)
		r.Contains(err.Error(), "failed to create SD-JWT from payload")
		r.Contains(err.Error(), "sign error")
	})

	t.Run("error - serialize without signed JWT", func(t *testing.T) {
		token := &SelectiveDisclosureJWT{}

		_, err := token.Serialize()
		r.EqualError(err, "JWS serialization is supported only")
	})
}
