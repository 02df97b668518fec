/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jose"
	josemocks "github.com/sd-jwt-enc/sdjwt-enc-go/pkg/internal/gomocks/doc/jose"
)

type CustomClaim struct {
	*jwt.Claims

	PrivateClaim1 string `json:"privateClaim1,omitempty"`
}

func TestNewSigned(t *testing.T) {
	issued := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)

	claims := &CustomClaim{
		Claims: &jwt.Claims{
			Issuer:   "iss",
			Subject:  "sub",
			Audience: []string{"aud"},
			Expiry:   jwt.NewNumericDate(expiry),
			IssuedAt: jwt.NewNumericDate(issued),
			ID:       "id",
		},
		PrivateClaim1: "private claim",
	}

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := NewEd25519Signer(privKey, jose.Headers{jose.HeaderType: TypeSDJWT, jose.HeaderKeyID: "k1"})
	require.NoError(t, err)

	t.Run("sign and parse with EdDSA", func(t *testing.T) {
		r := require.New(t)

		token, err := NewSigned(claims, nil, signer)
		r.NoError(err)
		r.Equal(TypeSDJWT, token.Headers[jose.HeaderType])
		r.Equal(jose.AlgorithmEdDSA, token.Headers[jose.HeaderAlgorithm])

		serialized, err := token.Serialize()
		r.NoError(err)

		verifier, err := NewEd25519Verifier(pubKey)
		r.NoError(err)

		parsed, err := Parse(serialized, WithSignatureVerifier(verifier))
		r.NoError(err)

		kid, ok := parsed.Headers.KeyID()
		r.True(ok)
		r.Equal("k1", kid)

		r.Equal("iss", parsed.Payload["iss"])
		r.Equal("private claim", parsed.Payload["privateClaim1"])
		r.Equal(json.Number("1577836800"), parsed.Payload["iat"])

		reserialized, err := parsed.Serialize()
		r.NoError(err)
		r.Equal(serialized, reserialized)
	})

	t.Run("seed private key", func(t *testing.T) {
		seedSigner, err := NewEd25519Signer(privKey.Seed(), nil)
		require.NoError(t, err)

		token, err := NewSigned(map[string]interface{}{"iss": "x"}, nil, seedSigner)
		require.NoError(t, err)

		serialized, err := token.Serialize()
		require.NoError(t, err)

		verifier, err := NewEd25519Verifier(pubKey)
		require.NoError(t, err)

		_, err = Parse(serialized, WithSignatureVerifier(verifier))
		require.NoError(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		token, err := NewSigned(claims, nil, signer)
		require.NoError(t, err)

		serialized, err := token.Serialize()
		require.NoError(t, err)

		otherPub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		verifier, err := NewEd25519Verifier(otherPub)
		require.NoError(t, err)

		_, err = Parse(serialized, WithSignatureVerifier(verifier))
		require.Error(t, err)
		require.Contains(t, err.Error(), "signature doesn't match")
	})

	t.Run("bad key sizes", func(t *testing.T) {
		_, err := NewEd25519Signer([]byte("short"), nil)
		require.EqualError(t, err, "bad ed25519 private key length")

		_, err = NewEd25519Verifier([]byte("short"))
		require.EqualError(t, err, "bad ed25519 public key length")
	})

	t.Run("unmarshallable claims", func(t *testing.T) {
		_, err := NewSigned(func() {}, nil, signer)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unmarshallable claims")
	})

	t.Run("signer error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockSigner := josemocks.NewMockSigner(ctrl)
		mockSigner.EXPECT().Headers().Return(jose.Headers{jose.HeaderAlgorithm: jose.AlgorithmEdDSA}).AnyTimes()
		mockSigner.EXPECT().Sign(gomock.Any()).Return(nil, errors.New("signer error"))

		_, err := NewSigned(claims, nil, mockSigner)
		require.Error(t, err)
		require.Contains(t, err.Error(), "create JWS: sign JWS verification data: signer error")
	})
}

func TestParse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	acceptAll := josemocks.NewMockSignatureVerifier(ctrl)
	acceptAll.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	compact := func(headers, payload string) string {
		return base64.RawURLEncoding.EncodeToString([]byte(headers)) + "." +
			base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".c2ln"
	}

	t.Run("not compact", func(t *testing.T) {
		_, err := Parse("a.b", WithSignatureVerifier(acceptAll))
		require.EqualError(t, err, "JWT of compacted JWS form is supported only")
	})

	t.Run("missing verifier", func(t *testing.T) {
		_, err := Parse(compact(`{"alg":"EdDSA"}`, `{}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "signature verifier is not defined")
	})

	t.Run("verifier error", func(t *testing.T) {
		rejectAll := josemocks.NewMockSignatureVerifier(ctrl)
		rejectAll.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("rejected"))

		_, err := Parse(compact(`{"alg":"EdDSA"}`, `{}`), WithSignatureVerifier(rejectAll))
		require.EqualError(t, err, "parse JWT from compact JWS: rejected")
	})

	tests := []struct {
		name    string
		headers string
		payload string
		errMsg  string
	}{
		{name: "invalid typ", headers: `{"alg":"EdDSA","typ":"TXT"}`, payload: `{}`, errMsg: "typ is not JWT"},
		{name: "invalid explicit typ", headers: `{"alg":"EdDSA","typ":"kb+txt"}`, payload: `{}`, errMsg: "invalid typ header"},
		{name: "typ not a string", headers: `{"alg":"EdDSA","typ":1}`, payload: `{}`, errMsg: "invalid typ header format"},
		{name: "nested JWT", headers: `{"alg":"EdDSA","cty":"JWT"}`, payload: `{}`, errMsg: "nested JWT is not supported"},
		{name: "payload not an object", headers: `{"alg":"EdDSA"}`, payload: `[]`, errMsg: "read JWT claims"},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(compact(tc.headers, tc.payload), WithSignatureVerifier(acceptAll))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errMsg)
		})
	}

	for _, typ := range []string{TypeJWT, TypeSDJWT, TypeKeyBindingJWT, "vc+sd-jwt"} {
		_, err := Parse(compact(`{"alg":"EdDSA","typ":"`+typ+`"}`, `{}`), WithSignatureVerifier(acceptAll))
		require.NoError(t, err, typ)
	}
}

func TestJSONWebToken_Serialize(t *testing.T) {
	_, err := (&JSONWebToken{}).Serialize()
	require.EqualError(t, err, "JWS serialization is supported only")
}

func TestNewSigned_NumericClaims(t *testing.T) {
	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := NewEd25519Signer(privKey, nil)
	require.NoError(t, err)

	claims, err := PayloadToMap(`{"n":20,"f":1.5,"nested":{"big":12345678901234567890}}`)
	require.NoError(t, err)

	token, err := NewSigned(claims, nil, signer)
	require.NoError(t, err)

	serialized, err := token.Serialize()
	require.NoError(t, err)

	payload, err := base64.RawURLEncoding.DecodeString(strings.Split(serialized, ".")[1])
	require.NoError(t, err)
	require.JSONEq(t, `{"n":20,"f":1.5,"nested":{"big":12345678901234567890}}`, string(payload))
}

func TestPayloadToMap(t *testing.T) {
	m := map[string]interface{}{"a": "b"}

	got, err := PayloadToMap(m)
	require.NoError(t, err)
	require.Equal(t, m, got)

	got, err = PayloadToMap([]byte(`{"n":1.5}`))
	require.NoError(t, err)
	require.Equal(t, json.Number("1.5"), got["n"])

	got, err = PayloadToMap(`{"s":"t"}`)
	require.NoError(t, err)
	require.Equal(t, "t", got["s"])

	got, err = PayloadToMap(&jwt.Claims{Issuer: "x"})
	require.NoError(t, err)
	require.Equal(t, "x", got["iss"])

	_, err = PayloadToMap(make(chan int))
	require.Error(t, err)
	require.Contains(t, err.Error(), "marshal interface[chan int]")

	_, err = PayloadToMap("not JSON")
	require.Error(t, err)
	require.Contains(t, err.Error(), "convert to map")
}

func TestVerifyEdDSA(t *testing.T) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	msg := []byte("message")
	sig := ed25519.Sign(privKey, msg)

	require.NoError(t, VerifyEdDSA(pubKey, msg, sig))
	require.NoError(t, VerifyEdDSA([]byte(pubKey), msg, sig))
	require.EqualError(t, VerifyEdDSA("key", msg, sig), "not []byte or ed25519.PublicKey public key")
	require.EqualError(t, VerifyEdDSA([]byte("short"), msg, sig), "bad ed25519 public key length")
	require.EqualError(t, VerifyEdDSA(pubKey, []byte("other"), sig), "signature doesn't match")

	v, err := NewEd25519Verifier(pubKey)
	require.NoError(t, err)

	require.EqualError(t, v.Verify(jose.Headers{}, nil, msg, sig), "alg is not defined")
	require.EqualError(t, v.Verify(jose.Headers{"alg": "RS256"}, nil, msg, sig), "alg is not EdDSA")
}
