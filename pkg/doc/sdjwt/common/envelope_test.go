/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/crypto/hybrid"
)

func TestEncryptedDisclosuresRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	disclosures, err := EncodeDisclosures([]*Disclosure{
		NewObjectDisclosure("s1", "given_name", "John"),
		NewArrayDisclosure("s2", "DE"),
	})
	require.NoError(t, err)

	env, err := EncryptDisclosures(hybrid.NewEncrypter(), disclosures, pub)
	require.NoError(t, err)

	segment, err := EncodeEncryptedDisclosures(env)
	require.NoError(t, err)
	require.NotContains(t, segment, ".")
	require.NotContains(t, segment, "~")

	decoded, err := DecodeEncryptedDisclosures(segment)
	require.NoError(t, err)
	require.Equal(t, env, decoded)

	decrypted, err := DecryptDisclosures(decoded, priv)
	require.NoError(t, err)
	require.Equal(t, disclosures, decrypted)

	t.Run("no disclosures", func(t *testing.T) {
		env, err := EncryptDisclosures(hybrid.NewEncrypter(), nil, pub)
		require.NoError(t, err)

		decrypted, err := DecryptDisclosures(env, priv)
		require.NoError(t, err)
		require.Empty(t, decrypted)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		_, err = DecryptDisclosures(decoded, otherPriv)
		require.Error(t, err)

		var decryptionErr *hybrid.DecryptionError
		require.True(t, errors.As(err, &decryptionErr))
	})
}

func TestDecodeEncryptedDisclosuresLenientBase64(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	disclosures, err := EncodeDisclosures([]*Disclosure{NewObjectDisclosure("s1", "given_name", "John")})
	require.NoError(t, err)

	env, err := EncryptDisclosures(hybrid.NewEncrypter(), disclosures, pub)
	require.NoError(t, err)

	envJSON, err := json.Marshal(env)
	require.NoError(t, err)

	// trailing whitespace keeps the JSON valid and makes the padded forms end in "=="
	for len(envJSON)%3 != 1 {
		envJSON = append(envJSON, ' ')
	}

	encodings := map[string]*base64.Encoding{
		"standard padded":   base64.StdEncoding,
		"standard unpadded": base64.RawStdEncoding,
		"url-safe padded":   base64.URLEncoding,
		"url-safe unpadded": base64.RawURLEncoding,
	}

	for name, enc := range encodings {
		enc := enc

		t.Run(name, func(t *testing.T) {
			decoded, err := DecodeEncryptedDisclosures(enc.EncodeToString(envJSON))
			require.NoError(t, err)
			require.Equal(t, env, decoded)

			decrypted, err := DecryptDisclosures(decoded, priv)
			require.NoError(t, err)
			require.Equal(t, disclosures, decrypted)
		})
	}
}

func TestEncodeDecodeEncryptedDisclosuresEmpty(t *testing.T) {
	segment, err := EncodeEncryptedDisclosures(nil)
	require.NoError(t, err)
	require.Empty(t, segment)

	env, err := DecodeEncryptedDisclosures("")
	require.NoError(t, err)
	require.Nil(t, env)
}

func TestDecodeEncryptedDisclosuresErrors(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		errMsg  string
	}{
		{name: "not base64url", segment: "!!", errMsg: "decode encrypted disclosures"},
		{name: "not JSON", segment: base64.RawURLEncoding.EncodeToString([]byte("x")), errMsg: "unmarshal"},
		{
			name:    "missing iv",
			segment: base64.RawURLEncoding.EncodeToString([]byte(`{"ciphertext":"YQ","ephemeralPubKey":"YQ"}`)),
			errMsg:  "must carry ciphertext, iv and ephemeralPubKey",
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEncryptedDisclosures(tc.segment)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errMsg)

			var structureErr *StructureError
			require.True(t, errors.As(err, &structureErr))
		})
	}
}

func TestDisclosuresFromPayload(t *testing.T) {
	member := NewObjectDisclosure("s1", "a", "b")
	element := NewArrayDisclosure("s2", "c")

	memberEncoded, err := member.Encode()
	require.NoError(t, err)

	elementEncoded, err := element.Encode()
	require.NoError(t, err)

	disclosures, err := DisclosuresFromPayload([]interface{}{
		memberEncoded,
		map[string]interface{}{"salt": "s1", "key": "a", "value": "b"},
		map[string]interface{}{"salt": "s2", "value": "c"},
		map[string]interface{}{"salt": "ignored", "key": "a", "value": "b", "_encoded": elementEncoded},
	})
	require.NoError(t, err)
	require.Equal(t, []string{memberEncoded, memberEncoded, elementEncoded, elementEncoded}, disclosures)

	_, err = DisclosuresFromPayload(map[string]interface{}{})
	require.EqualError(t, err, "invalid structure: disclosure payload type[map[string]interface {}] must be an array")

	_, err = DisclosuresFromPayload([]interface{}{1.0})
	require.Error(t, err)
	require.Contains(t, err.Error(), "entry 0 type[float64] is not supported")

	_, err = DisclosuresFromPayload([]interface{}{map[string]interface{}{"key": "a"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "salt type[<nil>] must be string")

	_, err = DisclosuresFromPayload([]interface{}{map[string]interface{}{"salt": "s", "key": 1.0}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "key type[float64] must be string")
}
