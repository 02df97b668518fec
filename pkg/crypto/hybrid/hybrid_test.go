/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package hybrid

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/crypto/keyconv"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/util/codec"
	spilog "github.com/sd-jwt-enc/sdjwt-enc-go/spi/log"
)

func TestEncryptDecrypt(t *testing.T) {
	r := require.New(t)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	r.NoError(err)

	payload := []interface{}{
		"WyJzYWx0IiwiYSIsMV0",
		map[string]interface{}{"key": "value", "n": json.Number("42")},
	}

	t.Run("success - round trip", func(t *testing.T) {
		env, err := Encrypt(payload, pub)
		require.NoError(t, err)

		require.Equal(t, AlgX25519AESGCM, env.Alg)
		require.Equal(t, EncAESGCM, env.Enc)

		iv, err := codec.DecodeBase64(env.IV)
		require.NoError(t, err)
		require.Len(t, iv, 12)

		ephemeral, err := codec.DecodeBase64(env.EphemeralPubKey)
		require.NoError(t, err)
		require.Len(t, ephemeral, 32)
		require.NotContains(t, env.EphemeralPubKey, "=")

		decrypted, err := Decrypt(env, priv)
		require.NoError(t, err)
		require.Equal(t, payload, decrypted)
	})

	t.Run("success - seed form of private key", func(t *testing.T) {
		env, err := Encrypt(payload, pub)
		require.NoError(t, err)

		decrypted, err := Decrypt(env, priv.Seed())
		require.NoError(t, err)
		require.Equal(t, payload, decrypted)
	})

	t.Run("success - decrypt into typed value", func(t *testing.T) {
		env, err := Encrypt([]string{"a", "b"}, pub)
		require.NoError(t, err)

		var out []string
		require.NoError(t, NewDecrypter().DecryptTo(env, priv, &out))
		require.Equal(t, []string{"a", "b"}, out)
	})

	t.Run("success - url safe and unpadded base64 accepted", func(t *testing.T) {
		env, err := Encrypt(payload, pub)
		require.NoError(t, err)

		toURL := strings.NewReplacer("+", "-", "/", "_")
		env.Ciphertext = strings.TrimRight(toURL.Replace(env.Ciphertext), "=")
		env.IV = toURL.Replace(env.IV)
		env.EphemeralPubKey = codec.EncodeBase64(mustDecode(t, env.EphemeralPubKey))

		decrypted, err := Decrypt(env, priv)
		require.NoError(t, err)
		require.Equal(t, payload, decrypted)
	})

	t.Run("success - every envelope is fresh", func(t *testing.T) {
		env1, err := Encrypt(payload, pub)
		require.NoError(t, err)

		env2, err := Encrypt(payload, pub)
		require.NoError(t, err)

		require.NotEqual(t, env1.EphemeralPubKey, env2.EphemeralPubKey)
		require.NotEqual(t, env1.IV, env2.IV)
		require.NotEqual(t, env1.Ciphertext, env2.Ciphertext)
	})

	t.Run("error - wrong private key", func(t *testing.T) {
		env, err := Encrypt(payload, pub)
		require.NoError(t, err)

		_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		_, err = Decrypt(env, otherPriv)
		requireDecryptionError(t, err)
	})

	t.Run("error - tampered ciphertext", func(t *testing.T) {
		env, err := Encrypt(payload, pub)
		require.NoError(t, err)

		ct := mustDecode(t, env.Ciphertext)
		ct[0] ^= 0x01
		env.Ciphertext = codec.EncodeBase64(ct)

		_, err = Decrypt(env, priv)
		requireDecryptionError(t, err)
	})

	t.Run("error - tampered iv", func(t *testing.T) {
		env, err := Encrypt(payload, pub)
		require.NoError(t, err)

		iv := mustDecode(t, env.IV)
		iv[11] ^= 0x80
		env.IV = codec.EncodeBase64(iv)

		_, err = Decrypt(env, priv)
		requireDecryptionError(t, err)
	})

	t.Run("error - malformed envelopes", func(t *testing.T) {
		valid, err := Encrypt(payload, pub)
		require.NoError(t, err)

		mutations := map[string]func(e *EncryptedEnvelope){
			"unsupported alg":   func(e *EncryptedEnvelope) { e.Alg = "ECDH-ES" },
			"unsupported enc":   func(e *EncryptedEnvelope) { e.Enc = "A256CBC-HS512" },
			"bad iv":            func(e *EncryptedEnvelope) { e.IV = "***" },
			"short iv":          func(e *EncryptedEnvelope) { e.IV = codec.EncodeBase64([]byte{1, 2, 3}) },
			"bad ciphertext":    func(e *EncryptedEnvelope) { e.Ciphertext = "***" },
			"bad ephemeral key": func(e *EncryptedEnvelope) { e.EphemeralPubKey = "***" },
			"low order ephemeral key": func(e *EncryptedEnvelope) {
				e.EphemeralPubKey = codec.EncodeBase64URL(make([]byte, 32))
			},
		}

		for name, mutate := range mutations {
			mutate := mutate

			t.Run(name, func(t *testing.T) {
				env := *valid
				mutate(&env)

				_, err := Decrypt(&env, priv)
				requireDecryptionError(t, err)
			})
		}

		_, err = Decrypt(nil, priv)
		requireDecryptionError(t, err)

		_, err = Decrypt(valid, priv[:10])
		requireDecryptionError(t, err)

		var kfErr *keyconv.KeyFormatError
		require.True(t, errors.As(err, &kfErr))
	})

	t.Run("error - invalid recipient public key", func(t *testing.T) {
		_, err := Encrypt(payload, pub[:16])
		require.Error(t, err)

		var encErr *EncryptionError
		require.True(t, errors.As(err, &encErr))

		var kfErr *keyconv.KeyFormatError
		require.True(t, errors.As(err, &kfErr))
	})

	t.Run("error - payload cannot be serialized", func(t *testing.T) {
		_, err := Encrypt(map[string]interface{}{"ch": make(chan int)}, pub)

		var encErr *EncryptionError
		require.True(t, errors.As(err, &encErr))
		require.Contains(t, err.Error(), "serialize payload")
	})

	t.Run("error - random source fails", func(t *testing.T) {
		_, err := NewEncrypter(WithRandomSource(bytes.NewReader([]byte{1, 2}))).Encrypt(payload, pub)

		var encErr *EncryptionError
		require.True(t, errors.As(err, &encErr))
		require.Contains(t, err.Error(), "generate ephemeral key")
	})
}

func TestInjectedRandomSource(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	scalar := bytes.Repeat([]byte{7}, 32)

	env1, err := NewEncrypter(WithRandomSource(bytes.NewReader(scalar))).Encrypt("x", pub)
	require.NoError(t, err)

	env2, err := NewEncrypter(WithRandomSource(bytes.NewReader(scalar))).Encrypt("x", pub)
	require.NoError(t, err)

	require.Equal(t, env1.EphemeralPubKey, env2.EphemeralPubKey)
	// IVs still come from the CSPRNG.
	require.NotEqual(t, env1.IV, env2.IV)

	out, err := Decrypt(env2, priv)
	require.NoError(t, err)
	require.Equal(t, "x", out)
}

func TestSecretsAreNotLogged(t *testing.T) {
	const module = "sdjwt-enc/crypto/hybrid"

	var buf bytes.Buffer

	log.SetOutput(&buf)
	log.SetLevel(module, spilog.DEBUG)

	defer func() {
		log.SetLevel(module, spilog.INFO)
		log.SetOutput(&bytes.Buffer{})
	}()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	scalar := bytes.Repeat([]byte{9}, 32)

	env, err := NewEncrypter(WithRandomSource(bytes.NewReader(scalar))).Encrypt([]string{"secret-claim"}, pub)
	require.NoError(t, err)

	_, err = Decrypt(env, priv)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "sealed")
	require.Contains(t, out, "opened")

	for _, secret := range [][]byte{scalar, priv, priv.Seed()} {
		require.NotContains(t, out, codec.EncodeHex(secret))
		require.NotContains(t, out, codec.EncodeBase64(secret))
		require.NotContains(t, out, codec.EncodeBase64URL(secret))
	}

	require.NotContains(t, out, "secret-claim")
}

func TestConcurrentUse(t *testing.T) {
	const workers = 16

	enc := NewEncrypter()
	dec := NewDecrypter()

	var wg sync.WaitGroup

	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				errs <- err
				return
			}

			env, err := enc.Encrypt([]interface{}{json.Number("1"), "v"}, pub)
			if err != nil {
				errs <- err
				return
			}

			out, err := dec.Decrypt(env, priv)
			if err != nil {
				errs <- err
				return
			}

			if len(out.([]interface{})) != 2 {
				errs <- errors.New("unexpected payload")
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func requireDecryptionError(t *testing.T, err error) {
	t.Helper()

	require.Error(t, err)

	var decErr *DecryptionError
	require.True(t, errors.As(err, &decErr), "expected DecryptionError, got %T: %v", err, err)
}

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()

	b, err := codec.DecodeBase64(s)
	require.NoError(t, err)

	return b
}
