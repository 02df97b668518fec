/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package hybrid encrypts JSON payloads for the holder of an Ed25519 key.
//
// Each call generates an ephemeral X25519 key, agrees on a shared secret with the recipient's key
// (converted from Ed25519), expands it with HKDF-SHA256 into an AES-256 key and seals the canonical
// JSON form of the payload with AES-GCM under a fresh 12-byte IV.
package hybrid

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/tink/go/aead/subtle"
	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/crypto/keyconv"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/util/codec"
)

const (
	// KDFInfo is the HKDF info string binding derived keys to disclosure encryption.
	KDFInfo = "sd-jwt-disclosure"
	// ContentKeySize is the AES key size in bytes.
	ContentKeySize = 32
)

var logger = log.New("sdjwt-enc/crypto/hybrid")

type options struct {
	rand io.Reader
}

// Opt configures an Encrypter or a Decrypter.
type Opt func(*options)

// WithRandomSource sets the entropy source for ephemeral keys. Defaults to crypto/rand.Reader.
func WithRandomSource(r io.Reader) Opt {
	return func(o *options) {
		o.rand = r
	}
}

func newOptions(opts []Opt) *options {
	o := &options{rand: rand.Reader}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Encrypter seals payloads for Ed25519 recipients. It is safe for concurrent use.
type Encrypter struct {
	rand io.Reader
}

// NewEncrypter returns a new Encrypter.
func NewEncrypter(opts ...Opt) *Encrypter {
	return &Encrypter{rand: newOptions(opts).rand}
}

// Encrypt serializes payload as canonical JSON and seals it for recipientPubKey, an Ed25519 public key.
func (e *Encrypter) Encrypt(payload interface{}, recipientPubKey []byte) (*EncryptedEnvelope, error) {
	plaintext, err := canonicalJSON(payload)
	if err != nil {
		return nil, encryptionErrorf("serialize payload: %w", err)
	}

	recipient, err := keyconv.EdPublicKeyToX25519(recipientPubKey)
	if err != nil {
		return nil, &EncryptionError{Err: fmt.Errorf("recipient key: %w", err)}
	}

	ephemeralPriv := make([]byte, curve25519.ScalarSize)
	defer zero(ephemeralPriv)

	if _, err = io.ReadFull(e.rand, ephemeralPriv); err != nil {
		return nil, encryptionErrorf("generate ephemeral key: %w", err)
	}

	ephemeralPub, err := curve25519.X25519(ephemeralPriv, curve25519.Basepoint)
	if err != nil {
		return nil, encryptionErrorf("derive ephemeral public key: %w", err)
	}

	shared, err := curve25519.X25519(ephemeralPriv, recipient)
	if err != nil {
		return nil, encryptionErrorf("key agreement: %w", err)
	}

	defer zero(shared)

	sealed, err := seal(shared, plaintext)
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}

	logger.Debugf("sealed %d byte payload with %s/%s", len(plaintext), AlgX25519AESGCM, EncAESGCM)

	return &EncryptedEnvelope{
		Ciphertext:      codec.EncodeBase64(sealed[subtle.AESGCMIVSize:]),
		IV:              codec.EncodeBase64(sealed[:subtle.AESGCMIVSize]),
		EphemeralPubKey: codec.EncodeBase64URL(ephemeralPub),
		Alg:             AlgX25519AESGCM,
		Enc:             EncAESGCM,
	}, nil
}

// Decrypter opens envelopes with an Ed25519 private key. It is safe for concurrent use.
type Decrypter struct{}

// NewDecrypter returns a new Decrypter.
func NewDecrypter() *Decrypter {
	return &Decrypter{}
}

// Decrypt opens env with recipientPrivKey (32-byte seed or 64-byte Ed25519 private key) and
// returns the payload decoded as generic JSON, numbers kept as json.Number.
func (d *Decrypter) Decrypt(env *EncryptedEnvelope, recipientPrivKey []byte) (interface{}, error) {
	var payload interface{}

	if err := d.DecryptTo(env, recipientPrivKey, &payload); err != nil {
		return nil, err
	}

	return payload, nil
}

// DecryptTo opens env and unmarshals the payload into v.
func (d *Decrypter) DecryptTo(env *EncryptedEnvelope, recipientPrivKey []byte, v interface{}) error {
	plaintext, err := d.open(env, recipientPrivKey)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(plaintext))
	dec.UseNumber()

	if err = dec.Decode(v); err != nil {
		return decryptionErrorf("unmarshal payload: %w", err)
	}

	return nil
}

func (d *Decrypter) open(env *EncryptedEnvelope, recipientPrivKey []byte) ([]byte, error) {
	if env == nil {
		return nil, &DecryptionError{Err: errors.New("envelope is nil")}
	}

	if env.Alg != AlgX25519AESGCM || env.Enc != EncAESGCM {
		return nil, decryptionErrorf("unsupported algorithms alg=%q enc=%q", env.Alg, env.Enc)
	}

	ephemeralPub, err := codec.DecodeBase64(env.EphemeralPubKey)
	if err != nil {
		return nil, decryptionErrorf("ephemeral public key: %w", err)
	}

	iv, err := codec.DecodeBase64(env.IV)
	if err != nil {
		return nil, decryptionErrorf("iv: %w", err)
	}

	if len(iv) != subtle.AESGCMIVSize {
		return nil, decryptionErrorf("iv must be %d bytes, got %d", subtle.AESGCMIVSize, len(iv))
	}

	ciphertext, err := codec.DecodeBase64(env.Ciphertext)
	if err != nil {
		return nil, decryptionErrorf("ciphertext: %w", err)
	}

	recipientPriv, err := keyconv.EdPrivateKeyToX25519(recipientPrivKey)
	if err != nil {
		return nil, &DecryptionError{Err: fmt.Errorf("recipient key: %w", err)}
	}

	defer zero(recipientPriv)

	shared, err := curve25519.X25519(recipientPriv, ephemeralPub)
	if err != nil {
		return nil, decryptionErrorf("key agreement: %w", err)
	}

	defer zero(shared)

	plaintext, err := open(shared, append(iv, ciphertext...))
	if err != nil {
		return nil, &DecryptionError{Err: err}
	}

	logger.Debugf("opened %d byte payload", len(plaintext))

	return plaintext, nil
}

// Encrypt seals payload for recipientPubKey with a default Encrypter.
func Encrypt(payload interface{}, recipientPubKey []byte) (*EncryptedEnvelope, error) {
	return NewEncrypter().Encrypt(payload, recipientPubKey)
}

// Decrypt opens env with a default Decrypter.
func Decrypt(env *EncryptedEnvelope, recipientPrivKey []byte) (interface{}, error) {
	return NewDecrypter().Decrypt(env, recipientPrivKey)
}

// seal returns iv||ciphertext||tag.
func seal(shared, plaintext []byte) ([]byte, error) {
	key, err := deriveContentKey(shared)
	if err != nil {
		return nil, err
	}

	defer zero(key)

	aead, err := subtle.NewAESGCM(key)
	if err != nil {
		return nil, fmt.Errorf("create AES-GCM: %w", err)
	}

	sealed, err := aead.Encrypt(plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("seal payload: %w", err)
	}

	return sealed, nil
}

func open(shared, sealed []byte) ([]byte, error) {
	key, err := deriveContentKey(shared)
	if err != nil {
		return nil, err
	}

	defer zero(key)

	aead, err := subtle.NewAESGCM(key)
	if err != nil {
		return nil, fmt.Errorf("create AES-GCM: %w", err)
	}

	plaintext, err := aead.Decrypt(sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}

	return plaintext, nil
}

func deriveContentKey(shared []byte) ([]byte, error) {
	key := make([]byte, ContentKeySize)

	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, []byte(KDFInfo)), key); err != nil {
		return nil, fmt.Errorf("derive content key: %w", err)
	}

	return key, nil
}

func canonicalJSON(payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return jcs.Transform(raw)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
