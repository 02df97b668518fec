/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package hybrid

import (
	"fmt"
)

const (
	// AlgX25519AESGCM is the key agreement tag carried by every envelope.
	AlgX25519AESGCM = "X25519-AES-GCM"
	// EncAESGCM is the content encryption tag carried by every envelope.
	EncAESGCM = "AES-GCM"
)

// EncryptedEnvelope is the self-describing output of Encrypt. Ciphertext and IV use standard
// base64, EphemeralPubKey uses unpadded base64url.
type EncryptedEnvelope struct {
	Ciphertext      string `json:"ciphertext"`
	IV              string `json:"iv"`
	EphemeralPubKey string `json:"ephemeralPubKey"`
	Alg             string `json:"alg"`
	Enc             string `json:"enc"`
}

// EncryptionError wraps any failure while producing an envelope.
type EncryptionError struct {
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encryption failed: %v", e.Err)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// DecryptionError wraps any failure while opening an envelope, authentication failures included.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed: %v", e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

func encryptionErrorf(format string, args ...interface{}) error {
	return &EncryptionError{Err: fmt.Errorf(format, args...)}
}

func decryptionErrorf(format string, args ...interface{}) error {
	return &DecryptionError{Err: fmt.Errorf(format, args...)}
}
