/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/crypto/hybrid"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/util/codec"
)

// EncodeEncryptedDisclosures renders an envelope as its compact segment, base64url(JSON(envelope)).
func EncodeEncryptedDisclosures(env *hybrid.EncryptedEnvelope) (string, error) {
	if env == nil {
		return "", nil
	}

	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeEncryptedDisclosures parses a compact segment, standard or url-safe base64, padded or not.
// An empty segment yields a nil envelope.
func DecodeEncryptedDisclosures(segment string) (*hybrid.EncryptedEnvelope, error) {
	if segment == "" {
		return nil, nil
	}

	b, err := codec.DecodeBase64(segment)
	if err != nil {
		return nil, StructureErrorf("decode encrypted disclosures: %w", err)
	}

	env := &hybrid.EncryptedEnvelope{}

	if err = json.Unmarshal(b, env); err != nil {
		return nil, StructureErrorf("unmarshal encrypted disclosures: %w", err)
	}

	if env.Ciphertext == "" || env.IV == "" || env.EphemeralPubKey == "" {
		return nil, StructureErrorf("encrypted disclosures must carry ciphertext, iv and ephemeralPubKey")
	}

	return env, nil
}

// EncryptDisclosures seals the encoded disclosures, a JSON array of strings, for recipientPubKey.
func EncryptDisclosures(enc *hybrid.Encrypter, disclosures []string, recipientPubKey []byte) (*hybrid.EncryptedEnvelope, error) {
	if disclosures == nil {
		disclosures = []string{}
	}

	return enc.Encrypt(disclosures, recipientPubKey)
}

// DecryptDisclosures opens env and returns the encoded disclosures it carries.
func DecryptDisclosures(env *hybrid.EncryptedEnvelope, recipientPrivKey []byte) ([]string, error) {
	payload, err := hybrid.NewDecrypter().Decrypt(env, recipientPrivKey)
	if err != nil {
		return nil, err
	}

	return DisclosuresFromPayload(payload)
}

// DisclosuresFromPayload reads a decrypted disclosure payload. Entries are encoded disclosures;
// objects of the form {"salt", "key", "value"} (optionally with "_encoded") are accepted as well.
func DisclosuresFromPayload(payload interface{}) ([]string, error) {
	entries, ok := payload.([]interface{})
	if !ok {
		return nil, StructureErrorf("disclosure payload type[%T] must be an array", payload)
	}

	disclosures := make([]string, 0, len(entries))

	for i, entry := range entries {
		switch e := entry.(type) {
		case string:
			disclosures = append(disclosures, e)
		case map[string]interface{}:
			encoded, err := encodeDisclosureObject(e)
			if err != nil {
				return nil, StructureErrorf("disclosure payload entry %d: %w", i, err)
			}

			disclosures = append(disclosures, encoded)
		default:
			return nil, StructureErrorf("disclosure payload entry %d type[%T] is not supported", i, entry)
		}
	}

	return disclosures, nil
}

func encodeDisclosureObject(obj map[string]interface{}) (string, error) {
	if encoded, ok := obj["_encoded"].(string); ok && encoded != "" {
		return encoded, nil
	}

	salt, ok := obj["salt"].(string)
	if !ok {
		return "", fmt.Errorf("salt type[%T] must be string", obj["salt"])
	}

	var d *Disclosure

	switch key := obj["key"].(type) {
	case nil:
		d = NewArrayDisclosure(salt, obj["value"])
	case string:
		d = NewObjectDisclosure(salt, key, obj["value"])
	default:
		return "", fmt.Errorf("key type[%T] must be string", key)
	}

	return d.Encode()
}
