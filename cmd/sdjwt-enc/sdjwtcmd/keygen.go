/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwtcmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/util/codec"
	"github.com/sd-jwt-enc/sdjwt-enc-go/internal/logutil"
)

const keygenCommand = "keygen"

// keyPairOutput is printed by keygen. The private key is the 64-byte Ed25519 form.
type keyPairOutput struct {
	PublicKey          string `json:"publicKey"`
	PublicKeyBase58    string `json:"publicKeyBase58"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
	PrivateKey         string `json:"privateKey"`
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   keygenCommand,
		Short: "Generate an Ed25519 key pair",
		Long:  "Generate an Ed25519 key pair usable as issuer, holder or verifier key. Keys are printed as hex",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateKeyPair(cmd.OutOrStdout(), rand.Reader)
		},
	}
}

func generateKeyPair(w io.Writer, random io.Reader) error {
	pub, priv, err := ed25519.GenerateKey(random)
	if err != nil {
		logutil.LogError(logger, keygenCommand, "generate", err)

		return errors.Wrap(err, "generate Ed25519 key pair")
	}

	multibase, err := codec.EncodeMultibase(pub)
	if err != nil {
		return err
	}

	logutil.LogDebug(logger, keygenCommand, "generate", "key pair generated")

	return writeJSON(w, &keyPairOutput{
		PublicKey:          codec.EncodeHex(pub),
		PublicKeyBase58:    codec.EncodeBase58(pub),
		PublicKeyMultibase: multibase,
		PrivateKey:         codec.EncodeHex(priv),
	})
}
