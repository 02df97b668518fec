/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwtcmd

import (
	"crypto/ed25519"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/verifier"
	"github.com/sd-jwt-enc/sdjwt-enc-go/internal/logutil"
)

const (
	verifyCommand = "verify"

	issuerPubFlagName  = "issuer-pub"
	issuerPubEnvKey    = "SDJWTENC_ISSUER_PUB"
	issuerPubFlagUsage = "Ed25519 public key of the issuer." +
		" Alternatively, this can be set with the following environment variable: " + issuerPubEnvKey

	verifyRecipientKeyFlagUsage = "Ed25519 private key of the verifier that decrypts the presented disclosures." +
		" Alternatively, this can be set with the following environment variable: " + recipientKeyEnvKey

	maxAgeFlagName  = "max-age"
	maxAgeEnvKey    = "SDJWTENC_MAX_AGE"
	maxAgeFlagUsage = "Maximum age of the key binding JWT, e.g. 5m (optional)." +
		" Alternatively, this can be set with the following environment variable: " + maxAgeEnvKey
)

type verifyParameters struct {
	compact      string
	issuerPub    ed25519.PublicKey
	recipientKey ed25519.PrivateKey
	audience     string
	nonce        string
	maxAge       time.Duration
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   verifyCommand,
		Short: "Verify an SD-JWT presentation",
		Long: "Verify the issuer signature and the key binding of an SD-JWT presentation and print the" +
			" disclosed claims. A key binding JWT is required when an audience or a nonce is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getVerifyParameters(cmd)
			if err != nil {
				return err
			}

			return verify(cmd.OutOrStdout(), parameters)
		},
	}

	cmd.Flags().StringP(sdJWTFlagName, "s", "", sdJWTFlagUsage)
	cmd.Flags().StringP(issuerPubFlagName, "", "", issuerPubFlagUsage)
	cmd.Flags().StringP(recipientKeyFlagName, "", "", verifyRecipientKeyFlagUsage)
	cmd.Flags().StringP(audienceFlagName, "", "", audienceFlagUsage)
	cmd.Flags().StringP(nonceFlagName, "", "", nonceFlagUsage)
	cmd.Flags().StringP(maxAgeFlagName, "", "", maxAgeFlagUsage)

	return cmd
}

func getVerifyParameters(cmd *cobra.Command) (*verifyParameters, error) {
	p := &verifyParameters{}

	var err error

	if p.compact, err = getCompact(cmd); err != nil {
		return nil, err
	}

	if p.issuerPub, err = getPublicKey(cmd, issuerPubFlagName, issuerPubEnvKey, false); err != nil {
		return nil, err
	}

	if p.recipientKey, err = getPrivateKey(cmd, recipientKeyFlagName, recipientKeyEnvKey, false); err != nil {
		return nil, err
	}

	if p.audience, err = getUserSetVar(cmd, audienceFlagName, audienceEnvKey, true); err != nil {
		return nil, err
	}

	if p.nonce, err = getUserSetVar(cmd, nonceFlagName, nonceEnvKey, true); err != nil {
		return nil, err
	}

	maxAge, err := getUserSetVar(cmd, maxAgeFlagName, maxAgeEnvKey, true)
	if err != nil {
		return nil, err
	}

	if maxAge != "" {
		if p.maxAge, err = time.ParseDuration(maxAge); err != nil {
			return nil, errors.Wrapf(err, "invalid %s", maxAgeFlagName)
		}
	}

	return p, nil
}

func verify(w io.Writer, p *verifyParameters) error {
	opts := []verifier.ParseOpt{
		verifier.WithIssuerPublicKey(p.issuerPub),
		verifier.WithKeyBindingMaxAge(p.maxAge),
	}

	if p.audience != "" || p.nonce != "" {
		opts = append(opts, verifier.WithHolderBinding(p.audience, p.nonce))
	}

	claims, err := verifier.Parse(p.compact, p.recipientKey.Seed(), opts...)
	if err != nil {
		logutil.LogError(logger, verifyCommand, "verify", err)

		return errors.Wrap(err, "verify presentation")
	}

	logutil.LogInfo(logger, verifyCommand, "verify", "presentation verified",
		logutil.CreateKeyValueString("claims", len(claims)))

	return writeJSON(w, claims)
}
