/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwtcmd

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	afgjwt "github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/holder"
	"github.com/sd-jwt-enc/sdjwt-enc-go/internal/logutil"
)

const (
	presentCommand = "present"

	presentHolderKeyFlagUsage = "Ed25519 private key of the holder. It decrypts the issued disclosures and signs" +
		" the key binding JWT. Alternatively, this can be set with the following environment variable: " +
		holderKeyEnvKey

	presentRecipientKeyFlagUsage = "Ed25519 public key of the verifier the selected disclosures are encrypted for." +
		" Alternatively, this can be set with the following environment variable: " + recipientKeyEnvKey

	discloseFlagName  = "disclose"
	discloseEnvKey    = "SDJWTENC_DISCLOSE"
	discloseFlagUsage = "Comma-separated paths of the claims to disclose, e.g. address.street_address." +
		" Every disclosure is presented if not set." +
		" Alternatively, this can be set with the following environment variable: " + discloseEnvKey
)

type presentParameters struct {
	compact      string
	holderKey    ed25519.PrivateKey
	recipientKey ed25519.PublicKey
	disclose     []string
	audience     string
	nonce        string
}

func presentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   presentCommand,
		Short: "Create an SD-JWT presentation",
		Long: "Decrypt the disclosures of an issued SD-JWT, select the ones to reveal and encrypt them" +
			" for the verifier. A key binding JWT is added when an audience or a nonce is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getPresentParameters(cmd)
			if err != nil {
				return err
			}

			presentation, err := present(parameters)
			if err != nil {
				logutil.LogError(logger, presentCommand, "present", err)

				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), presentation)

			return err
		},
	}

	cmd.Flags().StringP(sdJWTFlagName, "s", "", sdJWTFlagUsage)
	cmd.Flags().StringP(holderKeyFlagName, "", "", presentHolderKeyFlagUsage)
	cmd.Flags().StringP(recipientKeyFlagName, "", "", presentRecipientKeyFlagUsage)
	cmd.Flags().StringSliceP(discloseFlagName, "d", []string{}, discloseFlagUsage)
	cmd.Flags().StringP(audienceFlagName, "", "", audienceFlagUsage)
	cmd.Flags().StringP(nonceFlagName, "", "", nonceFlagUsage)

	return cmd
}

func getPresentParameters(cmd *cobra.Command) (*presentParameters, error) {
	p := &presentParameters{}

	var err error

	if p.compact, err = getCompact(cmd); err != nil {
		return nil, err
	}

	if p.holderKey, err = getPrivateKey(cmd, holderKeyFlagName, holderKeyEnvKey, false); err != nil {
		return nil, err
	}

	if p.recipientKey, err = getPublicKey(cmd, recipientKeyFlagName, recipientKeyEnvKey, false); err != nil {
		return nil, err
	}

	if p.disclose, err = getUserSetVars(cmd, discloseFlagName, discloseEnvKey, true); err != nil {
		return nil, err
	}

	if p.audience, err = getUserSetVar(cmd, audienceFlagName, audienceEnvKey, true); err != nil {
		return nil, err
	}

	if p.nonce, err = getUserSetVar(cmd, nonceFlagName, nonceEnvKey, true); err != nil {
		return nil, err
	}

	return p, nil
}

func present(p *presentParameters) (string, error) {
	opts := []holder.Opt{
		holder.WithDisclosedClaims(p.disclose...),
	}

	if p.audience != "" || p.nonce != "" {
		signer, err := afgjwt.NewEd25519Signer(p.holderKey, nil)
		if err != nil {
			return "", errors.Wrap(err, "holder key")
		}

		opts = append(opts, holder.WithHolderBinding(&holder.BindingInfo{
			Payload: holder.BindingPayload{
				Nonce:    p.nonce,
				Audience: p.audience,
				IssuedAt: jwt.NewNumericDate(time.Now()),
			},
			Signer: signer,
		}))
	}

	presentation, err := holder.CreatePresentation(p.compact, p.holderKey.Seed(), p.recipientKey, opts...)
	if err != nil {
		return "", errors.Wrap(err, "create presentation")
	}

	logutil.LogInfo(logger, presentCommand, "present", "presentation created",
		logutil.CreateKeyValueString("disclosed", p.disclose),
		logutil.CreateKeyValueString("keyBinding", p.audience != "" || p.nonce != ""))

	return presentation, nil
}
