/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwtcmd

import (
	"crypto/ed25519"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	afgjwt "github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/jwt"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/common"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/sdjwt/issuer"
	"github.com/sd-jwt-enc/sdjwt-enc-go/internal/logutil"
)

const (
	issueCommand = "issue"

	claimsFlagName  = "claims"
	claimsEnvKey    = "SDJWTENC_CLAIMS"
	claimsFlagUsage = "Path to the claims document (JSON or YAML)." +
		" Alternatively, this can be set with the following environment variable: " + claimsEnvKey

	frameFlagName  = "frame"
	frameEnvKey    = "SDJWTENC_FRAME"
	frameFlagUsage = "Path to the disclosure frame document (JSON or YAML). Without a frame every claim is" +
		" disclosed in clear. Alternatively, this can be set with the following environment variable: " + frameEnvKey

	issuerFlagName  = "issuer"
	issuerEnvKey    = "SDJWTENC_ISSUER"
	issuerFlagUsage = "Issuer identifier, the iss claim." +
		" Alternatively, this can be set with the following environment variable: " + issuerEnvKey

	issuerKeyFlagName  = "issuer-key"
	issuerKeyEnvKey    = "SDJWTENC_ISSUER_KEY" // nolint:gosec
	issuerKeyFlagUsage = "Ed25519 private key of the issuer (hex, multibase, base58 or base64; a hex:, multibase:," +
		" base58: or base64: prefix forces the encoding)." +
		" Alternatively, this can be set with the following environment variable: " + issuerKeyEnvKey

	holderKeyFlagName       = "holder-key"
	holderKeyEnvKey         = "SDJWTENC_HOLDER_KEY" // nolint:gosec
	issueHolderKeyFlagUsage = "Ed25519 public key of the holder, bound as the cnf claim (optional)." +
		" Alternatively, this can be set with the following environment variable: " + holderKeyEnvKey

	recipientKeyFlagName       = "recipient-key"
	recipientKeyEnvKey         = "SDJWTENC_RECIPIENT_KEY" // nolint:gosec
	issueRecipientKeyFlagUsage = "Ed25519 public key the disclosures are encrypted for. Defaults to the holder key." +
		" Alternatively, this can be set with the following environment variable: " + recipientKeyEnvKey

	hashAlgFlagName  = "hash-alg"
	hashAlgEnvKey    = "SDJWTENC_HASH_ALG"
	hashAlgFlagUsage = "Digest algorithm of the disclosures: sha-256, sha-384 or sha-512. Defaults to sha-256." +
		" Alternatively, this can be set with the following environment variable: " + hashAlgEnvKey

	expiryFlagName  = "expiry"
	expiryEnvKey    = "SDJWTENC_EXPIRY"
	expiryFlagUsage = "Validity period of the SD-JWT, e.g. 24h (optional)." +
		" Alternatively, this can be set with the following environment variable: " + expiryEnvKey

	jtiFlagName  = "jti"
	jtiEnvKey    = "SDJWTENC_JTI"
	jtiFlagUsage = "JWT ID. Defaults to a random UUID." +
		" Alternatively, this can be set with the following environment variable: " + jtiEnvKey
)

type issueParameters struct {
	issuer       string
	claims       map[string]interface{}
	frame        *common.Frame
	issuerKey    ed25519.PrivateKey
	holderKey    ed25519.PublicKey
	recipientKey ed25519.PublicKey
	hashAlg      string
	expiry       time.Duration
	jti          string
}

func issueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   issueCommand,
		Short: "Issue an SD-JWT",
		Long:  "Issue an SD-JWT whose disclosures are encrypted for the holder",
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getIssueParameters(cmd)
			if err != nil {
				return err
			}

			compact, err := issue(parameters)
			if err != nil {
				logutil.LogError(logger, issueCommand, "issue", err)

				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), compact)

			return err
		},
	}

	cmd.Flags().StringP(claimsFlagName, "c", "", claimsFlagUsage)
	cmd.Flags().StringP(frameFlagName, "f", "", frameFlagUsage)
	cmd.Flags().StringP(issuerFlagName, "i", "", issuerFlagUsage)
	cmd.Flags().StringP(issuerKeyFlagName, "", "", issuerKeyFlagUsage)
	cmd.Flags().StringP(holderKeyFlagName, "", "", issueHolderKeyFlagUsage)
	cmd.Flags().StringP(recipientKeyFlagName, "", "", issueRecipientKeyFlagUsage)
	cmd.Flags().StringP(hashAlgFlagName, "", "", hashAlgFlagUsage)
	cmd.Flags().StringP(expiryFlagName, "", "", expiryFlagUsage)
	cmd.Flags().StringP(jtiFlagName, "", "", jtiFlagUsage)

	return cmd
}

func getIssueParameters(cmd *cobra.Command) (*issueParameters, error) { //nolint:funlen
	p := &issueParameters{}

	claimsPath, err := getUserSetVar(cmd, claimsFlagName, claimsEnvKey, false)
	if err != nil {
		return nil, err
	}

	if err = readDocument(claimsPath, &p.claims); err != nil {
		return nil, errors.Wrap(err, "claims")
	}

	framePath, err := getUserSetVar(cmd, frameFlagName, frameEnvKey, true)
	if err != nil {
		return nil, err
	}

	if framePath != "" {
		p.frame = &common.Frame{}

		if err = readDocument(framePath, p.frame); err != nil {
			return nil, errors.Wrap(err, "frame")
		}
	}

	if p.issuer, err = getUserSetVar(cmd, issuerFlagName, issuerEnvKey, false); err != nil {
		return nil, err
	}

	if p.issuerKey, err = getPrivateKey(cmd, issuerKeyFlagName, issuerKeyEnvKey, false); err != nil {
		return nil, err
	}

	if p.holderKey, err = getPublicKey(cmd, holderKeyFlagName, holderKeyEnvKey, true); err != nil {
		return nil, err
	}

	if p.recipientKey, err = getPublicKey(cmd, recipientKeyFlagName, recipientKeyEnvKey, true); err != nil {
		return nil, err
	}

	if p.hashAlg, err = getUserSetVar(cmd, hashAlgFlagName, hashAlgEnvKey, true); err != nil {
		return nil, err
	}

	expiry, err := getUserSetVar(cmd, expiryFlagName, expiryEnvKey, true)
	if err != nil {
		return nil, err
	}

	if expiry != "" {
		if p.expiry, err = time.ParseDuration(expiry); err != nil {
			return nil, errors.Wrapf(err, "invalid %s", expiryFlagName)
		}
	}

	if p.jti, err = getUserSetVar(cmd, jtiFlagName, jtiEnvKey, true); err != nil {
		return nil, err
	}

	return p, nil
}

func issue(p *issueParameters) (string, error) {
	signer, err := afgjwt.NewEd25519Signer(p.issuerKey, nil)
	if err != nil {
		return "", errors.Wrap(err, "issuer key")
	}

	now := time.Now()

	jti := p.jti
	if jti == "" {
		jti = uuid.New().String()
	}

	opts := []issuer.NewOpt{
		issuer.WithIssuedAt(jwt.NewNumericDate(now)),
		issuer.WithJTI(jti),
	}

	if p.hashAlg != "" {
		hash, err := common.GetCryptoHash(p.hashAlg)
		if err != nil {
			return "", err
		}

		opts = append(opts, issuer.WithHashAlgorithm(hash))
	}

	if p.expiry > 0 {
		opts = append(opts, issuer.WithExpiry(jwt.NewNumericDate(now.Add(p.expiry))))
	}

	recipientKey := p.recipientKey

	if p.holderKey != nil {
		opts = append(opts, issuer.WithHolderPublicKey(&gojose.JSONWebKey{Key: p.holderKey}))

		if recipientKey == nil {
			recipientKey = p.holderKey
		}
	}

	if recipientKey == nil && !p.frame.IsEmpty() {
		return "", errors.New("either " + recipientKeyFlagName + " or " + holderKeyFlagName +
			" must be set to deliver the disclosures")
	}

	if recipientKey != nil {
		opts = append(opts, issuer.WithRecipientPublicKey(recipientKey))
	}

	token, err := issuer.New(p.issuer, p.claims, p.frame, signer, opts...)
	if err != nil {
		return "", errors.Wrap(err, "issue SD-JWT")
	}

	logutil.LogInfo(logger, issueCommand, "issue", "SD-JWT issued",
		logutil.CreateKeyValueString("jti", jti),
		logutil.CreateKeyValueString("disclosures", len(token.Disclosures)))

	return token.Serialize()
}
