/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdjwtcmd holds the sdjwt-enc cobra commands.
package sdjwtcmd

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/doc/util/codec"
)

const (
	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "SDJWTENC_LOG_LEVEL"
	logLevelFlagUsage = "Logging level to set. Supported options: CRITICAL, ERROR, WARNING, INFO, DEBUG." +
		` Defaults to "INFO" if not set. Setting to DEBUG may adversely impact performance. Alternatively, this can be ` +
		"set with the following environment variable: " + logLevelEnvKey

	sdJWTFlagName  = "sd-jwt"
	sdJWTEnvKey    = "SDJWTENC_SD_JWT"
	sdJWTFlagUsage = "Compact SD-JWT string, or @path to a file holding it." +
		" Alternatively, this can be set with the following environment variable: " + sdJWTEnvKey

	audienceFlagName  = "audience"
	audienceEnvKey    = "SDJWTENC_AUDIENCE"
	audienceFlagUsage = "Audience of the key binding JWT (optional)." +
		" Alternatively, this can be set with the following environment variable: " + audienceEnvKey

	nonceFlagName  = "nonce"
	nonceEnvKey    = "SDJWTENC_NONCE"
	nonceFlagUsage = "Nonce of the key binding JWT (optional)." +
		" Alternatively, this can be set with the following environment variable: " + nonceEnvKey

	filePrefix = "@"
)

var logger = log.New("sdjwt-enc/cmd")

// Cmd returns the sdjwt-enc root command.
func Cmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sdjwt-enc",
		Short: "SD-JWT with encrypted disclosures",
		Long:  "Issue, present and verify SD-JWTs whose disclosures are encrypted for the recipient",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
			if err != nil {
				return err
			}

			return setLogLevel(logLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)

	rootCmd.AddCommand(keygenCmd(), issueCmd(), presentCmd(), verifyCmd())

	return rootCmd
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Debugf("logger level set to %s", logLevel)
	}

	return nil
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}

// getKey reads a key flag. Accepted sizes are checked after decoding; see codec.DecodeKey for the encodings.
func getKey(cmd *cobra.Command, flagName, envKey string, isOptional bool, sizes ...int) ([]byte, error) {
	value, err := getUserSetVar(cmd, flagName, envKey, isOptional)
	if err != nil {
		return nil, err
	}

	if value == "" {
		return nil, nil
	}

	key, err := codec.DecodeKey(value, sizes...)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s", flagName)
	}

	return key, nil
}

func getPublicKey(cmd *cobra.Command, flagName, envKey string, isOptional bool) (ed25519.PublicKey, error) {
	return getKey(cmd, flagName, envKey, isOptional, ed25519.PublicKeySize)
}

func getPrivateKey(cmd *cobra.Command, flagName, envKey string, isOptional bool) (ed25519.PrivateKey, error) {
	key, err := getKey(cmd, flagName, envKey, isOptional, ed25519.SeedSize, ed25519.PrivateKeySize)
	if err != nil || key == nil {
		return nil, err
	}

	if len(key) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(key), nil
	}

	return key, nil
}

// getCompact reads the --sd-jwt value, either inline or from a file when prefixed with "@".
func getCompact(cmd *cobra.Command) (string, error) {
	value, err := getUserSetVar(cmd, sdJWTFlagName, sdJWTEnvKey, false)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(value, filePrefix) {
		return strings.TrimSpace(value), nil
	}

	b, err := os.ReadFile(strings.TrimPrefix(value, filePrefix))
	if err != nil {
		return "", errors.Wrap(err, "read SD-JWT file")
	}

	return strings.TrimSpace(string(b)), nil
}

// readDocument reads a JSON or YAML document into v. Numbers are decoded as json.Number when v is generic.
func readDocument(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	jsonBytes, err := yaml.YAMLToJSON(b)
	if err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.UseNumber()

	if err = dec.Decode(v); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}

	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal output")
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}
