/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main is the sdjwt-enc command line tool: it generates keys, issues SD-JWTs with encrypted
// disclosures, creates presentations and verifies them.
package main

import (
	"github.com/sd-jwt-enc/sdjwt-enc-go/cmd/sdjwt-enc/sdjwtcmd"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log"
)

func main() {
	logger := log.New("sdjwt-enc/cmd")

	if err := sdjwtcmd.Cmd().Execute(); err != nil {
		logger.Fatalf("Failed to run sdjwt-enc: %s", err)
	}
}
