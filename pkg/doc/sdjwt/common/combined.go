/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"strings"
)

const (
	// CombinedFormatSeparator joins the segments of the compact form.
	CombinedFormatSeparator = "."
	// SDJWTCombinedFormatSeparator is the separator of plain SD-JWT combined formats, accepted on parsing.
	SDJWTCombinedFormatSeparator = "~"

	jwsParts = 3
)

// CombinedFormatForEncryption holds the three positional segments of the compact form:
// <signed JWT><sep><encrypted disclosures or empty><sep><key binding JWT or empty>.
type CombinedFormatForEncryption struct {
	SDJWT                string
	EncryptedDisclosures string
	KeyBindingJWT        string
	// Separator defaults to CombinedFormatSeparator.
	Separator string
}

func (cf *CombinedFormatForEncryption) separator() string {
	if cf.Separator == "" {
		return CombinedFormatSeparator
	}

	return cf.Separator
}

// Serialize assembles the compact form. The encrypted disclosures slot is always emitted so the key
// binding JWT keeps its position.
func (cf *CombinedFormatForEncryption) Serialize() string {
	return cf.PresentationPrefix() + cf.KeyBindingJWT
}

// PresentationPrefix returns everything up to and including the separator preceding the key binding JWT.
// Key binding JWTs sign its digest.
func (cf *CombinedFormatForEncryption) PresentationPrefix() string {
	sep := cf.separator()

	return cf.SDJWT + sep + cf.EncryptedDisclosures + sep
}

// ParseCombinedFormatForEncryption splits a compact string into its segments. With the default
// separator the JWT is taken as the first three dot-separated parts; strings using the SD-JWT
// separator "~" carry the JWT as a single segment.
func ParseCombinedFormatForEncryption(s string) (*CombinedFormatForEncryption, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, StructureErrorf("compact string is empty")
	}

	if strings.Contains(s, SDJWTCombinedFormatSeparator) {
		return parseTildeFormat(s)
	}

	parts := strings.Split(s, CombinedFormatSeparator)
	if len(parts) < jwsParts {
		return nil, StructureErrorf("JWT must have %d parts, got %d", jwsParts, len(parts))
	}

	if parts[0] == "" || parts[1] == "" {
		return nil, StructureErrorf("JWT header and payload must not be empty")
	}

	cf := &CombinedFormatForEncryption{
		SDJWT:     strings.Join(parts[:jwsParts], CombinedFormatSeparator),
		Separator: CombinedFormatSeparator,
	}

	rest := parts[jwsParts:]
	if len(rest) == 0 {
		return cf, nil
	}

	cf.EncryptedDisclosures = rest[0]
	rest = rest[1:]

	switch {
	case len(rest) == 0:
	case len(rest) == 1 && rest[0] == "":
	case len(rest) == jwsParts && rest[0] != "" && rest[1] != "":
		cf.KeyBindingJWT = strings.Join(rest, CombinedFormatSeparator)
	default:
		return nil, StructureErrorf("unexpected %d trailing segments after encrypted disclosures", len(rest))
	}

	return cf, nil
}

func parseTildeFormat(s string) (*CombinedFormatForEncryption, error) {
	parts := strings.Split(s, SDJWTCombinedFormatSeparator)

	if len(parts) > jwsParts {
		return nil, StructureErrorf("expected at most %d segments, got %d", jwsParts, len(parts))
	}

	if len(strings.Split(parts[0], CombinedFormatSeparator)) != jwsParts {
		return nil, StructureErrorf("JWT must have %d parts", jwsParts)
	}

	cf := &CombinedFormatForEncryption{SDJWT: parts[0], Separator: SDJWTCombinedFormatSeparator}

	if len(parts) > 1 {
		cf.EncryptedDisclosures = parts[1]
	}

	if len(parts) > 2 { //nolint:gomnd
		cf.KeyBindingJWT = parts[2]
	}

	return cf, nil
}
