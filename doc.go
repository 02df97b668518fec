/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdjwtenc enables Go developers to issue, present and verify Selective Disclosure JWTs whose
// disclosures travel encrypted for their recipient instead of in clear text.
//
// Packages for end developer usage
//
// pkg/doc/sdjwt/issuer: Creates an SD-JWT from a claims document and a disclosure frame, and encrypts the
// disclosures for the holder.
//
// pkg/doc/sdjwt/holder: Decrypts the issued disclosures, selects the ones to reveal and re-encrypts them for the
// verifier, optionally adding a Key Binding JWT.
//
// pkg/doc/sdjwt/verifier: Verifies the issuer signature and the key binding, decrypts the presented disclosures
// and returns the disclosed claims.
//
// pkg/crypto/hybrid: X25519 + HKDF + AES-GCM hybrid encryption of JSON payloads to Ed25519 keys.
//
// Basic workflow
//
//  1. Generate Ed25519 keys for the issuer, the holder and the verifier.
//  2. The issuer calls issuer.New with the claims, a frame and its signer, encrypting for the holder.
//  3. The holder calls holder.CreatePresentation with the disclosed claim paths and the verifier public key.
//  4. The verifier calls verifier.Parse with the issuer public key and its own private key.
//
// cmd/sdjwt-enc wraps the same workflow in a command line tool.
package sdjwtenc
