/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrDigestNotFound is wrapped when a supplied disclosure is not referenced by the packed claims.
var ErrDigestNotFound = errors.New("disclosure digest not found")

// StructureError reports a compact string, envelope segment or packed claim tree of the wrong shape.
type StructureError struct {
	// Msg is the full message, including the text of Err if any.
	Msg string
	Err error
}

func (e *StructureError) Error() string {
	return "invalid structure: " + e.Msg
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

// StructureErrorf builds a StructureError; a %w verb in format becomes the wrapped error.
func StructureErrorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)

	return &StructureError{Msg: err.Error(), Err: errors.Unwrap(err)}
}

// FrameMismatchError lists every frame entry that has no counterpart in the claims.
type FrameMismatchError struct {
	// Paths of the offending frame entries, e.g. "address.street" or "nationalities.4".
	Paths []string

	errs *multierror.Error
}

// NewFrameMismatchError wraps the collected mismatches. It returns nil when there are none.
func NewFrameMismatchError(errs *multierror.Error, paths []string) error {
	if errs.ErrorOrNil() == nil {
		return nil
	}

	errs.ErrorFormat = func(es []error) string {
		msgs := make([]string, len(es))
		for i, e := range es {
			msgs[i] = e.Error()
		}

		return strings.Join(msgs, "; ")
	}

	return &FrameMismatchError{Paths: paths, errs: errs}
}

func (e *FrameMismatchError) Error() string {
	return "frame does not match claims: " + e.errs.Error()
}

func (e *FrameMismatchError) Unwrap() error {
	return e.errs
}
