// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fmterr provides helpers to report internal invariant violations
// of the lowering passes and to format errors.
package fmterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// PrefixWith returns a function to prefix errors with a formatted string.
func PrefixWith(s string, o ...any) func(err error) error {
	return func(err error) error {
		return fmt.Errorf("%s%w", fmt.Sprintf(s, o...), err)
	}
}

type internalError struct {
	err error
}

// Internal marks an error as internal, that is a bug in a pass or in the producer of its input.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	if IsInternal(err) {
		return err
	}
	return internalError{err: err}
}

// IsInternal returns true if the error, or one of the error it wraps, is internal.
func IsInternal(err error) bool {
	var target internalError
	return errors.As(err, &target)
}

// Error returns a string description of the error.
func (err internalError) Error() string {
	return "internal error: this is a bug, please report it: " + err.err.Error()
}

// Unwrap the error.
func (err internalError) Unwrap() error {
	return err.err
}

// Format writes the error into the state of the formatter.
func (err internalError) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}
