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

package fmterr

import "github.com/pkg/errors"

// invariant is the panic value raised by Check.
type invariant struct {
	err error
}

// Check panics with an internal error if cond is false.
// The panic is turned back into an error by Catch.
func Check(cond bool, format string, a ...any) {
	if cond {
		return
	}
	panic(invariant{err: errors.Errorf(format, a...)})
}

// Fail panics with an internal error.
func Fail(format string, a ...any) {
	panic(invariant{err: errors.Errorf(format, a...)})
}

// Catch recovers from a panic raised by Check or Fail and stores
// the internal error in errp. Other panics are propagated.
// It must be called directly by a deferred statement.
func Catch(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	inv, ok := r.(invariant)
	if !ok {
		panic(r)
	}
	*errp = Internal(inv.err)
}
