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

package threeaddr

import "github.com/gx-org/tac/build/ir"

// Calls that are never split into three-address form.
var passThroughNames = []string{"mad", "load3d_l1_ub", "divide_var"}

// wholeProgramSkip is a call which, when present anywhere in a program,
// disables the pass for the whole program.
const wholeProgramSkip = "load3d_l1_ub"

// NeedsLowering returns false if the program contains operations
// that make the whole program incompatible with three-address lowering.
func NeedsLowering(prog *ir.Program) bool {
	return !ir.AnyExpr(prog.Body, func(e ir.Expr) bool {
		return ir.IsIntrinsic(e, wholeProgramSkip)
	})
}

func isPassThrough(value ir.Expr) bool {
	return ir.IsIntrinsic(value, passThroughNames...)
}
