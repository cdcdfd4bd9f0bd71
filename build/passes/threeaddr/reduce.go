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

import (
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/internal/exprdeps"
)

// isReduction returns true if the statement reads the tensor it writes
// exactly once, at the same index it writes to.
//
// A[j, j] = f(A[j, j]) is not a reduction: a single variable indexing
// more than one axis changes the iteration space.
func isReduction(p *ir.Provide) bool {
	var selfReads []bool
	ir.Walk(p.Value, func(e ir.Expr) {
		call, ok := e.(*ir.Call)
		if !ok || !call.IsHalide() || !ir.SameTensor(call.Tensor, p.Tensor) {
			return
		}
		match := ir.EqualList(call.Args, p.Args)
		if exprdeps.Count(call.Args...) == 1 && exprdeps.Occurrences(call.Args...) > 1 {
			match = false
		}
		selfReads = append(selfReads, match)
	})
	return len(selfReads) == 1 && selfReads[0]
}
