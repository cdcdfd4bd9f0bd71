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
)

type liveRange struct {
	def, lastUse int
}

// reuseTemps lets a temporary take over the storage of an earlier
// temporary of the same type and shape which is not read anymore.
// It returns the new value of the statement and the number of
// temporaries replaced.
func (m *exprMutator) reuseTemps(value ir.Expr) (ir.Expr, int) {
	ranges := m.liveRanges()
	// Reading the output value is the last instruction.
	final := len(m.assigns)
	for _, t := range m.temps {
		if ir.ReadsTensor(value, t) {
			ranges[t.ID].lastUse = final
		}
	}

	var kept []*ir.Tensor
	replaced := 0
	for _, t := range m.temps {
		rt := ranges[t.ID]
		var target *ir.Tensor
		for _, s := range kept {
			rs := ranges[s.ID]
			if s.DType != t.DType || !ir.EqualList(s.Shape, t.Shape) {
				continue
			}
			if rs.def < rt.def && rs.lastUse <= rt.def {
				target = s
				break
			}
		}
		if target == nil {
			kept = append(kept, t)
			continue
		}
		ranges[target.ID].lastUse = rt.lastUse
		for i, assign := range m.assigns {
			m.assigns[i] = renameTensor(assign, t, target)
		}
		value = replaceReads(value, t, target)
		delete(m.tempIDs, t.ID)
		replaced++
	}
	m.temps = kept
	return value, replaced
}

// liveRanges returns the index of the first assignment defining each
// temporary and the index of the last assignment referencing it.
func (m *exprMutator) liveRanges() map[ir.TensorID]*liveRange {
	ranges := make(map[ir.TensorID]*liveRange, len(m.temps))
	for _, t := range m.temps {
		ranges[t.ID] = &liveRange{def: -1, lastUse: -1}
	}
	for i, assign := range m.assigns {
		for _, t := range m.temps {
			r := ranges[t.ID]
			writes := ir.SameTensor(assign.Tensor, t)
			if writes && r.def < 0 {
				r.def = i
			}
			if writes || ir.ReadsTensor(assign.Value, t) {
				r.lastUse = i
			}
		}
	}
	return ranges
}

func renameTensor(assign *ir.Provide, from, to *ir.Tensor) *ir.Provide {
	tensor := assign.Tensor
	if ir.SameTensor(tensor, from) {
		tensor = to
	}
	value := replaceReads(assign.Value, from, to)
	if tensor == assign.Tensor && value == assign.Value {
		return assign
	}
	return &ir.Provide{Tensor: tensor, Args: assign.Args, Value: value}
}

// replaceReads replaces the reads of a tensor by reads of another tensor
// at the same index.
func replaceReads(expr ir.Expr, from, to *ir.Tensor) ir.Expr {
	if call, ok := expr.(*ir.Call); ok && call.IsHalide() && ir.SameTensor(call.Tensor, from) {
		args := make([]ir.Expr, len(call.Args))
		for i, arg := range call.Args {
			args[i] = replaceReads(arg, from, to)
		}
		return ir.Read(to, args...)
	}
	kids := ir.Children(expr)
	if len(kids) == 0 {
		return expr
	}
	mutated := make([]ir.Expr, len(kids))
	for i, kid := range kids {
		mutated[i] = replaceReads(kid, from, to)
	}
	return ir.WithChildren(expr, mutated)
}
