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

package main

import (
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/build/ir/irhelper"
)

var f32 = ir.Float(32)

// demos are the programs tacdump can lower.
var demos = map[string]func() *ir.Program{
	"fma": func() *ir.Program {
		b := irhelper.New()
		i := b.Var("i")
		A, B, C, D := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16), b.Tensor("D", f32, 16)
		value := irhelper.Add(irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)), irhelper.Read(D, i))
		return b.Program(irhelper.Compute(C, []*ir.Var{i}, value))
	},
	"vsubs": func() *ir.Program {
		b := irhelper.New()
		i := b.Var("i")
		A, B := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16)
		return b.Program(irhelper.Compute(B, []*ir.Var{i}, irhelper.Sub(irhelper.F32(1), irhelper.Read(A, i))))
	},
	"relu": func() *ir.Program {
		b := irhelper.New()
		i := b.Var("i")
		A, B, C, D := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16), b.Tensor("D", f32, 16)
		fma := irhelper.Add(irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)), irhelper.Read(D, i))
		return b.Program(irhelper.Compute(C, []*ir.Var{i}, irhelper.Max(fma, irhelper.F32(0))))
	},
	"select": func() *ir.Program {
		b := irhelper.New()
		i := b.Var("i")
		c1, c2 := b.Tensor("cond1", ir.Bool(), 16), b.Tensor("cond2", ir.Bool(), 16)
		T, F, Y := b.Tensor("T", f32, 16), b.Tensor("F", f32, 16), b.Tensor("Y", f32, 16)
		value := irhelper.Select(
			irhelper.Or(irhelper.Read(c1, i), irhelper.Read(c2, i)),
			irhelper.Read(T, i),
			irhelper.Read(F, i),
		)
		return b.Program(irhelper.Compute(Y, []*ir.Var{i}, value))
	},
	"cse": func() *ir.Program {
		b := irhelper.New()
		i := b.Var("i")
		A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
		value := irhelper.Mul(
			irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)),
			irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)),
		)
		return b.Program(irhelper.Compute(C, []*ir.Var{i}, value))
	},
	"reduce": func() *ir.Program {
		b := irhelper.New()
		i, k := b.Var("i"), b.Var("k")
		A, B := b.Tensor("A", f32, 16, 8), b.Tensor("B", f32, 16)
		value := irhelper.Add(irhelper.Read(B, i), irhelper.Mul(irhelper.Read(A, i, k), irhelper.F32(2)))
		return b.Program(irhelper.Compute(B, []*ir.Var{i}, value, irhelper.Loop{Var: k, Extent: 8}))
	},
}
