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

// Package bound infers conservative intervals of IR expressions.
package bound

import (
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/internal/arith"
)

// Interval of values of an expression.
type Interval struct {
	Min, Max ir.Expr
}

// Ranges maps loop variables to the range they iterate over.
type Ranges map[ir.VarID]ir.Range

type inferer struct {
	ranges Ranges
}

// Infer returns a conservative interval of the values of an expression.
// The upper bound of a variable ranging over [min, min+extent) is min+extent.
func Infer(expr ir.Expr, ranges Ranges) Interval {
	return (&inferer{ranges: ranges}).infer(expr, nil)
}

// UpperBound returns a conservative upper bound of an expression.
func UpperBound(expr ir.Expr, ranges Ranges) ir.Expr {
	return Infer(expr, ranges).Max
}

func (inf *inferer) infer(expr ir.Expr, resolving map[ir.VarID]bool) Interval {
	switch exprT := expr.(type) {
	case *ir.IntImm, *ir.FloatImm:
		return Interval{Min: expr, Max: expr}
	case *ir.Var:
		rng, ok := inf.ranges[exprT.ID]
		if !ok || resolving[exprT.ID] {
			return Interval{Min: expr, Max: expr}
		}
		if resolving == nil {
			resolving = make(map[ir.VarID]bool)
		}
		resolving[exprT.ID] = true
		defer delete(resolving, exprT.ID)
		lo := inf.infer(rng.Min, resolving)
		hi := inf.infer(ir.NewBinary(ir.Add, rng.Min, rng.Extent), resolving)
		return Interval{Min: lo.Min, Max: hi.Max}
	case *ir.Binary:
		return inf.binary(exprT, resolving)
	}
	return Interval{Min: expr, Max: expr}
}

func (inf *inferer) binary(expr *ir.Binary, resolving map[ir.VarID]bool) Interval {
	switch expr.Op {
	case ir.Add, ir.Sub, ir.Mul, ir.Div, ir.Min, ir.Max:
	default:
		return Interval{Min: expr, Max: expr}
	}
	a := inf.infer(expr.X, resolving)
	b := inf.infer(expr.Y, resolving)
	switch expr.Op {
	case ir.Add:
		return Interval{
			Min: arith.Simplify(ir.NewBinary(ir.Add, a.Min, b.Min)),
			Max: arith.Simplify(ir.NewBinary(ir.Add, a.Max, b.Max)),
		}
	case ir.Sub:
		return Interval{
			Min: arith.Simplify(ir.NewBinary(ir.Sub, a.Min, b.Max)),
			Max: arith.Simplify(ir.NewBinary(ir.Sub, a.Max, b.Min)),
		}
	case ir.Mul:
		// Products are only tightened when both operands are non-negative.
		if !nonNegative(a.Min) || !nonNegative(b.Min) {
			return Interval{Min: expr, Max: expr}
		}
		return Interval{
			Min: arith.Simplify(ir.NewBinary(ir.Mul, a.Min, b.Min)),
			Max: arith.Simplify(ir.NewBinary(ir.Mul, a.Max, b.Max)),
		}
	case ir.Div:
		if !positive(b.Min) {
			return Interval{Min: expr, Max: expr}
		}
		bnd := Interval{Min: expr, Max: expr}
		if nonNegative(a.Min) {
			bnd.Min = arith.Simplify(ir.NewBinary(ir.Div, a.Min, b.Max))
		}
		if nonNegative(a.Max) {
			bnd.Max = arith.Simplify(ir.NewBinary(ir.Div, a.Max, b.Min))
		}
		return bnd
	case ir.Min:
		return Interval{
			Min: arith.Simplify(ir.NewBinary(ir.Min, a.Min, b.Min)),
			Max: arith.Simplify(ir.NewBinary(ir.Min, a.Max, b.Max)),
		}
	case ir.Max:
		return Interval{
			Min: arith.Simplify(ir.NewBinary(ir.Max, a.Min, b.Min)),
			Max: arith.Simplify(ir.NewBinary(ir.Max, a.Max, b.Max)),
		}
	}
	return Interval{Min: expr, Max: expr}
}

func nonNegative(expr ir.Expr) bool {
	return arith.CanProve(ir.NewBinary(ir.GE, expr, ir.Const(expr.Type(), 0)))
}

func positive(expr ir.Expr) bool {
	return arith.CanProve(ir.NewBinary(ir.GT, expr, ir.Const(expr.Type(), 0)))
}
