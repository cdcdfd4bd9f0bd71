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

package arith

import (
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/internal/exprdeps"
)

// LinearCoeff returns the coefficient of v in expr if expr is an affine
// function of v with a constant integer coefficient.
func LinearCoeff(expr ir.Expr, v *ir.Var) (int64, bool) {
	switch exprT := expr.(type) {
	case *ir.Var:
		if exprT.ID == v.ID {
			return 1, true
		}
		return 0, true
	case *ir.IntImm, *ir.FloatImm:
		return 0, true
	case *ir.Neg:
		c, ok := LinearCoeff(exprT.X, v)
		return -c, ok
	case *ir.Cast:
		if !exprT.Typ.IsInt() && !exprT.Typ.IsUInt() {
			return 0, !exprdeps.Uses(exprT, v)
		}
		return LinearCoeff(exprT.X, v)
	case *ir.Binary:
		return binaryCoeff(exprT, v)
	}
	return 0, !exprdeps.Uses(expr, v)
}

func binaryCoeff(expr *ir.Binary, v *ir.Var) (int64, bool) {
	switch expr.Op {
	case ir.Add, ir.Sub:
		cx, okX := LinearCoeff(expr.X, v)
		cy, okY := LinearCoeff(expr.Y, v)
		if !okX || !okY {
			return 0, false
		}
		if expr.Op == ir.Sub {
			return cx - cy, true
		}
		return cx + cy, true
	case ir.Mul:
		xUses, yUses := exprdeps.Uses(expr.X, v), exprdeps.Uses(expr.Y, v)
		switch {
		case !xUses && !yUses:
			return 0, true
		case xUses && yUses:
			return 0, false
		case xUses:
			return scaledCoeff(expr.X, expr.Y, v)
		default:
			return scaledCoeff(expr.Y, expr.X, v)
		}
	}
	return 0, !exprdeps.Uses(expr, v)
}

func scaledCoeff(term, scale ir.Expr, v *ir.Var) (int64, bool) {
	c, ok := scale.(*ir.IntImm)
	if !ok {
		return 0, false
	}
	coeff, ok := LinearCoeff(term, v)
	return coeff * c.Val, ok
}

// MixesAndOr returns true if the expression contains both a logical AND
// and a logical OR. Such a condition cannot be represented by the
// polyhedral scheduler consuming the output of the lowering passes.
func MixesAndOr(expr ir.Expr) bool {
	hasAnd, hasOr := false, false
	ir.Inspect(expr, func(e ir.Expr) bool {
		if bin, ok := e.(*ir.Binary); ok {
			hasAnd = hasAnd || bin.Op == ir.And
			hasOr = hasOr || bin.Op == ir.Or
		}
		return !(hasAnd && hasOr)
	})
	return hasAnd && hasOr
}
