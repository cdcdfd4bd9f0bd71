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

// Package arith provides arithmetic services over IR expressions:
// simplification, integer range proofs, pattern matching and evaluation.
package arith

import (
	"math"

	"github.com/gx-org/tac/build/fmterr"
	"github.com/gx-org/tac/build/ir"
)

// Simplify returns a simplified version of an expression.
// Simplify never introduces new operators. Sub-trees left unchanged
// keep their identity, so that side tables keyed by nodes stay valid.
func Simplify(expr ir.Expr) ir.Expr {
	kids := ir.Children(expr)
	if len(kids) == 0 {
		return expr
	}
	simplified := make([]ir.Expr, len(kids))
	for i, kid := range kids {
		simplified[i] = Simplify(kid)
	}
	expr = ir.WithChildren(expr, simplified)
	switch exprT := expr.(type) {
	case *ir.Binary:
		return simplifyBinary(exprT)
	case *ir.Neg:
		return simplifyNeg(exprT)
	case *ir.Not:
		return simplifyNot(exprT)
	case *ir.Cast:
		return simplifyCast(exprT)
	case *ir.Select:
		return simplifySelect(exprT)
	case *ir.Call:
		return expr
	default:
		fmterr.Fail("expression type %T not supported", expr)
	}
	return expr
}

// SimplifyStmt simplifies all the expressions of a statement tree.
func SimplifyStmt(stmt ir.Stmt) ir.Stmt {
	return ir.MapStmtExprs(stmt, Simplify)
}

func simplifyBinary(expr *ir.Binary) ir.Expr {
	if folded := foldBinary(expr); folded != nil {
		return folded
	}
	x, y := expr.X, expr.Y
	typ := expr.Type()
	isInt := typ.IsInt() || typ.IsUInt()
	switch expr.Op {
	case ir.Add:
		if ir.IsZero(y) {
			return x
		}
		if ir.IsZero(x) {
			return y
		}
		if isInt {
			return reassociate(expr)
		}
	case ir.Sub:
		if ir.IsZero(y) {
			return x
		}
		if isInt && ir.Equal(x, y) {
			return ir.Const(typ, 0)
		}
		if isInt {
			return reassociate(expr)
		}
	case ir.Mul:
		if ir.IsConstValue(y, 1) {
			return x
		}
		if ir.IsConstValue(x, 1) {
			return y
		}
		if isInt && (ir.IsZero(x) || ir.IsZero(y)) {
			return ir.Const(typ, 0)
		}
		if isInt {
			return reassociate(expr)
		}
	case ir.Div:
		if ir.IsConstValue(y, 1) {
			return x
		}
	case ir.Min, ir.Max:
		if ir.Equal(x, y) {
			return x
		}
	case ir.And:
		if v, ok := ir.ConstValue(x); ok {
			if v == 0 {
				return x
			}
			return y
		}
		if v, ok := ir.ConstValue(y); ok {
			if v == 0 {
				return y
			}
			return x
		}
	case ir.Or:
		if v, ok := ir.ConstValue(x); ok {
			if v != 0 {
				return x
			}
			return y
		}
		if v, ok := ir.ConstValue(y); ok {
			if v != 0 {
				return y
			}
			return x
		}
	}
	return expr
}

// reassociate folds nested integer constants:
// (x op1 c1) op2 c2 -> x op (c1 op' c2).
func reassociate(expr *ir.Binary) ir.Expr {
	c2, ok := expr.Y.(*ir.IntImm)
	if !ok {
		return expr
	}
	inner, ok := expr.X.(*ir.Binary)
	if !ok {
		return expr
	}
	c1, ok := inner.Y.(*ir.IntImm)
	if !ok || c1.Typ != c2.Typ {
		return expr
	}
	typ := c1.Typ
	switch {
	case expr.Op == ir.Mul && inner.Op == ir.Mul:
		return ir.NewBinary(ir.Mul, inner.X, ir.Const(typ, float64(c1.Val*c2.Val)))
	case isAdditive(expr.Op) && isAdditive(inner.Op):
		c := c1.Val
		if inner.Op == ir.Sub {
			c = -c
		}
		if expr.Op == ir.Add {
			c += c2.Val
		} else {
			c -= c2.Val
		}
		if c == 0 {
			return inner.X
		}
		if c < 0 && !typ.IsUInt() {
			return ir.NewBinary(ir.Sub, inner.X, ir.Const(typ, float64(-c)))
		}
		return ir.NewBinary(ir.Add, inner.X, ir.Const(typ, float64(c)))
	}
	return expr
}

func isAdditive(op ir.Op) bool {
	return op == ir.Add || op == ir.Sub
}

func foldBinary(expr *ir.Binary) ir.Expr {
	x, xOk := ir.ConstValue(expr.X)
	y, yOk := ir.ConstValue(expr.Y)
	if !xOk || !yOk {
		return nil
	}
	operandType := expr.X.Type()
	isInt := !operandType.IsFloat()
	var val float64
	switch expr.Op {
	case ir.Add:
		val = x + y
	case ir.Sub:
		val = x - y
	case ir.Mul:
		val = x * y
	case ir.Div:
		if y == 0 {
			return nil
		}
		if isInt {
			val = float64(FloorDiv(int64(x), int64(y)))
		} else {
			val = x / y
		}
	case ir.Mod:
		if y == 0 || !isInt {
			return nil
		}
		val = float64(FloorMod(int64(x), int64(y)))
	case ir.Min:
		val = math.Min(x, y)
	case ir.Max:
		val = math.Max(x, y)
	case ir.EQ:
		return ir.BoolConst(x == y)
	case ir.NE:
		return ir.BoolConst(x != y)
	case ir.LT:
		return ir.BoolConst(x < y)
	case ir.LE:
		return ir.BoolConst(x <= y)
	case ir.GT:
		return ir.BoolConst(x > y)
	case ir.GE:
		return ir.BoolConst(x >= y)
	case ir.And:
		return ir.BoolConst(x != 0 && y != 0)
	case ir.Or:
		return ir.BoolConst(x != 0 || y != 0)
	default:
		return nil
	}
	return ir.Const(expr.Type(), val)
}

func simplifyNeg(expr *ir.Neg) ir.Expr {
	if v, ok := ir.ConstValue(expr.X); ok {
		return ir.Const(expr.Type(), -v)
	}
	if inner, ok := expr.X.(*ir.Neg); ok {
		return inner.X
	}
	return expr
}

func simplifyNot(expr *ir.Not) ir.Expr {
	if v, ok := ir.ConstValue(expr.X); ok {
		return ir.BoolConst(v == 0)
	}
	if inner, ok := expr.X.(*ir.Not); ok {
		return inner.X
	}
	return expr
}

func simplifyCast(expr *ir.Cast) ir.Expr {
	if expr.X.Type() == expr.Typ {
		return expr.X
	}
	if v, ok := ir.ConstValue(expr.X); ok {
		return ir.Const(expr.Typ, v)
	}
	return expr
}

func simplifySelect(expr *ir.Select) ir.Expr {
	if v, ok := ir.ConstValue(expr.Cond); ok {
		if v != 0 {
			return expr.True
		}
		return expr.False
	}
	if ir.Equal(expr.True, expr.False) {
		return expr.True
	}
	return expr
}

// FloorDiv returns x/y rounded towards negative infinity.
func FloorDiv(x, y int64) int64 {
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q
}

// FloorMod returns x modulo y with the sign of y.
func FloorMod(x, y int64) int64 {
	return x - FloorDiv(x, y)*y
}
