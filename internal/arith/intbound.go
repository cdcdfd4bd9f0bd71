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
	"fmt"
	"math"

	"github.com/gx-org/tac/build/ir"
)

// Interval is an inclusive integer interval.
// math.MinInt64 and math.MaxInt64 stand for negative and positive infinity.
type Interval struct {
	Min, Max int64
}

const (
	negInf = math.MinInt64
	posInf = math.MaxInt64
)

var everything = Interval{Min: negInf, Max: posInf}

func (iv Interval) String() string {
	lo, hi := "-inf", "+inf"
	if iv.Min != negInf {
		lo = fmt.Sprint(iv.Min)
	}
	if iv.Max != posInf {
		hi = fmt.Sprint(iv.Max)
	}
	return "[" + lo + ", " + hi + "]"
}

func typeInterval(typ ir.Type) Interval {
	switch {
	case typ.IsBool():
		return Interval{Min: 0, Max: 1}
	case typ.IsUInt():
		return Interval{Min: 0, Max: posInf}
	}
	return everything
}

// ConstIntBound returns a conservative interval of the values an
// expression can take. Variables are unknown: only their type is used.
func ConstIntBound(expr ir.Expr) Interval {
	switch exprT := expr.(type) {
	case *ir.IntImm:
		return Interval{Min: exprT.Val, Max: exprT.Val}
	case *ir.FloatImm:
		if math.IsInf(exprT.Val, 0) || math.IsNaN(exprT.Val) || math.Abs(exprT.Val) > 1<<62 {
			return everything
		}
		return Interval{Min: int64(math.Floor(exprT.Val)), Max: int64(math.Ceil(exprT.Val))}
	case *ir.Var:
		return typeInterval(exprT.Typ)
	case *ir.Cast:
		if exprT.Typ.IsFloat() || exprT.X.Type().IsFloat() {
			return typeInterval(exprT.Typ)
		}
		return intersect(ConstIntBound(exprT.X), typeInterval(exprT.Typ))
	case *ir.Neg:
		x := ConstIntBound(exprT.X)
		return Interval{Min: neg(x.Max), Max: neg(x.Min)}
	case *ir.Not:
		return Interval{Min: 0, Max: 1}
	case *ir.Select:
		return union(ConstIntBound(exprT.True), ConstIntBound(exprT.False))
	case *ir.Binary:
		return binaryBound(exprT)
	case *ir.Call:
		return typeInterval(exprT.Typ)
	}
	return everything
}

func binaryBound(expr *ir.Binary) Interval {
	if expr.Op.IsCompare() || expr.Op.IsLogical() {
		return Interval{Min: 0, Max: 1}
	}
	x, y := ConstIntBound(expr.X), ConstIntBound(expr.Y)
	switch expr.Op {
	case ir.Add:
		return Interval{Min: add(x.Min, y.Min), Max: add(x.Max, y.Max)}
	case ir.Sub:
		return Interval{Min: add(x.Min, neg(y.Max)), Max: add(x.Max, neg(y.Min))}
	case ir.Mul:
		return mulBound(x, y)
	case ir.Div:
		if y.Min > 0 && y.Max != posInf && !expr.Type().IsFloat() {
			corners := []int64{
				divInf(x.Min, y.Min), divInf(x.Min, y.Max),
				divInf(x.Max, y.Min), divInf(x.Max, y.Max),
			}
			return hull(corners)
		}
	case ir.Mod:
		if y.Min > 0 && y.Max != posInf && !expr.Type().IsFloat() {
			if x.Min >= 0 {
				return Interval{Min: 0, Max: min(y.Max-1, x.Max)}
			}
			return Interval{Min: 0, Max: y.Max - 1}
		}
	case ir.Min:
		return Interval{Min: min(x.Min, y.Min), Max: min(x.Max, y.Max)}
	case ir.Max:
		return Interval{Min: max(x.Min, y.Min), Max: max(x.Max, y.Max)}
	}
	return typeInterval(expr.Type())
}

func mulBound(x, y Interval) Interval {
	if isInf(x.Min) || isInf(x.Max) || isInf(y.Min) || isInf(y.Max) {
		if x.Min >= 0 && y.Min >= 0 {
			return Interval{Min: mul(x.Min, y.Min), Max: mul(x.Max, y.Max)}
		}
		return everything
	}
	return hull([]int64{
		mul(x.Min, y.Min), mul(x.Min, y.Max),
		mul(x.Max, y.Min), mul(x.Max, y.Max),
	})
}

// CanProve returns true if cond can be proven to be always true.
// A false result means that the prover does not know.
func CanProve(cond ir.Expr) bool {
	cond = Simplify(cond)
	if v, ok := ir.ConstValue(cond); ok {
		return v != 0
	}
	switch condT := cond.(type) {
	case *ir.Not:
		return cannotHold(condT.X)
	case *ir.Binary:
		switch condT.Op {
		case ir.And:
			return CanProve(condT.X) && CanProve(condT.Y)
		case ir.Or:
			return CanProve(condT.X) || CanProve(condT.Y)
		}
		x, y := ConstIntBound(condT.X), ConstIntBound(condT.Y)
		return compareHolds(condT.Op, x, y)
	}
	return false
}

func cannotHold(cond ir.Expr) bool {
	bin, ok := cond.(*ir.Binary)
	if !ok || !bin.Op.IsCompare() {
		return false
	}
	x, y := ConstIntBound(bin.X), ConstIntBound(bin.Y)
	switch bin.Op {
	case ir.EQ:
		return compareHolds(ir.LT, x, y) || compareHolds(ir.GT, x, y)
	case ir.NE:
		return x.Min == x.Max && y.Min == y.Max && x.Min == y.Min && !isInf(x.Min)
	case ir.LT:
		return compareHolds(ir.GE, x, y)
	case ir.LE:
		return compareHolds(ir.GT, x, y)
	case ir.GT:
		return compareHolds(ir.LE, x, y)
	case ir.GE:
		return compareHolds(ir.LT, x, y)
	}
	return false
}

func compareHolds(op ir.Op, x, y Interval) bool {
	switch op {
	case ir.GE:
		return x.Min != negInf && y.Max != posInf && x.Min >= y.Max
	case ir.GT:
		return x.Min != negInf && y.Max != posInf && x.Min > y.Max
	case ir.LE:
		return x.Max != posInf && y.Min != negInf && x.Max <= y.Min
	case ir.LT:
		return x.Max != posInf && y.Min != negInf && x.Max < y.Min
	case ir.EQ:
		return x.Min == x.Max && y.Min == y.Max && x.Min == y.Min && !isInf(x.Min)
	case ir.NE:
		return compareHolds(ir.LT, x, y) || compareHolds(ir.GT, x, y)
	}
	return false
}

func isInf(v int64) bool {
	return v == negInf || v == posInf
}

func neg(v int64) int64 {
	switch v {
	case negInf:
		return posInf
	case posInf:
		return negInf
	}
	return -v
}

func add(a, b int64) int64 {
	switch {
	case a == negInf || b == negInf:
		return negInf
	case a == posInf || b == posInf:
		return posInf
	}
	s := a + b
	if (s > a) != (b > 0) {
		if b > 0 {
			return posInf
		}
		return negInf
	}
	return s
}

func mul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	positive := (a > 0) == (b > 0)
	if isInf(a) || isInf(b) {
		if positive {
			return posInf
		}
		return negInf
	}
	p := a * b
	if p/b != a {
		if positive {
			return posInf
		}
		return negInf
	}
	return p
}

func divInf(a, b int64) int64 {
	if isInf(a) {
		if (a > 0) == (b > 0) {
			return posInf
		}
		return negInf
	}
	return FloorDiv(a, b)
}

func hull(vs []int64) Interval {
	iv := Interval{Min: vs[0], Max: vs[0]}
	for _, v := range vs[1:] {
		iv.Min = min(iv.Min, v)
		iv.Max = max(iv.Max, v)
	}
	return iv
}

func union(x, y Interval) Interval {
	return Interval{Min: min(x.Min, y.Min), Max: max(x.Max, y.Max)}
}

func intersect(x, y Interval) Interval {
	return Interval{Min: max(x.Min, y.Min), Max: min(x.Max, y.Max)}
}
