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
	"math"

	"github.com/pkg/errors"
	"github.com/gx-org/tac/build/ir"
)

// Env maps variables to their values during evaluation.
type Env map[ir.VarID]float64

// Reader returns the value of a tensor element.
type Reader func(t *ir.Tensor, idx []int64) (float64, error)

// ErrNotEvaluable is wrapped by the errors returned for expressions
// without a numerical semantic, such as unknown intrinsics.
var ErrNotEvaluable = errors.New("expression cannot be evaluated")

type evaluator struct {
	env  Env
	read Reader
}

// Eval computes the numerical value of a scalar expression.
// Tensor reads and unknown intrinsics cannot be evaluated.
func Eval(expr ir.Expr, env Env) (float64, error) {
	return evaluator{env: env}.eval(expr)
}

// EvalReads computes the numerical value of an expression,
// reading tensor elements with read.
func EvalReads(expr ir.Expr, env Env, read Reader) (float64, error) {
	return evaluator{env: env, read: read}.eval(expr)
}

func (ev evaluator) eval(expr ir.Expr) (float64, error) {
	switch exprT := expr.(type) {
	case *ir.IntImm:
		return float64(exprT.Val), nil
	case *ir.FloatImm:
		return exprT.Val, nil
	case *ir.Var:
		val, ok := ev.env[exprT.ID]
		if !ok {
			return 0, errors.Errorf("variable %s has no value", exprT.Name)
		}
		return val, nil
	case *ir.Cast:
		x, err := ev.eval(exprT.X)
		if err != nil {
			return 0, err
		}
		return convert(exprT.Typ, x), nil
	case *ir.Neg:
		x, err := ev.eval(exprT.X)
		return -x, err
	case *ir.Not:
		x, err := ev.eval(exprT.X)
		return boolValue(x == 0), err
	case *ir.Select:
		cond, err := ev.eval(exprT.Cond)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return ev.eval(exprT.True)
		}
		return ev.eval(exprT.False)
	case *ir.Binary:
		return ev.binary(exprT)
	case *ir.Call:
		return ev.call(exprT)
	}
	return 0, errors.Wrapf(ErrNotEvaluable, "expression %s of type %T", expr, expr)
}

func (ev evaluator) binary(expr *ir.Binary) (float64, error) {
	x, err := ev.eval(expr.X)
	if err != nil {
		return 0, err
	}
	y, err := ev.eval(expr.Y)
	if err != nil {
		return 0, err
	}
	isInt := !expr.X.Type().IsFloat()
	switch expr.Op {
	case ir.Add:
		return x + y, nil
	case ir.Sub:
		return x - y, nil
	case ir.Mul:
		return x * y, nil
	case ir.Div:
		if y == 0 {
			return 0, errors.Errorf("division by zero in %s", expr)
		}
		if isInt {
			return float64(FloorDiv(int64(x), int64(y))), nil
		}
		return x / y, nil
	case ir.Mod:
		if y == 0 {
			return 0, errors.Errorf("modulo by zero in %s", expr)
		}
		if isInt {
			return float64(FloorMod(int64(x), int64(y))), nil
		}
		return math.Mod(x, y), nil
	case ir.Min:
		return math.Min(x, y), nil
	case ir.Max:
		return math.Max(x, y), nil
	case ir.EQ:
		return boolValue(x == y), nil
	case ir.NE:
		return boolValue(x != y), nil
	case ir.LT:
		return boolValue(x < y), nil
	case ir.LE:
		return boolValue(x <= y), nil
	case ir.GT:
		return boolValue(x > y), nil
	case ir.GE:
		return boolValue(x >= y), nil
	case ir.And:
		return boolValue(x != 0 && y != 0), nil
	case ir.Or:
		return boolValue(x != 0 || y != 0), nil
	}
	return 0, errors.Wrapf(ErrNotEvaluable, "operator %s", expr.Op)
}

var unaryIntrinsics = map[string]func(float64) float64{
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"round": math.RoundToEven,
	"trunc": math.Trunc,
	"exp":   math.Exp,
	"log":   math.Log,
	"sqrt":  math.Sqrt,
	"abs":   math.Abs,
	"relu":  func(x float64) float64 { return math.Max(x, 0) },
}

// Fused instructions, with the accumulator last except for vaxpy.
var fusedIntrinsics = map[string]func(a, b, c float64) float64{
	// vmadd(n, m, d) = n * d + m
	"vmadd": func(n, m, d float64) float64 { return n*d + m },
	// vmla(n, m, d) = n * m + d
	"vmla": func(n, m, d float64) float64 { return n*m + d },
	// vmaddrelu(n, m, d) = max(n * d + m, 0)
	"vmaddrelu": func(n, m, d float64) float64 { return math.Max(n*d+m, 0) },
	// vaxpy(x, d, imm) = imm * x + d
	"vaxpy": func(x, d, imm float64) float64 { return imm*x + d },
}

func (ev evaluator) call(expr *ir.Call) (float64, error) {
	if expr.Name == "if_then_else" && !expr.IsHalide() && len(expr.Args) == 3 {
		cond, err := ev.eval(expr.Args[0])
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return ev.eval(expr.Args[1])
		}
		return ev.eval(expr.Args[2])
	}
	args := make([]float64, len(expr.Args))
	for i, arg := range expr.Args {
		var err error
		if args[i], err = ev.eval(arg); err != nil {
			return 0, err
		}
	}
	if expr.IsHalide() {
		if ev.read == nil {
			return 0, errors.Errorf("cannot evaluate tensor read %s", expr)
		}
		idx := make([]int64, len(args))
		for i, arg := range args {
			idx[i] = int64(arg)
		}
		return ev.read(expr.Tensor, idx)
	}
	if fn, ok := unaryIntrinsics[expr.Name]; ok && len(args) == 1 {
		return convert(expr.Typ, fn(args[0])), nil
	}
	if fn, ok := fusedIntrinsics[expr.Name]; ok && len(args) == 3 {
		return convert(expr.Typ, fn(args[0], args[1], args[2])), nil
	}
	return 0, errors.Wrapf(ErrNotEvaluable, "intrinsic %s", expr.Name)
}

func convert(typ ir.Type, x float64) float64 {
	switch {
	case typ.IsBool():
		return boolValue(x != 0)
	case typ.IsInt(), typ.IsUInt():
		return math.Trunc(x)
	}
	return x
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
