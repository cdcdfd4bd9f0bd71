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

// Package irhelper provides helper functions to build IR programmatically.
package irhelper

import (
	"github.com/gx-org/tac/build/ir"
)

// Builder creates variables and tensors in an arena.
type Builder struct {
	Arena *ir.Arena
}

// New returns a builder with a new arena.
func New() *Builder {
	return &Builder{Arena: ir.NewArena()}
}

// Var returns a new int32 variable.
func (b *Builder) Var(name string) *ir.Var {
	return b.Arena.NewVar(name, ir.Int(32))
}

// Vars returns new int32 variables.
func (b *Builder) Vars(names ...string) []*ir.Var {
	vars := make([]*ir.Var, len(names))
	for i, name := range names {
		vars[i] = b.Var(name)
	}
	return vars
}

// Tensor returns a new tensor with a constant shape.
func (b *Builder) Tensor(name string, typ ir.Type, dims ...int) *ir.Tensor {
	shape := make([]ir.Expr, len(dims))
	for i, dim := range dims {
		shape[i] = ir.IntConst(int64(dim))
	}
	return b.Arena.NewTensor(name, typ, shape)
}

// Program returns a program owning the builder arena.
func (b *Builder) Program(stmts ...ir.Stmt) *ir.Program {
	if len(stmts) == 1 {
		return &ir.Program{Arena: b.Arena, Body: stmts[0]}
	}
	return &ir.Program{Arena: b.Arena, Body: Block(stmts...)}
}

// Loop is a loop variable with a constant extent.
type Loop struct {
	Var    *ir.Var
	Extent int
}

// Nest wraps body into loops, the first loop being the outermost.
func Nest(loops []Loop, body ir.Stmt) ir.Stmt {
	for i := len(loops) - 1; i >= 0; i-- {
		body = &ir.For{
			Var:    loops[i].Var,
			Min:    ir.IntConst(0),
			Extent: ir.IntConst(int64(loops[i].Extent)),
			Body:   body,
		}
	}
	return body
}

// Compute returns the statement computing t[idx...] = value for every index
// of t, wrapped in the realize scaffolding of t.
// Extra loops (typically reduction axes) are nested inside the loops of t.
func Compute(t *ir.Tensor, idx []*ir.Var, value ir.Expr, extra ...Loop) ir.Stmt {
	loops := make([]Loop, 0, len(idx)+len(extra))
	bounds := make([]ir.Range, len(t.Shape))
	for i, v := range idx {
		dim, _ := ir.ConstValue(t.Shape[i])
		loops = append(loops, Loop{Var: v, Extent: int(dim)})
	}
	for i, dim := range t.Shape {
		bounds[i] = ir.Range{Min: ir.IntConst(0), Extent: dim}
	}
	loops = append(loops, extra...)
	provide := &ir.Provide{Tensor: t, Args: Exprs(idx...), Value: value}
	return &ir.Attr{
		Tensor: t,
		Key:    ir.RealizeScope,
		Value:  ir.IntConst(0),
		Body: &ir.Realize{
			Tensor: t,
			Bounds: bounds,
			Cond:   ir.BoolConst(true),
			Body:   Nest(loops, provide),
		},
	}
}

// Block returns a block of statement.
func Block(stmts ...ir.Stmt) *ir.Block {
	return &ir.Block{List: stmts}
}

// Exprs converts variables into expressions.
func Exprs(vars ...*ir.Var) []ir.Expr {
	exprs := make([]ir.Expr, len(vars))
	for i, v := range vars {
		exprs[i] = v
	}
	return exprs
}

// Read returns a read of a tensor indexed by variables.
func Read(t *ir.Tensor, idx ...*ir.Var) *ir.Call {
	return ir.Read(t, Exprs(idx...)...)
}

// F32 returns a float32 immediate.
func F32(v float64) *ir.FloatImm {
	return &ir.FloatImm{Typ: ir.Float(32), Val: v}
}

// F16 returns a float16 immediate.
func F16(v float64) *ir.FloatImm {
	return &ir.FloatImm{Typ: ir.Float(16), Val: v}
}

// Int returns an int32 immediate.
func Int(v int64) *ir.IntImm {
	return ir.IntConst(v)
}

// Add returns x + y.
func Add(x, y ir.Expr) *ir.Binary { return ir.NewBinary(ir.Add, x, y) }

// Sub returns x - y.
func Sub(x, y ir.Expr) *ir.Binary { return ir.NewBinary(ir.Sub, x, y) }

// Mul returns x * y.
func Mul(x, y ir.Expr) *ir.Binary { return ir.NewBinary(ir.Mul, x, y) }

// Div returns x / y.
func Div(x, y ir.Expr) *ir.Binary { return ir.NewBinary(ir.Div, x, y) }

// Min returns min(x, y).
func Min(x, y ir.Expr) *ir.Binary { return ir.NewBinary(ir.Min, x, y) }

// Max returns max(x, y).
func Max(x, y ir.Expr) *ir.Binary { return ir.NewBinary(ir.Max, x, y) }

// And returns x && y.
func And(x, y ir.Expr) *ir.Binary { return ir.NewBinary(ir.And, x, y) }

// Or returns x || y.
func Or(x, y ir.Expr) *ir.Binary { return ir.NewBinary(ir.Or, x, y) }

// LT returns x < y.
func LT(x, y ir.Expr) *ir.Binary { return ir.NewBinary(ir.LT, x, y) }

// GT returns x > y.
func GT(x, y ir.Expr) *ir.Binary { return ir.NewBinary(ir.GT, x, y) }

// Select returns select(cond, t, f).
func Select(cond, t, f ir.Expr) *ir.Select {
	return &ir.Select{Cond: cond, True: t, False: f}
}

// Cast returns a conversion of x to typ.
func Cast(typ ir.Type, x ir.Expr) *ir.Cast {
	return &ir.Cast{Typ: typ, X: x}
}
