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
	"strings"

	"github.com/gx-org/tac/build/ir"
)

type (
	// Pattern is a template expression with placeholders.
	Pattern interface {
		fmt.Stringer
		match(*Bindings, ir.Expr) bool
	}

	// Var is a placeholder matching any sub-expression.
	// All occurrences of a placeholder in a pattern must match
	// structurally equal sub-expressions.
	Var struct {
		name string
	}

	// ConstVar is a placeholder matching a floating point immediate.
	ConstVar struct {
		name string
	}

	// TypeVar is a placeholder matching a scalar type.
	TypeVar struct {
		name string
	}

	binaryPattern struct {
		op   ir.Op
		x, y Pattern
	}

	notPattern struct {
		x Pattern
	}

	selectPattern struct {
		cond, t, f Pattern
	}

	castPattern struct {
		typ *TypeVar
		x   Pattern
	}

	callPattern struct {
		name string
		args []Pattern
	}
)

// Bindings are the values bound to placeholders by a successful match.
// Each match returns its own bindings so that matching is reentrant.
type Bindings struct {
	exprs  map[*Var]ir.Expr
	consts map[*ConstVar]*ir.FloatImm
	types  map[*TypeVar]ir.Type
}

func newBindings() *Bindings {
	return &Bindings{
		exprs:  make(map[*Var]ir.Expr),
		consts: make(map[*ConstVar]*ir.FloatImm),
		types:  make(map[*TypeVar]ir.Type),
	}
}

// Expr returns the expression bound to a placeholder.
func (b *Bindings) Expr(v *Var) ir.Expr {
	return b.exprs[v]
}

// Const returns the immediate bound to a placeholder.
func (b *Bindings) Const(v *ConstVar) *ir.FloatImm {
	return b.consts[v]
}

// Type returns the type bound to a placeholder.
func (b *Bindings) Type(v *TypeVar) ir.Type {
	return b.types[v]
}

// NewVar returns a new expression placeholder.
func NewVar(name string) *Var {
	return &Var{name: name}
}

// NewConstVar returns a new floating point immediate placeholder.
func NewConstVar(name string) *ConstVar {
	return &ConstVar{name: name}
}

// NewTypeVar returns a new type placeholder.
func NewTypeVar(name string) *TypeVar {
	return &TypeVar{name: name}
}

func (v *Var) match(b *Bindings, expr ir.Expr) bool {
	if bound, ok := b.exprs[v]; ok {
		return ir.Equal(bound, expr)
	}
	b.exprs[v] = expr
	return true
}

func (v *Var) String() string { return v.name }

func (v *ConstVar) match(b *Bindings, expr ir.Expr) bool {
	imm, ok := expr.(*ir.FloatImm)
	if !ok {
		return false
	}
	if bound, ok := b.consts[v]; ok {
		return bound.Val == imm.Val && bound.Typ == imm.Typ
	}
	b.consts[v] = imm
	return true
}

func (v *ConstVar) String() string { return v.name }

func (v *TypeVar) String() string { return v.name }

func (p *binaryPattern) match(b *Bindings, expr ir.Expr) bool {
	bin, ok := expr.(*ir.Binary)
	if !ok || bin.Op != p.op {
		return false
	}
	return p.x.match(b, bin.X) && p.y.match(b, bin.Y)
}

func (p *binaryPattern) String() string {
	if p.op == ir.Min || p.op == ir.Max {
		return fmt.Sprintf("%s(%s, %s)", p.op, p.x, p.y)
	}
	return fmt.Sprintf("(%s %s %s)", p.x, p.op, p.y)
}

func (p *notPattern) match(b *Bindings, expr ir.Expr) bool {
	not, ok := expr.(*ir.Not)
	return ok && p.x.match(b, not.X)
}

func (p *notPattern) String() string { return "!" + p.x.String() }

func (p *selectPattern) match(b *Bindings, expr ir.Expr) bool {
	sel, ok := expr.(*ir.Select)
	if !ok {
		return false
	}
	return p.cond.match(b, sel.Cond) && p.t.match(b, sel.True) && p.f.match(b, sel.False)
}

func (p *selectPattern) String() string {
	return fmt.Sprintf("select(%s, %s, %s)", p.cond, p.t, p.f)
}

func (p *castPattern) match(b *Bindings, expr ir.Expr) bool {
	cast, ok := expr.(*ir.Cast)
	if !ok {
		return false
	}
	if bound, ok := b.types[p.typ]; ok && bound != cast.Typ {
		return false
	}
	b.types[p.typ] = cast.Typ
	return p.x.match(b, cast.X)
}

func (p *castPattern) String() string {
	return fmt.Sprintf("cast<%s>(%s)", p.typ, p.x)
}

func (p *callPattern) match(b *Bindings, expr ir.Expr) bool {
	call, ok := expr.(*ir.Call)
	if !ok || call.IsHalide() || call.Name != p.name || len(call.Args) != len(p.args) {
		return false
	}
	for i, arg := range p.args {
		if !arg.match(b, call.Args[i]) {
			return false
		}
	}
	return true
}

func (p *callPattern) String() string {
	args := make([]string, len(p.args))
	for i, arg := range p.args {
		args[i] = arg.String()
	}
	return p.name + "(" + strings.Join(args, ", ") + ")"
}

// Binary returns a pattern matching a binary operation.
func Binary(op ir.Op, x, y Pattern) Pattern {
	return &binaryPattern{op: op, x: x, y: y}
}

// Add returns the pattern x + y.
func Add(x, y Pattern) Pattern { return Binary(ir.Add, x, y) }

// Sub returns the pattern x - y.
func Sub(x, y Pattern) Pattern { return Binary(ir.Sub, x, y) }

// Mul returns the pattern x * y.
func Mul(x, y Pattern) Pattern { return Binary(ir.Mul, x, y) }

// Div returns the pattern x / y.
func Div(x, y Pattern) Pattern { return Binary(ir.Div, x, y) }

// Max returns the pattern max(x, y).
func Max(x, y Pattern) Pattern { return Binary(ir.Max, x, y) }

// Min returns the pattern min(x, y).
func Min(x, y Pattern) Pattern { return Binary(ir.Min, x, y) }

// And returns the pattern x && y.
func And(x, y Pattern) Pattern { return Binary(ir.And, x, y) }

// Or returns the pattern x || y.
func Or(x, y Pattern) Pattern { return Binary(ir.Or, x, y) }

// Not returns the pattern !x.
func Not(x Pattern) Pattern { return &notPattern{x: x} }

// Select returns the pattern select(cond, t, f).
func Select(cond, t, f Pattern) Pattern {
	return &selectPattern{cond: cond, t: t, f: f}
}

// Cast returns a pattern matching a conversion of x to any type,
// binding the target type to typ.
func Cast(typ *TypeVar, x Pattern) Pattern {
	return &castPattern{typ: typ, x: x}
}

// Intrinsic returns a pattern matching a call to a named intrinsic.
func Intrinsic(name string, args ...Pattern) Pattern {
	return &callPattern{name: name, args: args}
}

// Match matches an expression against a pattern.
// It returns the bindings of the placeholders if the match succeeds.
func Match(p Pattern, expr ir.Expr) (*Bindings, bool) {
	b := newBindings()
	if !p.match(b, expr) {
		return nil, false
	}
	return b, true
}

// MatchAny matches an expression against a list of patterns.
// It returns the bindings of the first matching pattern and its index.
func MatchAny(expr ir.Expr, ps ...Pattern) (*Bindings, int, bool) {
	for i, p := range ps {
		if b, ok := Match(p, expr); ok {
			return b, i, true
		}
	}
	return nil, -1, false
}
