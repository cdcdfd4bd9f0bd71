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
	"github.com/gx-org/tac/internal/arith"
	"github.com/gx-org/tac/internal/exprdeps"
)

// Scores of the rules.
const (
	unmatch = -1
	normal  = 20
	prior   = 50
)

// Placeholders shared by all the patterns of the catalog.
// Bindings are returned by each match: rules can be matched while
// another rule is being rewritten.
var (
	px = arith.NewVar("x")
	py = arith.NewVar("y")
	pz = arith.NewVar("z")
	pw = arith.NewVar("w")

	pc1 = arith.NewConstVar("c1")
	pc2 = arith.NewConstVar("c2")

	pt = arith.NewTypeVar("t")
)

type (
	// rule fuses or simplifies an expression matching one of its patterns.
	rule struct {
		name     string
		minLevel int
		patterns []arith.Pattern
		// score returns the score of a match of the alt-th pattern,
		// or unmatch if the rule cannot be applied.
		score   func(b *arith.Bindings, alt int) int
		rewrite func(m *exprMutator, expr ir.Expr, b *arith.Bindings, alt int) ir.Expr
	}

	// selection is the rule with the highest score for an expression.
	selection struct {
		rule     *rule
		bindings *arith.Bindings
		alt      int
	}
)

func (r *rule) match(expr ir.Expr) (int, *arith.Bindings, int) {
	for start := 0; start < len(r.patterns); {
		b, i, ok := arith.MatchAny(expr, r.patterns[start:]...)
		if !ok {
			break
		}
		alt := start + i
		if s := r.score(b, alt); s > unmatch {
			return s, b, alt
		}
		start = alt + 1
	}
	return unmatch, nil, -1
}

// selectRule returns the rule with the highest score.
// Ties are broken by the order of the catalog.
func selectRule(rules []*rule, expr ir.Expr) (selection, bool) {
	best := unmatch
	var sel selection
	for _, r := range rules {
		s, b, alt := r.match(expr)
		if s > best {
			best = s
			sel = selection{rule: r, bindings: b, alt: alt}
		}
	}
	return sel, best > unmatch
}

func nonConst(b *arith.Bindings, vs ...*arith.Var) bool {
	for _, v := range vs {
		if ir.IsConst(b.Expr(v)) {
			return false
		}
	}
	return true
}

func sameVarCount(exprs ...ir.Expr) bool {
	n := exprdeps.Count(exprs[0])
	for _, expr := range exprs[1:] {
		if exprdeps.Count(expr) != n {
			return false
		}
	}
	return true
}

func mul(x, y ir.Expr) ir.Expr { return ir.NewBinary(ir.Mul, x, y) }

func add(x, y ir.Expr) ir.Expr { return ir.NewBinary(ir.Add, x, y) }

func sub(x, y ir.Expr) ir.Expr { return ir.NewBinary(ir.Sub, x, y) }

var rounding = []string{"floor", "ceil", "round", "trunc"}

// catalog is the ordered list of rules.
var catalog = []*rule{
	{
		// vmadd: [Xd] = [Xn] * [Xd] + [Xm]
		// vmla:  [Xd] = [Xn] * [Xm] + [Xd]
		name:     "fma",
		minLevel: 1,
		patterns: []arith.Pattern{
			arith.Add(arith.Mul(px, py), pz),
			arith.Add(pz, arith.Mul(px, py)),
		},
		score: func(b *arith.Bindings, _ int) int {
			if !nonConst(b, px, py, pz) {
				return unmatch
			}
			return prior
		},
		rewrite: rewriteFMA,
	},
	{
		// vmaddrelu: [Xd] = max([Xn] * [Xd] + [Xm], 0)
		name:     "vmaddrelu",
		minLevel: 1,
		patterns: []arith.Pattern{
			arith.Max(arith.Add(arith.Mul(px, py), pz), pc1),
			arith.Max(arith.Add(pz, arith.Mul(px, py)), pc1),
			arith.Max(pc1, arith.Add(arith.Mul(px, py), pz)),
			arith.Max(pc1, arith.Add(pz, arith.Mul(px, py))),
		},
		score: func(b *arith.Bindings, _ int) int {
			if b.Const(pc1).Val != 0 || !nonConst(b, px, py, pz) {
				return unmatch
			}
			return prior
		},
		rewrite: rewriteFMARelu,
	},
	{
		// vaxpy: [Xd] = imm * [Xn] + [Xd]
		name:     "vaxpy",
		minLevel: 1,
		patterns: []arith.Pattern{
			arith.Add(arith.Mul(pc1, px), py),
			arith.Add(arith.Mul(px, pc1), py),
			arith.Add(py, arith.Mul(pc1, px)),
			arith.Add(py, arith.Mul(px, pc1)),
		},
		score: func(b *arith.Bindings, _ int) int {
			if !nonConst(b, px, py) {
				return unmatch
			}
			return prior
		},
		rewrite: rewriteAXPY,
	},
	{
		// vrelu: [Xd] = max([Xn], 0)
		name:     "vrelu",
		minLevel: 1,
		patterns: []arith.Pattern{
			arith.Max(px, pc1),
			arith.Max(pc1, px),
		},
		score: func(b *arith.Bindings, _ int) int {
			x := b.Expr(px)
			if b.Const(pc1).Val != 0 || ir.IsConst(x) || x.Type() != ir.Float(16) {
				return unmatch
			}
			return normal
		},
		rewrite: func(m *exprMutator, expr ir.Expr, b *arith.Bindings, _ int) ir.Expr {
			x := m.mutate(b.Expr(px))
			return m.mutate(ir.Intrinsic(x.Type(), "relu", x))
		},
	},
	{
		// ([Xn] +/- [Yn]) + imm -> [Xn] + ([Yn] + imm)
		name:     "adds",
		minLevel: 1,
		patterns: []arith.Pattern{
			arith.Add(arith.Sub(px, py), pc1),
			arith.Add(pc1, arith.Sub(px, py)),
			arith.Add(arith.Add(px, py), pc1),
			arith.Add(pc1, arith.Add(px, py)),
		},
		score: func(b *arith.Bindings, _ int) int {
			if !nonConst(b, px, py) {
				return unmatch
			}
			return normal
		},
		rewrite: func(m *exprMutator, expr ir.Expr, b *arith.Bindings, alt int) ir.Expr {
			x := m.mutate(b.Expr(px))
			y := m.mutate(b.Expr(py))
			c := b.Const(pc1)
			if alt < 2 {
				return m.mutate(add(x, sub(c, y)))
			}
			return m.mutate(add(x, add(y, c)))
		},
	},
	{
		// int(floor(x)) -> floor(x) computed in the integer type.
		name:     "rounding",
		minLevel: 1,
		patterns: []arith.Pattern{
			arith.Cast(pt, arith.Intrinsic(rounding[0], px)),
			arith.Cast(pt, arith.Intrinsic(rounding[1], px)),
			arith.Cast(pt, arith.Intrinsic(rounding[2], px)),
			arith.Cast(pt, arith.Intrinsic(rounding[3], px)),
		},
		score: func(b *arith.Bindings, _ int) int {
			if !b.Type(pt).IsInt() {
				return unmatch
			}
			return normal
		},
		rewrite: func(m *exprMutator, expr ir.Expr, b *arith.Bindings, alt int) ir.Expr {
			x := m.mutate(b.Expr(px))
			return m.mutate(ir.Intrinsic(expr.Type(), rounding[alt], x))
		},
	},
	{
		// float(v) -> t = v; float(t)
		name:     "scalar_cast",
		minLevel: 1,
		patterns: []arith.Pattern{
			arith.Cast(pt, px),
		},
		score: func(b *arith.Bindings, _ int) int {
			if _, isVar := b.Expr(px).(*ir.Var); !isVar || !b.Type(pt).IsFloat() {
				return unmatch
			}
			return normal
		},
		rewrite: func(m *exprMutator, expr ir.Expr, b *arith.Bindings, _ int) ir.Expr {
			tmp := m.allocate(b.Expr(px))
			return m.mutate(&ir.Cast{Typ: expr.Type(), X: tmp})
		},
	},
	{
		// imm / x -> t = imm; t / x
		name:     "reciprocal",
		minLevel: 1,
		patterns: []arith.Pattern{
			arith.Div(pc1, py),
		},
		score: func(b *arith.Bindings, _ int) int {
			if !nonConst(b, py) {
				return unmatch
			}
			return normal
		},
		rewrite: func(m *exprMutator, expr ir.Expr, b *arith.Bindings, _ int) ir.Expr {
			tmp := m.allocate(b.Const(pc1))
			return m.mutate(ir.NewBinary(ir.Div, tmp, b.Expr(py)))
		},
	},
	{
		// c1 * (c2 +/- x) -> x * c1 +/- c1 * c2
		name:     "distribute",
		minLevel: 1,
		patterns: []arith.Pattern{
			arith.Mul(pc1, arith.Add(pc2, px)),
			arith.Mul(pc1, arith.Sub(pc2, px)),
		},
		score: func(*arith.Bindings, int) int { return normal },
		rewrite: func(m *exprMutator, expr ir.Expr, b *arith.Bindings, alt int) ir.Expr {
			x, c1, c2 := b.Expr(px), b.Const(pc1), b.Const(pc2)
			if alt == 0 {
				return m.mutate(arith.Simplify(add(mul(x, c1), mul(c1, c2))))
			}
			return m.mutate(arith.Simplify(sub(mul(c1, c2), mul(x, c1))))
		},
	},
	{
		// Conditions mixing logical operators are split into nested selects.
		name:     "select",
		minLevel: 1,
		patterns: []arith.Pattern{
			arith.Select(arith.Or(pz, pw), px, py),
			arith.Select(arith.And(pz, pw), px, py),
			arith.Select(arith.Not(pz), px, py),
		},
		score: func(*arith.Bindings, int) int { return normal },
		rewrite: func(m *exprMutator, expr ir.Expr, b *arith.Bindings, alt int) ir.Expr {
			x, y, z, w := b.Expr(px), b.Expr(py), b.Expr(pz), b.Expr(pw)
			switch alt {
			case 0:
				inner := m.mutate(&ir.Select{Cond: z, True: x, False: y})
				return m.mutate(&ir.Select{Cond: w, True: x, False: inner})
			case 1:
				inner := m.mutate(&ir.Select{Cond: z, True: x, False: y})
				return m.mutate(&ir.Select{Cond: w, True: inner, False: y})
			default:
				return m.mutate(&ir.Select{Cond: z, True: y, False: x})
			}
		},
	},
}

func rewriteFMA(m *exprMutator, expr ir.Expr, b *arith.Bindings, _ int) ir.Expr {
	x := m.mutate(b.Expr(px))
	y := m.mutate(b.Expr(py))
	z := m.mutate(b.Expr(pz))
	if !sameVarCount(x, y, z) {
		return m.mutateWithoutSelection(add(mul(x, y), z))
	}
	switch {
	case m.canOverwrite(x):
		return m.assignTmp(x, ir.Intrinsic(x.Type(), "vmadd", y, z, x))
	case m.canOverwrite(y):
		return m.assignTmp(y, ir.Intrinsic(y.Type(), "vmadd", x, z, y))
	case m.canOverwrite(z):
		return m.assignTmp(z, ir.Intrinsic(z.Type(), "vmla", x, y, z))
	case m.level == 1:
		return ir.Intrinsic(z.Type(), "vmla", x, y, z)
	}
	return m.mutateWithoutSelection(add(mul(x, y), z))
}

func rewriteFMARelu(m *exprMutator, expr ir.Expr, b *arith.Bindings, _ int) ir.Expr {
	x := m.mutate(b.Expr(px))
	y := m.mutate(b.Expr(py))
	z := m.mutate(b.Expr(pz))
	c := b.Const(pc1)
	if !sameVarCount(x, y, z) {
		return m.mutateWithoutSelection(ir.NewBinary(ir.Max, add(mul(x, y), z), c))
	}
	switch {
	case m.canOverwrite(x):
		return m.assignTmp(x, ir.Intrinsic(x.Type(), "vmaddrelu", y, z, x))
	case m.canOverwrite(y):
		return m.assignTmp(y, ir.Intrinsic(y.Type(), "vmaddrelu", x, z, y))
	case m.level == 1:
		return ir.Intrinsic(x.Type(), "vmaddrelu", y, z, x)
	}
	return m.mutateWithoutSelection(ir.NewBinary(ir.Max, add(mul(x, y), z), c))
}

func rewriteAXPY(m *exprMutator, expr ir.Expr, b *arith.Bindings, _ int) ir.Expr {
	x := m.mutate(b.Expr(px))
	y := m.mutate(b.Expr(py))
	c := b.Const(pc1)
	if !sameVarCount(x, y) {
		return m.mutateWithoutSelection(add(mul(c, x), y))
	}
	switch {
	case m.canOverwrite(y):
		return m.assignTmp(y, ir.Intrinsic(y.Type(), "vaxpy", x, y, c))
	case m.level == 1:
		return ir.Intrinsic(y.Type(), "vaxpy", x, y, c)
	}
	return m.mutateWithoutSelection(add(mul(c, x), y))
}
