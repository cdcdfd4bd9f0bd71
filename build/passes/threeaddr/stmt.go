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
	"log/slog"

	"github.com/gx-org/tac/base/ordered"
	"github.com/gx-org/tac/base/uname"
	"github.com/gx-org/tac/build/fmterr"
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/internal/arith"
	"github.com/gx-org/tac/internal/bound"
	"github.com/gx-org/tac/internal/exprdeps"
)

// stmtMutator lowers every assignment of a program and realizes the
// temporaries it introduces next to the output they were split from.
type stmtMutator struct {
	opts   Options
	log    *slog.Logger
	arena  *ir.Arena
	names  *uname.Unique
	hash   func(ir.Expr) uint64
	global map[uint64]cseEntry

	dom bound.Ranges
	// temps introduced for each output, in order of creation.
	temps *ordered.Map[ir.TensorID, []*ir.Tensor]
	// pending are the temporaries not realized yet.
	pending   map[ir.TensorID][]*ir.Tensor
	realizeOf map[ir.TensorID]*ir.Realize
	attrOf    map[ir.TensorID]*ir.Attr
}

func newStmtMutator(arena *ir.Arena, opts Options) *stmtMutator {
	names := uname.New()
	for _, t := range arena.Tensors() {
		names.Register(t.Name)
	}
	return &stmtMutator{
		opts:      opts,
		log:       opts.logger(),
		arena:     arena,
		names:     names,
		hash:      opts.hasher(),
		global:    make(map[uint64]cseEntry),
		dom:       make(bound.Ranges),
		temps:     ordered.NewMap[ir.TensorID, []*ir.Tensor](),
		pending:   make(map[ir.TensorID][]*ir.Tensor),
		realizeOf: make(map[ir.TensorID]*ir.Realize),
		attrOf:    make(map[ir.TensorID]*ir.Attr),
	}
}

func (p *stmtMutator) mutate(stmt ir.Stmt) ir.Stmt {
	if stmt == nil {
		return nil
	}
	switch stmtT := stmt.(type) {
	case *ir.Provide:
		return p.mutateProvide(stmtT)
	case *ir.Block:
		list := make([]ir.Stmt, len(stmtT.List))
		for i, s := range stmtT.List {
			list[i] = p.mutate(s)
		}
		return &ir.Block{List: list}
	case *ir.For:
		p.dom[stmtT.Var.ID] = ir.Range{Min: stmtT.Min, Extent: stmtT.Extent}
		return &ir.For{
			Var:    stmtT.Var,
			Min:    stmtT.Min,
			Extent: stmtT.Extent,
			Body:   p.mutate(stmtT.Body),
		}
	case *ir.Realize:
		p.realizeOf[stmtT.Tensor.ID] = stmtT
		return &ir.Realize{
			Tensor: stmtT.Tensor,
			Bounds: stmtT.Bounds,
			Cond:   stmtT.Cond,
			Body:   p.mutate(stmtT.Body),
		}
	case *ir.Attr:
		return p.mutateAttr(stmtT)
	case *ir.IfThenElse:
		return &ir.IfThenElse{
			Cond: stmtT.Cond,
			Then: p.mutate(stmtT.Then),
			Else: p.mutate(stmtT.Else),
		}
	case *ir.Evaluate:
		return stmt
	}
	fmterr.Fail("statement %T not supported", stmt)
	return nil
}

// simplifyLegal simplifies an expression unless the simplification
// produces a condition mixing logical operators.
func simplifyLegal(expr ir.Expr) ir.Expr {
	simplified := arith.Simplify(expr)
	if arith.MixesAndOr(simplified) {
		return expr
	}
	return simplified
}

func (p *stmtMutator) mutateProvide(stmt *ir.Provide) ir.Stmt {
	if isPassThrough(stmt.Value) {
		return stmt
	}
	reduction := isReduction(stmt)
	value := simplifyLegal(stmt.Value)
	args, shape := stmt.Args, stmt.Tensor.Shape
	if reduction {
		args, shape = reorderReduction(stmt, value, p.dom)
	}
	fmterr.Check(len(args) == len(shape), "%s: index has %d axes but shape has %d", stmt.Tensor.Name, len(args), len(shape))
	if len(shape) == 0 {
		args = []ir.Expr{ir.IntConst(0)}
		shape = []ir.Expr{ir.IntConst(1)}
	}
	m := &exprMutator{
		stmt:        p,
		rules:       catalog,
		output:      stmt.Tensor,
		args:        args,
		shape:       shape,
		broadcast:   findBroadcasts(stmt.Tensor, args, value),
		reduction:   reduction,
		cross:       p.opts.CrossStatementSimplify,
		cache:       newCSECache(p.hash),
		expandFloat: []bool{true},
		tempIDs:     make(map[ir.TensorID]bool),
		shared:      make(map[ir.TensorID]bool),
	}
	if m.cross {
		m.cache.load(p.global)
	}
	value = m.mutate(value)
	value = m.removeLastCopy(value)
	if m.cross {
		p.global = m.cache.snapshot()
	}
	if p.opts.ReuseVariable && !m.cross && len(m.assigns) > p.opts.MinimumSplit {
		var replaced int
		value, replaced = m.reuseTemps(value)
		p.log.Debug("reused temporaries",
			"output", stmt.Tensor.Name,
			"replaced", replaced,
			"total", len(m.assigns))
	}
	p.log.Debug("split statement",
		"output", stmt.Tensor.Name,
		"reduction", reduction,
		"instructions", len(m.assigns)+1,
		"temps", len(m.temps))
	if len(m.temps) > 0 {
		prev, _ := p.temps.Load(stmt.Tensor.ID)
		p.temps.Store(stmt.Tensor.ID, append(prev, m.temps...))
		p.pending[stmt.Tensor.ID] = append(p.pending[stmt.Tensor.ID], m.temps...)
	}
	out := &ir.Provide{Tensor: stmt.Tensor, Args: stmt.Args, Value: value}
	if len(m.assigns) == 0 {
		return out
	}
	list := make([]ir.Stmt, 0, len(m.assigns)+1)
	for _, assign := range m.assigns {
		list = append(list, assign)
	}
	return &ir.Block{List: append(list, out)}
}

// findBroadcasts returns the reads of tensors other than the output with
// fewer free variables than the index of the statement.
func findBroadcasts(output *ir.Tensor, args []ir.Expr, value ir.Expr) map[*ir.Call]bool {
	numVars := exprdeps.Count(args...)
	calls := make(map[*ir.Call]bool)
	ir.Walk(value, func(e ir.Expr) {
		call, ok := e.(*ir.Call)
		if !ok || !call.IsHalide() || ir.SameTensor(call.Tensor, output) {
			return
		}
		if numVars > exprdeps.Count(call) {
			calls[call] = true
		}
	})
	return calls
}

// removeLastCopy removes the last assignment when the statement only
// copies it into the output.
func (m *exprMutator) removeLastCopy(value ir.Expr) ir.Expr {
	if !m.isTemp(value) || len(m.assigns) == 0 {
		return value
	}
	tmp := value.(*ir.Call).Tensor
	last := m.assigns[len(m.assigns)-1]
	if !ir.SameTensor(last.Tensor, tmp) {
		return value
	}
	value = last.Value
	m.assigns = m.assigns[:len(m.assigns)-1]
	if m.references(tmp, value) {
		return value
	}
	m.cache.invalidate(tmp)
	delete(m.tempIDs, tmp.ID)
	for i, t := range m.temps {
		if ir.SameTensor(t, tmp) {
			m.temps = append(m.temps[:i], m.temps[i+1:]...)
			break
		}
	}
	return value
}

// references returns true if the temporary is still written or read by
// the assignments or by the value of the statement.
func (m *exprMutator) references(tmp *ir.Tensor, value ir.Expr) bool {
	if ir.ReadsTensor(value, tmp) {
		return true
	}
	for _, assign := range m.assigns {
		if ir.SameTensor(assign.Tensor, tmp) || ir.ReadsTensor(assign.Value, tmp) {
			return true
		}
	}
	return false
}

// mutateAttr realizes the temporaries of a tensor in the scope where the
// tensor is realized.
func (p *stmtMutator) mutateAttr(stmt *ir.Attr) ir.Stmt {
	p.attrOf[stmt.Tensor.ID] = stmt
	var out ir.Stmt = &ir.Attr{
		Tensor: stmt.Tensor,
		Key:    stmt.Key,
		Value:  stmt.Value,
		Body:   p.mutate(stmt.Body),
	}
	temps := p.pending[stmt.Tensor.ID]
	if len(temps) == 0 {
		return out
	}
	delete(p.pending, stmt.Tensor.ID)
	var cond ir.Expr = ir.BoolConst(true)
	if realize := p.realizeOf[stmt.Tensor.ID]; realize != nil && realize.Cond != nil {
		cond = realize.Cond
	}
	for _, tmp := range temps {
		out = p.realize(tmp, stmt.Key, stmt.Value, cond, out)
	}
	return out
}

func (p *stmtMutator) realize(tmp *ir.Tensor, key string, value, cond ir.Expr, body ir.Stmt) ir.Stmt {
	bounds := make([]ir.Range, len(tmp.Shape))
	for i, dim := range tmp.Shape {
		bounds[i] = ir.Range{
			Min:    ir.IntConst(0),
			Extent: bound.UpperBound(dim, p.dom),
		}
	}
	return &ir.Attr{
		Tensor: tmp,
		Key:    key,
		Value:  value,
		Body: &ir.Realize{
			Tensor: tmp,
			Bounds: bounds,
			Cond:   cond,
			Body:   body,
		},
	}
}

// realizeAtRoot realizes at the root of the program the temporaries of
// outputs without a realize scope.
func (p *stmtMutator) realizeAtRoot(body ir.Stmt) ir.Stmt {
	for id := range p.temps.Keys() {
		for _, tmp := range p.pending[id] {
			body = p.realize(tmp, ir.RealizeScope, ir.IntConst(0), ir.BoolConst(true), body)
		}
		delete(p.pending, id)
	}
	return body
}
