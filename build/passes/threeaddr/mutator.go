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
	"github.com/gx-org/tac/build/fmterr"
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/internal/arith"
	"github.com/gx-org/tac/internal/exprdeps"
)

// Calls operating on whole tensors: their operands are never transposed.
var wholeTensorOps = map[string]bool{
	"proposal_sort": true,
	"topk_sort":     true,
	"iou":           true,
	"nms":           true,
	"vmadd":         true,
	"vmla":          true,
}

// Calls in which immediates are never hoisted into temporaries.
var keepImmediates = map[string]bool{
	"nms": true,
}

const ifThenElse = "if_then_else"

// exprMutator splits the value of a statement into a sequence of
// assignments to temporaries.
type exprMutator struct {
	stmt  *stmtMutator
	rules []*rule

	output    *ir.Tensor
	args      []ir.Expr
	shape     []ir.Expr
	broadcast map[*ir.Call]bool
	reduction bool
	cross     bool
	cache     *cseCache

	level    int
	inCall   int
	noSelect bool
	// stack of the nodes being visited. The top is the current node.
	stack       []ir.Expr
	expandFloat []bool

	assigns []*ir.Provide
	temps   []*ir.Tensor
	tempIDs map[ir.TensorID]bool
	// shared are the temporaries returned to more than one reader.
	shared map[ir.TensorID]bool
}

func (m *exprMutator) mutate(expr ir.Expr) ir.Expr {
	sel, ok := selectRule(m.rules, expr)
	m.level++
	defer func() { m.level-- }()
	if !ok || m.noSelect || m.level < sel.rule.minLevel {
		m.stack = append(m.stack, expr)
		defer func() { m.stack = m.stack[:len(m.stack)-1] }()
		return m.visit(expr)
	}
	return sel.rule.rewrite(m, expr, sel.bindings, sel.alt)
}

// mutateWithoutSelection decomposes an expression without fusing it.
func (m *exprMutator) mutateWithoutSelection(expr ir.Expr) ir.Expr {
	prev := m.noSelect
	m.noSelect = true
	defer func() { m.noSelect = prev }()
	return m.mutate(expr)
}

// parent returns the node enclosing the current node.
func (m *exprMutator) parent() ir.Expr {
	if len(m.stack) < 2 {
		return nil
	}
	return m.stack[len(m.stack)-2]
}

func (m *exprMutator) visit(expr ir.Expr) ir.Expr {
	switch exprT := expr.(type) {
	case *ir.IntImm, *ir.FloatImm:
		return m.visitConst(expr)
	case *ir.Var:
		return expr
	case *ir.Binary:
		return m.visitBinary(exprT)
	case *ir.Neg:
		m.inCall++
		x := m.mutate(exprT.X)
		m.inCall--
		return m.allocate(mul(x, ir.Const(x.Type(), -1)))
	case *ir.Not:
		return m.rebuild(exprT)
	case *ir.Cast:
		return m.visitNested(exprT)
	case *ir.Select:
		return m.visitSelect(exprT)
	case *ir.Call:
		return m.visitCall(exprT)
	}
	fmterr.Fail("expression %T not supported", expr)
	return nil
}

// rebuild returns the expression with its children mutated.
func (m *exprMutator) rebuild(expr ir.Expr) ir.Expr {
	kids := ir.Children(expr)
	mutated := make([]ir.Expr, len(kids))
	for i, kid := range kids {
		mutated[i] = m.mutate(kid)
	}
	return ir.WithChildren(expr, mutated)
}

// visitNested allocates min, max and casts nested in other operations.
func (m *exprMutator) visitNested(expr ir.Expr) ir.Expr {
	if m.inCall > 0 {
		return m.allocate(m.rebuild(expr))
	}
	m.inCall++
	defer func() { m.inCall-- }()
	return m.rebuild(expr)
}

func (m *exprMutator) visitConst(expr ir.Expr) ir.Expr {
	if m.inCall == 0 || !m.expandFloat[len(m.expandFloat)-1] {
		return expr
	}
	switch parentT := m.parent().(type) {
	case *ir.Call:
		if keepImmediates[parentT.Name] {
			return expr
		}
		return m.allocate(expr)
	case *ir.Binary:
		if parentT.Op == ir.Min || parentT.Op == ir.Max {
			return m.allocate(expr)
		}
	}
	return expr
}

// isBroadcast returns true if the operand has fewer free variables than
// the index of the statement.
func (m *exprMutator) isBroadcast(x ir.Expr) bool {
	return !m.reduction && !ir.IsConst(x) && exprdeps.Count(m.args...) > exprdeps.Count(x)
}

func (m *exprMutator) visitBinary(expr *ir.Binary) ir.Expr {
	switch expr.Op {
	case ir.Min, ir.Max:
		return m.visitNested(expr)
	case ir.Sub:
		return m.visitSub(expr)
	case ir.Add, ir.Mul, ir.Div, ir.Mod:
	default:
		// Comparisons and logical operators are kept in conditions.
		return m.rebuild(expr)
	}
	m.inCall++
	l := m.mutate(expr.X)
	r := m.mutate(expr.Y)
	m.inCall--
	if expr.Op == ir.Add || expr.Op == ir.Mul {
		bl, br := m.isBroadcast(l), m.isBroadcast(r)
		switch {
		case bl && br:
			l = m.allocate(l)
		case ir.IsConst(r) && bl:
			l = m.allocate(l)
		case ir.IsConst(l) && br:
			r = m.allocate(r)
		}
	}
	return m.allocate(ir.NewBinary(expr.Op, l, r))
}

func (m *exprMutator) visitSub(expr *ir.Binary) ir.Expr {
	m.inCall++
	l := m.mutate(expr.X)
	r := m.mutate(expr.Y)
	m.inCall--
	if ir.IsConst(l) {
		// imm - x -> t = x * -1; t + imm
		tmp := m.allocate(mul(r, ir.Const(r.Type(), -1)))
		if ir.IsZero(l) {
			return tmp
		}
		return m.allocate(add(tmp, l))
	}
	_, lCall := l.(*ir.Call)
	_, rCall := r.(*ir.Call)
	if lCall && rCall && m.reduction && exprdeps.Count(l) < exprdeps.Count(r) {
		// a[i] = a[i] - b[i, j] -> t[i, j] = b[i, j] * -1; a[i] = a[i] + t[i, j]
		tmp := m.allocate(mul(r, ir.Const(r.Type(), -1)))
		return m.allocate(add(l, tmp))
	}
	return m.allocate(sub(l, r))
}

func (m *exprMutator) visitSelect(expr *ir.Select) ir.Expr {
	m.inCall++
	defer func() { m.inCall-- }()
	cond := arith.Simplify(expr.Cond)
	if arith.MixesAndOr(cond) {
		cond = expr.Cond
	}
	if !hasScalarOperand(cond) {
		cond = m.mutate(cond)
	}
	t := m.mutate(expr.True)
	f := m.mutate(expr.False)
	return m.allocate(&ir.Select{Cond: cond, True: t, False: f})
}

func (m *exprMutator) visitCall(expr *ir.Call) ir.Expr {
	switch {
	case expr.IsHalide():
		return m.visitRead(expr)
	case ir.IsIntrinsic(expr, ifThenElse):
		m.inCall++
		m.expandFloat = append(m.expandFloat, !hasScalarOperand(expr.Args[0]))
		args := []ir.Expr{
			expr.Args[0],
			m.mutate(expr.Args[1]),
			m.mutate(expr.Args[2]),
		}
		m.expandFloat = m.expandFloat[:len(m.expandFloat)-1]
		m.inCall--
		return m.allocate(ir.WithChildren(expr, args))
	}
	m.inCall++
	args := make([]ir.Expr, len(expr.Args))
	for i, arg := range expr.Args {
		args[i] = m.mutate(arg)
	}
	m.inCall--
	call := ir.WithChildren(expr, args).(*ir.Call)
	if ir.IsIntrinsic(call, "vmadd", "vmla") {
		return m.fixAccumulator(call)
	}
	return m.allocate(call)
}

// fixAccumulator makes sure the accumulator of a multiply-add is a temporary.
// At the root of the statement, the output is the accumulator.
func (m *exprMutator) fixAccumulator(call *ir.Call) ir.Expr {
	fmterr.Check(len(call.Args) == 3, "%s expects 3 arguments but got %d", call.Name, len(call.Args))
	if m.level == 1 && !m.isTemp(call.Args[2]) {
		return call
	}
	acc := m.accumulator(call.Args[2])
	fused := ir.WithChildren(call, []ir.Expr{call.Args[0], call.Args[1], acc})
	return m.assignTmp(acc, fused)
}

// visitRead returns a temporary copy of a tensor read when the read is
// broadcast, transposed, or reversed relative to the statement index.
func (m *exprMutator) visitRead(expr *ir.Call) ir.Expr {
	parent := m.parent()
	if _, isCast := parent.(*ir.Cast); isCast && exprdeps.Count(m.args...) > exprdeps.Count(expr) {
		return m.allocate(expr)
	}
	if len(expr.Args) == 0 {
		return expr
	}
	last := expr.Args[len(expr.Args)-1]
	if vars := exprdeps.Vars(last); len(vars) == 1 {
		if coeff, ok := arith.LinearCoeff(last, vars[0]); ok && coeff < 0 {
			return m.allocate(expr)
		}
	}
	if m.isTransposed(expr, parent) {
		return m.allocate(expr)
	}
	broadcast := true
	switch parentT := parent.(type) {
	case *ir.Binary:
		if parentT.Op == ir.Add || parentT.Op == ir.Mul {
			broadcast = false
		}
	case *ir.Call:
		if wholeTensorOps[parentT.Name] {
			broadcast = false
		}
	}
	if broadcast && m.broadcast[expr] {
		return m.allocate(expr)
	}
	return expr
}

func (m *exprMutator) isTransposed(expr *ir.Call, parent ir.Expr) bool {
	innermost, ok := m.args[len(m.args)-1].(*ir.Var)
	if !ok {
		return false
	}
	last := expr.Args[len(expr.Args)-1]
	if _, ok := last.(*ir.Var); !ok {
		return false
	}
	depth := len(m.stack)
	if m.reduction && depth < 3 {
		return false
	}
	if !m.reduction && (depth < 2 || len(expr.Args) < 2) {
		return false
	}
	if call, ok := parent.(*ir.Call); ok && (wholeTensorOps[call.Name] || call.Name == "four2five_nchw") {
		return false
	}
	return !exprdeps.Uses(last, innermost)
}

func (m *exprMutator) isTemp(expr ir.Expr) bool {
	call, ok := expr.(*ir.Call)
	return ok && call.IsHalide() && m.tempIDs[call.Tensor.ID]
}

// canOverwrite returns true if expr reads a temporary that no other
// operand reads: an instruction can then store its result in place.
func (m *exprMutator) canOverwrite(expr ir.Expr) bool {
	return m.isTemp(expr) && !m.shared[expr.(*ir.Call).Tensor.ID]
}

// accumulator returns a temporary storing value that can be overwritten.
func (m *exprMutator) accumulator(value ir.Expr) *ir.Call {
	if m.canOverwrite(value) {
		return value.(*ir.Call)
	}
	if !m.isTemp(value) {
		if read := m.allocate(value); m.canOverwrite(read) {
			return read
		}
	}
	return m.fresh(value)
}

// allocate returns the read of a temporary storing value.
// A temporary already storing the same value is reused.
func (m *exprMutator) allocate(value ir.Expr) *ir.Call {
	if read, ok := m.cache.lookup(value); ok {
		m.shared[read.Tensor.ID] = true
		return read
	}
	if m.cross {
		if read, ok := value.(*ir.Call); ok && m.cache.isTempRead(read) {
			m.shared[read.Tensor.ID] = true
			return read
		}
	}
	read := m.fresh(value)
	m.cache.store(value, read)
	return read
}

// fresh returns the read of a new temporary storing value.
func (m *exprMutator) fresh(value ir.Expr) *ir.Call {
	tmp := m.stmt.arena.NewTensor(m.stmt.names.Indexed(m.output.Name), value.Type(), m.shape)
	m.tempIDs[tmp.ID] = true
	m.temps = append(m.temps, tmp)
	m.assigns = append(m.assigns, &ir.Provide{Tensor: tmp, Args: m.args, Value: value})
	return ir.Read(tmp, m.args...)
}

// assignTmp overwrites a temporary with a new value.
func (m *exprMutator) assignTmp(tmp ir.Expr, value ir.Expr) *ir.Call {
	fmterr.Check(m.canOverwrite(tmp), "%s is not a temporary or is read by another operand", tmp)
	t := tmp.(*ir.Call).Tensor
	m.cache.invalidate(t)
	m.assigns = append(m.assigns, &ir.Provide{Tensor: t, Args: m.args, Value: value})
	read := ir.Read(t, m.args...)
	if !ir.ReadsTensor(value, t) {
		m.cache.store(value, read)
	}
	return read
}

// scalarFinder looks for operands which are not indexed by the
// iteration space: variables and integer tensor elements.
type scalarFinder struct {
	inIndex     int
	inFloatCast bool
	found       bool
}

func hasScalarOperand(expr ir.Expr) bool {
	f := &scalarFinder{}
	f.visit(expr)
	return f.found
}

func (f *scalarFinder) visit(expr ir.Expr) {
	switch exprT := expr.(type) {
	case *ir.Var:
		if f.inIndex == 0 {
			f.found = true
		}
		return
	case *ir.Cast:
		f.inFloatCast = exprT.Typ.IsFloat()
		f.visit(exprT.X)
		f.inFloatCast = false
		return
	case *ir.Call:
		if !exprT.IsHalide() {
			return
		}
		typ := exprT.Type()
		if f.inIndex == 0 && !f.inFloatCast && (typ.IsInt() || typ.IsUInt() || typ.IsBool()) {
			f.found = true
		}
		f.inIndex++
		for _, arg := range exprT.Args {
			f.visit(arg)
		}
		f.inIndex--
		return
	}
	for _, kid := range ir.Children(expr) {
		f.visit(kid)
	}
}
