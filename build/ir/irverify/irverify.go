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

// Package irverify checks that a program is in three-address form
// and that it computes the same values as the program it was lowered from.
package irverify

import (
	"github.com/pkg/errors"
	"github.com/gx-org/tac/build/ir"
	"go.uber.org/multierr"
)

type verifier struct {
	opaque  map[string]bool
	written map[ir.TensorID]bool
	// targets are all the tensors written by the program.
	targets map[ir.TensorID]bool
	errs    error
}

// Program returns an error listing every statement of the program
// that is not in three-address form.
// The value of a statement calling one of the opaque functions is
// not checked.
func Program(prog *ir.Program, opaque ...string) error {
	v := &verifier{
		opaque:  make(map[string]bool),
		written: make(map[ir.TensorID]bool),
		targets: make(map[ir.TensorID]bool),
	}
	for _, name := range opaque {
		v.opaque[name] = true
	}
	ir.WalkStmt(prog.Body, func(s ir.Stmt) bool {
		if p, ok := s.(*ir.Provide); ok {
			v.targets[p.Tensor.ID] = true
		}
		return true
	})
	ir.WalkStmt(prog.Body, func(s ir.Stmt) bool {
		v.stmt(s)
		return true
	})
	return v.errs
}

func (v *verifier) errorf(format string, args ...any) {
	v.errs = multierr.Append(v.errs, errors.Errorf(format, args...))
}

func (v *verifier) stmt(s ir.Stmt) {
	switch sT := s.(type) {
	case *ir.Provide:
		v.provide(sT)
	case *ir.IfThenElse:
		v.condition(sT, sT.Cond)
	}
}

func (v *verifier) provide(p *ir.Provide) {
	if len(p.Args) != p.Tensor.Rank() {
		v.errorf("%s: writing tensor of rank %d with %d indices", p, p.Tensor.Rank(), len(p.Args))
	}
	ir.Walk(p.Value, func(e ir.Expr) {
		call, ok := e.(*ir.Call)
		if !ok || !call.IsHalide() {
			return
		}
		if len(call.Args) != call.Tensor.Rank() {
			v.errorf("%s: reading tensor %s of rank %d with %d indices", p, call.Tensor, call.Tensor.Rank(), len(call.Args))
		}
		selfRead := ir.SameTensor(call.Tensor, p.Tensor)
		if v.targets[call.Tensor.ID] && !v.written[call.Tensor.ID] && !selfRead {
			v.errorf("%s: %s is read before being written", p, call.Tensor)
		}
	})
	v.written[p.Tensor.ID] = true
	if call, ok := p.Value.(*ir.Call); ok && v.opaque[call.Name] {
		return
	}
	ir.Inspect(p.Value, func(e ir.Expr) bool {
		switch eT := e.(type) {
		case *ir.Select:
			v.condition(p, eT.Cond)
		case *ir.Call:
			if ir.IsIntrinsic(eT, "if_then_else") && len(eT.Args) > 0 {
				v.condition(p, eT.Args[0])
			}
		}
		return true
	})
	if !isInstruction(p.Value) {
		v.errorf("%s: not a three-address instruction", p)
	}
}

func (v *verifier) condition(s ir.Stmt, cond ir.Expr) {
	hasAnd, hasOr := false, false
	ir.Walk(cond, func(e ir.Expr) {
		if bin, ok := e.(*ir.Binary); ok {
			hasAnd = hasAnd || bin.Op == ir.And
			hasOr = hasOr || bin.Op == ir.Or
		}
	})
	if hasAnd && hasOr {
		v.errorf("%s: condition %s mixes && and ||", s, cond)
	}
}

// isInstruction returns true if the expression applies at most one
// operation to operands.
func isInstruction(expr ir.Expr) bool {
	switch exprT := expr.(type) {
	case *ir.Select:
		return isOperand(exprT.True) && isOperand(exprT.False)
	case *ir.Call:
		if exprT.IsHalide() {
			return true
		}
		for i, arg := range exprT.Args {
			if i == 0 && exprT.Name == "if_then_else" {
				continue
			}
			if !isOperand(arg) {
				return false
			}
		}
		return true
	}
	if isOperand(expr) {
		return true
	}
	for _, kid := range ir.Children(expr) {
		if !isOperand(kid) {
			return false
		}
	}
	return true
}

// isOperand returns true for leaves, tensor reads, and conditions on
// leaves and tensor reads.
func isOperand(expr ir.Expr) bool {
	switch exprT := expr.(type) {
	case *ir.IntImm, *ir.FloatImm, *ir.Var:
		return true
	case *ir.Call:
		return exprT.IsHalide()
	case *ir.Not:
		return isOperand(exprT.X)
	case *ir.Binary:
		if !exprT.Op.IsCompare() && !exprT.Op.IsLogical() {
			return false
		}
		return isOperand(exprT.X) && isOperand(exprT.Y)
	}
	return false
}
