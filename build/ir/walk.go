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

package ir

import "github.com/gx-org/tac/build/fmterr"

// Children returns the direct sub-expressions of an expression.
func Children(expr Expr) []Expr {
	switch exprT := expr.(type) {
	case *IntImm, *FloatImm, *Var:
		return nil
	case *Cast:
		return []Expr{exprT.X}
	case *Neg:
		return []Expr{exprT.X}
	case *Not:
		return []Expr{exprT.X}
	case *Binary:
		return []Expr{exprT.X, exprT.Y}
	case *Select:
		return []Expr{exprT.Cond, exprT.True, exprT.False}
	case *Call:
		return exprT.Args
	default:
		fmterr.Fail("expression type %T not supported", expr)
	}
	return nil
}

// WithChildren returns a copy of expr with its direct sub-expressions
// replaced by kids. If every kid is identical to the current child,
// expr itself is returned.
func WithChildren(expr Expr, kids []Expr) Expr {
	old := Children(expr)
	fmterr.Check(len(old) == len(kids), "%T has %d children but %d were given", expr, len(old), len(kids))
	same := true
	for i, kid := range kids {
		if kid != old[i] {
			same = false
			break
		}
	}
	if same {
		return expr
	}
	switch exprT := expr.(type) {
	case *Cast:
		return &Cast{Typ: exprT.Typ, X: kids[0]}
	case *Neg:
		return &Neg{X: kids[0]}
	case *Not:
		return &Not{X: kids[0]}
	case *Binary:
		return &Binary{Op: exprT.Op, X: kids[0], Y: kids[1]}
	case *Select:
		return &Select{Cond: kids[0], True: kids[1], False: kids[2]}
	case *Call:
		ext := *exprT
		ext.Args = kids
		return &ext
	}
	return expr
}

// Walk calls fn on every node of the expression tree, children first.
func Walk(expr Expr, fn func(Expr)) {
	for _, kid := range Children(expr) {
		Walk(kid, fn)
	}
	fn(expr)
}

// Inspect calls fn on every node of the expression tree, parents first.
// The children of a node are not visited if fn returns false.
func Inspect(expr Expr, fn func(Expr) bool) {
	if !fn(expr) {
		return
	}
	for _, kid := range Children(expr) {
		Inspect(kid, fn)
	}
}

// StmtExprs returns the expressions directly held by a statement.
func StmtExprs(stmt Stmt) []Expr {
	switch stmtT := stmt.(type) {
	case *Provide:
		return append(append([]Expr{}, stmtT.Args...), stmtT.Value)
	case *Block:
		return nil
	case *For:
		return []Expr{stmtT.Min, stmtT.Extent}
	case *Realize:
		var exprs []Expr
		for _, rng := range stmtT.Bounds {
			exprs = append(exprs, rng.Min, rng.Extent)
		}
		if stmtT.Cond != nil {
			exprs = append(exprs, stmtT.Cond)
		}
		return exprs
	case *Attr:
		if stmtT.Value == nil {
			return nil
		}
		return []Expr{stmtT.Value}
	case *IfThenElse:
		return []Expr{stmtT.Cond}
	case *Evaluate:
		return []Expr{stmtT.Value}
	default:
		fmterr.Fail("statement type %T not supported", stmt)
	}
	return nil
}

// StmtChildren returns the direct sub-statements of a statement.
func StmtChildren(stmt Stmt) []Stmt {
	switch stmtT := stmt.(type) {
	case *Provide, *Evaluate:
		return nil
	case *Block:
		return stmtT.List
	case *For:
		return []Stmt{stmtT.Body}
	case *Realize:
		return []Stmt{stmtT.Body}
	case *Attr:
		return []Stmt{stmtT.Body}
	case *IfThenElse:
		if stmtT.Else == nil {
			return []Stmt{stmtT.Then}
		}
		return []Stmt{stmtT.Then, stmtT.Else}
	default:
		fmterr.Fail("statement type %T not supported", stmt)
	}
	return nil
}

// WalkStmt calls fn on every statement of the tree, parents first.
// The children of a statement are not visited if fn returns false.
func WalkStmt(stmt Stmt, fn func(Stmt) bool) {
	if stmt == nil || !fn(stmt) {
		return
	}
	for _, kid := range StmtChildren(stmt) {
		WalkStmt(kid, fn)
	}
}

// AnyExpr returns true if pred is true for any sub-expression
// of any statement in the tree.
func AnyExpr(stmt Stmt, pred func(Expr) bool) bool {
	found := false
	WalkStmt(stmt, func(s Stmt) bool {
		for _, root := range StmtExprs(s) {
			Inspect(root, func(e Expr) bool {
				if found {
					return false
				}
				found = pred(e)
				return !found
			})
		}
		return !found
	})
	return found
}

// MapStmtExprs returns a copy of the statement tree where every expression
// held by a statement has been replaced by fn. Statements for which no
// expression changed are returned as is.
func MapStmtExprs(stmt Stmt, fn func(Expr) Expr) Stmt {
	if stmt == nil {
		return nil
	}
	switch stmtT := stmt.(type) {
	case *Provide:
		args, argsChanged := mapList(stmtT.Args, fn)
		value := fn(stmtT.Value)
		if !argsChanged && value == stmtT.Value {
			return stmt
		}
		return &Provide{Tensor: stmtT.Tensor, Args: args, Value: value}
	case *Block:
		list := make([]Stmt, len(stmtT.List))
		changed := false
		for i, s := range stmtT.List {
			list[i] = MapStmtExprs(s, fn)
			changed = changed || list[i] != s
		}
		if !changed {
			return stmt
		}
		return &Block{List: list}
	case *For:
		lo, extent := fn(stmtT.Min), fn(stmtT.Extent)
		body := MapStmtExprs(stmtT.Body, fn)
		if lo == stmtT.Min && extent == stmtT.Extent && body == stmtT.Body {
			return stmt
		}
		return &For{Var: stmtT.Var, Min: lo, Extent: extent, Body: body}
	case *Realize:
		bounds := make([]Range, len(stmtT.Bounds))
		changed := false
		for i, rng := range stmtT.Bounds {
			bounds[i] = Range{Min: fn(rng.Min), Extent: fn(rng.Extent)}
			changed = changed || bounds[i] != rng
		}
		cond := stmtT.Cond
		if cond != nil {
			cond = fn(cond)
		}
		body := MapStmtExprs(stmtT.Body, fn)
		if !changed && cond == stmtT.Cond && body == stmtT.Body {
			return stmt
		}
		return &Realize{Tensor: stmtT.Tensor, Bounds: bounds, Cond: cond, Body: body}
	case *Attr:
		value := stmtT.Value
		if value != nil {
			value = fn(value)
		}
		body := MapStmtExprs(stmtT.Body, fn)
		if value == stmtT.Value && body == stmtT.Body {
			return stmt
		}
		return &Attr{Tensor: stmtT.Tensor, Key: stmtT.Key, Value: value, Body: body}
	case *IfThenElse:
		cond := fn(stmtT.Cond)
		then := MapStmtExprs(stmtT.Then, fn)
		els := MapStmtExprs(stmtT.Else, fn)
		if cond == stmtT.Cond && then == stmtT.Then && els == stmtT.Else {
			return stmt
		}
		return &IfThenElse{Cond: cond, Then: then, Else: els}
	case *Evaluate:
		value := fn(stmtT.Value)
		if value == stmtT.Value {
			return stmt
		}
		return &Evaluate{Value: value}
	default:
		fmterr.Fail("statement type %T not supported", stmt)
	}
	return nil
}

func mapList(exprs []Expr, fn func(Expr) Expr) ([]Expr, bool) {
	out := make([]Expr, len(exprs))
	changed := false
	for i, expr := range exprs {
		out[i] = fn(expr)
		changed = changed || out[i] != expr
	}
	if !changed {
		return exprs, false
	}
	return out, true
}
