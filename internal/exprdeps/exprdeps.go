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

// Package exprdeps extracts variable dependencies from IR expressions.
package exprdeps

import (
	"slices"

	"github.com/gx-org/tac/base/ordered"
	"github.com/gx-org/tac/build/ir"
)

func vars(done *ordered.Map[ir.VarID, *ir.Var], expr ir.Expr) {
	ir.Walk(expr, func(e ir.Expr) {
		if v, ok := e.(*ir.Var); ok {
			done.Store(v.ID, v)
		}
	})
}

// Vars returns all the distinct variables used in a list of expressions,
// in order of first occurrence.
func Vars(exprs ...ir.Expr) []*ir.Var {
	done := ordered.NewMap[ir.VarID, *ir.Var]()
	for _, expr := range exprs {
		vars(done, expr)
	}
	return slices.Collect(done.Values())
}

// Count returns the number of distinct variables used in a list of expressions.
func Count(exprs ...ir.Expr) int {
	done := ordered.NewMap[ir.VarID, *ir.Var]()
	for _, expr := range exprs {
		vars(done, expr)
	}
	return done.Size()
}

// Occurrences returns the number of variable references in a list of expressions,
// counting a variable each time it is referenced.
func Occurrences(exprs ...ir.Expr) int {
	n := 0
	for _, expr := range exprs {
		ir.Walk(expr, func(e ir.Expr) {
			if _, ok := e.(*ir.Var); ok {
				n++
			}
		})
	}
	return n
}

// Uses returns true if the expression references the variable v.
func Uses(expr ir.Expr, v *ir.Var) bool {
	found := false
	ir.Inspect(expr, func(e ir.Expr) bool {
		if eVar, ok := e.(*ir.Var); ok && eVar.ID == v.ID {
			found = true
		}
		return !found
	})
	return found
}
