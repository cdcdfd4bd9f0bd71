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
	"math"
	"slices"

	"github.com/gx-org/tac/base/iter"
	"github.com/gx-org/tac/base/ordered"
	"github.com/gx-org/tac/build/fmterr"
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/internal/arith"
	"github.com/gx-org/tac/internal/bound"
	"github.com/gx-org/tac/internal/exprdeps"
)

type followingTerm struct {
	arg, dim ir.Expr
}

type varGraph struct {
	edges  map[ir.VarID]*ordered.Set[ir.VarID]
	degree map[ir.VarID]int
	// linked are the variables appearing in at least one edge.
	linked *ordered.Set[ir.VarID]
}

func newVarGraph() *varGraph {
	return &varGraph{
		edges:  make(map[ir.VarID]*ordered.Set[ir.VarID]),
		degree: make(map[ir.VarID]int),
		linked: ordered.NewSet[ir.VarID](),
	}
}

func (g *varGraph) addEdge(from, to ir.VarID) {
	g.linked.Add(from)
	g.linked.Add(to)
	succ, ok := g.edges[from]
	if !ok {
		succ = ordered.NewSet[ir.VarID]()
		g.edges[from] = succ
	}
	if succ.Add(to) {
		g.degree[to]++
	}
}

// collectEdges adds an edge vi -> vj for every read where index i is a
// non-constant expression of the single variable vi and a later index j
// is the variable vj.
func (g *varGraph) collectEdges(value ir.Expr) {
	ir.Walk(value, func(e ir.Expr) {
		call, ok := e.(*ir.Call)
		if !ok || !call.IsHalide() {
			return
		}
		for i, argI := range call.Args {
			for _, argJ := range call.Args[i+1:] {
				vj, ok := argJ.(*ir.Var)
				if ir.IsConst(argI) || !ok {
					continue
				}
				vars := exprdeps.Vars(argI)
				if len(vars) != 1 || vars[0].ID == vj.ID {
					continue
				}
				g.addEdge(vars[0].ID, vj.ID)
			}
		}
	})
}

// reorderReduction computes the index and shape of the temporaries of a
// reduction statement: the variables are sorted topologically according
// to the order in which they index the tensors read by the statement.
//
// Variables which are not totally ordered are picked, on ties, reduction
// variables first and then the variables indexing the output.
func reorderReduction(p *ir.Provide, value ir.Expr, dom bound.Ranges) (args, shape []ir.Expr) {
	args, shape = p.Args, p.Tensor.Shape
	spatial := ordered.NewSet[ir.VarID]()
	for _, v := range exprdeps.Vars(args...) {
		spatial.Add(v.ID)
	}
	allVars := exprdeps.Vars(slices.Collect(iter.All(args, []ir.Expr{value}))...)
	byID := make(map[ir.VarID]*ir.Var, len(allVars))
	for _, v := range allVars {
		byID[v.ID] = v
	}
	reduce := ordered.NewSet[ir.VarID]()
	isReduce := func(v *ir.Var) bool { return !spatial.Has(v.ID) }
	for v := range iter.Filter(isReduce, allVars) {
		reduce.Add(v.ID)
	}

	g := newVarGraph()
	g.collectEdges(value)

	// Constant indices are attached to the variable index preceding them.
	following := make(map[ir.VarID][]followingTerm)
	inArgs := ordered.NewSet(reduce.Slice()...)
	for i, arg := range args {
		if ir.IsConst(arg) {
			continue
		}
		for _, v := range exprdeps.Vars(arg) {
			if g.linked.Size() == 0 && inArgs.Size() == 0 {
				inArgs.Add(v.ID)
				continue
			}
			if !g.linked.Has(v.ID) {
				continue
			}
			inArgs.Add(v.ID)
			for k := i + 1; k < len(args) && ir.IsConst(args[k]); k++ {
				following[v.ID] = append(following[v.ID], followingTerm{arg: args[k], dim: shape[k]})
			}
		}
	}

	var newArgs, newShape []ir.Expr
	var queue []ir.VarID
	for _, v := range allVars {
		if g.degree[v.ID] == 0 {
			queue = append(queue, v.ID)
		}
	}
	for range allVars {
		if len(queue) == 0 {
			queue = append(queue, g.breakTie(allVars, reduce, inArgs))
		}
		x := queue[0]
		queue = queue[1:]
		if inArgs.Has(x) {
			rng, ok := dom[x]
			fmterr.Check(ok, "reduction variable %s has no loop range", byID[x].Name)
			newArgs = append(newArgs, byID[x])
			newShape = append(newShape, arith.Simplify(ir.NewBinary(ir.Add, rng.Min, rng.Extent)))
			for _, term := range following[x] {
				if ir.IsConstValue(term.arg, 0) || ir.IsConstValue(term.dim, 1) {
					continue
				}
				newArgs = append(newArgs, term.arg)
				newShape = append(newShape, term.dim)
			}
		}
		succ, ok := g.edges[x]
		if !ok {
			continue
		}
		for y := range succ.All() {
			g.degree[y]--
			if g.degree[y] == 0 {
				queue = append(queue, y)
			}
		}
	}
	if len(newArgs) > 0 {
		args = newArgs
	}
	if len(newShape) > 0 {
		shape = newShape
	}
	fmterr.Check(len(args) == len(shape), "reordered index has %d axes but shape has %d", len(args), len(shape))
	return args, shape
}

// breakTie returns the next variable to order when no variable is free:
// among the variables with the minimum positive in-degree, the first
// reduction variable, or else the first variable indexing the temporaries,
// or else the first variable.
func (g *varGraph) breakTie(all []*ir.Var, reduce, inArgs *ordered.Set[ir.VarID]) ir.VarID {
	minDegree := math.MaxInt
	for _, v := range all {
		if d := g.degree[v.ID]; d > 0 && d < minDegree {
			minDegree = d
		}
	}
	pick := func(ids []ir.VarID) (ir.VarID, bool) {
		for _, id := range ids {
			if g.degree[id] == minDegree {
				g.degree[id] = 0
				return id, true
			}
		}
		return 0, false
	}
	if id, ok := pick(reduce.Slice()); ok {
		return id
	}
	if id, ok := pick(inArgs.Slice()); ok {
		return id
	}
	ids := make([]ir.VarID, len(all))
	for i, v := range all {
		ids[i] = v.ID
	}
	id, ok := pick(ids)
	fmterr.Check(ok, "cannot order reduction variables")
	return id
}
