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

package irverify

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/internal/arith"
	"go.uber.org/multierr"
	"golang.org/x/exp/maps"
)

// ErrOpaque is wrapped by the error returned by Equivalent when the
// reference program cannot be evaluated.
var ErrOpaque = errors.New("program cannot be evaluated")

// maxSteps is the number of statements executed by a program run
// above which the programs are not compared.
const maxSteps = 1 << 20

type (
	// memory stores the elements written by a program, indexed by their
	// printed index.
	memory map[ir.TensorID]map[string]float64

	// inputs are the values of the tensors read before being written.
	// Both runs see the same inputs.
	inputs struct {
		rnd *rand.Rand
		// known is the number of tensors of the reference program.
		// Other tensors must be written before being read.
		known int
		vals  memory
	}

	machine struct {
		in    *inputs
		mem   memory
		env   arith.Env
		steps int
	}
)

// Equivalent runs two programs on the same pseudo-random inputs and
// returns an error for every element written by want that got computes
// differently. Tensors created after the tensors of want, such as
// temporaries, must be written before being read.
func Equivalent(want, got *ir.Program, seed uint64) error {
	rnd := rand.New(rand.NewPCG(seed, seed^0x5eed))
	in := &inputs{rnd: rnd, known: want.Arena.NumTensors(), vals: make(memory)}
	env := freeVars(want.Body, rnd)
	wantM := &machine{in: in, mem: make(memory), env: maps.Clone(env)}
	if err := wantM.run(want.Body); err != nil {
		return errors.Wrapf(ErrOpaque, "reference program: %v", err)
	}
	gotM := &machine{in: in, mem: make(memory), env: maps.Clone(env)}
	if err := gotM.run(got.Body); err != nil {
		return err
	}
	var errs error
	for _, id := range slices.Sorted(slices.Values(maps.Keys(wantM.mem))) {
		name := want.Arena.Tensor(id).Name
		elements := wantM.mem[id]
		for _, idx := range slices.Sorted(slices.Values(maps.Keys(elements))) {
			wantV := elements[idx]
			gotV, ok := gotM.mem[id][idx]
			if !ok {
				errs = multierr.Append(errs, errors.Errorf("%s%s is not computed", name, idx))
				continue
			}
			if !approxEqual(gotV, wantV) {
				errs = multierr.Append(errs, errors.Errorf("%s%s = %v but want %v", name, idx, gotV, wantV))
			}
		}
	}
	return errs
}

func approxEqual(x, y float64) bool {
	return math.Abs(x-y) <= 1e-6*math.Max(1, math.Abs(y))
}

// freeVars assigns a value to every variable of a program.
// Loop variables are overwritten when the loop runs.
func freeVars(body ir.Stmt, rnd *rand.Rand) arith.Env {
	env := make(arith.Env)
	ir.WalkStmt(body, func(s ir.Stmt) bool {
		for _, expr := range ir.StmtExprs(s) {
			ir.Walk(expr, func(e ir.Expr) {
				if v, ok := e.(*ir.Var); ok {
					if _, done := env[v.ID]; !done {
						env[v.ID] = float64(1 + rnd.IntN(4))
					}
				}
			})
		}
		return true
	})
	return env
}

func (in *inputs) value(t *ir.Tensor, idx string) float64 {
	elements := in.vals[t.ID]
	if elements == nil {
		elements = make(map[string]float64)
		in.vals[t.ID] = elements
	}
	if val, ok := elements[idx]; ok {
		return val
	}
	var val float64
	switch {
	case t.DType.IsBool():
		val = float64(in.rnd.IntN(2))
	case t.DType.IsFloat():
		val = 0.5 + in.rnd.Float64()
	default:
		val = float64(1 + in.rnd.IntN(4))
	}
	elements[idx] = val
	return val
}

func indexKey(idx []int64) string {
	return fmt.Sprint(idx)
}

func (m *machine) read(t *ir.Tensor, idx []int64) (float64, error) {
	key := indexKey(idx)
	if val, ok := m.mem[t.ID][key]; ok {
		return val, nil
	}
	if int(t.ID) >= m.in.known {
		return 0, errors.Errorf("%s%s is read before being written", t.Name, key)
	}
	return m.in.value(t, key), nil
}

func (m *machine) eval(expr ir.Expr) (float64, error) {
	return arith.EvalReads(expr, m.env, m.read)
}

func (m *machine) run(stmt ir.Stmt) error {
	if stmt == nil {
		return nil
	}
	m.steps++
	if m.steps > maxSteps {
		return errors.Errorf("more than %d statements executed", maxSteps)
	}
	switch stmtT := stmt.(type) {
	case *ir.Provide:
		return m.provide(stmtT)
	case *ir.Block:
		for _, s := range stmtT.List {
			if err := m.run(s); err != nil {
				return err
			}
		}
		return nil
	case *ir.For:
		return m.loop(stmtT)
	case *ir.Realize:
		return m.run(stmtT.Body)
	case *ir.Attr:
		return m.run(stmtT.Body)
	case *ir.IfThenElse:
		cond, err := m.eval(stmtT.Cond)
		if err != nil {
			return err
		}
		if cond != 0 {
			return m.run(stmtT.Then)
		}
		return m.run(stmtT.Else)
	case *ir.Evaluate:
		return nil
	}
	return errors.Errorf("statement %T not supported", stmt)
}

func (m *machine) loop(stmt *ir.For) error {
	lo, err := m.eval(stmt.Min)
	if err != nil {
		return err
	}
	extent, err := m.eval(stmt.Extent)
	if err != nil {
		return err
	}
	for v := lo; v < lo+extent; v++ {
		m.env[stmt.Var.ID] = v
		if err := m.run(stmt.Body); err != nil {
			return err
		}
	}
	return nil
}

func (m *machine) provide(p *ir.Provide) error {
	idx := make([]int64, len(p.Args))
	for i, arg := range p.Args {
		val, err := m.eval(arg)
		if err != nil {
			return err
		}
		idx[i] = int64(val)
	}
	val, err := m.eval(p.Value)
	if err != nil {
		return errors.Wrapf(err, "%s", p)
	}
	elements := m.mem[p.Tensor.ID]
	if elements == nil {
		elements = make(map[string]float64)
		m.mem[p.Tensor.ID] = elements
	}
	elements[indexKey(idx)] = val
	return nil
}
