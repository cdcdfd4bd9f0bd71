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

// Package threeaddr lowers tensor expressions into three-address form.
//
// Every assignment of the program is split into a sequence of assignments
// to temporary tensors, each computing a single primitive or fused
// operation. Common sub-expressions are computed once, reduction axes are
// reordered for vectorization, and every temporary is realized with
// extents inferred from the enclosing loop ranges.
package threeaddr

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/gx-org/tac/base/ordered"
	"github.com/gx-org/tac/build/fmterr"
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/build/ir/irverify"
	"github.com/gx-org/tac/internal/arith"
	"github.com/gx-org/tac/internal/exprhash"
	"github.com/xyproto/env/v2"
	"go.uber.org/multierr"
)

// Options of the pass.
type Options struct {
	// ReuseVariable lets a temporary take over the storage of
	// an earlier temporary that is not read anymore.
	ReuseVariable bool
	// MinimumSplit is the number of instructions a statement needs to be
	// split into before temporaries are reused.
	MinimumSplit int
	// CrossStatementSimplify carries common sub-expressions from
	// one statement to the next.
	CrossStatementSimplify bool
	// Verify checks the output program.
	Verify bool
	// Logger receives debug information. Nothing is logged if nil.
	Logger *slog.Logger

	// hash overrides the expression hash function.
	hash func(ir.Expr) uint64
}

// Environment variables read by OptionsFromEnv.
const (
	EnvReuseVariable = "TAC_REUSE_VARIABLE"
	EnvMinimumSplit  = "TAC_MINIMUM_SPLIT"
	EnvCrossSimplify = "TAC_CROSS_SIMPLIFY"
	EnvVerify        = "TAC_VERIFY"
)

// OptionsFromEnv returns options set from environment variables.
func OptionsFromEnv() Options {
	return Options{
		ReuseVariable:          env.Bool(EnvReuseVariable),
		MinimumSplit:           env.Int(EnvMinimumSplit, 0),
		CrossStatementSimplify: env.Bool(EnvCrossSimplify),
		Verify:                 env.Bool(EnvVerify),
	}
}

func (opts Options) logger() *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (opts Options) hasher() func(ir.Expr) uint64 {
	if opts.hash != nil {
		return opts.hash
	}
	return exprhash.Hasher{Cross: opts.CrossStatementSimplify}.Hash
}

// Result of the pass.
type Result struct {
	// Program in three-address form.
	Program *ir.Program
	// Temps maps output tensors to the temporaries introduced to compute them,
	// in order of creation.
	Temps *ordered.Map[ir.TensorID, []*ir.Tensor]
}

// Run lowers a program into three-address form.
// The input program is not modified.
func Run(prog *ir.Program, opts Options) (res *Result, err error) {
	defer fmterr.Catch(&err)
	if prog == nil || prog.Body == nil {
		return nil, errors.Errorf("cannot lower an empty program")
	}
	if !NeedsLowering(prog) {
		return &Result{
			Program: prog,
			Temps:   ordered.NewMap[ir.TensorID, []*ir.Tensor](),
		}, nil
	}
	p := newStmtMutator(prog.Arena.Clone(), opts)
	body := p.mutate(prog.Body)
	body = p.realizeAtRoot(body)
	out := &ir.Program{
		Arena: p.arena,
		Body:  arith.SimplifyStmt(body),
	}
	if opts.Verify {
		if err := verify(prog, out); err != nil {
			return nil, fmterr.Internal(errors.Wrapf(err, "invalid three-address program"))
		}
	}
	return &Result{Program: out, Temps: p.temps}, nil
}

// verifySeed seeds the inputs of the programs compared by verify.
const verifySeed = 1

// verify checks that out is in three-address form and computes the same
// values as in. Programs calling intrinsics without numerical semantic
// are only checked for their form.
func verify(in, out *ir.Program) error {
	err := irverify.Program(out, passThroughNames...)
	if eqErr := irverify.Equivalent(in, out, verifySeed); !errors.Is(eqErr, irverify.ErrOpaque) {
		err = multierr.Append(err, eqErr)
	}
	return err
}

// ToThreeAddress lowers a program into three-address form.
func ToThreeAddress(prog *ir.Program, reuseVariable bool, minimumSplit int, crossStatementSimplify bool) (*ir.Program, error) {
	res, err := Run(prog, Options{
		ReuseVariable:          reuseVariable,
		MinimumSplit:           minimumSplit,
		CrossStatementSimplify: crossStatementSimplify,
	})
	if err != nil {
		return nil, err
	}
	return res.Program, nil
}
