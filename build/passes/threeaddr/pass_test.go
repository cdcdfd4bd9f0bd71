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

package threeaddr_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/tac/build/fmterr"
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/build/ir/irhelper"
	"github.com/gx-org/tac/build/passes/threeaddr"
)

var f32 = ir.Float(32)

// provides returns the assignments of a program in execution order.
func provides(stmt ir.Stmt) []string {
	var got []string
	ir.WalkStmt(stmt, func(s ir.Stmt) bool {
		if p, ok := s.(*ir.Provide); ok {
			got = append(got, p.String())
		}
		return true
	})
	return got
}

func tempNames(res *threeaddr.Result, t *ir.Tensor) []string {
	temps, _ := res.Temps.Load(t.ID)
	names := []string{}
	for _, tmp := range temps {
		names = append(names, tmp.Name)
	}
	return names
}

func TestLower(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt)
		want  []string
		temps []string
	}{
		{
			name: "multiply-add",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C, D := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16), b.Tensor("D", f32, 16)
				value := irhelper.Add(irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)), irhelper.Read(D, i))
				return C, irhelper.Compute(C, []*ir.Var{i}, value)
			},
			want: []string{
				"C[i] = vmla(A[i], B[i], D[i])",
			},
			temps: []string{},
		},
		{
			name: "immediate minus tensor",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16)
				return B, irhelper.Compute(B, []*ir.Var{i}, irhelper.Sub(irhelper.F32(1), irhelper.Read(A, i)))
			},
			want: []string{
				"B_0[i] = (A[i] * -1.0)",
				"B[i] = (B_0[i] + 1.0)",
			},
			temps: []string{"B_0"},
		},
		{
			name: "multiply-add relu",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C, D := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16), b.Tensor("D", f32, 16)
				fma := irhelper.Add(irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)), irhelper.Read(D, i))
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Max(fma, irhelper.F32(0)))
			},
			want: []string{
				"C[i] = vmaddrelu(B[i], D[i], A[i])",
			},
			temps: []string{},
		},
		{
			name: "select on disjunction",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				c1, c2 := b.Tensor("cond1", ir.Bool(), 16), b.Tensor("cond2", ir.Bool(), 16)
				T, F, Y := b.Tensor("T", f32, 16), b.Tensor("F", f32, 16), b.Tensor("Y", f32, 16)
				value := irhelper.Select(
					irhelper.Or(irhelper.Read(c1, i), irhelper.Read(c2, i)),
					irhelper.Read(T, i),
					irhelper.Read(F, i),
				)
				return Y, irhelper.Compute(Y, []*ir.Var{i}, value)
			},
			want: []string{
				"Y_0[i] = select(cond1[i], T[i], F[i])",
				"Y[i] = select(cond2[i], T[i], Y_0[i])",
			},
			temps: []string{"Y_0"},
		},
		{
			name: "common sub-expression",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
				value := irhelper.Mul(
					irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)),
					irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)),
				)
				return C, irhelper.Compute(C, []*ir.Var{i}, value)
			},
			want: []string{
				"C_0[i] = (A[i] * B[i])",
				"C[i] = (C_0[i] * C_0[i])",
			},
			temps: []string{"C_0"},
		},
		{
			name: "immediate hoisted out of max",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, C := b.Tensor("A", f32, 16), b.Tensor("C", f32, 16)
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Max(irhelper.Read(A, i), irhelper.F32(0.5)))
			},
			want: []string{
				"C_0[i] = 0.5",
				"C[i] = max(A[i], C_0[i])",
			},
			temps: []string{"C_0"},
		},
		{
			name: "integer rounding",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, C := b.Tensor("A", f32, 16), b.Tensor("C", ir.Int(32), 16)
				floor := ir.Intrinsic(f32, "floor", irhelper.Read(A, i))
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Cast(ir.Int(32), floor))
			},
			want: []string{
				"C[i] = floor(A[i])",
			},
			temps: []string{},
		},
		{
			name: "reverse indexing",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
				reversed := ir.Read(A, irhelper.Sub(irhelper.Int(15), i))
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Add(reversed, irhelper.Read(B, i)))
			},
			want: []string{
				"C_0[i] = A[(15 - i)]",
				"C[i] = (C_0[i] + B[i])",
			},
			temps: []string{"C_0"},
		},
		{
			name: "transpose",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i, j := b.Var("i"), b.Var("j")
				A, B, C := b.Tensor("A", f32, 8, 8), b.Tensor("B", f32, 8, 8), b.Tensor("C", f32, 8, 8)
				value := irhelper.Add(irhelper.Read(A, j, i), irhelper.Read(B, i, j))
				return C, irhelper.Compute(C, []*ir.Var{i, j}, value)
			},
			want: []string{
				"C_0[i, j] = A[j, i]",
				"C[i, j] = (C_0[i, j] + B[i, j])",
			},
			temps: []string{"C_0"},
		},
		{
			name: "broadcast times immediate",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i, j := b.Var("i"), b.Var("j")
				A, C := b.Tensor("A", f32, 8), b.Tensor("C", f32, 8, 4)
				return C, irhelper.Compute(C, []*ir.Var{i, j}, irhelper.Mul(irhelper.Read(A, i), irhelper.F32(2)))
			},
			want: []string{
				"C_0[i, j] = A[i]",
				"C[i, j] = (C_0[i, j] * 2.0)",
			},
			temps: []string{"C_0"},
		},
		{
			name: "reduction",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i, k := b.Var("i"), b.Var("k")
				A, B := b.Tensor("A", f32, 16, 8), b.Tensor("B", f32, 16)
				scaled := irhelper.Mul(irhelper.Read(A, i, k), irhelper.F32(2))
				value := irhelper.Add(irhelper.Read(B, i), scaled)
				return B, irhelper.Compute(B, []*ir.Var{i}, value, irhelper.Loop{Var: k, Extent: 8})
			},
			want: []string{
				"B_0[i, k] = (2.0 * A[i, k])",
				"B[i] = (B_0[i, k] + B[i])",
			},
			temps: []string{"B_0"},
		},
		{
			name: "multiply-add accumulates into its temporary",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
				D, E := b.Tensor("D", f32, 16), b.Tensor("E", f32, 16)
				sum := irhelper.Add(irhelper.Read(A, i), irhelper.Read(E, i))
				value := irhelper.Add(irhelper.Mul(sum, irhelper.Read(B, i)), irhelper.Read(D, i))
				return C, irhelper.Compute(C, []*ir.Var{i}, value)
			},
			want: []string{
				"C_0[i] = (A[i] + E[i])",
				"C[i] = vmadd(B[i], D[i], C_0[i])",
			},
			temps: []string{"C_0"},
		},
		{
			name: "multiply-add operand read twice",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
				D, E := b.Tensor("D", f32, 16), b.Tensor("E", f32, 16)
				sum := func() ir.Expr { return irhelper.Add(irhelper.Read(A, i), irhelper.Read(E, i)) }
				fma := irhelper.Add(irhelper.Mul(sum(), irhelper.Read(B, i)), irhelper.Read(D, i))
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Mul(sum(), fma))
			},
			want: []string{
				"C_0[i] = (A[i] + E[i])",
				"C_1[i] = (C_0[i] * B[i])",
				"C_2[i] = (C_1[i] + D[i])",
				"C[i] = (C_0[i] * C_2[i])",
			},
			temps: []string{"C_0", "C_1", "C_2"},
		},
		{
			name: "scaled add operand read twice",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C, E := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16), b.Tensor("E", f32, 16)
				diff := func() ir.Expr { return irhelper.Sub(irhelper.Read(A, i), irhelper.Read(B, i)) }
				axpy := irhelper.Add(irhelper.Mul(irhelper.F32(2), irhelper.Read(E, i)), diff())
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Mul(diff(), axpy))
			},
			want: []string{
				"C_0[i] = (A[i] - B[i])",
				"C_1[i] = (2.0 * E[i])",
				"C_2[i] = (C_1[i] + C_0[i])",
				"C[i] = (C_0[i] * C_2[i])",
			},
			temps: []string{"C_0", "C_1", "C_2"},
		},
		{
			name: "explicit multiply-add on a common sub-expression",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
				D, E := b.Tensor("D", f32, 16), b.Tensor("E", f32, 16)
				sum := func() ir.Expr { return irhelper.Add(irhelper.Read(D, i), irhelper.Read(E, i)) }
				vmadd := ir.Intrinsic(f32, "vmadd", irhelper.Read(A, i), irhelper.Read(B, i), sum())
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Mul(sum(), vmadd))
			},
			want: []string{
				"C_0[i] = (D[i] + E[i])",
				"C_1[i] = C_0[i]",
				"C_1[i] = vmadd(A[i], B[i], C_1[i])",
				"C[i] = (C_0[i] * C_1[i])",
			},
			temps: []string{"C_0", "C_1"},
		},
		{
			name: "nested multiply-add",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
				D, E := b.Tensor("D", f32, 16), b.Tensor("E", f32, 16)
				fma := irhelper.Add(irhelper.Mul(irhelper.Read(A, i), irhelper.F32(2)), irhelper.Mul(irhelper.Read(B, i), irhelper.Read(D, i)))
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Mul(fma, irhelper.Read(E, i)))
			},
			want: []string{
				"C_0[i] = (A[i] * 2.0)",
				"C_0[i] = vmla(B[i], D[i], C_0[i])",
				"C[i] = (C_0[i] * E[i])",
			},
			temps: []string{"C_0"},
		},
		{
			name: "nested scaled add",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
				D, E := b.Tensor("D", f32, 16), b.Tensor("E", f32, 16)
				diff := irhelper.Sub(irhelper.Read(B, i), irhelper.Read(D, i))
				axpy := irhelper.Add(irhelper.Mul(irhelper.F32(2), irhelper.Read(A, i)), diff)
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Mul(axpy, irhelper.Read(E, i)))
			},
			want: []string{
				"C_0[i] = (B[i] - D[i])",
				"C_0[i] = vaxpy(A[i], C_0[i], 2.0)",
				"C[i] = (C_0[i] * E[i])",
			},
			temps: []string{"C_0"},
		},
		{
			name: "select on mixed conjunction and disjunction",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				c1, c2, c3 := b.Tensor("cond1", ir.Bool(), 16), b.Tensor("cond2", ir.Bool(), 16), b.Tensor("cond3", ir.Bool(), 16)
				T, F, Y := b.Tensor("T", f32, 16), b.Tensor("F", f32, 16), b.Tensor("Y", f32, 16)
				cond := irhelper.Or(irhelper.And(irhelper.Read(c1, i), irhelper.Read(c2, i)), irhelper.Read(c3, i))
				value := irhelper.Select(cond, irhelper.Read(T, i), irhelper.Read(F, i))
				return Y, irhelper.Compute(Y, []*ir.Var{i}, value)
			},
			want: []string{
				"Y_0[i] = select(cond1[i], T[i], F[i])",
				"Y_1[i] = select(cond2[i], Y_0[i], F[i])",
				"Y[i] = select(cond3[i], T[i], Y_1[i])",
			},
			temps: []string{"Y_0", "Y_1"},
		},
		{
			name: "difference plus immediate",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
				value := irhelper.Add(irhelper.Sub(irhelper.Read(A, i), irhelper.Read(B, i)), irhelper.F32(1))
				return C, irhelper.Compute(C, []*ir.Var{i}, value)
			},
			want: []string{
				"C_0[i] = (B[i] * -1.0)",
				"C_1[i] = (C_0[i] + 1.0)",
				"C[i] = (A[i] + C_1[i])",
			},
			temps: []string{"C_0", "C_1"},
		},
		{
			name: "sum plus immediate",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
				value := irhelper.Add(irhelper.Add(irhelper.Read(A, i), irhelper.Read(B, i)), irhelper.F32(2))
				return C, irhelper.Compute(C, []*ir.Var{i}, value)
			},
			want: []string{
				"C_0[i] = (B[i] + 2.0)",
				"C[i] = (A[i] + C_0[i])",
			},
			temps: []string{"C_0"},
		},
		{
			name: "reciprocal",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, C := b.Tensor("A", f32, 16), b.Tensor("C", f32, 16)
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Div(irhelper.F32(2), irhelper.Read(A, i)))
			},
			want: []string{
				"C_0[i] = 2.0",
				"C[i] = (C_0[i] / A[i])",
			},
			temps: []string{"C_0"},
		},
		{
			name: "distribute immediate",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, C := b.Tensor("A", f32, 16), b.Tensor("C", f32, 16)
				value := irhelper.Mul(irhelper.F32(2), irhelper.Add(irhelper.F32(3), irhelper.Read(A, i)))
				return C, irhelper.Compute(C, []*ir.Var{i}, value)
			},
			want: []string{
				"C_0[i] = (A[i] * 2.0)",
				"C[i] = (C_0[i] + 6.0)",
			},
			temps: []string{"C_0"},
		},
		{
			name: "scalar cast",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i, n := b.Var("i"), b.Var("n")
				A, C := b.Tensor("A", f32, 16), b.Tensor("C", f32, 16)
				value := irhelper.Mul(irhelper.Cast(f32, n), irhelper.Read(A, i))
				return C, irhelper.Compute(C, []*ir.Var{i}, value)
			},
			want: []string{
				"C_0[i] = n",
				"C_1[i] = float32(C_0[i])",
				"C[i] = (C_1[i] * A[i])",
			},
			temps: []string{"C_0", "C_1"},
		},
		{
			name: "half precision relu",
			build: func(b *irhelper.Builder) (*ir.Tensor, ir.Stmt) {
				i := b.Var("i")
				A, C := b.Tensor("A", ir.Float(16), 16), b.Tensor("C", ir.Float(16), 16)
				return C, irhelper.Compute(C, []*ir.Var{i}, irhelper.Max(irhelper.Read(A, i), irhelper.F16(0)))
			},
			want: []string{
				"C[i] = relu(A[i])",
			},
			temps: []string{},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := irhelper.New()
			out, stmt := test.build(b)
			prog := b.Program(stmt)
			res, err := threeaddr.Run(prog, threeaddr.Options{Verify: true})
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if diff := cmp.Diff(test.want, provides(res.Program.Body)); diff != "" {
				t.Errorf("unexpected instructions:\n%s\ngot:\n%s", diff, res.Program)
			}
			if diff := cmp.Diff(test.temps, tempNames(res, out)); diff != "" {
				t.Errorf("unexpected temporaries:\n%s", diff)
			}
		})
	}
}

func TestRealize(t *testing.T) {
	b := irhelper.New()
	i := b.Var("i")
	A, B := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16)
	prog := b.Program(irhelper.Compute(B, []*ir.Var{i}, irhelper.Sub(irhelper.F32(1), irhelper.Read(A, i))))
	want := `// attr [B_0] realize_scope = 0
realize B_0<float32>([0, 16]) {
	// attr [B] realize_scope = 0
	realize B<float32>([0, 16]) {
		for (i, 0, 16) {
			B_0[i] = (A[i] * -1.0)
			B[i] = (B_0[i] + 1.0)
		}
	}
}`
	got, err := threeaddr.ToThreeAddress(prog, false, 0, false)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff(want, got.String()); diff != "" {
		t.Errorf("unexpected program:\n%s\ngot:\n%s", diff, got)
	}
	// The input program is not modified.
	if diff := cmp.Diff([]string{"B[i] = (1.0 - A[i])"}, provides(prog.Body)); diff != "" {
		t.Errorf("input program modified:\n%s", diff)
	}
}

func TestRealizeAtRoot(t *testing.T) {
	b := irhelper.New()
	i := b.Var("i")
	A, B := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16)
	provide := &ir.Provide{
		Tensor: B,
		Args:   irhelper.Exprs(i),
		Value:  irhelper.Max(irhelper.Read(A, i), irhelper.F32(0.5)),
	}
	prog := b.Program(irhelper.Nest([]irhelper.Loop{{Var: i, Extent: 16}}, provide))
	got, err := threeaddr.ToThreeAddress(prog, false, 0, false)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := `// attr [B_0] realize_scope = 0
realize B_0<float32>([0, 16]) {
	for (i, 0, 16) {
		B_0[i] = 0.5
		B[i] = max(A[i], B_0[i])
	}
}`
	if diff := cmp.Diff(want, got.String()); diff != "" {
		t.Errorf("unexpected program:\n%s\ngot:\n%s", diff, got)
	}
}

func TestScalarStatement(t *testing.T) {
	b := irhelper.New()
	A, B, S := b.Tensor("A", f32, 4), b.Tensor("B", f32, 4), b.Tensor("S", f32)
	value := irhelper.Mul(
		irhelper.Sub(ir.Read(A, irhelper.Int(0)), ir.Read(B, irhelper.Int(0))),
		irhelper.F32(3),
	)
	prog := b.Program(&ir.Provide{Tensor: S, Value: value})
	res, err := threeaddr.Run(prog, threeaddr.Options{})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := []string{
		"S_0[0] = (A[0] - B[0])",
		"S[] = (S_0[0] * 3.0)",
	}
	if diff := cmp.Diff(want, provides(res.Program.Body)); diff != "" {
		t.Errorf("unexpected instructions:\n%s\ngot:\n%s", diff, res.Program)
	}
	temps, _ := res.Temps.Load(S.ID)
	if len(temps) != 1 || temps[0].Rank() != 1 {
		t.Errorf("got temporaries %v but want a single temporary of rank 1", temps)
	}
}

func TestHashCollision(t *testing.T) {
	tests := []struct {
		value func(A, B *ir.Tensor, i *ir.Var) ir.Expr
		want  []string
	}{
		{
			value: func(A, B *ir.Tensor, i *ir.Var) ir.Expr {
				return irhelper.Div(
					irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)),
					irhelper.Sub(irhelper.Read(A, i), irhelper.Read(B, i)),
				)
			},
			want: []string{
				"C_0[i] = (A[i] * B[i])",
				"C_1[i] = (A[i] - B[i])",
				"C[i] = (C_0[i] / C_1[i])",
			},
		},
		{
			value: func(A, B *ir.Tensor, i *ir.Var) ir.Expr {
				return irhelper.Div(
					irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)),
					irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)),
				)
			},
			want: []string{
				"C_0[i] = (A[i] * B[i])",
				"C[i] = (C_0[i] / C_0[i])",
			},
		},
	}
	for n, test := range tests {
		b := irhelper.New()
		i := b.Var("i")
		A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
		prog := b.Program(irhelper.Compute(C, []*ir.Var{i}, test.value(A, B, i)))
		opts := threeaddr.Options{}
		threeaddr.SetHash(&opts, func(ir.Expr) uint64 { return 0 })
		res, err := threeaddr.Run(prog, opts)
		if err != nil {
			t.Fatalf("test %d: %+v", n, err)
		}
		if diff := cmp.Diff(test.want, provides(res.Program.Body)); diff != "" {
			t.Errorf("test %d: unexpected instructions:\n%s\ngot:\n%s", n, diff, res.Program)
		}
	}
}

// scope wraps a statement into the realize scaffolding of a tensor.
func scope(t *ir.Tensor, body ir.Stmt) ir.Stmt {
	bounds := make([]ir.Range, len(t.Shape))
	for i, dim := range t.Shape {
		bounds[i] = ir.Range{Min: irhelper.Int(0), Extent: dim}
	}
	return &ir.Attr{
		Tensor: t,
		Key:    ir.RealizeScope,
		Value:  irhelper.Int(0),
		Body:   &ir.Realize{Tensor: t, Bounds: bounds, Cond: ir.BoolConst(true), Body: body},
	}
}

func TestCrossStatement(t *testing.T) {
	tests := []struct {
		cross bool
		want  []string
	}{
		{
			cross: false,
			want: []string{
				"C_0[i] = (A[i] * B[i])",
				"C[i] = (C_0[i] * 2.0)",
				"D_2[i] = (A[i] * B[i])",
				"D[i] = (D_2[i] + 1.0)",
			},
		},
		{
			cross: true,
			want: []string{
				"C_0[i] = (A[i] * B[i])",
				"C[i] = (C_0[i] * 2.0)",
				"D[i] = (C_0[i] + 1.0)",
			},
		},
	}
	for n, test := range tests {
		b := irhelper.New()
		i := b.Var("i")
		A, B := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16)
		C, D := b.Tensor("C", f32, 16), b.Tensor("D", f32, 16)
		product := func() ir.Expr { return irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)) }
		loop := irhelper.Nest([]irhelper.Loop{{Var: i, Extent: 16}}, irhelper.Block(
			&ir.Provide{Tensor: C, Args: irhelper.Exprs(i), Value: irhelper.Mul(product(), irhelper.F32(2))},
			&ir.Provide{Tensor: D, Args: irhelper.Exprs(i), Value: irhelper.Add(product(), irhelper.F32(1))},
		))
		prog := b.Program(scope(C, scope(D, loop)))
		got, err := threeaddr.ToThreeAddress(prog, false, 0, test.cross)
		if err != nil {
			t.Fatalf("test %d: %+v", n, err)
		}
		if diff := cmp.Diff(test.want, provides(got.Body)); diff != "" {
			t.Errorf("test %d: unexpected instructions:\n%s\ngot:\n%s", n, diff, got)
		}
	}
}

func TestReuseVariable(t *testing.T) {
	tests := []struct {
		minimumSplit int
		want         []string
		temps        []string
	}{
		{
			minimumSplit: 0,
			want: []string{
				"C_0[i] = (A[i] * B[i])",
				"C_1[i] = (A[i] - B[i])",
				"C_0[i] = (C_0[i] / C_1[i])",
				"C[i] = (C_0[i] / D[i])",
			},
			temps: []string{"C_0", "C_1"},
		},
		{
			minimumSplit: 3,
			want: []string{
				"C_0[i] = (A[i] * B[i])",
				"C_1[i] = (A[i] - B[i])",
				"C_2[i] = (C_0[i] / C_1[i])",
				"C[i] = (C_2[i] / D[i])",
			},
			temps: []string{"C_0", "C_1", "C_2"},
		},
	}
	for n, test := range tests {
		b := irhelper.New()
		i := b.Var("i")
		A, B, C, D := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16), b.Tensor("D", f32, 16)
		ratio := irhelper.Div(
			irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)),
			irhelper.Sub(irhelper.Read(A, i), irhelper.Read(B, i)),
		)
		prog := b.Program(irhelper.Compute(C, []*ir.Var{i}, irhelper.Div(ratio, irhelper.Read(D, i))))
		res, err := threeaddr.Run(prog, threeaddr.Options{
			ReuseVariable: true,
			MinimumSplit:  test.minimumSplit,
			Verify:        true,
		})
		if err != nil {
			t.Fatalf("test %d: %+v", n, err)
		}
		if diff := cmp.Diff(test.want, provides(res.Program.Body)); diff != "" {
			t.Errorf("test %d: unexpected instructions:\n%s\ngot:\n%s", n, diff, res.Program)
		}
		if diff := cmp.Diff(test.temps, tempNames(res, C)); diff != "" {
			t.Errorf("test %d: unexpected temporaries:\n%s", n, diff)
		}
	}
}

func TestPassThrough(t *testing.T) {
	b := irhelper.New()
	i := b.Var("i")
	A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
	mad := ir.Intrinsic(f32, "mad", irhelper.Add(irhelper.Read(A, i), irhelper.Read(B, i)), irhelper.Read(C, i))
	prog := b.Program(irhelper.Compute(C, []*ir.Var{i}, mad))
	got, err := threeaddr.ToThreeAddress(prog, false, 0, false)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff(prog.String(), got.String()); diff != "" {
		t.Errorf("pass-through statement modified:\n%s", diff)
	}
}

func TestWholeProgramSkip(t *testing.T) {
	b := irhelper.New()
	i := b.Var("i")
	A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
	load := ir.Intrinsic(f32, "load3d_l1_ub", irhelper.Read(A, i))
	prog := b.Program(
		irhelper.Compute(B, []*ir.Var{i}, load),
		irhelper.Compute(C, []*ir.Var{i}, irhelper.Sub(irhelper.F32(1), irhelper.Read(B, i))),
	)
	if threeaddr.NeedsLowering(prog) {
		t.Errorf("program calling load3d_l1_ub needs lowering")
	}
	got, err := threeaddr.ToThreeAddress(prog, false, 0, false)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if got != prog {
		t.Errorf("program calling load3d_l1_ub has been modified:\n%s", got)
	}
}

func TestIdempotent(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *irhelper.Builder) ir.Stmt
	}{
		{
			name: "immediate minus tensor",
			build: func(b *irhelper.Builder) ir.Stmt {
				i := b.Var("i")
				A, B := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16)
				return irhelper.Compute(B, []*ir.Var{i}, irhelper.Sub(irhelper.F32(1), irhelper.Read(A, i)))
			},
		},
		{
			name: "multiply-add",
			build: func(b *irhelper.Builder) ir.Stmt {
				i := b.Var("i")
				A, B, C, D := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16), b.Tensor("D", f32, 16)
				value := irhelper.Add(irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)), irhelper.Read(D, i))
				return irhelper.Compute(C, []*ir.Var{i}, value)
			},
		},
		{
			name: "multiply-add relu",
			build: func(b *irhelper.Builder) ir.Stmt {
				i := b.Var("i")
				A, B, C, D := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16), b.Tensor("D", f32, 16)
				fma := irhelper.Add(irhelper.Mul(irhelper.Read(A, i), irhelper.Read(B, i)), irhelper.Read(D, i))
				return irhelper.Compute(C, []*ir.Var{i}, irhelper.Max(fma, irhelper.F32(0)))
			},
		},
		{
			name: "nested multiply-add",
			build: func(b *irhelper.Builder) ir.Stmt {
				i := b.Var("i")
				A, B, C := b.Tensor("A", f32, 16), b.Tensor("B", f32, 16), b.Tensor("C", f32, 16)
				D, E := b.Tensor("D", f32, 16), b.Tensor("E", f32, 16)
				fma := irhelper.Add(irhelper.Mul(irhelper.Read(A, i), irhelper.F32(2)), irhelper.Mul(irhelper.Read(B, i), irhelper.Read(D, i)))
				return irhelper.Compute(C, []*ir.Var{i}, irhelper.Mul(fma, irhelper.Read(E, i)))
			},
		},
		{
			name: "reduction",
			build: func(b *irhelper.Builder) ir.Stmt {
				i, k := b.Var("i"), b.Var("k")
				A, B := b.Tensor("A", f32, 16, 8), b.Tensor("B", f32, 16)
				scaled := irhelper.Mul(irhelper.Read(A, i, k), irhelper.F32(2))
				value := irhelper.Add(irhelper.Read(B, i), scaled)
				return irhelper.Compute(B, []*ir.Var{i}, value, irhelper.Loop{Var: k, Extent: 8})
			},
		},
		{
			name: "select on mixed conjunction and disjunction",
			build: func(b *irhelper.Builder) ir.Stmt {
				i := b.Var("i")
				c1, c2, c3 := b.Tensor("cond1", ir.Bool(), 16), b.Tensor("cond2", ir.Bool(), 16), b.Tensor("cond3", ir.Bool(), 16)
				T, F, Y := b.Tensor("T", f32, 16), b.Tensor("F", f32, 16), b.Tensor("Y", f32, 16)
				cond := irhelper.Or(irhelper.And(irhelper.Read(c1, i), irhelper.Read(c2, i)), irhelper.Read(c3, i))
				return irhelper.Compute(Y, []*ir.Var{i}, irhelper.Select(cond, irhelper.Read(T, i), irhelper.Read(F, i)))
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := irhelper.New()
			prog := b.Program(test.build(b))
			first, err := threeaddr.ToThreeAddress(prog, false, 0, false)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			second, err := threeaddr.ToThreeAddress(first, false, 0, false)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if diff := cmp.Diff(provides(first.Body), provides(second.Body)); diff != "" {
				t.Errorf("lowering a lowered program changed it:\n%s", diff)
			}
		})
	}
}

func TestInternalError(t *testing.T) {
	b := irhelper.New()
	i, k := b.Var("i"), b.Var("k")
	A, B := b.Tensor("A", f32, 16, 8), b.Tensor("B", f32, 16)
	// k is not bound by any loop.
	value := irhelper.Add(irhelper.Read(B, i), irhelper.Read(A, i, k))
	prog := b.Program(irhelper.Compute(B, []*ir.Var{i}, value))
	_, err := threeaddr.Run(prog, threeaddr.Options{})
	if err == nil {
		t.Fatalf("expected an error but got nil")
	}
	if !fmterr.IsInternal(err) {
		t.Errorf("got error %v but want an internal error", err)
	}
}

func TestEmptyProgram(t *testing.T) {
	if _, err := threeaddr.Run(nil, threeaddr.Options{}); err == nil {
		t.Errorf("expected an error but got nil")
	}
}
