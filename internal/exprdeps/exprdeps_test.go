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

package exprdeps_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/build/ir/irhelper"
	"github.com/gx-org/tac/internal/exprdeps"
)

func names(vals []*ir.Var) []string {
	ss := make([]string, len(vals))
	for i, val := range vals {
		ss[i] = val.Name
	}
	return ss
}

func TestVars(t *testing.T) {
	b := irhelper.New()
	i, j, k := b.Var("i"), b.Var("j"), b.Var("k")
	A := b.Tensor("A", ir.Float(32), 4, 4)
	tests := []struct {
		exprs []ir.Expr
		want  []string
		count int
		occur int
	}{
		{
			exprs: []ir.Expr{i},
			want:  []string{"i"},
			count: 1,
			occur: 1,
		},
		{
			exprs: []ir.Expr{irhelper.Add(j, i)},
			want:  []string{"j", "i"},
			count: 2,
			occur: 2,
		},
		{
			exprs: []ir.Expr{irhelper.Read(A, j, j)},
			want:  []string{"j"},
			count: 1,
			occur: 2,
		},
		{
			exprs: []ir.Expr{irhelper.Read(A, i, k), irhelper.Add(k, irhelper.Int(1))},
			want:  []string{"i", "k"},
			count: 2,
			occur: 3,
		},
		{
			exprs: []ir.Expr{irhelper.F32(3)},
			want:  []string{},
		},
	}
	for n, test := range tests {
		got := names(exprdeps.Vars(test.exprs...))
		if !cmp.Equal(got, test.want) {
			t.Errorf("test %d: incorrect variable list: got %v but want %v", n, got, test.want)
		}
		if got := exprdeps.Count(test.exprs...); got != test.count {
			t.Errorf("test %d: incorrect count: got %d but want %d", n, got, test.count)
		}
		if got := exprdeps.Occurrences(test.exprs...); got != test.occur {
			t.Errorf("test %d: incorrect occurrences: got %d but want %d", n, got, test.occur)
		}
	}
}

func TestUses(t *testing.T) {
	b := irhelper.New()
	i, j := b.Var("i"), b.Var("j")
	expr := irhelper.Mul(i, irhelper.Int(2))
	if !exprdeps.Uses(expr, i) {
		t.Errorf("%s should use %s", expr, i)
	}
	if exprdeps.Uses(expr, j) {
		t.Errorf("%s should not use %s", expr, j)
	}
}
