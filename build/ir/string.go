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

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	gxfmt "github.com/gx-org/tac/base/fmt"
	"github.com/gx-org/tac/base/stringseq"
)

func (e *IntImm) String() string {
	if e.Typ.IsBool() {
		return strconv.FormatBool(e.Val != 0)
	}
	s := strconv.FormatInt(e.Val, 10)
	if e.Typ != Int(32) {
		return e.Typ.String() + "(" + s + ")"
	}
	return s
}

func (e *FloatImm) String() string {
	s := strconv.FormatFloat(e.Val, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

func (e *Var) String() string {
	return e.Name
}

func (e *Cast) String() string {
	return e.Typ.String() + "(" + e.X.String() + ")"
}

func (e *Neg) String() string {
	return "-" + e.X.String()
}

func (e *Not) String() string {
	return "!" + e.X.String()
}

func (e *Binary) String() string {
	if e.Op == Min || e.Op == Max {
		return fmt.Sprintf("%s(%s, %s)", e.Op, e.X, e.Y)
	}
	return fmt.Sprintf("(%s %s %s)", e.X, e.Op, e.Y)
}

func (e *Select) String() string {
	return fmt.Sprintf("select(%s, %s, %s)", e.Cond, e.True, e.False)
}

func (e *Call) String() string {
	if e.IsHalide() {
		return e.Name + "[" + joinExprs(e.Args) + "]"
	}
	return e.Name + "(" + joinExprs(e.Args) + ")"
}

func joinExprs(exprs []Expr) string {
	return stringseq.JoinStringer(slices.Values(exprs), ", ")
}

func (s *Provide) String() string {
	return s.Tensor.Name + "[" + joinExprs(s.Args) + "] = " + s.Value.String()
}

func (s *Block) String() string {
	return stringseq.JoinStringer(slices.Values(s.List), "\n")
}

func (s *For) String() string {
	header := fmt.Sprintf("for (%s, %s, %s)", s.Var, s.Min, s.Extent)
	return gxfmt.Block(header, s.Body.String())
}

func (s *Realize) String() string {
	bounds := make([]string, len(s.Bounds))
	for i, rng := range s.Bounds {
		bounds[i] = fmt.Sprintf("[%s, %s]", rng.Min, rng.Extent)
	}
	header := fmt.Sprintf("realize %s<%s>(%s)", s.Tensor.Name, s.Tensor.DType, strings.Join(bounds, ", "))
	if s.Cond != nil && !IsConstValue(s.Cond, 1) {
		header += " if " + s.Cond.String()
	}
	return gxfmt.Block(header, s.Body.String())
}

func (s *Attr) String() string {
	value := ""
	if s.Value != nil {
		value = s.Value.String()
	}
	return fmt.Sprintf("// attr [%s] %s = %s\n%s", s.Tensor.Name, s.Key, value, s.Body)
}

func (s *IfThenElse) String() string {
	str := gxfmt.Block(fmt.Sprintf("if (%s)", s.Cond), s.Then.String())
	if s.Else != nil {
		str += gxfmt.Block(" else", s.Else.String())
	}
	return str
}

func (s *Evaluate) String() string {
	return s.Value.String()
}
