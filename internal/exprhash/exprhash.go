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

// Package exprhash computes structural hashes of IR expressions.
//
// Hashes are candidate filters for common sub-expression caches:
// two expressions with the same hash are not necessarily equal, and
// callers must confirm a hit with ir.Equal.
package exprhash

import (
	"hash/fnv"
	"math"

	"github.com/gx-org/tac/build/fmterr"
	"github.com/gx-org/tac/build/ir"
)

// Hasher hashes expressions.
type Hasher struct {
	// Cross hashes variables and intrinsic calls by name instead of
	// identity, so that expressions built from different statements can match.
	Cross bool
}

// Tags distinguishing node kinds without a dedicated rule.
const (
	tagVar uint64 = iota + 1
	tagTensor
	tagCast
	tagNeg
	tagNot
	tagSelect
	tagBinary
)

// Combine mixes a value into a seed.
func Combine(seed, v uint64) uint64 {
	return seed ^ (v + 0x9e3779b9 + (seed << 6) + (seed >> 2))
}

// String returns the hash of a string.
func String(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Hash returns the hash of an expression.
func (h Hasher) Hash(expr ir.Expr) uint64 {
	switch exprT := expr.(type) {
	case *ir.IntImm:
		return uint64(exprT.Val)
	case *ir.FloatImm:
		return math.Float64bits(exprT.Val)
	case *ir.Var:
		if h.Cross {
			return String(exprT.Name)
		}
		return Combine(tagVar, uint64(exprT.ID))
	case *ir.Cast:
		return Combine(Combine(tagCast, h.Hash(exprT.X)), String(exprT.Typ.String()))
	case *ir.Neg:
		return Combine(tagNeg, h.Hash(exprT.X))
	case *ir.Not:
		return Combine(tagNot, h.Hash(exprT.X))
	case *ir.Select:
		seed := Combine(tagSelect, h.Hash(exprT.Cond))
		seed = Combine(seed, h.Hash(exprT.True))
		return Combine(seed, h.Hash(exprT.False))
	case *ir.Binary:
		return h.binary(exprT)
	case *ir.Call:
		return h.call(exprT)
	default:
		fmterr.Fail("expression type %T not supported", expr)
	}
	return 0
}

func (h Hasher) binary(expr *ir.Binary) uint64 {
	x, y := h.Hash(expr.X), h.Hash(expr.Y)
	switch expr.Op {
	case ir.Add:
		return x + y
	case ir.Sub:
		return x - y
	case ir.Mul:
		return x * y
	case ir.Div:
		if y == 0 {
			return x + 1
		}
		return x / y
	}
	seed := Combine(tagBinary, uint64(expr.Op))
	seed = Combine(seed, x)
	return Combine(seed, y)
}

func (h Hasher) call(expr *ir.Call) uint64 {
	var seed uint64
	switch {
	case expr.IsHalide():
		seed = Combine(tagTensor, uint64(expr.Tensor.ID))
	case h.Cross:
		seed = String(expr.Name)
	}
	for _, arg := range expr.Args {
		seed = Combine(seed, h.Hash(arg))
	}
	return seed
}
