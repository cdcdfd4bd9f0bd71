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
	"slices"

	"github.com/gx-org/tac/build/fmterr"
)

type (
	// VarID identifies a variable in an arena.
	VarID int

	// TensorID identifies a tensor in an arena.
	TensorID int
)

// Arena interns the variables and tensors of a program.
// Identity of variables and tensors is the identity of their ID.
type Arena struct {
	vars    []*Var
	tensors []*Tensor
}

// NewArena returns a new empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Clone returns a copy of the arena sharing the same variables and tensors.
// Variables and tensors created in the copy are not visible in a.
func (a *Arena) Clone() *Arena {
	return &Arena{
		vars:    slices.Clone(a.vars),
		tensors: slices.Clone(a.tensors),
	}
}

// NewVar creates a new variable.
func (a *Arena) NewVar(name string, typ Type) *Var {
	v := &Var{ID: VarID(len(a.vars)), Name: name, Typ: typ}
	a.vars = append(a.vars, v)
	return v
}

// NewTensor creates a new tensor.
func (a *Arena) NewTensor(name string, typ Type, shape []Expr) *Tensor {
	t := &Tensor{
		ID:    TensorID(len(a.tensors)),
		Name:  name,
		Shape: shape,
		DType: typ,
	}
	a.tensors = append(a.tensors, t)
	return t
}

// Var returns the variable given its ID.
func (a *Arena) Var(id VarID) *Var {
	fmterr.Check(int(id) >= 0 && int(id) < len(a.vars), "variable ID %d out of range [0, %d)", id, len(a.vars))
	return a.vars[id]
}

// Tensor returns the tensor given its ID.
func (a *Arena) Tensor(id TensorID) *Tensor {
	fmterr.Check(int(id) >= 0 && int(id) < len(a.tensors), "tensor ID %d out of range [0, %d)", id, len(a.tensors))
	return a.tensors[id]
}

// Tensors returns all the tensors of the arena, in creation order.
func (a *Arena) Tensors() []*Tensor {
	return a.tensors
}

// NumTensors returns the number of tensors in the arena.
func (a *Arena) NumTensors() int {
	return len(a.tensors)
}
