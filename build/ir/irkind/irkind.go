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

// Package irkind defines the element type kinds of the tensor IR.
package irkind

import "github.com/gx-org/backend/dtype"

// Kind of a scalar element type.
// The width of the element is carried separately.
type Kind uint

// Kind of element supported by the IR.
const (
	Invalid Kind = iota
	Bool
	Int
	Uint
	Float
)

// String returns a string representation of a kind.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	}
	return "invalid"
}

// DType converts a kind and a width in bits into a backend data type.
// Element types the backend cannot represent return dtype.Invalid.
func DType(k Kind, bits int) dtype.DataType {
	switch k {
	case Bool:
		return dtype.Bool
	case Int:
		switch bits {
		case 32:
			return dtype.Int32
		case 64:
			return dtype.Int64
		}
	case Uint:
		switch bits {
		case 32:
			return dtype.Uint32
		case 64:
			return dtype.Uint64
		}
	case Float:
		switch bits {
		case 32:
			return dtype.Float32
		case 64:
			return dtype.Float64
		}
	}
	return dtype.Invalid
}

// FromDType returns the kind and width of a backend data type.
func FromDType(dt dtype.DataType) (Kind, int) {
	switch dt {
	case dtype.Bool:
		return Bool, 1
	case dtype.Int32:
		return Int, 32
	case dtype.Int64:
		return Int, 64
	case dtype.Uint32:
		return Uint, 32
	case dtype.Uint64:
		return Uint, 64
	case dtype.Bfloat16:
		return Float, 16
	case dtype.Float32:
		return Float, 32
	case dtype.Float64:
		return Float, 64
	}
	return Invalid, 0
}

// IsInteger returns true if the kind is a signed or unsigned integer.
func IsInteger(k Kind) bool {
	return k == Int || k == Uint
}
