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

// Package ir is the tensor expression Intermediate Representation (IR) tree
// consumed and produced by the lowering passes.
//
// Expressions and statements form closed sets of nodes: every node of
// the package implements an unexported marker method so that no other
// package can add new node kinds. Nodes are immutable once built:
// passes rewrite trees by building new nodes.
package ir

import (
	"fmt"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/tac/build/ir/irkind"
)

// ----------------------------------------------------------------------------
// Types of node in the tree.
type (
	// Node in the tree.
	Node interface {
		// node marks a structure as a node structure.
		// It prevents external implementations of the interface.
		node()
	}

	// Expr is an expression computing a scalar value.
	Expr interface {
		Node
		fmt.Stringer

		// Type of the value computed by the expression.
		Type() Type
	}

	// Stmt is a statement.
	Stmt interface {
		Node
		fmt.Stringer
		stmt()
	}
)

// Type is the scalar element type of an expression.
type Type struct {
	Kind irkind.Kind
	Bits int
}

// Int returns a signed integer type.
func Int(bits int) Type {
	return Type{Kind: irkind.Int, Bits: bits}
}

// UInt returns an unsigned integer type.
func UInt(bits int) Type {
	return Type{Kind: irkind.Uint, Bits: bits}
}

// Float returns a floating point type.
func Float(bits int) Type {
	return Type{Kind: irkind.Float, Bits: bits}
}

// Bool returns the boolean type.
func Bool() Type {
	return Type{Kind: irkind.Bool, Bits: 1}
}

// IsInt returns true if the type is a signed integer.
func (t Type) IsInt() bool { return t.Kind == irkind.Int }

// IsUInt returns true if the type is an unsigned integer.
func (t Type) IsUInt() bool { return t.Kind == irkind.Uint }

// IsFloat returns true if the type is a floating point number.
func (t Type) IsFloat() bool { return t.Kind == irkind.Float }

// IsBool returns true if the type is a boolean.
func (t Type) IsBool() bool { return t.Kind == irkind.Bool }

// DType returns the backend data type of the element type.
func (t Type) DType() dtype.DataType {
	return irkind.DType(t.Kind, t.Bits)
}

// String representation of the type.
func (t Type) String() string {
	if t.Kind == irkind.Bool || t.Kind == irkind.Invalid {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s%d", t.Kind, t.Bits)
}

// ----------------------------------------------------------------------------
// Expressions.
type (
	// IntImm is an integer (or boolean) immediate value.
	IntImm struct {
		Typ Type
		Val int64
	}

	// FloatImm is a floating point immediate value.
	FloatImm struct {
		Typ Type
		Val float64
	}

	// Var is a scalar variable, typically a loop iteration variable.
	// Variables are interned by an Arena: two variables are the same
	// variable if and only if they have the same ID.
	Var struct {
		ID   VarID
		Name string
		Typ  Type
	}

	// Cast converts a value to another element type.
	Cast struct {
		Typ Type
		X   Expr
	}

	// Neg negates a value.
	Neg struct {
		X Expr
	}

	// Not is the logical negation of a boolean value.
	Not struct {
		X Expr
	}

	// Binary is a binary operation.
	Binary struct {
		Op   Op
		X, Y Expr
	}

	// Select evaluates to True if Cond is true, False otherwise.
	Select struct {
		Cond, True, False Expr
	}

	// Call is either a read of a tensor element (Kind == Halide)
	// or a call to a named intrinsic.
	Call struct {
		Typ    Type
		Name   string
		Args   []Expr
		Kind   CallKind
		Tensor *Tensor // Only set for Halide calls.
	}
)

func (*IntImm) node()   {}
func (*FloatImm) node() {}
func (*Var) node()      {}
func (*Cast) node()     {}
func (*Neg) node()      {}
func (*Not) node()      {}
func (*Binary) node()   {}
func (*Select) node()   {}
func (*Call) node()     {}

// Type of the immediate.
func (e *IntImm) Type() Type { return e.Typ }

// Type of the immediate.
func (e *FloatImm) Type() Type { return e.Typ }

// Type of the variable.
func (e *Var) Type() Type { return e.Typ }

// Type of the conversion target.
func (e *Cast) Type() Type { return e.Typ }

// Type of the operand.
func (e *Neg) Type() Type { return e.X.Type() }

// Type returns the boolean type.
func (e *Not) Type() Type { return Bool() }

// Type of the result of the operation.
// Comparisons and logical operations return a boolean.
func (e *Binary) Type() Type {
	if e.Op.IsCompare() || e.Op.IsLogical() {
		return Bool()
	}
	return e.X.Type()
}

// Type of the true branch.
func (e *Select) Type() Type { return e.True.Type() }

// Type of the value returned by the call.
func (e *Call) Type() Type { return e.Typ }

// Op is a binary operator.
type Op int

// Binary operators.
const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod
	Min
	Max
	EQ
	NE
	LT
	LE
	GT
	GE
	And
	Or
)

var opStrings = [...]string{
	Add: "+",
	Sub: "-",
	Mul: "*",
	Div: "/",
	Mod: "%",
	Min: "min",
	Max: "max",
	EQ:  "==",
	NE:  "!=",
	LT:  "<",
	LE:  "<=",
	GT:  ">",
	GE:  ">=",
	And: "&&",
	Or:  "||",
}

// String returns the symbol of the operator.
func (op Op) String() string {
	if op < 0 || int(op) >= len(opStrings) {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return opStrings[op]
}

// IsCompare returns true if the operator compares two values.
func (op Op) IsCompare() bool {
	return op >= EQ && op <= GE
}

// IsLogical returns true if the operator is a logical AND or OR.
func (op Op) IsLogical() bool {
	return op == And || op == Or
}

// IsCommutative returns true if the operands of the operator can be swapped.
func (op Op) IsCommutative() bool {
	switch op {
	case Add, Mul, Min, Max, EQ, NE, And, Or:
		return true
	}
	return false
}

// CallKind is the kind of a call.
type CallKind int

// Kinds of call.
const (
	// Halide is a read of a tensor element.
	Halide CallKind = iota
	// PureIntrinsic is a side-effect free intrinsic.
	PureIntrinsic
	// CallIntrinsic is an intrinsic that may have side effects.
	CallIntrinsic
	// Extern is a call to an external function.
	Extern
)

// IsHalide returns true if the call reads a tensor.
func (e *Call) IsHalide() bool { return e.Kind == Halide }

// Tensor is a named, shaped and typed storage location.
// Tensors are interned by an Arena.
type Tensor struct {
	ID    TensorID
	Name  string
	Shape []Expr
	DType Type
}

// Rank of the tensor.
func (t *Tensor) Rank() int { return len(t.Shape) }

// String returns the name of the tensor.
func (t *Tensor) String() string { return t.Name }

// Range is an interval [Min, Min+Extent).
type Range struct {
	Min, Extent Expr
}

// ----------------------------------------------------------------------------
// Statements.
type (
	// Provide stores Value into the element of Tensor at index Args.
	Provide struct {
		Tensor *Tensor
		Args   []Expr
		Value  Expr
	}

	// Block is a sequence of statements.
	Block struct {
		List []Stmt
	}

	// For iterates Var over [Min, Min+Extent).
	For struct {
		Var         *Var
		Min, Extent Expr
		Body        Stmt
	}

	// Realize allocates the storage of a tensor for the scope of Body.
	Realize struct {
		Tensor *Tensor
		Bounds []Range
		Cond   Expr
		Body   Stmt
	}

	// Attr attaches an attribute to a tensor for the scope of Body.
	Attr struct {
		Tensor *Tensor
		Key    string
		Value  Expr
		Body   Stmt
	}

	// IfThenElse executes Then if Cond is true, Else otherwise.
	// Else may be nil.
	IfThenElse struct {
		Cond Expr
		Then Stmt
		Else Stmt
	}

	// Evaluate evaluates an expression for its side effects.
	Evaluate struct {
		Value Expr
	}
)

// RealizeScope is the attribute key marking the scope where a tensor is realized.
const RealizeScope = "realize_scope"

func (*Provide) node()    {}
func (*Block) node()      {}
func (*For) node()        {}
func (*Realize) node()    {}
func (*Attr) node()       {}
func (*IfThenElse) node() {}
func (*Evaluate) node()   {}

func (*Provide) stmt()    {}
func (*Block) stmt()      {}
func (*For) stmt()        {}
func (*Realize) stmt()    {}
func (*Attr) stmt()       {}
func (*IfThenElse) stmt() {}
func (*Evaluate) stmt()   {}

// Program is a statement tree together with the arena
// owning its variables and tensors.
type Program struct {
	Arena *Arena
	Body  Stmt
}

// String representation of the program body.
func (p *Program) String() string {
	if p.Body == nil {
		return ""
	}
	return p.Body.String()
}
