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

// Package uname provides unique names.
package uname

import "fmt"

// Unique generates unique names.
type Unique struct {
	taken map[string]bool
	names map[string]int
	next  int
}

// New name generator.
func New() *Unique {
	return &Unique{
		taken: make(map[string]bool),
		names: make(map[string]int),
	}
}

// Register marks a name as used so that it is never generated.
func (n *Unique) Register(name string) {
	n.taken[name] = true
}

// Name returns a unique name given a desired base name.
// If the base name is available, it is returned directly. Else, a unique suffix is appended.
func (n *Unique) Name(root string) string {
	for {
		nextIndex, ok := n.names[root]
		name := root
		if ok {
			name = fmt.Sprintf("%s%d", root, nextIndex)
		}
		n.names[root] = nextIndex + 1
		if !n.taken[name] {
			n.taken[name] = true
			return name
		}
	}
}

// Indexed returns root_N where N is taken from a counter shared by all roots.
// The counter only increases: a name is never generated twice by the same generator.
func (n *Unique) Indexed(root string) string {
	for {
		name := fmt.Sprintf("%s_%d", root, n.next)
		n.next++
		if !n.taken[name] {
			n.taken[name] = true
			return name
		}
	}
}
