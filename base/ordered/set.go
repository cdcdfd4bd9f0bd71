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

package ordered

import (
	"iter"
	"slices"
)

// Set is a set of keys iterated in insertion order.
type Set[K comparable] struct {
	m *Map[K, struct{}]
}

// NewSet returns a set with the given elements.
func NewSet[K comparable](ks ...K) *Set[K] {
	s := &Set[K]{m: NewMap[K, struct{}]()}
	for _, k := range ks {
		s.Add(k)
	}
	return s
}

// Add an element to the set. Returns false if the element was already present.
func (s *Set[K]) Add(k K) bool {
	if s.m.Has(k) {
		return false
	}
	s.m.Store(k, struct{}{})
	return true
}

// Has returns true if the element is in the set.
func (s *Set[K]) Has(k K) bool {
	return s.m.Has(k)
}

// Delete an element from the set.
func (s *Set[K]) Delete(k K) {
	s.m.Delete(k)
}

// All returns an iterator over the elements of the set.
func (s *Set[K]) All() iter.Seq[K] {
	return s.m.Keys()
}

// Slice returns the elements of the set in insertion order.
func (s *Set[K]) Slice() []K {
	return slices.Collect(s.m.Keys())
}

// Size returns the number of elements in the set.
func (s *Set[K]) Size() int {
	return s.m.Size()
}
