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

package threeaddr

import (
	"github.com/gx-org/tac/build/ir"
	"golang.org/x/exp/maps"
)

type cseEntry struct {
	value ir.Expr
	read  *ir.Call
}

// cseCache maps the hash of values to the temporaries storing them.
//
// Only one entry is stored per hash. The hash is a candidate filter:
// a hit is confirmed with ir.Equal. A value colliding with a different
// value is never cached and the existing entry is kept.
type cseCache struct {
	hash    func(ir.Expr) uint64
	entries map[uint64]cseEntry
}

func newCSECache(hash func(ir.Expr) uint64) *cseCache {
	return &cseCache{hash: hash, entries: make(map[uint64]cseEntry)}
}

// lookup returns the read of the temporary storing value.
func (c *cseCache) lookup(value ir.Expr) (*ir.Call, bool) {
	entry, ok := c.entries[c.hash(value)]
	if !ok || !ir.Equal(entry.value, value) {
		return nil, false
	}
	return entry.read, true
}

// isTempRead returns true if value is the read of a temporary in the cache.
// Such a value does not need to be allocated again.
func (c *cseCache) isTempRead(value ir.Expr) bool {
	for _, entry := range c.entries {
		if ir.Equal(entry.read, value) {
			return true
		}
	}
	return false
}

// store records that read stores value.
// Returns false if the slot is already taken.
func (c *cseCache) store(value ir.Expr, read *ir.Call) bool {
	h := c.hash(value)
	if _, taken := c.entries[h]; taken {
		return false
	}
	c.entries[h] = cseEntry{value: value, read: read}
	return true
}

// invalidate removes all entries stored in tmp or depending on its value.
func (c *cseCache) invalidate(tmp *ir.Tensor) {
	for h, entry := range c.entries {
		if ir.SameTensor(entry.read.Tensor, tmp) || ir.ReadsTensor(entry.value, tmp) {
			delete(c.entries, h)
		}
	}
}

// snapshot returns a copy of the entries.
func (c *cseCache) snapshot() map[uint64]cseEntry {
	return maps.Clone(c.entries)
}

// load replaces the entries of the cache with a copy of entries.
func (c *cseCache) load(entries map[uint64]cseEntry) {
	c.entries = maps.Clone(entries)
	if c.entries == nil {
		c.entries = make(map[uint64]cseEntry)
	}
}
