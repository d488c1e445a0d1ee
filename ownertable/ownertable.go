// Copyright 2026 The Accounts-DB Authors
// This file is part of Accounts-DB.
//
// Accounts-DB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Accounts-DB is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Accounts-DB. If not, see <http://www.gnu.org/licenses/>.

// Package ownertable is the fixed-capacity owner_slot -> registry
// handle table (§3). A freelru-backed cache gives the common path
// (an owner already claimed a slot) an expected O(1) lookup; a
// first-vacant-or-matching linear probe, serialized by a mutex,
// populates that cache on a miss. Either way, the same registry
// handle always resolves to the same slot for the table's lifetime.
package ownertable

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/elastic/go-freelru"
	"github.com/spaolacci/murmur3"

	"github.com/erigontech/accountsdb/internal/abort"
)

// Capacity is the fixed number of owner_slot cells (§3: "a
// fixed-capacity vector of 65,536 atomic 32-bit cells").
const Capacity = 65536

func hashHandle(h uint32) uint32 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], h)
	return murmur3.Sum32(b[:])
}

// Table maps registry handles to owner_slot indices.
type Table struct {
	cells []atomic.Uint32 // owner_slot -> registry handle; 0 = free
	mu    sync.Mutex      // serializes claimSlow's scan-and-claim only

	cache *freelru.SyncedLRU[uint32, uint16]
}

// New returns an empty, full-capacity (65,536 cell) owner table.
func New() *Table {
	return newWithCapacity(Capacity)
}

// newWithCapacity backs tests that need to exercise OwnerTableOverflow
// without 65,536 registrations.
func newWithCapacity(capacity int) *Table {
	cache, err := freelru.NewSynced[uint32, uint16](uint32(capacity), hashHandle)
	if err != nil {
		// Only fails on a zero capacity, which callers here never pass.
		panic(err)
	}
	return &Table{cells: make([]atomic.Uint32, capacity), cache: cache}
}

// GetOrClaim returns the owner_slot assigned to handle, claiming a
// fresh one via the slow linear probe on first use.
func (t *Table) GetOrClaim(handle uint32) uint16 {
	if slot, ok := t.cache.Get(handle); ok {
		return slot
	}
	slot := t.claimSlow(handle)
	t.cache.Add(handle, slot)
	return slot
}

// claimSlow performs the first-vacant-or-matching linear probe
// described in §4.F step 5. Cells are claimed with a plain atomic
// store rather than a CAS: the whole scan is serialized by mu, so two
// concurrent claims for the same handle cannot land in two different
// cells.
func (t *Table) claimSlow(handle uint32) uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.cells {
		cur := t.cells[i].Load()
		if cur == handle {
			return uint16(i)
		}
		if cur == 0 {
			t.cells[i].Store(handle)
			return uint16(i)
		}
	}
	abort.Fatal(abort.OwnerTableOverflow, "no cell matched or was vacant for handle %d after %d probes", handle, len(t.cells))
	return 0
}

// Resolve returns the registry handle assigned to owner_slot, if any.
// Lock-free: the hot read path never blocks on claimSlow's mutex.
func (t *Table) Resolve(slot uint16) (uint32, bool) {
	v := t.cells[slot].Load()
	if v == 0 {
		return 0, false
	}
	return v, true
}
