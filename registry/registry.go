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

// Package registry interns 32-byte identifiers to dense, monotonically
// increasing 32-bit handles. Lookups that almost certainly miss are
// rejected by a bloom filter before ever taking the registry's shared
// lock; lookups that might hit take a read lock first and only
// escalate to the exclusive lock to insert.
package registry

import (
	"sync"

	"github.com/holiman/bloomfilter/v2"
	"github.com/spaolacci/murmur3"
)

// Id is an opaque 32-byte identifier (a public key, in the token
// account schema this store is tuned for).
type Id [32]byte

// Handle is the dense handle a Registry assigns to an Id. Handle 0 is
// reserved and never assigned - it is the sentinel an owner-table cell
// uses to mean "never claimed" (ownertable.go), so a real registration
// must never be indistinguishable from that sentinel. Handles start at
// 1 and increase monotonically; they are never reused.
type Handle uint32

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	forward map[Id]Handle
	reverse []Id
	bloom   *bloomfilter.Filter
}

// New returns an empty registry sized for roughly expectedItems
// distinct identifiers.
func New(expectedItems uint64) *Registry {
	if expectedItems == 0 {
		expectedItems = 1024
	}
	bloom, err := bloomfilter.NewOptimal(expectedItems, 0.001)
	if err != nil {
		// NewOptimal only fails on a degenerate (zero) input, which
		// the guard above already rules out.
		bloom = nil
	}
	return &Registry{
		forward: make(map[Id]Handle, expectedItems),
		bloom:   bloom,
	}
}

func idHash(id Id) uint64 {
	return murmur3.Sum64(id[:])
}

// Register interns id, returning its handle. Calling Register again
// with the same id always returns the same handle.
func (r *Registry) Register(id Id) Handle {
	h := idHash(id)
	if r.bloom != nil && r.bloom.ContainsHash(h) {
		// Maybe present - worth a shared-lock probe before locking
		// exclusively.
		r.mu.RLock()
		if handle, ok := r.forward[id]; ok {
			r.mu.RUnlock()
			return handle
		}
		r.mu.RUnlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if handle, ok := r.forward[id]; ok {
		return handle
	}
	// reverse[i] backs handle i+1, so that handle 0 stays unassigned.
	handle := Handle(len(r.reverse) + 1)
	r.forward[id] = handle
	r.reverse = append(r.reverse, id)
	if r.bloom != nil {
		r.bloom.AddHash(h)
	}
	return handle
}

// Lookup returns the Id interned as handle, if any. Handle 0 never
// resolves - it is the reserved "unassigned" sentinel.
func (r *Registry) Lookup(handle Handle) (Id, bool) {
	if handle == 0 {
		return Id{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := int(handle) - 1
	if idx >= len(r.reverse) {
		return Id{}, false
	}
	return r.reverse[idx], true
}

// TryHandle probes for id's handle without interning it, mirroring
// the source's non-inserting get_id.
func (r *Registry) TryHandle(id Id) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.forward[id]
	return h, ok
}

// Len returns the number of interned identifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reverse)
}
