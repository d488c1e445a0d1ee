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

// Package vmem reserves a contiguous range of virtual address space up
// front and commits physical backing lazily, in fixed-size chunks, as
// callers touch further into the range. It underlies both the tiered
// slab arenas and the packed-metadata table: both want a large flat
// byte range whose cost is proportional to what's actually used, not
// to what was reserved.
package vmem

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ChunkSize is the granularity at which reserved pages are committed
// (mprotect'd to PROT_READ|PROT_WRITE). 2 MiB matches a typical huge
// page and keeps the number of mprotect calls small under sustained
// bump allocation.
const ChunkSize = 2 * 1024 * 1024

// Region is a virtual memory reservation with a monotonically
// growing committed prefix. The zero value is not usable; construct
// with Reserve.
type Region struct {
	mu        sync.Mutex
	data      []byte
	committed uintptr
}

// Reserve maps size bytes of anonymous, inaccessible (PROT_NONE)
// address space. No physical memory is charged for the reservation;
// it exists purely to give every slot in the arena a stable address
// before it is ever committed.
func Reserve(size uintptr) (*Region, error) {
	if size == 0 {
		return nil, fmt.Errorf("vmem: reserve size must be > 0")
	}
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE)
	if err != nil {
		return nil, fmt.Errorf("vmem: reserve %d bytes: %w", size, err)
	}
	return &Region{data: data}, nil
}

// EnsureCommitted grants read/write access to the region's prefix up
// through uptoBytes, committing whole ChunkSize chunks as needed. It
// is a no-op if the prefix is already committed that far.
func (r *Region) EnsureCommitted(uptoBytes uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if uptoBytes <= r.committed {
		return nil
	}
	if uptoBytes > uintptr(len(r.data)) {
		return fmt.Errorf("%w: need %d bytes, reserved only %d", ErrCapacityExhausted, uptoBytes, len(r.data))
	}
	next := (uptoBytes + ChunkSize - 1) &^ (ChunkSize - 1)
	if next > uintptr(len(r.data)) {
		next = uintptr(len(r.data))
	}
	if err := unix.Mprotect(r.data[r.committed:next], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("vmem: commit [%d,%d): %w", r.committed, next, err)
	}
	r.committed = next
	return nil
}

// Bytes returns the full reserved range. Reading or writing beyond
// the committed prefix faults the process; callers must EnsureCommitted
// first.
func (r *Region) Bytes() []byte { return r.data }

// Len returns the total reserved size in bytes.
func (r *Region) Len() uintptr { return uintptr(len(r.data)) }

// Close releases the reservation. Not required for process-lifetime
// stores; provided for tests that construct many short-lived regions.
func (r *Region) Close() error {
	return unix.Munmap(r.data)
}

// ErrCapacityExhausted is returned by EnsureCommitted when the
// requested offset falls outside the reserved range.
var ErrCapacityExhausted = errors.New("vmem: requested offset exceeds reserved capacity")
