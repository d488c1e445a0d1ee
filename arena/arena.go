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

// Package arena implements the fixed-slot slab allocator: one SubArena
// per tier, backed by a lazily-committed vmem.Region and an intrusive
// free list threaded through the slot bytes themselves.
package arena

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"

	"github.com/erigontech/accountsdb/internal/abort"
	"github.com/erigontech/accountsdb/internal/sizemath"
	"github.com/erigontech/accountsdb/internal/vmem"
)

// SubArena is a single tier's allocator: all slots are slotSize bytes,
// index 0 is permanently reserved as null, and allocation/free is
// serialized by a mutex. Reads never take the mutex — they only ever
// happen through Ptr, which is lock-free.
type SubArena struct {
	region   *vmem.Region
	slotSize uint32
	capacity uint32

	mu        sync.Mutex
	nextIndex uint32
	freeHead  uint32
	active    uint32
	occupancy *roaring.Bitmap

	logger *zap.Logger
}

// New reserves reservedBytes of virtual address space for slots of
// slotSize bytes each. slotSize must be at least 4, since the free
// list stores its next pointer in the first 4 bytes of a freed slot.
func New(slotSize uint32, reservedBytes uint64, logger *zap.Logger) (*SubArena, error) {
	if slotSize < 4 {
		slotSize = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	region, err := vmem.Reserve(uintptr(reservedBytes))
	if err != nil {
		return nil, err
	}
	// Slot indices are 32-bit, so a reservation holding more than
	// MaxUint32 slots (64 GiB of 16-byte slots) is capped there rather
	// than wrapping to a tiny capacity.
	slots := reservedBytes / uint64(slotSize)
	if slots > math.MaxUint32 {
		slots = math.MaxUint32
	}
	capacity := uint32(slots)
	logger.Info("slab arena reserved",
		zap.Uint32("slot_size", slotSize),
		zap.Uint64("reserved_bytes", reservedBytes),
		zap.Uint32("capacity", capacity),
		zap.Uint64("commit_chunks", sizemath.CeilDiv(reservedBytes, vmem.ChunkSize)),
	)
	return &SubArena{
		region:    region,
		slotSize:  slotSize,
		capacity:  capacity,
		nextIndex: 1, // 0 is reserved for null
		occupancy: roaring.New(),
		logger:    logger,
	}, nil
}

// Alloc returns a non-zero slot index, zeroed, either recycled from
// the free list or bump-allocated from the next uncommitted slot.
func (a *SubArena) Alloc() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx uint32
	if a.freeHead != 0 {
		idx = a.freeHead
		node := a.slotBytesLocked(idx)
		a.freeHead = binary.LittleEndian.Uint32(node[0:4])
	} else {
		if a.nextIndex >= a.capacity {
			abort.Fatal(abort.CapacityExhausted, "tier (slot size %d) exhausted at capacity %d", a.slotSize, a.capacity)
		}
		idx = a.nextIndex
		a.nextIndex++
		required := uintptr(idx+1) * uintptr(a.slotSize)
		if err := a.region.EnsureCommitted(required); err != nil {
			abort.Fatal(abort.MappingFailure, "%v", err)
		}
	}

	slot := a.slotBytesLocked(idx)
	for i := range slot {
		slot[i] = 0
	}
	a.active++
	a.occupancy.Add(idx)
	return idx
}

// Free returns idx to the free list. Free(0) is a no-op.
func (a *SubArena) Free(idx uint32) {
	if idx == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	slot := a.slotBytesLocked(idx)
	binary.LittleEndian.PutUint32(slot[0:4], a.freeHead)
	a.freeHead = idx
	a.active--
	a.occupancy.Remove(idx)
}

// Ptr returns the slot's backing bytes. idx == 0 yields nil. Safe to
// call without the allocator mutex: the epoch reclamation scheme is
// what guarantees a live reader never observes a slot mid-reuse.
func (a *SubArena) Ptr(idx uint32) []byte {
	if idx == 0 {
		return nil
	}
	start := uintptr(idx) * uintptr(a.slotSize)
	return a.region.Bytes()[start : start+uintptr(a.slotSize)]
}

// slotBytesLocked requires a.mu held; it is only used by Alloc/Free,
// which already ensure the slot is committed (Alloc commits before
// returning a fresh index; Free only ever receives indices previously
// returned by Alloc).
func (a *SubArena) slotBytesLocked(idx uint32) []byte {
	return a.Ptr(idx)
}

// ActiveSlots returns a snapshot of currently-live slot indices. This
// is a diagnostic aid, not an iteration API over account data: no
// caller outside this package sees account content through it.
func (a *SubArena) ActiveSlots() *roaring.Bitmap {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.occupancy.Clone()
}

// ActiveCount returns the number of currently-allocated slots.
func (a *SubArena) ActiveCount() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// FreeListLen walks the free list and reports its length. Intended
// for tests; O(n) in the number of freed slots.
func (a *SubArena) FreeListLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for cur := a.freeHead; cur != 0; n++ {
		node := a.slotBytesLocked(cur)
		cur = binary.LittleEndian.Uint32(node[0:4])
	}
	return n
}

// Close releases the underlying reservation.
func (a *SubArena) Close() error {
	return a.region.Close()
}
