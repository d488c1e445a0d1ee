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

// Package meta is the packed 16-byte (128-bit) account metadata
// record and the table that stores one per account handle.
//
// Go has no native 128-bit atomic primitive, so Table emulates the
// atomic swap the spec calls for with a seqlock: each cell carries an
// extra 4-byte version counter alongside its 16 bytes of payload. A
// reader spins only on the rare case it lands mid-write; a writer
// claims the cell by CASing the version from even to odd, publishes
// both words, then releases it back to even. Concurrent writers to
// the same handle serialize on that CAS, which is the linearization
// point the spec's "acq-rel swap" contract asks for.
package meta

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/erigontech/accountsdb/internal/abort"
	"github.com/erigontech/accountsdb/internal/vmem"
)

// Word is the decoded 128-bit metadata record, held as two 64-bit
// halves. The zero Word means "no account present".
type Word struct {
	Lo uint64 // bits 0-63: lamports/rent-epoch mixed field
	Hi uint64 // bits 64-127: owner_slot | data_offset | pool_id | flags
}

// IsZero reports whether w represents "no account present".
func (w Word) IsZero() bool { return w.Lo == 0 && w.Hi == 0 }

const (
	exemptBit        = 1
	lamportsBits     = 51
	lamportsMask51   = (uint64(1) << lamportsBits) - 1
	rentEpochShift   = 52
	ownerSlotBits    = 16
	dataOffsetShift  = 16
	poolIDShift      = 48
	poolIDMask       = 0xF
	flagsShift       = 52
	flagsMask12      = 0xFFF
	dataOffsetMask32 = 0xFFFFFFFF
)

// PackLamportsRent encodes the lamports/rent-epoch mixed field (§3).
// The source treats any positive lamports balance as unconditionally
// rent-exempt, which discards the caller's rentEpoch in that case;
// this matches the Rust original bit-for-bit (see SPEC_FULL §9 open
// question) rather than introducing an explicit exempt flag.
func PackLamportsRent(lamports, rentEpoch uint64) uint64 {
	exempt := lamports > 0
	if exempt {
		return (lamports << 1) | exemptBit
	}
	return ((lamports & lamportsMask51) << 1) | (rentEpoch << rentEpochShift)
}

// UnpackLamports recovers the lamports balance from the mixed field.
func UnpackLamports(lo uint64) uint64 {
	if lo&exemptBit != 0 {
		return lo >> 1
	}
	return (lo >> 1) & lamportsMask51
}

// UnpackRentEpoch recovers the rent epoch, or math.MaxUint64 (the
// exempt sentinel) if the account is rent-exempt.
func UnpackRentEpoch(lo uint64) uint64 {
	if lo&exemptBit != 0 {
		return math.MaxUint64
	}
	return lo >> rentEpochShift
}

// PackHi assembles the upper 64 bits: owner_slot(16) | data_offset(32)
// | pool_id(4) | flags(12).
func PackHi(ownerSlot uint16, dataOffset uint32, poolID uint8, flags uint16) uint64 {
	return uint64(ownerSlot) |
		uint64(dataOffset)<<dataOffsetShift |
		uint64(poolID&poolIDMask)<<poolIDShift |
		uint64(flags&flagsMask12)<<flagsShift
}

// UnpackHi splits the upper 64 bits back into its fields.
func UnpackHi(hi uint64) (ownerSlot uint16, dataOffset uint32, poolID uint8, flags uint16) {
	ownerSlot = uint16(hi & ((1 << ownerSlotBits) - 1))
	dataOffset = uint32((hi >> dataOffsetShift) & dataOffsetMask32)
	poolID = uint8((hi >> poolIDShift) & poolIDMask)
	flags = uint16((hi >> flagsShift) & flagsMask12)
	return
}

// cellStride is the physical byte stride of a metadata cell: a 4-byte
// seqlock version, 4 bytes of padding to 8-byte-align the two 64-bit
// payload words, then Lo and Hi. Cross-process bit-compatibility is
// an explicit non-goal, so the stride need not equal the logical
// 16-byte payload size.
const cellStride = 24

// Table is the fixed-position metadata slab indexed directly by
// account handle. Handles are never recycled, so unlike SubArena
// there is no free list - only a committed-prefix region addressed
// by handle.
type Table struct {
	region   *vmem.Region
	capacity uint32
}

// NewTable reserves reservedBytes of virtual address space for the
// metadata slab.
func NewTable(reservedBytes uint64) (*Table, error) {
	region, err := vmem.Reserve(uintptr(reservedBytes))
	if err != nil {
		return nil, err
	}
	return &Table{
		region:   region,
		capacity: uint32(reservedBytes / cellStride),
	}, nil
}

func (t *Table) cellPointers(handle uint32) (seq *uint32, lo, hi *uint64) {
	base := uintptr(handle) * cellStride
	buf := t.region.Bytes()[base : base+cellStride]
	seq = (*uint32)(unsafe.Pointer(&buf[0]))
	lo = (*uint64)(unsafe.Pointer(&buf[8]))
	hi = (*uint64)(unsafe.Pointer(&buf[16]))
	return
}

func (t *Table) ensure(handle uint32) error {
	if handle == 0 || handle >= t.capacity {
		abort.Fatal(abort.CapacityExhausted, "handle %d out of metadata table capacity %d", handle, t.capacity)
	}
	return t.region.EnsureCommitted(uintptr(handle+1) * cellStride)
}

// Load performs a single logical acquire-load of the 128-bit word at
// handle, retrying only if it raced a concurrent writer.
func (t *Table) Load(handle uint32) (Word, error) {
	if err := t.ensure(handle); err != nil {
		return Word{}, err
	}
	seqPtr, loPtr, hiPtr := t.cellPointers(handle)
	for {
		s1 := atomic.LoadUint32(seqPtr)
		if s1&1 != 0 {
			continue
		}
		lo := atomic.LoadUint64(loPtr)
		hi := atomic.LoadUint64(hiPtr)
		s2 := atomic.LoadUint32(seqPtr)
		if s1 == s2 {
			return Word{Lo: lo, Hi: hi}, nil
		}
	}
}

// Swap atomically replaces the word at handle with next and returns
// the previous value (the zero Word if none was ever stored).
func (t *Table) Swap(handle uint32, next Word) (Word, error) {
	if err := t.ensure(handle); err != nil {
		return Word{}, err
	}
	seqPtr, loPtr, hiPtr := t.cellPointers(handle)
	for {
		s := atomic.LoadUint32(seqPtr)
		if s&1 != 0 {
			continue
		}
		if atomic.CompareAndSwapUint32(seqPtr, s, s+1) {
			old := Word{Lo: atomic.LoadUint64(loPtr), Hi: atomic.LoadUint64(hiPtr)}
			atomic.StoreUint64(loPtr, next.Lo)
			atomic.StoreUint64(hiPtr, next.Hi)
			atomic.StoreUint32(seqPtr, s+2)
			return old, nil
		}
	}
}
