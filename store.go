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

// Package accountsdb is an in-memory account store tuned for a large,
// densely-packed working set dominated by one well-known record
// shape. It composes a tiered slab allocator, three-epoch reclamation,
// a 16-byte packed metadata record, and a schema-aware compressor
// behind a two-call surface: Load and Store.
package accountsdb

import (
	"github.com/pbnjay/memory"
	"go.uber.org/zap"

	"github.com/erigontech/accountsdb/arena"
	"github.com/erigontech/accountsdb/compress"
	"github.com/erigontech/accountsdb/config"
	"github.com/erigontech/accountsdb/ebr"
	"github.com/erigontech/accountsdb/internal/abort"
	"github.com/erigontech/accountsdb/meta"
	"github.com/erigontech/accountsdb/ownertable"
	"github.com/erigontech/accountsdb/registry"
	"github.com/erigontech/accountsdb/tier"
)

// Id is an opaque 32-byte account identifier (a public key).
type Id = registry.Id

// Record is the caller-facing account shape.
type Record struct {
	Lamports   uint64
	Owner      Id
	Data       []byte
	RentEpoch  uint64
	Executable bool
}

// Store composes the slab arenas, the epoch reclamation scheme, the
// packed-metadata table, the identifier registry and the owner table
// into load/store on a caller-chosen 32-bit account handle.
type Store struct {
	cfg    config.Config
	logger *zap.Logger

	metaTable *meta.Table
	pools     [tier.Count]*arena.SubArena
	registry  *registry.Registry
	owners    *ownertable.Table
	epochs    *ebr.Ebr
}

// New constructs a Store. With no options it uses the §6 defaults: a
// no-op logger and 32 GiB metadata / {16B,32B: 64GiB, other: 16GiB}
// tier reservations.
func New(opts ...Option) *Store {
	o := resolveOptions(opts)
	warnOnOvercommit(o.cfg, o.logger)

	metaTable, err := meta.NewTable(o.cfg.MetaReservationBytes)
	if err != nil {
		abort.Fatal(abort.MappingFailure, "metadata table: %v", err)
	}

	var pools [tier.Count]*arena.SubArena
	for i, sz := range tier.Sizes {
		if sz == 0 {
			continue
		}
		reserved := o.cfg.TierReservationBytes[i]
		a, err := arena.New(uint32(sz), reserved, o.logger)
		if err != nil {
			abort.Fatal(abort.MappingFailure, "tier %d arena: %v", i, err)
		}
		pools[i] = a
	}

	s := &Store{
		cfg:       o.cfg,
		logger:    o.logger,
		metaTable: metaTable,
		pools:     pools,
		registry:  registry.New(1 << 20),
		owners:    ownertable.New(),
		epochs:    ebr.New(),
	}
	o.logger.Info("accounts-db store constructed",
		zap.Uint64("meta_reservation_bytes", o.cfg.MetaReservationBytes),
	)
	return s
}

func warnOnOvercommit(cfg config.Config, logger *zap.Logger) {
	phys := memory.TotalMemory()
	if phys == 0 {
		return
	}
	requested := cfg.TotalReservationBytes()
	if requested > phys*8 {
		logger.Warn("requested virtual reservation far exceeds physical memory",
			zap.Uint64("requested_bytes", requested),
			zap.Uint64("physical_bytes", phys),
		)
	}
}

// GetPoolID returns the smallest tier index that can hold a payload
// of the given length, exposed so callers can size payloads ahead of
// a Store call.
func GetPoolID(length int) uint8 {
	return tier.PoolID(length)
}

// outer packed-metadata flags: bit 0 is executable, bits 1-6 carry
// the compressor's 6-bit state so the two can never collide.
const executableBit = 1

func packOuterFlags(compressorFlags uint16, executable bool) uint16 {
	f := (compressorFlags & 0x3F) << 1
	if executable {
		f |= executableBit
	}
	return f
}

func unpackOuterFlags(outer uint16) (compressorFlags uint16, executable bool) {
	executable = outer&executableBit != 0
	compressorFlags = (outer >> 1) & 0x3F
	return
}

// Store encodes rec (compressing it if its owner is the well-known
// token program and it is long enough to be a canonical token
// account), allocates a data slot for it if needed, and atomically
// publishes it at handle. Any prior data slot at handle is retired
// through epoch reclamation rather than freed immediately.
func (s *Store) Store(handle uint32, rec Record) {
	if handle == 0 {
		abort.Fatal(abort.CapacityExhausted, "handle 0 is reserved as null")
	}

	guard := s.epochs.Enter()
	defer guard.Drop()

	var poolID uint8
	var payload []byte
	var compressorFlags uint16
	if rec.Owner == compress.TokenProgramID {
		if p, buf, f, ok := compress.Encode(rec.Data, s.registry); ok {
			poolID, payload, compressorFlags = p, buf, f
		} else {
			poolID = tier.PoolID(len(rec.Data))
			payload = rec.Data
		}
	} else {
		poolID = tier.PoolID(len(rec.Data))
		payload = rec.Data
	}

	outerFlags := packOuterFlags(compressorFlags, rec.Executable)

	var dataOffset uint32
	if poolID > 0 {
		pool := s.pools[poolID]
		dataOffset = pool.Alloc()
		dst := pool.Ptr(dataOffset)
		copy(dst, payload)
	}

	ownerHandle := s.registry.Register(rec.Owner)
	ownerSlot := s.owners.GetOrClaim(uint32(ownerHandle))

	lo := meta.PackLamportsRent(rec.Lamports, rec.RentEpoch)
	hi := meta.PackHi(ownerSlot, dataOffset, poolID, outerFlags)

	old, err := s.metaTable.Swap(handle, meta.Word{Lo: lo, Hi: hi})
	if err != nil {
		abort.Fatal(abort.MappingFailure, "metadata swap: %v", err)
	}

	if !old.IsZero() {
		_, oldOffset, oldPoolID, _ := meta.UnpackHi(old.Hi)
		if oldPoolID > 0 && oldOffset != 0 {
			pool := s.pools[oldPoolID]
			guard.Retire(func() { pool.Free(oldOffset) })
		}
	}
}

// Load returns the account stored at handle, or (Record{}, false) if
// none was ever stored. The reader guard envelops the data-slot read
// so a concurrent Store on the same handle cannot reclaim the slot
// while it's being read.
func (s *Store) Load(handle uint32) (Record, bool) {
	if handle == 0 {
		return Record{}, false
	}

	guard := s.epochs.Enter()
	defer guard.Drop()

	word, err := s.metaTable.Load(handle)
	if err != nil {
		abort.Fatal(abort.MappingFailure, "metadata load: %v", err)
	}
	if word.IsZero() {
		return Record{}, false
	}

	lamports := meta.UnpackLamports(word.Lo)
	rentEpoch := meta.UnpackRentEpoch(word.Lo)
	ownerSlot, dataOffset, poolID, outerFlags := meta.UnpackHi(word.Hi)
	compressorFlags, executable := unpackOuterFlags(outerFlags)

	var owner Id
	if ownerHandle, ok := s.owners.Resolve(ownerSlot); ok {
		if id, ok2 := s.registry.Lookup(registry.Handle(ownerHandle)); ok2 {
			owner = id
		}
	}

	var data []byte
	if poolID > 0 {
		pool := s.pools[poolID]
		raw := pool.Ptr(dataOffset)
		if owner == compress.TokenProgramID && poolID >= 1 && poolID <= 3 {
			data = compress.Decode(poolID, raw, compressorFlags, s.registry)
		} else {
			data = make([]byte, len(raw))
			copy(data, raw)
		}
	}

	return Record{
		Lamports:   lamports,
		Owner:      owner,
		Data:       data,
		RentEpoch:  rentEpoch,
		Executable: executable,
	}, true
}
