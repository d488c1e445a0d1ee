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

// Package compress implements the schema-aware token-account
// compressor: it losslessly folds the 165-byte canonical SPL token
// account layout into one of three compact tiers (16, 32 or 48
// bytes), registering the embedded identifiers through a
// registry.Registry rather than storing them inline.
//
// Encode/Decode only ever see the 6 bits of compressor-specific state
// (account state + the four optional-field flags); the store's own
// "executable" bit lives outside this package, in bit 0 of the outer
// packed-metadata flags field, so the two can never collide (§4.E,
// §8 property 7).
package compress

import (
	"encoding/binary"

	"github.com/erigontech/accountsdb/registry"
)

// CanonicalLen is the byte length of an uncompressed SPL token
// account record.
const CanonicalLen = 165

// TokenProgramID is the well-known SPL Token program id
// ("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"), baked in at compile
// time as the spec requires. Compression only ever applies to records
// whose outer account owner equals this identifier.
var TokenProgramID = registry.Id{
	0x06, 0xdd, 0xf6, 0xe1, 0xd7, 0x65, 0xa1, 0x93,
	0xd9, 0xcb, 0xe1, 0x46, 0xce, 0xeb, 0x79, 0xac,
	0x1c, 0xb4, 0x85, 0xed, 0x5f, 0x5b, 0x37, 0x91,
	0x3a, 0x8c, 0xf5, 0x85, 0x7e, 0xff, 0x00, 0xa9,
}

// Flag bits within the compressor's own 6-bit state, matching §4.E.
const (
	stateMask        = 0x3 // bits 0-1
	flagIsNative     = 1 << 2
	flagHasDelegate  = 1 << 3
	flagHasCloseAuth = 1 << 4
	flagHasDelAmt    = 1 << 5
)

// canonical field offsets (§4.E)
const (
	offMint            = 0
	offOwner           = 32
	offAmount          = 64
	offDelegateTag     = 72
	offDelegate        = 76
	offState           = 108
	offIsNativeTag     = 109
	offNativeAmount    = 113
	offDelegatedAmount = 121
	offCloseAuthTag    = 129
	offCloseAuthority  = 133
)

func idFrom(b []byte) registry.Id {
	var id registry.Id
	copy(id[:], b)
	return id
}

// Encode attempts to compress a canonical token-account payload. ok
// is false when data is shorter than CanonicalLen - the
// MalformedCompressedRecord case (§7), which callers fall back to
// verbatim storage for rather than treating as an error.
func Encode(data []byte, reg *registry.Registry) (poolID uint8, payload []byte, flags uint16, ok bool) {
	if len(data) < CanonicalLen {
		return 0, nil, 0, false
	}

	mint := idFrom(data[offMint : offMint+32])
	owner := idFrom(data[offOwner : offOwner+32])
	amount := binary.LittleEndian.Uint64(data[offAmount : offAmount+8])
	delegateTag := binary.LittleEndian.Uint32(data[offDelegateTag : offDelegateTag+4])
	state := data[offState]
	isNativeTag := binary.LittleEndian.Uint32(data[offIsNativeTag : offIsNativeTag+4])
	delegatedAmount := binary.LittleEndian.Uint64(data[offDelegatedAmount : offDelegatedAmount+8])
	closeAuthTag := binary.LittleEndian.Uint32(data[offCloseAuthTag : offCloseAuthTag+4])

	hasDelegate := delegateTag != 0
	hasCloseAuth := closeAuthTag != 0
	hasDelAmt := delegatedAmount > 0
	isNative := isNativeTag != 0

	flags = uint16(state) & stateMask
	if isNative {
		flags |= flagIsNative
	}
	if hasDelegate {
		flags |= flagHasDelegate
	}
	if hasCloseAuth {
		flags |= flagHasCloseAuth
	}
	if hasDelAmt {
		flags |= flagHasDelAmt
	}

	mintHandle := reg.Register(mint)
	ownerHandle := reg.Register(owner)

	switch {
	case !hasDelegate && !hasCloseAuth && !hasDelAmt && !isNative:
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(mintHandle))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(ownerHandle))
		binary.LittleEndian.PutUint64(buf[8:16], amount)
		return 1, buf, flags, true

	case !hasDelegate && !hasCloseAuth && !hasDelAmt && isNative:
		nativeAmount := binary.LittleEndian.Uint64(data[offNativeAmount : offNativeAmount+8])
		buf := make([]byte, 32)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(mintHandle))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(ownerHandle))
		binary.LittleEndian.PutUint64(buf[8:16], amount)
		binary.LittleEndian.PutUint64(buf[16:24], nativeAmount)
		return 2, buf, flags, true

	default:
		var nativeAmount uint64
		if isNative {
			nativeAmount = binary.LittleEndian.Uint64(data[offNativeAmount : offNativeAmount+8])
		}
		var delegateHandle, closeAuthHandle uint32
		if hasDelegate {
			delegateHandle = uint32(reg.Register(idFrom(data[offDelegate : offDelegate+32])))
		}
		if hasCloseAuth {
			closeAuthHandle = uint32(reg.Register(idFrom(data[offCloseAuthority : offCloseAuthority+32])))
		}
		buf := make([]byte, 48)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(mintHandle))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(ownerHandle))
		binary.LittleEndian.PutUint64(buf[8:16], amount)
		binary.LittleEndian.PutUint64(buf[16:24], nativeAmount)
		binary.LittleEndian.PutUint64(buf[24:32], delegatedAmount)
		binary.LittleEndian.PutUint32(buf[32:36], delegateHandle)
		binary.LittleEndian.PutUint32(buf[36:40], closeAuthHandle)
		return 3, buf, flags, true
	}
}

// Decode reconstructs the 165-byte canonical form from a compressed
// tier payload. Tags are written as 1 when the corresponding flag is
// set and left zero otherwise; an identifier that no longer resolves
// in the registry decodes to the all-zero Id rather than failing.
func Decode(poolID uint8, compressed []byte, flags uint16, reg *registry.Registry) []byte {
	data := make([]byte, CanonicalLen)
	if len(compressed) < 16 {
		return data
	}

	mintHandle := binary.LittleEndian.Uint32(compressed[0:4])
	ownerHandle := binary.LittleEndian.Uint32(compressed[4:8])
	amount := binary.LittleEndian.Uint64(compressed[8:16])

	mint, _ := reg.Lookup(registry.Handle(mintHandle))
	owner, _ := reg.Lookup(registry.Handle(ownerHandle))
	copy(data[offMint:offMint+32], mint[:])
	copy(data[offOwner:offOwner+32], owner[:])
	binary.LittleEndian.PutUint64(data[offAmount:offAmount+8], amount)

	data[offState] = uint8(flags & stateMask)

	if flags&flagIsNative != 0 {
		binary.LittleEndian.PutUint32(data[offIsNativeTag:offIsNativeTag+4], 1)
		var nativeAmount uint64
		if (poolID == 2 || poolID == 3) && len(compressed) >= 24 {
			nativeAmount = binary.LittleEndian.Uint64(compressed[16:24])
		}
		binary.LittleEndian.PutUint64(data[offNativeAmount:offNativeAmount+8], nativeAmount)
	}

	if poolID == 3 && len(compressed) >= 40 {
		delegatedAmount := binary.LittleEndian.Uint64(compressed[24:32])
		binary.LittleEndian.PutUint64(data[offDelegatedAmount:offDelegatedAmount+8], delegatedAmount)

		if flags&flagHasDelegate != 0 {
			binary.LittleEndian.PutUint32(data[offDelegateTag:offDelegateTag+4], 1)
			delegateHandle := binary.LittleEndian.Uint32(compressed[32:36])
			delegate, _ := reg.Lookup(registry.Handle(delegateHandle))
			copy(data[offDelegate:offDelegate+32], delegate[:])
		}
		if flags&flagHasCloseAuth != 0 {
			binary.LittleEndian.PutUint32(data[offCloseAuthTag:offCloseAuthTag+4], 1)
			closeAuthHandle := binary.LittleEndian.Uint32(compressed[36:40])
			closeAuth, _ := reg.Lookup(registry.Handle(closeAuthHandle))
			copy(data[offCloseAuthority:offCloseAuthority+32], closeAuth[:])
		}
	}

	return data
}
