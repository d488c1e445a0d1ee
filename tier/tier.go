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

// Package tier holds the compile-time slot-size table shared by the
// slab arenas, the compressor's tier selection, and the store's
// public GetPoolID.
package tier

// Sizes is the slot size, in bytes, of each of the 16 tiers. Index 0
// is the "no data" tier and is never backed by an arena.
var Sizes = [16]int{0, 16, 32, 48, 64, 80, 96, 112, 128, 144, 160, 176, 256, 512, 1024, 8192}

// Count is the number of tiers, including tier 0.
const Count = 16

// PoolID returns the smallest tier index i such that Sizes[i] >= length,
// or 15 if no tier is big enough. Records that exceed the largest
// tier bucket into it rather than being rejected; callers that need a
// hard limit should check length against Sizes[Count-1] themselves.
func PoolID(length int) uint8 {
	for i, sz := range Sizes {
		if length <= sz {
			return uint8(i)
		}
	}
	return uint8(Count - 1)
}
