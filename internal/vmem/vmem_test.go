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

package vmem

import (
	"errors"
	"testing"
)

func TestReserveZeroRejected(t *testing.T) {
	if _, err := Reserve(0); err == nil {
		t.Fatal("Reserve(0) should fail")
	}
}

func TestEnsureCommittedGrowsLazily(t *testing.T) {
	r, err := Reserve(8 * ChunkSize)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	defer r.Close()

	if err := r.EnsureCommitted(100); err != nil {
		t.Fatalf("EnsureCommitted(100): %v", err)
	}
	b := r.Bytes()
	b[0] = 0xAB
	b[99] = 0xCD
	if b[0] != 0xAB || b[99] != 0xCD {
		t.Fatal("committed bytes did not retain written values")
	}

	// Re-committing an already-committed prefix is a no-op.
	if err := r.EnsureCommitted(50); err != nil {
		t.Fatalf("EnsureCommitted(50) after (100): %v", err)
	}
}

func TestEnsureCommittedBeyondReservationFails(t *testing.T) {
	r, err := Reserve(ChunkSize)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	defer r.Close()

	err = r.EnsureCommitted(ChunkSize * 2)
	if !errors.Is(err, ErrCapacityExhausted) {
		t.Fatalf("expected ErrCapacityExhausted, got %v", err)
	}
}

func TestLen(t *testing.T) {
	r, err := Reserve(4096)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	defer r.Close()
	if r.Len() != 4096 {
		t.Fatalf("Len() = %d, want 4096", r.Len())
	}
}
