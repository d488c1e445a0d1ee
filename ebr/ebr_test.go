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

package ebr

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestRetireRunsOnlyAfterGuardDropped(t *testing.T) {
	e := New()
	g := e.Enter()

	var ran atomic.Bool
	g.Retire(func() { ran.Store(true) })

	require.False(t, ran.Load(), "retired fn must not run while its guard is still held")

	g.Drop()

	// Advancing the epoch twice more guarantees the retiring epoch has
	// been fully drained and reclaimed.
	g2 := e.Enter()
	g2.Drop()
	g3 := e.Enter()
	g3.Drop()

	require.True(t, ran.Load(), "retired fn should have run after three epoch advances")
}

func TestEnterDropDoesNotLeak(t *testing.T) {
	e := New()
	for i := 0; i < 1000; i++ {
		g := e.Enter()
		g.Drop()
	}
}

func TestConcurrentGuardsAndRetires(t *testing.T) {
	e := New()
	var freed atomic.Int64

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		g.Go(func() error {
			guard := e.Enter()
			defer guard.Drop()
			guard.Retire(func() { freed.Add(1) })
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// Drain any stragglers so every retired closure eventually fires.
	for i := 0; i < 8; i++ {
		guard := e.Enter()
		guard.Drop()
	}
	require.EqualValues(t, 64, freed.Load())
}
