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

// Package ebr implements a three-epoch deferred reclamation scheme.
// A reader takes a Guard bound to the current epoch before touching a
// data slot; a writer that replaces that slot hands the old one to
// the guard's Retire, which only runs once every reader that could
// have observed the slot has dropped its guard.
package ebr

import "sync/atomic"

const numEpochs = 3

type retired struct {
	run  func()
	next atomic.Pointer[retired]
}

// Ebr is the shared reclamation state. The zero value is not usable;
// construct with New.
type Ebr struct {
	currentEpoch atomic.Uint32
	active       [numEpochs]atomic.Int64
	retiredHead  [numEpochs]atomic.Pointer[retired]
}

// New returns a fresh reclamation scheme starting at epoch 0.
func New() *Ebr {
	return &Ebr{}
}

// Guard is a scoped reader registration. Every Enter must be matched
// by exactly one Drop.
type Guard struct {
	epoch uint32
	e     *Ebr
}

// Enter registers the caller as an active reader in the current
// epoch and returns a guard bound to it. The epoch read is Acquire
// and the reader-count increment is sequentially consistent, so that
// a writer's retire of a slot this guard is about to read cannot be
// reordered ahead of the guard becoming visible.
func (e *Ebr) Enter() *Guard {
	epoch := e.currentEpoch.Load()
	e.active[epoch].Add(1)
	return &Guard{epoch: epoch, e: e}
}

// Retire prepends fn onto the guard's epoch's retirement list. fn
// runs once no guard can still observe whatever fn is about to free -
// i.e. once this epoch has been fully drained by a subsequent
// advance. Safe to call concurrently from multiple writers via a
// lock-free CAS loop.
func (g *Guard) Retire(fn func()) {
	item := &retired{run: fn}
	head := g.e.retiredHead[g.epoch].Load()
	for {
		item.next.Store(head)
		if g.e.retiredHead[g.epoch].CompareAndSwap(head, item) {
			return
		}
		head = g.e.retiredHead[g.epoch].Load()
	}
}

// Drop ends the guard's reader registration and attempts to advance
// the global epoch. Every Enter must be matched by exactly one Drop.
func (g *Guard) Drop() {
	g.e.active[g.epoch].Add(-1)
	g.e.tryAdvance()
}

// tryAdvance moves current_epoch forward by one, mod 3, iff the epoch
// just before it ((curr+2) mod 3, the one about to be reclaimed) has
// no active readers. The CAS on current_epoch is sequentially consistent so
// that concurrent advancers agree on a single total order.
func (e *Ebr) tryAdvance() {
	curr := e.currentEpoch.Load()
	next := (curr + 1) % numEpochs
	prev := (curr + 2) % numEpochs
	if e.active[prev].Load() != 0 {
		return
	}
	if e.currentEpoch.CompareAndSwap(curr, next) {
		e.reclaim(prev)
	}
}

// reclaim drains and runs every item retired in the given epoch.
func (e *Ebr) reclaim(epoch uint32) {
	head := e.retiredHead[epoch].Swap(nil)
	for head != nil {
		head.run()
		head = head.next.Load()
	}
}

// CurrentEpoch reports the scheme's current epoch. Exposed for tests.
func (e *Ebr) CurrentEpoch() uint32 { return e.currentEpoch.Load() }
