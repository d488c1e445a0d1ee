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

// Package abort carries the fatal error kinds shared by every
// component that can hit a structural failure: a full tier arena, a
// failed virtual memory reservation, an exhausted owner table. None of
// these are recoverable on the hot path, so they surface as a typed
// panic rather than an error return, matching the "bug, not
// runtime-handled" policy for capacity failures.
package abort

import "fmt"

// Kind identifies which structural invariant was violated.
type Kind int

const (
	// CapacityExhausted means a tier arena's reserved virtual range
	// is full, or the metadata table ran past its reservation.
	CapacityExhausted Kind = iota
	// MappingFailure means a virtual memory reservation or commit
	// syscall failed.
	MappingFailure
	// OwnerTableOverflow means no owner-table cell matched or was
	// vacant after a full probe.
	OwnerTableOverflow
)

func (k Kind) String() string {
	switch k {
	case CapacityExhausted:
		return "capacity exhausted"
	case MappingFailure:
		return "mapping failure"
	case OwnerTableOverflow:
		return "owner table overflow"
	default:
		return "unknown"
	}
}

// Error is the payload of a fatal panic. Structural failures abort
// the process; a caller that wants to recover can recover() and
// errors.As into this type.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("accountsdb: %s: %s", e.Kind, e.Msg)
}

// Fatal panics with an *Error of the given kind. It never returns.
func Fatal(kind Kind, format string, args ...any) {
	panic(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}
