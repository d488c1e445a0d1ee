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

package accountsdb

import "github.com/erigontech/accountsdb/internal/abort"

// FatalError is the panic payload for every structural failure this
// store can hit: a full tier arena, a failed virtual memory mapping,
// or an exhausted owner table. None of these are recoverable on the
// hot path (§7); a caller that wants to recover can recover() and
// errors.As into *FatalError.
type FatalError = abort.Error

// Fatal error kinds, re-exported from internal/abort for callers that
// want to distinguish them with errors.As.
const (
	CapacityExhausted  = abort.CapacityExhausted
	MappingFailure     = abort.MappingFailure
	OwnerTableOverflow = abort.OwnerTableOverflow
)
