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

// Package config carries the store's reservation sizing: how big a
// virtual range each tier's arena and the metadata table reserve up
// front. This is operational sizing, not a wire format - the store
// itself has no network-facing protocol (§6).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/c2h5oh/datasize"
	"github.com/pelletier/go-toml/v2"

	"github.com/erigontech/accountsdb/internal/sizemath"
	"github.com/erigontech/accountsdb/tier"
)

// Config is the fully-resolved reservation sizing for a Store.
type Config struct {
	MetaReservationBytes uint64
	// TierReservationBytes is indexed by tier; tier 0 is always 0.
	TierReservationBytes [tier.Count]uint64
}

// Default returns the §6 defaults: 32 GiB for the metadata table, 64
// GiB for the two smallest token-account tiers (16 and 32 bytes,
// expected to dominate the working set), 16 GiB for everything else.
func Default() Config {
	var c Config
	c.MetaReservationBytes = 32 * uint64(datasize.GB)
	for i, sz := range tier.Sizes {
		switch {
		case sz == 0:
			c.TierReservationBytes[i] = 0
		case sz == 16 || sz == 32:
			c.TierReservationBytes[i] = 64 * uint64(datasize.GB)
		default:
			c.TierReservationBytes[i] = 16 * uint64(datasize.GB)
		}
	}
	return c
}

// overlay is the TOML shape a config file may provide; any field left
// unset keeps its Default() value.
type overlay struct {
	MetaReservation string            `toml:"meta_reservation"`
	TierReservation map[string]string `toml:"tier_reservation"`
}

// Load reads a TOML file and overlays it onto Default(). Reservation
// sizes are human-readable byte sizes ("64GiB", "512MiB"), parsed via
// datasize.ByteSize.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var ov overlay
	if err := toml.Unmarshal(data, &ov); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if ov.MetaReservation != "" {
		var bs datasize.ByteSize
		if err := bs.UnmarshalText([]byte(ov.MetaReservation)); err != nil {
			return Config{}, fmt.Errorf("config: meta_reservation %q: %w", ov.MetaReservation, err)
		}
		cfg.MetaReservationBytes = uint64(bs)
	}

	for idxStr, sizeStr := range ov.TierReservation {
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx <= 0 || idx >= tier.Count {
			return Config{}, fmt.Errorf("config: invalid tier index %q", idxStr)
		}
		var bs datasize.ByteSize
		if err := bs.UnmarshalText([]byte(sizeStr)); err != nil {
			return Config{}, fmt.Errorf("config: tier_reservation[%d] %q: %w", idx, sizeStr, err)
		}
		cfg.TierReservationBytes[idx] = uint64(bs)
	}

	return cfg, nil
}

// TotalReservationBytes sums every reservation the config describes,
// used for the construction-time over-commit sanity check. Operator
// TOML input is untrusted arithmetic input, so the sum is
// overflow-checked rather than wrapping silently; an overflowing
// config saturates at MaxUint64, which the over-commit check will
// always flag as implausible.
func (c Config) TotalReservationBytes() uint64 {
	total := c.MetaReservationBytes
	for _, b := range c.TierReservationBytes {
		sum, overflow := sizemath.SafeAdd(total, b)
		if overflow {
			return ^uint64(0)
		}
		total = sum
	}
	return total
}
