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

import (
	"go.uber.org/zap"

	"github.com/erigontech/accountsdb/config"
)

type options struct {
	cfg    config.Config
	logger *zap.Logger
}

// Option configures a Store at construction.
type Option func(*options)

// WithConfig overrides the default reservation sizing.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger attaches a structured logger. The default is a no-op
// logger, so a library embedder that never calls WithLogger sees no
// output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func resolveOptions(opts []Option) options {
	o := options{cfg: config.Default(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
