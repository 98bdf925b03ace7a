// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package listing

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/gribsync/pkg/rclone"
	"github.com/walteh/gribsync/pkg/supervisor"
	"gitlab.com/tozd/go/errors"
)

// DefaultTimeout bounds one listing call
const DefaultTimeout = 90 * time.Second

// 🏃 Executor runs one external command
type Executor interface {
	Execute(ctx context.Context, argv []string, timeout time.Duration) (*supervisor.Result, error)
}

// 📋 Lister retrieves a remote listing through the transfer tool
type Lister struct {
	Logger  *zerolog.Logger
	Exec    Executor
	Tool    rclone.Tool
	Timeout time.Duration
}

// List returns the normalized recursive listing of dir. Any failure of the
// listing command, and any malformed output, is returned as is: without a
// listing there is nothing to plan.
func (l *Lister) List(ctx context.Context, dir string) ([]RemoteEntry, error) {
	logger := l.logger()
	logger.Info().Str("remote", l.Tool.Remote.URL(dir)).Msg("listing started")

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	res, err := l.Exec.Execute(ctx, l.Tool.ListCommand(dir), timeout)
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", dir, err)
	}

	entries, err := Normalize(res.Stdout)
	if err != nil {
		logger.Error().Err(err).Int("stdout_bytes", len(res.Stdout)).Msg("listing output is not a valid lsjson array")
		return nil, errors.Errorf("parsing listing of %s: %w", dir, err)
	}

	logger.Info().
		Int("entries", len(entries)).
		Int("files", len(Files(entries))).
		Dur("duration", res.Duration).
		Msg("listing finished")
	return entries, nil
}

func (l *Lister) logger() *zerolog.Logger {
	if l.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return l.Logger
}
