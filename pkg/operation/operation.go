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

package operation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/archive"
	"github.com/walteh/housekeep/pkg/oplog"
	"github.com/walteh/housekeep/pkg/organize"
	"github.com/walteh/housekeep/pkg/retention"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Operator defines the maintenance operations
type Operator interface {
	// Backup archives Source into Dest, or copies it when ArchiveName is empty
	Backup(ctx context.Context, req BackupRequest) (*status.Result, error)
	// Clean removes old files matching a pattern
	Clean(ctx context.Context, req CleanRequest) (*status.Result, error)
	// Organize sorts the files of a directory into subfolders by extension
	Organize(ctx context.Context, req OrganizeRequest) (*status.Result, error)
}

// 📦 BackupRequest describes one backup
type BackupRequest struct {
	Source      string
	Dest        string
	ArchiveName string // empty means a plain directory copy
	Exclude     []string
	Level       int // deflate level, zero uses the operator default
}

// 🧹 CleanRequest describes one cleanup
type CleanRequest struct {
	Directory     string
	Pattern       string
	OlderThanDays *int
	DryRun        bool
	Recursive     bool
	Exclude       []string
}

// 🗂️ OrganizeRequest describes one organize run
type OrganizeRequest struct {
	Directory string
	Rules     organize.Rules // nil means organize.DefaultRules()
}

// 🔧 Options contains configuration for the operator
type Options struct {
	// Sink receives every action of every operation. Nil discards.
	Sink oplog.Sink
	// Now is the clock; nil means time.Now.
	Now func() time.Time
	// Level is the default deflate level for archives, 0 to 9.
	Level int
}

// 🏭 New creates a new operator with the given options
func New(opts Options) (Operator, error) {
	if opts.Level < 0 || opts.Level > 9 {
		return nil, errors.Errorf("compression level must be between 0 and 9, got %d", opts.Level)
	}
	if opts.Sink == nil {
		opts.Sink = oplog.Nop
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &operator{opts: opts}, nil
}

// 🎮 operator implements the Operator interface
type operator struct {
	opts Options
}

func (o *operator) Backup(ctx context.Context, req BackupRequest) (*status.Result, error) {
	level := req.Level
	if level == 0 {
		level = o.opts.Level
	}
	aopts := archive.Options{
		Source:      req.Source,
		Dest:        req.Dest,
		ArchiveName: req.ArchiveName,
		Exclude:     req.Exclude,
		Level:       level,
		Sink:        o.opts.Sink,
		Now:         o.opts.Now,
	}

	var man *archive.Manifest
	var err error
	if req.ArchiveName == "" {
		man, err = archive.CopyDirectory(ctx, aopts)
	} else {
		man, err = archive.CreateArchive(ctx, aopts)
	}
	if man == nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("target", man.Target).Int("files", man.Files()).Msg("backup manifest")
	return man.Result, err
}

func (o *operator) Clean(ctx context.Context, req CleanRequest) (*status.Result, error) {
	return retention.Clean(ctx, retention.Options{
		Dir:           req.Directory,
		Pattern:       req.Pattern,
		OlderThanDays: req.OlderThanDays,
		DryRun:        req.DryRun,
		Recursive:     req.Recursive,
		Exclude:       req.Exclude,
		Sink:          o.opts.Sink,
		Now:           o.opts.Now,
	})
}

func (o *operator) Organize(ctx context.Context, req OrganizeRequest) (*status.Result, error) {
	return organize.Organize(ctx, organize.Options{
		Dir:   req.Directory,
		Rules: req.Rules,
		Sink:  o.opts.Sink,
		Now:   o.opts.Now,
	})
}
