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

package opts

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/config"
	"github.com/walteh/housekeep/pkg/operation"
	"github.com/walteh/housekeep/pkg/oplog"
	"gitlab.com/tozd/go/errors"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigFile string // config path, empty means search the working directory
	LogFile    string // JSON lines operation log, overrides the config
	LogLevel   string
	Debug      bool
	Verbose    bool // also print skipped, excluded and retained paths
	Quiet      bool // no per-path console output
}

// 🎯 LoadConfig loads the config named by --config, or the first default
// config file in the working directory.
func (o *RootOpts) LoadConfig(ctx context.Context) (*config.Config, error) {
	path := o.ConfigFile
	if path == "" {
		found, err := config.Find(".")
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, errors.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// 🔌 Sink builds the operation log sink for a command: the console printer
// on w, zerolog, the optional JSON lines file and any extra sinks. The
// returned close func must be called when the command is done.
func (o *RootOpts) Sink(ctx context.Context, w io.Writer, logFile string, extra ...oplog.Sink) (oplog.Sink, func() error, error) {
	sinks := []oplog.Sink{oplog.ZerologSink{Logger: zerolog.Ctx(ctx)}}
	if !o.Quiet {
		sinks = append(sinks, oplog.NewConsoleSink(w, o.Verbose))
	}

	if o.LogFile != "" {
		logFile = o.LogFile
	}
	closer := func() error { return nil }
	if logFile != "" {
		fs, err := oplog.OpenFile(logFile)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, fs)
		closer = fs.Close
	}

	sinks = append(sinks, extra...)
	return oplog.Multi(sinks...), closer, nil
}

// 🏭 Operator creates the operator every command runs through.
func (o *RootOpts) Operator(sink oplog.Sink, level int) (operation.Operator, error) {
	op, err := operation.New(operation.Options{Sink: sink, Level: level})
	if err != nil {
		return nil, errors.Errorf("creating operator: %w", err)
	}
	return op, nil
}
