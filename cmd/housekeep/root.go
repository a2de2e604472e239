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

package main

import (
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/housekeep/cmd/housekeep/commands"
	"github.com/walteh/housekeep/cmd/housekeep/opts"
	"gitlab.com/tozd/go/errors"
)

// NewRootCmd builds the housekeep command tree
func NewRootCmd() *cobra.Command {
	rootOpts := &opts.RootOpts{}

	cmd := &cobra.Command{
		Use:   "housekeep",
		Short: "Back up, clean and organize directories",
		Long: `housekeep automates recurring filesystem maintenance:

  backup    zip a directory (or copy it) into a timestamped backup
  clean     remove files older than N days, with a dry run preview
  organize  sort files into subfolders by extension

Jobs can also be described in a config file (YAML, HCL or JSON) and run once
with "housekeep run" or on cron schedules with "housekeep schedule".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, rootOpts)
		},
	}

	addRootFlags(cmd, rootOpts)

	cmd.AddCommand(
		commands.NewBackupCmd(rootOpts),
		commands.NewCleanCmd(rootOpts),
		commands.NewOrganizeCmd(rootOpts),
		commands.NewRunCmd(rootOpts),
		commands.NewScheduleCmd(rootOpts),
		commands.NewRulesCmd(rootOpts),
		newVersionCmd(),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "", "config file (default: housekeep.{yaml,yml,hcl,json,jsonc} in the working directory)")
	cmd.PersistentFlags().StringVar(&o.LogFile, "log-file", "", "append every action as JSON to this file")
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", "warn", "diagnostic log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", false, "also show skipped, excluded and retained files")
	cmd.PersistentFlags().BoolVarP(&o.Quiet, "quiet", "q", false, "only print summaries")
}

// setup configures zerolog and terminal styling for the running command
func setup(cmd *cobra.Command, o *opts.RootOpts) error {
	level, err := zerolog.ParseLevel(o.LogLevel)
	if err != nil {
		return errors.Errorf("parsing log level: %w", err)
	}
	if o.Debug {
		level = zerolog.DebugLevel
	}

	var logOut io.Writer = cmd.ErrOrStderr()
	if isTerminal(logOut) {
		logOut = zerolog.ConsoleWriter{Out: logOut, TimeFormat: time.Kitchen}
	}
	logger := zerolog.New(logOut).Level(level).With().Timestamp().Logger()
	cmd.SetContext(logger.WithContext(cmd.Context()))

	if !isTerminal(cmd.OutOrStdout()) {
		pterm.DisableStyling()
		color.NoColor = true
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
