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

package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/housekeep/cmd/housekeep/opts"
	"github.com/walteh/housekeep/pkg/operation"
	"github.com/walteh/housekeep/pkg/status"
)

// NewRunCmd creates a new run command
func NewRunCmd(opts *opts.RootOpts) *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "run [JOB...]",
		Short: "Run jobs from the config file once",
		Long: `Run executes the named jobs of the config file, or all of them, right now
and ignores their schedules.

Jobs run one after another unless the config (or --parallel) allows more.
Parallel runs are refused when two jobs work on nested directories.`,
		Example: `  housekeep run
  housekeep run nightly-backup --config /etc/housekeep.hcl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			cfg, err := opts.LoadConfig(ctx)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("parallel") {
				parallel = cfg.Parallel
			}

			sink, closeSink, err := opts.Sink(ctx, out, cfg.Log.File)
			if err != nil {
				return err
			}
			defer closeSink()

			op, err := opts.Operator(sink, 0)
			if err != nil {
				return err
			}

			results, err := operation.NewRunner(op, parallel).Run(ctx, cfg, args...)
			PrintJobResults(out, results)
			return err
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 1, "jobs to run at once (overrides the config)")

	return cmd
}

// PrintJobResults writes each job's summary followed by a one line verdict.
func PrintJobResults(w io.Writer, results []operation.JobResult) {
	for _, r := range results {
		fmt.Fprintln(w, pterm.Bold.Sprintf("▶ %s (%s)", r.Job, r.Kind))
		if r.Result != nil {
			fmt.Fprint(w, status.FormatSummary(r.Result))
		}
		if r.Err != nil {
			pterm.Error.WithWriter(w).Println(r.Err.Error())
		} else {
			pterm.Success.WithWriter(w).Printfln("%s finished in %s", r.Job, r.Duration.Round(time.Millisecond))
		}
	}
}
