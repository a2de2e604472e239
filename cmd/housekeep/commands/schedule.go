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
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/housekeep/cmd/housekeep/opts"
	"github.com/walteh/housekeep/pkg/metrics"
	"github.com/walteh/housekeep/pkg/oplog"
	"github.com/walteh/housekeep/pkg/operation"
	"github.com/walteh/housekeep/pkg/schedule"
	"gitlab.com/tozd/go/errors"
)

// NewScheduleCmd creates a new schedule command
func NewScheduleCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		metricsAddr string
		list        bool
		utc         bool
		stopTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run config jobs on their cron schedules until interrupted",
		Long: `Schedule keeps running and starts every job that has a "schedule" in the
config file at its cron times. Standard five field specs and descriptors
such as @daily or @every 1h are accepted.

A job never overlaps itself; a tick that arrives while the previous run is
still busy is skipped. On interrupt running jobs are allowed to finish.`,
		Example: `  housekeep schedule --config housekeep.yaml --metrics-addr :9090
  housekeep schedule --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			logger := zerolog.Ctx(ctx)

			cfg, err := opts.LoadConfig(ctx)
			if err != nil {
				return err
			}

			loc := time.Local
			if utc {
				loc = time.UTC
			}

			if list {
				data := pterm.TableData{{"Job", "Kind", "Schedule", "Next run"}}
				for _, j := range cfg.Scheduled() {
					next, err := schedule.NextRuns(j.Schedule, time.Now().In(loc), 1)
					if err != nil {
						return err
					}
					when := "never"
					if len(next) > 0 {
						when = next[0].Format(time.RFC3339)
					}
					data = append(data, []string{j.Name, j.Kind(), j.Schedule, when})
				}
				return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(out).Render()
			}

			reg := prometheus.NewRegistry()
			var extra []oplog.Sink
			if metricsAddr != "" {
				extra = append(extra, metrics.NewSink(reg))
			}

			sink, closeSink, err := opts.Sink(ctx, out, cfg.Log.File, extra...)
			if err != nil {
				return err
			}
			defer closeSink()

			op, err := opts.Operator(sink, 0)
			if err != nil {
				return err
			}

			sched, err := schedule.New(ctx, cfg, operation.NewRunner(op, 1), schedule.Options{
				Location: loc,
				OnResult: func(r operation.JobResult) {
					PrintJobResults(out, []operation.JobResult{r})
				},
			})
			if err != nil {
				return err
			}

			var srv *http.Server
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler(reg))
				srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error().Err(err).Str("addr", metricsAddr).Msg("metrics server failed")
					}
				}()
				pterm.Info.WithWriter(out).Printfln("serving metrics on %s/metrics", metricsAddr)
			}

			sched.Start()
			for _, e := range sched.Entries() {
				pterm.Info.WithWriter(out).Printfln("%s: %s (next %s)", e.Job, e.Schedule, e.Next.Format(time.RFC3339))
			}

			<-ctx.Done()
			pterm.Info.WithWriter(out).Println("stopping scheduler")

			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
			defer cancel()
			if srv != nil {
				if err := srv.Shutdown(stopCtx); err != nil {
					logger.Warn().Err(err).Msg("stopping metrics server")
				}
			}
			return sched.Stop(stopCtx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().BoolVar(&list, "list", false, "print the scheduled jobs and their next run, then exit")
	cmd.Flags().BoolVar(&utc, "utc", false, "evaluate schedules in UTC instead of local time")
	cmd.Flags().DurationVar(&stopTimeout, "stop-timeout", 5*time.Minute, "how long to wait for running jobs on interrupt")

	return cmd
}
