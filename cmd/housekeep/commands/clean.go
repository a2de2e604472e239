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

	"github.com/spf13/cobra"
	"github.com/walteh/housekeep/cmd/housekeep/opts"
	"github.com/walteh/housekeep/pkg/operation"
	"github.com/walteh/housekeep/pkg/retention"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// NewCleanCmd creates a new clean command
func NewCleanCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		req       operation.CleanRequest
		olderThan int
	)

	cmd := &cobra.Command{
		Use:   "clean DIR",
		Short: "Remove old files matching a pattern",
		Long: `Clean removes files under DIR that match --pattern and are at least
--older-than days old. Without --older-than every match is removed.

Use --dry-run first: it lists what would go and how much space it would free
without touching anything.`,
		Example: `  housekeep clean /tmp/scratch --pattern "*.tmp" --older-than 7 --dry-run
  housekeep clean ~/logs --pattern "*.log" --older-than 30 --recursive --exclude keep/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			req.Directory = args[0]
			if cmd.Flags().Changed("older-than") {
				req.OlderThanDays = retention.Days(olderThan)
			}

			sink, closeSink, err := opts.Sink(ctx, out, "")
			if err != nil {
				return err
			}
			defer closeSink()

			op, err := opts.Operator(sink, 0)
			if err != nil {
				return err
			}

			res, err := op.Clean(ctx, req)
			if res != nil {
				if req.DryRun {
					fmt.Fprint(out, status.FormatPreview(res, status.StatusWouldRemove))
				}
				fmt.Fprint(out, status.FormatSummary(res))
			}
			if err != nil {
				return errors.Errorf("cleaning %s: %w", args[0], err)
			}
			return res.Err()
		},
	}

	cmd.Flags().StringVarP(&req.Pattern, "pattern", "p", retention.DefaultPattern, "glob selecting files relative to DIR")
	cmd.Flags().IntVarP(&olderThan, "older-than", "o", 0, "only remove files at least this many days old")
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "show what would be removed without removing it")
	cmd.Flags().BoolVarP(&req.Recursive, "recursive", "r", false, "apply the pattern at every depth")
	cmd.Flags().StringArrayVarP(&req.Exclude, "exclude", "e", nil, "glob pattern protecting files or directories (repeatable)")

	return cmd
}
