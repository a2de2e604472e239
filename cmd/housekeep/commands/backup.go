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
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// NewBackupCmd creates a new backup command
func NewBackupCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		name    string
		exclude []string
		level   int
	)

	cmd := &cobra.Command{
		Use:   "backup SOURCE DEST",
		Short: "Back up a directory into a zip archive or a timestamped copy",
		Long: `Backup writes SOURCE into DEST.

With --name the files are stored in DEST/<source>_<YYYYMMDD_HHMMSS>_<name>.zip.
Without it SOURCE is copied to DEST/<source>_<YYYYMMDD_HHMMSS>.

Excluded directories are not descended into. A file that cannot be read
aborts the backup and nothing is left in DEST.`,
		Example: `  housekeep backup ~/projects /mnt/backups --name projects --exclude node_modules --exclude "*.log"
  housekeep backup ./photos ./snapshots`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			sink, closeSink, err := opts.Sink(ctx, out, "")
			if err != nil {
				return err
			}
			defer closeSink()

			op, err := opts.Operator(sink, 0)
			if err != nil {
				return err
			}

			res, err := op.Backup(ctx, operation.BackupRequest{
				Source:      args[0],
				Dest:        args[1],
				ArchiveName: name,
				Exclude:     exclude,
				Level:       level,
			})
			if res != nil {
				fmt.Fprint(out, status.FormatSummary(res))
			}
			if err != nil {
				return errors.Errorf("backing up %s: %w", args[0], err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "archive name; empty copies the directory instead")
	cmd.Flags().StringArrayVarP(&exclude, "exclude", "e", nil, "glob pattern for files or directories to leave out (repeatable)")
	cmd.Flags().IntVar(&level, "level", 0, "deflate level 1-9, 0 for the default")

	return cmd
}
