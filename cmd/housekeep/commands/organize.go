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
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/housekeep/cmd/housekeep/opts"
	"github.com/walteh/housekeep/pkg/operation"
	"github.com/walteh/housekeep/pkg/organize"
	"github.com/walteh/housekeep/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// NewOrganizeCmd creates a new organize command
func NewOrganizeCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		rules        []string
		withDefaults bool
	)

	cmd := &cobra.Command{
		Use:   "organize DIR",
		Short: "Sort the files of a directory into subfolders by extension",
		Long: `Organize moves every file directly inside DIR into a subfolder chosen by
its extension (see "housekeep rules"). Files without a rule stay put.

A name already taken in the destination gets the run timestamp appended,
so nothing is ever overwritten. Running organize twice moves nothing the
second time.`,
		Example: `  housekeep organize ~/Downloads
  housekeep organize ./inbox --rule log=Logs --rule csv=Data/CSV --with-defaults`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			table, err := ParseRules(rules, withDefaults)
			if err != nil {
				return err
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

			res, err := op.Organize(ctx, operation.OrganizeRequest{Directory: args[0], Rules: table})
			if res != nil {
				fmt.Fprint(out, status.FormatSummary(res))
			}
			if err != nil {
				return errors.Errorf("organizing %s: %w", args[0], err)
			}
			return res.Err()
		},
	}

	cmd.Flags().StringArrayVar(&rules, "rule", nil, "extension rule as ext=dest, e.g. pdf=Documents/PDFs (repeatable)")
	cmd.Flags().BoolVar(&withDefaults, "with-defaults", false, "keep the built-in rules after the --rule ones")

	return cmd
}

// 🔧 ParseRules turns ext=dest flags into a rule table. No flags means the
// built-in table. Extensions may be comma separated: jpg,png=Images.
func ParseRules(flags []string, withDefaults bool) (organize.Rules, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	var out organize.Rules
	for _, f := range flags {
		exts, dest, ok := strings.Cut(f, "=")
		if !ok {
			return nil, errors.Errorf("%w: %q is not ext=dest", organize.ErrInvalidRule, f)
		}
		for _, ext := range strings.Split(exts, ",") {
			out = append(out, organize.Rule{Ext: organize.NormalizeExt(ext), Dest: strings.TrimSpace(dest)})
		}
	}
	if withDefaults {
		out = append(out, organize.DefaultRules()...)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
