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
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/housekeep/cmd/housekeep/opts"
	"github.com/walteh/housekeep/pkg/organize"
	"gitlab.com/tozd/go/errors"
)

// NewRulesCmd creates a new rules command
func NewRulesCmd(opts *opts.RootOpts) *cobra.Command {
	var job string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show the extension rules organize uses",
		Long: `Rules prints the extension table. With --job it prints the table the
named organize job of the config runs with.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := organize.DefaultRules()

			if job != "" {
				cfg, err := opts.LoadConfig(cmd.Context())
				if err != nil {
					return err
				}
				j, ok := cfg.Job(job)
				if !ok {
					return errors.Errorf("no job named %q in config", job)
				}
				if j.Organize == nil {
					return errors.Errorf("job %q is a %s job, not organize", job, j.Kind())
				}
				table = cfg.RulesFor(j)
			}

			return RenderRules(cmd, table)
		},
	}

	cmd.Flags().StringVar(&job, "job", "", "show the rules of this organize job")

	return cmd
}

// RenderRules prints one row per destination with its extensions. An
// extension shadowed by an earlier rule is left out.
func RenderRules(cmd *cobra.Command, table organize.Rules) error {
	seen := map[string]bool{}
	byDest := map[string][]string{}
	for _, r := range table {
		ext := organize.NormalizeExt(r.Ext)
		if seen[ext] {
			continue
		}
		seen[ext] = true
		dest, _ := table.Lookup(ext)
		byDest[dest] = append(byDest[dest], "."+ext)
	}

	data := pterm.TableData{{"Destination", "Extensions"}}
	for _, dest := range table.Destinations() {
		if exts := byDest[dest]; len(exts) > 0 {
			data = append(data, []string{dest, strings.Join(exts, ", ")})
		}
	}

	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render()
}
