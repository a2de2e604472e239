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

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files.
//
//	parallel = 2
//	rule {
//	  extensions = ["pdf"]
//	  dest       = "Documents/PDFs"
//	}
//	job "downloads" {
//	  schedule = "@daily"
//	  organize { dir = "${home}/Downloads" }
//	}
//
// Expressions can read env.NAME and home.
type HCLParser struct{}

type hclRule struct {
	Extensions []string `hcl:"extensions"`
	Dest       string   `hcl:"dest"`
}

type hclConfig struct {
	Parallel int `hcl:"parallel,optional"`
	Log      *struct {
		File  string `hcl:"file,optional"`
		Level string `hcl:"level,optional"`
	} `hcl:"log,block"`
	Rules []hclRule `hcl:"rule,block"`
	Jobs  []struct {
		Name     string `hcl:"name,label"`
		Schedule string `hcl:"schedule,optional"`
		Backup   *struct {
			Source  string   `hcl:"source"`
			Dest    string   `hcl:"dest"`
			Archive string   `hcl:"archive,optional"`
			Exclude []string `hcl:"exclude,optional"`
			Level   int      `hcl:"level,optional"`
		} `hcl:"backup,block"`
		Clean *struct {
			Dir           string   `hcl:"dir"`
			Pattern       string   `hcl:"pattern,optional"`
			OlderThanDays *int     `hcl:"older_than_days,optional"`
			DryRun        bool     `hcl:"dry_run,optional"`
			Recursive     bool     `hcl:"recursive,optional"`
			Exclude       []string `hcl:"exclude,optional"`
		} `hcl:"clean,block"`
		Organize *struct {
			Dir   string    `hcl:"dir"`
			Rules []hclRule `hcl:"rule,block"`
		} `hcl:"organize,block"`
	} `hcl:"job,block"`
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "housekeep.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalContext(), &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{
		Parallel: hclCfg.Parallel,
		Rules:    convertRules(hclCfg.Rules),
	}
	if hclCfg.Log != nil {
		cfg.Log = LogConfig{File: hclCfg.Log.File, Level: hclCfg.Log.Level}
	}

	for _, hj := range hclCfg.Jobs {
		job := Job{Name: hj.Name, Schedule: hj.Schedule}
		if b := hj.Backup; b != nil {
			job.Backup = &BackupJob{Source: b.Source, Dest: b.Dest, Archive: b.Archive, Exclude: b.Exclude, Level: b.Level}
		}
		if c := hj.Clean; c != nil {
			job.Clean = &CleanJob{
				Dir:           c.Dir,
				Pattern:       c.Pattern,
				OlderThanDays: c.OlderThanDays,
				DryRun:        c.DryRun,
				Recursive:     c.Recursive,
				Exclude:       c.Exclude,
			}
		}
		if o := hj.Organize; o != nil {
			job.Organize = &OrganizeJob{Dir: o.Dir, Rules: convertRules(o.Rules)}
		}
		cfg.Jobs = append(cfg.Jobs, job)
	}

	return cfg, nil
}

func convertRules(in []hclRule) []RuleConfig {
	var out []RuleConfig
	for _, r := range in {
		out = append(out, RuleConfig{Extensions: r.Extensions, Dest: r.Dest})
	}
	return out
}

// evalContext exposes the environment, the home directory and a few string
// functions to expressions.
func evalContext() *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}

	home, _ := os.UserHomeDir()

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":  cty.ObjectVal(env),
			"home": cty.StringVal(home),
		},
		Functions: map[string]function.Function{
			"lower":  stdlib.LowerFunc,
			"upper":  stdlib.UpperFunc,
			"join":   stdlib.JoinFunc,
			"concat": stdlib.ConcatFunc,
		},
	}
}
