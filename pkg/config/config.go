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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/walteh/housekeep/pkg/organize"
	"github.com/walteh/housekeep/pkg/pattern"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidConfig is returned when a parsed config fails validation.
var ErrInvalidConfig = errors.Base("invalid config")

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser

	validate = validator.New(validator.WithRequiredStructEnabled())

	// standard five field specs plus descriptors like @daily
	cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// DefaultFiles are tried in order when no config path is given.
var DefaultFiles = []string{"housekeep.yaml", "housekeep.yml", "housekeep.hcl", "housekeep.json", "housekeep.jsonc"}

// 📚 Config is a set of maintenance jobs
type Config struct {
	Log      LogConfig    `json:"log" yaml:"log"`
	Parallel int          `json:"parallel,omitempty" yaml:"parallel,omitempty" validate:"gte=0"`
	Rules    []RuleConfig `json:"rules,omitempty" yaml:"rules,omitempty" validate:"dive"`
	Jobs     []Job        `json:"jobs" yaml:"jobs" validate:"required,min=1,dive"`
}

// 📝 LogConfig controls the operation log
type LogConfig struct {
	File  string `json:"file,omitempty" yaml:"file,omitempty"`                                         // JSON lines operation log
	Level string `json:"level,omitempty" yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"` // diagnostic level
}

// 📐 RuleConfig sends every listed extension to Dest
type RuleConfig struct {
	Extensions []string `json:"extensions" yaml:"extensions" validate:"required,min=1,dive,required"`
	Dest       string   `json:"dest" yaml:"dest" validate:"required"`
}

// 🧰 Job is one named maintenance action, optionally on a schedule. Exactly
// one of Backup, Clean and Organize is set.
type Job struct {
	Name     string       `json:"name" yaml:"name" validate:"required"`
	Schedule string       `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Backup   *BackupJob   `json:"backup,omitempty" yaml:"backup,omitempty"`
	Clean    *CleanJob    `json:"clean,omitempty" yaml:"clean,omitempty"`
	Organize *OrganizeJob `json:"organize,omitempty" yaml:"organize,omitempty"`
}

// 📦 BackupJob archives or copies Source into Dest
type BackupJob struct {
	Source  string   `json:"source" yaml:"source" validate:"required"`
	Dest    string   `json:"dest" yaml:"dest" validate:"required"`
	Archive string   `json:"archive,omitempty" yaml:"archive,omitempty"` // empty means a directory copy
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Level   int      `json:"level,omitempty" yaml:"level,omitempty" validate:"gte=0,lte=9"`
}

// 🧹 CleanJob removes old files from Dir
type CleanJob struct {
	Dir           string   `json:"dir" yaml:"dir" validate:"required"`
	Pattern       string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	OlderThanDays *int     `json:"older_than_days,omitempty" yaml:"older_than_days,omitempty" validate:"omitempty,gte=0"`
	DryRun        bool     `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Recursive     bool     `json:"recursive,omitempty" yaml:"recursive,omitempty"`
	Exclude       []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// 🗂️ OrganizeJob sorts the files of Dir. Job rules win over the top level
// rules, which win over the built-in table.
type OrganizeJob struct {
	Dir   string       `json:"dir" yaml:"dir" validate:"required"`
	Rules []RuleConfig `json:"rules,omitempty" yaml:"rules,omitempty" validate:"dive"`
}

// Job kinds.
const (
	KindBackup   = "backup"
	KindClean    = "clean"
	KindOrganize = "organize"
)

// Kind names the action of the job, or "" when none or several are set.
func (j Job) Kind() string {
	var kinds []string
	if j.Backup != nil {
		kinds = append(kinds, KindBackup)
	}
	if j.Clean != nil {
		kinds = append(kinds, KindClean)
	}
	if j.Organize != nil {
		kinds = append(kinds, KindOrganize)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Roots lists the directories the job reads or writes.
func (j Job) Roots() []string {
	switch {
	case j.Backup != nil:
		return []string{j.Backup.Source, j.Backup.Dest}
	case j.Clean != nil:
		return []string{j.Clean.Dir}
	case j.Organize != nil:
		return []string{j.Organize.Dir}
	}
	return nil
}

// ToRules flattens a rule list into an organize table, one rule per extension.
func ToRules(cfgs []RuleConfig) organize.Rules {
	if len(cfgs) == 0 {
		return nil
	}
	var out organize.Rules
	for _, rc := range cfgs {
		for _, ext := range rc.Extensions {
			out = append(out, organize.Rule{Ext: organize.NormalizeExt(ext), Dest: rc.Dest})
		}
	}
	return out
}

// RulesFor picks the table an organize job runs with.
func (cfg *Config) RulesFor(j Job) organize.Rules {
	if j.Organize != nil && len(j.Organize.Rules) > 0 {
		return ToRules(j.Organize.Rules)
	}
	if len(cfg.Rules) > 0 {
		return ToRules(cfg.Rules)
	}
	return organize.DefaultRules()
}

// Job returns the job with the given name.
func (cfg *Config) Job(name string) (Job, bool) {
	for _, j := range cfg.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

// Scheduled returns the jobs that carry a schedule, in file order.
func (cfg *Config) Scheduled() []Job {
	var out []Job
	for _, j := range cfg.Jobs {
		if strings.TrimSpace(j.Schedule) != "" {
			out = append(out, j)
		}
	}
	return out
}

// ParseSchedule parses a cron spec the way the config validator does.
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := cronParser.Parse(strings.TrimSpace(spec))
	if err != nil {
		return nil, errors.Errorf("parsing schedule %q: %w", spec, err)
	}
	return s, nil
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	logger.Debug().Int("jobs", len(cfg.Jobs)).Str("hash", cfg.Hash()).Msg("configuration loaded")
	return cfg, nil
}

// 🔎 Find returns the first default config file present in dir.
func Find(dir string) (string, error) {
	for _, name := range DefaultFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.Errorf("no config file found in %s (tried %s)", dir, strings.Join(DefaultFiles, ", "))
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return errors.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}

	if err := ToRules(cfg.Rules).Validate(); err != nil {
		return errors.Errorf("%w: rules: %s", ErrInvalidConfig, err.Error())
	}

	seen := map[string]bool{}
	for i, j := range cfg.Jobs {
		if seen[j.Name] {
			return errors.Errorf("%w: duplicate job name %q", ErrInvalidConfig, j.Name)
		}
		seen[j.Name] = true

		if err := j.validate(); err != nil {
			return errors.Errorf("%w: job %d (%s): %s", ErrInvalidConfig, i, j.Name, err.Error())
		}
	}
	return nil
}

func (j Job) validate() error {
	if j.Kind() == "" {
		return errors.New("exactly one of backup, clean or organize must be set")
	}
	if strings.TrimSpace(j.Schedule) != "" {
		if _, err := ParseSchedule(j.Schedule); err != nil {
			return err
		}
	}

	switch {
	case j.Backup != nil:
		if _, err := pattern.NewSet(j.Backup.Exclude...); err != nil {
			return err
		}
	case j.Clean != nil:
		if _, err := pattern.NewSet(j.Clean.Exclude...); err != nil {
			return err
		}
		if j.Clean.Pattern != "" && !pattern.Valid(j.Clean.Pattern) {
			return errors.Errorf("%w: %q", pattern.ErrInvalidPattern, j.Clean.Pattern)
		}
	case j.Organize != nil:
		if err := ToRules(j.Organize.Rules).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// 🔑 Hash returns a stable digest of the parsed configuration
func (cfg *Config) Hash() string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// 📝 String returns a short summary of the config
func (cfg *Config) String() string {
	names := make([]string, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		names = append(names, fmt.Sprintf("%s(%s)", j.Name, j.Kind()))
	}
	return fmt.Sprintf("%d jobs: %s", len(cfg.Jobs), strings.Join(names, ", "))
}
