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

// Package pattern evaluates shell style glob patterns against paths.
//
// Patterns use doublestar syntax: * ? [...] {a,b} and ** for any number of
// path segments. Paths are always compared with / separators.
//
//	*.log          matches a base name anywhere in the tree
//	cache/         matches directories named cache (and never files)
//	build/**/*.o   matches relative to the walk root
//	/tmp/**        matches the absolute path
package pattern

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidPattern is returned by NewSet for malformed patterns.
var ErrInvalidPattern = errors.Base("invalid pattern")

type compiled struct {
	raw     string
	glob    string
	dirOnly bool
	// whole-path patterns are matched against rel and abs, others against the base name
	wholePath bool
}

// 🎯 Set is an ordered, validated list of patterns.
// The zero value and a nil *Set match nothing.
type Set struct {
	patterns []compiled
}

// 🏭 NewSet validates and compiles patterns in order. Blank entries are ignored.
func NewSet(patterns ...string) (*Set, error) {
	s := &Set{}
	for _, raw := range patterns {
		p := filepath.ToSlash(strings.TrimSpace(raw))
		if p == "" {
			continue
		}

		c := compiled{raw: raw}
		if len(p) > 1 && strings.HasSuffix(p, "/") {
			c.dirOnly = true
			p = strings.TrimSuffix(p, "/")
		}
		c.glob = p
		c.wholePath = strings.Contains(p, "/")

		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("%w: %q", ErrInvalidPattern, raw)
		}
		s.patterns = append(s.patterns, c)
	}
	return s, nil
}

// Valid reports whether a single pattern compiles.
func Valid(p string) bool {
	return doublestar.ValidatePattern(filepath.ToSlash(strings.TrimSpace(p)))
}

// MustSet is NewSet for patterns known to be valid.
func MustSet(patterns ...string) *Set {
	s, err := NewSet(patterns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Empty reports whether the set has no patterns.
func (s *Set) Empty() bool {
	return s == nil || len(s.patterns) == 0
}

// Patterns returns the patterns as they were given.
func (s *Set) Patterns() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.patterns))
	for _, c := range s.patterns {
		out = append(out, c.raw)
	}
	return out
}

// 🔍 Match tests an entry against the set and returns the first pattern that
// matched it. rel is the path relative to the walk root and abs the absolute
// path; either form of separator is accepted.
func (s *Set) Match(rel, abs string, isDir bool) (string, bool) {
	if s.Empty() {
		return "", false
	}

	rel = filepath.ToSlash(rel)
	abs = filepath.ToSlash(abs)
	base := path.Base(rel)
	if rel == "" || rel == "." {
		base = path.Base(abs)
	}

	for _, c := range s.patterns {
		if c.dirOnly && !isDir {
			continue
		}
		if c.wholePath {
			if match(c.glob, rel) || match(c.glob, abs) {
				return c.raw, true
			}
			continue
		}
		if match(c.glob, base) {
			return c.raw, true
		}
	}
	return "", false
}

// Excludes is Match without the pattern.
func (s *Set) Excludes(rel, abs string, isDir bool) bool {
	_, ok := s.Match(rel, abs, isDir)
	return ok
}

// 🧪 Matches reports whether p matches any of patterns. Patterns without a /
// are compared with the base name of p, the rest with the whole of p.
// Invalid patterns never match.
func Matches(p string, patterns []string) bool {
	p = filepath.ToSlash(p)
	base := path.Base(p)
	for _, raw := range patterns {
		glob := filepath.ToSlash(strings.TrimSpace(raw))
		if glob == "" {
			continue
		}
		if strings.Contains(glob, "/") {
			if match(glob, p) {
				return true
			}
			continue
		}
		if match(glob, base) {
			return true
		}
	}
	return false
}

func match(glob, name string) bool {
	if name == "" {
		return false
	}
	ok, err := doublestar.Match(glob, name)
	return err == nil && ok
}
