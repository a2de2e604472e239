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

package organize

import (
	"path"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrInvalidRule is returned for rules that cannot be applied safely.
var ErrInvalidRule = errors.Base("invalid rule")

// 📐 Rule sends files with extension Ext into the Dest subfolder
type Rule struct {
	Ext  string // Lowercase, without the leading dot
	Dest string // Slash separated, relative to the organized directory
}

// 📚 Rules is an ordered rule table. When an extension appears twice the
// first rule wins.
type Rules []Rule

// DefaultRules returns a fresh copy of the built-in table.
func DefaultRules() Rules {
	return Rules{
		// Documents
		{"pdf", "Documents/PDFs"},
		{"doc", "Documents/Word"}, {"docx", "Documents/Word"},
		{"xls", "Documents/Excel"}, {"xlsx", "Documents/Excel"},
		{"ppt", "Documents/PowerPoint"}, {"pptx", "Documents/PowerPoint"},
		{"txt", "Documents/Text"},

		// Images
		{"jpg", "Images"}, {"jpeg", "Images"},
		{"png", "Images"},
		{"gif", "Images"},
		{"bmp", "Images"},

		// Audio and video
		{"mp3", "Media/Audio"},
		{"wav", "Media/Audio"},
		{"mp4", "Media/Video"},
		{"avi", "Media/Video"},
		{"mkv", "Media/Video"},

		// Compressed files
		{"zip", "Files/Compressed"},
		{"rar", "Files/Compressed"},
		{"tar", "Files/Compressed"},
		{"gz", "Files/Compressed"},

		// Installers
		{"exe", "Installers"},
		{"msi", "Installers"},
		{"dmg", "Installers"},

		// Code
		{"py", "Code/Python"},
		{"js", "Code/JavaScript"},
		{"html", "Code/Web"},
		{"css", "Code/Web"},
		{"java", "Code/Java"},
		{"c", "Code/C"},
		{"cpp", "Code/C++"},
	}
}

// NormalizeExt lowercases ext and strips leading dots.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}

// ✅ Validate checks every rule: a non-empty extension and a destination that
// stays inside the organized directory
func (r Rules) Validate() error {
	for i, rule := range r {
		if NormalizeExt(rule.Ext) == "" {
			return errors.Errorf("%w: rule %d has no extension", ErrInvalidRule, i)
		}
		dest := filepath.ToSlash(strings.TrimSpace(rule.Dest))
		clean := path.Clean(dest)
		switch {
		case dest == "", clean == ".":
			// sub/.. and ./ name the organized directory itself
			return errors.Errorf("%w: rule %d (%s) has no destination", ErrInvalidRule, i, rule.Ext)
		case strings.HasPrefix(dest, "/"), filepath.IsAbs(rule.Dest):
			return errors.Errorf("%w: rule %d (%s) destination %q is absolute", ErrInvalidRule, i, rule.Ext, rule.Dest)
		}
		for _, seg := range strings.Split(clean, "/") {
			if seg == ".." {
				return errors.Errorf("%w: rule %d (%s) destination %q leaves the directory", ErrInvalidRule, i, rule.Ext, rule.Dest)
			}
		}
	}
	return nil
}

// Lookup returns the destination for a normalized extension.
func (r Rules) Lookup(ext string) (string, bool) {
	for _, rule := range r {
		if NormalizeExt(rule.Ext) == ext {
			return path.Clean(filepath.ToSlash(strings.TrimSpace(rule.Dest))), true
		}
	}
	return "", false
}

// index builds the extension map once per run.
func (r Rules) index() map[string]string {
	out := make(map[string]string, len(r))
	for _, rule := range r {
		ext := NormalizeExt(rule.Ext)
		if _, ok := out[ext]; ok {
			continue
		}
		out[ext] = path.Clean(filepath.ToSlash(strings.TrimSpace(rule.Dest)))
	}
	return out
}

// Destinations returns every distinct destination, in rule order.
func (r Rules) Destinations() []string {
	seen := map[string]bool{}
	var out []string
	for _, rule := range r {
		d := path.Clean(filepath.ToSlash(strings.TrimSpace(rule.Dest)))
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// 🏷️ SplitExt splits a file name into stem and extension the way a file
// manager would: the extension is the text after the last dot, a leading dot
// alone does not start one (".bashrc" has none) and neither does a trailing dot.
func SplitExt(name string) (stem, ext string) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i:]
}
