package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lifebuddy/gofetch/internal/vcs"
)

// Entry is one working directory from the workspace list.
type Entry struct {
	Path    string      `toml:"path" yaml:"path"`
	Options vcs.Options `toml:"options" yaml:"options"`
}

// workspaceFile is the structured (TOML or YAML) workspace list.
type workspaceFile struct {
	Workspace []Entry `toml:"workspace" yaml:"workspace"`
}

// LoadWorkspaces reads the workspace list at path.
//
// The format follows the extension: .toml and .yaml/.yml are structured,
// anything else is the line format read by ParseLegacy. Relative workspace
// paths are resolved against the directory holding the list.
func LoadWorkspaces(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace list: %w", err)
	}

	var entries []Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var f workspaceFile
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		entries = f.Workspace
	case ".yaml", ".yml":
		var f workspaceFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		entries = f.Workspace
	default:
		entries, err = ParseLegacy(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	return normalize(entries, filepath.Dir(path))
}

// ParseLegacy reads the line-oriented workspace list.
//
// A line of the form "@key=value" sets an option for every workspace listed
// after it; a later flag with the same key replaces the value. Any other
// line is a workspace path. Blank lines and lines starting with '#' are
// skipped.
func ParseLegacy(r io.Reader) ([]Entry, error) {
	var entries []Entry
	current := vcs.Options{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if flag, ok := strings.CutPrefix(line, "@"); ok {
			key, value, found := strings.Cut(flag, "=")
			if !found || key == "" {
				return nil, fmt.Errorf("line %d: flag %q is not of the form @key=value", lineNo, line)
			}
			current[key] = value
			continue
		}

		entries = append(entries, Entry{Path: line, Options: current.Clone()})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// normalize makes every path absolute and clean, and rejects duplicates:
// two units on one directory would defeat its mutual exclusion.
func normalize(entries []Entry, base string) ([]Entry, error) {
	seen := make(map[string]bool, len(entries))
	out := make([]Entry, 0, len(entries))

	for i, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return nil, fmt.Errorf("workspace %d has no path", i+1)
		}
		path := e.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		path, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", e.Path, err)
		}
		if seen[path] {
			return nil, fmt.Errorf("workspace %s listed more than once", path)
		}
		seen[path] = true

		opts := e.Options.Clone()
		out = append(out, Entry{Path: path, Options: opts})
	}
	return out, nil
}
