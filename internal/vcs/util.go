package vcs

import (
	"errors"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// ===================
// Output Parsing Utilities
// ===================

// ParseLines splits command output into non-empty lines.
// Trailing whitespace is removed; leading whitespace is kept because it is
// significant in some formats (porcelain status, tab-separated listings).
func ParseLines(output []byte) []string {
	if len(output) == 0 {
		return nil
	}

	lines := strings.Split(string(output), "\n")
	result := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line != "" {
			result = append(result, line)
		}
	}

	return result
}

// remoteLine matches "origin\tgit@example.com:repo.git (fetch)", with the
// optional "[blob:none]" filter suffix git prints for partial clones.
var remoteLine = regexp.MustCompile(`^(.*)\t(.*) \((.*)\)(?: \[.*\])?$`)

// ParseRemoteLine parses one line of `git remote -v` output.
func ParseRemoteLine(line string) (RemoteBinding, error) {
	m := remoteLine.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return RemoteBinding{}, &MalformedRemoteLineError{Line: line}
	}
	return RemoteBinding{
		Name:      m[1],
		URL:       m[2],
		Direction: Direction(m[3]),
	}, nil
}

// ===================
// Path Utilities
// ===================

// IsSubPath returns true if target is inside base directory (or is base).
func IsSubPath(base, target string) bool {
	base = filepath.Clean(base)
	target = filepath.Clean(target)

	relPath, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}

	// If relative path starts with "..", it's outside base
	return relPath != ".." && !strings.HasPrefix(relPath, ".."+string(filepath.Separator))
}

// ===================
// String Utilities
// ===================

// TrimOutput trims whitespace and trailing newlines from command output.
func TrimOutput(output []byte) string {
	return strings.TrimSpace(string(output))
}

// ===================
// Error Utilities
// ===================

// GetExitCode returns the exit code from an error, or -1 if not an exit error.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}
