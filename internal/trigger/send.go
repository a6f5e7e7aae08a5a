package trigger

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Send writes identifiers to the daemon's named pipe, one per line.
//
// It never blocks waiting for a reader: if no daemon has the pipe open,
// ErrNoDaemon is returned.
func Send(path string, ids ...string) error {
	for _, id := range ids {
		if id == "" || strings.ContainsAny(id, "\r\n") {
			return fmt.Errorf("invalid identifier %q", id)
		}
	}

	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) || errors.Is(err, unix.ENOENT) {
			return fmt.Errorf("%s: %w", path, ErrNoDaemon)
		}
		return fmt.Errorf("failed to open trigger channel: %w", err)
	}
	// Lines are short enough to be written atomically; block if the pipe is full.
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to configure trigger channel: %w", err)
	}

	f := os.NewFile(uintptr(fd), path)
	defer f.Close()

	for _, id := range ids {
		if _, err := f.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("failed to write to trigger channel: %w", err)
		}
	}
	return f.Close()
}
