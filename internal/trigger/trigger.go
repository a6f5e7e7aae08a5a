// Package trigger implements the out-of-band pull request channel.
//
// The channel is a named pipe. Other processes write newline-delimited
// identifiers (remote URLs) into it; the daemon reads them one at a time and
// pulls the matching working directory. Nothing is written back.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultPath is where the daemon creates its named pipe.
const DefaultPath = "/var/run/gofetch.fifo"

// DefaultMode lets any local user request a pull.
const DefaultMode os.FileMode = 0o666

// MaxLineLength is the longest identifier Serve accepts.
const MaxLineLength = 64 * 1024

var (
	// ErrInUse is returned by Open when another process is already
	// reading the named pipe.
	ErrInUse = errors.New("trigger channel in use by another process")

	// ErrNoDaemon is returned by Send when no process is reading the pipe.
	ErrNoDaemon = errors.New("no daemon is reading the trigger channel")
)

// Handler is called synchronously for every identifier read.
type Handler func(ctx context.Context, id string)

// Channel is the daemon side of the named pipe.
type Channel struct {
	path   string
	logger *log.Logger

	mu     sync.Mutex
	closed bool
}

// Open creates a fresh named pipe at path with the given permissions.
//
// A stale pipe left behind by a crashed daemon is replaced. If another
// process is still reading it, ErrInUse is returned. Any other kind of
// file at path is an error.
func Open(path string, mode os.FileMode, logger *log.Logger) (*Channel, error) {
	if path == "" {
		return nil, fmt.Errorf("trigger path cannot be empty")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[trigger] ", log.LstdFlags)
	}

	if info, err := os.Lstat(path); err == nil {
		if info.Mode()&os.ModeNamedPipe == 0 {
			return nil, fmt.Errorf("%s exists and is not a named pipe", path)
		}
		if hasReader(path) {
			return nil, fmt.Errorf("%s: %w", path, ErrInUse)
		}
		logger.Printf("Removing stale trigger channel %s", path)
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove stale trigger channel: %w", err)
		}
	}

	if err := unix.Mkfifo(path, uint32(mode.Perm())); err != nil {
		return nil, fmt.Errorf("failed to create trigger channel %s: %w", path, err)
	}
	// Mkfifo is subject to the umask
	if err := os.Chmod(path, mode.Perm()); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to set trigger channel mode: %w", err)
	}

	return &Channel{path: path, logger: logger}, nil
}

// Path returns the filesystem path of the pipe.
func (c *Channel) Path() string {
	return c.path
}

// Serve reads identifiers until ctx is cancelled and calls handle for each
// non-empty line. Lines are handled one at a time, in arrival order.
//
// When the last writer hangs up, an unterminated final line is handled as
// one identifier and the pipe is reopened for the next writer. Lines longer
// than MaxLineLength are logged and dropped.
func (c *Channel) Serve(ctx context.Context, handle Handler) error {
	fd, err := c.openReader()
	if err != nil {
		return err
	}
	defer func() { unix.Close(fd) }()

	wakeR, wakeW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create wakeup pipe: %w", err)
	}
	defer wakeR.Close()
	defer wakeW.Close()

	// Writing to the wakeup pipe interrupts the pending poll.
	stop := context.AfterFunc(ctx, func() { wakeW.Write([]byte{0}) })
	defer stop()

	lines := newLineBuffer(MaxLineLength,
		func(line string) {
			id := strings.TrimRight(line, " \t\r")
			if id == "" {
				return
			}
			handle(ctx, id)
		},
		func() {
			c.logger.Printf("Warning: dropped trigger line longer than %d bytes", MaxLineLength)
		})

	c.logger.Printf("Listening on %s", c.path)

	buf := make([]byte, 4096)
	fds := []unix.PollFd{
		{Events: unix.POLLIN},
		{Fd: int32(wakeR.Fd()), Events: unix.POLLIN},
	}
	for {
		if ctx.Err() != nil {
			return nil
		}

		fds[0].Fd = int32(fd)
		fds[0].Revents, fds[1].Revents = 0, 0
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("failed to wait on trigger channel: %w", err)
		}
		if fds[1].Revents != 0 {
			return nil
		}
		if fds[0].Revents == 0 {
			continue
		}

		eof, err := drain(fd, buf, lines)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read trigger channel: %w", err)
		}
		if !eof {
			continue
		}

		lines.flush()
		// Open the next reader before closing this one so the pipe is
		// never without a reader.
		next, err := c.openReader()
		if err != nil {
			return err
		}
		unix.Close(fd)
		fd = next
	}
}

// openReader opens the pipe for reading without waiting for a writer.
func (c *Channel) openReader() (int, error) {
	fd, err := unix.Open(c.path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("failed to open trigger channel: %w", err)
	}
	return fd, nil
}

// drain reads everything currently buffered in the pipe into lines. It
// reports eof once no writer holds the pipe and nothing is left to read.
func drain(fd int, buf []byte, lines *lineBuffer) (eof bool, err error) {
	for {
		n, err := unix.Read(fd, buf)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return false, nil
		case err != nil:
			return false, err
		case n == 0:
			return true, nil
		}
		lines.write(buf[:n])
	}
}

// Close removes the named pipe. It is safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove trigger channel: %w", err)
	}
	return nil
}

// hasReader reports whether some process has the pipe open for reading.
func hasReader(path string) bool {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return false
	}
	unix.Close(fd)
	return true
}
