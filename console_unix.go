//go:build !windows

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// State is a snapshot of a terminal's attributes, taken by SaveMode and
// re-applied by RestoreMode. It is owned by the caller; passing the same
// State to RestoreMode more than once is harmless.
type State struct {
	termios unix.Termios
}

// Terminal controls raw-mode input on POSIX systems via termios.
// Methods are safe to call with a non-terminal handle; mode changes then
// degrade to no-ops and reads fall back to the handle's own semantics.
type Terminal struct {
	logger *slog.Logger
}

// New returns a Terminal. logger may be nil; when set, mode-change
// failures are recorded at debug level.
func New(logger *slog.Logger) *Terminal {
	return &Terminal{logger: logger}
}

// SaveMode captures the handle's current terminal attributes so they can
// be restored after a noncanonical-mode session. The returned State is nil
// when the handle is not a terminal; the error is informational and safe
// to ignore.
func (t *Terminal) SaveMode(in Input) (*State, error) {
	fd := int(in.Fd())
	if !isatty.IsTerminal(in.Fd()) {
		return nil, fmt.Errorf("save mode on fd %d: %w", fd, ErrNotTerminal)
	}
	attr, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		t.debug("save mode", fd, err)
		return nil, fmt.Errorf("get termios on fd %d: %w", fd, err)
	}
	return &State{termios: *attr}, nil
}

// NoncanonicalMode switches the handle to immediate, unechoed character
// delivery: canonical line discipline and echo off, and reads configured
// to return as soon as one byte is available or after a 0.1 s timeout
// with no bytes (VMIN=0, VTIME=1). Idempotent; the new attributes are
// recomputed from the live state each call. Failure on a non-terminal
// handle is reported but has no effect.
func (t *Terminal) NoncanonicalMode(in Input) error {
	fd := int(in.Fd())
	if !isatty.IsTerminal(in.Fd()) {
		return fmt.Errorf("noncanonical mode on fd %d: %w", fd, ErrNotTerminal)
	}
	attr, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		t.debug("noncanonical mode", fd, err)
		return fmt.Errorf("get termios on fd %d: %w", fd, err)
	}
	attr.Lflag &^= unix.ICANON | unix.ECHO
	attr.Cc[unix.VMIN] = 0
	attr.Cc[unix.VTIME] = 1
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, attr); err != nil {
		t.debug("noncanonical mode", fd, err)
		return fmt.Errorf("set termios on fd %d: %w", fd, err)
	}
	return nil
}

// RestoreMode re-applies a snapshot taken by SaveMode. A nil state is a
// pure no-op, so restore-without-save and double-restore are both safe.
func (t *Terminal) RestoreMode(in Input, st *State) error {
	if st == nil {
		return nil
	}
	fd := int(in.Fd())
	attr := st.termios
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &attr); err != nil {
		t.debug("restore mode", fd, err)
		return fmt.Errorf("restore termios on fd %d: %w", fd, err)
	}
	return nil
}

// Getch reads exactly one byte, blocking until one is available. It
// ensures noncanonical mode first, so on a terminal the wait polls at the
// 0.1 s VTIME granularity rather than busy-spinning; on a non-terminal
// handle it is a plain blocking read. Context cancellation aborts the
// wait; io.EOF is returned at end of redirected input. Transient read
// errors are treated as "no byte yet" and retried.
func (t *Terminal) Getch(ctx context.Context, in Input) (byte, error) {
	// Mode failures are expected with redirected input.
	_ = t.NoncanonicalMode(in)

	fd := int(in.Fd())
	tty := isatty.IsTerminal(in.Fd())
	var buf [1]byte
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if tty {
			// os.File.Read reports a zero-byte read(2) as io.EOF, which
			// here is just the VTIME timeout, so the tty path reads the
			// raw descriptor.
			n, err := unix.Read(fd, buf[:])
			if n > 0 {
				return buf[0], nil
			}
			if err != nil && !isTransient(err) {
				return 0, fmt.Errorf("read fd %d: %w", fd, err)
			}
			// VTIME expired with no byte; poll again.
			continue
		}
		n, err := in.Read(buf[:])
		if n > 0 {
			return buf[0], nil
		}
		switch {
		case errors.Is(err, io.EOF):
			return 0, io.EOF
		case err == nil || isTransient(err):
		default:
			return 0, fmt.Errorf("read fd %d: %w", fd, err)
		}
	}
}

// GetchNoblock attempts to read one byte without blocking. The second
// return value is false when no byte is pending. A raw '\n' is normalized
// to '\r' so line terminators reach downstream consumers in one form.
func (t *Terminal) GetchNoblock(ctx context.Context, in Input) (byte, bool, error) {
	_ = t.NoncanonicalMode(in)

	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	var buf [1]byte
	if isatty.IsTerminal(in.Fd()) {
		// Raw descriptor read for the same reason as Getch: a zero-byte
		// read(2) is the VTIME timeout, not end of input.
		n, err := unix.Read(int(in.Fd()), buf[:])
		if n <= 0 || err != nil {
			// Timed out, interrupted, or a transient failure: no byte
			// pending either way.
			return 0, false, nil
		}
	} else {
		n, err := in.Read(buf[:])
		if n == 0 {
			if errors.Is(err, io.EOF) {
				return 0, false, io.EOF
			}
			// No byte pending, or a transient failure treated the same way.
			return 0, false, nil
		}
	}
	c := buf[0]
	if c == '\n' {
		c = '\r'
	}
	return c, true, nil
}

func (t *Terminal) debug(op string, fd int, err error) {
	if t.logger != nil {
		t.logger.Debug(op, slog.Int("fd", fd), slog.String("error", err.Error()))
	}
}

func isTransient(err error) bool {
	return errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN)
}
