//go:build windows

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/windows"
)

// State is a snapshot of a terminal's attributes. The Windows console
// variant reads key events directly, which bypasses the console's line
// discipline, so there are no attributes to save or restore and State
// carries nothing.
type State struct{}

// Terminal controls raw-mode input on the Windows console. Key events are
// read unbuffered and unechoed by construction, so the mode operations
// only classify the handle; reads from a redirected (non-console) handle
// fall back to plain blocking semantics.
type Terminal struct {
	logger *slog.Logger
}

// New returns a Terminal. logger may be nil; when set, mode-change
// failures are recorded at debug level.
func New(logger *slog.Logger) *Terminal {
	return &Terminal{logger: logger}
}

var (
	kernel32                          = windows.NewLazySystemDLL("kernel32.dll")
	procReadConsoleInputW             = kernel32.NewProc("ReadConsoleInputW")
	procPeekConsoleInputW             = kernel32.NewProc("PeekConsoleInputW")
	procGetNumberOfConsoleInputEvents = kernel32.NewProc("GetNumberOfConsoleInputEvents")
	procPeekNamedPipe                 = kernel32.NewProc("PeekNamedPipe")
)

const keyEvent = 0x0001

// inputRecord mirrors the layout of INPUT_RECORD. The event union is
// held as uint32 words to keep the 4-byte alignment the key cast needs.
type inputRecord struct {
	eventType uint16
	_         uint16
	event     [4]uint32
}

// keyEventRecord mirrors the layout of KEY_EVENT_RECORD.
type keyEventRecord struct {
	keyDown         int32
	repeatCount     uint16
	virtualKeyCode  uint16
	virtualScanCode uint16
	unicodeChar     uint16
	controlKeyState uint32
}

func (r *inputRecord) key() *keyEventRecord {
	return (*keyEventRecord)(unsafe.Pointer(&r.event[0]))
}

// SaveMode is a no-op on Windows beyond classifying the handle: key-event
// reads do not disturb the console configuration, so there is nothing to
// snapshot. The returned State is nil for a non-console handle and the
// error is informational.
func (t *Terminal) SaveMode(in Input) (*State, error) {
	if err := t.checkConsole(in, "save mode"); err != nil {
		return nil, err
	}
	return &State{}, nil
}

// NoncanonicalMode is a no-op on Windows: the key-event read primitive is
// already unbuffered and unechoed.
func (t *Terminal) NoncanonicalMode(in Input) error {
	return t.checkConsole(in, "noncanonical mode")
}

// RestoreMode is a no-op on Windows; a nil state is accepted for symmetry
// with the POSIX variant.
func (t *Terminal) RestoreMode(in Input, st *State) error {
	if st == nil {
		return nil
	}
	return t.checkConsole(in, "restore mode")
}

// Getch reads exactly one character, blocking until a key is pressed. On
// a console handle it consumes input records until a key-down event with
// a character arrives, waiting in 0.1 s slices so context cancellation is
// honored. On a redirected handle it falls back to a plain blocking byte
// read; io.EOF is returned at end of input.
func (t *Terminal) Getch(ctx context.Context, in Input) (byte, error) {
	h := windows.Handle(in.Fd())
	if !isConsole(h) {
		return readByte(ctx, in)
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		ev, err := windows.WaitForSingleObject(h, 100)
		if err != nil {
			return 0, fmt.Errorf("wait for console input: %w", err)
		}
		if ev != windows.WAIT_OBJECT_0 {
			continue
		}
		var rec inputRecord
		var n uint32
		r1, _, err := procReadConsoleInputW.Call(
			uintptr(h),
			uintptr(unsafe.Pointer(&rec)),
			1,
			uintptr(unsafe.Pointer(&n)),
		)
		if r1 == 0 {
			return 0, fmt.Errorf("read console input: %w", err)
		}
		if n == 0 || rec.eventType != keyEvent {
			continue
		}
		k := rec.key()
		if k.keyDown == 0 || k.unicodeChar == 0 {
			continue
		}
		return byte(k.unicodeChar), nil
	}
}

// GetchNoblock reads one character without blocking. It peeks the console
// input queue for a pending key-down character event and delegates to
// Getch only when one is known to be ready; otherwise it reports no byte.
// A redirected pipe is peeked the same way before reading. A raw '\n' is
// normalized to '\r'.
func (t *Terminal) GetchNoblock(ctx context.Context, in Input) (byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	h := windows.Handle(in.Fd())
	if !isConsole(h) {
		if !bytePending(h) {
			return 0, false, nil
		}
		c, err := readByte(ctx, in)
		if err != nil {
			return 0, false, err
		}
		if c == '\n' {
			c = '\r'
		}
		return c, true, nil
	}
	if !keyPending(h) {
		return 0, false, nil
	}
	c, err := t.Getch(ctx, in)
	if err != nil {
		return 0, false, err
	}
	if c == '\n' {
		c = '\r'
	}
	return c, true, nil
}

// keyPending reports whether a key-down character event is queued, the
// equivalent of the C runtime's kbhit.
func keyPending(h windows.Handle) bool {
	var count uint32
	r1, _, _ := procGetNumberOfConsoleInputEvents.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(&count)),
	)
	if r1 == 0 || count == 0 {
		return false
	}
	recs := make([]inputRecord, count)
	var n uint32
	r1, _, _ = procPeekConsoleInputW.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(&recs[0])),
		uintptr(count),
		uintptr(unsafe.Pointer(&n)),
	)
	if r1 == 0 {
		return false
	}
	for i := uint32(0); i < n; i++ {
		if recs[i].eventType != keyEvent {
			continue
		}
		if k := recs[i].key(); k.keyDown != 0 && k.unicodeChar != 0 {
			return true
		}
	}
	return false
}

// bytePending reports whether a redirected pipe handle has buffered data.
// Non-pipe handles (disk files, character devices) report true; their
// reads return without waiting for input. On a peek failure (e.g. the
// writer closed the pipe) it also reports true so the follow-up read can
// surface io.EOF.
func bytePending(h windows.Handle) bool {
	ft, err := windows.GetFileType(h)
	if err != nil || ft != windows.FILE_TYPE_PIPE {
		return true
	}
	var avail uint32
	r1, _, _ := procPeekNamedPipe.Call(
		uintptr(h),
		0,
		0,
		0,
		uintptr(unsafe.Pointer(&avail)),
		0,
	)
	return r1 == 0 || avail > 0
}

// readByte is the redirected-input fallback: one blocking byte read with
// transient failures retried.
func readByte(ctx context.Context, in Input) (byte, error) {
	var buf [1]byte
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := in.Read(buf[:])
		if n > 0 {
			return buf[0], nil
		}
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		if err != nil && !errors.Is(err, windows.EINTR) {
			return 0, fmt.Errorf("read input: %w", err)
		}
	}
}

func isConsole(h windows.Handle) bool {
	var mode uint32
	return windows.GetConsoleMode(h, &mode) == nil
}

func (t *Terminal) checkConsole(in Input, op string) error {
	h := windows.Handle(in.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		if t.logger != nil {
			t.logger.Debug(op, slog.Uint64("handle", uint64(h)), slog.String("error", err.Error()))
		}
		return fmt.Errorf("%s: %w", op, ErrNotTerminal)
	}
	return nil
}
