// Package console provides character-at-a-time console input for
// interactive, line-oriented tools such as a machine monitor prompt.
//
// It has two layers: a platform-specific Terminal that switches the input
// handle between its original mode and a noncanonical (raw, no-echo) mode,
// and a minimal line editor built on the Terminal's single-character read.
// The POSIX variant drives termios directly; the Windows variant reads
// console key events, which are unbuffered and unechoed by construction.
//
// Every mode operation degrades to a no-op when the input handle is not a
// real terminal, so a program using this package keeps working with
// redirected or piped input (reads then follow the handle's ordinary
// blocking semantics).
package console

import (
	"errors"
	"io"
)

// ErrNotTerminal reports that an input handle is not attached to a
// terminal. Mode operations return it (wrapped) so callers can tell the
// expected redirected-input case apart from an unexpected OS failure;
// ignoring it preserves the silent-degradation contract.
var ErrNotTerminal = errors.New("console: input is not a terminal")

// Input is the capability the Terminal needs from an input stream: byte
// reads plus access to the underlying descriptor for attribute queries.
// *os.File satisfies it; os.Stdin is the usual value.
type Input interface {
	io.Reader
	Fd() uintptr
}

// Output is the capability the line editor needs from an output stream.
// *os.File satisfies it; os.Stdout is the usual value.
type Output interface {
	io.Writer
}

// flusher is implemented by buffered outputs (e.g. *bufio.Writer).
// LineInput flushes after each echoed keystroke when available.
type flusher interface {
	Flush() error
}

func flush(out Output) {
	if f, ok := out.(flusher); ok {
		_ = f.Flush()
	}
}
