package console

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// CharReader is the single-character read primitive the line editor is
// built on. *Terminal satisfies it on every platform.
type CharReader interface {
	Getch(ctx context.Context, in Input) (byte, error)
}

const (
	keyBackspace = 0x08
	keyEscape    = 0x1b
	keyDelete    = 0x7f
)

// LineInput reads one line from in, echoing each character to out as it
// is typed. See ReadLine for the editing behavior.
func (t *Terminal) LineInput(ctx context.Context, prompt string, in Input, out Output) (string, error) {
	return ReadLine(ctx, t, prompt, in, out)
}

// ReadLine writes prompt to out, then assembles a line one character at a
// time from cr. Backspace and delete remove the last character and redraw
// the line in place; escape bytes are discarded; a carriage return or
// newline terminates the line and is not included in the result.
//
// No newline is echoed at the end. The caller can overwrite the entered
// line by starting its next write with a carriage return, which the
// interactive assembler mode relies on.
//
// Bytes after a leading escape are not interpreted, so multi-byte escape
// sequences (arrow keys) leak their tail into the line.
func ReadLine(ctx context.Context, cr CharReader, prompt string, in Input, out Output) (string, error) {
	io.WriteString(out, prompt)
	flush(out)
	var line []byte
	for {
		c, err := cr.Getch(ctx, in)
		if err != nil {
			return string(line), err
		}
		switch {
		case c == '\n' || c == '\r':
			return string(line), nil
		case c == keyDelete || c == keyBackspace:
			if len(line) > 0 {
				line = line[:len(line)-1]
				blank := strings.Repeat(" ", len(prompt)+len(line)+5)
				fmt.Fprintf(out, "\r%s\r%s%s", blank, prompt, line)
			}
		case c == keyEscape:
			// Swallowed; see note above about escape sequences.
		default:
			line = append(line, c)
			out.Write([]byte{c})
			flush(out)
		}
	}
}
