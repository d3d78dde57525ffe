//go:build !windows

package console

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var _ CharReader = (*Terminal)(nil)

// openPTY returns a pty pair, skipping the test on hosts without pty
// support (some containerized builders).
func openPTY(t *testing.T) (ptmx, tty *os.File) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() {
		ptmx.Close()
		tty.Close()
	})
	return ptmx, tty
}

func getTermios(t *testing.T, f *os.File) *unix.Termios {
	t.Helper()
	attr, err := unix.IoctlGetTermios(int(f.Fd()), ioctlReadTermios)
	require.NoError(t, err)
	return attr
}

func TestSaveModeNonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	st, err := New(nil).SaveMode(r)
	assert.Nil(t, st)
	assert.ErrorIs(t, err, ErrNotTerminal)
}

func TestNoncanonicalModeNonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.ErrorIs(t, New(nil).NoncanonicalMode(r), ErrNotTerminal)
}

func TestRestoreModeNilStateIsNoop(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.NoError(t, New(nil).RestoreMode(r, nil))
}

func TestNoncanonicalModeOnPTY(t *testing.T) {
	_, tty := openPTY(t)
	term := New(nil)

	require.NoError(t, term.NoncanonicalMode(tty))

	attr := getTermios(t, tty)
	assert.Zero(t, attr.Lflag&unix.ICANON, "ICANON should be cleared")
	assert.Zero(t, attr.Lflag&unix.ECHO, "ECHO should be cleared")
	assert.EqualValues(t, 0, attr.Cc[unix.VMIN])
	assert.EqualValues(t, 1, attr.Cc[unix.VTIME])
}

func TestSaveAndRestoreModeOnPTY(t *testing.T) {
	_, tty := openPTY(t)
	term := New(nil)

	st, err := term.SaveMode(tty)
	require.NoError(t, err)
	require.NotNil(t, st)
	saved := getTermios(t, tty)

	require.NoError(t, term.NoncanonicalMode(tty))
	require.NoError(t, term.RestoreMode(tty, st))
	restored := getTermios(t, tty)
	assert.Equal(t, saved.Lflag, restored.Lflag)
	assert.Equal(t, saved.Cc, restored.Cc)

	// Restoring the same snapshot again changes nothing.
	require.NoError(t, term.RestoreMode(tty, st))
	again := getTermios(t, tty)
	assert.Equal(t, restored.Lflag, again.Lflag)
	assert.Equal(t, restored.Cc, again.Cc)
}

func TestGetchOnPTY(t *testing.T) {
	ptmx, tty := openPTY(t)
	term := New(nil)

	_, err := ptmx.WriteString("x")
	require.NoError(t, err)

	c, err := term.Getch(context.Background(), tty)
	require.NoError(t, err)
	assert.Equal(t, byte('x'), c)
}

func TestGetchWaitsForLateKeystroke(t *testing.T) {
	ptmx, tty := openPTY(t)
	term := New(nil)

	// The byte arrives well after several idle VTIME slices; Getch must
	// keep polling rather than give up on a quiet terminal.
	go func() {
		time.Sleep(300 * time.Millisecond)
		ptmx.WriteString("g")
	}()

	start := time.Now()
	c, err := term.Getch(context.Background(), tty)
	require.NoError(t, err)
	assert.Equal(t, byte('g'), c)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestGetchCancelOnQuietPTY(t *testing.T) {
	_, tty := openPTY(t)
	term := New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	_, err := term.Getch(ctx, tty)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetchNoblockOnPTY(t *testing.T) {
	ptmx, tty := openPTY(t)
	term := New(nil)

	// Nothing pending: returns promptly with no byte.
	start := time.Now()
	_, ok, err := term.GetchNoblock(context.Background(), tty)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)

	// A raw newline is normalized to carriage return.
	_, err = ptmx.WriteString("\n")
	require.NoError(t, err)
	c, ok, err := term.GetchNoblock(context.Background(), tty)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byte('\r'), c)
}

func TestGetchFallsBackOnRedirectedInput(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	_, err = w.WriteString("ab")
	require.NoError(t, err)
	w.Close()

	term := New(nil)
	ctx := context.Background()

	c, err := term.Getch(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, byte('a'), c)

	c, err = term.Getch(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, byte('b'), c)

	_, err = term.Getch(ctx, r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestGetchNoblockNormalizesNewlineOnPipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	_, err = w.WriteString("\n")
	require.NoError(t, err)
	w.Close()

	c, ok, err := New(nil).GetchNoblock(context.Background(), r)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byte('\r'), c)
}

func TestGetchCanceledContext(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(nil).Getch(ctx, r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLineInputOnPTY(t *testing.T) {
	ptmx, tty := openPTY(t)
	term := New(nil)

	_, err := ptmx.WriteString("reg a\r")
	require.NoError(t, err)

	line, err := term.LineInput(context.Background(), ". ", tty, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "reg a", line)
}
