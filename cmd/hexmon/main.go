// Command hexmon is a small interactive monitor shell demonstrating the
// console package: it saves the terminal mode at session start, reads
// commands through the raw-mode line editor, and restores the original
// mode on exit or interrupt. With redirected stdin it degrades to plain
// line reads, which makes it usable from scripts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hexmon/console"
	"github.com/hexmon/console/internal/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:          "hexmon",
	Short:        "Interactive monitor shell",
	Long:         `hexmon is an interactive monitor prompt built on raw-mode console input. Type "help" at the prompt for the available commands.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.Init(logging.Options{Verbose: verbose})
		return run(cmd.Context(), console.New(logger))
	},
}

func run(ctx context.Context, t *console.Terminal) error {
	in, out := os.Stdin, os.Stdout

	if !term.IsTerminal(int(in.Fd())) {
		fmt.Fprintln(os.Stderr, "hexmon: stdin is not a terminal, line editing disabled")
	} else if w, _, _ := term.GetSize(int(out.Fd())); w > 0 {
		fmt.Fprintf(out, "hexmon (%d cols), \"quit\" to exit\n", w)
	}

	// Snapshot the terminal before the first raw-mode read so the shell
	// the user came from gets its settings back.
	st, err := t.SaveMode(in)
	if err != nil && !errors.Is(err, console.ErrNotTerminal) {
		return err
	}
	defer t.RestoreMode(in, st)

	for {
		line, err := t.LineInput(ctx, ". ", in, out)
		fmt.Fprintln(out)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if done := dispatch(out, line); done {
			return nil
		}
	}
}

// dispatch runs one monitor command and reports whether the session is over.
func dispatch(out io.Writer, line string) bool {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch cmd {
	case "":
	case "help", "h", "?":
		fmt.Fprint(out, "help           show this text\n"+
			"echo <text>    print <text>\n"+
			"quit           leave the monitor\n")
	case "echo":
		fmt.Fprintln(out, rest)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(out, "unknown command %q, try \"help\"\n", cmd)
	}
	return false
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
