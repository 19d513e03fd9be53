package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-errors/errors"
	"github.com/mitchellh/cli"
	"github.com/vitalvas/stickergen/hmacsig"
	"golang.org/x/term"
)

// Meta is shared by every command.
type Meta struct {
	UI    cli.Ui
	Debug bool

	// readSecret prompts for a secret when one is missing.
	readSecret func(prompt string) (string, error)
}

// fail reports err and returns the exit code. With -debug the error is
// printed with the stack of the caller.
func (m *Meta) fail(err error) int {
	e := errors.Wrap(err, 1)

	if m.Debug {
		m.UI.Error(e.ErrorStack())
	} else {
		m.UI.Error("error: " + e.Error())
	}

	return 1
}

// flagSet returns a flag set that reports parse errors through the UI.
func (m *Meta) flagSet(name, help string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { m.UI.Output(strings.TrimSpace(help)) }

	return fs
}

// parse parses args, printing usage on failure.
func (m *Meta) parse(fs *flag.FlagSet, args []string) bool {
	if err := fs.Parse(args); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			m.UI.Error(err.Error())
		}

		fs.Usage()

		return false
	}

	return true
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// terminalSecret reads a secret from the controlling terminal without echo.
func terminalSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", hmacsig.ErrMissingCredentials
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", err
	}

	return hmacsig.CleanCredential(string(b)), nil
}
