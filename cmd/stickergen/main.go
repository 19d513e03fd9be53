// Command stickergen serves the sticker generation API and exposes its
// building blocks (signing, generation, processing, payment) on the command
// line.
package main

import (
	"io"
	"os"

	"github.com/mitchellh/cli"
)

const appName = "stickergen"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	args, debug := extractDebug(args)

	meta := &Meta{
		UI: &cli.BasicUi{
			Reader:      stdin,
			Writer:      stdout,
			ErrorWriter: stderr,
		},
		Debug:      debug,
		readSecret: terminalSecret,
	}

	c := cli.NewCLI(appName, version)
	c.Args = args
	c.Commands = commands(meta)

	code, err := c.Run()
	if err != nil {
		return meta.fail(err)
	}

	return code
}

func commands(meta *Meta) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"serve": func() (cli.Command, error) {
			return &ServeCommand{Meta: meta}, nil
		},
		"sign": func() (cli.Command, error) {
			return &SignCommand{Meta: meta}, nil
		},
		"generate": func() (cli.Command, error) {
			return &GenerateCommand{Meta: meta}, nil
		},
		"process": func() (cli.Command, error) {
			return &ProcessCommand{Meta: meta}, nil
		},
		"pay": func() (cli.Command, error) {
			return &PayCommand{Meta: meta}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{Meta: meta}, nil
		},
	}
}

// extractDebug removes a global -debug or --debug flag from args.
func extractDebug(args []string) ([]string, bool) {
	out := make([]string, 0, len(args))
	debug := false

	for _, a := range args {
		if a == "-debug" || a == "--debug" {
			debug = true
			continue
		}

		out = append(out, a)
	}

	return out, debug
}
