package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// shell is the interactive mode of ratbagctl.
type shell struct {
	s   *session
	in  io.Reader
	out io.Writer
}

func newShell(s *session, in io.Reader, out io.Writer) *shell {
	return &shell{s: s, in: in, out: out}
}

var shellCompleter = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("list"),
	readline.PcItem("show"),
	readline.PcItem("get"),
	readline.PcItem("set"),
	readline.PcItem("call"),
	readline.PcItem("commit"),
	readline.PcItem("load"),
	readline.PcItem("reset"),
	readline.PcItem("reset-test"),
	readline.PcItem("quit"),
)

// run reads commands until EOF, quit or ctx is done.
func (sh *shell) run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ratbag> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    shellCompleter,
		Stdin:           io.NopCloser(sh.in),
		Stdout:          sh.out,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	// Session output goes through readline so it does not garble the prompt.
	sh.s.out = rl.Stdout()
	sh.out = rl.Stdout()
	sh.printHelp()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return nil
		}
		if sh.execute(ctx, line) {
			return nil
		}
	}
}

// execute runs one command line and reports whether the shell should exit.
func (sh *shell) execute(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		sh.printHelp()

	case "list", "ls":
		err = sh.s.list(ctx)

	case "show", "tree":
		err = sh.s.show(ctx, optionalArg(args))

	case "get", "g":
		if len(args) != 1 {
			fmt.Fprintln(sh.out, "Usage: get <path>")
			return false
		}
		err = sh.s.get(ctx, args[0])

	case "set", "s":
		if len(args) < 2 {
			fmt.Fprintln(sh.out, "Usage: set <path> <value>")
			return false
		}
		err = sh.s.set(ctx, args[0], strings.Join(args[1:], " "))

	case "call":
		if len(args) < 1 || len(args) > 2 {
			fmt.Fprintln(sh.out, "Usage: call <path> [arg]")
			return false
		}
		err = sh.s.call(ctx, args[0], optionalArg(args[1:]))

	case "commit", "c":
		if len(args) != 1 {
			fmt.Fprintln(sh.out, "Usage: commit <device>")
			return false
		}
		err = sh.s.commit(ctx, args[0])

	case "load":
		if len(args) == 1 && args[0] == "-" {
			fmt.Fprintln(sh.out, "Reading a description from stdin is not supported in the shell")
			return false
		}
		err = sh.s.loadTestDevice(ctx, optionalArg(args))

	case "reset":
		err = sh.s.reset(ctx)

	case "reset-test":
		err = sh.s.resetTestDevice(ctx)

	case "quit", "exit", "q":
		fmt.Fprintln(sh.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(sh.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", describe(err))
	}
	return false
}

func (sh *shell) printHelp() {
	fmt.Fprint(sh.out, `
ratbag Commands:
  Inspection:
    list               - List devices
    show [path]        - Show an object tree (default: everything)
    get <path>         - Read a property, or every property of an object

  Configuration:
    set <path> <value> - Write a property (pending until commit)
    call <path> [arg]  - Invoke a method
    commit <device>    - Apply a device's pending changes

  Test devices:
    load [file]        - Load a test device (default device without a file)
    reset-test         - Restore test devices to their loaded state
    reset              - Remove every test device

  General:
    help               - Show this help
    quit               - Exit the shell

Paths: testdevice0, testdevice0/p0/r1/dpi, testdevice0/p0/b2/Mapping, manager/Devices

`)
}
