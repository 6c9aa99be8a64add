// Command efile parses, converts, compares and browses efile documents.
//
//	efile parse [-json] FILE
//	efile export [-table NAME] [-format FORMAT] [-o OUT] FILE
//	efile fmt [-w] FILE
//	efile diff A B
//	efile browse [-o DIR] FILE
//	efile save [-db URL] FILE
//	efile prune [-db URL] [-older-than AGE] [-n]
//
// Every command accepts -config (format file), -strict and -v.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
)

// errDiffer makes diff exit with status 1 without printing an error.
var errDiffer = errors.New("documents differ")

type command struct {
	usage string
	run   func(ctx context.Context, env *env, args []string) error
}

var commands = map[string]command{
	"parse":  {"parse [-json] FILE", runParse},
	"export": {"export [-table NAME] [-format efile|csv|json|yaml] [-o OUT] FILE", runExport},
	"fmt":    {"fmt [-w] FILE", runFmt},
	"diff":   {"diff A B", runDiff},
	"browse": {"browse [-o DIR] FILE", runBrowse},
	"save":   {"save [-db URL] FILE", runSave},
	"prune":  {"prune [-db URL] [-older-than AGE] [-n]", runPrune},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		usage(stderr)
		return 2
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "efile: unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	e := &env{name: args[0], stdout: stdout, stderr: stderr}
	err := cmd.run(ctx, e, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDiffer):
		return 1
	case errors.Is(err, flag.ErrHelp):
		return 2
	}

	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "efile %s: %v\nusage: efile %s\n", e.name, err, cmd.usage)
		return 2
	}
	slog.Debug("command failed", "command", e.name, "error", err)
	fmt.Fprintf(stderr, "efile %s: %v\n", e.name, err)
	return 1
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: efile <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  efile %s\n", commands[name].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "common flags: -config FILE (default Eformat.properties), -strict, -v")
}

type usageError string

func (e usageError) Error() string { return string(e) }
