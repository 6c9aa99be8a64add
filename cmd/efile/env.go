package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/JonMunkholm/efile/internal/logging"
)

// cliMaxFileSize lifts the server's upload limit for local files.
const cliMaxFileSize = 1 << 30

// env carries the flags every command shares and the objects built from
// them.
type env struct {
	name   string
	stdout io.Writer
	stderr io.Writer

	configPath string
	strict     bool
	verbose    bool

	logger  *slog.Logger
	spec    efile.FormatSpec
	service *core.Service
}

// flags returns a FlagSet with the common flags registered.
func (e *env) flags() *flag.FlagSet {
	fs := flag.NewFlagSet("efile "+e.name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVar(&e.configPath, "config", "Eformat.properties", "format `file` with the line starters and breakers")
	fs.BoolVar(&e.strict, "strict", false, "fail on rows whose width differs from the header")
	fs.BoolVar(&e.verbose, "v", false, "log anomalies and progress to stderr")
	return fs
}

// parseFlags parses args and checks the number of positional arguments.
func (e *env) parseFlags(fs *flag.FlagSet, args []string, want int) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError(err.Error())
	}
	if fs.NArg() != want {
		return usageError(fmt.Sprintf("want %d file argument(s), got %d", want, fs.NArg()))
	}
	return nil
}

// setupLogger installs a stderr logger; -v lowers the level to debug.
func (e *env) setupLogger() {
	level := "warn"
	if e.verbose {
		level = "debug"
	}
	e.logger = logging.New(e.stderr, level, "text")
	slog.SetDefault(e.logger)
}

// setup loads the format file and builds the service used to parse.
func (e *env) setup(store core.Store) error {
	e.setupLogger()

	spec, err := efile.LoadFormatSpec(e.configPath)
	if err != nil {
		return err
	}
	e.spec = spec

	e.service = core.NewService(spec, store, core.Options{
		MaxFileSize:    cliMaxFileSize,
		MaxConcurrent:  1,
		MaxCached:      2,
		StrictRowWidth: e.strict,
		Logger:         e.logger,
	})
	return nil
}

// load parses the document at path.
func (e *env) load(ctx context.Context, path string) (*core.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &efile.FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	doc, err := e.service.Parse(ctx, filepath.Base(path), f, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
