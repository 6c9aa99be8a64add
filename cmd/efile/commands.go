package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/efile/internal/admin"
	"github.com/JonMunkholm/efile/internal/application"
	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/JonMunkholm/efile/internal/store"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pmezard/go-difflib/difflib"
)

type parseOutput struct {
	core.DocumentSummary
	AnomalyList []efile.Anomaly `json:"anomaly_list"`
}

func runParse(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	if err := e.parseFlags(fs, args, 1); err != nil {
		return err
	}
	if err := e.setup(nil); err != nil {
		return err
	}

	doc, err := e.load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(parseOutput{DocumentSummary: doc.Summary(), AnomalyList: doc.Anomalies})
	}
	_, err = io.WriteString(e.stdout, summaryText(doc))
	return err
}

// summaryText renders the tables of doc as a bordered table followed by
// the anomalies.
func summaryText(doc *core.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d table(s), %d anomaly(ies)\n", doc.FileName, doc.Result.Len(), len(doc.Anomalies))

	if doc.Result.Len() > 0 {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("TABLE", "ROWS", "COLUMNS")
		for _, ts := range doc.Summary().Tables {
			cols := make([]string, len(ts.Columns))
			for i, c := range ts.Columns {
				cols[i] = c.Name + ":" + c.Type.String()
			}
			t.Row(ts.Name, fmt.Sprint(ts.Rows), strings.Join(cols, " "))
		}
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	for _, a := range doc.Anomalies {
		b.WriteString(a.String())
		b.WriteString("\n")
	}
	return b.String()
}

func runExport(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	tableName := fs.String("table", "", "export only this `table`")
	formatName := fs.String("format", "", "output `format`: efile, csv, json or yaml (default csv with -table, efile otherwise)")
	out := fs.String("o", "", "write to `file` instead of stdout")
	if err := e.parseFlags(fs, args, 1); err != nil {
		return err
	}

	format := core.FormatEfile
	if *tableName != "" {
		format = core.FormatCSV
	}
	if *formatName != "" {
		f, err := core.ParseFormat(*formatName)
		if err != nil {
			return usageError(err.Error())
		}
		format = f
	}

	if err := e.setup(nil); err != nil {
		return err
	}
	doc, err := e.load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := core.Export(&buf, doc, *tableName, format, e.spec); err != nil {
		return err
	}
	return writeOutput(e.stdout, *out, buf.Bytes())
}

func runFmt(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	write := fs.Bool("w", false, "rewrite the file in place")
	if err := e.parseFlags(fs, args, 1); err != nil {
		return err
	}
	if err := e.setup(nil); err != nil {
		return err
	}

	path := fs.Arg(0)
	doc, err := e.load(ctx, path)
	if err != nil {
		return err
	}
	data, err := efile.Marshal(e.spec, doc.Result)
	if err != nil {
		return err
	}
	if !*write {
		_, err = e.stdout.Write(data)
		return err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if bytes.Equal(src, data) {
		return nil
	}
	if err := checkLossless(src, data, doc.Anomalies); err != nil {
		return fmt.Errorf("%s not rewritten: %w", path, err)
	}
	return writeOutput(e.stdout, path, data)
}

// checkLossless returns an error when replacing src with its canonical form
// out would drop more than blank lines and spacing. Without anomalies each
// non-blank line of out comes from one line of src, so any surplus in src is
// comments or text outside sections.
func checkLossless(src, out []byte, anomalies []efile.Anomaly) error {
	if len(anomalies) > 0 {
		return fmt.Errorf("%d anomaly(ies), first at %s", len(anomalies), anomalies[0])
	}
	srcLines, err := efile.ReadLines(bytes.NewReader(src))
	if err != nil {
		return err
	}
	outLines, err := efile.ReadLines(bytes.NewReader(out))
	if err != nil {
		return err
	}
	if dropped := nonBlank(srcLines) - nonBlank(outLines); dropped > 0 {
		return fmt.Errorf("%d comment or stray line(s) would be dropped", dropped)
	}
	return nil
}

func nonBlank(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

func runDiff(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	if err := e.parseFlags(fs, args, 2); err != nil {
		return err
	}
	if err := e.setup(nil); err != nil {
		return err
	}

	a, err := canonical(ctx, e, fs.Arg(0))
	if err != nil {
		return err
	}
	b, err := canonical(ctx, e, fs.Arg(1))
	if err != nil {
		return err
	}

	diff, err := unifiedDiff(fs.Arg(0), a, fs.Arg(1), b)
	if err != nil {
		return err
	}
	if diff == "" {
		return nil
	}
	if _, err := io.WriteString(e.stdout, diff); err != nil {
		return err
	}
	return errDiffer
}

// canonical parses path and re-encodes it, so that formatting differences
// such as spacing, comments and ignored lines disappear.
func canonical(ctx context.Context, e *env, path string) ([]byte, error) {
	doc, err := e.load(ctx, path)
	if err != nil {
		return nil, err
	}
	return efile.Marshal(e.spec, doc.Result)
}

// unifiedDiff returns the unified diff of a and b, or "" when they are equal.
func unifiedDiff(aName string, a []byte, bName string, b []byte) (string, error) {
	if bytes.Equal(a, b) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        diffLines(a),
		B:        diffLines(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  3,
	})
}

// diffLines splits data into newline-terminated lines without the empty
// line difflib.SplitLines appends after a final newline.
func diffLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	return difflib.SplitLines(strings.TrimSuffix(string(data), "\n"))
}

func runBrowse(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	outDir := fs.String("o", ".", "`directory` exports are written to")
	if err := e.parseFlags(fs, args, 1); err != nil {
		return err
	}
	if err := e.setup(nil); err != nil {
		return err
	}

	doc, err := e.load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return application.Run(doc, application.Options{Spec: e.spec, OutDir: *outDir})
}

func runSave(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	dbURL := dbFlag(fs)
	if err := e.parseFlags(fs, args, 1); err != nil {
		return err
	}

	backend, err := openStore(ctx, *dbURL)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := e.setup(backend); err != nil {
		return err
	}
	doc, err := e.load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := e.service.Save(ctx, doc.ID); err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "%s\t%s\t%d table(s)\n", doc.ID, doc.FileName, doc.Result.Len())
	return nil
}

func runPrune(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	dbURL := dbFlag(fs)
	olderThan := fs.Duration("older-than", 30*24*time.Hour, "delete documents parsed more than `age` ago")
	dryRun := fs.Bool("n", false, "list what would be deleted without deleting")
	if err := e.parseFlags(fs, args, 0); err != nil {
		return err
	}
	e.setupLogger()

	backend, err := openStore(ctx, *dbURL)
	if err != nil {
		return err
	}
	defer backend.Close()

	p := &admin.Pruner{Store: backend, Logger: e.logger}
	pruned, err := p.Prune(ctx, *olderThan, *dryRun)
	for _, d := range pruned {
		fmt.Fprintf(e.stdout, "%s\t%s\t%s\n", d.ID, d.FileName, d.ParsedAt.Format(time.RFC3339))
	}
	return err
}

func dbFlag(fs *flag.FlagSet) *string {
	return fs.String("db", os.Getenv("DATABASE_URL"), "database `url`: postgres://... or sqlite://path (default $DATABASE_URL)")
}

// openStore connects to dbURL and creates the schema if needed.
func openStore(ctx context.Context, dbURL string) (store.Backend, error) {
	if dbURL == "" {
		return nil, usageError("no database: set -db or DATABASE_URL")
	}
	backend, err := store.Open(ctx, dbURL, store.PoolConfig{MaxConns: 2})
	if err != nil {
		return nil, err
	}
	if err := backend.Migrate(ctx); err != nil {
		backend.Close()
		return nil, err
	}
	return backend, nil
}

// writeOutput writes data to path, or to stdout when path is empty. Files
// are replaced through a temporary file in the same directory and keep their
// permissions.
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}

	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
