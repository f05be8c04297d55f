package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hirepurchase/hpadmin/internal/importer"
	"github.com/hirepurchase/hpadmin/internal/sheets"
)

// ImportMode enumerates supported execution strategies.
type ImportMode string

const (
	// ImportModeDry validates and previews the batch without submitting it.
	ImportModeDry ImportMode = "dry"
	// ImportModeApply submits the batch after confirmation.
	ImportModeApply ImportMode = "apply"
)

// BatchExecutor runs a validated batch.
type BatchExecutor interface {
	Execute(ctx context.Context, batch importer.Batch, progress importer.ProgressFunc) (importer.Result, error)
}

// ImportOptions configures the import command.
type ImportOptions struct {
	File       string
	Mode       ImportMode
	JSONOutput bool
	Executor   BatchExecutor
	Confirm    func(io.Reader, io.Writer) (bool, error)
	IO
}

// ImportSummary is the JSON output of import.
type ImportSummary struct {
	File   string           `json:"file"`
	Mode   ImportMode       `json:"mode"`
	Counts map[string]int   `json:"counts"`
	Errors []string         `json:"errors"`
	Result *importer.Result `json:"result,omitempty"`
}

// ImportCommand validates a workbook and, in apply mode, submits it.
func ImportCommand(ctx context.Context, opts ImportOptions) int {
	opts.IO = opts.IO.withDefaults()
	if opts.Mode == "" {
		opts.Mode = ImportModeDry
	}
	mode := ImportMode(strings.ToLower(string(opts.Mode)))
	switch mode {
	case ImportModeDry, ImportModeApply:
	default:
		fmt.Fprintf(opts.Stderr, "import: invalid mode %q (expected dry or apply)\n", opts.Mode)
		return ExitFailure
	}
	if opts.File == "" {
		fmt.Fprintln(opts.Stderr, "import: -file is required")
		return ExitFailure
	}
	batch, errs, code := loadBatch("import", opts.File, opts.Stderr)
	if code != ExitOK {
		return code
	}
	summary := ImportSummary{
		File:   filepath.Base(opts.File),
		Mode:   mode,
		Counts: batch.Counts(),
		Errors: errs,
	}
	if summary.Errors == nil {
		summary.Errors = []string{}
	}
	if len(errs) > 0 || mode == ImportModeDry {
		if err := writeImportOutput(opts, summary); err != nil {
			fmt.Fprintf(opts.Stderr, "import: %v\n", err)
			return ExitFailure
		}
		if len(errs) > 0 {
			return ExitProblems
		}
		return ExitOK
	}

	if opts.Executor == nil {
		fmt.Fprintln(opts.Stderr, "import: backend not configured")
		return ExitFailure
	}
	confirm := opts.Confirm
	if confirm == nil {
		confirm = defaultImportConfirm
	}
	ok, err := confirm(opts.Stdin, opts.Stdout)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "import: confirmation failed: %v\n", err)
		return ExitFailure
	}
	if !ok {
		fmt.Fprintln(opts.Stderr, "import: cancelled by user")
		return ExitFailure
	}

	res, runErr := opts.Executor.Execute(ctx, batch, func(msg string) {
		fmt.Fprintln(opts.Stderr, msg)
	})
	summary.Result = &res
	if err := writeImportOutput(opts, summary); err != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return ExitFailure
	}
	if runErr != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", runErr)
		return ExitFailure
	}
	if res.Failed() > 0 {
		return ExitProblems
	}
	return ExitOK
}

func writeImportOutput(opts ImportOptions, summary ImportSummary) error {
	if opts.JSONOutput {
		return writeJSON(opts.Stdout, summary)
	}
	renderImportHuman(opts.Stdout, summary)
	return nil
}

func renderImportHuman(out io.Writer, summary ImportSummary) {
	fmt.Fprintf(out, "Import (%s) of %s\n", summary.Mode, summary.File)
	renderCounts(out, summary.Counts)
	if len(summary.Errors) > 0 {
		fmt.Fprintf(out, "%d validation error(s), nothing submitted:\n", len(summary.Errors))
		for _, e := range summary.Errors {
			fmt.Fprintf(out, " - %s\n", e)
		}
		return
	}
	if summary.Result == nil {
		fmt.Fprintln(out, "Batch is valid. Run with -mode apply to submit it.")
		return
	}
	fmt.Fprintf(out, "Created %d row(s), %d rejected.\n", summary.Result.Created(), summary.Result.Failed())
	for _, name := range sheets.ImportOrder() {
		entity, ok := summary.Result.Entities[name]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "  %-13s %d created, %d rejected\n", name, entity.Success, len(entity.Errors))
		for _, e := range entity.Errors {
			fmt.Fprintf(out, "    - %s\n", e)
		}
	}
	for _, e := range summary.Result.Errors {
		fmt.Fprintf(out, "Batch error: %s\n", e)
	}
}

func defaultImportConfirm(r io.Reader, w io.Writer) (bool, error) {
	fmt.Fprint(w, "Submit this batch to the backend? Type YES to confirm: ")
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "YES"), nil
}
