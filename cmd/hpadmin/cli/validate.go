package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/hirepurchase/hpadmin/internal/importer"
	"github.com/hirepurchase/hpadmin/internal/sheets"
)

// ValidateOptions configures the validate command.
type ValidateOptions struct {
	File       string
	JSONOutput bool
	IO
}

// ValidateSummary is the JSON output of validate.
type ValidateSummary struct {
	File   string         `json:"file"`
	OK     bool           `json:"ok"`
	Counts map[string]int `json:"counts"`
	Errors []string       `json:"errors"`
}

// ValidateCommand reads and validates a workbook without contacting the backend.
func ValidateCommand(opts ValidateOptions) int {
	opts.IO = opts.IO.withDefaults()
	if opts.File == "" {
		fmt.Fprintln(opts.Stderr, "validate: -file is required")
		return ExitFailure
	}
	batch, errs, code := loadBatch("validate", opts.File, opts.Stderr)
	if code != ExitOK {
		return code
	}
	summary := ValidateSummary{
		File:   filepath.Base(opts.File),
		OK:     len(errs) == 0,
		Counts: batch.Counts(),
		Errors: errs,
	}
	if summary.Errors == nil {
		summary.Errors = []string{}
	}
	if opts.JSONOutput {
		if err := writeJSON(opts.Stdout, summary); err != nil {
			fmt.Fprintf(opts.Stderr, "validate: %v\n", err)
			return ExitFailure
		}
	} else {
		renderValidateHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return ExitProblems
	}
	return ExitOK
}

func loadBatch(cmd, path string, stderr io.Writer) (importer.Batch, importer.ValidationErrors, int) {
	batch, err := importer.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return nil, nil, ExitFailure
	}
	return batch, importer.Validate(batch), ExitOK
}

func renderCounts(out io.Writer, counts map[string]int) {
	for _, name := range sheets.ImportOrder() {
		fmt.Fprintf(out, "  %-13s %d\n", name, counts[name])
	}
}

func renderValidateHuman(out io.Writer, summary ValidateSummary) {
	fmt.Fprintf(out, "Workbook %s\n", summary.File)
	renderCounts(out, summary.Counts)
	if summary.OK {
		fmt.Fprintln(out, "No validation errors.")
		return
	}
	fmt.Fprintf(out, "%d validation error(s):\n", len(summary.Errors))
	for _, e := range summary.Errors {
		fmt.Fprintf(out, " - %s\n", e)
	}
}
