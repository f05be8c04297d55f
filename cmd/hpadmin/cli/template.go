package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hirepurchase/hpadmin/internal/reference"
	"github.com/hirepurchase/hpadmin/internal/xlsxtemplate"
)

// SnapshotSource loads reference data for the template.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*reference.Snapshot, error)
}

// TemplateOptions configures the template command.
type TemplateOptions struct {
	Out string
	// Source is consulted when non-nil; otherwise a headers-only template is written.
	Source SnapshotSource
	Now    time.Time
	IO
}

// TemplateCommand writes the import template to opts.Out.
func TemplateCommand(ctx context.Context, opts TemplateOptions) int {
	opts.IO = opts.IO.withDefaults()
	if opts.Out == "" {
		opts.Out = xlsxtemplate.FileName
	}
	var snap *reference.Snapshot
	if opts.Source != nil {
		var err error
		snap, err = opts.Source.Snapshot(ctx)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "template: load reference data: %v\n", err)
			return ExitFailure
		}
	}
	f, err := os.Create(opts.Out)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "template: %v\n", err)
		return ExitFailure
	}
	werr := xlsxtemplate.Write(f, snap, xlsxtemplate.Options{Now: opts.Now})
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(opts.Out)
		var missing *xlsxtemplate.MissingReferenceError
		if errors.As(werr, &missing) {
			fmt.Fprintln(opts.Stderr, "template: reference data is incomplete:")
			for _, p := range missing.Problems {
				fmt.Fprintf(opts.Stderr, " - %s\n", p)
			}
			return ExitProblems
		}
		fmt.Fprintf(opts.Stderr, "template: %v\n", werr)
		return ExitFailure
	}
	fmt.Fprintf(opts.Stdout, "Template written to %s\n", opts.Out)
	return ExitOK
}
