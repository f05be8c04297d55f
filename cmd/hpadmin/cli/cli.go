// Package cli implements the hpadmin operator subcommands. Every command
// returns a process exit code: 0 on success, 1 on failure and 10 when the
// input has problems the operator must fix.
package cli

import (
	"encoding/json"
	"io"
	"os"
)

// Exit codes shared by the commands.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitProblems = 10
)

// IO bundles the streams a command writes to. Nil fields default to the
// process streams.
type IO struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

func (s IO) withDefaults() IO {
	if s.Stdout == nil {
		s.Stdout = os.Stdout
	}
	if s.Stderr == nil {
		s.Stderr = os.Stderr
	}
	if s.Stdin == nil {
		s.Stdin = os.Stdin
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
