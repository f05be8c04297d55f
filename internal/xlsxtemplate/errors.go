package xlsxtemplate

import (
	"fmt"
	"strings"
)

// MissingReferenceError lists snapshot records that cannot be written without
// inventing codes.
type MissingReferenceError struct {
	Problems []string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("xlsxtemplate: incomplete reference data: %s", strings.Join(e.Problems, "; "))
}

func (e *MissingReferenceError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}
