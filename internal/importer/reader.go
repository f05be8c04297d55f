package importer

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/hirepurchase/hpadmin/internal/sheets"
)

// Record is one data row keyed by canonical column name.
type Record struct {
	Row    int               `json:"row"`
	Fields map[string]string `json:"fields"`
}

// Get returns the value for column, or "" when absent.
func (r Record) Get(column string) string {
	return r.Fields[column]
}

// Sheet is the parsed content of one worksheet.
type Sheet struct {
	Headers []string `json:"headers"`
	Records []Record `json:"records"`
}

// Batch maps every importable sheet name to its parsed content. Sheets absent
// from the workbook are present with no records.
type Batch map[string]Sheet

// Records returns the rows of the named sheet.
func (b Batch) Records(name string) []Record {
	return b[name].Records
}

// Counts returns the number of data rows per sheet.
func (b Batch) Counts() map[string]int {
	out := make(map[string]int, len(b))
	for name, s := range b {
		out[name] = len(s.Records)
	}
	return out
}

// Total returns the number of data rows across all sheets.
func (b Batch) Total() int {
	total := 0
	for _, s := range b {
		total += len(s.Records)
	}
	return total
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ReadFile opens path and reads it as an import workbook.
func ReadFile(path string) (Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileReadError{Name: filepath.Base(path), Err: err}
	}
	defer func() {
		_ = f.Close()
	}()
	batch, err := Read(f)
	var fre *FileReadError
	if errors.As(err, &fre) {
		fre.Name = filepath.Base(path)
	}
	return batch, err
}

// Read decodes an xlsx workbook into a Batch.
func Read(r io.Reader) (Batch, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &FileReadError{Err: err}
	}
	defer func() {
		_ = wb.Close()
	}()

	present := make(map[string]bool)
	for _, name := range wb.GetSheetList() {
		present[name] = true
	}

	batch := make(Batch, len(sheets.ImportOrder()))
	for _, def := range sheets.All() {
		if !present[def.Name] {
			batch[def.Name] = Sheet{}
			continue
		}
		rows, err := wb.GetRows(def.Name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &FileReadError{Err: err}
		}
		batch[def.Name] = parseSheet(def, rows, dateCells(wb, def.Name))
	}
	return batch, nil
}

// dateCellFunc reports whether the cell at 1-based row and column carries a
// date number format.
type dateCellFunc func(row, col int) bool

func parseSheet(def sheets.Sheet, rows [][]string, isDateCell dateCellFunc) Sheet {
	if len(rows) == 0 {
		return Sheet{}
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = sheets.CanonicalHeader(h)
	}
	out := Sheet{Headers: headers}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			if h == "" {
				continue
			}
			value := ""
			if j < len(row) {
				value = cleanValue(row[j])
			}
			if col, ok := def.Column(h); ok && col.Kind == sheets.KindDate && isDateCell != nil && isDateCell(i+1, j+1) {
				value = serialToDate(value)
			}
			fields[h] = value
		}
		out.Records = append(out.Records, Record{Row: i + 1, Fields: fields})
	}
	return out
}

func cleanValue(v string) string {
	return strings.TrimSpace(norm.NFC.String(v))
}

// dateCells resolves cell styles of one sheet, caching the verdict per style.
func dateCells(wb *excelize.File, sheet string) dateCellFunc {
	verdicts := make(map[int]bool)
	return func(row, col int) bool {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return false
		}
		styleID, err := wb.GetCellStyle(sheet, cell)
		if err != nil || styleID == 0 {
			return false
		}
		if v, ok := verdicts[styleID]; ok {
			return v
		}
		style, err := wb.GetStyle(styleID)
		v := err == nil && isDateFormat(style)
		verdicts[styleID] = v
		return v
	}
}

var numFmtLiterals = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)

// isDateFormat accepts the built-in date formats and custom codes with a
// year or day token. Time-only formats are not dates.
func isDateFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		code := strings.ToLower(numFmtLiterals.ReplaceAllString(*style.CustomNumFmt, ""))
		return strings.ContainsAny(code, "yd")
	}
	switch n := style.NumFmt; {
	case n >= 14 && n <= 17, n == 22, n >= 27 && n <= 36, n >= 50 && n <= 58:
		return true
	}
	return false
}

// serialToDate converts an Excel date serial from a date-formatted cell into
// YYYY-MM-DD. Anything else is returned unchanged for the validator to judge.
func serialToDate(v string) string {
	if v == "" || datePattern.MatchString(v) {
		return v
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial <= 0 {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return t.Format(sheets.DateLayout)
}
