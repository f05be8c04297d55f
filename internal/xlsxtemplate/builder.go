// Package xlsxtemplate generates the bulk-import workbook handed to operators.
package xlsxtemplate

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/hirepurchase/hpadmin/internal/installment"
	"github.com/hirepurchase/hpadmin/internal/reference"
	"github.com/hirepurchase/hpadmin/internal/sheets"
)

// FileName is the conventional download name of the template.
const FileName = "import_template.xlsx"

// ContentType is the MIME type of xlsx workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InstructionsSheet is the first, human-only sheet.
const InstructionsSheet = "Instructions"

// MaxExampleRows caps the illustrative rows on the Installments sheet.
const MaxExampleRows = 3

// Example contract terms.
var (
	exampleDownRatio = decimal.RequireFromString("0.2")
	exampleRate      = decimal.RequireFromString("1.25")
)

const exampleMonths = 12

// Options tunes template generation.
type Options struct {
	// Now anchors example start dates. Zero means time.Now.
	Now time.Time
}

var instructions = []string{
	"Hire-purchase bulk import template",
	"",
	"1. Fill one row per record on each sheet. Do not rename sheets or header cells.",
	"2. Columns marked with * are required.",
	"3. Dates use the YYYY-MM-DD format, for example 2024-01-31.",
	"4. Amounts are plain numbers; thousands separators are allowed.",
	"5. Rows with an empty first column are ignored.",
	"6. Sheets are imported in this order: Branches, Checkers, Customers, Products, Installments, Payments, Collections.",
	"7. Customer id_card must be exactly 13 characters and unique in the file.",
	"8. Rows on the Installments sheet are examples. Replace or delete them before importing.",
}

// Build assembles the template. With a nil snapshot only headers are written.
// Reference rows that lack a code or point at an unknown branch or checker make
// Build fail with *MissingReferenceError.
func Build(snapshot *reference.Snapshot, opts Options) (*excelize.File, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	rows := map[string][][]any{}
	if snapshot != nil {
		var err error
		rows, err = referenceRows(snapshot, now)
		if err != nil {
			return nil, err
		}
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", InstructionsSheet); err != nil {
		return nil, err
	}
	for i, line := range instructions {
		if err := f.SetCellValue(InstructionsSheet, fmt.Sprintf("A%d", i+1), line); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(InstructionsSheet, "A", "A", 100); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, err
	}
	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: 49})
	if err != nil {
		return nil, err
	}

	for _, def := range sheets.All() {
		if err := writeSheet(f, def, rows[def.Name], headerStyle, textStyle); err != nil {
			return nil, fmt.Errorf("xlsxtemplate: sheet %s: %w", def.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the template and serialises it to w.
func Write(w io.Writer, snapshot *reference.Snapshot, opts Options) error {
	f, err := Build(snapshot, opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return f.Write(w)
}

func writeSheet(f *excelize.File, def sheets.Sheet, rows [][]any, headerStyle, textStyle int) error {
	if _, err := f.NewSheet(def.Name); err != nil {
		return err
	}
	headers := def.Headers()
	if err := f.SetSheetRow(def.Name, "A1", &headers); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(def.Name, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(def.Name, "A", lastCol, 18); err != nil {
		return err
	}
	for i, col := range def.Columns {
		if col.Kind != sheets.KindDate {
			continue
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColStyle(def.Name, name, textStyle); err != nil {
			return err
		}
	}
	if err := f.SetPanes(def.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(def.Name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// referenceRows renders snapshot records in schema column order.
func referenceRows(snap *reference.Snapshot, now time.Time) (map[string][][]any, error) {
	missing := &MissingReferenceError{}
	branchByID := make(map[int64]string, len(snap.Branches))
	for _, b := range snap.Branches {
		if b.Code != "" {
			branchByID[b.ID] = b.Code
		}
	}
	checkerByID := make(map[int64]string, len(snap.Checkers))
	for _, c := range snap.Checkers {
		if c.Code != "" {
			checkerByID[c.ID] = c.Code
		}
	}
	resolve := func(index map[int64]string, code string, id int64) (string, bool) {
		if code != "" {
			return code, true
		}
		if id == 0 {
			return "", false
		}
		found, ok := index[id]
		return found, ok
	}

	out := make(map[string][][]any)
	customerBranch := make(map[string]string, len(snap.Customers))
	productBranch := make(map[string]string, len(snap.Products))

	for _, b := range snap.Branches {
		if b.Code == "" {
			missing.add("branch %d has no code", b.ID)
			continue
		}
		out[sheets.Branches] = append(out[sheets.Branches], []any{b.Code, b.Name, b.Address, b.Phone, b.Manager})
	}

	for _, c := range snap.Checkers {
		if c.Code == "" {
			missing.add("checker %d has no code", c.ID)
			continue
		}
		branch, ok := resolve(branchByID, c.BranchCode, c.BranchID)
		if !ok {
			missing.add("checker %s has no branch", c.Code)
			continue
		}
		out[sheets.Checkers] = append(out[sheets.Checkers], []any{c.Code, c.Name, c.Surname, c.Phone, c.Email, branch})
	}

	for _, c := range snap.Customers {
		if c.Code == "" {
			missing.add("customer %d has no code", c.ID)
			continue
		}
		branch, ok := resolve(branchByID, c.BranchCode, c.BranchID)
		if !ok && c.BranchID != 0 {
			missing.add("customer %s references unknown branch %d", c.Code, c.BranchID)
			continue
		}
		checker, ok := resolve(checkerByID, c.CheckerCode, c.CheckerID)
		if !ok && c.CheckerID != 0 {
			missing.add("customer %s references unknown checker %d", c.Code, c.CheckerID)
			continue
		}
		customerBranch[c.Code] = branch
		out[sheets.Customers] = append(out[sheets.Customers], []any{
			c.Code, c.Name, c.Surname, c.IDCard, c.Nickname, c.Phone, c.Email, c.Address,
			"", "", "", "", branch, checker,
		})
	}

	for _, p := range snap.Products {
		if p.Code == "" {
			missing.add("product %d has no code", p.ID)
			continue
		}
		branch, ok := resolve(branchByID, p.BranchCode, p.BranchID)
		if !ok {
			missing.add("product %s has no branch", p.Code)
			continue
		}
		productBranch[p.Code] = branch
		out[sheets.Products] = append(out[sheets.Products], []any{p.Code, p.Name, p.Description, p.Price, branch})
	}

	if len(missing.Problems) > 0 {
		return nil, missing
	}

	examples, err := exampleContracts(snap, func(customer, product string) string {
		if b := customerBranch[customer]; b != "" {
			return b
		}
		return productBranch[product]
	}, now)
	if err != nil {
		return nil, err
	}
	out[sheets.Installments] = examples
	return out, nil
}

// exampleContracts zips the first customers, priced products and staff into a
// few illustrative contract rows, reusing the first record of a shorter list.
// Products without a price get no example.
func exampleContracts(snap *reference.Snapshot, branchOf func(customer, product string) string, now time.Time) ([][]any, error) {
	var products []reference.Product
	for _, p := range snap.Products {
		if p.Price > 0 {
			products = append(products, p)
		}
	}
	if len(snap.Customers) == 0 || len(products) == 0 {
		return nil, nil
	}
	n := max(len(snap.Customers), len(products))
	n = min(n, MaxExampleRows)

	sales := snap.Salespeople()
	collectors := snap.Collectors()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	end := installment.EndDate(start, exampleMonths)

	var rows [][]any
	for i := 0; i < n; i++ {
		customer := pick(snap.Customers, i)
		product := pick(products, i)

		price := decimal.NewFromFloat(product.Price)
		plan, err := installment.Calculate(installment.PlanInput{
			Price:             price,
			DownPayment:       price.Mul(exampleDownRatio),
			AnnualRatePercent: exampleRate,
			Months:            exampleMonths,
		})
		if err != nil {
			return nil, &MissingReferenceError{Problems: []string{fmt.Sprintf("product %s: %v", product.Code, err)}}
		}

		rows = append(rows, []any{
			fmt.Sprintf("EX-%s-%03d", start.Format("200601"), i+1),
			customer.Code,
			product.Code,
			product.Name,
			plan.TotalAmount.InexactFloat64(),
			plan.MonthlyPayment.InexactFloat64(),
			exampleMonths,
			plan.DownPayment.InexactFloat64(),
			exampleRate.InexactFloat64(),
			start.Format(sheets.DateLayout),
			end.Format(sheets.DateLayout),
			string(installment.ContractActive),
			branchOf(customer.Code, product.Code),
			pick(sales, i).Code,
			pick(collectors, i).Code,
			pick(snap.Checkers, i).Code,
		})
	}
	return rows, nil
}

// pick returns items[i], the first item when i is out of range, or the zero
// value for an empty list.
func pick[T any](items []T, i int) T {
	var zero T
	switch {
	case len(items) == 0:
		return zero
	case i < len(items):
		return items[i]
	default:
		return items[0]
	}
}
