package xlsxtemplate_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hirepurchase/hpadmin/internal/importer"
	"github.com/hirepurchase/hpadmin/internal/reference"
	"github.com/hirepurchase/hpadmin/internal/sheets"
	"github.com/hirepurchase/hpadmin/internal/xlsxtemplate"
)

var fixedNow = time.Date(2024, time.May, 20, 10, 0, 0, 0, time.UTC)

func sampleSnapshot() *reference.Snapshot {
	return &reference.Snapshot{
		Branches: []reference.Branch{
			{ID: 1, Code: "BR01", Name: "Central"},
			{ID: 2, Code: "BR02", Name: "North"},
		},
		Checkers: []reference.Checker{
			{ID: 10, Code: "CK01", Name: "Somchai", Email: "somchai@example.com", BranchID: 1},
		},
		Customers: []reference.Customer{
			{ID: 100, Code: "C001", Name: "Malee", IDCard: "1234567890123", BranchID: 1, CheckerID: 10},
			{ID: 101, Code: "C002", Name: "Suda", IDCard: "1234567890124", BranchCode: "BR02"},
		},
		Products: []reference.Product{
			{ID: 50, Code: "P001", Name: "Fridge", Price: 25000, BranchID: 1},
			{ID: 51, Code: "P002", Name: "TV", Price: 12000, BranchID: 2},
			{ID: 52, Code: "P003", Name: "Fan", Price: 1500, BranchID: 2},
			{ID: 53, Code: "P004", Name: "Rice cooker", Price: 900, BranchID: 2},
		},
		Employees: []reference.Employee{
			{ID: 7, Code: "S01", Name: "Nok", Role: reference.RoleSales},
			{ID: 8, Code: "L01", Name: "Lek", Role: reference.RoleCollector},
		},
	}
}

func writeTemplate(t *testing.T, snap *reference.Snapshot) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, xlsxtemplate.Write(&buf, snap, xlsxtemplate.Options{Now: fixedNow}))
	return buf.Bytes()
}

func TestTemplateRoundTripHeaders(t *testing.T) {
	raw := writeTemplate(t, nil)

	batch, err := importer.Read(bytes.NewReader(raw))
	require.NoError(t, err)
	for _, def := range sheets.All() {
		require.Equal(t, def.ColumnNames(), batch[def.Name].Headers, def.Name)
		require.Empty(t, batch[def.Name].Records, def.Name)
	}
}

func TestTemplateSheetOrderAndMarkers(t *testing.T) {
	raw := writeTemplate(t, nil)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	want := append([]string{xlsxtemplate.InstructionsSheet}, sheets.ImportOrder()...)
	require.Equal(t, want, f.GetSheetList())

	header, err := f.GetCellValue(sheets.Customers, "A1")
	require.NoError(t, err)
	require.Equal(t, "customer_code*", header)
	header, err = f.GetCellValue(sheets.Customers, "C1")
	require.NoError(t, err)
	require.Equal(t, "surname", header)
}

func TestTemplateWithSnapshotIsImportable(t *testing.T) {
	raw := writeTemplate(t, sampleSnapshot())

	batch, err := importer.Read(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, batch.Records(sheets.Branches), 2)
	require.Len(t, batch.Records(sheets.Customers), 2)
	require.Len(t, batch.Records(sheets.Products), 4)

	contracts := batch.Records(sheets.Installments)
	require.Len(t, contracts, xlsxtemplate.MaxExampleRows)

	first := contracts[0]
	require.Equal(t, "EX-202406-001", first.Get("contract_number"))
	require.Equal(t, "C001", first.Get("customer_code"))
	require.Equal(t, "P001", first.Get("product_code"))
	require.Equal(t, "2024-06-01", first.Get("start_date"))
	require.Equal(t, "2025-06-01", first.Get("end_date"))
	require.Equal(t, "BR01", first.Get("branch_code"))
	require.Equal(t, "S01", first.Get("salesperson_code"))
	require.Equal(t, "L01", first.Get("collector_code"))
	require.Equal(t, "CK01", first.Get("checker_code"))
	// 25000 price, 5000 down, 1.25% over 12 months: 20250 / 12 rounds up to 1690.
	require.Equal(t, "1690", first.Get("installment_amount"))
	require.Equal(t, "25280", first.Get("total_amount"))

	// Third row reuses the first customer because only two exist.
	require.Equal(t, "C001", contracts[2].Get("customer_code"))
	require.Equal(t, "P003", contracts[2].Get("product_code"))

	checker := batch.Records(sheets.Checkers)[0]
	require.Equal(t, "BR01", checker.Get("branch_code"))

	require.Empty(t, importer.Validate(batch))
}

func TestTemplateFailsOnMissingReferences(t *testing.T) {
	snap := sampleSnapshot()
	snap.Branches = append(snap.Branches, reference.Branch{ID: 3, Name: "No code"})
	snap.Products = append(snap.Products, reference.Product{ID: 60, Code: "P009", Name: "Orphan", Price: 100, BranchID: 99})

	_, err := xlsxtemplate.Build(snap, xlsxtemplate.Options{Now: fixedNow})
	var missing *xlsxtemplate.MissingReferenceError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, []string{"branch 3 has no code", "product P009 has no branch"}, missing.Problems)
}

func TestTemplateSkipsExamplesForUnpricedProducts(t *testing.T) {
	snap := sampleSnapshot()
	snap.Products[0].Price = 0
	snap.Products[2].Price = 0

	raw := writeTemplate(t, snap)
	batch, err := importer.Read(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, batch.Records(sheets.Products), 4)

	contracts := batch.Records(sheets.Installments)
	require.NotEmpty(t, contracts)
	for _, c := range contracts {
		require.Contains(t, []string{"P002", "P004"}, c.Get("product_code"))
	}
	require.Equal(t, "P002", contracts[0].Get("product_code"))

	for i := range snap.Products {
		snap.Products[i].Price = 0
	}
	raw = writeTemplate(t, snap)
	batch, err = importer.Read(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Empty(t, batch.Records(sheets.Installments))
	require.Len(t, batch.Records(sheets.Products), 4)
}
