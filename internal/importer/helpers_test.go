package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hirepurchase/hpadmin/internal/sheets"
)

// workbook renders sheet name -> rows (first row is the header) as xlsx bytes.
func workbook(t *testing.T, data map[string][][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for _, name := range sheets.ImportOrder() {
		rows, ok := data[name]
		if !ok {
			continue
		}
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func rec(row int, kv ...string) Record {
	fields := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return Record{Row: row, Fields: fields}
}

func sheetOf(records ...Record) Sheet {
	return Sheet{Records: records}
}

// validBatch is a minimal importable batch.
func validBatch() Batch {
	return Batch{
		sheets.Branches: sheetOf(rec(2, "branch_code", "BR01", "branch_name", "Central")),
		sheets.Customers: sheetOf(
			rec(2, "customer_code", "C001", "name", "Malee", "surname", "Jaidee", "id_card", "1234567890123"),
		),
		sheets.Installments: sheetOf(
			rec(2, "contract_number", "CT001", "customer_code", "C001", "total_amount", "25,300", "start_date", "2024-01-15"),
		),
		sheets.Payments: sheetOf(
			rec(2, "contract_number", "CT001", "payment_sequence", "1", "amount", "2030", "due_date", "2024-02-15"),
		),
	}
}

type createCall struct {
	Endpoint string
	Payload  map[string]any
}

type fakeCreator struct {
	mu     sync.Mutex
	calls  []createCall
	reject map[string]string
	onCall func(n int)
}

func (f *fakeCreator) Create(ctx context.Context, endpoint string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	f.mu.Lock()
	f.calls = append(f.calls, createCall{Endpoint: endpoint, Payload: m})
	n := len(f.calls)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(n)
	}
	if code, _ := m["code"].(string); code != "" {
		if msg, ok := f.reject[code]; ok {
			return errors.New(msg)
		}
	}
	return nil
}

func (f *fakeCreator) endpoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Endpoint
	}
	return out
}
