package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/hirepurchase/hpadmin/internal/jobs"
	"github.com/hirepurchase/hpadmin/internal/sheets"
)

func newTestExecutor(creator Creator) *Executor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExecutor(creator, logger, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestExecuteToleratesMalformedRow(t *testing.T) {
	var customers []Record
	for i := 1; i <= 5; i++ {
		r := rec(i+1, "customer_code", fmt.Sprintf("C%03d", i), "name", "Name", "id_card", fmt.Sprintf("%013d", i))
		if i == 3 {
			delete(r.Fields, "name")
		}
		customers = append(customers, r)
	}
	creator := &fakeCreator{}
	exec := newTestExecutor(creator)

	res, err := exec.Execute(context.Background(), Batch{sheets.Customers: sheetOf(customers...)}, nil)
	require.NoError(t, err)
	require.True(t, res.Success)

	summary := res.Entities[sheets.Customers]
	require.Equal(t, 4, summary.Success)
	require.Equal(t, []string{"Customer C003: name is required"}, summary.Errors)
	require.Len(t, creator.calls, 4)
	require.Empty(t, res.Errors)
	require.Equal(t, 4, res.Created())
	require.Equal(t, 1, res.Failed())
}

func TestExecuteRecordsBackendRejections(t *testing.T) {
	creator := &fakeCreator{reject: map[string]string{"BR02": "duplicate branch code"}}
	exec := newTestExecutor(creator)
	batch := Batch{
		sheets.Branches: sheetOf(
			rec(2, "branch_code", "BR01", "branch_name", "Central"),
			rec(3, "branch_code", "BR02", "branch_name", "North"),
		),
	}

	res, err := exec.Execute(context.Background(), batch, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Entities[sheets.Branches].Success)
	require.Equal(t, []string{"Branch BR02: duplicate branch code"}, res.Entities[sheets.Branches].Errors)
}

func TestExecuteRunsSheetsInDependencyOrder(t *testing.T) {
	batch := validBatch()
	batch[sheets.Collections] = sheetOf(rec(2,
		"contract_number", "CT001", "payment_sequence", "1", "checker_code", "CK01",
		"amount_collected", "2030", "collection_date", "2024-02-16",
	))
	batch[sheets.Products] = sheetOf(rec(2, "product_code", "P001", "product_name", "Fan", "price", "1,500", "branch_code", "BR01"))
	batch[sheets.Checkers] = sheetOf(rec(2, "checker_code", "CK01", "name", "Somchai", "branch_code", "BR01"))

	var progress []string
	creator := &fakeCreator{}
	res, err := newTestExecutor(creator).Execute(context.Background(), batch, func(msg string) {
		progress = append(progress, msg)
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []string{
		"/branches", "/checkers", "/customers", "/products", "/installments", "/payments", "/payment-collections",
	}, creator.endpoints())
	require.Equal(t, []string{
		"Importing branches...", "Importing checkers...", "Importing customers...", "Importing products...",
		"Importing installments...", "Importing payments...", "Importing collections...",
	}, progress)
}

func TestExecuteMapsPayloads(t *testing.T) {
	batch := Batch{
		sheets.Customers: sheetOf(rec(2,
			"customer_code", "C001", "name", "Malee", "surname", "Jaidee", "id_card", "1234567890123",
			"guarantor_name", "Somsri", "email", "",
		)),
		sheets.Installments: sheetOf(rec(2,
			"contract_number", "CT001", "customer_code", "C001", "total_amount", "25,300",
			"installment_period", "10", "start_date", "",
		)),
		sheets.Payments: sheetOf(
			rec(2, "contract_number", "CT001", "payment_sequence", "1", "amount", "2030", "due_date", "2024-02-15", "payment_date", "2024-02-14"),
			rec(3, "contract_number", "CT001", "payment_sequence", "2", "amount", "2030", "due_date", "2024-03-15"),
		),
	}
	creator := &fakeCreator{}
	_, err := newTestExecutor(creator).Execute(context.Background(), batch, nil)
	require.NoError(t, err)
	require.Len(t, creator.calls, 4)

	customer := creator.calls[0].Payload
	require.Equal(t, "C001", customer["code"])
	require.Equal(t, "Malee Jaidee", customer["full_name"])
	require.Nil(t, customer["email"])
	require.Equal(t, "Somsri", customer["guarantor"].(map[string]any)["name"])

	contract := creator.calls[1].Payload
	require.Equal(t, 25300.0, contract["total_amount"])
	require.Equal(t, 10.0, contract["installment_period"])
	require.Nil(t, contract["start_date"])
	require.Equal(t, "active", contract["status"])

	require.Equal(t, "paid", creator.calls[2].Payload["status"])
	require.Equal(t, "pending", creator.calls[3].Payload["status"])
}

func TestExecuteStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	creator := &fakeCreator{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	batch := Batch{
		sheets.Branches: sheetOf(
			rec(2, "branch_code", "BR01", "branch_name", "A"),
			rec(3, "branch_code", "BR02", "branch_name", "B"),
			rec(4, "branch_code", "BR03", "branch_name", "C"),
		),
		sheets.Customers: sheetOf(rec(2, "customer_code", "C001", "name", "Malee", "id_card", "1234567890123")),
	}

	res, err := newTestExecutor(creator).Execute(ctx, batch, nil)
	var berr *BatchError
	require.True(t, errors.As(err, &berr))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, sheets.Branches, berr.Sheet)
	require.Equal(t, 4, berr.Row)
	require.False(t, res.Success)
	require.Equal(t, 2, res.Entities[sheets.Branches].Success)
	require.Len(t, creator.calls, 2)
	require.Equal(t, []string{berr.Error()}, res.Errors)
}
