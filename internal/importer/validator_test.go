package importer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hirepurchase/hpadmin/internal/sheets"
)

func TestValidateAcceptsValidBatch(t *testing.T) {
	require.Empty(t, Validate(validBatch()))
}

func TestValidateShortIDCard(t *testing.T) {
	batch := validBatch()
	batch[sheets.Customers] = sheetOf(rec(2, "customer_code", "C001", "name", "Malee", "id_card", "123456789012"))

	errs := Validate(batch)
	require.Equal(t, ValidationErrors{"Customers row 2: id_card must be exactly 13 characters"}, errs)
}

func TestValidateDuplicateIDCardNamesBothRows(t *testing.T) {
	batch := validBatch()
	batch[sheets.Customers] = sheetOf(
		rec(2, "customer_code", "C001", "name", "Malee", "id_card", "1234567890123"),
		rec(3, "customer_code", "C002", "name", "Suda", "id_card", "1234567890123"),
	)

	errs := Validate(batch)
	require.Equal(t, ValidationErrors{`Customers row 3: id_card "1234567890123" duplicates row 2`}, errs)
}

func TestValidateInvalidDueDate(t *testing.T) {
	batch := validBatch()
	batch[sheets.Payments] = sheetOf(rec(2, "contract_number", "CT001", "amount", "2030", "due_date", "2024-13-01"))

	errs := Validate(batch)
	require.Equal(t, ValidationErrors{"Payments row 2: due_date must be a valid YYYY-MM-DD date"}, errs)
}

func TestValidateRejectsImpossibleCalendarDate(t *testing.T) {
	batch := validBatch()
	batch[sheets.Installments] = sheetOf(rec(2,
		"contract_number", "CT001", "customer_code", "C001", "total_amount", "100",
		"start_date", "2024-02-30", "end_date", "2024/03/01",
	))

	errs := Validate(batch)
	require.Equal(t, ValidationErrors{
		"Installments row 2: start_date must be a valid YYYY-MM-DD date",
		"Installments row 2: end_date must be a valid YYYY-MM-DD date",
	}, errs)
}

func TestValidateRequiresCoreSheets(t *testing.T) {
	errs := Validate(Batch{})
	require.Equal(t, ValidationErrors{
		"Installments sheet must contain at least one row",
		"Customers sheet must contain at least one row",
	}, errs)
}

func TestValidateAccumulatesInSheetOrder(t *testing.T) {
	batch := validBatch()
	batch[sheets.Branches] = sheetOf(rec(2, "branch_code", "BR01"))
	batch[sheets.Installments] = sheetOf(rec(2,
		"contract_number", "CT001", "customer_code", "C001", "total_amount", "abc",
		"installment_period", "1.5", "status", "open",
	))
	batch[sheets.Checkers] = sheetOf(rec(2, "checker_code", "CK01", "name", "Somchai", "email", "not-an-email", "branch_code", "BR01"))
	batch[sheets.Products] = sheetOf(rec(2, "product_name", "Fan", "price", "-5", "branch_code", "BR01"))

	errs := Validate(batch)
	require.Equal(t, ValidationErrors{
		"Branches row 2: branch_name is required",
		"Installments row 2: total_amount must be a number",
		"Installments row 2: installment_period must be a whole number",
		"Installments row 2: status must be one of active, completed, cancelled, overdue",
		"Checkers row 2: email must be a valid email address",
		"Products row 2: price must not be negative",
	}, errs)
}

func TestValidateDuplicateContractNumbers(t *testing.T) {
	batch := validBatch()
	batch[sheets.Installments] = sheetOf(
		rec(2, "contract_number", "CT001", "customer_code", "C001", "total_amount", "100"),
		rec(4, "contract_number", "CT001", "customer_code", "C001", "total_amount", "200"),
	)

	errs := Validate(batch)
	require.Equal(t, ValidationErrors{`Installments row 4: contract_number "CT001" duplicates row 2`}, errs)
}

func TestValidateLeavesLinkColumnsOptional(t *testing.T) {
	batch := validBatch()
	batch[sheets.Customers] = sheetOf(rec(2, "customer_code", "C001", "name", "Malee", "id_card", "1234567890123"))
	batch[sheets.Installments] = sheetOf(rec(2, "contract_number", "CT001", "customer_code", "C001", "total_amount", "25300"))
	require.Empty(t, Validate(batch))

	optional := map[string][]string{
		sheets.Customers:    {"branch_code", "checker_code"},
		sheets.Installments: {"product_name", "installment_amount", "branch_code"},
	}
	for name, cols := range optional {
		def := sheets.MustLookup(name)
		for _, c := range cols {
			col, ok := def.Column(c)
			require.True(t, ok, c)
			require.False(t, col.Required, c)
			require.Equal(t, c, col.Header())
		}
	}
}
