// Package sheets holds the bulk-import workbook schema shared by the template
// builder, the reader, the validator and the executor.
package sheets

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/hirepurchase/hpadmin/internal/installment"
)

// Sheet names are matched case-sensitively.
const (
	Branches     = "Branches"
	Checkers     = "Checkers"
	Customers    = "Customers"
	Products     = "Products"
	Installments = "Installments"
	Payments     = "Payments"
	Collections  = "Collections"
)

// RequiredMarker is appended to required column headers in generated templates.
const RequiredMarker = "*"

// Kind drives the format check applied to a non-empty cell.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindInteger
	KindDate
	KindEmail
	KindEnum
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// Column describes one header of a sheet.
type Column struct {
	Name     string
	Required bool
	Kind     Kind
	Unique   bool
	Length   int
	Options  []string
}

// Header renders the column as it appears in a template header row.
func (c Column) Header() string {
	if c.Required {
		return c.Name + RequiredMarker
	}
	return c.Name
}

// Sheet describes one importable entity.
type Sheet struct {
	Name     string
	Entity   string
	Key      string
	Endpoint string
	Columns  []Column
}

// Headers returns the template header row.
func (s Sheet) Headers() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Header()
	}
	return out
}

// ColumnNames returns the canonical column names in order.
func (s Sheet) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by canonical name.
func (s Sheet) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// CanonicalHeader strips the required marker and normalises a header cell so
// "customer_code *" and "ｃｕｓｔｏｍｅｒ_code*" both match "customer_code".
func CanonicalHeader(h string) string {
	h = NormalizeText(h)
	h = strings.TrimSpace(strings.TrimSuffix(h, RequiredMarker))
	return h
}

// NormalizeText applies NFC, folds full-width forms and trims surrounding space.
func NormalizeText(s string) string {
	return strings.TrimSpace(width.Fold.String(norm.NFC.String(s)))
}

var (
	contractStatuses = toStrings(installment.ContractStatuses())
	paymentStatuses  = toStrings(installment.PaymentStatuses())
)

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func text(name string) Column      { return Column{Name: name} }
func required(name string) Column  { return Column{Name: name, Required: true} }
func number(name string) Column    { return Column{Name: name, Kind: KindNumber} }
func integer(name string) Column   { return Column{Name: name, Kind: KindInteger} }
func date(name string) Column      { return Column{Name: name, Kind: KindDate} }
func email(name string) Column     { return Column{Name: name, Kind: KindEmail} }
func uniqueKey(name string) Column { return Column{Name: name, Required: true, Unique: true} }

func (c Column) req() Column { c.Required = true; return c }

var schema = []Sheet{
	{
		Name: Branches, Entity: "Branch", Key: "branch_code", Endpoint: "/branches",
		Columns: []Column{
			uniqueKey("branch_code"),
			required("branch_name"),
			text("address"),
			text("phone"),
			text("manager"),
		},
	},
	{
		Name: Checkers, Entity: "Checker", Key: "checker_code", Endpoint: "/checkers",
		Columns: []Column{
			uniqueKey("checker_code"),
			required("name"),
			text("surname"),
			text("phone"),
			email("email"),
			required("branch_code"),
		},
	},
	{
		Name: Customers, Entity: "Customer", Key: "customer_code", Endpoint: "/customers",
		Columns: []Column{
			uniqueKey("customer_code"),
			required("name"),
			text("surname"),
			{Name: "id_card", Required: true, Unique: true, Length: 13},
			text("nickname"),
			text("phone"),
			email("email"),
			text("address"),
			text("guarantor_name"),
			text("guarantor_id_card"),
			text("guarantor_phone"),
			text("guarantor_address"),
			text("branch_code"),
			text("checker_code"),
		},
	},
	{
		Name: Products, Entity: "Product", Key: "product_code", Endpoint: "/products",
		Columns: []Column{
			{Name: "product_code", Unique: true},
			required("product_name"),
			text("description"),
			number("price").req(),
			required("branch_code"),
		},
	},
	{
		Name: Installments, Entity: "Contract", Key: "contract_number", Endpoint: "/installments",
		Columns: []Column{
			uniqueKey("contract_number"),
			required("customer_code"),
			text("product_code"),
			text("product_name"),
			number("total_amount").req(),
			number("installment_amount"),
			integer("installment_period"),
			number("down_payment"),
			number("interest_rate"),
			date("start_date"),
			date("end_date"),
			{Name: "status", Kind: KindEnum, Options: contractStatuses},
			text("branch_code"),
			text("salesperson_code"),
			text("collector_code"),
			text("checker_code"),
		},
	},
	{
		Name: Payments, Entity: "Payment", Key: "contract_number", Endpoint: "/payments",
		Columns: []Column{
			required("contract_number"),
			integer("payment_sequence"),
			number("amount").req(),
			date("due_date").req(),
			date("payment_date"),
			{Name: "status", Kind: KindEnum, Options: paymentStatuses},
			text("notes"),
		},
	},
	{
		Name: Collections, Entity: "Collection", Key: "contract_number", Endpoint: "/payment-collections",
		Columns: []Column{
			required("contract_number"),
			integer("payment_sequence"),
			required("checker_code"),
			number("amount_collected").req(),
			date("collection_date").req(),
			text("notes"),
		},
	},
}

// All returns every sheet in import order. The slice is a copy.
func All() []Sheet {
	out := make([]Sheet, len(schema))
	copy(out, schema)
	return out
}

// ImportOrder lists sheet names in foreign-key dependency order.
func ImportOrder() []string {
	out := make([]string, len(schema))
	for i, s := range schema {
		out[i] = s.Name
	}
	return out
}

// Lookup returns the sheet definition for name.
func Lookup(name string) (Sheet, bool) {
	for _, s := range schema {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) Sheet {
	s, ok := Lookup(name)
	if !ok {
		panic("sheets: unknown sheet " + name)
	}
	return s
}
