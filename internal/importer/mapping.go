package importer

import (
	"fmt"
	"strings"

	"github.com/hirepurchase/hpadmin/internal/installment"
	"github.com/hirepurchase/hpadmin/internal/sheets"
)

type branchPayload struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Manager *string `json:"manager"`
}

type checkerPayload struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Surname    *string `json:"surname"`
	FullName   string  `json:"full_name"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	BranchCode string  `json:"branch_code"`
}

type guarantorPayload struct {
	Name    string  `json:"name"`
	IDCard  *string `json:"id_card"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type customerPayload struct {
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Surname     *string           `json:"surname"`
	FullName    string            `json:"full_name"`
	IDCard      string            `json:"id_card"`
	Nickname    *string           `json:"nickname"`
	Phone       *string           `json:"phone"`
	Email       *string           `json:"email"`
	Address     *string           `json:"address"`
	Guarantor   *guarantorPayload `json:"guarantor"`
	BranchCode  *string           `json:"branch_code"`
	CheckerCode *string           `json:"checker_code"`
}

type productPayload struct {
	Code        *string `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       float64 `json:"price"`
	BranchCode  string  `json:"branch_code"`
}

type contractPayload struct {
	ContractNumber    string   `json:"contract_number"`
	CustomerCode      string   `json:"customer_code"`
	ProductCode       *string  `json:"product_code"`
	ProductName       *string  `json:"product_name"`
	TotalAmount       float64  `json:"total_amount"`
	InstallmentAmount *float64 `json:"installment_amount"`
	InstallmentPeriod *int64   `json:"installment_period"`
	DownPayment       *float64 `json:"down_payment"`
	InterestRate      *float64 `json:"interest_rate"`
	StartDate         *string  `json:"start_date"`
	EndDate           *string  `json:"end_date"`
	Status            string   `json:"status"`
	BranchCode        *string  `json:"branch_code"`
	SalespersonCode   *string  `json:"salesperson_code"`
	CollectorCode     *string  `json:"collector_code"`
	CheckerCode       *string  `json:"checker_code"`
}

type paymentPayload struct {
	ContractNumber  string  `json:"contract_number"`
	PaymentSequence *int64  `json:"payment_sequence"`
	Amount          float64 `json:"amount"`
	DueDate         string  `json:"due_date"`
	PaymentDate     *string `json:"payment_date"`
	Status          string  `json:"status"`
	Notes           *string `json:"notes"`
}

type collectionPayload struct {
	ContractNumber  string  `json:"contract_number"`
	PaymentSequence *int64  `json:"payment_sequence"`
	CheckerCode     string  `json:"checker_code"`
	AmountCollected float64 `json:"amount_collected"`
	CollectionDate  string  `json:"collection_date"`
	Notes           *string `json:"notes"`
}

// buildPayload maps a spreadsheet row onto the backend request body for the
// sheet's entity.
func buildPayload(def sheets.Sheet, rec Record) (any, error) {
	for _, col := range def.Columns {
		if col.Required && rec.Get(col.Name) == "" {
			return nil, fmt.Errorf("%s is required", col.Name)
		}
	}
	f := &fields{rec: rec}
	var payload any
	switch def.Name {
	case sheets.Branches:
		payload = branchPayload{
			Code:    f.str("branch_code"),
			Name:    f.str("branch_name"),
			Address: f.opt("address"),
			Phone:   f.opt("phone"),
			Manager: f.opt("manager"),
		}
	case sheets.Checkers:
		payload = checkerPayload{
			Code:       f.str("checker_code"),
			Name:       f.str("name"),
			Surname:    f.opt("surname"),
			FullName:   fullName(f.str("name"), f.str("surname")),
			Phone:      f.opt("phone"),
			Email:      f.opt("email"),
			BranchCode: f.str("branch_code"),
		}
	case sheets.Customers:
		p := customerPayload{
			Code:        f.str("customer_code"),
			Name:        f.str("name"),
			Surname:     f.opt("surname"),
			FullName:    fullName(f.str("name"), f.str("surname")),
			IDCard:      f.str("id_card"),
			Nickname:    f.opt("nickname"),
			Phone:       f.opt("phone"),
			Email:       f.opt("email"),
			Address:     f.opt("address"),
			BranchCode:  f.opt("branch_code"),
			CheckerCode: f.opt("checker_code"),
		}
		if name := f.str("guarantor_name"); name != "" {
			p.Guarantor = &guarantorPayload{
				Name:    name,
				IDCard:  f.opt("guarantor_id_card"),
				Phone:   f.opt("guarantor_phone"),
				Address: f.opt("guarantor_address"),
			}
		}
		payload = p
	case sheets.Products:
		payload = productPayload{
			Code:        f.opt("product_code"),
			Name:        f.str("product_name"),
			Description: f.opt("description"),
			Price:       f.amount("price"),
			BranchCode:  f.str("branch_code"),
		}
	case sheets.Installments:
		payload = contractPayload{
			ContractNumber:    f.str("contract_number"),
			CustomerCode:      f.str("customer_code"),
			ProductCode:       f.opt("product_code"),
			ProductName:       f.opt("product_name"),
			TotalAmount:       f.amount("total_amount"),
			InstallmentAmount: f.optAmount("installment_amount"),
			InstallmentPeriod: f.optInt("installment_period"),
			DownPayment:       f.optAmount("down_payment"),
			InterestRate:      f.optAmount("interest_rate"),
			StartDate:         f.opt("start_date"),
			EndDate:           f.opt("end_date"),
			Status:            f.enum("status", string(installment.ContractActive)),
			BranchCode:        f.opt("branch_code"),
			SalespersonCode:   f.opt("salesperson_code"),
			CollectorCode:     f.opt("collector_code"),
			CheckerCode:       f.opt("checker_code"),
		}
	case sheets.Payments:
		status := string(installment.PaymentPending)
		if f.str("payment_date") != "" {
			status = string(installment.PaymentPaid)
		}
		payload = paymentPayload{
			ContractNumber:  f.str("contract_number"),
			PaymentSequence: f.optInt("payment_sequence"),
			Amount:          f.amount("amount"),
			DueDate:         f.str("due_date"),
			PaymentDate:     f.opt("payment_date"),
			Status:          f.enum("status", status),
			Notes:           f.opt("notes"),
		}
	case sheets.Collections:
		payload = collectionPayload{
			ContractNumber:  f.str("contract_number"),
			PaymentSequence: f.optInt("payment_sequence"),
			CheckerCode:     f.str("checker_code"),
			AmountCollected: f.amount("amount_collected"),
			CollectionDate:  f.str("collection_date"),
			Notes:           f.opt("notes"),
		}
	default:
		return nil, fmt.Errorf("no mapping for sheet %s", def.Name)
	}
	if f.err != nil {
		return nil, f.err
	}
	return payload, nil
}

// recordKey renders the natural key used in row error messages.
func recordKey(def sheets.Sheet, rec Record) string {
	key := rec.Get(def.Key)
	if key == "" {
		return fmt.Sprintf("row %d", rec.Row)
	}
	if seq := rec.Get("payment_sequence"); seq != "" && (def.Name == sheets.Payments || def.Name == sheets.Collections) {
		return key + "#" + seq
	}
	return key
}

func fullName(name, surname string) string {
	return strings.TrimSpace(name + " " + surname)
}

// fields reads typed values from a record and keeps the first conversion error.
type fields struct {
	rec Record
	err error
}

func (f *fields) str(col string) string {
	return f.rec.Get(col)
}

func (f *fields) opt(col string) *string {
	v := f.rec.Get(col)
	if v == "" {
		return nil
	}
	return &v
}

func (f *fields) amount(col string) float64 {
	v := f.optAmount(col)
	if v == nil {
		return 0
	}
	return *v
}

func (f *fields) optAmount(col string) *float64 {
	v := f.rec.Get(col)
	if v == "" {
		return nil
	}
	d, err := parseNumber(v)
	if err != nil {
		f.fail(fmt.Errorf("%s must be a number", col))
		return nil
	}
	out := d.InexactFloat64()
	return &out
}

func (f *fields) optInt(col string) *int64 {
	v := f.rec.Get(col)
	if v == "" {
		return nil
	}
	d, err := parseNumber(v)
	if err != nil || !d.IsInteger() {
		f.fail(fmt.Errorf("%s must be a whole number", col))
		return nil
	}
	out := d.IntPart()
	return &out
}

func (f *fields) enum(col, fallback string) string {
	if v := f.rec.Get(col); v != "" {
		return v
	}
	return fallback
}

func (f *fields) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}
