package installment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput indicates plan inputs outside the accepted domain.
var ErrInvalidInput = errors.New("installment: invalid input")

// ContractStatus enumerates the lifecycle of an installment contract.
type ContractStatus string

const (
	ContractActive    ContractStatus = "active"
	ContractCompleted ContractStatus = "completed"
	ContractCancelled ContractStatus = "cancelled"
	ContractOverdue   ContractStatus = "overdue"
)

// Valid reports whether s is a known contract status.
func (s ContractStatus) Valid() bool {
	switch s {
	case ContractActive, ContractCompleted, ContractCancelled, ContractOverdue:
		return true
	}
	return false
}

// PaymentStatus enumerates the state of a single scheduled payment.
type PaymentStatus string

const (
	PaymentPaid      PaymentStatus = "paid"
	PaymentPending   PaymentStatus = "pending"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentPending, PaymentOverdue, PaymentCancelled:
		return true
	}
	return false
}

// ContractStatuses lists the contract statuses in display order.
func ContractStatuses() []ContractStatus {
	return []ContractStatus{ContractActive, ContractCompleted, ContractCancelled, ContractOverdue}
}

// PaymentStatuses lists the payment statuses in display order.
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentPaid, PaymentPending, PaymentOverdue, PaymentCancelled}
}

// PlanInput carries the figures a salesperson enters for a hire-purchase quote.
type PlanInput struct {
	Price             decimal.Decimal `json:"price"`
	DownPayment       decimal.Decimal `json:"down_payment"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	Months            int             `json:"months"`
}

// Plan is the computed monthly payment plan.
type Plan struct {
	Principal      decimal.Decimal `json:"principal"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DownPayment    decimal.Decimal `json:"down_payment"`
	Months         int             `json:"months"`
}

// ScheduledPayment is one entry of a payment schedule.
type ScheduledPayment struct {
	Sequence int             `json:"payment_sequence"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  time.Time       `json:"due_date"`
	Status   PaymentStatus   `json:"status"`
}
