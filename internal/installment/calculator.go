package installment

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ten         = decimal.NewFromInt(10)
	rateDivisor = decimal.NewFromInt(1200) // percent per year -> fraction per month
)

// Calculate computes a simple-interest plan. Every money figure is rounded up to
// the next multiple of ten so the monthly payment never underfunds the principal.
func Calculate(in PlanInput) (Plan, error) {
	if err := in.validate(); err != nil {
		return Plan{}, err
	}
	months := decimal.NewFromInt(int64(in.Months))

	principal := in.Price.Sub(in.DownPayment)
	interest := principal.Mul(in.AnnualRatePercent).Mul(months).Div(rateDivisor)
	totalPayment := principal.Add(interest)
	monthly := RoundUpTo10(totalPayment.Div(months))

	return Plan{
		Principal:      principal,
		TotalInterest:  RoundUpTo10(interest),
		MonthlyPayment: monthly,
		TotalAmount:    RoundUpTo10(monthly.Mul(months).Add(in.DownPayment)),
		DownPayment:    in.DownPayment,
		Months:         in.Months,
	}, nil
}

// RoundUpTo10 returns the smallest multiple of ten that is >= d.
func RoundUpTo10(d decimal.Decimal) decimal.Decimal {
	return d.Div(ten).Ceil().Mul(ten)
}

func (in PlanInput) validate() error {
	switch {
	case !in.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	case in.DownPayment.IsNegative():
		return fmt.Errorf("%w: down payment must not be negative", ErrInvalidInput)
	case in.DownPayment.GreaterThanOrEqual(in.Price):
		return fmt.Errorf("%w: down payment %s must be less than price %s", ErrInvalidInput, in.DownPayment, in.Price)
	case in.AnnualRatePercent.IsNegative():
		return fmt.Errorf("%w: interest rate must not be negative", ErrInvalidInput)
	case in.Months <= 0:
		return fmt.Errorf("%w: months must be positive", ErrInvalidInput)
	}
	return nil
}
