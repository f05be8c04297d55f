package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirepurchase/hpadmin/internal/installment"
)

// PlanOptions configures the plan command. Monetary values are parsed as
// decimals so operator input is never rounded through float64.
type PlanOptions struct {
	Price      string
	Down       string
	Rate       string
	Months     int
	Start      string
	JSONOutput bool
	IO
}

// PlanSummary is the JSON output of plan.
type PlanSummary struct {
	Plan     installment.Plan               `json:"plan"`
	EndDate  string                         `json:"end_date,omitempty"`
	Schedule []installment.ScheduledPayment `json:"schedule,omitempty"`
}

// PlanCommand prints an installment quote and, when a start date is given,
// its payment schedule.
func PlanCommand(opts PlanOptions) int {
	opts.IO = opts.IO.withDefaults()
	in, err := opts.input()
	if err != nil {
		fmt.Fprintf(opts.Stderr, "plan: %v\n", err)
		return ExitFailure
	}
	plan, err := installment.Calculate(in)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "plan: %v\n", err)
		return ExitProblems
	}
	summary := PlanSummary{Plan: plan}
	if opts.Start != "" {
		start, err := time.Parse(time.DateOnly, opts.Start)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "plan: start must be YYYY-MM-DD: %v\n", err)
			return ExitFailure
		}
		summary.EndDate = installment.EndDate(start, plan.Months).Format(time.DateOnly)
		summary.Schedule = installment.BuildSchedule(plan, start)
	}
	if opts.JSONOutput {
		if err := writeJSON(opts.Stdout, summary); err != nil {
			fmt.Fprintf(opts.Stderr, "plan: %v\n", err)
			return ExitFailure
		}
		return ExitOK
	}
	renderPlanHuman(opts.Stdout, summary)
	return ExitOK
}

func (o PlanOptions) input() (installment.PlanInput, error) {
	price, err := parseDecimalFlag("price", o.Price)
	if err != nil {
		return installment.PlanInput{}, err
	}
	down, err := parseDecimalFlag("down", o.Down)
	if err != nil {
		return installment.PlanInput{}, err
	}
	rate, err := parseDecimalFlag("rate", o.Rate)
	if err != nil {
		return installment.PlanInput{}, err
	}
	return installment.PlanInput{
		Price:             price,
		DownPayment:       down,
		AnnualRatePercent: rate,
		Months:            o.Months,
	}, nil
}

func parseDecimalFlag(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("-%s must be a number", name)
	}
	return d, nil
}

func renderPlanHuman(out io.Writer, summary PlanSummary) {
	p := summary.Plan
	fmt.Fprintf(out, "Principal        %s\n", p.Principal.StringFixed(2))
	fmt.Fprintf(out, "Down payment     %s\n", p.DownPayment.StringFixed(2))
	fmt.Fprintf(out, "Total interest   %s\n", p.TotalInterest.StringFixed(2))
	fmt.Fprintf(out, "Monthly payment  %s x %d\n", p.MonthlyPayment.StringFixed(0), p.Months)
	fmt.Fprintf(out, "Total amount     %s\n", p.TotalAmount.StringFixed(0))
	if summary.EndDate == "" {
		return
	}
	fmt.Fprintf(out, "Ends             %s\n", summary.EndDate)
	for _, sp := range summary.Schedule {
		fmt.Fprintf(out, "  #%-3d %s  %s\n", sp.Sequence, sp.DueDate.Format(time.DateOnly), sp.Amount.StringFixed(0))
	}
}
