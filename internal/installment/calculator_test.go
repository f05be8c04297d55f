package installment

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateMerchantScenario(t *testing.T) {
	plan, err := Calculate(PlanInput{
		Price:             dec("25000"),
		DownPayment:       dec("5000"),
		AnnualRatePercent: dec("1.25"),
		Months:            10,
	})
	require.NoError(t, err)
	require.True(t, plan.Principal.Equal(dec("20000")), "principal %s", plan.Principal)
	require.True(t, plan.TotalInterest.Equal(dec("210")), "interest %s", plan.TotalInterest)
	require.True(t, plan.MonthlyPayment.Equal(dec("2030")), "monthly %s", plan.MonthlyPayment)
	require.True(t, plan.TotalAmount.Equal(dec("25300")), "total %s", plan.TotalAmount)
}

func TestCalculateZeroInterest(t *testing.T) {
	plan, err := Calculate(PlanInput{Price: dec("10000"), DownPayment: decimal.Zero, AnnualRatePercent: decimal.Zero, Months: 3})
	require.NoError(t, err)
	require.True(t, plan.MonthlyPayment.Equal(dec("3340")))
	require.True(t, plan.TotalInterest.IsZero())
	require.True(t, plan.TotalAmount.Equal(dec("10020")))
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   PlanInput
	}{
		{name: "down payment equals price", in: PlanInput{Price: dec("1000"), DownPayment: dec("1000"), Months: 6}},
		{name: "down payment above price", in: PlanInput{Price: dec("1000"), DownPayment: dec("1500"), Months: 6}},
		{name: "negative down payment", in: PlanInput{Price: dec("1000"), DownPayment: dec("-1"), Months: 6}},
		{name: "zero price", in: PlanInput{Price: decimal.Zero, Months: 6}},
		{name: "negative rate", in: PlanInput{Price: dec("1000"), AnnualRatePercent: dec("-2"), Months: 6}},
		{name: "zero months", in: PlanInput{Price: dec("1000"), Months: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.in)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestCalculateRoundingNeverUnderfundsPrincipal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		price := decimal.NewFromInt(int64(rng.Intn(200000) + 100))
		down := decimal.NewFromInt(int64(rng.Intn(int(price.IntPart()))))
		rate := decimal.New(int64(rng.Intn(3000)), -2)
		months := rng.Intn(60) + 1

		plan, err := Calculate(PlanInput{Price: price, DownPayment: down, AnnualRatePercent: rate, Months: months})
		require.NoError(t, err)

		require.True(t, plan.MonthlyPayment.Mod(ten).IsZero(), "monthly %s not a multiple of 10", plan.MonthlyPayment)
		require.True(t, plan.TotalAmount.Mod(ten).IsZero())
		require.True(t, plan.TotalInterest.Mod(ten).IsZero())
		covered := plan.MonthlyPayment.Mul(decimal.NewFromInt(int64(months)))
		require.True(t, covered.GreaterThanOrEqual(price.Sub(down)),
			"price=%s down=%s rate=%s months=%d monthly=%s", price, down, rate, months, plan.MonthlyPayment)
	}
}

func TestRoundUpTo10(t *testing.T) {
	require.True(t, RoundUpTo10(dec("2020.0001")).Equal(dec("2030")))
	require.True(t, RoundUpTo10(dec("2030")).Equal(dec("2030")))
	require.True(t, RoundUpTo10(dec("0")).IsZero())
	require.True(t, RoundUpTo10(dec("0.5")).Equal(dec("10")))
}

func TestBuildScheduleCompleteness(t *testing.T) {
	start := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	for months := 1; months <= 36; months++ {
		plan, err := Calculate(PlanInput{Price: dec("36000"), DownPayment: dec("6000"), AnnualRatePercent: dec("12"), Months: months})
		require.NoError(t, err)

		schedule := BuildSchedule(plan, start)
		require.Len(t, schedule, months)
		for i, entry := range schedule {
			require.Equal(t, i+1, entry.Sequence)
			require.Equal(t, PaymentPending, entry.Status)
			require.True(t, entry.Amount.Equal(plan.MonthlyPayment))
			require.Equal(t, start.AddDate(0, i+1, 0), entry.DueDate)
		}
	}
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	start := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), AddMonths(start, 1))
	require.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), AddMonths(start, 2))
	require.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), AddMonths(start, 13))
	require.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), EndDate(start, 11))
}

func TestPaymentStatusAt(t *testing.T) {
	due := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, PaymentPending, PaymentStatusAt(due, time.Time{}, due))
	require.Equal(t, PaymentOverdue, PaymentStatusAt(due, time.Time{}, due.AddDate(0, 0, 1)))
	require.Equal(t, PaymentPaid, PaymentStatusAt(due, due.AddDate(0, 0, 3), due.AddDate(0, 1, 0)))
}
