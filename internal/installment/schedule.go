package installment

import "time"

// BuildSchedule expands a plan into its monthly payments. The n-th payment is due
// n calendar months after start; every entry starts out pending.
func BuildSchedule(plan Plan, start time.Time) []ScheduledPayment {
	if plan.Months <= 0 {
		return nil
	}
	schedule := make([]ScheduledPayment, plan.Months)
	for i := range schedule {
		seq := i + 1
		schedule[i] = ScheduledPayment{
			Sequence: seq,
			Amount:   plan.MonthlyPayment,
			DueDate:  AddMonths(start, seq),
			Status:   PaymentPending,
		}
	}
	return schedule
}

// EndDate returns the due date of the last payment of a months-long contract.
func EndDate(start time.Time, months int) time.Time {
	return AddMonths(start, months)
}

// AddMonths moves t forward by n calendar months, clamping the day to the end of
// the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	day := t.Day()
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// PaymentStatusAt classifies a scheduled payment as of a given day. A zero paid
// date means the payment has not been received.
func PaymentStatusAt(due, paid, asOf time.Time) PaymentStatus {
	if !paid.IsZero() {
		return PaymentPaid
	}
	if truncateDay(asOf).After(truncateDay(due)) {
		return PaymentOverdue
	}
	return PaymentPending
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
