package accrual

import (
	"time"

	"referral-deposit-go/internal/models"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// Step is what one tick does to one deposit
type Step struct {
	Days          int
	DailyInterest decimal.Decimal
	// FirstDay is the 1-based term day of the first day paid
	FirstDay  int
	Completes bool
}

// Interest is the total paid by the step
func (s Step) Interest() decimal.Decimal {
	return s.DailyInterest.Mul(decimal.NewFromInt(int64(s.Days)))
}

// Noop reports whether the step leaves the deposit untouched
func (s Step) Noop() bool {
	return s.Days == 0 && !s.Completes
}

// ElapsedDays counts whole days between last and now. A non-zero grace is
// added to the gap so a daily trigger firing slightly early still counts.
func ElapsedDays(last, now time.Time, grace time.Duration) int {
	gap := now.Sub(last) + grace
	if gap < day {
		return 0
	}
	return int(gap / day)
}

// Compute decides the step for d at now. Completed deposits and deposits
// accrued less than a day ago yield a no-op.
func Compute(d models.Deposit, now time.Time, plan models.PlanConfig) Step {
	if d.Status != models.DepositActive {
		return Step{}
	}

	remaining := d.RemainingDays()
	if remaining == 0 {
		return Step{Completes: true}
	}

	elapsed := ElapsedDays(d.LastInterestDate, now, plan.AccrualGrace)
	if elapsed == 0 {
		return Step{}
	}

	days := 1
	if plan.AccrualPolicy == models.AccrualCatchUp {
		days = min(elapsed, remaining)
	}

	return Step{
		Days:          days,
		DailyInterest: d.Principal.Mul(plan.DailyRate),
		FirstDay:      d.DaysPassed + 1,
		Completes:     d.DaysPassed+days >= d.TermDays,
	}
}

// Apply returns the deposit as it stands after step
func Apply(d models.Deposit, step Step, now time.Time) models.Deposit {
	if step.Noop() {
		return d
	}

	d.Accrued = d.Accrued.Add(step.Interest())
	d.DaysPassed += step.Days
	if step.Days > 0 {
		d.LastInterestDate = now
	}
	if step.Completes {
		d.Status = models.DepositCompleted
		completedAt := now
		d.CompletedAt = &completedAt
	}
	return d
}
