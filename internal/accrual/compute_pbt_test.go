package accrual

import (
	"testing"
	"time"

	"referral-deposit-go/internal/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func accrualParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return parameters
}

// runToCompletion ticks once per gap until the deposit completes and
// returns the final deposit with the sum of the interest paid
func runToCompletion(d models.Deposit, plan models.PlanConfig, gaps []int) (models.Deposit, decimal.Decimal, int) {
	now := d.LastInterestDate
	paid := decimal.Zero
	ticks := 0
	for i := 0; d.Status == models.DepositActive && ticks < 1000; i++ {
		gap := 1
		if len(gaps) > 0 {
			gap = gaps[i%len(gaps)]
		}
		now = now.Add(time.Duration(gap) * day)
		step := Compute(d, now, plan)
		paid = paid.Add(step.Interest())
		d = Apply(d, step, now)
		ticks++
	}
	return d, paid, ticks
}

func TestAccrualProperties(t *testing.T) {
	properties := gopter.NewProperties(accrualParameters())

	properties.Property("interest paid equals accrued at completion", prop.ForAll(
		func(principal int64, term int, catchUp bool, gaps []int) bool {
			plan := testPlan(models.AccrualOneDay)
			if catchUp {
				plan.AccrualPolicy = models.AccrualCatchUp
			}
			d := *models.NewDeposit("d", "u", decimal.NewFromInt(principal), term, start)

			final, paid, _ := runToCompletion(d, plan, gaps)
			expected := decimal.NewFromInt(principal).Mul(plan.DailyRate).Mul(decimal.NewFromInt(int64(term)))
			return final.Status == models.DepositCompleted &&
				final.DaysPassed == term &&
				paid.Equal(final.Accrued) &&
				final.Accrued.Equal(expected)
		},
		gen.Int64Range(50, 1000000),
		gen.IntRange(1, 60),
		gen.Bool(),
		gen.SliceOf(gen.IntRange(1, 5)),
	))

	properties.Property("one_day policy pays exactly one day per tick", prop.ForAll(
		func(term int, gaps []int) bool {
			d := *models.NewDeposit("d", "u", decimal.NewFromInt(100), term, start)
			_, _, ticks := runToCompletion(d, testPlan(models.AccrualOneDay), gaps)
			return ticks == term
		},
		gen.IntRange(1, 60),
		gen.SliceOf(gen.IntRange(1, 5)),
	))

	properties.Property("completed deposits never change", prop.ForAll(
		func(term int, hours int) bool {
			d := *models.NewDeposit("d", "u", decimal.NewFromInt(100), term, start)
			final, _, _ := runToCompletion(d, testPlan(models.AccrualCatchUp), nil)

			now := final.LastInterestDate.Add(time.Duration(hours) * time.Hour)
			step := Compute(final, now, testPlan(models.AccrualCatchUp))
			again := Apply(final, step, now)
			return step.Noop() && again.Accrued.Equal(final.Accrued) && again.DaysPassed == final.DaysPassed
		},
		gen.IntRange(1, 60),
		gen.IntRange(0, 24*365),
	))

	properties.Property("a second tick within the same day is a no-op", prop.ForAll(
		func(days int, minutes int) bool {
			plan := testPlan(models.AccrualOneDay)
			d := *models.NewDeposit("d", "u", decimal.NewFromInt(100), 30, start)

			first := start.Add(time.Duration(days) * day)
			d = Apply(d, Compute(d, first, plan), first)

			second := first.Add(time.Duration(minutes) * time.Minute)
			return Compute(d, second, plan).Noop()
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 24*60-10),
	))

	properties.TestingRun(t)
}
