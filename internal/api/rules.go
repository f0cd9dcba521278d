package api

import (
	"fmt"
	"strings"
	"time"

	"referral-deposit-go/internal/models"

	"github.com/shopspring/decimal"
)

// Rejection is a validation failure. It is reported in the operation result,
// never as an error.
type Rejection struct {
	Code    models.RejectionCode
	Message string
}

func reject(code models.RejectionCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidateDepositAmount applies the amount checks in order: positive,
// at least the minimum, covered by the balance.
func ValidateDepositAmount(amount, minimum, balance decimal.Decimal) *Rejection {
	if !amount.IsPositive() {
		return reject(models.RejectInvalidAmount, "Deposit amount must be a positive number")
	}
	if amount.LessThan(minimum) {
		return reject(models.RejectBelowMinimum, "Minimum deposit is $%s", minimum.StringFixed(2))
	}
	if amount.GreaterThan(balance) {
		return reject(models.RejectInsufficientBalance,
			"Insufficient balance: $%s requested, $%s available", amount.StringFixed(2), balance.StringFixed(2))
	}
	return nil
}

// CheckCooldown rejects a new deposit while the previous one is younger than
// the cooldown. A nil previous deposit always passes.
func CheckCooldown(previous *models.Deposit, now time.Time, cooldown time.Duration) *Rejection {
	if previous == nil || cooldown <= 0 {
		return nil
	}
	elapsed := now.Sub(previous.CreatedAt)
	if elapsed >= cooldown {
		return nil
	}
	return reject(models.RejectCooldownActive,
		"A new deposit can be started in %s", FormatWait(cooldown-elapsed))
}

// WithdrawalFee is amount × rate, unrounded
func WithdrawalFee(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate)
}

// InWithdrawalWindow reports whether now falls inside the weekly window,
// evaluated in the window's location. The end hour is exclusive.
func InWithdrawalWindow(now time.Time, w models.WithdrawalConfig) bool {
	loc := w.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return local.Weekday() == w.Weekday && local.Hour() >= w.StartHour && local.Hour() < w.EndHour
}

// WindowDescription renders the window for rejection messages, e.g.
// "Sundays 08:00-20:00 (Europe/Berlin)".
func WindowDescription(w models.WithdrawalConfig) string {
	loc := w.Location
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("%ss %02d:00-%02d:00 (%s)", w.Weekday.String(), w.StartHour, w.EndHour, loc.String())
}

// FormatWait renders a positive duration as days, hours and minutes,
// rounding up to the next minute.
func FormatWait(d time.Duration) string {
	if d <= 0 {
		return "0 minutes"
	}
	minutes := int64((d + time.Minute - 1) / time.Minute)
	days := minutes / (24 * 60)
	hours := (minutes % (24 * 60)) / 60
	mins := minutes % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if mins > 0 {
		parts = append(parts, plural(mins, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
