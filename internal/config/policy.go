package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"referral-deposit-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// PlanPolicy is the optional on-disk overlay for plan parameters. Empty
// fields leave the environment values in place.
type PlanPolicy struct {
	Plan struct {
		DailyRate       string `yaml:"daily_rate"`
		ReferralRate    string `yaml:"referral_rate"`
		MinDeposit      string `yaml:"min_deposit"`
		TermDays        int    `yaml:"term_days"`
		Cooldown        string `yaml:"cooldown"`
		AccrualPolicy   string `yaml:"accrual_policy"`
		AccrualGrace    string `yaml:"accrual_grace"`
		SigningBonus    *bool  `yaml:"signing_bonus"`
		ReturnPrincipal *bool  `yaml:"return_principal"`
	} `yaml:"plan"`
	Withdrawal struct {
		FeeRate   string `yaml:"fee_rate"`
		Weekday   string `yaml:"weekday"`
		StartHour *int   `yaml:"start_hour"`
		EndHour   *int   `yaml:"end_hour"`
		TimeZone  string `yaml:"time_zone"`
	} `yaml:"withdrawal"`
	Schedule struct {
		Accrual string `yaml:"accrual"`
	} `yaml:"schedule"`
}

func LoadPolicy(policyFile string) (*PlanPolicy, error) {
	var policyPath string
	if filepath.IsAbs(policyFile) {
		policyPath = policyFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		policyPath = filepath.Join(wd, policyFile)
	}

	data, err := os.ReadFile(policyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", policyFile, err)
	}

	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (*PlanPolicy, error) {
	var policy PlanPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("unable to parse policy: %w", err)
	}
	return &policy, nil
}

// Apply overlays the non-empty policy fields onto cfg
func (p *PlanPolicy) Apply(cfg *models.Config) error {
	var err error

	if cfg.Plan.DailyRate, err = overlayDecimal("plan.daily_rate", p.Plan.DailyRate, cfg.Plan.DailyRate); err != nil {
		return err
	}
	if cfg.Plan.ReferralRate, err = overlayDecimal("plan.referral_rate", p.Plan.ReferralRate, cfg.Plan.ReferralRate); err != nil {
		return err
	}
	if cfg.Plan.MinDeposit, err = overlayDecimal("plan.min_deposit", p.Plan.MinDeposit, cfg.Plan.MinDeposit); err != nil {
		return err
	}
	if p.Plan.TermDays != 0 {
		cfg.Plan.TermDays = p.Plan.TermDays
	}
	if cfg.Plan.Cooldown, err = overlayDuration("plan.cooldown", p.Plan.Cooldown, cfg.Plan.Cooldown); err != nil {
		return err
	}
	if p.Plan.AccrualPolicy != "" {
		cfg.Plan.AccrualPolicy = models.AccrualPolicy(p.Plan.AccrualPolicy)
	}
	if cfg.Plan.AccrualGrace, err = overlayDuration("plan.accrual_grace", p.Plan.AccrualGrace, cfg.Plan.AccrualGrace); err != nil {
		return err
	}
	if p.Plan.SigningBonus != nil {
		cfg.Plan.SigningBonus = *p.Plan.SigningBonus
	}
	if p.Plan.ReturnPrincipal != nil {
		cfg.Plan.ReturnPrincipal = *p.Plan.ReturnPrincipal
	}

	if cfg.Withdrawal.FeeRate, err = overlayDecimal("withdrawal.fee_rate", p.Withdrawal.FeeRate, cfg.Withdrawal.FeeRate); err != nil {
		return err
	}
	if p.Withdrawal.Weekday != "" {
		if cfg.Withdrawal.Weekday, err = ParseWeekday(p.Withdrawal.Weekday); err != nil {
			return err
		}
	}
	if p.Withdrawal.StartHour != nil {
		cfg.Withdrawal.StartHour = *p.Withdrawal.StartHour
	}
	if p.Withdrawal.EndHour != nil {
		cfg.Withdrawal.EndHour = *p.Withdrawal.EndHour
	}
	if p.Withdrawal.TimeZone != "" {
		loc, err := time.LoadLocation(p.Withdrawal.TimeZone)
		if err != nil {
			return fmt.Errorf("invalid withdrawal.time_zone %q: %w", p.Withdrawal.TimeZone, err)
		}
		cfg.Withdrawal.Location = loc
	}

	if p.Schedule.Accrual != "" {
		cfg.Scheduler.AccrualSpec = p.Schedule.Accrual
	}
	return nil
}

func overlayDecimal(field, value string, current decimal.Decimal) (decimal.Decimal, error) {
	if value == "" {
		return current, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return current, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}

func overlayDuration(field, value string, current time.Duration) (time.Duration, error) {
	if value == "" {
		return current, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return current, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}
