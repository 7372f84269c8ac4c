package spend

import (
	"errors"
	"fmt"
)

// Config contains the spending and rate limits for one account.
//
// A zero limit means "unlimited" for that field. Set limits must be
// positive, and at least one of the six limit fields must be set: a limit
// row that limits nothing is a configuration error.
type Config struct {
	// DailyLimit is the calendar-day spending limit in USD (0 = unlimited).
	DailyLimit float64 `yaml:"daily_limit"`

	// WeeklyLimit is the ISO-week spending limit in USD (0 = unlimited).
	WeeklyLimit float64 `yaml:"weekly_limit"`

	// MonthlyLimit is the calendar-month spending limit in USD (0 = unlimited).
	MonthlyLimit float64 `yaml:"monthly_limit"`

	// RequestsPerMinute is the rolling one-minute request limit (0 = unlimited).
	RequestsPerMinute int64 `yaml:"requests_per_minute"`

	// RequestsPerHour is the rolling one-hour request limit (0 = unlimited).
	RequestsPerHour int64 `yaml:"requests_per_hour"`

	// RequestsPerDay is the calendar-day request limit (0 = unlimited).
	RequestsPerDay int64 `yaml:"requests_per_day"`

	// RateLimitEnabled gates all request-rate accounting and checks.
	RateLimitEnabled bool `yaml:"rate_limit_enabled"`

	// Enabled gates spend-limit enforcement. Spending is still recorded
	// while disabled so that re-enabling picks up accurate totals.
	Enabled bool `yaml:"enabled"`

	// NotificationEmails receives threshold-crossing notifications.
	NotificationEmails []string `yaml:"notification_emails"`
}

// ErrNoLimitsConfigured is returned when a spending limit sets none of the
// six limit fields.
var ErrNoLimitsConfigured = errors.New("spending limit must set at least one limit field")

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.DailyLimit < 0 || c.WeeklyLimit < 0 || c.MonthlyLimit < 0 {
		return fmt.Errorf("spending limits must not be negative")
	}
	if c.RequestsPerMinute < 0 || c.RequestsPerHour < 0 || c.RequestsPerDay < 0 {
		return fmt.Errorf("request limits must not be negative")
	}

	if c.DailyLimit == 0 && c.WeeklyLimit == 0 && c.MonthlyLimit == 0 &&
		c.RequestsPerMinute == 0 && c.RequestsPerHour == 0 && c.RequestsPerDay == 0 {
		return ErrNoLimitsConfigured
	}

	return nil
}
