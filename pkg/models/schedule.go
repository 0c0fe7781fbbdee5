package models

import (
	"fmt"
	"os"
	"time"

	"github.com/slatedata/querykit/pkg/apperrors"
)

// Frequency is a schedule's recurrence shape.
type Frequency string

const (
	FreqDaily   Frequency = "Daily"
	FreqWeekly  Frequency = "Weekly"
	FreqMonthly Frequency = "Monthly"
)

// Cadence is when a schedule fires: a frequency, its day selector, and a
// time of day. DayOfWeek is 0=Sunday..6=Saturday (matching time.Weekday);
// DayOfMonth is 1-31.
type Cadence struct {
	Frequency  Frequency `json:"frequency"`
	DayOfWeek  *int      `json:"day_of_week,omitempty"`
	DayOfMonth *int      `json:"day_of_month,omitempty"`
	Hour       int       `json:"hour"`
	Minute     int       `json:"minute"`
}

func (c *Cadence) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: time of day %02d:%02d", apperrors.ErrValidation, c.Hour, c.Minute)
	}
	switch c.Frequency {
	case FreqDaily:
	case FreqWeekly:
		if c.DayOfWeek == nil || *c.DayOfWeek < 0 || *c.DayOfWeek > 6 {
			return fmt.Errorf("%w: weekly schedule needs a day of week 0-6", apperrors.ErrValidation)
		}
	case FreqMonthly:
		if c.DayOfMonth == nil || *c.DayOfMonth < 1 || *c.DayOfMonth > 31 {
			return fmt.Errorf("%w: monthly schedule needs a day of month 1-31", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: frequency %q", apperrors.ErrValidation, c.Frequency)
	}
	return nil
}

// Describe renders the cadence the way it is shown to users,
// e.g. "every Monday at 06:30".
func (c *Cadence) Describe() string {
	at := fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
	switch c.Frequency {
	case FreqWeekly:
		if c.DayOfWeek != nil {
			return fmt.Sprintf("every %s at %s", time.Weekday(*c.DayOfWeek), at)
		}
	case FreqMonthly:
		if c.DayOfMonth != nil {
			return fmt.Sprintf("on day %d of each month at %s", *c.DayOfMonth, at)
		}
	}
	return "every day at " + at
}

// Schedule binds a query snapshot to a cadence and an output location.
// Name is the unique key; saving an identical name updates in place.
// Query is a deep copy taken at save time, never a live reference.
type Schedule struct {
	Name          string          `json:"name"`
	Query         QueryDefinition `json:"query"`
	Cadence       Cadence         `json:"cadence"`
	OutputDir     string          `json:"output_dir"`
	OutputPattern string          `json:"output_pattern"`
}

// Validate checks everything that must hold before any network or trigger
// work happens: name, pattern, cadence, an existing writable output
// directory, and a runnable query snapshot.
func (s *Schedule) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: schedule name is empty", apperrors.ErrValidation)
	}
	if s.OutputPattern == "" {
		return fmt.Errorf("%w: output pattern is empty", apperrors.ErrValidation)
	}
	info, err := os.Stat(s.OutputDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: output directory %q does not exist", apperrors.ErrValidation, s.OutputDir)
	}
	// Probe writability now so a read-only directory is rejected at save
	// time instead of at the first fire.
	probe, err := os.CreateTemp(s.OutputDir, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("%w: output directory %q is not writable", apperrors.ErrValidation, s.OutputDir)
	}
	probe.Close()
	os.Remove(probe.Name())
	if err := s.Cadence.Validate(); err != nil {
		return err
	}
	return s.Query.Validate()
}

// Clone returns a deep, detached copy.
func (s *Schedule) Clone() Schedule {
	c := *s
	c.Query = s.Query.Clone()
	if s.Cadence.DayOfWeek != nil {
		d := *s.Cadence.DayOfWeek
		c.Cadence.DayOfWeek = &d
	}
	if s.Cadence.DayOfMonth != nil {
		d := *s.Cadence.DayOfMonth
		c.Cadence.DayOfMonth = &d
	}
	return c
}
