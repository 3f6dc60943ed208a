package model

import (
	"fmt"
	"strings"
	"time"
)

// PaymentFrequency is how often rent falls due.
type PaymentFrequency string

const (
	FrequencyWeekly     PaymentFrequency = "weekly"
	FrequencyMonthly    PaymentFrequency = "monthly"
	FrequencyQuarterly  PaymentFrequency = "quarterly"
	FrequencyBiannually PaymentFrequency = "biannually"
	FrequencyAnnually   PaymentFrequency = "annually"
)

// ParseFrequency validates a user-supplied frequency string.
func ParseFrequency(s string) (PaymentFrequency, error) {
	switch PaymentFrequency(strings.ToLower(strings.TrimSpace(s))) {
	case FrequencyWeekly:
		return FrequencyWeekly, nil
	case FrequencyMonthly:
		return FrequencyMonthly, nil
	case FrequencyQuarterly:
		return FrequencyQuarterly, nil
	case FrequencyBiannually:
		return FrequencyBiannually, nil
	case FrequencyAnnually:
		return FrequencyAnnually, nil
	}
	return "", fmt.Errorf("unknown payment frequency %q", s)
}

// months is the period length for month-based frequencies; 0 means
// day-based (weekly).
func (f PaymentFrequency) months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyBiannually:
		return 6
	case FrequencyAnnually:
		return 12
	}
	return 0
}

// NextDueDate computes the last day of the payment period that starts at
// start: advance by one frequency period, clamping the day-of-month to the
// last valid day of the target month, then step back one day. Weekly periods
// use plain day arithmetic.
//
// Jan 31 + monthly lands on Feb 28 (29 in a leap year) before the step back,
// so the due date is Feb 27 (28).
func NextDueDate(start time.Time, f PaymentFrequency) time.Time {
	if f == FrequencyWeekly {
		return start.AddDate(0, 0, 6)
	}
	return addMonthsClamped(start, f.months()).AddDate(0, 0, -1)
}

// addMonthsClamped is AddDate without day overflow: Jan 31 + 1 month is
// Feb 28/29, not Mar 2/3.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	h, min, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), d, h, min, sec, t.Nanosecond(), t.Location())
}
