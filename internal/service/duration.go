package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const maxDayMinutes = 24 * 60

var (
	clockPattern   = regexp.MustCompile(`^(\d{1,2}):([0-5]\d)$`)
	decimalPattern = regexp.MustCompile(`^\d+(\.\d+)?$|^\.\d+$`)
	sixty          = decimal.NewFromInt(60)
)

// ParseDayMinutes parses an adjustment value. Accepted forms are "H:MM" and
// decimal hours ("7.5", "8"). A nil or blank value returns (nil, nil), which
// means "clear the override".
func ParseDayMinutes(raw *string) (*int, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, nil
	}

	var minutes int
	switch {
	case clockPattern.MatchString(s):
		m := clockPattern.FindStringSubmatch(s)
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		minutes = h*60 + mm
	case decimalPattern.MatchString(s):
		hours, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		m := hours.Mul(sixty).Round(0)
		if m.IsNegative() || m.GreaterThan(decimal.NewFromInt(maxDayMinutes)) {
			return nil, fmt.Errorf("%w: %q exceeds 24 hours", ErrInvalidDuration, s)
		}
		minutes = int(m.IntPart())
	default:
		return nil, fmt.Errorf("%w: %q is neither H:MM nor decimal hours", ErrInvalidDuration, s)
	}

	if minutes > maxDayMinutes {
		return nil, fmt.Errorf("%w: %q exceeds 24 hours", ErrInvalidDuration, s)
	}
	return &minutes, nil
}

// FormatMinutes renders minutes as H:MM.
func FormatMinutes(m int) string {
	sign := ""
	if m < 0 {
		sign, m = "-", -m
	}
	return fmt.Sprintf("%s%d:%02d", sign, m/60, m%60)
}
