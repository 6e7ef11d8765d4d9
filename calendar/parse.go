package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseTime normalizes "H", "H:M" or "HH:MM" into 24h "HH:MM". AM maps hour
// 12 to 0, PM adds 12 to hours other than 12. Empty or malformed input, and
// results outside a valid clock time, yield DefaultTime.
func ParseTime(s string, m Meridiem) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTime
	}

	parts := strings.Split(s, ":")

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return DefaultTime
	}

	minute := 0
	if len(parts) > 1 {
		minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return DefaultTime
		}
	}

	switch m {
	case AM:
		if hour == 12 {
			hour = 0
		}
	case PM:
		if hour != 12 {
			hour += 12
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return DefaultTime
	}

	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// ValidateDate returns s normalized to YYYY-MM-DD, or today's date (per now)
// when s is empty or not a valid calendar date.
func ValidateDate(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	if s != "" {
		if d, err := time.Parse(DateLayout, s); err == nil {
			return d.Format(DateLayout)
		}
	}
	return now.Format(DateLayout)
}

// IsDate reports whether s is a valid YYYY-MM-DD date.
func IsDate(s string) bool {
	_, err := time.Parse(DateLayout, strings.TrimSpace(s))
	return err == nil
}

// NewEventID returns "event_" followed by eight hex characters.
func NewEventID() string {
	return "event_" + uuid.NewString()[:8]
}
