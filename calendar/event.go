package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Layouts used for stored dates and times.
const (
	DateLayout  = "2006-01-02"
	TimeLayout  = "15:04"
	DefaultTime = "09:00"
)

// Priority ranks an event.
type Priority string

// Priorities.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority parses a case-insensitive priority name.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityNormal, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
}

// Marker returns the colored marker used when listing events.
func (p Priority) Marker() string {
	switch p {
	case PriorityHigh:
		return "🔴"
	case PriorityMedium:
		return "🟡"
	case PriorityLow:
		return "⚪"
	default:
		return "🟢"
	}
}

// Event is one calendar entry.
type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Priority        Priority  `json:"priority"`
	CreatedBySystem bool      `json:"created_by_system"`
	CreatedAt       time.Time `json:"created_at"`
}

// Meridiem qualifies a clock time supplied in 12h form.
type Meridiem string

// Meridiem values.
const (
	AM      Meridiem = "AM"
	PM      Meridiem = "PM"
	Unknown Meridiem = "UNKNOWN"
)

// ParseMeridiem maps free text to a Meridiem, defaulting to Unknown.
func ParseMeridiem(s string) Meridiem {
	switch Meridiem(strings.ToUpper(strings.TrimSpace(s))) {
	case AM:
		return AM
	case PM:
		return PM
	default:
		return Unknown
	}
}
