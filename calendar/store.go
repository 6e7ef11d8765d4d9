package calendar

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Sentinel errors returned by Store implementations.
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrEmptyTitle      = errors.New("event title must not be empty")
	ErrMissingUser     = errors.New("user id required")
)

// Search defaults.
const (
	MaxSearchResults    = 5
	DefaultSearchDays   = 30
	DefaultUpcomingDays = 7
)

// CreateRequest describes a new event. Zero values select defaults.
type CreateRequest struct {
	Title           string
	Description     string
	Date            string
	Time            string
	Meridiem        Meridiem
	Priority        string
	CreatedBySystem bool
}

// Patch is a partial update. Nil or empty fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Date        *string
	Time        *string
	Meridiem    Meridiem
	Priority    *string
}

// SearchQuery filters events by text within an inclusive date window.
// Empty dates default to today and today+30 days.
type SearchQuery struct {
	Query     string
	StartDate string
	EndDate   string
}

// SearchResult holds at most MaxSearchResults events plus the full match count.
type SearchResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
}

// Store is the per-user event store.
type Store interface {
	Create(ctx context.Context, userID string, req CreateRequest) (Event, error)
	Search(ctx context.Context, userID string, q SearchQuery) (SearchResult, error)
	ListForDate(ctx context.Context, userID, date string) ([]Event, error)
	Modify(ctx context.Context, userID, eventID string, p Patch) (Event, []string, error)
	Delete(ctx context.Context, userID, eventID string) (Event, error)
	ListUpcoming(ctx context.Context, userID string, daysAhead int) ([]Event, error)
	// List returns all events in insertion order, optionally only those on date.
	List(ctx context.Context, userID, date string) ([]Event, error)
	Count(ctx context.Context, userID string) (int, error)
	HasSystemEventOn(ctx context.Context, userID, date string) (bool, error)
}

// NewEvent validates req and builds the event to insert.
func NewEvent(req CreateRequest, now time.Time) (Event, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return Event{}, ErrEmptyTitle
	}

	priority, err := ParsePriority(req.Priority)
	if err != nil {
		priority = PriorityNormal
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = fmt.Sprintf("Scheduled event for %s", title)
	}

	return Event{
		ID:              NewEventID(),
		Title:           title,
		Description:     description,
		Date:            ValidateDate(req.Date, now),
		Time:            ParseTime(req.Time, req.Meridiem),
		Priority:        priority,
		CreatedBySystem: req.CreatedBySystem,
		CreatedAt:       now,
	}, nil
}

// ApplyPatch returns ev with p applied and a human readable list of changes.
// ev is left untouched on error.
func ApplyPatch(ev Event, p Patch, now time.Time) (Event, []string, error) {
	var priority Priority
	if v := given(p.Priority); v != "" {
		parsed, err := ParsePriority(v)
		if err != nil {
			return ev, nil, err
		}
		priority = parsed
	}

	var changes []string

	if v := strings.TrimSpace(given(p.Title)); v != "" {
		ev.Title = v
		changes = append(changes, "title: "+v)
	}
	if v := given(p.Description); v != "" {
		ev.Description = v
		changes = append(changes, "description updated")
	}
	if v := given(p.Date); v != "" {
		ev.Date = ValidateDate(v, now)
		changes = append(changes, "date: "+ev.Date)
	}
	if v := given(p.Time); v != "" {
		ev.Time = ParseTime(v, p.Meridiem)
		changes = append(changes, "time: "+ev.Time)
	}
	if priority != "" {
		ev.Priority = priority
		changes = append(changes, "priority: "+string(priority))
	}

	return ev, changes, nil
}

func given(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Window resolves the inclusive search window of q.
func (q SearchQuery) Window(now time.Time) (string, string) {
	start := now.Format(DateLayout)
	if IsDate(q.StartDate) {
		start = ValidateDate(q.StartDate, now)
	}
	end := now.AddDate(0, 0, DefaultSearchDays).Format(DateLayout)
	if IsDate(q.EndDate) {
		end = ValidateDate(q.EndDate, now)
	}
	return start, end
}

// Matches reports whether ev's title or description contains query (case-insensitive).
func Matches(ev Event, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return strings.Contains(strings.ToLower(ev.Title), q) ||
		strings.Contains(strings.ToLower(ev.Description), q)
}

// InWindow reports whether ev falls within [start, end].
func InWindow(ev Event, start, end string) bool {
	return ev.Date >= start && ev.Date <= end
}

// SortByDateTime orders events by (date, time), keeping insertion order on ties.
func SortByDateTime(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Time, b.Time)
	})
}

// UpcomingWindow returns [today, today+daysAhead]; negative values use DefaultUpcomingDays.
func UpcomingWindow(now time.Time, daysAhead int) (string, string) {
	if daysAhead < 0 {
		daysAhead = DefaultUpcomingDays
	}
	return now.Format(DateLayout), now.AddDate(0, 0, daysAhead).Format(DateLayout)
}
