// Package calendartool exposes calendar.Store operations as the five tools
// the model may call: create, search, show, modify and delete events.
package calendartool

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agronix/calendar"
	"github.com/hupe1980/agronix/tool"
)

// Tool names.
const (
	CreateName = "create_calendar_event"
	SearchName = "search_calendar_events"
	ShowName   = "show_calendar_events"
	ModifyName = "modify_calendar_event"
	DeleteName = "delete_calendar_event"
)

// CreateArgs are the arguments of create_calendar_event.
type CreateArgs struct {
	Title       string `json:"title" description:"Short task title"`
	Description string `json:"description,omitempty" description:"Task details"`
	Date        string `json:"date,omitempty" description:"Date as YYYY-MM-DD; defaults to today"`
	Time        string `json:"time,omitempty" description:"Start time as HH:MM; defaults to 09:00"`
	Meridiem    string `json:"start_am_pm_or_unknown,omitempty" description:"AM or PM when time is in 12h form, otherwise UNKNOWN"`
	Priority    string `json:"priority,omitempty" description:"One of low, normal, medium, high; defaults to normal"`
}

// SearchArgs are the arguments of search_calendar_events.
type SearchArgs struct {
	Query     string `json:"query,omitempty" description:"Text to find in titles or descriptions; empty matches everything"`
	StartDate string `json:"start_date,omitempty" description:"Window start YYYY-MM-DD; defaults to today"`
	EndDate   string `json:"end_date,omitempty" description:"Window end YYYY-MM-DD; defaults to today plus 30 days"`
}

// ShowArgs are the arguments of show_calendar_events.
type ShowArgs struct {
	Date string `json:"date,omitempty" description:"Date as YYYY-MM-DD; defaults to today"`
}

// ModifyArgs are the arguments of modify_calendar_event. Empty fields are left unchanged.
type ModifyArgs struct {
	EventID     string `json:"event_id" description:"Identifier of the event to change"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty" description:"New date as YYYY-MM-DD"`
	Time        string `json:"time,omitempty" description:"New time as HH:MM"`
	Meridiem    string `json:"start_am_pm_or_unknown,omitempty" enum:"AM,PM,UNKNOWN"`
	Priority    string `json:"priority,omitempty" enum:"low,normal,medium,high"`
}

// DeleteArgs are the arguments of delete_calendar_event.
type DeleteArgs struct {
	EventID string `json:"event_id" description:"Identifier of the event to delete"`
}

// Options configure the calendar tools.
type Options struct {
	Now func() time.Time
}

type tools struct {
	store calendar.Store
	now   func() time.Time
}

// New returns the calendar tools bound to store, in declaration order.
func New(store calendar.Store, optFns ...func(o *Options)) []tool.Tool {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	t := &tools{store: store, now: opts.Now}

	return []tool.Tool{
		tool.NewTyped(CreateName, "Create a task or event in the user's crop calendar.", t.create),
		tool.NewTyped(SearchName, "Search the user's calendar events by text within a date range.", t.search),
		tool.NewTyped(ShowName, "Show all calendar events scheduled on one day.", t.show),
		tool.NewTyped(ModifyName, "Change fields of an existing calendar event.", t.modify),
		tool.NewTyped(DeleteName, "Delete a calendar event.", t.delete),
	}
}

func (t *tools) create(tc *tool.Context, args CreateArgs) (tool.Result, error) {
	ev, err := t.store.Create(tc.Context(), tc.UserID(), calendar.CreateRequest{
		Title:       args.Title,
		Description: args.Description,
		Date:        args.Date,
		Time:        args.Time,
		Meridiem:    calendar.ParseMeridiem(args.Meridiem),
		Priority:    args.Priority,
	})
	if err != nil {
		return tool.Result{}, storeError(CreateName, "", err)
	}

	return tool.Success(
		fmt.Sprintf("✅ Event '%s' scheduled for %s at %s", ev.Title, ev.Date, ev.Time),
		map[string]any{
			"event_id": ev.ID,
			"title":    ev.Title,
			"date":     ev.Date,
			"time":     ev.Time,
			"priority": string(ev.Priority),
		},
	), nil
}

func (t *tools) search(tc *tool.Context, args SearchArgs) (tool.Result, error) {
	res, err := t.store.Search(tc.Context(), tc.UserID(), calendar.SearchQuery{
		Query:     args.Query,
		StartDate: args.StartDate,
		EndDate:   args.EndDate,
	})
	if err != nil {
		return tool.Result{}, storeError(SearchName, "", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Found %d events for '%s'", res.Total, args.Query)
	for _, ev := range res.Events {
		fmt.Fprintf(&b, "\n📅 %s - %s %s", ev.Title, ev.Date, ev.Time)
	}

	return tool.Success(b.String(), map[string]any{
		"events": res.Events,
		"count":  res.Total,
	}), nil
}

func (t *tools) show(tc *tool.Context, args ShowArgs) (tool.Result, error) {
	date := calendar.ValidateDate(args.Date, t.now())

	events, err := t.store.ListForDate(tc.Context(), tc.UserID(), date)
	if err != nil {
		return tool.Result{}, storeError(ShowName, "", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Events for %s: %d found", date, len(events))
	for _, ev := range events {
		fmt.Fprintf(&b, "\n%s %s - %s", ev.Priority.Marker(), ev.Title, ev.Time)
	}

	return tool.Success(b.String(), map[string]any{
		"events": events,
		"count":  len(events),
		"date":   date,
	}), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (t *tools) modify(tc *tool.Context, args ModifyArgs) (tool.Result, error) {
	ev, changes, err := t.store.Modify(tc.Context(), tc.UserID(), args.EventID, calendar.Patch{
		Title:       optional(args.Title),
		Description: optional(args.Description),
		Date:        optional(args.Date),
		Time:        optional(args.Time),
		Meridiem:    calendar.ParseMeridiem(args.Meridiem),
		Priority:    optional(args.Priority),
	})
	if err != nil {
		return tool.Result{}, storeError(ModifyName, args.EventID, err)
	}

	summary := "no changes"
	if len(changes) > 0 {
		summary = strings.Join(changes, ", ")
	}

	return tool.Success(
		fmt.Sprintf("✏️ Event '%s' modified: %s", ev.Title, summary),
		map[string]any{
			"event_id": ev.ID,
			"title":    ev.Title,
			"changes":  summary,
		},
	), nil
}

func (t *tools) delete(tc *tool.Context, args DeleteArgs) (tool.Result, error) {
	ev, err := t.store.Delete(tc.Context(), tc.UserID(), args.EventID)
	if err != nil {
		return tool.Result{}, storeError(DeleteName, args.EventID, err)
	}

	return tool.Success(
		fmt.Sprintf("🗑️ Event '%s' deleted", ev.Title),
		map[string]any{
			"event_id": ev.ID,
			"title":    ev.Title,
		},
	), nil
}

// storeError turns a store failure into a user facing tool error.
func storeError(name, eventID string, err error) error {
	var msg string
	switch {
	case errors.Is(err, calendar.ErrEventNotFound):
		msg = fmt.Sprintf("No event found with ID %s", eventID)
	case errors.Is(err, calendar.ErrInvalidPriority):
		msg = "Invalid priority, use low, normal, medium or high"
	case errors.Is(err, calendar.ErrEmptyTitle):
		msg = "An event title is required"
	case errors.Is(err, calendar.ErrMissingUser):
		msg = "User ID required"
	default:
		msg = fmt.Sprintf("Calendar error: %v", err)
	}
	te := tool.NewToolError(name, msg, tool.CodeExecution)
	te.Details = err.Error()
	return te
}
