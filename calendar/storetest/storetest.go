// Package storetest is a conformance suite run against every calendar.Store
// implementation so they stay behaviorally identical.
package storetest

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agronix/calendar"
	"github.com/hupe1980/agronix/internal/testutil"
)

// Factory builds an empty store driven by now.
type Factory func(t *testing.T, now func() time.Time) calendar.Store

var idPattern = regexp.MustCompile(`^event_[0-9a-f]{8}$`)

func ptr(s string) *string { return &s }

// Run executes the full suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateDefaults", func(t *testing.T) { testCreateDefaults(t, newStore) })
	t.Run("CreateValidation", func(t *testing.T) { testCreateValidation(t, newStore) })
	t.Run("UserIsolation", func(t *testing.T) { testUserIsolation(t, newStore) })
	t.Run("Search", func(t *testing.T) { testSearch(t, newStore) })
	t.Run("SearchCap", func(t *testing.T) { testSearchCap(t, newStore) })
	t.Run("SearchBoundary", func(t *testing.T) { testSearchBoundary(t, newStore) })
	t.Run("ListForDate", func(t *testing.T) { testListForDate(t, newStore) })
	t.Run("Modify", func(t *testing.T) { testModify(t, newStore) })
	t.Run("ModifyErrors", func(t *testing.T) { testModifyErrors(t, newStore) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore) })
	t.Run("DeleteDuplicateTitles", func(t *testing.T) { testDeleteDuplicateTitles(t, newStore) })
	t.Run("UpcomingCountList", func(t *testing.T) { testUpcomingCountList(t, newStore) })
	t.Run("SystemEvents", func(t *testing.T) { testSystemEvents(t, newStore) })
	t.Run("ConcurrentCreate", func(t *testing.T) { testConcurrentCreate(t, newStore) })
}

func fixedClock() *testutil.Clock {
	return testutil.NewClock(testutil.Date(2025, time.June, 10, 8, 30))
}

func testCreateDefaults(t *testing.T, newStore Factory) {
	clock := fixedClock()
	s := newStore(t, clock.Now)
	ctx := context.Background()

	ev, err := s.Create(ctx, "u1", calendar.CreateRequest{Title: "Irrigate"})
	require.NoError(t, err)

	assert.Regexp(t, idPattern, ev.ID)
	assert.Equal(t, "2025-06-10", ev.Date)
	assert.Equal(t, "09:00", ev.Time)
	assert.Equal(t, calendar.PriorityNormal, ev.Priority)
	assert.Equal(t, "Scheduled event for Irrigate", ev.Description)
	assert.False(t, ev.CreatedBySystem)

	ev, err = s.Create(ctx, "u1", calendar.CreateRequest{
		Title:    "Fertilize",
		Date:     "2025-13-45",
		Time:     "3:15",
		Meridiem: calendar.PM,
		Priority: "HIGH",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", ev.Date)
	assert.Equal(t, "15:15", ev.Time)
	assert.Equal(t, calendar.PriorityHigh, ev.Priority)

	ev, err = s.Create(ctx, "u1", calendar.CreateRequest{Title: "Prune", Priority: "urgent"})
	require.NoError(t, err)
	assert.Equal(t, calendar.PriorityNormal, ev.Priority)
}

func testCreateValidation(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	_, err := s.Create(ctx, "u1", calendar.CreateRequest{Title: "   "})
	assert.ErrorIs(t, err, calendar.ErrEmptyTitle)

	_, err = s.Create(ctx, "", calendar.CreateRequest{Title: "x"})
	assert.ErrorIs(t, err, calendar.ErrMissingUser)

	n, err := s.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testUserIsolation(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	ev, err := s.Create(ctx, "u1", calendar.CreateRequest{Title: "Irrigate"})
	require.NoError(t, err)

	_, _, err = s.Modify(ctx, "u2", ev.ID, calendar.Patch{Title: ptr("hijack")})
	assert.ErrorIs(t, err, calendar.ErrEventNotFound)

	_, err = s.Delete(ctx, "u2", ev.ID)
	assert.ErrorIs(t, err, calendar.ErrEventNotFound)

	res, err := s.Search(ctx, "u2", calendar.SearchQuery{})
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	n, err := s.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testSearch(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	mustCreate(t, s, calendar.CreateRequest{Title: "Irrigation block B", Date: "2025-06-12", Time: "10:00"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Scout", Description: "check IRRIGATION lines", Date: "2025-06-11", Time: "07:00"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Irrigation old", Date: "2025-06-01"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Irrigation far", Date: "2025-08-01"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Harvest", Date: "2025-06-11"})

	res, err := s.Search(ctx, "u1", calendar.SearchQuery{Query: "irrigation"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	assert.Equal(t, "Scout", res.Events[0].Title)
	assert.Equal(t, "Irrigation block B", res.Events[1].Title)

	res, err = s.Search(ctx, "u1", calendar.SearchQuery{Query: "irrigation", StartDate: "2025-05-01", EndDate: "2025-12-31"})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)

	res, err = s.Search(ctx, "u1", calendar.SearchQuery{Query: "irrigation", StartDate: "2025-06-12", EndDate: "2025-06-12"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	res, err = s.Search(ctx, "u1", calendar.SearchQuery{Query: "", StartDate: "not-a-date"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
}

func testSearchBoundary(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	mustCreate(t, s, calendar.CreateRequest{Title: "Spray start", Date: "2025-06-10"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Spray end", Date: "2025-06-20"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Spray after", Date: "2025-06-21"})

	res, err := s.Search(ctx, "u1", calendar.SearchQuery{Query: "spray", StartDate: "2025-06-10", EndDate: "2025-06-20"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	assert.Equal(t, "Spray start", res.Events[0].Title)
	assert.Equal(t, "Spray end", res.Events[1].Title)

	// Default window is today through today+30.
	mustCreate(t, s, calendar.CreateRequest{Title: "Spray day 30", Date: "2025-07-10"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Spray day 31", Date: "2025-07-11"})

	res, err = s.Search(ctx, "u1", calendar.SearchQuery{Query: "spray day"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "Spray day 30", res.Events[0].Title)
}

func testSearchCap(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		mustCreate(t, s, calendar.CreateRequest{Title: fmt.Sprintf("Check %d", i), Time: fmt.Sprintf("%02d:00", 10+i)})
	}

	res, err := s.Search(ctx, "u1", calendar.SearchQuery{Query: "check"})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Total)
	require.Len(t, res.Events, calendar.MaxSearchResults)
	assert.Equal(t, "Check 0", res.Events[0].Title)
}

func testListForDate(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	mustCreate(t, s, calendar.CreateRequest{Title: "Late", Time: "18:00"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Early", Time: "06:30"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Tomorrow", Date: "2025-06-11"})

	events, err := s.ListForDate(ctx, "u1", "2025-06-10")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Early", events[0].Title)
	assert.Equal(t, "Late", events[1].Title)

	events, err = s.ListForDate(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = s.ListForDate(ctx, "u1", "2030-01-01")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func testModify(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	ev := mustCreate(t, s, calendar.CreateRequest{Title: "Irrigate", Priority: "low"})

	updated, changes, err := s.Modify(ctx, "u1", ev.ID, calendar.Patch{
		Title:    ptr("Irrigate sector 2"),
		Time:     ptr("7:30"),
		Meridiem: calendar.PM,
		Priority: ptr("high"),
		Date:     ptr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Irrigate sector 2", updated.Title)
	assert.Equal(t, "19:30", updated.Time)
	assert.Equal(t, calendar.PriorityHigh, updated.Priority)
	assert.Equal(t, ev.Date, updated.Date)
	assert.Equal(t, []string{"title: Irrigate sector 2", "time: 19:30", "priority: high"}, changes)

	events, err := s.List(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, updated, events[0])

	_, changes, err = s.Modify(ctx, "u1", ev.ID, calendar.Patch{})
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func testModifyErrors(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	ev := mustCreate(t, s, calendar.CreateRequest{Title: "Irrigate"})

	_, _, err := s.Modify(ctx, "u1", "event_deadbeef", calendar.Patch{Title: ptr("x")})
	assert.ErrorIs(t, err, calendar.ErrEventNotFound)

	_, _, err = s.Modify(ctx, "u1", ev.ID, calendar.Patch{Title: ptr("changed"), Priority: ptr("urgent")})
	assert.ErrorIs(t, err, calendar.ErrInvalidPriority)

	events, err := s.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "Irrigate", events[0].Title)
}

func testDelete(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	a := mustCreate(t, s, calendar.CreateRequest{Title: "A"})
	b := mustCreate(t, s, calendar.CreateRequest{Title: "B"})

	removed, err := s.Delete(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", removed.Title)

	_, err = s.Delete(ctx, "u1", a.ID)
	assert.ErrorIs(t, err, calendar.ErrEventNotFound)

	events, err := s.List(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, b.ID, events[0].ID)
}

func testDeleteDuplicateTitles(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	first := mustCreate(t, s, calendar.CreateRequest{Title: "Irrigate", Time: "06:00"})
	second := mustCreate(t, s, calendar.CreateRequest{Title: "Irrigate", Time: "18:00"})
	third := mustCreate(t, s, calendar.CreateRequest{Title: "Irrigate", Date: "2025-06-11"})

	removed, err := s.Delete(ctx, "u1", second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, removed.ID)

	events, err := s.List(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, events, 2)

	ids := []string{events[0].ID, events[1].ID}
	assert.ElementsMatch(t, []string{first.ID, third.ID}, ids)
	assert.NotContains(t, ids, second.ID)
}

func testUpcomingCountList(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	mustCreate(t, s, calendar.CreateRequest{Title: "Week", Date: "2025-06-17", Time: "08:00"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Today", Time: "12:00"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Later", Date: "2025-06-18"})
	mustCreate(t, s, calendar.CreateRequest{Title: "Past", Date: "2025-06-09"})

	upcoming, err := s.ListUpcoming(ctx, "u1", 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "Today", upcoming[0].Title)
	assert.Equal(t, "Week", upcoming[1].Title)

	upcoming, err = s.ListUpcoming(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, upcoming, 1)

	n, err := s.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	all, err := s.List(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Week", all[0].Title)

	onDate, err := s.List(ctx, "u1", "2025-06-18")
	require.NoError(t, err)
	require.Len(t, onDate, 1)
	assert.Equal(t, "Later", onDate[0].Title)
}

func testSystemEvents(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	mustCreate(t, s, calendar.CreateRequest{Title: "Manual"})
	has, err := s.HasSystemEventOn(ctx, "u1", "2025-06-10")
	require.NoError(t, err)
	assert.False(t, has)

	mustCreate(t, s, calendar.CreateRequest{Title: "Auto", CreatedBySystem: true})
	has, err = s.HasSystemEventOn(ctx, "u1", "2025-06-10")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasSystemEventOn(ctx, "u1", "2025-06-11")
	require.NoError(t, err)
	assert.False(t, has)
}

func testConcurrentCreate(t *testing.T, newStore Factory) {
	s := newStore(t, fixedClock().Now)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, user := range []string{"u1", "u2"} {
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(user string, i int) {
				defer wg.Done()
				_, err := s.Create(ctx, user, calendar.CreateRequest{Title: fmt.Sprintf("task %d", i)})
				assert.NoError(t, err)
			}(user, i)
		}
	}
	wg.Wait()

	for _, user := range []string{"u1", "u2"} {
		events, err := s.List(ctx, user, "")
		require.NoError(t, err)
		require.Len(t, events, 20)

		seen := map[string]bool{}
		for _, ev := range events {
			assert.False(t, seen[ev.ID], "duplicate id %s", ev.ID)
			seen[ev.ID] = true
		}
	}
}

func mustCreate(t *testing.T, s calendar.Store, req calendar.CreateRequest) calendar.Event {
	t.Helper()
	ev, err := s.Create(context.Background(), "u1", req)
	require.NoError(t, err)
	return ev
}
