package calendartool_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agronix/calendar"
	"github.com/hupe1980/agronix/calendartool"
	"github.com/hupe1980/agronix/core"
	"github.com/hupe1980/agronix/internal/testutil"
	"github.com/hupe1980/agronix/tool"
)

type fixture struct {
	store *calendar.InMemoryStore
	disp  *tool.Dispatcher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clock := testutil.NewClock(testutil.Date(2025, time.June, 10, 8, 0))
	store := calendar.NewInMemoryStore(func(o *calendar.MemoryOptions) { o.Now = clock.Now })
	disp, err := tool.NewDispatcher(calendartool.New(store, func(o *calendartool.Options) { o.Now = clock.Now }))
	require.NoError(t, err)
	return fixture{store: store, disp: disp}
}

func (f fixture) call(user, name string, args map[string]any) tool.Result {
	raw, _ := json.Marshal(args)
	return f.disp.Dispatch(context.Background(), user, core.FunctionCall{ID: core.NewID(), Name: name, Arguments: string(raw)})
}

func TestDefinitions(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{
		calendartool.CreateName,
		calendartool.SearchName,
		calendartool.ShowName,
		calendartool.ModifyName,
		calendartool.DeleteName,
	}, f.disp.Names())

	for _, def := range f.disp.Definitions() {
		assert.NotEmpty(t, def.Function.Description)
		assert.Equal(t, "object", def.Function.Parameters["type"])
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	res := f.call("u1", calendartool.CreateName, map[string]any{
		"title":                  "Irrigate",
		"date":                   "2025-06-11",
		"time":                   "4:30",
		"start_am_pm_or_unknown": "PM",
		"priority":               "high",
	})
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "✅ Event 'Irrigate' scheduled for 2025-06-11 at 16:30", res.Message)
	assert.Equal(t, "high", res.Details["priority"])
	assert.Equal(t, calendartool.CreateName, res.Action)

	res = f.call("u1", calendartool.CreateName, map[string]any{"title": "Scout", "priority": "whenever"})
	require.True(t, res.OK())
	assert.Equal(t, "✅ Event 'Scout' scheduled for 2025-06-10 at 09:00", res.Message)
	assert.Equal(t, "normal", res.Details["priority"])

	events, err := f.store.List(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.False(t, events[0].CreatedBySystem)
}

func TestCreate_Errors(t *testing.T) {
	f := newFixture(t)

	res := f.call("u1", calendartool.CreateName, map[string]any{})
	assert.False(t, res.OK())
	assert.Contains(t, res.Message, "❌ Invalid arguments for create_calendar_event")

	res = f.call("u1", calendartool.CreateName, map[string]any{"title": "  "})
	assert.Equal(t, "❌ An event title is required", res.Message)

	res = f.call("", calendartool.CreateName, map[string]any{"title": "x"})
	assert.Equal(t, "❌ User ID required", res.Message)

	n, err := f.store.Count(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 6; i++ {
		f.call("u1", calendartool.CreateName, map[string]any{"title": fmt.Sprintf("Irrigate %d", i), "time": fmt.Sprintf("%02d:00", 10+i)})
	}

	res := f.call("u1", calendartool.SearchName, map[string]any{"query": "irrigate"})
	require.True(t, res.OK())
	lines := strings.Split(res.Message, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "🔍 Found 6 events for 'irrigate'", lines[0])
	assert.Equal(t, "📅 Irrigate 0 - 2025-06-10 10:00", lines[1])
	assert.Equal(t, 6, res.Details["count"])

	res = f.call("u1", calendartool.SearchName, map[string]any{})
	assert.True(t, strings.HasPrefix(res.Message, "🔍 Found 6 events for ''"))

	res = f.call("u2", calendartool.SearchName, map[string]any{"query": "irrigate"})
	assert.Equal(t, "🔍 Found 0 events for 'irrigate'", res.Message)
}

func TestShow(t *testing.T) {
	f := newFixture(t)
	f.call("u1", calendartool.CreateName, map[string]any{"title": "Fertilize", "time": "11:00", "priority": "medium"})
	f.call("u1", calendartool.CreateName, map[string]any{"title": "Scout", "time": "07:00", "priority": "high"})
	f.call("u1", calendartool.CreateName, map[string]any{"title": "Tidy", "time": "15:00", "priority": "low"})
	f.call("u1", calendartool.CreateName, map[string]any{"title": "Check", "time": "16:00"})

	res := f.call("u1", calendartool.ShowName, map[string]any{})
	require.True(t, res.OK())
	assert.Equal(t, "📅 Events for 2025-06-10: 4 found\n🔴 Scout - 07:00\n🟡 Fertilize - 11:00\n⚪ Tidy - 15:00\n🟢 Check - 16:00", res.Message)

	res = f.call("u1", calendartool.ShowName, map[string]any{"date": "2025-07-01"})
	assert.Equal(t, "📅 Events for 2025-07-01: 0 found", res.Message)
}

func TestModify(t *testing.T) {
	f := newFixture(t)
	created := f.call("u1", calendartool.CreateName, map[string]any{"title": "Irrigate"})
	id := created.Details["event_id"].(string)

	res := f.call("u1", calendartool.ModifyName, map[string]any{"event_id": id, "title": "Irrigate north", "time": "18:15"})
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "✏️ Event 'Irrigate north' modified: title: Irrigate north, time: 18:15", res.Message)

	res = f.call("u1", calendartool.ModifyName, map[string]any{"event_id": id})
	assert.Equal(t, "✏️ Event 'Irrigate north' modified: no changes", res.Message)

	res = f.call("u1", calendartool.ModifyName, map[string]any{"event_id": "event_00000000", "title": "x"})
	assert.Equal(t, "❌ No event found with ID event_00000000", res.Message)

	res = f.call("u1", calendartool.ModifyName, map[string]any{"event_id": id, "priority": "urgent"})
	assert.False(t, res.OK())
	assert.Contains(t, res.Message, "❌ Invalid arguments")

	res = f.call("u2", calendartool.ModifyName, map[string]any{"event_id": id, "title": "mine"})
	assert.Equal(t, fmt.Sprintf("❌ No event found with ID %s", id), res.Message)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	created := f.call("u1", calendartool.CreateName, map[string]any{"title": "Irrigate"})
	id := created.Details["event_id"].(string)

	res := f.call("u1", calendartool.DeleteName, map[string]any{"event_id": id})
	require.True(t, res.OK())
	assert.Equal(t, "🗑️ Event 'Irrigate' deleted", res.Message)

	res = f.call("u1", calendartool.DeleteName, map[string]any{"event_id": id})
	assert.Equal(t, fmt.Sprintf("❌ No event found with ID %s", id), res.Message)
}

func TestMalformedArguments(t *testing.T) {
	f := newFixture(t)
	res := f.disp.Dispatch(context.Background(), "u1", core.FunctionCall{Name: calendartool.CreateName, Arguments: "{not json"})
	assert.False(t, res.OK())
	assert.True(t, strings.HasPrefix(res.Message, "❌ Invalid arguments for create_calendar_event"))
}
