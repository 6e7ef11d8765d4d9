package assistant_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agronix/assistant"
	"github.com/hupe1980/agronix/calendar"
	"github.com/hupe1980/agronix/core"
	"github.com/hupe1980/agronix/crop"
	"github.com/hupe1980/agronix/internal/testutil"
	"github.com/hupe1980/agronix/logging"
	"github.com/hupe1980/agronix/model"
)

type fixture struct {
	clock    *testutil.Clock
	store    *calendar.InMemoryStore
	model    *model.MockModel
	a        *assistant.Assistant
	produced *atomic.Int32
}

func newFixture(t *testing.T, snap crop.Snapshot, optFns ...func(o *assistant.Options)) fixture {
	t.Helper()

	clock := testutil.NewClock(testutil.Date(2025, time.June, 10, 8, 0))
	store := calendar.NewInMemoryStore(func(o *calendar.MemoryOptions) { o.Now = clock.Now })

	produced := &atomic.Int32{}
	provider := crop.ProviderFunc(func(context.Context, string) (crop.Snapshot, error) {
		produced.Add(1)
		return snap, nil
	})
	cache := crop.NewCache(provider, func(o *crop.CacheOptions) { o.Now = clock.Now })

	m := model.NewMockModel("mock-model", "mock")

	fns := append([]func(o *assistant.Options){func(o *assistant.Options) { o.Now = clock.Now }}, optFns...)
	a, err := assistant.New(m, store, cache, fns...)
	require.NoError(t, err)

	return fixture{clock: clock, store: store, model: m, a: a, produced: produced}
}

func dryField() crop.Snapshot {
	return testutil.NewSnapshotBuilder().SoilHumidity(30).Build()
}

func TestNew_RequiresDependencies(t *testing.T) {
	store := calendar.NewInMemoryStore()
	cache := crop.NewCache(crop.NewSimulatedProvider())
	m := model.NewMockModel("m", "mock")

	_, err := assistant.New(nil, store, cache)
	assert.Error(t, err)
	_, err = assistant.New(m, nil, cache)
	assert.Error(t, err)
	_, err = assistant.New(m, store, nil)
	assert.Error(t, err)

	_, err = assistant.New(m, store, cache, func(o *assistant.Options) { o.Prompt = "{{.Broken" })
	assert.Error(t, err)
}

func TestTurn_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t, dryField())
	ctx := context.Background()

	_, err := f.a.Turn(ctx, "u1", "   ")
	assert.ErrorIs(t, err, assistant.ErrEmptyMessage)

	_, err = f.a.Turn(ctx, "", "hello")
	assert.ErrorIs(t, err, assistant.ErrMissingUser)

	assert.Empty(t, f.model.Requests())
	n, err := f.store.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTurn_TextAnswer(t *testing.T) {
	f := newFixture(t, dryField())
	ctx := context.Background()
	f.model.Enqueue(model.TextResponse("Irrigate today."))

	res, err := f.a.Turn(ctx, "u1", "  How is my crop?  ")
	require.NoError(t, err)

	assert.Equal(t, "Irrigate today.", res.Answer)
	assert.Nil(t, res.Failure)
	assert.Equal(t, []string{"🚨 Urgent Irrigation", "👀 Daily Inspection"}, res.TasksCreated)
	assert.Equal(t, 30.0, res.Snapshot.SoilHumidity)
	assert.Equal(t, f.clock.Now(), res.Timestamp)
	assert.Equal(t, 1, res.ModelCalls)

	reqs := f.model.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Len(t, req.Tools, 5)
	require.Len(t, req.Contents, 1)
	assert.Equal(t, core.RoleUser, req.Contents[0].Role)
	assert.Equal(t, "How is my crop?", req.Contents[0].Text())

	assert.Contains(t, req.Instructions, "You are AgroNix")
	assert.Contains(t, req.Instructions, "• Soil humidity: 30.0 % (Low)")
	assert.Contains(t, req.Instructions, "• Conductivity (EC): 0.90 dS/m (Optimal)")
	assert.Contains(t, req.Instructions, "💧 Low soil humidity")
	assert.Contains(t, req.Instructions, "Schedule irrigation immediately")
	assert.Contains(t, req.Instructions, "✅ 🚨 Urgent Irrigation")
	assert.Contains(t, req.Instructions, "✅ 👀 Daily Inspection")
	assert.Contains(t, req.Instructions, "**Last update:** 2025-06-10 08:00:00")
	assert.Contains(t, req.Instructions, "Today is 2025-06-10.")
}

func TestTurn_TasksCreatedOncePerDay(t *testing.T) {
	f := newFixture(t, dryField())
	ctx := context.Background()

	_, err := f.a.Turn(ctx, "u1", "first")
	require.NoError(t, err)

	res, err := f.a.Turn(ctx, "u1", "again")
	require.NoError(t, err)
	assert.Empty(t, res.TasksCreated)
	assert.Equal(t, "Mock response to: again", res.Answer)

	reqs := f.model.Requests()
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[1].Instructions, "🔄 No new tasks were created today")

	events, err := f.a.Events(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, events, 2)

	f.clock.Advance(24 * time.Hour)
	res, err = f.a.Turn(ctx, "u1", "next day")
	require.NoError(t, err)
	assert.Len(t, res.TasksCreated, 2)
}

func TestTurn_HealthyCrop(t *testing.T) {
	f := newFixture(t, testutil.NewSnapshotBuilder().Build())

	res, err := f.a.Turn(context.Background(), "u1", "status?")
	require.NoError(t, err)
	assert.Equal(t, []string{"👀 Daily Inspection"}, res.TasksCreated)

	instructions := f.model.Requests()[0].Instructions
	assert.Contains(t, instructions, "✅ All conditions are normal")
	assert.Contains(t, instructions, "🎯 Keep the current conditions")
}

func TestTurn_ToolCallRoundTrip(t *testing.T) {
	f := newFixture(t, dryField())
	ctx := context.Background()

	f.model.Enqueue(
		model.ToolCallResponse(core.FunctionCall{
			ID:        "call-1",
			Name:      "create_calendar_event",
			Arguments: `{"title":"Irrigate","date":"2025-06-11","time":"7:00","start_am_pm_or_unknown":"AM"}`,
		}),
		model.TextResponse("Scheduled."),
	)

	res, err := f.a.Turn(ctx, "u1", "Schedule irrigation tomorrow at 7am")
	require.NoError(t, err)

	assert.Equal(t, "Scheduled.", res.Answer)
	assert.Equal(t, 2, res.ModelCalls)
	require.Len(t, res.Actions, 1)
	assert.True(t, res.Actions[0].OK())
	assert.Equal(t, "create_calendar_event", res.Actions[0].Action)

	events, err := f.a.Events(ctx, "u1", "2025-06-11")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Irrigate", events[0].Title)
	assert.Equal(t, "07:00", events[0].Time)
	assert.False(t, events[0].CreatedBySystem)

	reqs := f.model.Requests()
	require.Len(t, reqs, 2)
	history := reqs[1].Contents
	require.Len(t, history, 3)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
	require.Len(t, history[1].FunctionCalls(), 1)
	assert.Equal(t, "call-1", history[1].FunctionCalls()[0].ID)

	assert.Equal(t, core.RoleTool, history[2].Role)
	responses := history[2].FunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "call-1", responses[0].ID)
	assert.Equal(t, "create_calendar_event", responses[0].Name)
	assert.Contains(t, responses[0].Text(), "✅ Event 'Irrigate' scheduled for 2025-06-11 at 07:00")
	assert.Contains(t, responses[0].Text(), `"result":"success"`)
}

func TestTurn_TextFollowsPartOrder(t *testing.T) {
	f := newFixture(t, dryField())

	f.model.Enqueue(
		model.Response{Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{
			core.TextPart{Text: "A "},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "show_calendar_events", Arguments: `{}`}},
			core.TextPart{Text: "B "},
		}}},
		model.TextResponse("C"),
	)

	res, err := f.a.Turn(context.Background(), "u1", "what is on today?")
	require.NoError(t, err)
	assert.Equal(t, "A B C", res.Answer)
	require.Len(t, res.Actions, 1)
	assert.Contains(t, res.Actions[0].Message, "📅 Events for 2025-06-10: 2 found")

	history := f.model.Requests()[1].Contents
	require.Len(t, history, 3)
	assert.Len(t, history[1].Parts, 3)
	assert.Equal(t, "A B ", history[1].Text())
}

func TestTurn_SeveralToolCallsInOneResponse(t *testing.T) {
	f := newFixture(t, dryField())
	ctx := context.Background()

	f.model.Enqueue(model.ToolCallResponse(
		core.FunctionCall{ID: "f", Name: "create_calendar_event", Arguments: `{"title":"Fertilize","date":"2025-06-12"}`},
		core.FunctionCall{ID: "p", Name: "create_calendar_event", Arguments: `{"title":"Prune","date":"2025-06-12"}`},
	))
	// Asks for Prune again unless the history already shows that call.
	f.model.EnqueueStep(func(_ context.Context, req model.Request) (model.Response, error) {
		for _, c := range req.Contents {
			for _, fc := range c.FunctionCalls() {
				if strings.Contains(fc.Arguments, "Prune") {
					return model.TextResponse("done"), nil
				}
			}
		}
		return model.ToolCallResponse(core.FunctionCall{ID: "p2", Name: "create_calendar_event", Arguments: `{"title":"Prune","date":"2025-06-12"}`}), nil
	})

	res, err := f.a.Turn(ctx, "u1", "fertilize and prune on the 12th")
	require.NoError(t, err)

	assert.Equal(t, "done", res.Answer)
	assert.Equal(t, 2, res.ModelCalls)
	require.Len(t, res.Actions, 2)
	assert.Contains(t, res.Actions[0].Message, "Fertilize")
	assert.Contains(t, res.Actions[1].Message, "Prune")

	prune, err := f.store.Search(ctx, "u1", calendar.SearchQuery{Query: "prune"})
	require.NoError(t, err)
	assert.Equal(t, 1, prune.Total)

	reqs := f.model.Requests()
	require.Len(t, reqs, 2)
	history := reqs[1].Contents
	require.Len(t, history, 3)
	require.Len(t, history[1].FunctionCalls(), 2)
	responses := history[2].FunctionResponses()
	require.Len(t, responses, 2)
	assert.Equal(t, "f", responses[0].ID)
	assert.Equal(t, "p", responses[1].ID)
}

func TestTurn_FollowUpsKeepEarlierResponses(t *testing.T) {
	f := newFixture(t, dryField())

	f.model.Enqueue(
		model.ToolCallResponse(core.FunctionCall{ID: "a", Name: "show_calendar_events", Arguments: `{}`}),
		model.Response{Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{
			core.TextPart{Text: "Let me check tomorrow too. "},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "b", Name: "show_calendar_events", Arguments: `{"date":"2025-06-11"}`}},
		}}},
		model.TextResponse("All clear."),
	)

	res, err := f.a.Turn(context.Background(), "u1", "what is planned?")
	require.NoError(t, err)
	assert.Equal(t, "Let me check tomorrow too. All clear.", res.Answer)

	history := f.model.Requests()[2].Contents
	require.Len(t, history, 5)
	assert.Equal(t, "a", history[1].FunctionCalls()[0].ID)
	assert.Equal(t, "a", history[2].FunctionResponses()[0].ID)
	assert.Equal(t, "Let me check tomorrow too. ", history[3].Text())
	assert.Equal(t, "b", history[3].FunctionCalls()[0].ID)
	assert.Equal(t, "b", history[4].FunctionResponses()[0].ID)
}

func TestTurn_AssignsMissingCallIDs(t *testing.T) {
	f := newFixture(t, dryField())

	f.model.Enqueue(
		model.ToolCallResponse(core.FunctionCall{Name: "show_calendar_events"}),
		model.TextResponse("ok"),
	)

	_, err := f.a.Turn(context.Background(), "u1", "show")
	require.NoError(t, err)

	history := f.model.Requests()[1].Contents
	callID := history[1].FunctionCalls()[0].ID
	assert.NotEmpty(t, callID)
	assert.Equal(t, callID, history[2].FunctionResponses()[0].ID)
}

func TestTurn_ModelCallBudget(t *testing.T) {
	f := newFixture(t, dryField(), func(o *assistant.Options) { o.MaxModelCalls = 2 })
	ctx := context.Background()

	f.model.Enqueue(
		model.ToolCallResponse(core.FunctionCall{ID: "a", Name: "create_calendar_event", Arguments: `{"title":"Alpha"}`}),
		model.ToolCallResponse(core.FunctionCall{ID: "b", Name: "create_calendar_event", Arguments: `{"title":"Beta"}`}),
		model.TextResponse("never sent"),
	)

	res, err := f.a.Turn(ctx, "u1", "loop")
	require.NoError(t, err)

	assert.Equal(t, 2, res.ModelCalls)
	assert.Len(t, res.Actions, 1)
	assert.Equal(t, assistant.FallbackAnswer, res.Answer)
	assert.Len(t, f.model.Requests(), 2)

	alpha, err := f.store.Search(ctx, "u1", calendar.SearchQuery{Query: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 1, alpha.Total)
	beta, err := f.store.Search(ctx, "u1", calendar.SearchQuery{Query: "beta"})
	require.NoError(t, err)
	assert.Zero(t, beta.Total)
}

func TestTurn_ToolErrorContinuesTurn(t *testing.T) {
	f := newFixture(t, dryField())

	f.model.Enqueue(
		model.ToolCallResponse(core.FunctionCall{ID: "x", Name: "launch_rocket", Arguments: `{}`}),
		model.TextResponse("Sorry, I cannot do that."),
	)

	res, err := f.a.Turn(context.Background(), "u1", "launch")
	require.NoError(t, err)
	assert.Nil(t, res.Failure)
	assert.Equal(t, "Sorry, I cannot do that.", res.Answer)
	require.Len(t, res.Actions, 1)
	assert.False(t, res.Actions[0].OK())
	assert.Equal(t, "❌ Unknown tool: launch_rocket", res.Actions[0].Message)

	responses := f.model.Requests()[1].Contents[2].FunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "❌ Unknown tool: launch_rocket", responses[0].Error)
}

func TestTurn_EmptyAnswerFallsBack(t *testing.T) {
	f := newFixture(t, dryField())
	f.model.Enqueue(model.TextResponse("   "))

	res, err := f.a.Turn(context.Background(), "u1", "hm")
	require.NoError(t, err)
	assert.Equal(t, assistant.FallbackAnswer, res.Answer)
}

func TestTurn_ModelFailure(t *testing.T) {
	f := newFixture(t, dryField())
	f.model.EnqueueError(errors.New("429 Too Many Requests"))

	res, err := f.a.Turn(context.Background(), "u1", "hello")
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.Equal(t, assistant.FailureQuota, res.Failure.Kind)
	assert.Equal(t, assistant.FailureQuota.Message(), res.Answer)
	assert.Len(t, res.TasksCreated, 2)
	assert.Equal(t, 30.0, res.Snapshot.SoilHumidity)
}

func TestTurn_FollowUpFailureKeepsCommittedCalls(t *testing.T) {
	f := newFixture(t, dryField())
	ctx := context.Background()

	f.model.Enqueue(model.ToolCallResponse(core.FunctionCall{ID: "a", Name: "create_calendar_event", Arguments: `{"title":"Alpha"}`}))
	f.model.EnqueueError(errors.New("upstream exploded"))

	res, err := f.a.Turn(ctx, "u1", "create alpha")
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.Equal(t, assistant.FailureInternal, res.Failure.Kind)
	assert.Equal(t, "❌ Internal server error", res.Answer)

	alpha, err := f.store.Search(ctx, "u1", calendar.SearchQuery{Query: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 1, alpha.Total)
}

func TestTurn_ModelTimeout(t *testing.T) {
	f := newFixture(t, dryField(), func(o *assistant.Options) { o.ModelTimeout = 20 * time.Millisecond })
	f.model.EnqueueStep(func(ctx context.Context, _ model.Request) (model.Response, error) {
		<-ctx.Done()
		return model.Response{}, ctx.Err()
	})

	res, err := f.a.Turn(context.Background(), "u1", "slow")
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.Equal(t, assistant.FailureUnavailable, res.Failure.Kind)
	assert.Equal(t, assistant.FailureUnavailable.Message(), res.Answer)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want assistant.FailureKind
	}{
		{errors.New("POST /v1/chat: 404 Not Found"), assistant.FailureConfiguration},
		{errors.New("model gpt-x not found"), assistant.FailureConfiguration},
		{errors.New("blocked: SAFETY"), assistant.FailureSafety},
		{errors.New("QUOTA exceeded"), assistant.FailureQuota},
		{errors.New("RESOURCE_EXHAUSTED"), assistant.FailureQuota},
		{errors.New("rate limit reached"), assistant.FailureQuota},
		{fmt.Errorf("model call 1: %w", context.DeadlineExceeded), assistant.FailureUnavailable},
		{context.Canceled, assistant.FailureUnavailable},
		{errors.New("boom"), assistant.FailureInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, assistant.Classify(tt.err))
			assert.NotEmpty(t, tt.want.Message())
		})
	}

	assert.Equal(t, assistant.FailureKind(""), assistant.Classify(nil))
}

func TestTurn_ConcurrentTurns(t *testing.T) {
	f := newFixture(t, dryField())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for _, user := range []string{"u1", "u2"} {
			wg.Add(1)
			go func(user string, i int) {
				defer wg.Done()
				res, err := f.a.Turn(ctx, user, fmt.Sprintf("message %d", i))
				assert.NoError(t, err)
				assert.Nil(t, res.Failure)
			}(user, i)
		}
	}
	wg.Wait()

	for _, user := range []string{"u1", "u2"} {
		n, err := f.store.Count(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, 2, n, user)
	}
	assert.Len(t, f.model.Requests(), 16)
}

type recordingLogger struct {
	logging.NoOpLogger
	mu     sync.Mutex
	models []string
	tools  []string
}

func (r *recordingLogger) LogModelCall(name string, _ time.Duration, _ bool, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, name)
}

func (r *recordingLogger) LogToolCall(name string, _ time.Duration, _ bool, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = append(r.tools, name)
}

func TestTurn_RecordsCalls(t *testing.T) {
	rec := &recordingLogger{}
	f := newFixture(t, dryField(), func(o *assistant.Options) { o.Logger = rec })

	f.model.Enqueue(
		model.ToolCallResponse(core.FunctionCall{ID: "s", Name: "search_calendar_events", Arguments: `{"query":"irrigation"}`}),
		model.TextResponse("found it"),
	)

	_, err := f.a.Turn(context.Background(), "u1", "find irrigation")
	require.NoError(t, err)

	assert.Equal(t, []string{"mock-model", "mock-model"}, rec.models)
	assert.Equal(t, []string{"search_calendar_events"}, rec.tools)
}

func TestCropReport(t *testing.T) {
	snap := testutil.NewSnapshotBuilder().AirTemperature(30).SoilHumidity(30).Build()
	f := newFixture(t, snap)
	ctx := context.Background()

	report, err := f.a.CropReport(ctx, "u1", false)
	require.NoError(t, err)

	assert.Equal(t, snap, report.Snapshot)
	assert.Equal(t, "High", string(report.Status[crop.AirTemperature]))
	assert.Equal(t, "Low", string(report.Status[crop.SoilHumidity]))
	assert.Equal(t, []string{"🔥 High air temperature", "💧 Low soil humidity"}, report.Alerts)
	assert.Len(t, report.Recommendations, 2)
	assert.Len(t, report.Ranges, 6)
	assert.Equal(t, []crop.Parameter{crop.AirTemperature}, report.Critical)
	assert.Equal(t, f.clock.Now(), report.Timestamp)
	assert.EqualValues(t, 1, f.produced.Load())

	_, err = f.a.CropReport(ctx, "u1", false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.produced.Load())

	_, err = f.a.CropReport(ctx, "u1", true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.produced.Load())

	_, err = f.a.CropReport(ctx, " ", false)
	assert.ErrorIs(t, err, assistant.ErrMissingUser)
}

func TestEventsAndUpcoming(t *testing.T) {
	f := newFixture(t, dryField())
	ctx := context.Background()

	_, err := f.a.Turn(ctx, "u1", "hi")
	require.NoError(t, err)

	events, err := f.a.Events(ctx, "u1", "2025-06-10")
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.True(t, events[0].CreatedBySystem)

	events, err = f.a.Events(ctx, "u1", "2025-06-11")
	require.NoError(t, err)
	assert.Empty(t, events)

	upcoming, err := f.a.Upcoming(ctx, "u1", 7)
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)

	_, err = f.a.Events(ctx, "", "")
	assert.ErrorIs(t, err, assistant.ErrMissingUser)
}
