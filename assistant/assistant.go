package assistant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/hupe1980/agronix/agronomy"
	"github.com/hupe1980/agronix/autotask"
	"github.com/hupe1980/agronix/calendar"
	"github.com/hupe1980/agronix/calendartool"
	"github.com/hupe1980/agronix/core"
	"github.com/hupe1980/agronix/crop"
	"github.com/hupe1980/agronix/internal/util"
	"github.com/hupe1980/agronix/logging"
	"github.com/hupe1980/agronix/model"
	"github.com/hupe1980/agronix/tool"
)

var (
	// ErrEmptyMessage is returned when the user message is blank.
	ErrEmptyMessage = errors.New("empty message")
	// ErrMissingUser is returned when no user id is supplied.
	ErrMissingUser = errors.New("user id required")
)

// FallbackAnswer is returned when the model produced no text.
const FallbackAnswer = "❓ I couldn't process your request. Could you be more specific?"

// Defaults applied by New.
const (
	DefaultMaxModelCalls = 8
	DefaultModelTimeout  = 30 * time.Second
)

// State is a step of the turn state machine. Transitions are logged under
// "assistant.turn.state".
type State string

const (
	StateAwaitingUserMessage State = "awaiting_user_message"
	StateModelRequested      State = "model_requested"
	StateToolCallPending     State = "tool_call_pending"
	StateTextReady           State = "text_ready"
	StateDone                State = "done"
	StateRejected            State = "rejected"
	StateFailed              State = "failed"
)

// modelRecorder is implemented by loggers that track model call metrics.
type modelRecorder interface {
	LogModelCall(model string, dur time.Duration, success bool, err error)
}

// Options configure an Assistant.
type Options struct {
	Logger logging.Logger
	Now    func() time.Time

	// MaxModelCalls bounds the model requests of one turn, follow-ups included.
	MaxModelCalls int
	// ModelTimeout bounds every single model request.
	ModelTimeout time.Duration

	// Generator overrides the daily task generator built on the store.
	Generator *autotask.Generator
	// Tools overrides the calendar tools bound to the store.
	Tools []tool.Tool

	CropName string
	// Prompt overrides DefaultPrompt; it is executed with PromptData.
	Prompt string
}

// Assistant answers user messages about their crop and calendar.
type Assistant struct {
	model      model.Model
	store      calendar.Store
	cache      *crop.Cache
	generator  *autotask.Generator
	dispatcher *tool.Dispatcher
	prompt     *template.Template
	locks      *util.KeyedMutex
	opts       Options
	logger     logging.Logger
}

// TurnResult is the outcome of one Turn.
type TurnResult struct {
	Answer       string        `json:"response"`
	Snapshot     crop.Snapshot `json:"crop_data"`
	TasksCreated []string      `json:"tasks_created"`
	Actions      []tool.Result `json:"actions,omitempty"`
	ModelCalls   int           `json:"model_calls"`
	Timestamp    time.Time     `json:"timestamp"`
	Failure      *Failure      `json:"failure,omitempty"`
}

// New creates an Assistant on top of m, store and cache.
func New(m model.Model, store calendar.Store, cache *crop.Cache, optFns ...func(o *Options)) (*Assistant, error) {
	if m == nil {
		return nil, errors.New("assistant: model is required")
	}
	if store == nil {
		return nil, errors.New("assistant: calendar store is required")
	}
	if cache == nil {
		return nil, errors.New("assistant: snapshot cache is required")
	}

	opts := Options{
		Now:           time.Now,
		MaxModelCalls: DefaultMaxModelCalls,
		ModelTimeout:  DefaultModelTimeout,
		CropName:      DefaultCropName,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxModelCalls <= 0 {
		opts.MaxModelCalls = DefaultMaxModelCalls
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = DefaultModelTimeout
	}
	if opts.CropName == "" {
		opts.CropName = DefaultCropName
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Generator == nil {
		opts.Generator = autotask.NewGenerator(store, func(o *autotask.Options) {
			o.Now = opts.Now
			o.Logger = opts.Logger
		})
	}
	if opts.Tools == nil {
		opts.Tools = calendartool.New(store, func(o *calendartool.Options) { o.Now = opts.Now })
	}

	dispatcher, err := tool.NewDispatcher(opts.Tools, func(o *tool.DispatcherOptions) { o.Logger = opts.Logger })
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}

	prompt, err := parsePrompt(opts.Prompt)
	if err != nil {
		return nil, fmt.Errorf("assistant: parse prompt: %w", err)
	}

	return &Assistant{
		model:      m,
		store:      store,
		cache:      cache,
		generator:  opts.Generator,
		dispatcher: dispatcher,
		prompt:     prompt,
		locks:      util.NewKeyedMutex(),
		opts:       opts,
		logger:     opts.Logger,
	}, nil
}

// Tools returns the names of the tools offered to the model.
func (a *Assistant) Tools() []string { return a.dispatcher.Names() }

// Turn answers one user message. Only invalid input yields an error; model
// failures are reported through TurnResult.Failure with a fixed answer.
// Turns of the same user are serialized.
func (a *Assistant) Turn(ctx context.Context, userID, message string) (TurnResult, error) {
	message = strings.TrimSpace(message)

	if strings.TrimSpace(userID) == "" {
		a.logger.Warn("assistant.turn.state", "state", StateRejected, "reason", ErrMissingUser.Error())
		return TurnResult{}, ErrMissingUser
	}
	if message == "" {
		a.logger.Warn("assistant.turn.state", "state", StateRejected, "user_id", userID, "reason", ErrEmptyMessage.Error())
		return TurnResult{}, ErrEmptyMessage
	}

	unlock := a.locks.Lock(userID)
	defer unlock()

	t := &turn{
		a:       a,
		userID:  userID,
		id:      core.NewID(),
		limiter: core.NewModelLimiter(a.opts.MaxModelCalls),
	}
	t.state(StateAwaitingUserMessage)

	snap := a.cache.Get(ctx, userID)
	assessment := agronomy.Evaluate(snap)

	tasks, err := a.generator.RunDaily(ctx, userID, snap)
	if err != nil {
		t.log().Warn("assistant.autotask.failed", "error", err.Error(), "created", len(tasks))
	}
	if tasks == nil {
		tasks = []string{}
	}

	res := TurnResult{
		Snapshot:     snap,
		TasksCreated: tasks,
	}

	instructions, err := util.RenderTemplate(a.prompt, newPromptData(a.opts.CropName, snap, assessment, tasks, a.opts.Now()))
	if err == nil {
		t.instructions = instructions
		t.history = []core.Content{core.NewTextContent(core.RoleUser, message)}
		err = t.run(ctx)
	} else {
		err = fmt.Errorf("render instructions: %w", err)
	}

	res.Actions = t.actions
	res.ModelCalls = t.limiter.Count()
	res.Timestamp = a.opts.Now()

	if err != nil {
		res.Failure = newFailure(err)
		res.Answer = res.Failure.Kind.Message()
		t.state(StateFailed, "kind", res.Failure.Kind, "error", err.Error())
		return res, nil
	}

	res.Answer = t.answer.String()
	if strings.TrimSpace(res.Answer) == "" {
		res.Answer = FallbackAnswer
	}
	t.state(StateDone, "model_calls", res.ModelCalls, "actions", len(res.Actions), "tasks_created", len(tasks))

	return res, nil
}

// turn holds the mutable state of a single Turn.
type turn struct {
	a            *Assistant
	userID       string
	id           string
	limiter      *core.ModelLimiter
	instructions string
	history      []core.Content
	actions      []tool.Result
	answer       strings.Builder
}

func (t *turn) log() logging.Logger {
	if sl, ok := t.a.logger.(*logging.StructuredLogger); ok {
		return sl.WithTurn(t.userID, t.id)
	}
	return turnLogger{Logger: t.a.logger, args: []any{"user_id", t.userID, "turn_id", t.id}}
}

func (t *turn) state(s State, kv ...any) {
	t.log().Info("assistant.turn.state", append([]any{"state", s}, kv...)...)
}

func (t *turn) run(ctx context.Context) error {
	resp, err := t.request(ctx)
	if err != nil {
		return err
	}
	return t.process(ctx, resp)
}

// request sends the instructions, the history and the tool definitions to
// the model within the per-call timeout.
func (t *turn) request(ctx context.Context) (model.Response, error) {
	if err := t.limiter.Increment(); err != nil {
		return model.Response{}, err
	}
	t.state(StateModelRequested, "call", t.limiter.Count())

	callCtx, cancel := context.WithTimeout(ctx, t.a.opts.ModelTimeout)
	defer cancel()

	history := make([]core.Content, len(t.history))
	copy(history, t.history)

	start := time.Now()
	respCh, errCh := t.a.model.Generate(callCtx, model.Request{
		Instructions: t.instructions,
		Contents:     history,
		Tools:        t.a.dispatcher.Definitions(),
	})
	resp, err := model.Collect(callCtx, respCh, errCh)

	if rec, ok := t.a.logger.(modelRecorder); ok {
		rec.LogModelCall(t.a.model.Info().Name, time.Since(start), err == nil, err)
	}
	if err != nil {
		return model.Response{}, fmt.Errorf("model call %d: %w", t.limiter.Count(), err)
	}

	return resp, nil
}

// process consumes the parts of resp in order. The whole response joins the
// history, its tool calls are dispatched in model order and all their
// results go back to the model in a single follow-up.
func (t *turn) process(ctx context.Context, resp model.Response) error {
	if len(resp.Content.Parts) == 0 {
		return nil
	}

	if len(resp.Content.FunctionCalls()) > 0 && t.limiter.Remaining() == 0 {
		for _, fc := range resp.Content.FunctionCalls() {
			t.log().Warn("assistant.tool.skipped", "tool", fc.Name, "reason", core.ErrModelBudgetExhausted.Error())
		}
		t.appendText(resp.Content.Parts)
		return nil
	}

	parts := make([]core.Part, len(resp.Content.Parts))
	var responses []core.Part

	for i, part := range resp.Content.Parts {
		switch p := part.(type) {
		case core.TextPart:
			t.appendText([]core.Part{p})
		case core.FunctionCallPart:
			if p.FunctionCall.ID == "" {
				p.FunctionCall.ID = core.NewID()
			}
			responses = append(responses, core.FunctionResponsePart{FunctionResponse: t.call(ctx, p.FunctionCall)})
			part = p
		}
		parts[i] = part
	}

	t.history = append(t.history, core.Content{Role: core.RoleAssistant, Parts: parts})
	if len(responses) == 0 {
		return nil
	}
	t.history = append(t.history, core.Content{Role: core.RoleTool, Parts: responses})

	follow, err := t.request(ctx)
	if err != nil {
		return err
	}
	return t.process(ctx, follow)
}

func (t *turn) appendText(parts []core.Part) {
	for _, part := range parts {
		if p, ok := part.(core.TextPart); ok && p.Text != "" {
			t.state(StateTextReady, "chars", len(p.Text))
			t.answer.WriteString(p.Text)
		}
	}
}

// call dispatches one tool call and returns the response sent to the model.
func (t *turn) call(ctx context.Context, call core.FunctionCall) core.FunctionResponse {
	t.state(StateToolCallPending, "tool", call.Name, "fc_id", call.ID)

	res := t.a.dispatcher.Dispatch(ctx, t.userID, call)
	t.actions = append(t.actions, res)

	fr := core.FunctionResponse{
		ID:       call.ID,
		Name:     call.Name,
		Response: res.JSON(),
	}
	if !res.OK() {
		fr.Error = res.Message
	}
	return fr
}

// turnLogger prefixes every record with the turn's identity.
type turnLogger struct {
	logging.Logger
	args []any
}

func (l turnLogger) Debug(msg string, args ...any) { l.Logger.Debug(msg, slices.Concat(l.args, args)...) }
func (l turnLogger) Info(msg string, args ...any)  { l.Logger.Info(msg, slices.Concat(l.args, args)...) }
func (l turnLogger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, slices.Concat(l.args, args)...) }
func (l turnLogger) Error(msg string, args ...any) { l.Logger.Error(msg, slices.Concat(l.args, args)...) }
