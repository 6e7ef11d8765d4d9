// Package agronix wires the AgroNix components into a ready assistant.
// Most applications either:
//  1. Call New and override individual dependencies (model, calendar store,
//     crop provider, logger) through Options, or
//  2. Call FromConfig with a loaded config.Config, which also picks the model
//     vendor and the calendar backend.
//
// Every unset dependency falls back to a local default: the scripted mock
// model, the in-memory calendar and the simulated crop provider.
package agronix

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agronix/assistant"
	"github.com/hupe1980/agronix/calendar"
	"github.com/hupe1980/agronix/calendar/sqlstore"
	"github.com/hupe1980/agronix/config"
	"github.com/hupe1980/agronix/crop"
	"github.com/hupe1980/agronix/logging"
	"github.com/hupe1980/agronix/model"
	anthropicmodel "github.com/hupe1980/agronix/model/anthropic"
	openaimodel "github.com/hupe1980/agronix/model/openai"
)

// Options configures an AgroNix instance.
type Options struct {
	Model    model.Model
	Store    calendar.Store
	Provider crop.Provider
	Logger   logging.Logger
	Now      func() time.Time

	// CacheTTL is how long a crop snapshot is reused.
	CacheTTL time.Duration

	// Assistant options are applied after the ones derived from this struct.
	Assistant []func(o *assistant.Options)

	// Closers are released by Close in reverse order.
	Closers []io.Closer
}

// AgroNix is the façade over the assistant and its stores.
type AgroNix struct {
	*assistant.Assistant

	store   calendar.Store
	cache   *crop.Cache
	closers []io.Closer
}

// New creates an AgroNix instance. Unset dependencies get local defaults.
func New(optFns ...func(o *Options)) (*AgroNix, error) {
	opts := Options{
		Now:      time.Now,
		CacheTTL: crop.DefaultTTL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Model == nil {
		opts.Model = model.NewMockModel("agronix-mock", config.ProviderMock)
	}
	if opts.Store == nil {
		opts.Store = calendar.NewInMemoryStore(func(o *calendar.MemoryOptions) {
			o.Now = opts.Now
			o.Logger = opts.Logger
		})
	}
	if opts.Provider == nil {
		opts.Provider = crop.NewSimulatedProvider(func(o *crop.SimulatedOptions) { o.Now = opts.Now })
	}

	cache := crop.NewCache(opts.Provider, func(o *crop.CacheOptions) {
		o.TTL = opts.CacheTTL
		o.Now = opts.Now
		o.Logger = opts.Logger
	})

	fns := append([]func(o *assistant.Options){func(o *assistant.Options) {
		o.Now = opts.Now
		o.Logger = opts.Logger
	}}, opts.Assistant...)

	a, err := assistant.New(opts.Model, opts.Store, cache, fns...)
	if err != nil {
		return nil, err
	}

	return &AgroNix{Assistant: a, store: opts.Store, cache: cache, closers: opts.Closers}, nil
}

// FromConfig builds an instance from cfg: logger, model vendor, calendar
// backend and assistant limits.
func FromConfig(cfg *config.Config, optFns ...func(o *Options)) (*AgroNix, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewLogger(cfg.LoggerConfig())

	m, err := NewModel(cfg.Model)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	closers := []io.Closer{logger}

	var store calendar.Store
	if cfg.Calendar.Store == config.StoreSQLite {
		s, err := sqlstore.Open(cfg.Calendar.DSN, func(o *sqlstore.Options) { o.Logger = logger })
		if err != nil {
			_ = logger.Close()
			return nil, err
		}
		store = s
		closers = append(closers, s)
	}

	logger.Info("agronix.configured",
		"model_provider", cfg.Model.Provider,
		"model", m.Info().Name,
		"calendar_store", cfg.Calendar.Store,
	)

	fns := append([]func(o *Options){func(o *Options) {
		o.Model = m
		o.Store = store
		o.Logger = logger
		o.CacheTTL = cfg.Crop.CacheTTL
		o.Closers = closers
		o.Assistant = append(o.Assistant, func(ao *assistant.Options) {
			ao.MaxModelCalls = cfg.Assistant.MaxModelCalls
			ao.ModelTimeout = cfg.Assistant.ModelTimeout
			if cfg.Assistant.CropName != "" {
				ao.CropName = cfg.Assistant.CropName
			}
		})
	}}, optFns...)

	nix, err := New(fns...)
	if err != nil {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
		return nil, err
	}

	return nix, nil
}

// NewModel creates the model adapter selected by cfg.Provider.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderMock, "":
		name := cfg.Name
		if name == "" {
			name = "agronix-mock"
		}
		return model.NewMockModel(name, config.ProviderMock), nil
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Name != "" {
				o.Model = anthropic.Model(cfg.Name)
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// Store returns the calendar store shared by the tools and the generator.
func (n *AgroNix) Store() calendar.Store { return n.store }

// Cache returns the crop snapshot cache.
func (n *AgroNix) Cache() *crop.Cache { return n.cache }

// Close releases the configured closers in reverse order.
func (n *AgroNix) Close() error {
	var errs []error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	n.closers = nil
	return errors.Join(errs...)
}
