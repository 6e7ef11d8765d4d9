// Package autotask creates the day's agronomic tasks from a crop snapshot.
//
// The generator runs at most once per user per calendar day: if any
// system-generated event already exists for today, it does nothing.
package autotask

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agronix/agronomy"
	"github.com/hupe1980/agronix/calendar"
	"github.com/hupe1980/agronix/crop"
	"github.com/hupe1980/agronix/internal/util"
	"github.com/hupe1980/agronix/logging"
)

// Rule produces one task when Applies holds for a snapshot.
type Rule struct {
	Title       string
	Priority    calendar.Priority
	Applies     func(crop.Snapshot) bool
	Description func(crop.Snapshot) string
}

func below(p crop.Parameter) func(crop.Snapshot) bool {
	return func(s crop.Snapshot) bool {
		v, _ := s.Value(p)
		return agronomy.Classify(v, p) == agronomy.StatusLow
	}
}

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Title:    "🚨 Urgent Irrigation",
			Priority: calendar.PriorityHigh,
			Applies:  below(crop.SoilHumidity),
			Description: func(s crop.Snapshot) string {
				return fmt.Sprintf("Soil humidity: %.1f%%. Irrigate immediately.", s.SoilHumidity)
			},
		},
		{
			Title:    "🌱 Apply Fertilizer",
			Priority: calendar.PriorityMedium,
			Applies:  below(crop.Conductivity),
			Description: func(s crop.Snapshot) string {
				return fmt.Sprintf("Conductivity: %.2f dS/m. Apply a balanced fertilizer.", s.Conductivity)
			},
		},
		{
			Title:    "🐛 Pest Inspection",
			Priority: calendar.PriorityHigh,
			Applies:  func(s crop.Snapshot) bool { return s.PestRisk == crop.PestRiskHigh },
			Description: func(crop.Snapshot) string {
				return "High pest risk. Inspect the crop and apply treatment if needed."
			},
		},
		{
			Title:    "👀 Daily Inspection",
			Priority: calendar.PriorityNormal,
			Applies:  func(crop.Snapshot) bool { return true },
			Description: func(crop.Snapshot) string {
				return "Review the general state of the crop, leaves and fruit."
			},
		},
	}
}

// Options configure a Generator.
type Options struct {
	Now    func() time.Time
	Logger logging.Logger
	Rules  []Rule
}

// Generator creates daily tasks in a calendar.Store.
type Generator struct {
	store  calendar.Store
	now    func() time.Time
	logger logging.Logger
	rules  []Rule
	locks  *util.KeyedMutex
}

// NewGenerator creates a Generator writing to store.
func NewGenerator(store calendar.Store, optFns ...func(o *Options)) *Generator {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}

	return &Generator{
		store:  store,
		now:    opts.Now,
		logger: logging.OrNoOp(opts.Logger),
		rules:  opts.Rules,
		locks:  util.NewKeyedMutex(),
	}
}

// RunDaily creates today's tasks for userID from snap and returns their
// titles in creation order. It returns no titles when tasks already exist
// for today. On a store failure the titles created so far are returned with
// the error.
func (g *Generator) RunDaily(ctx context.Context, userID string, snap crop.Snapshot) ([]string, error) {
	unlock := g.locks.Lock(userID)
	defer unlock()

	now := g.now()
	today := now.Format(calendar.DateLayout)

	done, err := g.store.HasSystemEventOn(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("check today's tasks: %w", err)
	}
	if done {
		g.logger.Debug("autotask.skipped", "user_id", userID, "date", today)
		return []string{}, nil
	}

	created := []string{}
	for _, r := range g.rules {
		if !r.Applies(snap) {
			continue
		}

		ev, err := g.store.Create(ctx, userID, calendar.CreateRequest{
			Title:           r.Title,
			Description:     r.Description(snap),
			Date:            today,
			Time:            now.Format(calendar.TimeLayout),
			Priority:        string(r.Priority),
			CreatedBySystem: true,
		})
		if err != nil {
			return created, fmt.Errorf("create task %q: %w", r.Title, err)
		}
		created = append(created, ev.Title)
	}

	g.logger.Info("autotask.created", "user_id", userID, "date", today, "count", len(created))

	return created, nil
}
