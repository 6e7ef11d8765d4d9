package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/hupe1980/agronix/agronomy"
	"github.com/hupe1980/agronix/calendar"
	"github.com/hupe1980/agronix/crop"
)

// CropReport is the evaluated state of a user's crop.
type CropReport struct {
	Snapshot        crop.Snapshot                               `json:"crop_data"`
	Status          map[crop.Parameter]agronomy.Status          `json:"status_summary"`
	Alerts          []string                                    `json:"alerts"`
	Recommendations []string                                    `json:"recommendations"`
	Ranges          map[crop.Parameter]agronomy.ThresholdRange `json:"optimal_ranges"`
	Critical        []crop.Parameter                            `json:"critical"`
	Timestamp       time.Time                                   `json:"timestamp"`
}

// CropReport evaluates the user's current snapshot. With refresh set the
// cached snapshot is discarded and reloaded first.
func (a *Assistant) CropReport(ctx context.Context, userID string, refresh bool) (CropReport, error) {
	if strings.TrimSpace(userID) == "" {
		return CropReport{}, ErrMissingUser
	}

	var snap crop.Snapshot
	if refresh {
		snap = a.cache.Refresh(ctx, userID)
		a.logger.Info("assistant.crop.refreshed", "user_id", userID)
	} else {
		snap = a.cache.Get(ctx, userID)
	}

	assessment := agronomy.Evaluate(snap)

	return CropReport{
		Snapshot:        snap,
		Status:          agronomy.Summarize(snap),
		Alerts:          assessment.Alerts,
		Recommendations: assessment.Recommendations,
		Ranges:          agronomy.Ranges(),
		Critical:        agronomy.Critical(snap),
		Timestamp:       a.opts.Now(),
	}, nil
}

// Events lists the user's events in insertion order, only those on date
// when it is not empty.
func (a *Assistant) Events(ctx context.Context, userID, date string) ([]calendar.Event, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	return a.store.List(ctx, userID, date)
}

// Upcoming lists the user's events from today through daysAhead days.
func (a *Assistant) Upcoming(ctx context.Context, userID string, daysAhead int) ([]calendar.Event, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	return a.store.ListUpcoming(ctx, userID, daysAhead)
}
