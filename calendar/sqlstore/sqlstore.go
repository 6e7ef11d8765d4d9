// Package sqlstore is a durable calendar.Store backed by SQLite through GORM.
// It uses the pure-Go glebarez driver, so no cgo toolchain is required.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hupe1980/agronix/calendar"
	"github.com/hupe1980/agronix/logging"
)

// eventRecord is the row layout of calendar_events. Rows are keyed by
// (user_id, id) so event ids only need to be unique per user.
type eventRecord struct {
	UserID          string `gorm:"primaryKey;size:128"`
	ID              string `gorm:"primaryKey;size:32"`
	Title           string `gorm:"not null"`
	Description     string
	Date            string `gorm:"size:10;index"`
	Time            string `gorm:"size:5"`
	Priority        string `gorm:"size:8"`
	CreatedBySystem bool   `gorm:"index"`
	CreatedAt       time.Time
}

func (eventRecord) TableName() string { return "calendar_events" }

func toRecord(userID string, ev calendar.Event) eventRecord {
	return eventRecord{
		UserID:          userID,
		ID:              ev.ID,
		Title:           ev.Title,
		Description:     ev.Description,
		Date:            ev.Date,
		Time:            ev.Time,
		Priority:        string(ev.Priority),
		CreatedBySystem: ev.CreatedBySystem,
		CreatedAt:       ev.CreatedAt,
	}
}

func (r eventRecord) event() calendar.Event {
	return calendar.Event{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Date:            r.Date,
		Time:            r.Time,
		Priority:        calendar.Priority(r.Priority),
		CreatedBySystem: r.CreatedBySystem,
		CreatedAt:       r.CreatedAt,
	}
}

func toEvents(recs []eventRecord) []calendar.Event {
	out := make([]calendar.Event, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.event())
	}
	return out
}

// Options configure a Store.
type Options struct {
	Now    func() time.Time
	Logger logging.Logger
}

// Store implements calendar.Store on a GORM database.
type Store struct {
	db     *gorm.DB
	now    func() time.Time
	logger logging.Logger
}

// Open connects to the SQLite database at dsn (a file path or ":memory:")
// and migrates the schema.
func Open(dsn string, optFns ...func(o *Options)) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite allows a single writer; one connection serializes access.
	sqlDB.SetMaxOpenConns(1)

	return New(db, optFns...)
}

// New wraps an existing GORM handle and migrates the schema.
func New(db *gorm.DB, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := db.AutoMigrate(&eventRecord{}); err != nil {
		return nil, fmt.Errorf("automigrate calendar_events: %w", err)
	}

	return &Store{db: db, now: opts.Now, logger: logging.OrNoOp(opts.Logger)}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) scoped(ctx context.Context, userID string) *gorm.DB {
	return s.db.WithContext(ctx).Where("user_id = ?", userID)
}

func check(ctx context.Context, userID string) error {
	if userID == "" {
		return calendar.ErrMissingUser
	}
	return ctx.Err()
}

// Create implements calendar.Store.
func (s *Store) Create(ctx context.Context, userID string, req calendar.CreateRequest) (calendar.Event, error) {
	if err := check(ctx, userID); err != nil {
		return calendar.Event{}, err
	}

	ev, err := calendar.NewEvent(req, s.now())
	if err != nil {
		return calendar.Event{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			var n int64
			if err := tx.Model(&eventRecord{}).Where("user_id = ? AND id = ?", userID, ev.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				break
			}
			ev.ID = calendar.NewEventID()
		}
		rec := toRecord(userID, ev)
		return tx.Create(&rec).Error
	})
	if err != nil {
		return calendar.Event{}, fmt.Errorf("create event: %w", err)
	}

	s.logger.Info("calendar.event.created", "user_id", userID, "event_id", ev.ID, "system", ev.CreatedBySystem)

	return ev, nil
}

// window loads the user's events within [start, end] ordered by (date, time).
func (s *Store) window(ctx context.Context, userID, start, end string) ([]calendar.Event, error) {
	var recs []eventRecord
	err := s.scoped(ctx, userID).
		Where("date >= ? AND date <= ?", start, end).
		Order("date, time, rowid").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toEvents(recs), nil
}

// Search implements calendar.Store.
func (s *Store) Search(ctx context.Context, userID string, q calendar.SearchQuery) (calendar.SearchResult, error) {
	if err := check(ctx, userID); err != nil {
		return calendar.SearchResult{}, err
	}

	start, end := q.Window(s.now())
	events, err := s.window(ctx, userID, start, end)
	if err != nil {
		return calendar.SearchResult{}, fmt.Errorf("search events: %w", err)
	}

	matched := []calendar.Event{}
	for _, ev := range events {
		if calendar.Matches(ev, q.Query) {
			matched = append(matched, ev)
		}
	}

	res := calendar.SearchResult{Events: matched, Total: len(matched)}
	if len(res.Events) > calendar.MaxSearchResults {
		res.Events = res.Events[:calendar.MaxSearchResults]
	}

	return res, nil
}

// ListForDate implements calendar.Store.
func (s *Store) ListForDate(ctx context.Context, userID, date string) ([]calendar.Event, error) {
	if err := check(ctx, userID); err != nil {
		return nil, err
	}

	date = calendar.ValidateDate(date, s.now())
	events, err := s.window(ctx, userID, date, date)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", date, err)
	}
	return events, nil
}

// Modify implements calendar.Store.
func (s *Store) Modify(ctx context.Context, userID, eventID string, patch calendar.Patch) (calendar.Event, []string, error) {
	if err := check(ctx, userID); err != nil {
		return calendar.Event{}, nil, err
	}

	var (
		updated calendar.Event
		changes []string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec eventRecord
		if err := tx.Where("user_id = ? AND id = ?", userID, eventID).First(&rec).Error; err != nil {
			return err
		}

		var err error
		updated, changes, err = calendar.ApplyPatch(rec.event(), patch, s.now())
		if err != nil {
			return err
		}

		next := toRecord(userID, updated)
		return tx.Save(&next).Error
	})
	if err != nil {
		return calendar.Event{}, nil, mapErr(err)
	}

	s.logger.Info("calendar.event.modified", "user_id", userID, "event_id", eventID, "changes", len(changes))

	return updated, changes, nil
}

// Delete implements calendar.Store.
func (s *Store) Delete(ctx context.Context, userID, eventID string) (calendar.Event, error) {
	if err := check(ctx, userID); err != nil {
		return calendar.Event{}, err
	}

	var removed eventRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND id = ?", userID, eventID).First(&removed).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND id = ?", userID, eventID).Delete(&eventRecord{}).Error
	})
	if err != nil {
		return calendar.Event{}, mapErr(err)
	}

	s.logger.Info("calendar.event.deleted", "user_id", userID, "event_id", eventID)

	return removed.event(), nil
}

// ListUpcoming implements calendar.Store.
func (s *Store) ListUpcoming(ctx context.Context, userID string, daysAhead int) ([]calendar.Event, error) {
	if err := check(ctx, userID); err != nil {
		return nil, err
	}

	start, end := calendar.UpcomingWindow(s.now(), daysAhead)
	events, err := s.window(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	return events, nil
}

// List implements calendar.Store.
func (s *Store) List(ctx context.Context, userID, date string) ([]calendar.Event, error) {
	if err := check(ctx, userID); err != nil {
		return nil, err
	}

	q := s.scoped(ctx, userID)
	if date != "" {
		q = q.Where("date = ?", date)
	}

	var recs []eventRecord
	if err := q.Order("rowid").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return toEvents(recs), nil
}

// Count implements calendar.Store.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	if err := check(ctx, userID); err != nil {
		return 0, err
	}

	var n int64
	if err := s.scoped(ctx, userID).Model(&eventRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return int(n), nil
}

// HasSystemEventOn implements calendar.Store.
func (s *Store) HasSystemEventOn(ctx context.Context, userID, date string) (bool, error) {
	if err := check(ctx, userID); err != nil {
		return false, err
	}

	var n int64
	err := s.scoped(ctx, userID).Model(&eventRecord{}).
		Where("date = ? AND created_by_system = ?", date, true).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check system events: %w", err)
	}
	return n > 0, nil
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return calendar.ErrEventNotFound
	}
	return err
}
