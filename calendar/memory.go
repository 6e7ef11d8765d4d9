package calendar

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/agronix/logging"
)

// MemoryOptions configure an InMemoryStore.
type MemoryOptions struct {
	Now    func() time.Time
	Logger logging.Logger
}

// InMemoryStore keeps events in process memory, one partition per user.
type InMemoryStore struct {
	now    func() time.Time
	logger logging.Logger

	mu         sync.RWMutex
	partitions map[string]*partition
}

type partition struct {
	mu     sync.RWMutex
	events []Event
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(optFns ...func(o *MemoryOptions)) *InMemoryStore {
	opts := MemoryOptions{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &InMemoryStore{
		now:        opts.Now,
		logger:     logging.OrNoOp(opts.Logger),
		partitions: make(map[string]*partition),
	}
}

// partition returns the user's partition, creating it when create is set.
func (s *InMemoryStore) partition(userID string, create bool) *partition {
	s.mu.RLock()
	p, ok := s.partitions[userID]
	s.mu.RUnlock()
	if ok || !create {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.partitions[userID]; !ok {
		p = &partition{}
		s.partitions[userID] = p
	}
	return p
}

func check(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUser
	}
	return ctx.Err()
}

// Create implements Store.
func (s *InMemoryStore) Create(ctx context.Context, userID string, req CreateRequest) (Event, error) {
	if err := check(ctx, userID); err != nil {
		return Event{}, err
	}

	ev, err := NewEvent(req, s.now())
	if err != nil {
		return Event{}, err
	}

	p := s.partition(userID, true)
	p.mu.Lock()
	for p.index(ev.ID) >= 0 {
		ev.ID = NewEventID()
	}
	p.events = append(p.events, ev)
	p.mu.Unlock()

	s.logger.Info("calendar.event.created", "user_id", userID, "event_id", ev.ID, "system", ev.CreatedBySystem)

	return ev, nil
}

// Search implements Store.
func (s *InMemoryStore) Search(ctx context.Context, userID string, q SearchQuery) (SearchResult, error) {
	if err := check(ctx, userID); err != nil {
		return SearchResult{}, err
	}

	start, end := q.Window(s.now())

	matched := s.filter(userID, func(ev Event) bool {
		return InWindow(ev, start, end) && Matches(ev, q.Query)
	})
	SortByDateTime(matched)

	res := SearchResult{Events: matched, Total: len(matched)}
	if len(res.Events) > MaxSearchResults {
		res.Events = res.Events[:MaxSearchResults]
	}

	return res, nil
}

// ListForDate implements Store.
func (s *InMemoryStore) ListForDate(ctx context.Context, userID, date string) ([]Event, error) {
	if err := check(ctx, userID); err != nil {
		return nil, err
	}

	date = ValidateDate(date, s.now())
	events := s.filter(userID, func(ev Event) bool { return ev.Date == date })
	SortByDateTime(events)

	return events, nil
}

// Modify implements Store.
func (s *InMemoryStore) Modify(ctx context.Context, userID, eventID string, patch Patch) (Event, []string, error) {
	if err := check(ctx, userID); err != nil {
		return Event{}, nil, err
	}

	p := s.partition(userID, false)
	if p == nil {
		return Event{}, nil, ErrEventNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.index(eventID)
	if i < 0 {
		return Event{}, nil, ErrEventNotFound
	}

	updated, changes, err := ApplyPatch(p.events[i], patch, s.now())
	if err != nil {
		return Event{}, nil, err
	}
	p.events[i] = updated

	s.logger.Info("calendar.event.modified", "user_id", userID, "event_id", eventID, "changes", len(changes))

	return updated, changes, nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(ctx context.Context, userID, eventID string) (Event, error) {
	if err := check(ctx, userID); err != nil {
		return Event{}, err
	}

	p := s.partition(userID, false)
	if p == nil {
		return Event{}, ErrEventNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.index(eventID)
	if i < 0 {
		return Event{}, ErrEventNotFound
	}

	removed := p.events[i]
	p.events = slices.Delete(p.events, i, i+1)

	s.logger.Info("calendar.event.deleted", "user_id", userID, "event_id", eventID)

	return removed, nil
}

// ListUpcoming implements Store.
func (s *InMemoryStore) ListUpcoming(ctx context.Context, userID string, daysAhead int) ([]Event, error) {
	if err := check(ctx, userID); err != nil {
		return nil, err
	}

	start, end := UpcomingWindow(s.now(), daysAhead)
	events := s.filter(userID, func(ev Event) bool { return InWindow(ev, start, end) })
	SortByDateTime(events)

	return events, nil
}

// List implements Store.
func (s *InMemoryStore) List(ctx context.Context, userID, date string) ([]Event, error) {
	if err := check(ctx, userID); err != nil {
		return nil, err
	}

	return s.filter(userID, func(ev Event) bool { return date == "" || ev.Date == date }), nil
}

// Count implements Store.
func (s *InMemoryStore) Count(ctx context.Context, userID string) (int, error) {
	if err := check(ctx, userID); err != nil {
		return 0, err
	}

	p := s.partition(userID, false)
	if p == nil {
		return 0, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.events), nil
}

// HasSystemEventOn implements Store.
func (s *InMemoryStore) HasSystemEventOn(ctx context.Context, userID, date string) (bool, error) {
	if err := check(ctx, userID); err != nil {
		return false, err
	}

	found := s.filter(userID, func(ev Event) bool { return ev.CreatedBySystem && ev.Date == date })

	return len(found) > 0, nil
}

// filter returns copies of the user's events accepted by keep, in insertion order.
func (s *InMemoryStore) filter(userID string, keep func(Event) bool) []Event {
	out := []Event{}

	p := s.partition(userID, false)
	if p == nil {
		return out
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, ev := range p.events {
		if keep(ev) {
			out = append(out, ev)
		}
	}

	return out
}

func (p *partition) index(eventID string) int {
	return slices.IndexFunc(p.events, func(ev Event) bool { return ev.ID == eventID })
}
