package memory

import (
	"context"
	"sort"
	"sync"

	"incentive-token/internal/domain"
	"incentive-token/internal/storage"
)

// EventLog is an in-memory implementation of storage.EventLog.
type EventLog struct {
	mu   sync.RWMutex
	data []*domain.Event
	ids  map[string]bool
}

// NewEventLog creates a new in-memory event log.
func NewEventLog() *EventLog {
	return &EventLog{
		data: make([]*domain.Event, 0),
		ids:  make(map[string]bool),
	}
}

// Append adds an event. Returns ErrDuplicateKey if the event ID exists.
func (s *EventLog) Append(_ context.Context, e *domain.Event) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids[e.ID] {
		return storage.ErrDuplicateKey
	}

	s.data = append(s.data, copyEvent(e))
	s.ids[e.ID] = true
	return nil
}

// AppendBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventLog) AppendBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]bool, len(events))
	for _, e := range events {
		if e == nil || e.ID == "" {
			return storage.ErrInvalidInput
		}
		if s.ids[e.ID] || batch[e.ID] {
			return storage.ErrDuplicateKey
		}
		batch[e.ID] = true
	}

	for _, e := range events {
		s.data = append(s.data, copyEvent(e))
		s.ids[e.ID] = true
	}
	return nil
}

// GetByAccount retrieves events touching the account, ordered by Seq ASC.
func (s *EventLog) GetByAccount(_ context.Context, account domain.Account) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool {
		return e.Caller == account || e.Account == account ||
			e.Sender == account || e.Recipient == account
	}), nil
}

// GetByKind retrieves events of one operation kind, ordered by Seq ASC.
func (s *EventLog) GetByKind(_ context.Context, kind domain.Operation) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool {
		return e.Kind == kind
	}), nil
}

// GetAll retrieves all events, ordered by Seq ASC.
func (s *EventLog) GetAll(_ context.Context) ([]*domain.Event, error) {
	return s.filter(func(*domain.Event) bool { return true }), nil
}

func (s *EventLog) filter(keep func(*domain.Event) bool) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Event, 0)
	for _, e := range s.data {
		if keep(e) {
			result = append(result, copyEvent(e))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result
}

func copyEvent(e *domain.Event) *domain.Event {
	c := *e
	if e.Memo != nil {
		m := *e.Memo
		c.Memo = &m
	}
	if e.URI != nil {
		u := *e.URI
		c.URI = &u
	}
	return &c
}

var _ storage.EventLog = (*EventLog)(nil)
