// Package memory is a process-local storage.Store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"maks/internal/core"
	"maks/internal/storage"
)

type userData struct {
	entries    map[string]storage.Document
	months     map[core.MonthKey][]byte
	correction []byte
	sentinel   []byte
	audit      []storage.AuditEvent
}

type Store struct {
	mu      sync.Mutex
	users   map[string]*userData
	auditID map[string]struct{}
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   map[string]*userData{},
		auditID: map[string]struct{}{},
	}
}

// user returns the bucket for id, creating it. Callers hold s.mu.
func (s *Store) user(id string) *userData {
	u, ok := s.users[id]
	if !ok {
		u = &userData{
			entries: map[string]storage.Document{},
			months:  map[core.MonthKey][]byte{},
		}
		s.users[id] = u
	}
	return u
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (s *Store) PutEntry(_ context.Context, userID string, doc storage.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.Body = clone(doc.Body)
	s.user(userID).entries[doc.ID] = doc
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if _, ok := u.entries[id]; !ok {
		return fmt.Errorf("entry %s: %w", id, storage.ErrNotFound)
	}
	delete(u.entries, id)
	return nil
}

// ListEntries returns documents newest first, ties broken by descending ID
// to match the SQLite ordering.
func (s *Store) ListEntries(_ context.Context, userID string) ([]storage.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	out := make([]storage.Document, 0, len(u.entries))
	for _, d := range u.entries {
		d.Body = clone(d.Body)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetMonth(_ context.Context, userID string, key core.MonthKey) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.user(userID).months[key]), nil
}

func (s *Store) PutMonth(_ context.Context, userID string, key core.MonthKey, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).months[key] = clone(body)
	return nil
}

func (s *Store) ListMonths(_ context.Context, userID string) (map[core.MonthKey][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	out := make(map[core.MonthKey][]byte, len(u.months))
	for k, v := range u.months {
		out[k] = clone(v)
	}
	return out, nil
}

func (s *Store) GetCorrection(_ context.Context, userID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.user(userID).correction), nil
}

func (s *Store) PutCorrection(_ context.Context, userID string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).correction = clone(raw)
	return nil
}

func (s *Store) GetSentinel(_ context.Context, userID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.user(userID).sentinel), nil
}

func (s *Store) PutSentinel(_ context.Context, userID string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).sentinel = clone(doc)
	return nil
}

func (s *Store) AppendAudit(_ context.Context, ev storage.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.auditID[ev.EventID]; seen {
		return nil
	}
	s.auditID[ev.EventID] = struct{}{}
	u := s.user(ev.UserID)
	u.audit = append(u.audit, ev)
	return nil
}

// ListAudit returns the most recent events first.
func (s *Store) ListAudit(_ context.Context, userID string, limit int) ([]storage.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	events := s.user(userID).audit
	out := make([]storage.AuditEvent, 0, min(limit, len(events)))
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, events[i])
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
