// Package memory provides in-process implementations of the gateway stores.
// They back STORE_BACKEND=memory for local development and the handler tests;
// state is lost on restart and is not shared between processes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/adminguard/internal/models"
)

// SessionStore keeps sessions in a map keyed by session id
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]models.Session)}
}

func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.SessionID]; exists {
		return models.ErrConflict
	}
	s.sessions[session.SessionID] = *session
	return nil
}

func (s *SessionStore) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &session, nil
}

func (s *SessionStore) UpdateLastActivity(ctx context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return models.ErrNotFound
	}
	session.LastActivity = at
	s.sessions[sessionID] = session
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// AuditStore is an append-only slice of audit events
type AuditStore struct {
	mu     sync.RWMutex
	events []models.AuditEvent
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Create(ctx context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *event
	if event.Details != nil {
		e.Details = make(models.AuditMetadata, len(event.Details))
		for k, v := range event.Details {
			e.Details[k] = v
		}
	}
	s.events = append(s.events, e)
	return nil
}

func (s *AuditStore) CountByTypeAndIPSince(ctx context.Context, ip string, actionType models.ActionType, since time.Time) (int, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.events {
		if e.UserIP == ip && e.ActionType == actionType && e.Timestamp.After(since) && e.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (s *AuditStore) ListByIP(ctx context.Context, ip string, limit int) ([]*models.AuditEvent, error) {
	s.mu.RLock()
	matched := make([]*models.AuditEvent, 0)
	// walk newest first so ties on timestamp list the latest write first
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].UserIP == ip {
			e := s.events[i]
			matched = append(matched, &e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *AuditStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	var n int64
	for _, e := range s.events {
		if e.ExpiresAt.After(now) {
			kept = append(kept, e)
		} else {
			n++
		}
	}
	s.events = kept
	return n, nil
}

// Events returns a copy of every stored event in insertion order
func (s *AuditStore) Events() []models.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

// CountType returns how many events of actionType have been recorded
func (s *AuditStore) CountType(actionType models.ActionType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.events {
		if e.ActionType == actionType {
			n++
		}
	}
	return n
}

type windowKey struct {
	name  string
	start int64
}

type window struct {
	count     int
	expiresAt time.Time
}

// WindowStore keeps rate limit counters per (api call, window start)
type WindowStore struct {
	mu      sync.Mutex
	windows map[windowKey]window
}

func NewWindowStore() *WindowStore {
	return &WindowStore{windows: make(map[windowKey]window)}
}

func (s *WindowStore) IncrementIfBelow(ctx context.Context, apiCallName string, windowStart time.Time, maxCalls int, ttl time.Duration) (int, bool, error) {
	key := windowKey{name: apiCallName, start: windowStart.UnixMilli()}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.windows[key]
	if w.count >= maxCalls {
		return w.count, false, nil
	}
	w.count++
	w.expiresAt = windowStart.Add(ttl)
	s.windows[key] = w
	return w.count, true, nil
}

func (s *WindowStore) GetCount(ctx context.Context, apiCallName string, windowStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows[windowKey{name: apiCallName, start: windowStart.UnixMilli()}].count, nil
}

func (s *WindowStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, w := range s.windows {
		if !now.Before(w.expiresAt) {
			delete(s.windows, k)
			n++
		}
	}
	return n, nil
}

// CostLedgerStore keeps one ledger per date
type CostLedgerStore struct {
	mu      sync.RWMutex
	ledgers map[string]models.DailyCostLedger
}

func NewCostLedgerStore() *CostLedgerStore {
	return &CostLedgerStore{ledgers: make(map[string]models.DailyCostLedger)}
}

func (s *CostLedgerStore) AddCost(ctx context.Context, date string, cost float64, apiCall string, expiresAt time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledgers[date]
	l.Date = date
	l.CumulativeCost += cost
	l.LastUpdated = time.Now().UTC()
	l.LastAPICall = apiCall
	l.ExpiresAt = expiresAt
	s.ledgers[date] = l
	return l.CumulativeCost, nil
}

func (s *CostLedgerStore) Get(ctx context.Context, date string) (*models.DailyCostLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[date]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &l, nil
}

func (s *CostLedgerStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for date, l := range s.ledgers {
		if !now.Before(l.ExpiresAt) {
			delete(s.ledgers, date)
			n++
		}
	}
	return n, nil
}
