package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/adminguard/internal/models"
)

// MockAuditEventRepository implements AuditEventRepository for testing
type MockAuditEventRepository struct {
	CreateFunc                func(ctx context.Context, event *models.AuditEvent) error
	CountByTypeAndIPSinceFunc func(ctx context.Context, ip string, actionType models.ActionType, since time.Time) (int, error)
	ListByIPFunc              func(ctx context.Context, ip string, limit int) ([]*models.AuditEvent, error)
}

func (m *MockAuditEventRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	return nil
}

func (m *MockAuditEventRepository) CountByTypeAndIPSince(ctx context.Context, ip string, actionType models.ActionType, since time.Time) (int, error) {
	if m.CountByTypeAndIPSinceFunc != nil {
		return m.CountByTypeAndIPSinceFunc(ctx, ip, actionType, since)
	}
	return 0, nil
}

func (m *MockAuditEventRepository) ListByIP(ctx context.Context, ip string, limit int) ([]*models.AuditEvent, error) {
	if m.ListByIPFunc != nil {
		return m.ListByIPFunc(ctx, ip, limit)
	}
	return nil, nil
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc             func(ctx context.Context, session *models.Session) error
	GetByIDFunc            func(ctx context.Context, sessionID string) (*models.Session, error)
	UpdateLastActivityFunc func(ctx context.Context, sessionID string, at time.Time) error
	DeleteFunc             func(ctx context.Context, sessionID string) error
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, sessionID)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) UpdateLastActivity(ctx context.Context, sessionID string, at time.Time) error {
	if m.UpdateLastActivityFunc != nil {
		return m.UpdateLastActivityFunc(ctx, sessionID, at)
	}
	return nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionID)
	}
	return nil
}

// MockRateLimitWindowRepository implements RateLimitWindowRepository for testing
type MockRateLimitWindowRepository struct {
	IncrementIfBelowFunc func(ctx context.Context, apiCallName string, windowStart time.Time, maxCalls int, ttl time.Duration) (int, bool, error)
	GetCountFunc         func(ctx context.Context, apiCallName string, windowStart time.Time) (int, error)
}

func (m *MockRateLimitWindowRepository) IncrementIfBelow(ctx context.Context, apiCallName string, windowStart time.Time, maxCalls int, ttl time.Duration) (int, bool, error) {
	if m.IncrementIfBelowFunc != nil {
		return m.IncrementIfBelowFunc(ctx, apiCallName, windowStart, maxCalls, ttl)
	}
	return 1, true, nil
}

func (m *MockRateLimitWindowRepository) GetCount(ctx context.Context, apiCallName string, windowStart time.Time) (int, error) {
	if m.GetCountFunc != nil {
		return m.GetCountFunc(ctx, apiCallName, windowStart)
	}
	return 0, nil
}

// MockCostLedgerRepository implements CostLedgerRepository for testing
type MockCostLedgerRepository struct {
	AddCostFunc func(ctx context.Context, date string, cost float64, apiCall string, expiresAt time.Time) (float64, error)
	GetFunc     func(ctx context.Context, date string) (*models.DailyCostLedger, error)
}

func (m *MockCostLedgerRepository) AddCost(ctx context.Context, date string, cost float64, apiCall string, expiresAt time.Time) (float64, error) {
	if m.AddCostFunc != nil {
		return m.AddCostFunc(ctx, date, cost, apiCall, expiresAt)
	}
	return cost, nil
}

func (m *MockCostLedgerRepository) Get(ctx context.Context, date string) (*models.DailyCostLedger, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, date)
	}
	return nil, models.ErrNotFound
}

// RecordedAudit is one call captured by MockAuditRecorder
type RecordedAudit struct {
	ActionType models.ActionType
	Details    models.AuditMetadata
	ClientIP   string
	UserAgent  string
}

// MockAuditRecorder captures Record calls
type MockAuditRecorder struct {
	mu     sync.Mutex
	Events []RecordedAudit
}

func (m *MockAuditRecorder) Record(ctx context.Context, actionType models.ActionType, details models.AuditMetadata, clientIP, userAgent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, RecordedAudit{ActionType: actionType, Details: details, ClientIP: clientIP, UserAgent: userAgent})
}

// Count returns how many events of actionType were recorded
func (m *MockAuditRecorder) Count(actionType models.ActionType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.ActionType == actionType {
			n++
		}
	}
	return n
}

// MockAlertNotifier captures cost alerts
type MockAlertNotifier struct {
	mu     sync.Mutex
	Alerts []CostAlert
	Err    error
}

func (m *MockAlertNotifier) NotifyCostThreshold(ctx context.Context, alert CostAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = append(m.Alerts, alert)
	return m.Err
}

// MockSecretFetcher implements SecretFetcher for testing
type MockSecretFetcher struct {
	GetSecretFunc func(ctx context.Context, secretID string) ([]byte, error)
	Calls         int
}

func (m *MockSecretFetcher) GetSecret(ctx context.Context, secretID string) ([]byte, error) {
	m.Calls++
	if m.GetSecretFunc != nil {
		return m.GetSecretFunc(ctx, secretID)
	}
	return nil, models.ErrNotFound
}
