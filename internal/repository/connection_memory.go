package repository

import (
	"context"
	"sync"
	"time"

	"github.com/walletbridge/link-server-go/internal/model"
)

// memoryConnectionRepo is the volatile fallback backend: a mutex-guarded map
// keyed by connection id. It honors the same contract as the postgres
// implementation; the only observable difference is durability across
// restarts. The clock is injectable so sweeping can be tested without timers.
type memoryConnectionRepo struct {
	mu          sync.Mutex
	connections map[string]*model.Connection
	now         func() time.Time
}

func NewMemoryConnectionRepository() ConnectionRepository {
	return &memoryConnectionRepo{
		connections: make(map[string]*model.Connection),
		now:         time.Now,
	}
}

// NewMemoryConnectionRepositoryWithClock is used by tests to advance a
// virtual clock instead of sleeping.
func NewMemoryConnectionRepositoryWithClock(now func() time.Time) ConnectionRepository {
	return &memoryConnectionRepo{
		connections: make(map[string]*model.Connection),
		now:         now,
	}
}

func (r *memoryConnectionRepo) CreatePending(ctx context.Context, params model.CreateConnectionParams) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	conn := &model.Connection{
		ConnectionID: params.ConnectionID,
		UserID:       params.UserID,
		ChatID:       params.ChatID,
		Status:       model.ConnectionStatusPending,
		ExpiresAt:    params.ExpiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.connections[params.ConnectionID] = conn

	copied := *conn
	return &copied, nil
}

func (r *memoryConnectionRepo) GetPending(ctx context.Context, connectionID string) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connectionID]
	if !ok || !conn.Actionable(r.now()) {
		return nil, nil
	}

	copied := *conn
	return &copied, nil
}

func (r *memoryConnectionRepo) GetPendingByUser(ctx context.Context, userID int64) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var latest *model.Connection
	for _, conn := range r.connections {
		if conn.UserID != userID || !conn.Actionable(now) {
			continue
		}
		if latest == nil || conn.CreatedAt.After(latest.CreatedAt) {
			latest = conn
		}
	}
	if latest == nil {
		return nil, nil
	}

	copied := *latest
	return &copied, nil
}

func (r *memoryConnectionRepo) GetByID(ctx context.Context, connectionID string) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connectionID]
	if !ok {
		return nil, nil
	}

	copied := *conn
	return &copied, nil
}

func (r *memoryConnectionRepo) Complete(ctx context.Context, connectionID, walletAddress string) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connectionID]
	now := r.now()
	if !ok || !conn.Actionable(now) {
		return nil, nil
	}

	conn.Status = model.ConnectionStatusCompleted
	conn.WalletAddress = &walletAddress
	conn.CompletedAt = &now
	conn.UpdatedAt = now

	copied := *conn
	return &copied, nil
}

func (r *memoryConnectionRepo) Cancel(ctx context.Context, connectionID string) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connectionID]
	if !ok || conn.Status != model.ConnectionStatusPending {
		return nil, nil
	}

	now := r.now()
	conn.Status = model.ConnectionStatusCancelled
	conn.UpdatedAt = now

	copied := *conn
	return &copied, nil
}

func (r *memoryConnectionRepo) SweepExpired(ctx context.Context) ([]model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var swept []model.Connection
	for _, conn := range r.connections {
		if conn.Status == model.ConnectionStatusPending && !now.Before(conn.ExpiresAt) {
			conn.Status = model.ConnectionStatusExpired
			conn.UpdatedAt = now
			swept = append(swept, *conn)
		}
	}
	return swept, nil
}
