package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/walletbridge/link-server-go/internal/database"
	"github.com/walletbridge/link-server-go/internal/model"
)

// ConnectionRepository tracks handshake records through their lifecycle.
// Lookups treat records past expires_at as absent even before the sweep runs,
// and transitions are conditional on the current status so that two
// near-simultaneous completions of one connection cannot both succeed.
type ConnectionRepository interface {
	CreatePending(ctx context.Context, params model.CreateConnectionParams) (*model.Connection, error)
	// GetPending returns nil if the record is missing, not pending, or expired.
	GetPending(ctx context.Context, connectionID string) (*model.Connection, error)
	// GetPendingByUser returns the user's active pending record, if any.
	GetPendingByUser(ctx context.Context, userID int64) (*model.Connection, error)
	GetByID(ctx context.Context, connectionID string) (*model.Connection, error)
	// Complete transitions pending -> completed. Returns nil if the record is
	// not actionable (already used, expired, cancelled, or missing).
	Complete(ctx context.Context, connectionID, walletAddress string) (*model.Connection, error)
	// Cancel transitions pending -> cancelled. Returns nil if not actionable.
	Cancel(ctx context.Context, connectionID string) (*model.Connection, error)
	// SweepExpired marks expired pending records and returns them.
	SweepExpired(ctx context.Context) ([]model.Connection, error)
}

type connectionRepo struct {
	db database.DBTX
}

func NewConnectionRepository(db database.DBTX) ConnectionRepository {
	return &connectionRepo{db: db}
}

func (r *connectionRepo) CreatePending(ctx context.Context, params model.CreateConnectionParams) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.GetContext(ctx, &conn, `
		INSERT INTO connections (connection_id, user_id, chat_id, status, expires_at)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING *
	`, params.ConnectionID, params.UserID, params.ChatID, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) GetPending(ctx context.Context, connectionID string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.GetContext(ctx, &conn, `
		SELECT * FROM connections
		WHERE connection_id = $1 AND status = 'pending' AND expires_at > NOW()
	`, connectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) GetPendingByUser(ctx context.Context, userID int64) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.GetContext(ctx, &conn, `
		SELECT * FROM connections
		WHERE user_id = $1 AND status = 'pending' AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) GetByID(ctx context.Context, connectionID string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.GetContext(ctx, &conn, `
		SELECT * FROM connections WHERE connection_id = $1
	`, connectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) Complete(ctx context.Context, connectionID, walletAddress string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.GetContext(ctx, &conn, `
		UPDATE connections SET
			status = 'completed',
			wallet_address = $2,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE connection_id = $1 AND status = 'pending' AND expires_at > NOW()
		RETURNING *
	`, connectionID, walletAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) Cancel(ctx context.Context, connectionID string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.GetContext(ctx, &conn, `
		UPDATE connections SET
			status = 'cancelled',
			updated_at = NOW()
		WHERE connection_id = $1 AND status = 'pending'
		RETURNING *
	`, connectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) SweepExpired(ctx context.Context) ([]model.Connection, error) {
	var swept []model.Connection
	err := r.db.SelectContext(ctx, &swept, `
		UPDATE connections SET
			status = 'expired',
			updated_at = NOW()
		WHERE status = 'pending' AND expires_at < NOW()
		RETURNING *
	`)
	if err != nil {
		return nil, err
	}
	return swept, nil
}
