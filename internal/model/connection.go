package model

import (
	"time"
)

type Connection struct {
	ConnectionID  string           `db:"connection_id" json:"connectionId"`
	UserID        int64            `db:"user_id" json:"userId"`
	ChatID        int64            `db:"chat_id" json:"chatId"`
	Status        ConnectionStatus `db:"status" json:"status"`
	WalletAddress *string          `db:"wallet_address" json:"walletAddress,omitempty"`
	ExpiresAt     time.Time        `db:"expires_at" json:"expiresAt"`
	CompletedAt   *time.Time       `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updatedAt"`
}

type CreateConnectionParams struct {
	ConnectionID string
	UserID       int64
	ChatID       int64
	ExpiresAt    time.Time
}

// Actionable reports whether the connection can still be completed.
func (c *Connection) Actionable(now time.Time) bool {
	return c.Status == ConnectionStatusPending && now.Before(c.ExpiresAt)
}
