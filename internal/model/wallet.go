package model

import "time"

type Wallet struct {
	ID         string     `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"userId"`
	Address    string     `db:"address" json:"address"`
	WalletType string     `db:"wallet_type" json:"walletType"`
	Active     bool       `db:"active" json:"active"`
	LinkedAt   time.Time  `db:"linked_at" json:"linkedAt"`
	UnlinkedAt *time.Time `db:"unlinked_at" json:"unlinkedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

type CreateWalletParams struct {
	ID         string
	UserID     int64
	Address    string
	WalletType string
	Active     bool
}
