package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/walletbridge/link-server-go/internal/database"
	"github.com/walletbridge/link-server-go/internal/model"
)

type WalletRepository interface {
	FindByUserAndAddress(ctx context.Context, userID int64, address string) (*model.Wallet, error)
	FindActiveByUser(ctx context.Context, userID int64) (*model.Wallet, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Wallet, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	Create(ctx context.Context, params model.CreateWalletParams) (*model.Wallet, error)
	// Reactivate marks an existing wallet active again after a re-link.
	Reactivate(ctx context.Context, id string) (*model.Wallet, error)
}

type walletRepo struct {
	db database.DBTX
}

func NewWalletRepository(db database.DBTX) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) FindByUserAndAddress(ctx context.Context, userID int64, address string) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT * FROM wallets
		WHERE user_id = $1 AND address = $2
	`, userID, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepo) FindActiveByUser(ctx context.Context, userID int64) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT * FROM wallets
		WHERE user_id = $1 AND active = TRUE
		ORDER BY linked_at DESC
		LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepo) ListByUser(ctx context.Context, userID int64) ([]model.Wallet, error) {
	var wallets []model.Wallet
	err := r.db.SelectContext(ctx, &wallets, `
		SELECT * FROM wallets
		WHERE user_id = $1
		ORDER BY linked_at DESC
	`, userID)
	return wallets, err
}

func (r *walletRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM wallets WHERE user_id = $1
	`, userID)
	return count, err
}

func (r *walletRepo) Create(ctx context.Context, params model.CreateWalletParams) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.GetContext(ctx, &w, `
		INSERT INTO wallets (id, user_id, address, wallet_type, active, linked_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING *
	`, params.ID, params.UserID, params.Address, params.WalletType, params.Active)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepo) Reactivate(ctx context.Context, id string) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.GetContext(ctx, &w, `
		UPDATE wallets SET
			active = TRUE,
			linked_at = NOW(),
			unlinked_at = NULL
		WHERE id = $1
		RETURNING *
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
