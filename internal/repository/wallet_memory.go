package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/walletbridge/link-server-go/internal/model"
)

type memoryWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]*model.Wallet
	now     func() time.Time
}

func NewMemoryWalletRepository() WalletRepository {
	return &memoryWalletRepo{
		wallets: make(map[string]*model.Wallet),
		now:     time.Now,
	}
}

func (r *memoryWalletRepo) FindByUserAndAddress(ctx context.Context, userID int64, address string) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.wallets {
		if w.UserID == userID && w.Address == address {
			copied := *w
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryWalletRepo) FindActiveByUser(ctx context.Context, userID int64) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *model.Wallet
	for _, w := range r.wallets {
		if w.UserID != userID || !w.Active {
			continue
		}
		if latest == nil || w.LinkedAt.After(latest.LinkedAt) {
			latest = w
		}
	}
	if latest == nil {
		return nil, nil
	}

	copied := *latest
	return &copied, nil
}

func (r *memoryWalletRepo) ListByUser(ctx context.Context, userID int64) ([]model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var wallets []model.Wallet
	for _, w := range r.wallets {
		if w.UserID == userID {
			wallets = append(wallets, *w)
		}
	}
	sort.Slice(wallets, func(i, j int) bool {
		return wallets[i].LinkedAt.After(wallets[j].LinkedAt)
	})
	return wallets, nil
}

func (r *memoryWalletRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, w := range r.wallets {
		if w.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memoryWalletRepo) Create(ctx context.Context, params model.CreateWalletParams) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w := &model.Wallet{
		ID:         params.ID,
		UserID:     params.UserID,
		Address:    params.Address,
		WalletType: params.WalletType,
		Active:     params.Active,
		LinkedAt:   now,
		CreatedAt:  now,
	}
	r.wallets[params.ID] = w

	copied := *w
	return &copied, nil
}

func (r *memoryWalletRepo) Reactivate(ctx context.Context, id string) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}

	w.Active = true
	w.LinkedAt = r.now()
	w.UnlinkedAt = nil

	copied := *w
	return &copied, nil
}
