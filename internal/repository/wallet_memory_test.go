package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletbridge/link-server-go/internal/model"
)

func TestMemoryWalletCreateAndFind(t *testing.T) {
	repo := NewMemoryWalletRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, model.CreateWalletParams{
		ID:         "w-1",
		UserID:     42,
		Address:    "addr-1",
		WalletType: "phantom",
		Active:     true,
	})
	require.NoError(t, err)
	assert.True(t, created.Active)

	found, err := repo.FindByUserAndAddress(ctx, 42, "addr-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "w-1", found.ID)

	missing, err := repo.FindByUserAndAddress(ctx, 42, "addr-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryWalletFindActiveByUser(t *testing.T) {
	repo := NewMemoryWalletRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, model.CreateWalletParams{
		ID: "w-1", UserID: 42, Address: "addr-1", WalletType: "phantom", Active: true,
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.CreateWalletParams{
		ID: "w-2", UserID: 42, Address: "addr-2", WalletType: "solflare", Active: false,
	})
	require.NoError(t, err)

	active, err := repo.FindActiveByUser(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "addr-1", active.Address)

	none, err := repo.FindActiveByUser(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryWalletCountAndList(t *testing.T) {
	repo := NewMemoryWalletRepository()
	ctx := context.Background()

	count, err := repo.CountByUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = repo.Create(ctx, model.CreateWalletParams{
		ID: "w-1", UserID: 42, Address: "addr-1", WalletType: "phantom", Active: true,
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.CreateWalletParams{
		ID: "w-2", UserID: 42, Address: "addr-2", WalletType: "phantom", Active: false,
	})
	require.NoError(t, err)

	count, err = repo.CountByUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	wallets, err := repo.ListByUser(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, wallets, 2)
}

func TestMemoryWalletReactivate(t *testing.T) {
	repo := NewMemoryWalletRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, model.CreateWalletParams{
		ID: "w-1", UserID: 42, Address: "addr-1", WalletType: "phantom", Active: false,
	})
	require.NoError(t, err)

	wallet, err := repo.Reactivate(ctx, "w-1")
	require.NoError(t, err)
	require.NotNil(t, wallet)
	assert.True(t, wallet.Active)
	assert.Nil(t, wallet.UnlinkedAt)

	missing, err := repo.Reactivate(ctx, "w-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
