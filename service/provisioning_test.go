package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureJarsProvisioned_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	user := createTestUser(t, store, "setup@example.com")
	ctx := context.Background()
	svc := NewProvisioningService(store)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.EnsureJarsProvisioned(ctx, user.ID))
	}

	n, err := store.UserJars.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	ids, err := store.UserJars.CategoryIDsByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2, 3, 4, 5, 6}, ids)
}

func TestCheckSetup(t *testing.T) {
	store := setupTestStore(t)
	user := createTestUser(t, store, "check@example.com")

	res, err := NewProvisioningService(store).CheckSetup(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	n, err := store.UserJars.CountByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}
