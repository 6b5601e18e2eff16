package needs_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fimbul-io/sporing/pkg/needs"
)

func TestMemoryStoreSaveAndFind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := needs.NewMemoryStore()

	messageID := uuid.New()
	require.NoError(t, store.Save(ctx, messageID, []string{"Godkjenning", "Simulering"}))

	found, err := store.Find(ctx, messageID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Godkjenning", "Simulering"}, found)
}

func TestMemoryStoreUnknownIDIsNotAnError(t *testing.T) {
	t.Parallel()

	store := needs.NewMemoryStore()

	found, err := store.Find(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := needs.NewMemoryStore()

	messageID := uuid.New()
	original := []string{"Godkjenning"}
	require.NoError(t, store.Save(ctx, messageID, original))

	original[0] = "endret"

	found, err := store.Find(ctx, messageID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Godkjenning"}, found)
}
