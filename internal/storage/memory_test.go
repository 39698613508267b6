package storage_test

import (
	"context"
	"testing"
	"time"

	"datalink/internal/domain"
	"datalink/internal/errs"
	"datalink/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryConnectionStore_DefensiveCopies(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryConnectionStore(domain.Connection{ID: "1", Name: "seed", Kind: domain.KindMySQL, Port: port(3306)})

	list, err := store.ListConnections(ctx)
	require.NoError(t, err)
	list[0].Name = "mutated"
	*list[0].Port = 1
	list = append(list, domain.Connection{ID: "x"})

	again, err := store.ListConnections(ctx)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "seed", again[0].Name)
	assert.Equal(t, 3306, *again[0].Port)
}

func TestMemoryConnectionStore_UpdateKeepsActivation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryConnectionStore(domain.Connection{ID: "1", Name: "a", Kind: domain.KindSQLite})
	now := time.Now()
	require.NoError(t, store.SetActive(ctx, "1", true, &now))

	require.NoError(t, store.UpdateConnection(ctx, &domain.Connection{ID: "1", Name: "b", Kind: domain.KindSQLite}))
	got, err := store.GetConnection(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name)
	assert.True(t, got.IsActive)
	assert.NotNil(t, got.LastConnectedAt)
}

func TestMemoryConnectionStore_ActivateExclusive(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryConnectionStore(
		domain.Connection{ID: "1", IsActive: true},
		domain.Connection{ID: "2"},
	)
	require.NoError(t, store.ActivateExclusive(ctx, "2", time.Now()))

	one, _ := store.GetConnection(ctx, "1")
	two, _ := store.GetConnection(ctx, "2")
	assert.False(t, one.IsActive)
	assert.True(t, two.IsActive)

	assert.True(t, errs.IsNotFound(store.ActivateExclusive(ctx, "3", time.Now())))
	assert.True(t, errs.IsNotFound(store.DeleteConnection(ctx, "3")))
}

func TestMemoryQueryLogStore_Ordering(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryQueryLogStore()
	base := time.Now()

	require.NoError(t, store.AppendQuery(ctx, &domain.QueryRecord{ID: "old", ExecutedAt: base.Add(-time.Hour)}))
	require.NoError(t, store.AppendQuery(ctx, &domain.QueryRecord{ID: "new", ExecutedAt: base}))
	require.NoError(t, store.AppendQuery(ctx, &domain.QueryRecord{ID: "tie", ExecutedAt: base}))

	list, err := store.ListQueries(ctx, domain.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "tie", list[0].ID)
	assert.Equal(t, "new", list[1].ID)
	assert.Equal(t, "old", list[2].ID)

	limited, err := store.ListQueries(ctx, domain.QueryFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryQueryLogStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryQueryLogStore()
	q := &domain.QueryRecord{SQL: "select 1", ExecutedAt: time.Now()}
	require.NoError(t, store.AppendQuery(ctx, q))
	require.NotEmpty(t, q.ID)

	require.NoError(t, store.UpdateQueryMetrics(ctx, q.ID, 99, 4))
	got, err := store.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, got.ExecutionTimeMs)

	require.NoError(t, store.DeleteQuery(ctx, q.ID))
	assert.True(t, errs.IsNotFound(store.DeleteQuery(ctx, q.ID)))
}
