package metadatastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcom/smartcom-go/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCheckoutLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := &models.CheckoutRecord{
		ID:        "c1",
		OrderID:   "1a2b3c4d",
		ClientID:  7,
		CartItems: []string{"urn:item:1", "urn:item:2"},
	}
	require.NoError(t, store.BeginCheckout(ctx, record))
	assert.Equal(t, models.CheckoutPending, record.Status)
	assert.False(t, record.CreatedAt.IsZero())

	got, err := store.GetCheckout(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "1a2b3c4d", got.OrderID)
	assert.Equal(t, 7, got.ClientID)
	assert.Equal(t, []string{"urn:item:1", "urn:item:2"}, got.CartItems)
	assert.Equal(t, models.CheckoutPending, got.Status)

	require.NoError(t, store.CompleteCheckout(ctx, "c1"))
	got, err = store.GetCheckout(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutCommitted, got.Status)

	require.NoError(t, store.FailCheckout(ctx, "c1", "order missing"))
	got, err = store.GetCheckout(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutFailed, got.Status)
	assert.Equal(t, "order missing", got.Error)
}

func TestCheckoutNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetCheckout(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.CompleteCheckout(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, store.FailCheckout(ctx, "missing", "x"), ErrNotFound)
}

func TestBeginCheckoutValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.BeginCheckout(ctx, &models.CheckoutRecord{OrderID: "x"}))
	assert.Error(t, store.BeginCheckout(ctx, &models.CheckoutRecord{ID: "x"}))

	require.NoError(t, store.BeginCheckout(ctx, &models.CheckoutRecord{ID: "dup", OrderID: "o"}))
	assert.Error(t, store.BeginCheckout(ctx, &models.CheckoutRecord{ID: "dup", OrderID: "o"}), "duplicate id")
}

func TestListPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"old-1", "old-2", "recent", "done"} {
		record := &models.CheckoutRecord{
			ID:        id,
			OrderID:   "order-" + id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.BeginCheckout(ctx, record))
	}
	require.NoError(t, store.CompleteCheckout(ctx, "done"))

	pending, err := store.ListPending(ctx, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "old-1", pending[0].ID)
	assert.Equal(t, "old-2", pending[1].ID)
	assert.Empty(t, pending[0].CartItems)

	pending, err = store.ListPending(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.BeginCheckout(ctx, &models.CheckoutRecord{ID: "c1", OrderID: "o1"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetCheckout(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "o1", got.OrderID)
}
