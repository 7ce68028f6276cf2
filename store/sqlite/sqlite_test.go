package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/history"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func at(day, hour int) calendar.Clock {
	return calendar.FixedClock{T: time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)}
}

// decimals compare by value, not representation
var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	// GIVEN: a difference record with a fraction and an idempotency key
	diff := history.NewRecord(history.OpDifference, at(2, 9))
	diff.Field = calendar.Month
	diff.Rounding = "half_up"
	diff.Zone = "Asia/Seoul"
	diff.Operands = []int64{1706659200000, 1711756800000}
	diff.Result = "2"
	diff.Fraction = decimal.NewNullDecimal(decimal.RequireFromString("1.967741935"))
	diff.IdempotencyKey = "req-1"
	require.NoError(t, store.Append(ctx, diff))

	same := history.NewRecord(history.OpSame, at(3, 9))
	same.Field = calendar.Day
	same.Zone = "UTC"
	same.Operands = []int64{0, 1}
	same.Result = "true"
	require.NoError(t, store.Append(ctx, same))

	// WHEN: listing everything
	got, err := store.List(ctx, history.Filter{})
	require.NoError(t, err)

	// THEN: newest first, every column round-trips
	want := []history.Record{same, diff}
	if d := cmp.Diff(want, got, decimalEqual); d != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", d)
	}

	got, err = store.List(ctx, history.Filter{Operation: history.OpDifference})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, diff.ID, got[0].ID)

	got, err = store.List(ctx, history.Filter{Since: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, same.ID, got[0].ID)

	got, err = store.List(ctx, history.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_IdempotencySurvivesPrune(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	r := history.NewRecord(history.OpTruncate, at(1, 0))
	r.Field = calendar.Month
	r.Operands = []int64{0}
	r.Result = "0"
	r.IdempotencyKey = "req-9"
	require.NoError(t, store.Append(ctx, r))

	dup := history.NewRecord(history.OpTruncate, at(1, 1))
	dup.Field = calendar.Month
	dup.IdempotencyKey = "req-9"
	assert.ErrorIs(t, store.Append(ctx, dup), history.ErrDuplicateIdempotencyKey)

	kept := history.NewRecord(history.OpTruncate, at(10, 0))
	kept.Field = calendar.Day
	require.NoError(t, store.Append(ctx, kept))

	n, err := store.Prune(ctx, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := store.List(ctx, history.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, kept.ID, all[0].ID)

	exists, err := store.Exists(ctx, "req-9")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.ErrorIs(t, store.Append(ctx, dup), history.ErrDuplicateIdempotencyKey)
}

func TestStore_Profiles(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	stamp := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	seoul := history.Profile{Name: "seoul", Zone: "Asia/Seoul", FirstDay: time.Sunday, UpdatedAt: stamp}
	require.NoError(t, store.SaveProfile(ctx, seoul))

	got, err := store.GetProfile(ctx, "seoul")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(seoul, got))

	// Saving again replaces
	seoul.Lenient = true
	seoul.FirstDay = time.Monday
	require.NoError(t, store.SaveProfile(ctx, seoul))
	got, err = store.GetProfile(ctx, "seoul")
	require.NoError(t, err)
	assert.True(t, got.Lenient)
	assert.Equal(t, time.Monday, got.FirstDay)

	assert.ErrorIs(t, store.SaveProfile(ctx, history.Profile{Name: "x", Zone: "Nowhere/Land"}), history.ErrInvalidProfile)

	require.NoError(t, store.SaveProfile(ctx, history.Profile{Name: "apia", Zone: "+13:00"}))
	list, err := store.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "apia", list[0].Name)

	require.NoError(t, store.DeleteProfile(ctx, "seoul"))
	_, err = store.GetProfile(ctx, "seoul")
	assert.ErrorIs(t, err, history.ErrNotFound)
	assert.ErrorIs(t, store.DeleteProfile(ctx, "seoul"), history.ErrNotFound)

	require.NoError(t, store.Reset(ctx))
	list, err = store.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
