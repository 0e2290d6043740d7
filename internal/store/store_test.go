package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

func banana() core.ParsedFields {
	qty := 2.0
	return core.ParsedFields{
		ItemName:                     "バナナ",
		Category:                     "food",
		Quantity:                     &qty,
		Unit:                         "本",
		ServingMethod:                "peeled",
		ServingDate:                  "2025-06-01",
		ServingTimeSlot:              "snack",
		RemainingHandlingInstruction: "none",
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()

	mem, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	file, err := OpenSQLite(filepath.Join(t.TempDir(), "items.db"))
	require.NoError(t, err)

	out := map[string]Store{
		"memory":        NewMemory(),
		"sqlite memory": mem,
		"sqlite file":   file,
	}
	t.Cleanup(func() {
		for _, s := range out {
			s.Close()
		}
	})
	return out
}

func TestStore_CreateThenSnapshot(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			id, err := s.Create(ctx, NewItem{ResidentID: "r1", UserID: "u1", Fields: banana()})
			require.NoError(t, err)
			require.NotEmpty(t, id)

			snap, err := s.Snapshot(ctx, "r1")
			require.NoError(t, err)
			require.Len(t, snap, 1)
			assert.Equal(t, id, snap[0].ID)
			assert.Equal(t, "バナナ", snap[0].ItemName)
			require.NotNil(t, snap[0].Schedule)
			assert.Equal(t, core.ServingSchedule{Type: core.ScheduleOnce, Date: "2025-06-01", TimeSlot: "snack"}, *snap[0].Schedule)

			other, err := s.Snapshot(ctx, "r2")
			require.NoError(t, err)
			assert.Empty(t, other, "snapshots are per resident")

			assert.NoError(t, s.Ping(ctx))
		})
	}
}

func TestStore_CreatedItemsAreDuplicates(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Create(ctx, NewItem{ResidentID: "r1", Fields: banana()})
			require.NoError(t, err)

			snap, err := s.Snapshot(ctx, "r1")
			require.NoError(t, err)

			ref, dup := core.FindDuplicate(banana(), snap, "")
			assert.True(t, dup)
			require.NotNil(t, ref)
			assert.Equal(t, snap[0].ID, ref.ExistingID)
		})
	}
}

func TestStore_Rejects(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Create(ctx, NewItem{Fields: banana()})
			assert.ErrorIs(t, err, ErrMissingResident)

			_, err = s.Snapshot(ctx, " ")
			assert.ErrorIs(t, err, ErrMissingResident)

			_, err = s.Create(ctx, NewItem{ResidentID: "r1", Fields: core.ParsedFields{}})
			var ve core.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestSQLite_OptionalFieldsStoredAsNull(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	f := banana()
	f.Quantity = nil
	f.Unit = ""
	_, err = s.Create(context.Background(), NewItem{ResidentID: "r1", Fields: f})
	require.NoError(t, err)

	var nulls int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM care_items WHERE quantity IS NULL AND unit IS NULL AND user_id IS NULL`).Scan(&nulls)
	require.NoError(t, err)
	assert.Equal(t, 1, nulls)
}

func TestSQLite_ReopenKeepsItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), NewItem{ResidentID: "r1", Fields: banana()})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.Snapshot(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, snap, 1)
}

func TestDecodeSchedule(t *testing.T) {
	assert.Nil(t, decodeSchedule(nil))
	assert.Nil(t, decodeSchedule([]byte("{not json")))

	got := decodeSchedule([]byte(`{"type":"daily","startDate":"2025-05-01","timeSlot":"lunch"}`))
	require.NotNil(t, got)
	assert.Equal(t, core.ScheduleDaily, got.Type)
}

func TestMemory_FailOn(t *testing.T) {
	m := NewMemory()
	m.FailOn = func(name string) error {
		if name == "バナナ" {
			return errors.New("write rejected")
		}
		return nil
	}

	_, err := m.Create(context.Background(), NewItem{ResidentID: "r1", Fields: banana()})
	assert.EqualError(t, err, "write rejected")
	assert.Equal(t, 0, m.Count("r1"))
}

func TestPgConversions(t *testing.T) {
	assert.False(t, toPgText("  ").Valid)
	assert.Equal(t, "x", toPgText(" x ").String)

	d := toPgDate("2026-01-20")
	assert.True(t, d.Valid)
	assert.Equal(t, 20, d.Time.Day())
	assert.False(t, toPgDate("2026/01/20").Valid, "only normalized dates are accepted")

	assert.False(t, toPgNumeric(nil).Valid)
	q := 1.5
	n := toPgNumeric(&q)
	require.True(t, n.Valid)
	f, err := n.Float64Value()
	require.NoError(t, err)
	assert.Equal(t, 1.5, f.Float64)
}
