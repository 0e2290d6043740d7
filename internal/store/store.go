// Package store persists care items and serves the existing-item snapshot
// used for duplicate detection.
//
// Three implementations share one contract:
//
//   - Postgres: production store on pgxpool
//   - SQLite: single-file store for small facilities and local runs
//   - Memory: in-process store for demo mode and tests
//
// Items created by an import carry a "once" schedule on their serving date
// and time slot, so re-running the same batch finds them as duplicates.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

// ErrMissingResident is returned when an operation has no resident id.
var ErrMissingResident = errors.New("missing resident id")

// NewItem is one item to register for a resident.
type NewItem struct {
	ResidentID string
	UserID     string
	Fields     core.ParsedFields
}

// Store is the external item store.
type Store interface {
	// Snapshot returns every registered item of a resident.
	Snapshot(ctx context.Context, residentID string) ([]core.ExistingItem, error)
	// Create registers a single item and returns its id.
	Create(ctx context.Context, item NewItem) (string, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// ScheduleFor returns the schedule stored with an imported item.
func ScheduleFor(f core.ParsedFields) core.ServingSchedule {
	return core.ServingSchedule{
		Type:     core.ScheduleOnce,
		Date:     f.ServingDate,
		TimeSlot: f.ServingTimeSlot,
	}
}

func newID() string {
	return uuid.NewString()
}

func checkNewItem(item NewItem) error {
	if strings.TrimSpace(item.ResidentID) == "" {
		return ErrMissingResident
	}
	if strings.TrimSpace(item.Fields.ItemName) == "" {
		return fmt.Errorf("create item: %w", core.ValidationError{Field: core.FieldItemName, Message: "required field is empty"})
	}
	return nil
}

func encodeSchedule(s core.ServingSchedule) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode schedule: %w", err)
	}
	return b, nil
}

// decodeSchedule returns nil for empty or malformed documents, which the
// duplicate detector treats as unresolved.
func decodeSchedule(b []byte) *core.ServingSchedule {
	if len(b) == 0 {
		return nil
	}
	var s core.ServingSchedule
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	return &s
}
