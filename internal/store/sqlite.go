package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS care_items (
	id                             TEXT PRIMARY KEY,
	resident_id                    TEXT NOT NULL,
	user_id                        TEXT,
	item_name                      TEXT NOT NULL,
	category                       TEXT NOT NULL,
	quantity                       REAL,
	unit                           TEXT,
	serving_method                 TEXT NOT NULL,
	serving_date                   TEXT,
	serving_time_slot              TEXT,
	expiration_date                TEXT,
	storage_method                 TEXT,
	note_to_staff                  TEXT,
	remaining_handling_instruction TEXT,
	remaining_handling_condition   TEXT,
	schedule                       TEXT,
	created_at                     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS care_items_resident_idx ON care_items (resident_id);
`

// SQLite stores items in a single database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Snapshot(ctx context.Context, residentID string) ([]core.ExistingItem, error) {
	if strings.TrimSpace(residentID) == "" {
		return nil, ErrMissingResident
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_name, schedule FROM care_items WHERE resident_id = ? ORDER BY created_at, rowid`,
		residentID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []core.ExistingItem{}
	for rows.Next() {
		var (
			it       core.ExistingItem
			schedule sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.ItemName, &schedule); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if schedule.Valid {
			it.Schedule = decodeSchedule([]byte(schedule.String))
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLite) Create(ctx context.Context, item NewItem) (string, error) {
	if err := checkNewItem(item); err != nil {
		return "", err
	}
	f := item.Fields
	schedule, err := encodeSchedule(ScheduleFor(f))
	if err != nil {
		return "", err
	}

	var quantity any
	if f.Quantity != nil {
		quantity = *f.Quantity
	}

	id := newID()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO care_items (
			id, resident_id, user_id, item_name, category, quantity, unit,
			serving_method, serving_date, serving_time_slot, expiration_date,
			storage_method, note_to_staff, remaining_handling_instruction,
			remaining_handling_condition, schedule
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		item.ResidentID,
		nullIfEmpty(item.UserID),
		f.ItemName,
		f.Category,
		quantity,
		nullIfEmpty(f.Unit),
		f.ServingMethod,
		nullIfEmpty(f.ServingDate),
		nullIfEmpty(f.ServingTimeSlot),
		nullIfEmpty(f.ExpirationDate),
		nullIfEmpty(f.StorageMethod),
		nullIfEmpty(f.NoteToStaff),
		nullIfEmpty(f.RemainingHandlingInstruction),
		nullIfEmpty(f.RemainingHandlingCondition),
		string(schedule),
	)
	if err != nil {
		return "", fmt.Errorf("insert item %q: %w", f.ItemName, err)
	}
	return id, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
