package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/metrics"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS care_items (
	id                             UUID PRIMARY KEY,
	resident_id                    TEXT NOT NULL,
	user_id                        TEXT,
	item_name                      TEXT NOT NULL,
	category                       TEXT NOT NULL,
	quantity                       NUMERIC,
	unit                           TEXT,
	serving_method                 TEXT NOT NULL,
	serving_date                   DATE,
	serving_time_slot              TEXT,
	expiration_date                DATE,
	storage_method                 TEXT,
	note_to_staff                  TEXT,
	remaining_handling_instruction TEXT,
	remaining_handling_condition   TEXT,
	schedule                       JSONB,
	created_at                     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS care_items_resident_idx ON care_items (resident_id);
`

// PoolConfig carries the pool limits applied on top of the connection URL.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Postgres stores items in a PostgreSQL table.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, verifies the connection and ensures the schema.
func OpenPostgres(ctx context.Context, url string, pc PoolConfig) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
	if pc.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	p := NewPostgres(pool)
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing pool. The caller owns the schema.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the items table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Snapshot returns the id, name and schedule of every item of a resident.
func (p *Postgres) Snapshot(ctx context.Context, residentID string) ([]core.ExistingItem, error) {
	if strings.TrimSpace(residentID) == "" {
		return nil, ErrMissingResident
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id::text, item_name, schedule FROM care_items WHERE resident_id = $1 ORDER BY created_at, id`,
		residentID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ExistingItem, error) {
		var (
			it       core.ExistingItem
			schedule []byte
		)
		if err := row.Scan(&it.ID, &it.ItemName, &schedule); err != nil {
			return it, err
		}
		it.Schedule = decodeSchedule(schedule)
		return it, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	return items, nil
}

// Create inserts one item with a once schedule and returns its id.
func (p *Postgres) Create(ctx context.Context, item NewItem) (string, error) {
	if err := checkNewItem(item); err != nil {
		return "", err
	}
	f := item.Fields
	schedule, err := encodeSchedule(ScheduleFor(f))
	if err != nil {
		return "", err
	}

	id := newID()
	_, err = p.pool.Exec(ctx, `
		INSERT INTO care_items (
			id, resident_id, user_id, item_name, category, quantity, unit,
			serving_method, serving_date, serving_time_slot, expiration_date,
			storage_method, note_to_staff, remaining_handling_instruction,
			remaining_handling_condition, schedule
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		id,
		item.ResidentID,
		toPgText(item.UserID),
		f.ItemName,
		f.Category,
		toPgNumeric(f.Quantity),
		toPgText(f.Unit),
		f.ServingMethod,
		toPgDate(f.ServingDate),
		toPgText(f.ServingTimeSlot),
		toPgDate(f.ExpirationDate),
		toPgText(f.StorageMethod),
		toPgText(f.NoteToStaff),
		toPgText(f.RemainingHandlingInstruction),
		toPgText(f.RemainingHandlingCondition),
		schedule,
	)
	if err != nil {
		return "", fmt.Errorf("insert item %q: %w", f.ItemName, err)
	}
	return id, nil
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// PoolStats reports connection pool usage for the metrics endpoint.
func (p *Postgres) PoolStats() metrics.PoolStats {
	st := p.pool.Stat()
	return metrics.PoolStats{
		Total:    st.TotalConns(),
		Idle:     st.IdleConns(),
		Acquired: st.AcquiredConns(),
		Max:      st.MaxConns(),
	}
}

// Close releases the pool.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// toPgDate expects normalized ISO dates; anything else is stored as NULL.
func toPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}
	t, err := time.Parse(core.ISODate, s)
	if err != nil {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func toPgNumeric(q *float64) pgtype.Numeric {
	if q == nil {
		return pgtype.Numeric{Valid: false}
	}
	var n pgtype.Numeric
	if err := n.Scan(strconv.FormatFloat(*q, 'f', -1, 64)); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}
