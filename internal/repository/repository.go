// Package repository persists devices, readings, complaints and users in PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Counter names in id_counters
const (
	CounterDevices = "devices"
	CounterSounds  = "sounds"
)

// Seed expressions used the first time a counter is touched, so allocation
// continues from whatever already exists in the table.
var counterSeeds = map[string]string{
	CounterDevices: `SELECT COALESCE(MAX(device_number), 0) FROM devices`,
	CounterSounds:  `SELECT COALESCE(MAX(CAST(sound_id AS BIGINT)), 0) FROM sounds`,
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// nextCounterValue increments a named counter and returns the new value.
// Inside a transaction the counter row stays locked until commit/rollback,
// so concurrent allocations are serialized and a rollback leaves no gap.
func nextCounterValue(ctx context.Context, q queryer, name string) (int64, error) {
	var value int64
	err := q.QueryRowContext(ctx,
		`UPDATE id_counters SET value = value + 1 WHERE name = $1 RETURNING value`,
		name,
	).Scan(&value)
	if err == nil {
		return value, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to increment counter %s: %w", name, err)
	}

	seed, ok := counterSeeds[name]
	if !ok {
		return 0, fmt.Errorf("unknown counter: %s", name)
	}
	err = q.QueryRowContext(ctx,
		`INSERT INTO id_counters (name, value)
		 SELECT $1, (`+seed+`) + 1
		 ON CONFLICT (name) DO UPDATE SET value = id_counters.value + 1
		 RETURNING value`,
		name,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to seed counter %s: %w", name, err)
	}
	return value, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// isUniqueViolation reports a PostgreSQL unique_violation (23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isForeignKeyViolation reports a PostgreSQL foreign_key_violation (23503)
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
