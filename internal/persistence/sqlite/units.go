package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/reservation-availability/internal/persistence"
)

const unitColumns = `id, name, timezone, start_interval, min_duration_seconds, max_duration_seconds,
	buffer_before_seconds, buffer_after_seconds, min_days_before, max_days_before,
	reservation_begins, reservation_ends, created_at, updated_at`

// UpsertUnit inserts the unit or replaces its policy, keeping created_at.
func (s *Store) UpsertUnit(ctx context.Context, unit persistence.Unit) error {
	if unit.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	created := unit.CreatedAt
	if created.IsZero() {
		created = now
	}

	query := `
		INSERT INTO units (` + unitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			timezone = excluded.timezone,
			start_interval = excluded.start_interval,
			min_duration_seconds = excluded.min_duration_seconds,
			max_duration_seconds = excluded.max_duration_seconds,
			buffer_before_seconds = excluded.buffer_before_seconds,
			buffer_after_seconds = excluded.buffer_after_seconds,
			min_days_before = excluded.min_days_before,
			max_days_before = excluded.max_days_before,
			reservation_begins = excluded.reservation_begins,
			reservation_ends = excluded.reservation_ends,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		unit.ID,
		unit.Name,
		unit.Timezone,
		unit.StartInterval,
		seconds(unit.MinDuration),
		seconds(unit.MaxDuration),
		seconds(unit.BufferBefore),
		seconds(unit.BufferAfter),
		unit.MinDaysBefore,
		unit.MaxDaysBefore,
		nullableTime(unit.ReservationBegins),
		nullableTime(unit.ReservationEnds),
		formatTime(created),
		formatTime(now),
	)
	return mapError(err)
}

// GetUnit retrieves a unit by id.
func (s *Store) GetUnit(ctx context.Context, id string) (persistence.Unit, error) {
	if id == "" {
		return persistence.Unit{}, persistence.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE id = ?`, id)
	unit, err := scanUnit(row)
	if err != nil {
		return persistence.Unit{}, mapError(err)
	}
	return unit, nil
}

// ListUnits returns every unit ordered by id.
func (s *Store) ListUnits(ctx context.Context) ([]persistence.Unit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+unitColumns+` FROM units ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	units := make([]persistence.Unit, 0)
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return units, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUnit(row scanner) (persistence.Unit, error) {
	var (
		unit                 persistence.Unit
		minDur, maxDur       int64
		bufBefore, bufAfter  int64
		begins, ends         sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&unit.ID,
		&unit.Name,
		&unit.Timezone,
		&unit.StartInterval,
		&minDur,
		&maxDur,
		&bufBefore,
		&bufAfter,
		&unit.MinDaysBefore,
		&unit.MaxDaysBefore,
		&begins,
		&ends,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Unit{}, err
	}

	unit.MinDuration = fromSeconds(minDur)
	unit.MaxDuration = fromSeconds(maxDur)
	unit.BufferBefore = fromSeconds(bufBefore)
	unit.BufferAfter = fromSeconds(bufAfter)

	if unit.ReservationBegins, err = timePtr(begins); err != nil {
		return persistence.Unit{}, fmt.Errorf("sqlite: parse reservation_begins: %w", err)
	}
	if unit.ReservationEnds, err = timePtr(ends); err != nil {
		return persistence.Unit{}, fmt.Errorf("sqlite: parse reservation_ends: %w", err)
	}
	if unit.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Unit{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if unit.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Unit{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	return unit, nil
}

// ReplaceOpenSpans swaps the unit's opening hours for spans in one
// transaction, preserving their order.
func (s *Store) ReplaceOpenSpans(ctx context.Context, unitID string, spans []persistence.OpenSpan) error {
	return s.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := ensureUnit(ctx, tx, unitID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM open_spans WHERE unit_id = ?`, unitID); err != nil {
			return mapError(err)
		}
		for i, span := range spans {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO open_spans (unit_id, position, start_datetime, end_datetime) VALUES (?, ?, ?, ?)`,
				unitID, i, nullableString(span.StartDatetime), nullableString(span.EndDatetime),
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// ListOpenSpans returns the unit's opening hours in stored order.
func (s *Store) ListOpenSpans(ctx context.Context, unitID string) ([]persistence.OpenSpan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, unit_id, start_datetime, end_datetime FROM open_spans WHERE unit_id = ? ORDER BY position`,
		unitID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	spans := make([]persistence.OpenSpan, 0)
	for rows.Next() {
		var (
			span       persistence.OpenSpan
			start, end sql.NullString
		)
		if err := rows.Scan(&span.ID, &span.UnitID, &start, &end); err != nil {
			return nil, mapError(err)
		}
		span.StartDatetime = stringPtr(start)
		span.EndDatetime = stringPtr(end)
		spans = append(spans, span)
	}
	return spans, mapError(rows.Err())
}

// ReplaceBlackouts swaps the unit's application-round periods.
func (s *Store) ReplaceBlackouts(ctx context.Context, unitID string, blackouts []persistence.Blackout) error {
	return s.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := ensureUnit(ctx, tx, unitID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM blackouts WHERE unit_id = ?`, unitID); err != nil {
			return mapError(err)
		}
		for _, b := range blackouts {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO blackouts (unit_id, begin_date, end_date) VALUES (?, ?, ?)`,
				unitID, b.Begin, b.End,
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// ListBlackouts returns the unit's application-round periods by begin date.
func (s *Store) ListBlackouts(ctx context.Context, unitID string) ([]persistence.Blackout, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, unit_id, begin_date, end_date FROM blackouts WHERE unit_id = ? ORDER BY begin_date, id`,
		unitID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	blackouts := make([]persistence.Blackout, 0)
	for rows.Next() {
		var b persistence.Blackout
		if err := rows.Scan(&b.ID, &b.UnitID, &b.Begin, &b.End); err != nil {
			return nil, mapError(err)
		}
		blackouts = append(blackouts, b)
	}
	return blackouts, mapError(rows.Err())
}

func ensureUnit(ctx context.Context, tx *sql.Tx, unitID string) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM units WHERE id = ?`, unitID).Scan(&exists)
	return mapError(err)
}
