package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/reservation-availability/internal/persistence"
)

const reservationColumns = `id, unit_id, begin_at, end_at, buffer_before_seconds, buffer_after_seconds,
	state, blocked, batch_id, created_at`

// CreateReservation stores a reservation, assigning a uuid when ID is empty.
func (s *Store) CreateReservation(ctx context.Context, r persistence.Reservation) (persistence.Reservation, error) {
	if r.UnitID == "" || !r.End.After(r.Begin) {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if strings.TrimSpace(r.State) == "" {
		r.State = "CREATED"
	}
	r.State = strings.ToUpper(r.State)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reservations (`+reservationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.UnitID,
		formatTime(r.Begin),
		formatTime(r.End),
		seconds(r.BufferBefore),
		seconds(r.BufferAfter),
		r.State,
		r.Blocked,
		nullableString(r.BatchID),
		formatTime(r.CreatedAt),
	)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return r, nil
}

// GetReservation retrieves a reservation by id.
func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return r, nil
}

// ListReservations returns a unit's reservations ordered by begin time.
// EndsAfter and BeginsBefore select reservations overlapping that window.
func (s *Store) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.UnitID != "" {
		clauses = append(clauses, "unit_id = ?")
		args = append(args, filter.UnitID)
	}
	if filter.EndsAfter != nil {
		clauses = append(clauses, "end_at > ?")
		args = append(args, formatTime(*filter.EndsAfter))
	}
	if filter.BeginsBefore != nil {
		clauses = append(clauses, "begin_at < ?")
		args = append(args, formatTime(*filter.BeginsBefore))
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY begin_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan reservation: %w", mapError(err))
		}
		reservations = append(reservations, r)
	}
	return reservations, mapError(rows.Err())
}

// UpdateReservationState changes the lifecycle state of a reservation.
func (s *Store) UpdateReservationState(ctx context.Context, id, state string) error {
	if strings.TrimSpace(state) == "" {
		return persistence.ErrConstraintViolation
	}
	result, err := s.db.ExecContext(ctx, `UPDATE reservations SET state = ? WHERE id = ?`, strings.ToUpper(state), id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanReservation(row scanner) (persistence.Reservation, error) {
	var (
		r                   persistence.Reservation
		begin, end, created string
		bufBefore, bufAfter int64
		batchID             sql.NullString
	)
	err := row.Scan(
		&r.ID,
		&r.UnitID,
		&begin,
		&end,
		&bufBefore,
		&bufAfter,
		&r.State,
		&r.Blocked,
		&batchID,
		&created,
	)
	if err != nil {
		return persistence.Reservation{}, err
	}

	r.BufferBefore = fromSeconds(bufBefore)
	r.BufferAfter = fromSeconds(bufAfter)
	r.BatchID = stringPtr(batchID)

	if r.Begin, err = parseTime(begin); err != nil {
		return persistence.Reservation{}, fmt.Errorf("sqlite: parse begin_at: %w", err)
	}
	if r.End, err = parseTime(end); err != nil {
		return persistence.Reservation{}, fmt.Errorf("sqlite: parse end_at: %w", err)
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return persistence.Reservation{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	return r, nil
}
