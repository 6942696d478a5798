package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("booking: not found")

// Repository abstracts booking persistence.
//
// Complete must be idempotent at the row level: completing an already
// completed booking overwrites the same fields and keeps Completed true.
type Repository interface {
	Create(ctx context.Context, b Booking) error
	GetByID(ctx context.Context, id string) (Booking, error)
	Complete(ctx context.Context, id string, f CompletionFields, at time.Time) error
	ListCompleted(ctx context.Context, limit int) ([]Booking, error)
}

// PostgresRepo persists bookings in Postgres via database/sql.
//
// Assumed schema:
//
//	CREATE TABLE bookings (
//	    id               TEXT PRIMARY KEY,
//	    phone_number     TEXT NOT NULL,
//	    patient_name     TEXT NOT NULL DEFAULT '',
//	    preferred_doctor TEXT NOT NULL DEFAULT '',
//	    appointment_date TEXT NOT NULL DEFAULT '',
//	    appointment_time TEXT NOT NULL DEFAULT '',
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    completed        BOOLEAN NOT NULL DEFAULT FALSE,
//	    completed_at     TIMESTAMPTZ
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Create(ctx context.Context, b Booking) error {
	const q = `
INSERT INTO bookings (id, phone_number, patient_name, preferred_doctor, appointment_date, appointment_time, created_at, completed)
VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
`
	_, err := r.db.ExecContext(ctx, q,
		b.ID,
		b.PhoneNumber,
		b.PatientName,
		b.PreferredDoctor,
		b.AppointmentDate,
		b.AppointmentTime,
		b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Booking, error) {
	const q = `
SELECT id, phone_number, patient_name, preferred_doctor, appointment_date, appointment_time, created_at, completed, completed_at
FROM bookings
WHERE id = $1
`
	var b Booking
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID,
		&b.PhoneNumber,
		&b.PatientName,
		&b.PreferredDoctor,
		&b.AppointmentDate,
		&b.AppointmentTime,
		&b.CreatedAt,
		&b.Completed,
		&b.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	if err != nil {
		return Booking{}, fmt.Errorf("booking: get: %w", err)
	}
	return b, nil
}

func (r *PostgresRepo) Complete(ctx context.Context, id string, f CompletionFields, at time.Time) error {
	const q = `
UPDATE bookings
SET patient_name = $2,
    preferred_doctor = $3,
    appointment_date = $4,
    appointment_time = $5,
    completed = TRUE,
    completed_at = $6
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, f.PatientName, f.PreferredDoctor, f.AppointmentDate, f.AppointmentTime, at)
	if err != nil {
		return fmt.Errorf("booking: complete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("booking: complete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListCompleted(ctx context.Context, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, phone_number, patient_name, preferred_doctor, appointment_date, appointment_time, created_at, completed, completed_at
FROM bookings
WHERE completed = TRUE
ORDER BY completed_at DESC
LIMIT $1
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("booking: list completed: %w", err)
	}
	defer rows.Close()

	out := make([]Booking, 0)
	for rows.Next() {
		var b Booking
		if err := rows.Scan(
			&b.ID,
			&b.PhoneNumber,
			&b.PatientName,
			&b.PreferredDoctor,
			&b.AppointmentDate,
			&b.AppointmentTime,
			&b.CreatedAt,
			&b.Completed,
			&b.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("booking: scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: rows: %w", err)
	}
	return out, nil
}
