package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"appointment-scheduler/internal/model"
)

const appointmentColumns = `id, client_name, phone, service, appointment_date, appointment_time,
	status, owner_id, client_id, created_at, updated_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var (
		a    model.Appointment
		date pgtype.Date
		tod  pgtype.Time
	)
	err := row.Scan(
		&a.ID, &a.ClientName, &a.Phone, &a.Service, &date, &tod,
		&a.Status, &a.OwnerID, &a.ClientID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Date = fromPGDate(date)
	a.Time = fromPGTime(tod)
	return &a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (id, client_name, phone, service, appointment_date, appointment_time, status, owner_id, client_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING created_at, updated_at`,
		a.ID, a.ClientName, a.Phone, a.Service, toPGDate(a.Date), toPGTime(a.Time),
		a.Status, a.OwnerID, a.ClientID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return translate(err)
}

func (s *Store) ListAppointments(ctx context.Context, ownerID string) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE owner_id = $1
		 ORDER BY appointment_date, appointment_time`, ownerID,
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// GetAppointment returns ErrNotFound for rows owned by someone else, so the
// caller cannot tell them apart from missing ones.
func (s *Store) GetAppointment(ctx context.Context, ownerID, id string) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	))
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE appointments
		 SET client_name=$1, phone=$2, service=$3, appointment_date=$4, appointment_time=$5,
		     status=$6, client_id=$7, updated_at=NOW()
		 WHERE id=$8 AND owner_id=$9
		 RETURNING created_at, updated_at`,
		a.ClientName, a.Phone, a.Service, toPGDate(a.Date), toPGTime(a.Time),
		a.Status, a.ClientID, a.ID, a.OwnerID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return translate(err)
}

// DeleteAppointment is a no-op when nothing matches.
func (s *Store) DeleteAppointment(ctx context.Context, ownerID, id string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM appointments WHERE id=$1 AND owner_id=$2`, id, ownerID,
	)
	return translate(err)
}
