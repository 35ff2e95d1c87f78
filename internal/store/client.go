package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"appointment-scheduler/internal/model"
)

func (s *Store) CreateClient(ctx context.Context, c *model.Client) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO clients (id, first_name, last_name, email, phone, address, neighborhood, city, birth_date)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING created_at`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone,
		c.Address, c.Neighborhood, c.City, toPGDate(c.BirthDate),
	).Scan(&c.CreatedAt)
	return translate(err)
}

// SearchClients matches term as a case-insensitive substring of the first
// or last name.
func (s *Store) SearchClients(ctx context.Context, term string, limit int) ([]model.Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, first_name, last_name, email, phone, address, neighborhood, city, birth_date, created_at
		 FROM clients
		 WHERE first_name ILIKE $1 ESCAPE '\' OR last_name ILIKE $1 ESCAPE '\'
		 ORDER BY first_name, last_name
		 LIMIT $2`, "%"+escapeLike(term)+"%", limit,
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []model.Client{}
	for rows.Next() {
		var (
			c     model.Client
			birth pgtype.Date
		)
		if err := rows.Scan(
			&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
			&c.Address, &c.Neighborhood, &c.City, &birth, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		c.BirthDate = fromPGDate(birth)
		out = append(out, c)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
