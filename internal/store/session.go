package store

import (
	"context"
	"time"
)

// SessionStore persists encoded session payloads in the sessions table.
type SessionStore struct {
	s *Store
}

func (s *Store) Sessions() *SessionStore {
	return &SessionStore{s: s}
}

func (ss *SessionStore) Load(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := ss.s.pool.QueryRow(ctx,
		`SELECT data FROM sessions WHERE id = $1 AND expires_at > NOW()`, id,
	).Scan(&data)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (ss *SessionStore) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	_, err := ss.s.pool.Exec(ctx,
		`INSERT INTO sessions (id, data, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = NOW()`,
		id, data, time.Now().Add(ttl),
	)
	return translate(err)
}

func (ss *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := ss.s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return translate(err)
}

// DeleteExpired purges stale rows and reports how many were removed.
func (ss *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := ss.s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}
