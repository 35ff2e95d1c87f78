// Package memstore is an in-memory stand-in for the Postgres store, with the
// same uniqueness, ownership and ordering rules.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	users        map[string]model.User
	clients      map[string]model.Client
	appointments map[string]model.Appointment
}

func New() *Store {
	return &Store{
		users:        map[string]model.User{},
		clients:      map[string]model.Client{},
		appointments: map[string]model.Appointment{},
	}
}

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Username == u.Username {
			return store.ErrConflict
		}
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UpdateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	for id, other := range s.users {
		if id != u.ID && other.Username == u.Username {
			return store.ErrConflict
		}
	}
	u.UpdatedAt = time.Now()
	s.users[u.ID] = *u
	return nil
}

// DeleteUser also drops the user's appointments.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	for aid, a := range s.appointments {
		if a.OwnerID == id {
			delete(s.appointments, aid)
		}
	}
	return nil
}

func (s *Store) CreateClient(_ context.Context, c *model.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.clients {
		if other.Email == c.Email {
			return store.ErrConflict
		}
	}
	c.CreatedAt = time.Now()
	s.clients[c.ID] = *c
	return nil
}

func (s *Store) SearchClients(_ context.Context, term string, limit int) ([]model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(term)
	out := []model.Client{}
	for _, c := range s.clients {
		if strings.Contains(strings.ToLower(c.FirstName), needle) ||
			strings.Contains(strings.ToLower(c.LastName), needle) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].LastName < out[j].LastName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[a.OwnerID]; !ok {
		return fmt.Errorf("%w: appointments_owner_id_fkey", store.ErrMissingRef)
	}
	if err := s.checkClient(a.ClientID); err != nil {
		return err
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.appointments[a.ID] = *a
	return nil
}

func (s *Store) ListAppointments(_ context.Context, ownerID string) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Appointment{}
	for _, a := range s.appointments {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return clock(out[i].Time) < clock(out[j].Time)
	})
	return out, nil
}

func clock(t civil.Time) int {
	return (t.Hour*60+t.Minute)*60 + t.Second
}

func (s *Store) GetAppointment(_ context.Context, ownerID, id string) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok || a.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.appointments[a.ID]
	if !ok || cur.OwnerID != a.OwnerID {
		return store.ErrNotFound
	}
	if err := s.checkClient(a.ClientID); err != nil {
		return err
	}
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = time.Now()
	s.appointments[a.ID] = *a
	return nil
}

// checkClient mirrors the client_id foreign key. Callers hold mu.
func (s *Store) checkClient(id *string) error {
	if id == nil {
		return nil
	}
	if _, ok := s.clients[*id]; !ok {
		return fmt.Errorf("%w: appointments_client_id_fkey", store.ErrMissingRef)
	}
	return nil
}

func (s *Store) DeleteAppointment(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.appointments[id]; ok && a.OwnerID == ownerID {
		delete(s.appointments, id)
	}
	return nil
}
