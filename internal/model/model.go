package model

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the caller as established by the session gate.
type Identity struct {
	UserID   string
	Username string
}

type Client struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Address      string     `json:"address"`
	Neighborhood string     `json:"neighborhood"`
	City         string     `json:"city"`
	BirthDate    civil.Date `json:"birthDate"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Appointment struct {
	ID         string
	ClientName string
	Phone      string
	Service    string
	Date       civil.Date
	Time       civil.Time
	Status     string
	OwnerID    string
	// ClientID is set when the form was filled from a directory entry.
	ClientID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var statusLabels = map[string]string{
	StatusScheduled: "Agendado",
	StatusCompleted: "Concluído",
	StatusCancelled: "Cancelado",
}

// StatusLabel returns the display label for s. Unknown values pass through.
func StatusLabel(s string) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return s
}

func ValidStatus(s string) bool {
	_, ok := statusLabels[s]
	return ok
}

// Statuses lists the status values in display order.
func Statuses() []string {
	return []string{StatusScheduled, StatusCompleted, StatusCancelled}
}

// FormatClock renders a time-of-day as HH:MM.
func FormatClock(t civil.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
