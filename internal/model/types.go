package model

import (
	"time"

	"github.com/google/uuid"
)

// Location is a latitude/longitude pair embedded in alerts and safe spots
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// User represents a registered user. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Alert is an incident report
type Alert struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Timestamp   time.Time  `json:"timestamp"`
	Location    Location   `json:"location"`
	Description string     `json:"description,omitempty"`
	ReportedBy  *uuid.UUID `json:"reportedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SafeSpot is a point of interest where people can seek help
type SafeSpot struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Address   string    `json:"address"`
	Location  Location  `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Severity values used by seed data and clients. Not enforced on input.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)
