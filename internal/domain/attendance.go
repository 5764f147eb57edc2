package domain

import (
	"time"

	"github.com/google/uuid"
)

const AttendanceStatusPresent = "present"

// Session é uma chamada (aula, evento) onde a presença é registrada
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Course    string    `json:"course,omitempty"`
	Location  string    `json:"location,omitempty"`
	StartedAt time.Time `json:"started_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionInput identifies a session and, when it does not exist yet, the
// details used to create it.
type SessionInput struct {
	ID        string    `validate:"required,max=128"`
	Name      string    `validate:"max=256"`
	Course    string    `validate:"max=256"`
	Location  string    `validate:"max=256"`
	StartedAt time.Time `validate:"-"`
}

// AttendanceRecord registra a presença de uma identidade em uma sessão
type AttendanceRecord struct {
	ID          uuid.UUID `json:"id"`
	SessionID   string    `json:"session_id"`
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Status      string    `json:"status"`
	Confidence  float64   `json:"confidence"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// AttendanceOutcome is what one attendance capture produced.
type AttendanceOutcome struct {
	Session      *Session           `json:"session"`
	Recognition  *Recognition       `json:"recognition"`
	Recorded     []AttendanceRecord `json:"recorded"`
	UnknownCount int                `json:"unknown_count"`
}

// SessionSummary lists who was present in a session.
type SessionSummary struct {
	Session *Session           `json:"session"`
	Present int                `json:"present"`
	Records []AttendanceRecord `json:"records"`
}
