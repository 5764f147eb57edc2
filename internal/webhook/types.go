package webhook

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const (
	EventAttendanceMarked = "attendance.marked"

	StatusPending   = "pending"
	StatusSending   = "sending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"

	DefaultMaxAttempts = 5
)

// Event is the JSON body posted to the configured endpoint.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// AttendanceData is the payload of an attendance.marked event.
type AttendanceData struct {
	Present      []domain.AttendanceRecord `json:"present"`
	UnknownCount int                       `json:"unknown_count"`
}

// Delivery is one queued event.
type Delivery struct {
	ID          uuid.UUID
	EventType   string
	Payload     []byte
	Attempts    int
	MaxAttempts int
}
