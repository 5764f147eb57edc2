package ws

import (
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type EventType string

const (
	EventAttendanceMarked EventType = "attendance.marked"
)

type Event struct {
	SessionID string      `json:"session_id"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// AttendanceMarked is the payload of EventAttendanceMarked.
type AttendanceMarked struct {
	Records      []domain.AttendanceRecord `json:"records"`
	UnknownCount int                       `json:"unknown_count"`
}
