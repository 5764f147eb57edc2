package handler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
)

type AttendanceService interface {
	TakeAttendance(ctx context.Context, in domain.SessionInput, img *domain.Image) (*domain.AttendanceOutcome, error)
	ListSessions(ctx context.Context, limit, offset int) ([]domain.Session, error)
	SessionSummary(ctx context.Context, sessionID string) (*domain.SessionSummary, error)
}

type AttendanceHandler struct {
	service AttendanceService
	decoder *imaging.Decoder
	logger  *slog.Logger
}

func NewAttendanceHandler(service AttendanceService, decoder *imaging.Decoder, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{service: service, decoder: decoder, logger: logger}
}

// TakeAttendanceRequest is the JSON form of an attendance capture. Session
// details are only used when the session does not exist yet.
type TakeAttendanceRequest struct {
	Name      string     `json:"name"`
	Course    string     `json:"course"`
	Location  string     `json:"location"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Image     string     `json:"image"`
}

type SessionListResponse struct {
	Sessions []domain.Session `json:"sessions"`
	Count    int              `json:"count"`
}

// Take POST /v1/sessions/:id/attendance - mark everyone recognized in the photo as present
func (h *AttendanceHandler) Take(c *fiber.Ctx) error {
	in := domain.SessionInput{ID: strings.TrimSpace(c.Params("id"))}

	var img *domain.Image
	var err error

	if isMultipart(c) {
		in.Name = c.FormValue("name")
		in.Course = c.FormValue("course")
		in.Location = c.FormValue("location")
		if raw := c.FormValue("started_at"); raw != "" {
			if in.StartedAt, err = time.Parse(time.RFC3339, raw); err != nil {
				return domain.ErrValidationFailed.WithError(err)
			}
		}
		img, err = imageFromForm(c, h.decoder)
	} else {
		var body TakeAttendanceRequest
		if err := c.BodyParser(&body); err != nil {
			return domain.ErrBadRequest.WithError(err)
		}
		in.Name, in.Course, in.Location = body.Name, body.Course, body.Location
		if body.StartedAt != nil {
			in.StartedAt = *body.StartedAt
		}
		img, err = h.decoder.FromBase64(body.Image)
	}
	if err != nil {
		return err
	}

	outcome, err := h.service.TakeAttendance(c.UserContext(), in, img)
	if err != nil {
		return err
	}

	return c.JSON(outcome)
}

// ListSessions GET /v1/sessions?limit=&offset=
func (h *AttendanceHandler) ListSessions(c *fiber.Ctx) error {
	sessions, err := h.service.ListSessions(c.UserContext(), c.QueryInt("limit", 100), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(SessionListResponse{Sessions: sessions, Count: len(sessions)})
}

// Summary GET /v1/sessions/:id
func (h *AttendanceHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.service.SessionSummary(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(summary)
}
