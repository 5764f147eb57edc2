package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
)

type EnrollmentService interface {
	Enroll(ctx context.Context, req domain.EnrollRequest) (*domain.Identity, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Identity, error)
	List(ctx context.Context, query string, limit, offset int) ([]domain.Identity, error)
}

type IdentityAttendance interface {
	IdentityAttendance(ctx context.Context, identityID string) ([]domain.AttendanceRecord, error)
}

// IdentityHandler handles enrollment and identity lookups
type IdentityHandler struct {
	service    EnrollmentService
	attendance IdentityAttendance
	decoder    *imaging.Decoder
	logger     *slog.Logger
}

func NewIdentityHandler(service EnrollmentService, attendance IdentityAttendance, decoder *imaging.Decoder, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{
		service:    service,
		attendance: attendance,
		decoder:    decoder,
		logger:     logger,
	}
}

// EnrollRequest is the JSON form of an enrollment.
type EnrollRequest struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Image       string            `json:"image"`
}

type IdentityResponse struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

type IdentityListResponse struct {
	Identities []IdentityResponse `json:"identities"`
	Count      int                `json:"count"`
}

type AttendanceHistoryResponse struct {
	IdentityID string                    `json:"identity_id"`
	Records    []domain.AttendanceRecord `json:"records"`
}

func toIdentityResponse(i *domain.Identity) IdentityResponse {
	return IdentityResponse{
		ID:          i.ID,
		DisplayName: i.DisplayName,
		Metadata:    i.Metadata,
		CreatedAt:   i.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   i.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Enroll POST /v1/identities - register or replace an identity's face
func (h *IdentityHandler) Enroll(c *fiber.Ctx) error {
	req, err := h.parseEnroll(c)
	if err != nil {
		return err
	}

	identity, err := h.service.Enroll(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toIdentityResponse(identity))
}

func (h *IdentityHandler) parseEnroll(c *fiber.Ctx) (domain.EnrollRequest, error) {
	var req domain.EnrollRequest

	if isMultipart(c) {
		req.IdentityID = strings.TrimSpace(c.FormValue("id"))
		req.DisplayName = strings.TrimSpace(c.FormValue("display_name"))
		if raw := c.FormValue("metadata"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Metadata); err != nil {
				return req, domain.ErrValidationFailed.WithError(errors.New("metadata must be a JSON object of strings"))
			}
		}
		img, err := imageFromForm(c, h.decoder)
		if err != nil {
			return req, err
		}
		req.Image = img
		return req, nil
	}

	var body EnrollRequest
	if err := c.BodyParser(&body); err != nil {
		return req, domain.ErrBadRequest.WithError(err)
	}
	req.IdentityID = strings.TrimSpace(body.ID)
	req.DisplayName = strings.TrimSpace(body.DisplayName)
	req.Metadata = body.Metadata
	if body.Image == "" {
		return req, domain.ErrValidationFailed.WithError(errors.New("image is required"))
	}
	img, err := h.decoder.FromBase64(body.Image)
	if err != nil {
		return req, err
	}
	req.Image = img
	return req, nil
}

// List GET /v1/identities?q=&limit=&offset=
func (h *IdentityHandler) List(c *fiber.Ctx) error {
	identities, err := h.service.List(c.UserContext(), c.Query("q"), c.QueryInt("limit", 100), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	resp := IdentityListResponse{Identities: make([]IdentityResponse, 0, len(identities))}
	for i := range identities {
		resp.Identities = append(resp.Identities, toIdentityResponse(&identities[i]))
	}
	resp.Count = len(resp.Identities)

	return c.JSON(resp)
}

// Get GET /v1/identities/:id
func (h *IdentityHandler) Get(c *fiber.Ctx) error {
	identity, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toIdentityResponse(identity))
}

// Delete DELETE /v1/identities/:id - remove the face data (LGPD)
func (h *IdentityHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Attendance GET /v1/identities/:id/attendance
func (h *IdentityHandler) Attendance(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.service.Get(c.UserContext(), id); err != nil {
		return err
	}

	records, err := h.attendance.IdentityAttendance(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(AttendanceHistoryResponse{IdentityID: id, Records: records})
}
