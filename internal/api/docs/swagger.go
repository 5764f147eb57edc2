package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// IdentityResponse represents an enrolled person
type IdentityResponse struct {
	ID          string            `json:"id" example:"2024001"`
	DisplayName string            `json:"display_name" example:"Ana Souza"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   string            `json:"created_at" example:"2024-01-01T00:00:00Z"`
	UpdatedAt   string            `json:"updated_at" example:"2024-01-01T00:00:00Z"`
}

// IdentityListResponse represents a page of identities
type IdentityListResponse struct {
	Identities []IdentityResponse `json:"identities"`
	Count      int                `json:"count" example:"1"`
}

// FaceLocation is a face bounding box in pixels
type FaceLocation struct {
	X      float64 `json:"x" example:"120"`
	Y      float64 `json:"y" example:"80"`
	Width  float64 `json:"width" example:"96"`
	Height float64 `json:"height" example:"96"`
}

// MatchResult is the outcome for one detected face
type MatchResult struct {
	ProbeIndex   int          `json:"probe_index" example:"0"`
	IdentityID   string       `json:"identity_id" example:"2024001"`
	DisplayName  string       `json:"display_name,omitempty" example:"Ana Souza"`
	Confidence   float64      `json:"confidence" example:"0.62"`
	Distance     float64      `json:"distance" example:"0.38"`
	FaceLocation FaceLocation `json:"face_location"`
}

// RecognitionResponse represents the result of a recognition pass
type RecognitionResponse struct {
	Results         []MatchResult `json:"results"`
	FacesDetected   int           `json:"faces_detected" example:"3"`
	UnknownCount    int           `json:"unknown_count" example:"1"`
	GallerySize     int           `json:"gallery_size" example:"42"`
	GalleryLoadedAt string        `json:"gallery_loaded_at" example:"2024-01-01T08:00:00Z"`
	Stale           bool          `json:"stale" example:"false"`
	Warning         string        `json:"warning,omitempty" example:""`
}

// SessionResponse represents an attendance session
type SessionResponse struct {
	ID        string `json:"id" example:"calc-2024-03-02"`
	Name      string `json:"name" example:"Calculus I"`
	Course    string `json:"course,omitempty" example:"MAT101"`
	Location  string `json:"location,omitempty" example:"Room 5"`
	StartedAt string `json:"started_at" example:"2024-03-02T08:00:00Z"`
	CreatedAt string `json:"created_at" example:"2024-03-02T08:01:00Z"`
}

// SessionListResponse represents a page of sessions
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Count    int               `json:"count" example:"1"`
}

// AttendanceRecordResponse represents one presence mark
type AttendanceRecordResponse struct {
	ID          string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SessionID   string  `json:"session_id" example:"calc-2024-03-02"`
	IdentityID  string  `json:"identity_id" example:"2024001"`
	DisplayName string  `json:"display_name,omitempty" example:"Ana Souza"`
	Status      string  `json:"status" example:"present"`
	Confidence  float64 `json:"confidence" example:"0.62"`
	RecordedAt  string  `json:"recorded_at" example:"2024-03-02T08:05:00Z"`
}

// AttendanceOutcomeResponse represents the result of taking attendance
type AttendanceOutcomeResponse struct {
	Session      SessionResponse            `json:"session"`
	Recognition  RecognitionResponse        `json:"recognition"`
	Recorded     []AttendanceRecordResponse `json:"recorded"`
	UnknownCount int                        `json:"unknown_count" example:"1"`
}

// SessionSummaryResponse represents who attended a session
type SessionSummaryResponse struct {
	Session SessionResponse            `json:"session"`
	Present int                        `json:"present" example:"28"`
	Records []AttendanceRecordResponse `json:"records"`
}

// AttendanceHistoryResponse represents the sessions one identity attended
type AttendanceHistoryResponse struct {
	IdentityID string                     `json:"identity_id" example:"2024001"`
	Records    []AttendanceRecordResponse `json:"records"`
	Count      int                        `json:"count" example:"12"`
}

// GalleryStatsResponse describes the loaded gallery
type GalleryStatsResponse struct {
	Size        int    `json:"size" example:"42"`
	LoadedAt    string `json:"loaded_at" example:"2024-03-02T08:00:00Z"`
	Loaded      bool   `json:"loaded" example:"true"`
	Reloads     int64  `json:"reloads" example:"7"`
	LoadErrors  int64  `json:"load_errors" example:"0"`
	LastSkipped int    `json:"last_skipped" example:"0"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var (
	errInternal   = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	errBadImage   = response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Image is missing, too large or not jpeg/png/webp"}, "422", "Unprocessable Entity")
	errProvider   = response.New(ErrorResponse{Code: "PROVIDER_UNAVAILABLE", Message: "Face provider unavailable"}, "503", "Service Unavailable")
	errStoreWrite = response.New(ErrorResponse{Code: "STORE_WRITE_FAILED", Message: "Could not persist the change"}, "503", "Service Unavailable")
)

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Chamada Attendance API",
		Version:     "v1.0.0",
		Description: "Face-based attendance: enroll people once, then mark everyone recognized in a class photo as present",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	imageConsumes := endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data"), mime.JSON})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/identities - Enroll
		endpoint.New(
			endpoint.POST,
			"/identities",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Enroll a person"),
			endpoint.WithDescription("Detects exactly one face in the image, stores its encoding under the given id and refreshes the gallery. Re-enrolling an id replaces its encoding."),
			imageConsumes,
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityResponse{}, "201", "Identity enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "id and display_name are required"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "AMBIGUOUS_FACE", Message: "More than one face detected"}, "422", "Unprocessable Entity"),
				errBadImage,
				errStoreWrite,
				errInternal,
			}),
		),

		// GET /v1/identities - List
		endpoint.New(
			endpoint.GET,
			"/identities",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("List enrolled identities"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("q", parameter.Query, parameter.WithDescription("Filter by display name, accent and case insensitive")),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Page size (default: 100, max: 500)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Page offset (default: 0)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityListResponse{}, "200", "Identities retrieved"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),

		// GET /v1/identities/:id - Get
		endpoint.New(
			endpoint.GET,
			"/identities/{id}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Get an identity"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Identity id, e.g. a student number")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityResponse{}, "200", "Identity found"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
				errInternal,
			}),
		),

		// DELETE /v1/identities/:id - Delete
		endpoint.New(
			endpoint.DELETE,
			"/identities/{id}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Delete an identity"),
			endpoint.WithDescription("Removes the identity and its attendance history, then refreshes the gallery"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Identity id")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Identity deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
				errStoreWrite,
			}),
		),

		// GET /v1/identities/:id/attendance - History
		endpoint.New(
			endpoint.GET,
			"/identities/{id}/attendance",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Attendance history of an identity"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Identity id")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AttendanceHistoryResponse{}, "200", "History retrieved"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
				errInternal,
			}),
		),

		// POST /v1/recognize - Recognize
		endpoint.New(
			endpoint.POST,
			"/recognize",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Recognize every face in an image"),
			endpoint.WithDescription("Matches each detected face against the enrolled gallery. Faces over the distance threshold come back as \"unknown\". Nothing is recorded."),
			imageConsumes,
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognitionResponse{}, "200", "Recognition completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_KNOWN_FACES", Message: "No identities are enrolled"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "NO_FACES_DETECTED", Message: "No faces detected in image"}, "422", "Unprocessable Entity"),
				errBadImage,
				errProvider,
				errInternal,
			}),
		),

		// POST /v1/sessions/:id/attendance - Take attendance
		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/attendance",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Take attendance from a class photo"),
			endpoint.WithDescription("Creates the session if needed, recognizes the photo and marks every known face present. Marking the same person twice keeps one record with the higher confidence."),
			imageConsumes,
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session id")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AttendanceOutcomeResponse{}, "200", "Attendance recorded"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid session fields"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "NO_KNOWN_FACES", Message: "No identities are enrolled"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "NO_FACES_DETECTED", Message: "No faces detected in image"}, "422", "Unprocessable Entity"),
				errBadImage,
				errStoreWrite,
				errProvider,
			}),
		),

		// GET /v1/sessions - List sessions
		endpoint.New(
			endpoint.GET,
			"/sessions",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("List sessions, newest first"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Page size (default: 100, max: 500)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Page offset (default: 0)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionListResponse{}, "200", "Sessions retrieved"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),

		// GET /v1/sessions/:id - Summary
		endpoint.New(
			endpoint.GET,
			"/sessions/{id}",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Session summary"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session id")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionSummaryResponse{}, "200", "Summary retrieved"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Session not found"}, "404", "Not Found"),
				errInternal,
			}),
		),

		// GET /v1/sessions/:id/live - WebSocket feed
		endpoint.New(
			endpoint.GET,
			"/sessions/{id}/live",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Live attendance feed"),
			endpoint.WithDescription("WebSocket upgrade. Sends an attendance.marked event each time attendance is taken for the session."),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session id")),
			),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			}),
		),

		// GET /v1/gallery - Stats
		endpoint.New(
			endpoint.GET,
			"/gallery",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Gallery statistics"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(GalleryStatsResponse{}, "200", "Stats retrieved"),
			}),
		),

		// POST /v1/gallery/refresh - Reload
		endpoint.New(
			endpoint.POST,
			"/gallery/refresh",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Reload the gallery now"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(GalleryStatsResponse{}, "200", "Gallery reloaded"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "CACHE_LOAD_FAILED", Message: "Could not load the gallery"}, "503", "Service Unavailable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
