package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches copies produced by WithError against their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	// Enrollment
	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrAmbiguousFace = &AppError{
		Code:       "AMBIGUOUS_FACE",
		Message:    "Multiple faces detected, please provide image with single face",
		StatusCode: 422,
	}

	ErrInvalidEncoding = &AppError{
		Code:       "INVALID_ENCODING",
		Message:    "Face encoding has an unexpected shape",
		StatusCode: 502,
	}

	ErrStoreWriteFailed = &AppError{
		Code:       "STORE_WRITE_FAILED",
		Message:    "Could not persist the record",
		StatusCode: 503,
	}

	ErrIdentityNotFound = &AppError{
		Code:       "IDENTITY_NOT_FOUND",
		Message:    "Identity not found",
		StatusCode: 404,
	}

	// Recognition
	ErrNoFacesDetected = &AppError{
		Code:       "NO_FACES_DETECTED",
		Message:    "No faces detected in the image",
		StatusCode: 422,
	}

	ErrNoKnownFaces = &AppError{
		Code:       "NO_KNOWN_FACES",
		Message:    "No registered faces found",
		StatusCode: 400,
	}

	ErrProviderUnavailable = &AppError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "Face provider is unavailable",
		StatusCode: 503,
	}

	// Gallery
	ErrCacheLoadFailed = &AppError{
		Code:       "CACHE_LOAD_FAILED",
		Message:    "Could not reload the enrollment gallery",
		StatusCode: 503,
	}

	ErrMalformedRecord = &AppError{
		Code:       "MALFORMED_RECORD",
		Message:    "Enrollment record is malformed",
		StatusCode: 500,
	}

	// Attendance
	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Attendance session not found",
		StatusCode: 404,
	}
)
