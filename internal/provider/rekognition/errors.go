package rekognition

import "errors"

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrInvalidImage indicates that Rekognition rejected or cannot accept the image
	ErrInvalidImage = errors.New("invalid image for rekognition")

	// ErrThrottled indicates that the request rate exceeded the account limits
	ErrThrottled = errors.New("rekognition request throttled")
)
