package models

// Error codes carried in ErrorResponse.Code
const (
	ErrCodeValidation         = "validation_error"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeInvalidToken       = "invalid_token"
	ErrCodeNotFound           = "not_found"
	ErrCodeConflict           = "conflict"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeInternal           = "internal_error"
	// ErrCodeClient marks a local failure: the request never reached the server
	// or the response could not be understood
	ErrCodeClient = "client-error"
)

// ErrorResponse is the error body returned by the API
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
