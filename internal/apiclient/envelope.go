package apiclient

import (
	"net/http"

	"github.com/benvon/todoms/internal/models"
)

// ErrCodeHTTP is used when a failed response carries no error code
const ErrCodeHTTP = "http-error"

// Envelope is the uniform outcome of every gateway operation.
// Exactly one of Data and Error is set, except for 204 responses where both are nil.
type Envelope[T any] struct {
	Data       *T
	StatusCode int
	Error      *models.ErrorResponse
}

// OK reports whether the call reached the server and succeeded
func (e Envelope[T]) OK() bool {
	return e.Error == nil && e.StatusCode >= 200 && e.StatusCode < 300
}

// IsClientError reports whether the call failed locally without a usable response
func (e Envelope[T]) IsClientError() bool {
	return e.Error != nil && e.Error.Code == models.ErrCodeClient
}

// ErrorMessage returns the error message or an empty string
func (e Envelope[T]) ErrorMessage() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Message
}

func clientError[T any](message string) Envelope[T] {
	return Envelope[T]{
		StatusCode: 0,
		Error: &models.ErrorResponse{
			Code:    models.ErrCodeClient,
			Message: message,
		},
	}
}

func httpError[T any](status int) Envelope[T] {
	return Envelope[T]{
		StatusCode: status,
		Error: &models.ErrorResponse{
			Code:    ErrCodeHTTP,
			Message: http.StatusText(status),
		},
	}
}
