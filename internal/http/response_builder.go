// Package http provides HTTP server and handler implementations.
//
// This file implements the builder used for every JSON response, so status
// codes, headers and the {message, error} body shape stay consistent.

package http

import (
	"encoding/json"
	"net/http"

	"kakeibo/internal/core"
)

// MessageResponse is the body of submit responses and of every error.
type MessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets any JSON-encodable value as the body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Message sets a {message, error} body. An empty detail is omitted.
func (b *JSONResponseBuilder) Message(message, detail string) *JSONResponseBuilder {
	b.body = MessageResponse{Message: message, Error: detail}
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"` + core.MsgProcessingFailed + `"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// ErrorResponse creates a {message, error} response with the given status.
func ErrorResponse(statusCode int, message, detail string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message, detail)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message, detail string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message, detail)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message, detail string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message, detail)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message, "")
}

// MethodNotAllowedError creates a 405 response listing the allowed methods.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "").
		Header("Allow", allowedMethods)
}

// TooManyRequestsError creates the 429 response of the rate limiter.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, core.MsgRateLimited, "").
		Header("Retry-After", "60")
}

// StatusForKind maps a failure category to its HTTP status.
func StatusForKind(kind core.Kind) int {
	switch kind {
	case core.KindNone:
		return http.StatusOK
	case core.KindInput:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the error response for an append failure.
func FromError(err error) *JSONResponseBuilder {
	message, detail := core.Message(err)
	return ErrorResponse(StatusForKind(core.KindOf(err)), message, detail)
}
