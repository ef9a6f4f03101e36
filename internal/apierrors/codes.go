// Package apierrors provides structured API error codes and responses.
// All codes are namespaced (e.g., "core:unauthorized", "tickets:store_failed").
package apierrors

import "net/http"

// Core error codes - registered automatically at init
const (
	CodeUnauthorized = "core:unauthorized"
	CodeInvalidToken = "core:invalid_token"
	CodeTokenExpired = "core:token_expired"

	CodeInvalidRequest   = "core:invalid_request"
	CodeValidationFailed = "core:validation_failed"

	CodeNotFound = "core:not_found"

	CodeInternalError      = "core:internal_error"
	CodeServiceUnavailable = "core:service_unavailable"
)

// Ticket domain error codes
const (
	CodeUpstreamLoginFailed = "tickets:upstream_login_failed"
	CodeRemoteFetchFailed   = "tickets:remote_fetch_failed"
	CodeStoreFailed         = "tickets:store_failed"
	CodeChainNotFound       = "tickets:chain_not_found"
)

var registeredErrors = []ErrorCode{
	{Code: CodeUnauthorized, Message: "Authentication required", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeInvalidToken, Message: "Invalid or malformed token", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeTokenExpired, Message: "Token has expired", HTTPStatus: http.StatusUnauthorized},

	{Code: CodeInvalidRequest, Message: "Invalid request body", HTTPStatus: http.StatusBadRequest},
	{Code: CodeValidationFailed, Message: "Request validation failed", HTTPStatus: http.StatusBadRequest},

	{Code: CodeNotFound, Message: "Resource not found", HTTPStatus: http.StatusNotFound},

	{Code: CodeInternalError, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError},
	{Code: CodeServiceUnavailable, Message: "Service temporarily unavailable", HTTPStatus: http.StatusServiceUnavailable},

	{Code: CodeUpstreamLoginFailed, Message: "Upstream ticket service rejected the credentials", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeRemoteFetchFailed, Message: "Upstream ticket service request failed", HTTPStatus: http.StatusBadGateway},
	{Code: CodeStoreFailed, Message: "Assignment store operation failed", HTTPStatus: http.StatusInternalServerError},
	{Code: CodeChainNotFound, Message: "No tracked chain for this ticket number", HTTPStatus: http.StatusNotFound},
}

func init() {
	for _, e := range registeredErrors {
		Registry.Register(e)
	}
}
