// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and are returned in the `code` field of the
// error envelope built by fail(). Generic codes mirror HTTP status semantics;
// domain codes name the admin operation that failed.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "no registrations to draw from"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnavailable      = "unavailable"

	// Domain-specific:
	ErrCodeStatsFailed  = "stats_failed"
	ErrCodeListFailed   = "list_failed"
	ErrCodeDrawFailed   = "draw_failed"
	ErrCodeNotifyFailed = "notify_failed"
	ErrCodeImportFailed = "import_failed"
)
