package handlers

const (
	SessionCookieName = "speakwell_session"

	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests, please try again later"
	ErrInvalidCSRFToken    = "Invalid CSRF token"
)
