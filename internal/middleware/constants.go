package middleware

// HTTP header constants.
const (
	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"

	// HeaderRetryAfter is the Retry-After header name.
	HeaderRetryAfter = "Retry-After"

	// HeaderXForwardedFor is the X-Forwarded-For header name.
	HeaderXForwardedFor = "X-Forwarded-For"
)

// ContentTypeJSON is the content type of every error body written here.
const ContentTypeJSON = "application/json"

// Error bodies share the {"error","message"} shape of the proxy handlers.
const (
	// ErrRateLimitExceeded is the body for rejected requests.
	ErrRateLimitExceeded = `{"error":"Too Many Requests","message":"rate limit exceeded"}`

	// ErrInternalServerError is the body written after a recovered panic.
	ErrInternalServerError = `{"error":"Internal Server Error","message":"internal server error"}`

	// ErrRequestEntityTooLarge is the body for requests above the size limit.
	ErrRequestEntityTooLarge = `{"error":"Request Entity Too Large","message":"request body too large"}`
)
