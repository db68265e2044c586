package testutil

import (
	"net/http"

	"evera/pkg/requestcontext"
)

// WithRequestID puts a request id on the request context the way the shell
// middleware does, for handlers exercised without the router.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithUserAgent sets the User-Agent header and the matching context value.
func WithUserAgent(req *http.Request, userAgent string) *http.Request {
	req.Header.Set("User-Agent", userAgent)
	return req.WithContext(requestcontext.WithUserAgent(req.Context(), userAgent))
}
