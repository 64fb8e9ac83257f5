// middleware/middleware.go
package middleware

import (
	"clementus360/agent-client/auth"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RoundTripperFunc adapts a function to http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// AuthMiddleware attaches the bearer credential when one is present
func AuthMiddleware(creds auth.Provider) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			token := creds.Token()
			if token == "" {
				return next.RoundTrip(r)
			}

			// An expired JWT would only earn a 401; drop it up front
			if claims, err := auth.ParseClaims(token); err == nil && claims.Expired(time.Now()) {
				creds.Invalidate()
				return next.RoundTrip(r)
			}

			// RoundTrippers must not modify the caller's request
			r = r.Clone(r.Context())
			r.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(r)
		})
	}
}

// UnauthorizedMiddleware invalidates the credential on any 401, whichever component sent the request.
// Requests already in flight when this fires are not cancelled.
func UnauthorizedMiddleware(creds auth.Provider) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(r)
			if err == nil && resp.StatusCode == http.StatusUnauthorized {
				creds.Invalidate()
			}
			return resp, err
		})
	}
}

// RequestIDMiddleware tags each request with an X-Request-ID
func RequestIDMiddleware(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("X-Request-ID") != "" {
			return next.RoundTrip(r)
		}
		r = r.Clone(r.Context())
		r.Header.Set("X-Request-ID", uuid.NewString())
		return next.RoundTrip(r)
	})
}

// LoggingMiddleware logs outgoing requests
func LoggingMiddleware(logger logrus.FieldLogger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			fields := logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"duration":   time.Since(start).String(),
				"request_id": r.Header.Get("X-Request-ID"),
			}
			if err != nil {
				logger.WithFields(fields).WithError(err).Debug("HTTP request failed")
				return resp, err
			}
			fields["status"] = resp.StatusCode
			logger.WithFields(fields).Debug("HTTP request")
			return resp, nil
		})
	}
}

// Chain allows chaining multiple middleware functions. The first one sees the request first.
func Chain(middlewares ...func(http.RoundTripper) http.RoundTripper) func(http.RoundTripper) http.RoundTripper {
	return func(final http.RoundTripper) http.RoundTripper {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
