package cache

import (
	"net/http"
	"time"
)

// DefaultLockTimeout bounds how long Sync waits for another process holding
// the cache lock.
const DefaultLockTimeout = 30 * time.Second

// HTTPClient is the interface for HTTP operations.
// *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithHTTPClient sets the client used for both feeds.
// If not set, http.DefaultClient is used.
func WithHTTPClient(c HTTPClient) Option {
	return func(s *Synchronizer) {
		s.client = c
	}
}

// WithStatus sets a callback receiving human-readable progress messages.
// Calls are serialized.
func WithStatus(fn func(string)) Option {
	return func(s *Synchronizer) {
		s.status = fn
	}
}

// WithLockTimeout sets how long to wait for the cache lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		s.lockTimeout = d
	}
}

// WithToken sets a bearer token sent with the model archive request.
func WithToken(token string) Option {
	return func(s *Synchronizer) {
		s.token = token
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Synchronizer) {
		s.userAgent = ua
	}
}
