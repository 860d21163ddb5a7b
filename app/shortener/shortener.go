// Package shortener wraps the external link-shortening service used to
// turn long signed attachment URLs into phone-friendly short links.
package shortener

import "context"

// Result carries the outcome of a shorten call.
type Result struct {
	Success  bool
	ShortURL string
}

// Shortener shortens a long URL.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (Result, error)
}
