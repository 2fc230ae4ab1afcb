package shortcode

import "errors"

// ErrAllocationExhausted is returned when no unused code was found within
// the configured number of attempts
var ErrAllocationExhausted = errors.New("short code allocation exhausted")

// DefaultMaxAttempts bounds the generate-and-check loop
const DefaultMaxAttempts = 20

// ExistsFunc reports whether a candidate code is already taken
type ExistsFunc func(code string) (bool, error)

// Allocator produces short codes that are unused at the moment of
// allocation. The existence check is advisory only: concurrent allocators
// can race past it, so the store's unique index remains the authoritative
// guard and callers must retry creation on a duplicate-code failure.
type Allocator struct {
	gen         *Generator
	exists      ExistsFunc
	length      int
	maxAttempts int
}

// NewAllocator creates an allocator. Non-positive length or maxAttempts
// fall back to the package defaults.
func NewAllocator(gen *Generator, exists ExistsFunc, length, maxAttempts int) *Allocator {
	if length <= 0 {
		length = DefaultLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{gen: gen, exists: exists, length: length, maxAttempts: maxAttempts}
}

// Allocate returns a code not present in the store at check time, or
// ErrAllocationExhausted once the attempt limit is reached.
func (a *Allocator) Allocate() (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		code := a.gen.Generate(a.length)
		taken, err := a.exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrAllocationExhausted
}
