// Package slug derives URL-safe tenant slugs from display names and assigns unique ones.
package slug

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxLength caps the normalized slug before any uniqueness suffix is added.
	MaxLength = 50

	// Fallback is used when a name has no alphanumeric characters.
	Fallback = "workspace"

	// DefaultMaxAttempts bounds the number of suffixed candidates Assign will try.
	DefaultMaxAttempts = 100
)

var (
	// ErrTaken is returned by a claim function when another tenant won the slug.
	ErrTaken = errors.New("slug taken")

	// ErrExhausted is returned when every candidate up to the attempt limit is taken.
	ErrExhausted = errors.New("no free slug within attempt limit")
)

// Of normalizes a name into a slug: lower-case ASCII letters and digits with single hyphens
// between runs, at most MaxLength characters, never empty.
func Of(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	s := b.String()
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	if s == "" {
		return Fallback
	}
	return s
}

// Candidate returns the n-th candidate for base: base itself for 0, then base-1, base-2, ...
func Candidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

// ExistsFunc reports whether a slug is already in use.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// ClaimFunc persists the slug. It returns ErrTaken when a uniqueness constraint rejects it.
type ClaimFunc func(ctx context.Context, slug string) error

// Assign claims the first free candidate derived from base.
// exists is an optimistic pre-check; the claim's uniqueness constraint is authoritative, so a
// candidate lost to a concurrent writer moves on to the next suffix.
func Assign(ctx context.Context, base string, maxAttempts int, exists ExistsFunc, claim ClaimFunc) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for n := 0; n < maxAttempts; n++ {
		candidate := Candidate(base, n)

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if taken {
			continue
		}

		err = claim(ctx, candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, ErrTaken) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %s", ErrExhausted, base)
}
