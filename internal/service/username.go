package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxUsernameAttempts bounds the existence checks GenerateUsername
// performs when the caller passes a non-positive limit.
const DefaultMaxUsernameAttempts = 1000

// ErrUsernameExhausted is returned when every candidate up to the attempt
// ceiling is already taken.
var ErrUsernameExhausted = errors.New("username candidates exhausted")

// ExistsFunc reports whether a handle is already taken.
type ExistsFunc func(ctx context.Context, name string) (bool, error)

// BaseUsername derives the "first.last" handle before collision checks.
//
// HOW THE TWO HALVES ARE PICKED:
//
//	"Jane Q Doe",  jane@x → jane.doe     (first and last token)
//	"Jane",        jd@x   → jane.jd      (single token + email local part)
//	"",            jd@x   → jd.user      (local part + literal "user")
//
// Both halves keep only ASCII letters and digits, lowercased. Degenerate
// input yields degenerate handles such as "." and that is accepted.
func BaseUsername(email, displayName string) string {
	local := localPart(email)

	var first, last string
	tokens := strings.Fields(displayName)
	switch {
	case len(tokens) >= 2:
		first, last = tokens[0], tokens[len(tokens)-1]
	case len(tokens) == 1:
		first, last = tokens[0], local
	default:
		first, last = local, "user"
	}

	return cleanHandlePart(first) + "." + cleanHandlePart(last)
}

// GenerateUsername returns the first free handle among base, base_1,
// base_2, ... Every candidate is re-checked through exists.
func GenerateUsername(ctx context.Context, email, displayName string, exists ExistsFunc, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxUsernameAttempts
	}

	base := BaseUsername(email, displayName)
	candidate := base

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "_" + strconv.Itoa(attempt)
	}

	return "", fmt.Errorf("%w: %q after %d attempts", ErrUsernameExhausted, base, maxAttempts)
}

// localPart is everything before the first "@", or the whole string.
func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func cleanHandlePart(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}
