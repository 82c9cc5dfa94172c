package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxSessionIDLength bounds accepted session identifiers.
const MaxSessionIDLength = 128

// ValidateSessionRef checks that a session reference is usable as a
// binding key.
func ValidateSessionRef(ref SessionRef) error {
	if !ref.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSession, ref.Kind)
	}
	return ValidateSessionID(ref.ID)
}

// ValidateSessionID checks that a session id is non-empty and contains
// only letters, digits, '-', '_', and '.'.
func ValidateSessionID(id SessionID) error {
	value := string(id)
	if value == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidSession)
	}
	if len(value) > MaxSessionIDLength {
		return fmt.Errorf("%w: session id too long", ErrInvalidSession)
	}
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			continue
		}
		return fmt.Errorf("%w: session id %q", ErrInvalidSession, value)
	}
	return nil
}

// NormalizeDocumentName trims the name and enforces the limit. An empty
// trimmed name is a validation error surfaced before any network call.
func NormalizeDocumentName(name DocumentName, max int) (DocumentName, error) {
	trimmed := strings.TrimSpace(string(name))
	if trimmed == "" {
		return "", ErrInvalidName
	}
	if max > 0 && len(trimmed) > max {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, max)
	}
	return DocumentName(trimmed), nil
}
