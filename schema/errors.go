package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidSession indicates an invalid session reference.
	ErrInvalidSession = errors.New("invalid session")
	// ErrInvalidName indicates an empty or unusable document name.
	ErrInvalidName = errors.New("blueprint name is required")
	// ErrDocumentNotFound indicates the blueprint document does not exist.
	ErrDocumentNotFound = errors.New("blueprint not found")
	// ErrNoBinding indicates the session has not resolved a blueprint yet.
	ErrNoBinding = errors.New("session has no bound blueprint")
	// ErrSessionBusy indicates another blueprint operation is in flight
	// for the session.
	ErrSessionBusy = errors.New("another blueprint operation is pending")
	// ErrStoreUnavailable indicates the document store is not configured.
	ErrStoreUnavailable = errors.New("document store not configured")
)
