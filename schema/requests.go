package schema

// Document listing.

// ListDocumentsRequest describes a request to list blueprint documents.
type ListDocumentsRequest struct{}

// ListDocumentsResponse reports saved document summaries.
type ListDocumentsResponse struct {
	Documents []DocumentSummary
}

// Session resolution and binding.

// ResolveRequest describes a request to resolve a session's blueprint.
type ResolveRequest struct {
	Session SessionRef
}

// ResolveResponse reports the resolved document state for a session.
type ResolveResponse struct {
	Document     DocumentSummary
	Root         Node
	Reason       ResolveReason
	DraftApplied bool
}

// OpenRequest describes a request to bind a session to a specific
// document.
type OpenRequest struct {
	Session     SessionRef
	BlueprintID BlueprintID
}

// OpenResponse reports the newly bound document.
type OpenResponse struct {
	Document DocumentSummary
	Root     Node
}

// SaveRequest describes a request to persist the current tree under a
// name.
type SaveRequest struct {
	Session SessionRef
	Name    DocumentName
}

// SaveResponse reports the saved document.
type SaveResponse struct {
	Document DocumentSummary
}

// DuplicateRequest describes a request to copy the active document and
// rebind the session to the copy.
type DuplicateRequest struct {
	Session SessionRef
}

// DuplicateResponse reports the new document.
type DuplicateResponse struct {
	Document DocumentSummary
}

// DeleteRequest describes a request to delete the active document.
type DeleteRequest struct {
	Session SessionRef
}

// DeleteResponse reports the deletion outcome and the replacement
// document the session was re-resolved to.
type DeleteResponse struct {
	ReboundSessions int
	Document        DocumentSummary
	Root            Node
	Reason          ResolveReason
}

// ResetRequest describes a request to discard local edits and re-fetch
// the canonical server document.
type ResetRequest struct {
	Session SessionRef
}

// ResetResponse reports the refreshed document state.
type ResetResponse struct {
	Document DocumentSummary
	Root     Node
}

// Tree editing.

// TreeEdit is a pure structural edit over a blueprint root. It returns
// the new root, or the same root when the edit does not apply.
type TreeEdit func(Node) Node

// ApplyEditRequest describes a local tree edit for a session.
type ApplyEditRequest struct {
	Session SessionRef
	Edit    TreeEdit
}

// ApplyEditResponse reports the edited tree.
type ApplyEditResponse struct {
	Root  Node
	Dirty bool
}

// Observation.

// SnapshotRequest describes a request for a session's current state.
type SnapshotRequest struct {
	Session SessionRef
}

// SnapshotResponse reports the session's blueprint state for display.
type SnapshotResponse struct {
	Document  DocumentSummary
	Root      Node
	Reason    ResolveReason
	Dirty     bool
	Busy      bool
	LastError string
}
