package core

import (
	"context"

	"pkt.systems/pslog"

	"github.com/robodeck/robodeck/schema"
)

// DocumentStore is the remote blueprint document API consumed by the
// binding service. All payloads round-trip node trees as plain JSON.
type DocumentStore interface {
	List(ctx context.Context) ([]schema.DocumentSummary, error)
	Get(ctx context.Context, id schema.BlueprintID) (schema.BlueprintDocument, error)
	Create(ctx context.Context, name schema.DocumentName, root schema.Node) (schema.BlueprintDocument, error)
	Update(ctx context.Context, id schema.BlueprintID, update schema.DocumentUpdate) (schema.BlueprintDocument, error)
	Delete(ctx context.Context, id schema.BlueprintID) (schema.DeleteOutcome, error)
	ResolveSession(ctx context.Context, ref schema.SessionRef) (schema.ResolvedDocument, error)
	BindSession(ctx context.Context, ref schema.SessionRef, id schema.BlueprintID) (schema.BlueprintDocument, error)
}

// DraftStore persists locally-unsaved edits keyed by session and
// document. Implementations are best-effort; the service degrades
// silently without one.
type DraftStore interface {
	Load(ref schema.SessionRef, want schema.BlueprintID) (*schema.Draft, error)
	Save(ref schema.SessionRef, draft schema.Draft) error
	Clear(ref schema.SessionRef, blueprintID schema.BlueprintID) error
}

// EventSink observes binding lifecycle events.
type EventSink interface {
	OnBindingEvent(event schema.BindingEvent)
}

// ServiceDeps captures dependencies for the binding service.
type ServiceDeps struct {
	Store  DocumentStore
	Drafts DraftStore
	Sink   EventSink
	Logger pslog.Logger
}

// Service is the session binding layer: it associates each running
// session with exactly one blueprint document and layers local drafts
// over the server-saved state.
type Service interface {
	ListDocuments(ctx context.Context, req schema.ListDocumentsRequest) (schema.ListDocumentsResponse, error)
	Resolve(ctx context.Context, req schema.ResolveRequest) (schema.ResolveResponse, error)
	Open(ctx context.Context, req schema.OpenRequest) (schema.OpenResponse, error)
	Save(ctx context.Context, req schema.SaveRequest) (schema.SaveResponse, error)
	Duplicate(ctx context.Context, req schema.DuplicateRequest) (schema.DuplicateResponse, error)
	Delete(ctx context.Context, req schema.DeleteRequest) (schema.DeleteResponse, error)
	Reset(ctx context.Context, req schema.ResetRequest) (schema.ResetResponse, error)
	ApplyEdit(ctx context.Context, req schema.ApplyEditRequest) (schema.ApplyEditResponse, error)
	Snapshot(ctx context.Context, req schema.SnapshotRequest) (schema.SnapshotResponse, error)
}
