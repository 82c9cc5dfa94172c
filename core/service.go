// Package core implements the blueprint session binding service. Tree
// edits themselves are pure (package blueprint); this layer owns which
// document a session displays, local draft overlay, and serialization
// of write operations per session.
package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/robodeck/robodeck/internal/draftstore"
	"github.com/robodeck/robodeck/internal/logx"
	"github.com/robodeck/robodeck/schema"
)

// Per-operation fallback messages surfaced to the UI on remote
// failures.
const (
	msgResolveFailed   = "could not load the session's blueprint"
	msgOpenFailed      = "could not open the blueprint"
	msgSaveFailed      = "could not save the blueprint"
	msgDuplicateFailed = "could not duplicate the blueprint"
	msgDeleteFailed    = "could not delete the blueprint"
	msgResetFailed     = "could not reset the blueprint"
)

type service struct {
	cfg      schema.ServiceConfig
	store    DocumentStore
	drafts   DraftStore
	sink     EventSink
	logger   pslog.Logger
	mu       sync.Mutex
	sessions map[schema.SessionRef]*sessionState
}

// sessionState tracks one session's binding between operations.
type sessionState struct {
	document  schema.DocumentSummary
	root      schema.Node
	reason    schema.ResolveReason
	resolved  bool
	dirty     bool
	busy      bool
	lastError string
}

// NewService constructs the binding service.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	if deps.Store == nil {
		return nil, schema.ErrStoreUnavailable
	}
	drafts := deps.Drafts
	if drafts == nil && cfg.StateDir != "" {
		store, err := draftstore.NewStoreWithLogger(cfg.StateDir, deps.Logger)
		if err != nil {
			return nil, err
		}
		drafts = store
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &service{
		cfg:      cfg,
		store:    deps.Store,
		drafts:   drafts,
		sink:     deps.Sink,
		logger:   logger,
		sessions: make(map[schema.SessionRef]*sessionState),
	}, nil
}

func (s *service) ListDocuments(ctx context.Context, req schema.ListDocumentsRequest) (schema.ListDocumentsResponse, error) {
	if ctx == nil {
		return schema.ListDocumentsResponse{}, errors.New("missing context")
	}
	docs, err := s.store.List(ctx)
	if err != nil {
		logx.Ctx(ctx).Warn("service list blueprints failed", "err", err)
		return schema.ListDocumentsResponse{}, err
	}
	return schema.ListDocumentsResponse{Documents: docs}, nil
}

func (s *service) Resolve(ctx context.Context, req schema.ResolveRequest) (schema.ResolveResponse, error) {
	log := logx.WithSession(ctx, req.Session)
	if err := s.begin(ctx, req.Session); err != nil {
		return schema.ResolveResponse{}, err
	}
	log.Info("service resolve start")
	doc, reason, draftApplied, err := s.resolveSession(ctx, req.Session)
	if err != nil {
		s.finish(req.Session, msgResolveFailed)
		log.Warn("service resolve failed", "err", err)
		return schema.ResolveResponse{}, err
	}
	s.finish(req.Session, "")
	s.emit(schema.BindingEvent{
		Session:  req.Session,
		Type:     schema.BindingResolved,
		Document: doc.Summary(),
		Reason:   reason,
	})
	logx.WithDocument(log, doc.ID).Info("service resolve ok", "reason", reason, "draft", draftApplied)
	return schema.ResolveResponse{
		Document:     doc.Summary(),
		Root:         s.currentRoot(req.Session),
		Reason:       reason,
		DraftApplied: draftApplied,
	}, nil
}

// resolveSession fetches the bound document, applies a matching draft,
// and records the outcome in session state. The caller holds the busy
// flag.
func (s *service) resolveSession(ctx context.Context, ref schema.SessionRef) (schema.BlueprintDocument, schema.ResolveReason, bool, error) {
	resolved, err := s.store.ResolveSession(ctx, ref)
	if err != nil {
		return schema.BlueprintDocument{}, "", false, err
	}
	doc := resolved.Document
	root := doc.Root
	draftApplied := false
	if s.drafts != nil {
		draft, err := s.drafts.Load(ref, doc.ID)
		if err != nil {
			logx.WithSession(ctx, ref).Warn("draft load failed, continuing without", "err", err)
		} else if draft != nil {
			root = draft.Root
			draftApplied = true
		}
	}
	s.mu.Lock()
	state := s.stateLocked(ref)
	state.document = doc.Summary()
	state.root = root
	state.reason = resolved.Reason
	state.resolved = true
	state.dirty = draftApplied
	s.mu.Unlock()
	return doc, resolved.Reason, draftApplied, nil
}

func (s *service) Open(ctx context.Context, req schema.OpenRequest) (schema.OpenResponse, error) {
	log := logx.WithSession(ctx, req.Session)
	if req.BlueprintID == "" {
		return schema.OpenResponse{}, schema.ErrInvalidRequest
	}
	if err := s.begin(ctx, req.Session); err != nil {
		return schema.OpenResponse{}, err
	}
	s.mu.Lock()
	state := s.stateLocked(req.Session)
	already := state.resolved && state.document.ID == req.BlueprintID
	current := state.document
	currentRoot := state.root
	s.mu.Unlock()
	if already {
		s.finish(req.Session, "")
		return schema.OpenResponse{Document: current, Root: currentRoot}, nil
	}
	log.Info("service open start", "blueprint", req.BlueprintID)
	doc, err := s.store.BindSession(ctx, req.Session, req.BlueprintID)
	if err != nil {
		s.finish(req.Session, msgOpenFailed)
		log.Warn("service open failed", "err", err)
		return schema.OpenResponse{}, err
	}
	// The new document's content applies directly. Drafts are keyed by
	// document id, so the previous document's draft simply stops
	// matching; it is not migrated.
	s.mu.Lock()
	state = s.stateLocked(req.Session)
	state.document = doc.Summary()
	state.root = doc.Root
	state.reason = schema.ResolvedByBinding
	state.resolved = true
	state.dirty = false
	s.mu.Unlock()
	s.finish(req.Session, "")
	s.emit(schema.BindingEvent{
		Session:  req.Session,
		Type:     schema.BindingOpened,
		Document: doc.Summary(),
		Reason:   schema.ResolvedByBinding,
	})
	logx.WithDocument(log, doc.ID).Info("service open ok")
	return schema.OpenResponse{Document: doc.Summary(), Root: doc.Root}, nil
}

func (s *service) Save(ctx context.Context, req schema.SaveRequest) (schema.SaveResponse, error) {
	log := logx.WithSession(ctx, req.Session)
	name, err := schema.NormalizeDocumentName(req.Name, s.cfg.NameMax)
	if err != nil {
		// Client-side validation: no network call happens.
		s.setError(req.Session, err.Error())
		return schema.SaveResponse{}, err
	}
	if err := s.begin(ctx, req.Session); err != nil {
		return schema.SaveResponse{}, err
	}
	state, err := s.boundState(req.Session)
	if err != nil {
		s.finish(req.Session, "")
		return schema.SaveResponse{}, err
	}
	log.Info("service save start", "blueprint", state.document.ID, "name", name)
	doc, err := s.store.Update(ctx, state.document.ID, schema.DocumentUpdate{Name: &name, Root: state.root})
	if err != nil {
		// The draft stays: local edits survive a failed save.
		s.finish(req.Session, msgSaveFailed)
		log.Warn("service save failed", "err", err)
		return schema.SaveResponse{}, err
	}
	s.clearDraft(req.Session, doc.ID)
	s.mu.Lock()
	st := s.stateLocked(req.Session)
	st.document = doc.Summary()
	st.dirty = false
	s.mu.Unlock()
	s.finish(req.Session, "")
	s.emit(schema.BindingEvent{
		Session:  req.Session,
		Type:     schema.BindingSaved,
		Document: doc.Summary(),
	})
	logx.WithDocument(log, doc.ID).Info("service save ok")
	return schema.SaveResponse{Document: doc.Summary()}, nil
}

func (s *service) Duplicate(ctx context.Context, req schema.DuplicateRequest) (schema.DuplicateResponse, error) {
	log := logx.WithSession(ctx, req.Session)
	if err := s.begin(ctx, req.Session); err != nil {
		return schema.DuplicateResponse{}, err
	}
	state, err := s.boundState(req.Session)
	if err != nil {
		s.finish(req.Session, "")
		return schema.DuplicateResponse{}, err
	}
	name := copyName(state.document.Name, s.cfg.CopySuffix, s.cfg.NameMax)
	log.Info("service duplicate start", "blueprint", state.document.ID, "name", name)
	doc, err := s.store.Create(ctx, name, state.root)
	if err != nil {
		s.finish(req.Session, msgDuplicateFailed)
		log.Warn("service duplicate failed", "err", err)
		return schema.DuplicateResponse{}, err
	}
	if _, err := s.store.BindSession(ctx, req.Session, doc.ID); err != nil {
		s.finish(req.Session, msgDuplicateFailed)
		log.Warn("service duplicate bind failed", "err", err)
		return schema.DuplicateResponse{}, err
	}
	// The local edits are now persisted in the copy; the draft against
	// the source document is obsolete.
	s.clearDraft(req.Session, state.document.ID)
	s.mu.Lock()
	st := s.stateLocked(req.Session)
	st.document = doc.Summary()
	st.reason = schema.ResolvedByBinding
	st.dirty = false
	s.mu.Unlock()
	s.finish(req.Session, "")
	s.emit(schema.BindingEvent{
		Session:  req.Session,
		Type:     schema.BindingDuplicated,
		Document: doc.Summary(),
	})
	logx.WithDocument(log, doc.ID).Info("service duplicate ok")
	return schema.DuplicateResponse{Document: doc.Summary()}, nil
}

func (s *service) Delete(ctx context.Context, req schema.DeleteRequest) (schema.DeleteResponse, error) {
	log := logx.WithSession(ctx, req.Session)
	if err := s.begin(ctx, req.Session); err != nil {
		return schema.DeleteResponse{}, err
	}
	state, err := s.boundState(req.Session)
	if err != nil {
		s.finish(req.Session, "")
		return schema.DeleteResponse{}, err
	}
	deleted := state.document
	log.Info("service delete start", "blueprint", deleted.ID)
	outcome, err := s.store.Delete(ctx, deleted.ID)
	if err != nil {
		// A failed delete leaves the current binding untouched.
		s.finish(req.Session, msgDeleteFailed)
		log.Warn("service delete failed", "err", err)
		return schema.DeleteResponse{}, err
	}
	s.clearDraft(req.Session, deleted.ID)
	doc, reason, _, err := s.resolveSession(ctx, req.Session)
	if err != nil {
		s.finish(req.Session, msgResolveFailed)
		log.Warn("service delete re-resolve failed", "err", err)
		return schema.DeleteResponse{}, err
	}
	s.finish(req.Session, "")
	s.emit(schema.BindingEvent{
		Session:         req.Session,
		Type:            schema.BindingDeleted,
		Document:        doc.Summary(),
		Reason:          reason,
		ReboundSessions: outcome.ReboundSessions,
	})
	log.Info("service delete ok", "deleted", deleted.ID, "rebound_sessions", outcome.ReboundSessions, "replacement", doc.ID)
	return schema.DeleteResponse{
		ReboundSessions: outcome.ReboundSessions,
		Document:        doc.Summary(),
		Root:            s.currentRoot(req.Session),
		Reason:          reason,
	}, nil
}

func (s *service) Reset(ctx context.Context, req schema.ResetRequest) (schema.ResetResponse, error) {
	log := logx.WithSession(ctx, req.Session)
	if err := s.begin(ctx, req.Session); err != nil {
		return schema.ResetResponse{}, err
	}
	state, err := s.boundState(req.Session)
	if err != nil {
		s.finish(req.Session, "")
		return schema.ResetResponse{}, err
	}
	log.Info("service reset start", "blueprint", state.document.ID)
	doc, err := s.store.Get(ctx, state.document.ID)
	if err != nil {
		s.finish(req.Session, msgResetFailed)
		log.Warn("service reset failed", "err", err)
		return schema.ResetResponse{}, err
	}
	s.clearDraft(req.Session, doc.ID)
	s.mu.Lock()
	st := s.stateLocked(req.Session)
	st.document = doc.Summary()
	st.root = doc.Root
	st.dirty = false
	s.mu.Unlock()
	s.finish(req.Session, "")
	s.emit(schema.BindingEvent{
		Session:  req.Session,
		Type:     schema.BindingReset,
		Document: doc.Summary(),
	})
	logx.WithDocument(log, doc.ID).Info("service reset ok")
	return schema.ResetResponse{Document: doc.Summary(), Root: doc.Root}, nil
}

func (s *service) ApplyEdit(ctx context.Context, req schema.ApplyEditRequest) (schema.ApplyEditResponse, error) {
	if ctx == nil {
		return schema.ApplyEditResponse{}, errors.New("missing context")
	}
	if err := schema.ValidateSessionRef(req.Session); err != nil {
		return schema.ApplyEditResponse{}, err
	}
	if req.Edit == nil {
		return schema.ApplyEditResponse{}, schema.ErrInvalidRequest
	}
	s.mu.Lock()
	state := s.stateLocked(req.Session)
	if !state.resolved {
		s.mu.Unlock()
		return schema.ApplyEditResponse{}, schema.ErrNoBinding
	}
	root := state.root
	next := req.Edit(root)
	if next == nil || next == root {
		dirty := state.dirty
		s.mu.Unlock()
		return schema.ApplyEditResponse{Root: root, Dirty: dirty}, nil
	}
	state.root = next
	state.dirty = true
	doc := state.document
	s.mu.Unlock()
	if s.drafts != nil {
		draft := schema.Draft{BlueprintID: doc.ID, Root: next, UpdatedAt: time.Now().UTC()}
		if err := s.drafts.Save(req.Session, draft); err != nil {
			// Draft persistence is best-effort; the in-memory edit stands.
			logx.WithSession(ctx, req.Session).Warn("draft save failed", "err", err)
		}
	}
	return schema.ApplyEditResponse{Root: next, Dirty: true}, nil
}

func (s *service) Snapshot(ctx context.Context, req schema.SnapshotRequest) (schema.SnapshotResponse, error) {
	if err := schema.ValidateSessionRef(req.Session); err != nil {
		return schema.SnapshotResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.stateLocked(req.Session)
	if !state.resolved {
		return schema.SnapshotResponse{}, schema.ErrNoBinding
	}
	return schema.SnapshotResponse{
		Document:  state.document,
		Root:      state.root,
		Reason:    state.reason,
		Dirty:     state.dirty,
		Busy:      state.busy,
		LastError: state.lastError,
	}, nil
}

// begin validates the session and takes its busy flag. A second write
// operation while one is pending is rejected, not queued.
func (s *service) begin(ctx context.Context, ref schema.SessionRef) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	if err := schema.ValidateSessionRef(ref); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.stateLocked(ref)
	if state.busy {
		return schema.ErrSessionBusy
	}
	state.busy = true
	return nil
}

// finish releases the busy flag and records the operation's error
// message ("" clears it).
func (s *service) finish(ref schema.SessionRef, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.stateLocked(ref)
	state.busy = false
	state.lastError = errMsg
}

func (s *service) setError(ref schema.SessionRef, msg string) {
	if schema.ValidateSessionRef(ref) != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateLocked(ref).lastError = msg
}

// boundState returns a copy of the session state, requiring a prior
// successful resolve.
func (s *service) boundState(ref schema.SessionRef) (sessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.stateLocked(ref)
	if !state.resolved {
		return sessionState{}, schema.ErrNoBinding
	}
	return *state, nil
}

func (s *service) currentRoot(ref schema.SessionRef) schema.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(ref).root
}

func (s *service) stateLocked(ref schema.SessionRef) *sessionState {
	state := s.sessions[ref]
	if state == nil {
		state = &sessionState{}
		s.sessions[ref] = state
	}
	return state
}

func (s *service) clearDraft(ref schema.SessionRef, id schema.BlueprintID) {
	if s.drafts == nil {
		return
	}
	if err := s.drafts.Clear(ref, id); err != nil {
		s.logger.Warn("draft clear failed", "session", ref.ID, "blueprint", id, "err", err)
	}
}

func (s *service) emit(event schema.BindingEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnBindingEvent(event)
}

// copyName derives the duplicate's name, trimming the base so the
// suffix always fits within max.
func copyName(name schema.DocumentName, suffix string, max int) schema.DocumentName {
	base := strings.TrimSpace(string(name))
	if base == "" {
		base = "Blueprint"
	}
	if max > 0 && len(base)+len(suffix) > max {
		base = strings.TrimSpace(base[:max-len(suffix)])
	}
	return schema.DocumentName(base + suffix)
}
