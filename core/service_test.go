package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/robodeck/robodeck/blueprint"
	"github.com/robodeck/robodeck/schema"
)

type fakeStore struct {
	mu       sync.Mutex
	docs     map[schema.BlueprintID]schema.BlueprintDocument
	bindings map[schema.SessionRef]schema.BlueprintID
	seq      int

	updateErr error
	rebound   int

	updates int
	binds   int

	resolveStarted chan struct{}
	resolveRelease chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:     make(map[schema.BlueprintID]schema.BlueprintDocument),
		bindings: make(map[schema.SessionRef]schema.BlueprintID),
	}
}

func (f *fakeStore) put(name schema.DocumentName, root schema.Node) schema.BlueprintDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putLocked(name, root)
}

func (f *fakeStore) putLocked(name schema.DocumentName, root schema.Node) schema.BlueprintDocument {
	f.seq++
	now := time.Now().UTC()
	doc := schema.BlueprintDocument{
		ID:        schema.BlueprintID(fmt.Sprintf("bp-%d", f.seq)),
		Name:      name,
		Root:      root,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.docs[doc.ID] = doc
	return doc
}

func (f *fakeStore) bind(ref schema.SessionRef, id schema.BlueprintID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings[ref] = id
}

func (f *fakeStore) List(ctx context.Context) ([]schema.DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]schema.DocumentSummary, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, doc.Summary())
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, id schema.BlueprintID) (schema.BlueprintDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return schema.BlueprintDocument{}, schema.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeStore) Create(ctx context.Context, name schema.DocumentName, root schema.Node) (schema.BlueprintDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putLocked(name, root), nil
}

func (f *fakeStore) Update(ctx context.Context, id schema.BlueprintID, update schema.DocumentUpdate) (schema.BlueprintDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return schema.BlueprintDocument{}, f.updateErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return schema.BlueprintDocument{}, schema.ErrDocumentNotFound
	}
	if update.Name != nil {
		doc.Name = *update.Name
	}
	if update.Root != nil {
		doc.Root = update.Root
	}
	doc.UpdatedAt = time.Now().UTC()
	f.docs[id] = doc
	return doc, nil
}

func (f *fakeStore) Delete(ctx context.Context, id schema.BlueprintID) (schema.DeleteOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return schema.DeleteOutcome{}, schema.ErrDocumentNotFound
	}
	delete(f.docs, id)
	for ref, bound := range f.bindings {
		if bound == id {
			delete(f.bindings, ref)
		}
	}
	return schema.DeleteOutcome{ReboundSessions: f.rebound}, nil
}

func (f *fakeStore) ResolveSession(ctx context.Context, ref schema.SessionRef) (schema.ResolvedDocument, error) {
	if f.resolveStarted != nil {
		f.resolveStarted <- struct{}{}
		<-f.resolveRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.bindings[ref]; ok {
		if doc, ok := f.docs[id]; ok {
			return schema.ResolvedDocument{Document: doc, Reason: schema.ResolvedByBinding}, nil
		}
	}
	var latest schema.BlueprintDocument
	for _, doc := range f.docs {
		if latest.ID == "" || doc.UpdatedAt.After(latest.UpdatedAt) || (doc.UpdatedAt.Equal(latest.UpdatedAt) && doc.ID < latest.ID) {
			latest = doc
		}
	}
	if latest.ID != "" {
		f.bindings[ref] = latest.ID
		return schema.ResolvedDocument{Document: latest, Reason: schema.ResolvedByLatest}, nil
	}
	doc := f.putLocked("Default", blueprint.Default())
	f.bindings[ref] = doc.ID
	return schema.ResolvedDocument{Document: doc, Reason: schema.ResolvedByDefaultCreated}, nil
}

func (f *fakeStore) BindSession(ctx context.Context, ref schema.SessionRef, id schema.BlueprintID) (schema.BlueprintDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binds++
	doc, ok := f.docs[id]
	if !ok {
		return schema.BlueprintDocument{}, schema.ErrDocumentNotFound
	}
	f.bindings[ref] = id
	return doc, nil
}

type draftKey struct {
	ref schema.SessionRef
}

type fakeDrafts struct {
	mu     sync.Mutex
	drafts map[draftKey]schema.Draft
	saves  int
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{drafts: make(map[draftKey]schema.Draft)}
}

func (f *fakeDrafts) set(ref schema.SessionRef, draft schema.Draft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[draftKey{ref}] = draft
}

func (f *fakeDrafts) get(ref schema.SessionRef) (schema.Draft, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	draft, ok := f.drafts[draftKey{ref}]
	return draft, ok
}

func (f *fakeDrafts) Load(ref schema.SessionRef, want schema.BlueprintID) (*schema.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	draft, ok := f.drafts[draftKey{ref}]
	if !ok || draft.BlueprintID != want {
		return nil, nil
	}
	out := draft
	return &out, nil
}

func (f *fakeDrafts) Save(ref schema.SessionRef, draft schema.Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.drafts[draftKey{ref}] = draft
	return nil
}

func (f *fakeDrafts) Clear(ref schema.SessionRef, blueprintID schema.BlueprintID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	draft, ok := f.drafts[draftKey{ref}]
	if ok && (blueprintID == "" || draft.BlueprintID == blueprintID) {
		delete(f.drafts, draftKey{ref})
	}
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []schema.BindingEvent
}

func (r *eventRecorder) OnBindingEvent(event schema.BindingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) last(t *testing.T) schema.BindingEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		t.Fatalf("no binding events recorded")
	}
	return r.events[len(r.events)-1]
}

func testSession() schema.SessionRef {
	return schema.SessionRef{Kind: schema.SessionRecording, ID: "rec-42"}
}

func newTestService(t *testing.T, store *fakeStore, drafts *fakeDrafts) (Service, *eventRecorder) {
	t.Helper()
	sink := &eventRecorder{}
	svc, err := NewService(schema.ServiceConfig{}, ServiceDeps{Store: store, Drafts: drafts, Sink: sink})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, sink
}

func TestResolveAppliesMatchingDraft(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	ref := testSession()
	store.bind(ref, doc.ID)

	edited := blueprint.NewView("timeline", nil)
	drafts := newFakeDrafts()
	drafts.set(ref, schema.Draft{BlueprintID: doc.ID, Root: edited, UpdatedAt: time.Now()})

	svc, sink := newTestService(t, store, drafts)
	resp, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resp.DraftApplied {
		t.Fatalf("expected draft applied")
	}
	if resp.Reason != schema.ResolvedByBinding {
		t.Fatalf("unexpected reason %q", resp.Reason)
	}
	if resp.Root.NodeID() != edited.NodeID() {
		t.Fatalf("expected draft root, got %v", resp.Root.NodeID())
	}
	snap, err := svc.Snapshot(context.Background(), schema.SnapshotRequest{Session: ref})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Dirty {
		t.Fatalf("expected dirty session after draft overlay")
	}
	if event := sink.last(t); event.Type != schema.BindingResolved {
		t.Fatalf("unexpected event %q", event.Type)
	}
}

func TestResolveIgnoresDraftForOtherDocument(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	ref := testSession()
	store.bind(ref, doc.ID)

	drafts := newFakeDrafts()
	drafts.set(ref, schema.Draft{BlueprintID: "bp-other", Root: blueprint.NewView("log", nil)})

	svc, _ := newTestService(t, store, drafts)
	resp, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.DraftApplied {
		t.Fatalf("draft for a different document must not apply")
	}
	if resp.Root.NodeID() != doc.Root.NodeID() {
		t.Fatalf("expected server root")
	}
}

func TestResolveCreatesDefaultWhenStoreEmpty(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store, newFakeDrafts())
	resp, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: testSession()})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.Reason != schema.ResolvedByDefaultCreated {
		t.Fatalf("unexpected reason %q", resp.Reason)
	}
	if resp.Root == nil {
		t.Fatalf("expected a default root")
	}
}

func TestSaveValidatesNameBeforeNetwork(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	ref := testSession()
	store.bind(ref, doc.ID)

	svc, _ := newTestService(t, store, newFakeDrafts())
	if _, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, err := svc.Save(context.Background(), schema.SaveRequest{Session: ref, Name: "   "})
	if !errors.Is(err, schema.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if store.updates != 0 {
		t.Fatalf("validation failure must not hit the store")
	}
	snap, err := svc.Snapshot(context.Background(), schema.SnapshotRequest{Session: ref})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.LastError == "" {
		t.Fatalf("expected last error recorded")
	}
}

func TestSaveClearsDraft(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	ref := testSession()
	store.bind(ref, doc.ID)

	edited := blueprint.NewView("timeline", nil)
	drafts := newFakeDrafts()
	drafts.set(ref, schema.Draft{BlueprintID: doc.ID, Root: edited})

	svc, sink := newTestService(t, store, drafts)
	if _, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resp, err := svc.Save(context.Background(), schema.SaveRequest{Session: ref, Name: "Lab v2"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if resp.Document.Name != "Lab v2" {
		t.Fatalf("unexpected name %q", resp.Document.Name)
	}
	if saved := store.docs[doc.ID]; saved.Root.NodeID() != edited.NodeID() {
		t.Fatalf("server should hold the drafted root")
	}
	if _, ok := drafts.get(ref); ok {
		t.Fatalf("draft must be cleared after save")
	}
	snap, _ := svc.Snapshot(context.Background(), schema.SnapshotRequest{Session: ref})
	if snap.Dirty {
		t.Fatalf("session must be clean after save")
	}
	if event := sink.last(t); event.Type != schema.BindingSaved {
		t.Fatalf("unexpected event %q", event.Type)
	}
}

func TestFailedSaveKeepsDraftAndState(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	ref := testSession()
	store.bind(ref, doc.ID)

	edited := blueprint.NewView("timeline", nil)
	drafts := newFakeDrafts()
	drafts.set(ref, schema.Draft{BlueprintID: doc.ID, Root: edited})

	svc, _ := newTestService(t, store, drafts)
	if _, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	store.updateErr = errors.New("backend down")
	if _, err := svc.Save(context.Background(), schema.SaveRequest{Session: ref, Name: "Lab v2"}); err == nil {
		t.Fatalf("expected save error")
	}
	if _, ok := drafts.get(ref); !ok {
		t.Fatalf("draft must survive a failed save")
	}
	snap, _ := svc.Snapshot(context.Background(), schema.SnapshotRequest{Session: ref})
	if !snap.Dirty {
		t.Fatalf("session must stay dirty after failed save")
	}
	if snap.LastError != msgSaveFailed {
		t.Fatalf("unexpected last error %q", snap.LastError)
	}
	if snap.Root.NodeID() != edited.NodeID() {
		t.Fatalf("local root must be untouched by failed save")
	}
}

func TestDuplicateBindsCopy(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	ref := testSession()
	store.bind(ref, doc.ID)

	drafts := newFakeDrafts()
	drafts.set(ref, schema.Draft{BlueprintID: doc.ID, Root: blueprint.NewView("timeline", nil)})

	svc, sink := newTestService(t, store, drafts)
	if _, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resp, err := svc.Duplicate(context.Background(), schema.DuplicateRequest{Session: ref})
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if resp.Document.ID == doc.ID {
		t.Fatalf("duplicate must create a new document")
	}
	if want := schema.DocumentName("Lab" + schema.DefaultCopySuffix); resp.Document.Name != want {
		t.Fatalf("got name %q, want %q", resp.Document.Name, want)
	}
	if store.bindings[ref] != resp.Document.ID {
		t.Fatalf("session must be rebound to the copy")
	}
	if _, ok := drafts.get(ref); ok {
		t.Fatalf("source document's draft must be cleared once the copy is saved")
	}
	if created := store.docs[resp.Document.ID]; created.Root.NodeID() == doc.Root.NodeID() {
		t.Fatalf("copy must capture the drafted root, not the saved one")
	}
	if event := sink.last(t); event.Type != schema.BindingDuplicated {
		t.Fatalf("unexpected event %q", event.Type)
	}
}

func TestDeleteReportsReboundAndReResolves(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	fallback := store.put("Bench", blueprint.Default())
	ref := testSession()
	store.bind(ref, doc.ID)
	store.rebound = 3

	drafts := newFakeDrafts()
	drafts.set(ref, schema.Draft{BlueprintID: doc.ID, Root: blueprint.NewView("log", nil)})

	svc, sink := newTestService(t, store, drafts)
	if _, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resp, err := svc.Delete(context.Background(), schema.DeleteRequest{Session: ref})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.ReboundSessions != 3 {
		t.Fatalf("got rebound %d, want 3", resp.ReboundSessions)
	}
	if resp.Document.ID != fallback.ID {
		t.Fatalf("expected re-resolve to %s, got %s", fallback.ID, resp.Document.ID)
	}
	if _, ok := drafts.get(ref); ok {
		t.Fatalf("deleted document's draft must be cleared")
	}
	if event := sink.last(t); event.Type != schema.BindingDeleted || event.ReboundSessions != 3 {
		t.Fatalf("unexpected event %#v", event)
	}
}

func TestResetDiscardsDraft(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	ref := testSession()
	store.bind(ref, doc.ID)

	drafts := newFakeDrafts()
	drafts.set(ref, schema.Draft{BlueprintID: doc.ID, Root: blueprint.NewView("log", nil)})

	svc, _ := newTestService(t, store, drafts)
	if _, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resp, err := svc.Reset(context.Background(), schema.ResetRequest{Session: ref})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if resp.Root.NodeID() != doc.Root.NodeID() {
		t.Fatalf("reset must restore the server root")
	}
	if _, ok := drafts.get(ref); ok {
		t.Fatalf("reset must discard the draft")
	}
	snap, _ := svc.Snapshot(context.Background(), schema.SnapshotRequest{Session: ref})
	if snap.Dirty {
		t.Fatalf("session must be clean after reset")
	}
}

func TestApplyEditMarksDirtyAndPersistsDraft(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	ref := testSession()
	store.bind(ref, doc.ID)

	drafts := newFakeDrafts()
	svc, _ := newTestService(t, store, drafts)
	if _, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// An identity edit leaves the session clean and writes no draft.
	resp, err := svc.ApplyEdit(context.Background(), schema.ApplyEditRequest{
		Session: ref,
		Edit:    func(root schema.Node) schema.Node { return root },
	})
	if err != nil {
		t.Fatalf("apply identity edit: %v", err)
	}
	if resp.Dirty || drafts.saves != 0 {
		t.Fatalf("identity edit must not dirty the session or save a draft")
	}

	replacement := blueprint.NewView("timeline", nil)
	resp, err = svc.ApplyEdit(context.Background(), schema.ApplyEditRequest{
		Session: ref,
		Edit:    func(schema.Node) schema.Node { return replacement },
	})
	if err != nil {
		t.Fatalf("apply edit: %v", err)
	}
	if !resp.Dirty || resp.Root.NodeID() != replacement.NodeID() {
		t.Fatalf("edit result not applied: %#v", resp)
	}
	draft, ok := drafts.get(ref)
	if !ok || draft.BlueprintID != doc.ID || draft.Root.NodeID() != replacement.NodeID() {
		t.Fatalf("draft not persisted for edit: %#v", draft)
	}
}

func TestApplyEditRequiresBinding(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore(), newFakeDrafts())
	_, err := svc.ApplyEdit(context.Background(), schema.ApplyEditRequest{
		Session: testSession(),
		Edit:    func(root schema.Node) schema.Node { return root },
	})
	if !errors.Is(err, schema.ErrNoBinding) {
		t.Fatalf("expected ErrNoBinding, got %v", err)
	}
}

func TestConcurrentOperationRejected(t *testing.T) {
	store := newFakeStore()
	store.put("Lab", blueprint.Default())
	store.resolveStarted = make(chan struct{})
	store.resolveRelease = make(chan struct{})
	ref := testSession()

	svc, _ := newTestService(t, store, newFakeDrafts())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref})
		done <- err
	}()
	<-store.resolveStarted

	_, err := svc.Save(context.Background(), schema.SaveRequest{Session: ref, Name: "Lab"})
	if !errors.Is(err, schema.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}

	close(store.resolveRelease)
	if err := <-done; err != nil {
		t.Fatalf("resolve: %v", err)
	}
}

func TestOpenSameDocumentIsNoOp(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	ref := testSession()
	store.bind(ref, doc.ID)

	svc, _ := newTestService(t, store, newFakeDrafts())
	if _, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	binds := store.binds
	resp, err := svc.Open(context.Background(), schema.OpenRequest{Session: ref, BlueprintID: doc.ID})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.binds != binds {
		t.Fatalf("opening the bound document must not call the store")
	}
	if resp.Document.ID != doc.ID {
		t.Fatalf("unexpected document %s", resp.Document.ID)
	}
}

func TestOpenBindsNewDocument(t *testing.T) {
	store := newFakeStore()
	doc := store.put("Lab", blueprint.Default())
	other := store.put("Bench", blueprint.NewView("status", nil))
	ref := testSession()
	store.bind(ref, doc.ID)

	svc, sink := newTestService(t, store, newFakeDrafts())
	if _, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: ref}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resp, err := svc.Open(context.Background(), schema.OpenRequest{Session: ref, BlueprintID: other.ID})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if resp.Document.ID != other.ID {
		t.Fatalf("unexpected document %s", resp.Document.ID)
	}
	if store.bindings[ref] != other.ID {
		t.Fatalf("binding not updated")
	}
	snap, _ := svc.Snapshot(context.Background(), schema.SnapshotRequest{Session: ref})
	if snap.Dirty || snap.Reason != schema.ResolvedByBinding {
		t.Fatalf("unexpected state after open: %#v", snap)
	}
	if event := sink.last(t); event.Type != schema.BindingOpened {
		t.Fatalf("unexpected event %q", event.Type)
	}
}

func TestListDocuments(t *testing.T) {
	store := newFakeStore()
	store.put("Lab", blueprint.Default())
	store.put("Bench", blueprint.Default())

	svc, _ := newTestService(t, store, nil)
	resp, err := svc.ListDocuments(context.Background(), schema.ListDocumentsRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Fatalf("got %d documents, want 2", len(resp.Documents))
	}
}

func TestInvalidSessionRejected(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore(), nil)
	_, err := svc.Resolve(context.Background(), schema.ResolveRequest{Session: schema.SessionRef{}})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
