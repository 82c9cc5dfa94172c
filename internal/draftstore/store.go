// Package draftstore persists locally-unsaved blueprint edits, one
// JSON file per session under a state directory. Drafts are keyed by
// the document they were recorded against; a draft for another
// document is never applied. Storage is best-effort: malformed files
// count as "no draft".
package draftstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"pkt.systems/pslog"

	"github.com/robodeck/robodeck/schema"
)

// Store persists drafts to disk.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a draft store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a draft store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("draft directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("draft_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Load reads the session's draft when it targets the wanted document.
// Missing files, malformed JSON, and drafts recorded against another
// document all return nil; malformed files are removed.
func (s *Store) Load(ref schema.SessionRef, want schema.BlueprintID) (*schema.Draft, error) {
	path := s.pathFor(ref)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("draft load miss", "session", ref.ID)
			}
			return nil, nil
		}
		if s.log != nil {
			s.log.Warn("draft load failed", "session", ref.ID, "err", err)
		}
		return nil, err
	}
	var draft schema.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		if s.log != nil {
			s.log.Warn("draft discarded as malformed", "session", ref.ID, "err", err)
		}
		_ = os.Remove(path)
		return nil, nil
	}
	if draft.Root == nil || draft.BlueprintID == "" {
		_ = os.Remove(path)
		return nil, nil
	}
	if want != "" && draft.BlueprintID != want {
		if s.log != nil {
			s.log.Debug("draft ignored for other document", "session", ref.ID, "draft_blueprint", draft.BlueprintID, "want", want)
		}
		return nil, nil
	}
	if s.log != nil {
		s.log.Debug("draft load ok", "session", ref.ID, "blueprint", draft.BlueprintID)
	}
	return &draft, nil
}

// Save writes the session's draft atomically.
func (s *Store) Save(ref schema.SessionRef, draft schema.Draft) error {
	if draft.BlueprintID == "" || draft.Root == nil {
		return errors.New("draft requires a blueprint id and a root")
	}
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = time.Now().UTC()
	}
	path := s.pathFor(ref)
	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		if s.log != nil {
			s.log.Warn("draft save failed", "session", ref.ID, "err", err)
		}
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "draft-*.json")
	if err != nil {
		if s.log != nil {
			s.log.Warn("draft save failed", "session", ref.ID, "err", err)
		}
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		if s.log != nil {
			s.log.Warn("draft save failed", "session", ref.ID, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("draft save ok", "session", ref.ID, "blueprint", draft.BlueprintID)
	}
	return nil
}

// Clear removes the session's draft. When blueprintID is non-empty the
// removal is conditional: a draft recorded against another document is
// left alone.
func (s *Store) Clear(ref schema.SessionRef, blueprintID schema.BlueprintID) error {
	path := s.pathFor(ref)
	if blueprintID != "" {
		draft, err := s.Load(ref, "")
		if err != nil {
			return err
		}
		if draft == nil {
			return nil
		}
		if draft.BlueprintID != blueprintID {
			return nil
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		if s.log != nil {
			s.log.Warn("draft clear failed", "session", ref.ID, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Debug("draft cleared", "session", ref.ID, "blueprint", blueprintID)
	}
	return nil
}

func (s *Store) pathFor(ref schema.SessionRef) string {
	kind := sanitize(string(ref.Kind))
	if kind == "" {
		kind = "session"
	}
	id := sanitize(string(ref.ID))
	if id == "" {
		id = "unknown"
	}
	return filepath.Join(s.dir, kind+"-"+id+".json")
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
