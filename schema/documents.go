package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResolveReason explains how a session's blueprint document was chosen.
type ResolveReason string

const (
	// ResolvedByBinding means an explicit binding already existed.
	ResolvedByBinding ResolveReason = "binding"
	// ResolvedByLastUsed means the server fell back to the user's
	// last-used document.
	ResolvedByLastUsed ResolveReason = "last_used"
	// ResolvedByLatest means the server fell back to the most recently
	// modified document.
	ResolvedByLatest ResolveReason = "latest"
	// ResolvedByDefaultCreated means no document existed and a default
	// was created on the fly. Callers surface a notice only for this.
	ResolvedByDefaultCreated ResolveReason = "default_created"
)

// DocumentSummary lists a blueprint document without its tree.
type DocumentSummary struct {
	ID        BlueprintID  `json:"id"`
	Name      DocumentName `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// BlueprintDocument is the server-persisted container for a blueprint
// root node.
type BlueprintDocument struct {
	ID        BlueprintID
	Name      DocumentName
	Root      Node
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary returns the document's listing view.
func (d BlueprintDocument) Summary() DocumentSummary {
	return DocumentSummary{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

type documentWire struct {
	ID        BlueprintID     `json:"id"`
	Name      DocumentName    `json:"name"`
	Blueprint json.RawMessage `json:"blueprint"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MarshalJSON implements json.Marshaler.
func (d BlueprintDocument) MarshalJSON() ([]byte, error) {
	wire := documentWire{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
	if d.Root != nil {
		data, err := MarshalNode(d.Root)
		if err != nil {
			return nil, fmt.Errorf("marshal document %s: %w", d.ID, err)
		}
		wire.Blueprint = data
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *BlueprintDocument) UnmarshalJSON(data []byte) error {
	var wire documentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	d.ID = wire.ID
	d.Name = wire.Name
	d.CreatedAt = wire.CreatedAt
	d.UpdatedAt = wire.UpdatedAt
	d.Root = nil
	if len(wire.Blueprint) > 0 && string(wire.Blueprint) != "null" {
		root, err := UnmarshalNode(wire.Blueprint)
		if err != nil {
			return fmt.Errorf("unmarshal document %s: %w", wire.ID, err)
		}
		d.Root = root
	}
	return nil
}

// ResolvedDocument pairs a resolved document with the reason the
// server chose it.
type ResolvedDocument struct {
	Document BlueprintDocument
	Reason   ResolveReason
}

// DocumentUpdate describes a partial document update. Nil fields are
// left unchanged on the server.
type DocumentUpdate struct {
	Name *DocumentName
	Root Node
}

// DeleteOutcome reports what the server did when a document was
// deleted. ReboundSessions counts other sessions moved to a substitute
// document.
type DeleteOutcome struct {
	ReboundSessions int
}

// Draft is a locally persisted, unsaved edit of a blueprint, keyed by
// session and document id. A draft only ever applies to the document it
// was recorded against.
type Draft struct {
	BlueprintID BlueprintID
	Root        Node
	UpdatedAt   time.Time
}

type draftWire struct {
	BlueprintID BlueprintID     `json:"blueprintId"`
	Blueprint   json.RawMessage `json:"blueprint"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// MarshalJSON implements json.Marshaler.
func (d Draft) MarshalJSON() ([]byte, error) {
	wire := draftWire{BlueprintID: d.BlueprintID, UpdatedAt: d.UpdatedAt}
	if d.Root != nil {
		data, err := MarshalNode(d.Root)
		if err != nil {
			return nil, fmt.Errorf("marshal draft for %s: %w", d.BlueprintID, err)
		}
		wire.Blueprint = data
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Draft) UnmarshalJSON(data []byte) error {
	var wire draftWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	d.BlueprintID = wire.BlueprintID
	d.UpdatedAt = wire.UpdatedAt
	d.Root = nil
	if len(wire.Blueprint) > 0 && string(wire.Blueprint) != "null" {
		root, err := UnmarshalNode(wire.Blueprint)
		if err != nil {
			return err
		}
		d.Root = root
	}
	return nil
}
