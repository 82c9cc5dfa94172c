package schema

// SessionKind categorizes the live session a blueprint is attached to.
type SessionKind string

const (
	// SessionRecording is a data-collection recording session.
	SessionRecording SessionKind = "recording"
	// SessionTeleop is a live teleoperation session.
	SessionTeleop SessionKind = "teleop"
	// SessionInference is a policy inference session.
	SessionInference SessionKind = "inference"
)

// Valid reports whether the kind is one of the known session kinds.
func (k SessionKind) Valid() bool {
	switch k {
	case SessionRecording, SessionTeleop, SessionInference:
		return true
	default:
		return false
	}
}

// SessionID identifies a running session within its kind.
type SessionID string

// SessionRef addresses one running session.
type SessionRef struct {
	Kind SessionKind `json:"kind"`
	ID   SessionID   `json:"id"`
}

// BlueprintID identifies a server-persisted blueprint document.
type BlueprintID string

// NodeID identifies a node within a blueprint tree.
type NodeID string

// TabID identifies a tab within a TabsNode.
type TabID string

// ViewType keys the view-type registry.
type ViewType string

// ViewPlaceholder is the canonical empty-slot view type.
const ViewPlaceholder ViewType = "placeholder"

// DocumentName is the user-facing name of a blueprint document.
type DocumentName string

// Topic names a telemetry stream published by the backend.
type Topic string
