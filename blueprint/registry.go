package blueprint

import (
	"sort"
	"strings"
	"sync"

	"github.com/robodeck/robodeck/schema"
)

// ViewDef describes a renderable view type. DefaultConfig, when set,
// proposes an initial config given the session's available telemetry
// topics.
type ViewDef struct {
	Label         string
	DefaultConfig func(topics []string) map[string]any
}

// Registry maps view types to their definitions. Unknown types resolve
// to the placeholder definition, never an error.
type Registry struct {
	mu   sync.RWMutex
	defs map[schema.ViewType]ViewDef
}

// NewRegistry returns a registry seeded with the built-in view types.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[schema.ViewType]ViewDef)}
	r.Register(schema.ViewPlaceholder, ViewDef{Label: "Empty"})
	r.Register("camera", ViewDef{
		Label: "Camera",
		DefaultConfig: func(topics []string) map[string]any {
			for _, topic := range topics {
				if strings.HasPrefix(topic, "camera/") {
					return map[string]any{"topic": topic}
				}
			}
			return nil
		},
	})
	r.Register("joint_state", ViewDef{
		Label: "Joint State",
		DefaultConfig: func(topics []string) map[string]any {
			return map[string]any{"topic": "robot/joint_state"}
		},
	})
	r.Register("status", ViewDef{Label: "Session Status"})
	r.Register("controls", ViewDef{Label: "Controls"})
	r.Register("timeline", ViewDef{Label: "Timeline"})
	r.Register("log", ViewDef{
		Label: "Log",
		DefaultConfig: func(topics []string) map[string]any {
			return map[string]any{"topic": "system/log", "max_lines": 200}
		},
	})
	return r
}

// Register adds or replaces a view type definition.
func (r *Registry) Register(viewType schema.ViewType, def ViewDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[viewType] = def
}

// Lookup returns the definition for a view type and whether it is
// registered.
func (r *Registry) Lookup(viewType schema.ViewType) (ViewDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[viewType]
	return def, ok
}

// Resolve returns the definition for a view type, falling back to the
// placeholder definition for unknown types.
func (r *Registry) Resolve(viewType schema.ViewType) ViewDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if def, ok := r.defs[viewType]; ok {
		return def
	}
	return r.defs[schema.ViewPlaceholder]
}

// Types lists registered view types in sorted order.
func (r *Registry) Types() []schema.ViewType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]schema.ViewType, 0, len(r.defs))
	for viewType := range r.defs {
		types = append(types, viewType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
