package blueprint

import "github.com/robodeck/robodeck/schema"

// RenderParams carries presentation state for one render pass. Scale is
// presentation-only; it never alters the tree's logical sizes.
type RenderParams struct {
	SelectedID schema.NodeID
	EditMode   bool
	Scale      float64
	Session    schema.SessionRef
}

// Renderer projects each node kind to a renderable region R. Split and
// tabs receive the already rendered regions of their children; tabs
// receive only the active tab's region, the strip itself is derived
// from the node.
type Renderer[R any] interface {
	View(node *schema.ViewNode, def ViewDef, params RenderParams) R
	Split(node *schema.SplitNode, first, second R, params RenderParams) R
	Tabs(node *schema.TabsNode, active R, params RenderParams) R
}

// Render walks the tree depth-first and projects it through the
// renderer, resolving view definitions via the registry. A nil root
// renders as a placeholder region.
func Render[R any](root schema.Node, reg *Registry, r Renderer[R], params RenderParams) R {
	if params.Scale <= 0 {
		params.Scale = 1
	}
	if root == nil {
		node := &schema.ViewNode{View: schema.ViewPlaceholder}
		return r.View(node, reg.Resolve(node.View), params)
	}
	switch t := root.(type) {
	case *schema.ViewNode:
		return r.View(t, reg.Resolve(t.View), params)
	case *schema.SplitNode:
		first := Render(t.Children[0], reg, r, params)
		second := Render(t.Children[1], reg, r, params)
		return r.Split(t, first, second, params)
	case *schema.TabsNode:
		active := Render(ActiveChild(t), reg, r, params)
		return r.Tabs(t, active, params)
	default:
		node := &schema.ViewNode{View: schema.ViewPlaceholder}
		return r.View(node, reg.Resolve(node.View), params)
	}
}

// ActiveChild returns the active tab's child, falling back to the first
// tab when the active id is stale, or nil when the node has no tabs.
func ActiveChild(node *schema.TabsNode) schema.Node {
	if len(node.Tabs) == 0 {
		return nil
	}
	for _, tab := range node.Tabs {
		if tab.ID == node.ActiveID {
			return tab.Child
		}
	}
	return node.Tabs[0].Child
}

// Topics collects the telemetry topics referenced by view configs in
// depth-first order, without duplicates. Leaf views subscribe to these
// independently of the tree structure.
func Topics(root schema.Node) []schema.Topic {
	seen := make(map[schema.Topic]struct{})
	var out []schema.Topic
	var walk func(schema.Node)
	walk = func(n schema.Node) {
		switch t := n.(type) {
		case *schema.ViewNode:
			topic, ok := t.Config["topic"].(string)
			if !ok || topic == "" {
				return
			}
			if _, dup := seen[schema.Topic(topic)]; dup {
				return
			}
			seen[schema.Topic(topic)] = struct{}{}
			out = append(out, schema.Topic(topic))
		case *schema.SplitNode:
			walk(t.Children[0])
			walk(t.Children[1])
		case *schema.TabsNode:
			for _, tab := range t.Tabs {
				walk(tab.Child)
			}
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}
