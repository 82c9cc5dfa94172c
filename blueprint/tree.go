// Package blueprint implements the layout tree for session dashboards:
// a strict tree of split panes, tabbed groups, and leaf views. All
// operations are pure: they take a root and return a new root, sharing
// unaffected subtrees, and silently return the input when the target id
// is not found or is of the wrong kind.
package blueprint

import "github.com/robodeck/robodeck/schema"

// Find returns the first node with the given id in depth-first order
// (split: first child before second; tabs: in tab order), or nil.
func Find(root schema.Node, id schema.NodeID) schema.Node {
	if root == nil {
		return nil
	}
	if root.NodeID() == id {
		return root
	}
	switch t := root.(type) {
	case *schema.ViewNode:
		return nil
	case *schema.SplitNode:
		if found := Find(t.Children[0], id); found != nil {
			return found
		}
		return Find(t.Children[1], id)
	case *schema.TabsNode:
		for _, tab := range t.Tabs {
			if found := Find(tab.Child, id); found != nil {
				return found
			}
		}
		return nil
	default:
		return nil
	}
}

// Update replaces the node with the given id by fn(node), rebuilding
// all ancestors along the path. When the id is not found, or fn returns
// the node unchanged, the input root is returned as-is.
func Update(root schema.Node, id schema.NodeID, fn func(schema.Node) schema.Node) schema.Node {
	next, changed := update(root, id, fn)
	if !changed {
		return root
	}
	return next
}

func update(node schema.Node, id schema.NodeID, fn func(schema.Node) schema.Node) (schema.Node, bool) {
	if node == nil {
		return node, false
	}
	if node.NodeID() == id {
		next := fn(node)
		if next == nil || next == node {
			return node, false
		}
		return next, true
	}
	switch t := node.(type) {
	case *schema.ViewNode:
		return node, false
	case *schema.SplitNode:
		if next, changed := update(t.Children[0], id, fn); changed {
			out := *t
			out.Children = [2]schema.Node{next, t.Children[1]}
			return &out, true
		}
		if next, changed := update(t.Children[1], id, fn); changed {
			out := *t
			out.Children = [2]schema.Node{t.Children[0], next}
			return &out, true
		}
		return node, false
	case *schema.TabsNode:
		for i, tab := range t.Tabs {
			next, changed := update(tab.Child, id, fn)
			if !changed {
				continue
			}
			out := *t
			out.Tabs = append([]schema.Tab(nil), t.Tabs...)
			out.Tabs[i].Child = next
			return &out, true
		}
		return node, false
	default:
		return node, false
	}
}

// SetSplitSizes updates a split's relative child extents. No-op when
// the target is missing or not a split.
func SetSplitSizes(root schema.Node, id schema.NodeID, sizes [2]float64) schema.Node {
	return Update(root, id, func(n schema.Node) schema.Node {
		split, ok := n.(*schema.SplitNode)
		if !ok {
			return n
		}
		out := *split
		out.Sizes = sizes
		return &out
	})
}

// SetSplitDirection updates a split's orientation. No-op when the
// target is missing or not a split.
func SetSplitDirection(root schema.Node, id schema.NodeID, direction schema.Direction) schema.Node {
	return Update(root, id, func(n schema.Node) schema.Node {
		split, ok := n.(*schema.SplitNode)
		if !ok {
			return n
		}
		out := *split
		out.Direction = direction
		return &out
	})
}

// SetActiveTab updates which tab is shown. No-op when the target is
// missing, not a tabs node, or the tab id does not exist.
func SetActiveTab(root schema.Node, id schema.NodeID, tabID schema.TabID) schema.Node {
	return Update(root, id, func(n schema.Node) schema.Node {
		tabs, ok := n.(*schema.TabsNode)
		if !ok {
			return n
		}
		if !hasTab(tabs, tabID) {
			return n
		}
		out := *tabs
		out.ActiveID = tabID
		return &out
	})
}

// SetViewType retypes a leaf view. No-op when the target is missing or
// not a view.
func SetViewType(root schema.Node, id schema.NodeID, viewType schema.ViewType) schema.Node {
	return Update(root, id, func(n schema.Node) schema.Node {
		view, ok := n.(*schema.ViewNode)
		if !ok {
			return n
		}
		out := *view
		out.View = viewType
		return &out
	})
}

// SetViewConfig replaces a leaf view's configuration. No-op when the
// target is missing or not a view.
func SetViewConfig(root schema.Node, id schema.NodeID, config map[string]any) schema.Node {
	return Update(root, id, func(n schema.Node) schema.Node {
		view, ok := n.(*schema.ViewNode)
		if !ok {
			return n
		}
		out := *view
		out.Config = config
		return &out
	})
}

// EnsureSelection returns selected when it still resolves in the tree,
// and the root's id otherwise. Called after structural edits that may
// have removed the selected region.
func EnsureSelection(root schema.Node, selected schema.NodeID) schema.NodeID {
	if root == nil {
		return ""
	}
	if Find(root, selected) != nil {
		return selected
	}
	return root.NodeID()
}

func hasTab(node *schema.TabsNode, tabID schema.TabID) bool {
	for _, tab := range node.Tabs {
		if tab.ID == tabID {
			return true
		}
	}
	return false
}
