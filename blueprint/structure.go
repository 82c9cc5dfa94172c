package blueprint

import "github.com/robodeck/robodeck/schema"

// WrapInSplit replaces the node at id with a split whose first child is
// the original node (identity preserved) and whose second child is a
// fresh placeholder. Sizes start at an even split.
func WrapInSplit(root schema.Node, id schema.NodeID, direction schema.Direction) schema.Node {
	return Update(root, id, func(n schema.Node) schema.Node {
		return NewSplit(direction, n, NewPlaceholder())
	})
}

// WrapInTabs replaces the node at id with a tabs node holding the
// original node under a "View" tab and a fresh placeholder under a
// "New" tab. The first tab is active.
func WrapInTabs(root schema.Node, id schema.NodeID) schema.Node {
	return Update(root, id, func(n schema.Node) schema.Node {
		return NewTabs(NewTab("View", n), NewTab("New", NewPlaceholder()))
	})
}

// AddTab appends a tab with a fresh placeholder child and makes it
// active, so new content is immediately visible. No-op when the target
// is missing or not a tabs node.
func AddTab(root schema.Node, tabsID schema.NodeID, title string) schema.Node {
	return Update(root, tabsID, func(n schema.Node) schema.Node {
		tabs, ok := n.(*schema.TabsNode)
		if !ok {
			return n
		}
		tab := NewTab(title, NewPlaceholder())
		out := *tabs
		out.Tabs = append(append([]schema.Tab(nil), tabs.Tabs...), tab)
		out.ActiveID = tab.ID
		return &out
	})
}

// RenameTab updates the matching tab's title. No-op when either id is
// not found or the target is not a tabs node.
func RenameTab(root schema.Node, tabsID schema.NodeID, tabID schema.TabID, title string) schema.Node {
	return Update(root, tabsID, func(n schema.Node) schema.Node {
		tabs, ok := n.(*schema.TabsNode)
		if !ok {
			return n
		}
		for i, tab := range tabs.Tabs {
			if tab.ID != tabID {
				continue
			}
			out := *tabs
			out.Tabs = append([]schema.Tab(nil), tabs.Tabs...)
			out.Tabs[i].Title = title
			return &out
		}
		return n
	})
}

// RemoveTab removes the matching tab. Removing the last remaining tab
// is a no-op: a tabs node is never emptied by this operation. When the
// removed tab was active, the first remaining tab becomes active;
// otherwise the active tab is unchanged.
func RemoveTab(root schema.Node, tabsID schema.NodeID, tabID schema.TabID) schema.Node {
	return Update(root, tabsID, func(n schema.Node) schema.Node {
		tabs, ok := n.(*schema.TabsNode)
		if !ok {
			return n
		}
		if len(tabs.Tabs) <= 1 {
			return n
		}
		remaining := make([]schema.Tab, 0, len(tabs.Tabs)-1)
		found := false
		for _, tab := range tabs.Tabs {
			if tab.ID == tabID {
				found = true
				continue
			}
			remaining = append(remaining, tab)
		}
		if !found {
			return n
		}
		out := *tabs
		out.Tabs = remaining
		if tabs.ActiveID == tabID {
			out.ActiveID = remaining[0].ID
		}
		return &out
	})
}

// Delete removes the node at id from the tree.
//
// Deleting the root resets the tree to a placeholder bearing the root's
// id. Deleting a split child promotes the sibling into the split's
// position with its content intact. Deleting a tab's child removes that
// tab; when that would empty the tabs node, the whole tabs node
// collapses to a placeholder bearing its own id.
func Delete(root schema.Node, id schema.NodeID) schema.Node {
	if root == nil {
		return root
	}
	if root.NodeID() == id {
		return placeholderWithID(id)
	}
	next, changed := deleteIn(root, id)
	if !changed {
		return root
	}
	return next
}

func deleteIn(node schema.Node, id schema.NodeID) (schema.Node, bool) {
	switch t := node.(type) {
	case *schema.ViewNode:
		return node, false
	case *schema.SplitNode:
		if t.Children[0].NodeID() == id {
			return t.Children[1], true
		}
		if t.Children[1].NodeID() == id {
			return t.Children[0], true
		}
		if next, changed := deleteIn(t.Children[0], id); changed {
			out := *t
			out.Children = [2]schema.Node{next, t.Children[1]}
			return &out, true
		}
		if next, changed := deleteIn(t.Children[1], id); changed {
			out := *t
			out.Children = [2]schema.Node{t.Children[0], next}
			return &out, true
		}
		return node, false
	case *schema.TabsNode:
		for i, tab := range t.Tabs {
			if tab.Child.NodeID() != id {
				continue
			}
			remaining := make([]schema.Tab, 0, len(t.Tabs)-1)
			remaining = append(remaining, t.Tabs[:i]...)
			remaining = append(remaining, t.Tabs[i+1:]...)
			if len(remaining) == 0 {
				return placeholderWithID(t.ID), true
			}
			out := *t
			out.Tabs = remaining
			if t.ActiveID == tab.ID {
				out.ActiveID = remaining[0].ID
			}
			return &out, true
		}
		for i, tab := range t.Tabs {
			next, changed := deleteIn(tab.Child, id)
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
