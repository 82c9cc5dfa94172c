package blueprint

import "github.com/robodeck/robodeck/schema"

// NewView constructs a leaf view node with a fresh id.
func NewView(viewType schema.ViewType, config map[string]any) *schema.ViewNode {
	return &schema.ViewNode{ID: newNodeID(), View: viewType, Config: config}
}

// NewPlaceholder constructs the canonical empty-slot leaf.
func NewPlaceholder() *schema.ViewNode {
	return NewView(schema.ViewPlaceholder, nil)
}

// placeholderWithID builds an empty slot that takes over an existing
// node's identity, used when a deleted region must keep its handle.
func placeholderWithID(id schema.NodeID) *schema.ViewNode {
	return &schema.ViewNode{ID: id, View: schema.ViewPlaceholder}
}

// NewSplit constructs a binary split with equal sizes.
func NewSplit(direction schema.Direction, first, second schema.Node) *schema.SplitNode {
	return &schema.SplitNode{
		ID:        newNodeID(),
		Direction: direction,
		Sizes:     [2]float64{0.5, 0.5},
		Children:  [2]schema.Node{first, second},
	}
}

// NewTabs constructs a tabs node from the given tabs. The first tab is
// active unless tabs is empty.
func NewTabs(tabs ...schema.Tab) *schema.TabsNode {
	node := &schema.TabsNode{ID: newNodeID(), Tabs: tabs}
	if len(tabs) > 0 {
		node.ActiveID = tabs[0].ID
	}
	return node
}

// NewTab wraps a child node in a named tab with a fresh tab id.
func NewTab(title string, child schema.Node) schema.Tab {
	return schema.Tab{ID: newTabID(), Title: title, Child: child}
}
