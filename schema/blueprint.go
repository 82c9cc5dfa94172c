package schema

import (
	"encoding/json"
	"fmt"
)

// Direction orients a split.
type Direction string

const (
	// DirectionRow lays the two children out side by side.
	DirectionRow Direction = "row"
	// DirectionColumn stacks the two children vertically.
	DirectionColumn Direction = "column"
)

// Valid reports whether the direction is row or column.
func (d Direction) Valid() bool {
	return d == DirectionRow || d == DirectionColumn
}

// Node is the closed variant set for blueprint trees. A node is exactly
// one of ViewNode, SplitNode, or TabsNode; every tree operation and the
// renderer dispatch exhaustively on the concrete type.
type Node interface {
	NodeID() NodeID
	blueprintNode()
}

// ViewNode is a leaf whose rendering is delegated to the view-type
// registry. Config is an open mapping owned by the view type, not by
// the tree model.
type ViewNode struct {
	ID     NodeID
	View   ViewType
	Config map[string]any
}

// NodeID implements Node.
func (n *ViewNode) NodeID() NodeID { return n.ID }

func (n *ViewNode) blueprintNode() {}

// SplitNode is a binary internal node. It always has exactly two
// children; Sizes are the relative extents of the two children and
// conceptually sum to 1.
type SplitNode struct {
	ID        NodeID
	Direction Direction
	Sizes     [2]float64
	Children  [2]Node
}

// NodeID implements Node.
func (n *SplitNode) NodeID() NodeID { return n.ID }

func (n *SplitNode) blueprintNode() {}

// Tab is one named child of a TabsNode.
type Tab struct {
	ID    TabID
	Title string
	Child Node
}

// TabsNode is an internal node with an ordered list of named children.
// Tabs is never emptied by a completed edit operation; ActiveID always
// references an existing tab.
type TabsNode struct {
	ID       NodeID
	Tabs     []Tab
	ActiveID TabID
}

// NodeID implements Node.
func (n *TabsNode) NodeID() NodeID { return n.ID }

func (n *TabsNode) blueprintNode() {}

// Wire discriminator values for the node envelope.
const (
	nodeTypeView  = "view"
	nodeTypeSplit = "split"
	nodeTypeTabs  = "tabs"
)

type viewNodeWire struct {
	Type   string         `json:"type"`
	ID     NodeID         `json:"id"`
	View   ViewType       `json:"viewType"`
	Config map[string]any `json:"config,omitempty"`
}

type splitNodeWire struct {
	Type      string             `json:"type"`
	ID        NodeID             `json:"id"`
	Direction Direction          `json:"direction"`
	Sizes     [2]float64         `json:"sizes"`
	Children  [2]json.RawMessage `json:"children"`
}

type tabWire struct {
	ID    TabID           `json:"id"`
	Title string          `json:"title"`
	Child json.RawMessage `json:"child"`
}

type tabsNodeWire struct {
	Type     string    `json:"type"`
	ID       NodeID    `json:"id"`
	Tabs     []tabWire `json:"tabs"`
	ActiveID TabID     `json:"activeId,omitempty"`
}

// MarshalNode encodes a node with its type discriminator.
func MarshalNode(n Node) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("marshal node: nil node")
	}
	return json.Marshal(n)
}

// UnmarshalNode decodes a node envelope by its type discriminator.
func UnmarshalNode(data []byte) (Node, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("unmarshal node: %w", err)
	}
	switch probe.Type {
	case nodeTypeView:
		node := &ViewNode{}
		if err := json.Unmarshal(data, node); err != nil {
			return nil, err
		}
		return node, nil
	case nodeTypeSplit:
		node := &SplitNode{}
		if err := json.Unmarshal(data, node); err != nil {
			return nil, err
		}
		return node, nil
	case nodeTypeTabs:
		node := &TabsNode{}
		if err := json.Unmarshal(data, node); err != nil {
			return nil, err
		}
		return node, nil
	default:
		return nil, fmt.Errorf("unmarshal node: unknown node type %q", probe.Type)
	}
}

// MarshalJSON implements json.Marshaler.
func (n *ViewNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(viewNodeWire{
		Type:   nodeTypeView,
		ID:     n.ID,
		View:   n.View,
		Config: n.Config,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *ViewNode) UnmarshalJSON(data []byte) error {
	var wire viewNodeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	n.ID = wire.ID
	n.View = wire.View
	n.Config = wire.Config
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n *SplitNode) MarshalJSON() ([]byte, error) {
	wire := splitNodeWire{
		Type:      nodeTypeSplit,
		ID:        n.ID,
		Direction: n.Direction,
		Sizes:     n.Sizes,
	}
	for i, child := range n.Children {
		data, err := MarshalNode(child)
		if err != nil {
			return nil, fmt.Errorf("marshal split child %d: %w", i, err)
		}
		wire.Children[i] = data
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *SplitNode) UnmarshalJSON(data []byte) error {
	var wire splitNodeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var children [2]Node
	for i, raw := range wire.Children {
		if len(raw) == 0 {
			return fmt.Errorf("unmarshal split %s: missing child %d", wire.ID, i)
		}
		child, err := UnmarshalNode(raw)
		if err != nil {
			return err
		}
		children[i] = child
	}
	n.ID = wire.ID
	n.Direction = wire.Direction
	n.Sizes = wire.Sizes
	n.Children = children
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n *TabsNode) MarshalJSON() ([]byte, error) {
	wire := tabsNodeWire{
		Type:     nodeTypeTabs,
		ID:       n.ID,
		Tabs:     make([]tabWire, 0, len(n.Tabs)),
		ActiveID: n.ActiveID,
	}
	for _, tab := range n.Tabs {
		child, err := MarshalNode(tab.Child)
		if err != nil {
			return nil, fmt.Errorf("marshal tab %s: %w", tab.ID, err)
		}
		wire.Tabs = append(wire.Tabs, tabWire{ID: tab.ID, Title: tab.Title, Child: child})
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *TabsNode) UnmarshalJSON(data []byte) error {
	var wire tabsNodeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	tabs := make([]Tab, 0, len(wire.Tabs))
	for _, tab := range wire.Tabs {
		if len(tab.Child) == 0 {
			return fmt.Errorf("unmarshal tabs %s: tab %s has no child", wire.ID, tab.ID)
		}
		child, err := UnmarshalNode(tab.Child)
		if err != nil {
			return err
		}
		tabs = append(tabs, Tab{ID: tab.ID, Title: tab.Title, Child: child})
	}
	n.ID = wire.ID
	n.Tabs = tabs
	n.ActiveID = wire.ActiveID
	return nil
}

// CloneNode returns a deep copy of the node. Config maps and tab slices
// are copied; the result shares nothing with the input.
func CloneNode(n Node) Node {
	switch t := n.(type) {
	case *ViewNode:
		clone := &ViewNode{ID: t.ID, View: t.View}
		if t.Config != nil {
			clone.Config = make(map[string]any, len(t.Config))
			for k, v := range t.Config {
				clone.Config[k] = v
			}
		}
		return clone
	case *SplitNode:
		return &SplitNode{
			ID:        t.ID,
			Direction: t.Direction,
			Sizes:     t.Sizes,
			Children:  [2]Node{CloneNode(t.Children[0]), CloneNode(t.Children[1])},
		}
	case *TabsNode:
		clone := &TabsNode{ID: t.ID, ActiveID: t.ActiveID, Tabs: make([]Tab, 0, len(t.Tabs))}
		for _, tab := range t.Tabs {
			clone.Tabs = append(clone.Tabs, Tab{ID: tab.ID, Title: tab.Title, Child: CloneNode(tab.Child)})
		}
		return clone
	default:
		return nil
	}
}
