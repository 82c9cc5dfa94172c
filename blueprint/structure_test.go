package blueprint

import (
	"testing"

	"github.com/robodeck/robodeck/schema"
)

func TestWrapInSplitPreservesIdentity(t *testing.T) {
	tree := schema.Node(&schema.ViewNode{ID: "v1", View: schema.ViewPlaceholder})
	next := WrapInSplit(tree, "v1", schema.DirectionRow)

	split, ok := next.(*schema.SplitNode)
	if !ok {
		t.Fatalf("expected split root, got %T", next)
	}
	if split.Direction != schema.DirectionRow {
		t.Fatalf("expected row direction, got %q", split.Direction)
	}
	if split.Sizes != [2]float64{0.5, 0.5} {
		t.Fatalf("expected even sizes, got %v", split.Sizes)
	}
	first, ok := split.Children[0].(*schema.ViewNode)
	if !ok || first.ID != "v1" || first.View != schema.ViewPlaceholder {
		t.Fatalf("expected original node as first child, got %#v", split.Children[0])
	}
	second, ok := split.Children[1].(*schema.ViewNode)
	if !ok || second.View != schema.ViewPlaceholder {
		t.Fatalf("expected placeholder second child, got %#v", split.Children[1])
	}
	if second.ID == "v1" || second.ID == "" {
		t.Fatalf("expected fresh id for placeholder, got %q", second.ID)
	}
	if found := Find(next, "v1"); found != tree {
		t.Fatalf("expected original node reachable by id")
	}
}

func TestWrapInTabsLifecycle(t *testing.T) {
	tree := schema.Node(&schema.ViewNode{ID: "v1", View: schema.ViewPlaceholder})
	next := WrapInTabs(tree, "v1")

	tabs, ok := next.(*schema.TabsNode)
	if !ok {
		t.Fatalf("expected tabs root, got %T", next)
	}
	if len(tabs.Tabs) != 2 {
		t.Fatalf("expected 2 tabs, got %d", len(tabs.Tabs))
	}
	if tabs.Tabs[0].Title != "View" || tabs.Tabs[1].Title != "New" {
		t.Fatalf("unexpected tab titles: %q, %q", tabs.Tabs[0].Title, tabs.Tabs[1].Title)
	}
	if tabs.ActiveID != tabs.Tabs[0].ID {
		t.Fatalf("expected first tab active, got %q", tabs.ActiveID)
	}
	if tabs.Tabs[0].Child.NodeID() != "v1" {
		t.Fatalf("expected original node under first tab")
	}

	withExtra := AddTab(next, tabs.ID, "Extra")
	grown := Find(withExtra, tabs.ID).(*schema.TabsNode)
	if len(grown.Tabs) != 3 {
		t.Fatalf("expected 3 tabs after add, got %d", len(grown.Tabs))
	}
	added := grown.Tabs[2]
	if added.Title != "Extra" {
		t.Fatalf("expected new tab title Extra, got %q", added.Title)
	}
	if grown.ActiveID != added.ID {
		t.Fatalf("expected new tab active, got %q", grown.ActiveID)
	}
	if child, ok := added.Child.(*schema.ViewNode); !ok || child.View != schema.ViewPlaceholder {
		t.Fatalf("expected placeholder child for new tab, got %#v", added.Child)
	}
}

func TestRenameTab(t *testing.T) {
	tree := sampleTree()
	next := RenameTab(tree, "tabs", "t2", "Events")
	tabs := Find(next, "tabs").(*schema.TabsNode)
	if tabs.Tabs[1].Title != "Events" {
		t.Fatalf("expected renamed tab, got %q", tabs.Tabs[1].Title)
	}
	if tabs.Tabs[0].Title != "Status" {
		t.Fatalf("expected other tab untouched, got %q", tabs.Tabs[0].Title)
	}
}

func TestRemoveTabNeverEmpties(t *testing.T) {
	tree := schema.Node(&schema.TabsNode{
		ID:       "tabs",
		ActiveID: "only",
		Tabs: []schema.Tab{
			{ID: "only", Title: "Solo", Child: &schema.ViewNode{ID: "v", View: "status"}},
		},
	})
	next := RemoveTab(tree, "tabs", "only")
	if next != tree {
		t.Fatalf("expected removing the sole tab to be a no-op")
	}
}

func TestRemoveActiveTabReassignsFirstRemaining(t *testing.T) {
	tree := sampleTree()
	next := RemoveTab(tree, "tabs", "t1")
	tabs := Find(next, "tabs").(*schema.TabsNode)
	if len(tabs.Tabs) != 1 || tabs.Tabs[0].ID != "t2" {
		t.Fatalf("unexpected tabs after removal: %#v", tabs.Tabs)
	}
	if tabs.ActiveID != "t2" {
		t.Fatalf("expected t2 active after removing active tab, got %q", tabs.ActiveID)
	}
}

func TestRemoveInactiveTabKeepsActive(t *testing.T) {
	tree := sampleTree()
	next := RemoveTab(tree, "tabs", "t2")
	tabs := Find(next, "tabs").(*schema.TabsNode)
	if tabs.ActiveID != "t1" {
		t.Fatalf("expected active tab unchanged, got %q", tabs.ActiveID)
	}
	if len(tabs.Tabs) != 1 || tabs.Tabs[0].ID != "t1" {
		t.Fatalf("unexpected tabs after removal: %#v", tabs.Tabs)
	}
}

func TestDeleteRootResetsToPlaceholder(t *testing.T) {
	trees := []schema.Node{
		sampleTree(),
		&schema.ViewNode{ID: "solo", View: "camera"},
		Default(),
	}
	for _, tree := range trees {
		next := Delete(tree, tree.NodeID())
		view, ok := next.(*schema.ViewNode)
		if !ok {
			t.Fatalf("expected placeholder view after root delete, got %T", next)
		}
		if view.View != schema.ViewPlaceholder {
			t.Fatalf("expected placeholder view type, got %q", view.View)
		}
		if view.ID != tree.NodeID() {
			t.Fatalf("expected root id %q preserved, got %q", tree.NodeID(), view.ID)
		}
	}
}

func TestDeleteSplitChildPromotesSibling(t *testing.T) {
	a := &schema.ViewNode{ID: "a", View: "camera", Config: map[string]any{"topic": "camera/front"}}
	b := &schema.ViewNode{ID: "b", View: "status"}
	split := NewSplit(schema.DirectionRow, a, b)

	next := Delete(split, "b")
	if next.NodeID() != "a" {
		t.Fatalf("expected sibling a promoted, got %q", next.NodeID())
	}
	if next != schema.Node(a) {
		t.Fatalf("expected sibling promoted with content intact")
	}

	next = Delete(split, "a")
	if next != schema.Node(b) {
		t.Fatalf("expected sibling b promoted, got %#v", next)
	}
}

func TestDeletePromotionKeepsNestedSizes(t *testing.T) {
	inner := NewSplit(schema.DirectionColumn,
		&schema.ViewNode{ID: "x", View: "camera"},
		&schema.ViewNode{ID: "y", View: "status"},
	)
	inner.Sizes = [2]float64{0.25, 0.75}
	outer := NewSplit(schema.DirectionRow, &schema.ViewNode{ID: "doomed", View: "log"}, inner)

	next := Delete(outer, "doomed")
	promoted, ok := next.(*schema.SplitNode)
	if !ok {
		t.Fatalf("expected promoted split, got %T", next)
	}
	if promoted.Sizes != [2]float64{0.25, 0.75} {
		t.Fatalf("promotion renormalized nested sizes: %v", promoted.Sizes)
	}
}

func TestDeleteTabChildRemovesTab(t *testing.T) {
	tree := sampleTree()
	next := Delete(tree, "status")
	tabs := Find(next, "tabs").(*schema.TabsNode)
	if len(tabs.Tabs) != 1 || tabs.Tabs[0].ID != "t2" {
		t.Fatalf("unexpected tabs after delete: %#v", tabs.Tabs)
	}
	if tabs.ActiveID != "t2" {
		t.Fatalf("expected active reassigned to t2, got %q", tabs.ActiveID)
	}
}

func TestDeleteLastTabChildCollapsesTabsNode(t *testing.T) {
	tree := schema.Node(&schema.SplitNode{
		ID:        "root",
		Direction: schema.DirectionRow,
		Sizes:     [2]float64{0.5, 0.5},
		Children: [2]schema.Node{
			&schema.ViewNode{ID: "left", View: "camera"},
			&schema.TabsNode{
				ID:       "tabs",
				ActiveID: "t1",
				Tabs: []schema.Tab{
					{ID: "t1", Title: "Solo", Child: &schema.ViewNode{ID: "x", View: "status"}},
				},
			},
		},
	})
	next := Delete(tree, "x")
	collapsed := Find(next, "tabs")
	view, ok := collapsed.(*schema.ViewNode)
	if !ok {
		t.Fatalf("expected tabs node collapsed to placeholder, got %T", collapsed)
	}
	if view.View != schema.ViewPlaceholder {
		t.Fatalf("expected placeholder, got %q", view.View)
	}
	if view.ID != "tabs" {
		t.Fatalf("expected collapsed node to keep tabs id, got %q", view.ID)
	}
}

func TestDeleteDeepInEitherBranch(t *testing.T) {
	tree := sampleTree()
	next := Delete(tree, "log")
	if Find(next, "log") != nil {
		t.Fatalf("expected log removed")
	}
	tabs := Find(next, "tabs").(*schema.TabsNode)
	if len(tabs.Tabs) != 1 || tabs.ActiveID != "t1" {
		t.Fatalf("unexpected tabs state: %#v active=%q", tabs.Tabs, tabs.ActiveID)
	}

	deep := NewSplit(schema.DirectionColumn, sampleTree(), &schema.ViewNode{ID: "extra", View: "log"})
	next = Delete(deep, "cam")
	if Find(next, "cam") != nil {
		t.Fatalf("expected cam removed from nested branch")
	}
	if Find(next, "tabs") == nil || Find(next, "extra") == nil {
		t.Fatalf("expected unrelated nodes to survive")
	}
}

func TestSplitThenPopulateScenario(t *testing.T) {
	tree := schema.Node(&schema.ViewNode{ID: "v1", View: schema.ViewPlaceholder})
	next := WrapInSplit(tree, "v1", schema.DirectionRow)
	split := next.(*schema.SplitNode)
	fresh := split.Children[1].NodeID()

	populated := SetViewType(next, fresh, "camera")
	populated = SetViewConfig(populated, fresh, map[string]any{"topic": "camera/front"})
	view := Find(populated, fresh).(*schema.ViewNode)
	if view.View != "camera" || view.Config["topic"] != "camera/front" {
		t.Fatalf("unexpected populated view: %#v", view)
	}
	if Find(populated, "v1").(*schema.ViewNode).View != schema.ViewPlaceholder {
		t.Fatalf("expected original pane untouched")
	}
}
