package format

import (
	"strings"
	"testing"

	"github.com/robodeck/robodeck/blueprint"
	"github.com/robodeck/robodeck/schema"
)

func TestOutlineRendersNestedTree(t *testing.T) {
	reg := blueprint.NewRegistry()
	cam := blueprint.NewView("camera", map[string]any{"topic": "camera/front"})
	tabs := blueprint.NewTabs(
		blueprint.NewTab("Status", blueprint.NewView("status", nil)),
		blueprint.NewTab("Log", blueprint.NewView("log", nil)),
	)
	root := blueprint.NewSplit(schema.DirectionRow, cam, tabs)

	out := Outline(root, reg)
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "split row [0.50 0.50]") {
		t.Fatalf("unexpected head line %q", lines[0])
	}
	if !strings.Contains(lines[1], "view Camera (camera)") || !strings.Contains(lines[1], "topic=camera/front") {
		t.Fatalf("unexpected camera line %q", lines[1])
	}
	// The strip shows all titles; only the active child renders below.
	if !strings.Contains(lines[2], "tabs [Status] Log") {
		t.Fatalf("unexpected tabs line %q", lines[2])
	}
	if !strings.Contains(lines[3], "view Session Status (status)") {
		t.Fatalf("unexpected active tab line %q", lines[3])
	}
}

func TestOutlineNilRootRendersPlaceholder(t *testing.T) {
	out := Outline(nil, blueprint.NewRegistry())
	if !strings.Contains(out, "placeholder") {
		t.Fatalf("unexpected outline %q", out)
	}
}

func TestOutlineUnknownViewFallsBackToType(t *testing.T) {
	reg := blueprint.NewRegistry()
	root := blueprint.NewView("mystery", nil)
	out := Outline(root, reg)
	if !strings.Contains(out, "(mystery)") {
		t.Fatalf("unexpected outline %q", out)
	}
}

func TestSelectedNodeMarkedInEditMode(t *testing.T) {
	reg := blueprint.NewRegistry()
	root := blueprint.NewView("status", nil)
	lines := blueprint.Render(root, reg, NewTreeRenderer(), blueprint.RenderParams{
		SelectedID: root.ID,
		EditMode:   true,
	})
	if len(lines) != 1 || !strings.Contains(lines[0], "*") {
		t.Fatalf("expected selection marker, got %v", lines)
	}
}
