// Package format renders blueprint trees as plain text for the CLI.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robodeck/robodeck/blueprint"
	"github.com/robodeck/robodeck/schema"
)

// TreeRenderer projects a blueprint tree into indented outline lines.
// It implements blueprint.Renderer over []string.
type TreeRenderer struct{}

// NewTreeRenderer returns a default plain-text tree renderer.
func NewTreeRenderer() *TreeRenderer {
	return &TreeRenderer{}
}

// Outline renders the whole tree as one string.
func Outline(root schema.Node, reg *blueprint.Registry) string {
	lines := blueprint.Render(root, reg, NewTreeRenderer(), blueprint.RenderParams{})
	return strings.Join(lines, "\n")
}

// View implements blueprint.Renderer.
func (r *TreeRenderer) View(node *schema.ViewNode, def blueprint.ViewDef, params blueprint.RenderParams) []string {
	label := def.Label
	if label == "" {
		label = string(node.View)
	}
	line := fmt.Sprintf("view %s (%s)", label, node.View)
	if node.ID == params.SelectedID && params.EditMode {
		line += " *"
	}
	if cfg := formatConfig(node.Config); cfg != "" {
		line += " " + cfg
	}
	return []string{line}
}

// Split implements blueprint.Renderer.
func (r *TreeRenderer) Split(node *schema.SplitNode, first, second []string, params blueprint.RenderParams) []string {
	head := fmt.Sprintf("split %s [%.2f %.2f]", node.Direction, node.Sizes[0], node.Sizes[1])
	if node.ID == params.SelectedID && params.EditMode {
		head += " *"
	}
	lines := []string{head}
	lines = append(lines, indent(first)...)
	lines = append(lines, indent(second)...)
	return lines
}

// Tabs implements blueprint.Renderer.
func (r *TreeRenderer) Tabs(node *schema.TabsNode, active []string, params blueprint.RenderParams) []string {
	titles := make([]string, 0, len(node.Tabs))
	for _, tab := range node.Tabs {
		title := tab.Title
		if tab.ID == node.ActiveID {
			title = "[" + title + "]"
		}
		titles = append(titles, title)
	}
	head := "tabs " + strings.Join(titles, " ")
	if node.ID == params.SelectedID && params.EditMode {
		head += " *"
	}
	lines := []string{head}
	lines = append(lines, indent(active)...)
	return lines
}

func indent(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, "  "+line)
	}
	return out
}

// formatConfig summarizes a view config as sorted key=value pairs.
func formatConfig(config map[string]any) string {
	if len(config) == 0 {
		return ""
	}
	keys := make([]string, 0, len(config))
	for key := range config {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, config[key]))
	}
	return "{" + strings.Join(pairs, " ") + "}"
}
