package blueprint

import "github.com/robodeck/robodeck/schema"

// Default constructs the opinionated starter layout for a new session
// dashboard: cameras and joint state on top, a status/controls tab
// group beside a timeline at the bottom.
func Default() schema.Node {
	cameras := NewSplit(schema.DirectionRow,
		NewView("camera", map[string]any{"label": "Front"}),
		NewView("camera", map[string]any{"label": "Wrist"}),
	)
	top := NewSplit(schema.DirectionRow,
		cameras,
		NewView("joint_state", nil),
	)
	top.Sizes = [2]float64{0.65, 0.35}
	status := NewTabs(
		NewTab("Status", NewView("status", nil)),
		NewTab("Controls", NewView("controls", nil)),
	)
	bottom := NewSplit(schema.DirectionRow, status, NewView("timeline", nil))
	bottom.Sizes = [2]float64{0.4, 0.6}
	root := NewSplit(schema.DirectionColumn, top, bottom)
	root.Sizes = [2]float64{0.7, 0.3}
	return root
}
