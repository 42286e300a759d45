// Package sheet models the map screen's bottom panel as a small finite
// state machine: collapsed, dragging, expanded.
//
// The panel is driven by a drag gesture on its handle. While the pointer is
// down, expansion progress is recomputed from the raw pointer delta on
// every move event; on release the panel snaps to fully expanded or fully
// collapsed depending on a threshold. A plain tap on the handle toggles the
// two resting states directly, bypassing the threshold.
//
// The machine is deliberately pure: it knows nothing about pointer events,
// rendering, or timing. The caller (the map screen's input plumbing) feeds
// it DragStart/DragMove/DragEnd/Tap and reads back State and Progress. That
// makes the threshold and toggle rules unit-testable without simulating a
// single real pointer event.
package sheet

// State is the discrete position of the bottom sheet.
type State int

const (
	// Collapsed is the resting state with progress 0.
	Collapsed State = iota
	// Dragging tracks the pointer; progress moves continuously in (0,1).
	Dragging
	// Expanded is the resting state with progress 1.
	Expanded
)

func (s State) String() string {
	switch s {
	case Collapsed:
		return "collapsed"
	case Dragging:
		return "dragging"
	case Expanded:
		return "expanded"
	default:
		return "unknown"
	}
}

const (
	// DefaultDragRange is the vertical pointer travel, in pixels, that maps
	// to the full collapsed→expanded sweep.
	DefaultDragRange = 300.0

	// SnapThreshold decides where a released drag lands: above it the sheet
	// snaps expanded, at or below it the sheet falls back collapsed.
	SnapThreshold = 0.3
)

// Machine holds the sheet's gesture state. It is owned by a single map
// session's input handlers and is not safe for concurrent use — the gesture
// stream is inherently sequential.
type Machine struct {
	state     State
	progress  float64
	startY    float64
	dragRange float64
}

// New returns a Machine in the Collapsed state. dragRange <= 0 selects
// DefaultDragRange.
func New(dragRange float64) *Machine {
	if dragRange <= 0 {
		dragRange = DefaultDragRange
	}
	return &Machine{state: Collapsed, dragRange: dragRange}
}

// State returns the current discrete state.
func (m *Machine) State() State { return m.state }

// Progress returns the expansion progress in [0,1]. It is 0 in Collapsed,
// 1 in Expanded, and continuous in between while Dragging.
func (m *Machine) Progress() float64 { return m.progress }

// DragStart begins a gesture at pointer position y (screen coordinates,
// increasing downward). Starting a drag mid-drag just re-anchors it.
func (m *Machine) DragStart(y float64) {
	m.state = Dragging
	m.startY = y
	// Progress is recomputed from the delta, so a drag that begins on an
	// expanded sheet starts from 0 and any meaningful downward pull will
	// release below the threshold and collapse it.
	m.progress = 0
}

// DragMove updates progress from the current pointer position. Upward
// movement (y decreasing) raises progress. Ignored unless a drag is active.
func (m *Machine) DragMove(y float64) {
	if m.state != Dragging {
		return
	}
	m.progress = clamp((m.startY-y)/m.dragRange, 0, 1)
}

// DragEnd releases the gesture and snaps to a resting state: Expanded when
// progress exceeds SnapThreshold, Collapsed otherwise.
func (m *Machine) DragEnd() {
	if m.state != Dragging {
		return
	}
	if m.progress > SnapThreshold {
		m.state = Expanded
		m.progress = 1
	} else {
		m.state = Collapsed
		m.progress = 0
	}
}

// Tap toggles directly between the two resting states, bypassing the
// threshold rule. A tap during an active drag is ignored — the release will
// be reported as DragEnd.
func (m *Machine) Tap() {
	switch m.state {
	case Collapsed:
		m.state = Expanded
		m.progress = 1
	case Expanded:
		m.state = Collapsed
		m.progress = 0
	}
}

// Collapse forces the sheet shut from any state. Selecting a marker and
// clearing a selection both land here: the detail card replaces the list,
// so the sheet must be out of the way regardless of what the gesture was
// doing.
func (m *Machine) Collapse() {
	m.state = Collapsed
	m.progress = 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
