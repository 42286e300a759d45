package sheet

import "testing"

// =========================================================================
// DRAG GESTURE TESTS
// =========================================================================

func TestDragStart(t *testing.T) {
	m := New(DefaultDragRange)

	m.DragStart(500)

	if m.State() != Dragging {
		t.Errorf("State() = %v, want Dragging", m.State())
	}
	if m.Progress() != 0 {
		t.Errorf("Progress() = %v, want 0", m.Progress())
	}
}

func TestDragMove_ProgressFromPointerDelta(t *testing.T) {
	// Progress is recomputed from the raw delta on every move: an upward
	// drag of 150px over a 300px range lands at exactly 0.5.
	m := New(300)

	m.DragStart(500)
	m.DragMove(350)

	if got := m.Progress(); got != 0.5 {
		t.Errorf("Progress() = %v, want 0.5", got)
	}
}

func TestDragMove_ClampsToUnitRange(t *testing.T) {
	m := New(300)

	m.DragStart(500)

	// Drag far past the top of the range.
	m.DragMove(0)
	if got := m.Progress(); got != 1 {
		t.Errorf("Progress() after overshoot = %v, want 1", got)
	}

	// Drag below the start point (downward).
	m.DragMove(900)
	if got := m.Progress(); got != 0 {
		t.Errorf("Progress() after downward drag = %v, want 0", got)
	}
}

func TestDragMove_IgnoredWhenNotDragging(t *testing.T) {
	m := New(300)

	m.DragMove(100)

	if m.State() != Collapsed {
		t.Errorf("State() = %v, want Collapsed", m.State())
	}
	if m.Progress() != 0 {
		t.Errorf("Progress() = %v, want 0", m.Progress())
	}
}

// =========================================================================
// SNAP THRESHOLD TESTS
// =========================================================================

func TestDragEnd_SnapsByThreshold(t *testing.T) {
	tests := []struct {
		name         string
		releaseY     float64 // pointer position at release, start at 500
		wantState    State
		wantProgress float64
	}{
		{"well below threshold", 470, Collapsed, 0}, // progress 0.1
		{"just below threshold", 420, Collapsed, 0}, // progress ~0.267
		{"exactly at threshold", 410, Collapsed, 0}, // progress 0.3: not past it
		{"just past threshold", 405, Expanded, 1},   // progress ~0.317
		{"near full expansion", 230, Expanded, 1},   // progress 0.9
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(300)
			m.DragStart(500)
			m.DragMove(tt.releaseY)
			m.DragEnd()

			if m.State() != tt.wantState {
				t.Errorf("State() = %v, want %v", m.State(), tt.wantState)
			}
			if m.Progress() != tt.wantProgress {
				t.Errorf("Progress() = %v, want %v", m.Progress(), tt.wantProgress)
			}
		})
	}
}

func TestDragEnd_AlwaysLandsOnRestingState(t *testing.T) {
	// However a drag plays out, release must end on Collapsed/0 or
	// Expanded/1 — never a fractional resting position.
	sequences := [][]float64{
		{500, 499},
		{500, 100, 450, 300},
		{500, 500},
		{0, 0},
	}

	for _, seq := range sequences {
		m := New(300)
		m.DragStart(seq[0])
		for _, y := range seq[1:] {
			m.DragMove(y)
		}
		m.DragEnd()

		switch m.State() {
		case Collapsed:
			if m.Progress() != 0 {
				t.Errorf("Collapsed with Progress() = %v, want 0", m.Progress())
			}
		case Expanded:
			if m.Progress() != 1 {
				t.Errorf("Expanded with Progress() = %v, want 1", m.Progress())
			}
		default:
			t.Errorf("State() after DragEnd = %v, want a resting state", m.State())
		}
	}
}

func TestDragStart_ReAnchorsFromExpanded(t *testing.T) {
	m := New(300)

	// Expand fully.
	m.DragStart(500)
	m.DragMove(100)
	m.DragEnd()
	if m.State() != Expanded {
		t.Fatalf("setup: State() = %v, want Expanded", m.State())
	}

	// A new drag re-anchors: progress restarts from 0 at the new origin.
	m.DragStart(200)
	if m.State() != Dragging {
		t.Errorf("State() = %v, want Dragging", m.State())
	}
	if m.Progress() != 0 {
		t.Errorf("Progress() = %v, want 0", m.Progress())
	}
}

// =========================================================================
// TAP AND FORCED COLLAPSE TESTS
// =========================================================================

func TestTap_TogglesRestingStates(t *testing.T) {
	m := New(DefaultDragRange)

	m.Tap()
	if m.State() != Expanded || m.Progress() != 1 {
		t.Errorf("after first tap: state %v progress %v, want Expanded/1", m.State(), m.Progress())
	}

	m.Tap()
	if m.State() != Collapsed || m.Progress() != 0 {
		t.Errorf("after second tap: state %v progress %v, want Collapsed/0", m.State(), m.Progress())
	}
}

func TestTap_IgnoredMidDrag(t *testing.T) {
	m := New(300)

	m.DragStart(500)
	m.DragMove(350)
	m.Tap()

	if m.State() != Dragging {
		t.Errorf("State() = %v, want Dragging", m.State())
	}
	if m.Progress() != 0.5 {
		t.Errorf("Progress() = %v, want 0.5", m.Progress())
	}
}

func TestCollapse_ForcedFromAnyState(t *testing.T) {
	states := []func(m *Machine){
		func(m *Machine) {},         // already collapsed
		func(m *Machine) { m.Tap() }, // expanded
		func(m *Machine) { m.DragStart(500); m.DragMove(300) }, // mid-drag
	}

	for _, setup := range states {
		m := New(300)
		setup(m)
		m.Collapse()

		if m.State() != Collapsed {
			t.Errorf("State() = %v, want Collapsed", m.State())
		}
		if m.Progress() != 0 {
			t.Errorf("Progress() = %v, want 0", m.Progress())
		}
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Collapsed, "collapsed"},
		{Dragging, "dragging"},
		{Expanded, "expanded"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
