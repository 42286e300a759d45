package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/sheet"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/ws"
)

// =========================================================================
// MOCK MARKER REPOSITORY
// =========================================================================

type mockMarkerRepo struct {
	markers map[string]*model.Marker
	nextID  int
}

func newMockMarkerRepo() *mockMarkerRepo {
	return &mockMarkerRepo{markers: make(map[string]*model.Marker)}
}

func (m *mockMarkerRepo) List(_ context.Context) ([]model.Marker, error) {
	result := make([]model.Marker, 0, len(m.markers))
	for _, marker := range m.markers {
		result = append(result, *marker)
	}
	return result, nil
}

func (m *mockMarkerRepo) ReplaceAll(_ context.Context, markers []model.Marker) error {
	m.markers = make(map[string]*model.Marker, len(markers))
	for i := range markers {
		stored := markers[i]
		m.markers[stored.ID] = &stored
	}
	return nil
}

func (m *mockMarkerRepo) Add(_ context.Context, marker *model.Marker) error {
	if marker.ID == "" {
		m.nextID++
		marker.ID = fmt.Sprintf("marker-%d", m.nextID)
	}
	stored := *marker
	m.markers[marker.ID] = &stored
	return nil
}

func (m *mockMarkerRepo) Remove(_ context.Context, id string) error {
	if _, ok := m.markers[id]; !ok {
		return apperror.NotFound("marker", id)
	}
	delete(m.markers, id)
	return nil
}

func (m *mockMarkerRepo) Get(_ context.Context, id string) (*model.Marker, error) {
	marker, ok := m.markers[id]
	if !ok {
		return nil, apperror.NotFound("marker", id)
	}
	result := *marker
	return &result, nil
}

func (m *mockMarkerRepo) UpdateLocation(_ context.Context, id string, loc model.Location) error {
	marker, ok := m.markers[id]
	if !ok {
		return apperror.NotFound("marker", id)
	}
	marker.Location = loc
	return nil
}

func newTestMapService(t *testing.T) (*MapService, *mockMarkerRepo) {
	t.Helper()
	repo := newMockMarkerRepo()
	// A hub with no connected clients: pushes become no-ops, which is all
	// the service-level tests need.
	svc := NewMapService(repo, ws.NewHub(testLogger()), testLogger())
	return svc, repo
}

// =========================================================================
// MARKER TESTS
// =========================================================================

func TestSeedMarkers_OnlyWhenEmpty(t *testing.T) {
	svc, repo := newTestMapService(t)

	if err := svc.SeedMarkers(context.Background()); err != nil {
		t.Fatalf("SeedMarkers() error = %v", err)
	}
	if len(repo.markers) != 4 {
		t.Fatalf("len(markers) = %d, want the 4 demo points", len(repo.markers))
	}

	// A populated store is left alone.
	if err := svc.RemoveMarker(context.Background(), "donation_1"); err != nil {
		t.Fatalf("RemoveMarker() error = %v", err)
	}
	if err := svc.SeedMarkers(context.Background()); err != nil {
		t.Fatalf("second SeedMarkers() error = %v", err)
	}
	if len(repo.markers) != 3 {
		t.Errorf("len(markers) = %d, want 3 — reseeding must not restore removed markers", len(repo.markers))
	}
}

func TestAddMarker(t *testing.T) {
	svc, _ := newTestMapService(t)

	marker, err := svc.AddMarker(context.Background(), &model.Marker{
		Title:    "Profi Titan",
		Location: model.Location{Latitude: 44.42, Longitude: 26.16},
		Type:     model.MarkerRetailer,
	})
	if err != nil {
		t.Fatalf("AddMarker() error = %v", err)
	}
	if marker.ID == "" {
		t.Error("AddMarker() should assign an ID")
	}
}

func TestAddMarker_Validation(t *testing.T) {
	svc, _ := newTestMapService(t)

	_, err := svc.AddMarker(context.Background(), &model.Marker{Type: model.MarkerRetailer})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("missing title: error = %v, want ErrValidation", err)
	}

	_, err = svc.AddMarker(context.Background(), &model.Marker{Title: "X", Type: "volcano"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unknown type: error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// SELECTION TESTS
// =========================================================================

func TestSelectMarker_CollapsesSheet(t *testing.T) {
	svc, _ := newTestMapService(t)
	if err := svc.SeedMarkers(context.Background()); err != nil {
		t.Fatalf("SeedMarkers() error = %v", err)
	}

	// Expand the sheet first.
	svc.SheetTap("sess-1")
	if got := svc.View("sess-1").Sheet; got != "expanded" {
		t.Fatalf("setup: sheet = %q, want expanded", got)
	}

	marker, err := svc.SelectMarker(context.Background(), "sess-1", "retailer_1")
	if err != nil {
		t.Fatalf("SelectMarker() error = %v", err)
	}
	if marker.Title != "Mega Image Unirii" {
		t.Errorf("Title = %q", marker.Title)
	}

	view := svc.View("sess-1")
	if view.SelectedMarkerID != "retailer_1" {
		t.Errorf("SelectedMarkerID = %q, want retailer_1", view.SelectedMarkerID)
	}
	// A new selection always starts from the closed position.
	if view.Sheet != "collapsed" || view.SheetProgress != 0 {
		t.Errorf("sheet = %q/%v, want collapsed/0", view.Sheet, view.SheetProgress)
	}
}

func TestSelectMarker_Unknown(t *testing.T) {
	svc, _ := newTestMapService(t)

	if _, err := svc.SelectMarker(context.Background(), "sess-1", "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRemoveMarker_ClearsSelections(t *testing.T) {
	svc, _ := newTestMapService(t)
	if err := svc.SeedMarkers(context.Background()); err != nil {
		t.Fatalf("SeedMarkers() error = %v", err)
	}

	if _, err := svc.SelectMarker(context.Background(), "sess-1", "recycling_1"); err != nil {
		t.Fatalf("SelectMarker() error = %v", err)
	}
	svc.SheetTap("sess-1")

	if err := svc.RemoveMarker(context.Background(), "recycling_1"); err != nil {
		t.Fatalf("RemoveMarker() error = %v", err)
	}

	view := svc.View("sess-1")
	if view.SelectedMarkerID != "" {
		t.Errorf("SelectedMarkerID = %q, want cleared", view.SelectedMarkerID)
	}
	if view.Sheet != "collapsed" {
		t.Errorf("sheet = %q, want collapsed after its marker vanished", view.Sheet)
	}
}

// =========================================================================
// SHEET GESTURE TESTS (through the service)
// =========================================================================

func TestSheetGestures_PerSessionIsolation(t *testing.T) {
	svc, _ := newTestMapService(t)

	svc.SheetDragStart("sess-1", 500)
	svc.SheetDragMove("sess-1", 500-sheet.DefaultDragRange) // full sweep
	svc.SheetDragEnd("sess-1")

	if got := svc.View("sess-1").Sheet; got != "expanded" {
		t.Errorf("sess-1 sheet = %q, want expanded", got)
	}
	// Another session's sheet is untouched.
	if got := svc.View("sess-2").Sheet; got != "collapsed" {
		t.Errorf("sess-2 sheet = %q, want collapsed", got)
	}
}

func TestSheetDragEnd_BelowThresholdFallsBack(t *testing.T) {
	svc, _ := newTestMapService(t)

	svc.SheetDragStart("sess-1", 500)
	svc.SheetDragMove("sess-1", 500-0.2*sheet.DefaultDragRange)
	svc.SheetDragEnd("sess-1")

	view := svc.View("sess-1")
	if view.Sheet != "collapsed" || view.SheetProgress != 0 {
		t.Errorf("sheet = %q/%v, want collapsed/0", view.Sheet, view.SheetProgress)
	}
}

func TestEndSession_DropsState(t *testing.T) {
	svc, _ := newTestMapService(t)

	svc.SheetTap("sess-1")
	svc.EndSession("sess-1")

	// A fresh session starts from the defaults.
	view := svc.View("sess-1")
	if view.Sheet != "collapsed" {
		t.Errorf("sheet = %q, want collapsed for a fresh session", view.Sheet)
	}
	if view.Center.Latitude != DefaultLatitude || view.Center.Longitude != DefaultLongitude {
		t.Errorf("Center = %+v, want the Bucharest default", view.Center)
	}
	if view.Zoom != DefaultZoom {
		t.Errorf("Zoom = %d, want %d", view.Zoom, DefaultZoom)
	}
}

// =========================================================================
// GEOLOCATION TESTS
// =========================================================================

func TestReportLocation_CreatesThenMovesUserMarker(t *testing.T) {
	svc, repo := newTestMapService(t)

	first := model.Location{Latitude: 44.43, Longitude: 26.10, Accuracy: 10}
	if err := svc.ReportLocation(context.Background(), "sess-1", first); err != nil {
		t.Fatalf("ReportLocation() error = %v", err)
	}

	marker, ok := repo.markers[UserMarkerID]
	if !ok {
		t.Fatal("user marker should exist after the first fix")
	}
	if marker.Location.Latitude != 44.43 {
		t.Errorf("Latitude = %v, want 44.43", marker.Location.Latitude)
	}

	// The second fix moves the same marker — identity is stable.
	second := model.Location{Latitude: 44.45, Longitude: 26.08, Accuracy: 5}
	if err := svc.ReportLocation(context.Background(), "sess-1", second); err != nil {
		t.Fatalf("second ReportLocation() error = %v", err)
	}
	if len(repo.markers) != 1 {
		t.Errorf("len(markers) = %d, want 1 — fixes must not spawn new markers", len(repo.markers))
	}
	if repo.markers[UserMarkerID].Location.Latitude != 44.45 {
		t.Errorf("Latitude = %v, want the new fix", repo.markers[UserMarkerID].Location.Latitude)
	}

	// The session camera follows the fix.
	view := svc.View("sess-1")
	if view.Center.Latitude != 44.45 {
		t.Errorf("Center.Latitude = %v, want 44.45", view.Center.Latitude)
	}
	if view.CurrentLocation == nil || view.CurrentLocation.Latitude != 44.45 {
		t.Errorf("CurrentLocation = %+v, want the new fix", view.CurrentLocation)
	}
}

func TestReportLocation_RejectsOutOfRangeCoordinates(t *testing.T) {
	svc, _ := newTestMapService(t)

	err := svc.ReportLocation(context.Background(), "sess-1", model.Location{Latitude: 91})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestLocationFailure_MapsPlatformCodes(t *testing.T) {
	svc, _ := newTestMapService(t)

	tests := []struct {
		code string
		want error
	}{
		{"permission_denied", apperror.ErrPermissionDenied},
		{"position_unavailable", apperror.ErrPositionUnavailable},
		{"timeout", apperror.ErrLocationTimeout},
		{"something_else", apperror.ErrPositionUnavailable},
	}

	for _, tt := range tests {
		err := svc.LocationFailure("sess-1", tt.code)
		if !errors.Is(err, tt.want) {
			t.Errorf("LocationFailure(%q) = %v, want %v", tt.code, err, tt.want)
		}
	}
}
