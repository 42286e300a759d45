package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/repository"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/sheet"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/ws"
)

// Map defaults. The map opens centred on Bucharest until a live fix arrives.
const (
	DefaultLatitude  = 44.4268
	DefaultLongitude = 26.1025
	DefaultZoom      = 12
)

// UserMarkerID is the fixed ID of the marker tracking the user's own
// position. Location fixes move this marker in place — it is never removed
// and re-added, so the map's geolocation binding follows one stable
// identity instead of flickering through replacements.
const UserMarkerID = "user_current"

// MapView is the per-session camera and overlay state mirrored to the
// client over the live feed.
type MapView struct {
	Center           model.Location  `json:"center"`
	Zoom             int             `json:"zoom"`
	Style            string          `json:"style"`
	ShowUserLocation bool            `json:"showUserLocation"`
	CurrentLocation  *model.Location `json:"currentLocation,omitempty"`
	SelectedMarkerID string          `json:"selectedMarkerId,omitempty"`
	Sheet            string          `json:"sheet"`
	SheetProgress    float64         `json:"sheetProgress"`
}

// mapSession is the transient per-connection state: which marker the detail
// sheet shows and where the sheet gesture currently stands. It lives for
// the duration of one live-feed connection.
type mapSession struct {
	sheet    *sheet.Machine
	selected *model.Marker
	view     MapView
}

// MapService drives the map screen: the shared marker set (persisted),
// plus per-session camera, selection, and bottom-sheet gesture state
// (transient, pushed to the client over the live feed).
type MapService struct {
	markers repository.MarkerRepository
	hub     *ws.Hub
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*mapSession
}

// NewMapService creates a MapService.
func NewMapService(markers repository.MarkerRepository, hub *ws.Hub, logger *slog.Logger) *MapService {
	return &MapService{
		markers:  markers,
		hub:      hub,
		logger:   logger,
		sessions: make(map[string]*mapSession),
	}
}

// session returns the state for a live-feed connection, creating it on
// first use with the default view: Bucharest center, sheet collapsed.
func (s *MapService) session(sessionID string) *mapSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &mapSession{
			sheet: sheet.New(sheet.DefaultDragRange),
			view: MapView{
				Center:           model.Location{Latitude: DefaultLatitude, Longitude: DefaultLongitude},
				Zoom:             DefaultZoom,
				Style:            "standard",
				ShowUserLocation: true,
				Sheet:            sheet.Collapsed.String(),
			},
		}
		s.sessions[sessionID] = sess
	}
	return sess
}

// EndSession drops a connection's transient state. Called when the live
// feed disconnects.
func (s *MapService) EndSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// View returns the current per-session map state.
func (s *MapService) View(sessionID string) MapView {
	sess := s.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	v := sess.view
	v.Sheet = sess.sheet.State().String()
	v.SheetProgress = sess.sheet.Progress()
	return v
}

// Markers returns the shared marker set.
func (s *MapService) Markers(ctx context.Context) ([]model.Marker, error) {
	markers, err := s.markers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/maps: listing markers: %w", err)
	}
	return markers, nil
}

// SeedMarkers loads the demo points of interest when the marker store is
// empty. Idempotent across restarts.
func (s *MapService) SeedMarkers(ctx context.Context) error {
	existing, err := s.markers.List(ctx)
	if err != nil {
		return fmt.Errorf("service/maps: checking marker store: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	if err := s.markers.ReplaceAll(ctx, seedMarkers()); err != nil {
		return fmt.Errorf("service/maps: seeding markers: %w", err)
	}

	s.logger.Info("markers seeded", slog.Int("count", len(seedMarkers())))
	return nil
}

// AddMarker persists a new point of interest and announces it on the live
// feed. The ID is generated here; callers never supply one.
func (s *MapService) AddMarker(ctx context.Context, marker *model.Marker) (*model.Marker, error) {
	if strings.TrimSpace(marker.Title) == "" {
		return nil, apperror.ValidationFailed("title", "marker title is required")
	}
	switch marker.Type {
	case model.MarkerRetailer, model.MarkerRecycling, model.MarkerUser, model.MarkerDonation:
	default:
		return nil, apperror.ValidationFailed("type", fmt.Sprintf("unknown marker type %q", marker.Type))
	}

	marker.ID = xid.New().String()
	if err := s.markers.Add(ctx, marker); err != nil {
		return nil, fmt.Errorf("service/maps: adding marker: %w", err)
	}

	s.hub.Broadcast(ws.Message{
		Type:      "marker_added",
		Timestamp: time.Now().UnixMilli(),
		MarkerID:  marker.ID,
		Marker:    marker,
	})

	s.logger.Info("marker added",
		slog.String("markerID", marker.ID),
		slog.String("type", string(marker.Type)),
	)

	return marker, nil
}

// RemoveMarker deletes a point of interest. Any session whose detail sheet
// was showing it loses the selection, and the sheet snaps shut there.
func (s *MapService) RemoveMarker(ctx context.Context, markerID string) error {
	if err := s.markers.Remove(ctx, markerID); err != nil {
		return err
	}

	s.mu.Lock()
	for _, sess := range s.sessions {
		if sess.selected != nil && sess.selected.ID == markerID {
			sess.selected = nil
			sess.view.SelectedMarkerID = ""
			sess.sheet.Collapse()
		}
	}
	s.mu.Unlock()

	s.hub.Broadcast(ws.Message{
		Type:      "marker_removed",
		Timestamp: time.Now().UnixMilli(),
		MarkerID:  markerID,
	})

	s.logger.Info("marker removed", slog.String("markerID", markerID))
	return nil
}

// SelectMarker points a session's detail sheet at a marker. Selecting
// while the sheet is expanded collapses it first — the new selection
// always starts from the closed position.
func (s *MapService) SelectMarker(ctx context.Context, sessionID, markerID string) (*model.Marker, error) {
	marker, err := s.markers.Get(ctx, markerID)
	if err != nil {
		return nil, err
	}

	sess := s.session(sessionID)
	s.mu.Lock()
	sess.selected = marker
	sess.view.SelectedMarkerID = marker.ID
	sess.sheet.Collapse()
	s.mu.Unlock()

	s.pushSheet(sessionID, sess, "marker_selected", marker)
	return marker, nil
}

// ClearSelection drops a session's selected marker and collapses the sheet.
func (s *MapService) ClearSelection(sessionID string) {
	sess := s.session(sessionID)
	s.mu.Lock()
	sess.selected = nil
	sess.view.SelectedMarkerID = ""
	sess.sheet.Collapse()
	s.mu.Unlock()

	s.pushSheet(sessionID, sess, "selection_cleared", nil)
}

// SheetDragStart anchors a drag gesture on a session's bottom sheet.
func (s *MapService) SheetDragStart(sessionID string, y float64) {
	sess := s.session(sessionID)
	s.mu.Lock()
	sess.sheet.DragStart(y)
	s.mu.Unlock()

	s.pushSheet(sessionID, sess, "sheet_update", nil)
}

// SheetDragMove advances an in-flight drag.
func (s *MapService) SheetDragMove(sessionID string, y float64) {
	sess := s.session(sessionID)
	s.mu.Lock()
	sess.sheet.DragMove(y)
	s.mu.Unlock()

	s.pushSheet(sessionID, sess, "sheet_update", nil)
}

// SheetDragEnd releases a drag; the sheet snaps to whichever endpoint the
// release point is past the threshold toward.
func (s *MapService) SheetDragEnd(sessionID string) {
	sess := s.session(sessionID)
	s.mu.Lock()
	sess.sheet.DragEnd()
	s.mu.Unlock()

	s.pushSheet(sessionID, sess, "sheet_update", nil)
}

// SheetTap toggles the sheet between its endpoints. Ignored mid-drag.
func (s *MapService) SheetTap(sessionID string) {
	sess := s.session(sessionID)
	s.mu.Lock()
	sess.sheet.Tap()
	s.mu.Unlock()

	s.pushSheet(sessionID, sess, "sheet_update", nil)
}

// ReportLocation records a live geolocation fix: the session's camera
// recentres on it and the shared user marker moves in place.
func (s *MapService) ReportLocation(ctx context.Context, sessionID string, loc model.Location) error {
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return apperror.ValidationFailed("location", "coordinates out of range")
	}
	if loc.Timestamp == 0 {
		loc.Timestamp = time.Now().UnixMilli()
	}

	sess := s.session(sessionID)
	s.mu.Lock()
	sess.view.CurrentLocation = &loc
	sess.view.Center = loc
	s.mu.Unlock()

	if err := s.markers.UpdateLocation(ctx, UserMarkerID, loc); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return fmt.Errorf("service/maps: moving user marker: %w", err)
		}
		userMarker := &model.Marker{
			ID:       UserMarkerID,
			Title:    "Poziția ta",
			Location: loc,
			Type:     model.MarkerUser,
		}
		if err := s.markers.Add(ctx, userMarker); err != nil {
			return fmt.Errorf("service/maps: creating user marker: %w", err)
		}
	}

	s.hub.Broadcast(ws.Message{
		Type:      "location_updated",
		Timestamp: time.Now().UnixMilli(),
		MarkerID:  UserMarkerID,
		Location:  &loc,
	})

	return nil
}

// LocationFailure maps a platform geolocation error code to its sentinel.
// The map keeps rendering on its default center; only the error surfaces.
func (s *MapService) LocationFailure(sessionID, code string) error {
	var appErr *apperror.AppError
	switch code {
	case "permission_denied":
		appErr = apperror.Location(apperror.ErrPermissionDenied, "Location access denied")
	case "position_unavailable":
		appErr = apperror.Location(apperror.ErrPositionUnavailable, "Location unavailable")
	case "timeout":
		appErr = apperror.Location(apperror.ErrLocationTimeout, "Location request timeout")
	default:
		appErr = apperror.Location(apperror.ErrPositionUnavailable, "Location error")
	}

	s.logger.Warn("geolocation failed",
		slog.String("sessionID", sessionID),
		slog.String("code", code),
	)

	s.hub.SendTo(sessionID, ws.Message{
		Type:      "location_error",
		Timestamp: time.Now().UnixMilli(),
		Message:   appErr.Message,
	})

	return appErr
}

// pushSheet sends a session its current sheet position, and the selected
// marker when one is part of the event.
func (s *MapService) pushSheet(sessionID string, sess *mapSession, msgType string, marker *model.Marker) {
	s.mu.Lock()
	msg := ws.Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Sheet:     sess.sheet.State().String(),
		Progress:  sess.sheet.Progress(),
		Marker:    marker,
	}
	if marker != nil {
		msg.MarkerID = marker.ID
	}
	s.mu.Unlock()

	s.hub.SendTo(sessionID, msg)
}

// seedMarkers are the demo points of interest around Bucharest.
func seedMarkers() []model.Marker {
	return []model.Marker{
		{
			ID:          "retailer_1",
			Title:       "Mega Image Unirii",
			Description: "Supermarket cu program de reciclare",
			Location:    model.Location{Latitude: 44.4280, Longitude: 26.1030},
			Type:        model.MarkerRetailer,
			Icon:        "/icons/retailer_location_icon.png",
			Metadata:    map[string]string{"address": "Piața Unirii nr. 1, București"},
		},
		{
			ID:          "retailer_2",
			Title:       "Kaufland Berceni",
			Description: "Hipermarket cu colectare PET",
			Location:    model.Location{Latitude: 44.4100, Longitude: 26.1200},
			Type:        model.MarkerRetailer,
			Icon:        "/icons/retailer_location_icon.png",
			Metadata:    map[string]string{"address": "Șoseaua Berceni nr. 45, București"},
		},
		{
			ID:          "recycling_1",
			Title:       "Centru Reciclare Eco",
			Description: "Centru de colectare selectivă",
			Location:    model.Location{Latitude: 44.4350, Longitude: 26.1100},
			Type:        model.MarkerRecycling,
			Icon:        "/icons/map_location_icon.png",
			Metadata:    map[string]string{"address": "Strada Ecologiei nr. 12, București"},
		},
		{
			ID:          "donation_1",
			Title:       "Daruiește Aripi",
			Description: "Punct de donație",
			Location:    model.Location{Latitude: 44.4200, Longitude: 26.0950},
			Type:        model.MarkerDonation,
			Icon:        "/icons/donate_icon.png",
			Metadata:    map[string]string{"address": "Calea Victoriei nr. 120, București"},
		},
	}
}
