package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/auth"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/service"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/ws"
)

// MapHandler exposes the map endpoints: the shared marker set over REST,
// and the per-session live feed (gesture stream in, state pushes out) over
// a websocket.
type MapHandler struct {
	maps     *service.MapService
	hub      *ws.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewMapHandler creates a MapHandler.
func NewMapHandler(maps *service.MapService, hub *ws.Hub, logger *slog.Logger) *MapHandler {
	return &MapHandler{
		maps:   maps,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The mobile webview sets no Origin header the way browsers do;
			// auth happens via the Bearer token, not the origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// gestureMessage is what the client sends on the live feed: pointer events
// for the bottom sheet, marker selection, and geolocation results.
type gestureMessage struct {
	Type     string          `json:"type"`
	Y        float64         `json:"y,omitempty"`
	MarkerID string          `json:"markerId,omitempty"`
	Code     string          `json:"code,omitempty"`
	Location *model.Location `json:"location,omitempty"`
}

// HandleListMarkers returns all points of interest.
//
// HTTP: GET /api/map/markers
func (h *MapHandler) HandleListMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := h.maps.Markers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markers)
}

// HandleAddMarker persists a new point of interest.
//
// HTTP: POST /api/map/markers
func (h *MapHandler) HandleAddMarker(w http.ResponseWriter, r *http.Request) {
	var marker model.Marker
	if err := json.NewDecoder(r.Body).Decode(&marker); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	created, err := h.maps.AddMarker(r.Context(), &marker)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleRemoveMarker deletes a point of interest.
//
// HTTP: DELETE /api/map/markers/{id}
func (h *MapHandler) HandleRemoveMarker(w http.ResponseWriter, r *http.Request) {
	if err := h.maps.RemoveMarker(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSelectMarker points the caller's detail sheet at a marker and
// returns it.
//
// HTTP: POST /api/map/markers/{id}/select
func (h *MapHandler) HandleSelectMarker(w http.ResponseWriter, r *http.Request) {
	marker, err := h.maps.SelectMarker(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marker)
}

// HandleClearSelection drops the caller's selected marker.
//
// HTTP: DELETE /api/map/selection
func (h *MapHandler) HandleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.maps.ClearSelection(auth.UserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// HandleView returns the caller's current map view (camera, selection,
// sheet position). Useful for reconnect.
//
// HTTP: GET /api/map/view
func (h *MapHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.maps.View(auth.UserID(r.Context())))
}

// HandleReportLocation records a geolocation fix over REST, for clients
// not holding a live feed open.
//
// HTTP: POST /api/map/location
func (h *MapHandler) HandleReportLocation(w http.ResponseWriter, r *http.Request) {
	var loc model.Location
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.maps.ReportLocation(r.Context(), auth.UserID(r.Context()), loc); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFeed upgrades to a websocket and runs the live feed: the client
// streams gesture and geolocation events, the server pushes sheet and
// marker state back. One feed per user — a new connection replaces the
// previous one.
//
// HTTP: GET /api/map/ws
func (h *MapHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.UserID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.hub.Register(sessionID, conn)
	defer func() {
		h.hub.Unregister(sessionID)
		h.maps.EndSession(sessionID)
	}()

	// Push the initial view so a reconnecting client resyncs immediately.
	view := h.maps.View(sessionID)
	h.hub.SendTo(sessionID, ws.Message{
		Type:     "view",
		Sheet:    view.Sheet,
		Progress: view.SheetProgress,
	})

	for {
		var msg gestureMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed",
					slog.String("sessionID", sessionID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		h.dispatch(r, sessionID, msg)
	}
}

// dispatch routes one gesture message. Unknown types are logged and
// dropped — a client version skew must not kill the feed.
func (h *MapHandler) dispatch(r *http.Request, sessionID string, msg gestureMessage) {
	switch msg.Type {
	case "drag_start":
		h.maps.SheetDragStart(sessionID, msg.Y)
	case "drag_move":
		h.maps.SheetDragMove(sessionID, msg.Y)
	case "drag_end":
		h.maps.SheetDragEnd(sessionID)
	case "tap":
		h.maps.SheetTap(sessionID)
	case "select":
		if _, err := h.maps.SelectMarker(r.Context(), sessionID, msg.MarkerID); err != nil {
			h.hub.SendTo(sessionID, ws.Message{Type: "error", Message: err.Error()})
		}
	case "clear_selection":
		h.maps.ClearSelection(sessionID)
	case "location":
		if msg.Location == nil {
			h.hub.SendTo(sessionID, ws.Message{Type: "error", Message: "location payload required"})
			return
		}
		if err := h.maps.ReportLocation(r.Context(), sessionID, *msg.Location); err != nil {
			h.hub.SendTo(sessionID, ws.Message{Type: "error", Message: err.Error()})
		}
	case "location_error":
		h.maps.LocationFailure(sessionID, msg.Code)
	default:
		h.logger.Warn("unknown feed message",
			slog.String("sessionID", sessionID),
			slog.String("type", msg.Type),
		)
	}
}
