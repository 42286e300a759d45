package model

// Location is a geographic point. Accuracy (metres) and Timestamp (Unix
// milliseconds) are only present on live geolocation fixes, not on the
// static coordinates of points of interest.
type Location struct {
	Latitude  float64 `json:"latitude"  db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"  db:"accuracy"`
	Timestamp int64   `json:"timestamp,omitempty" db:"loc_timestamp"`
}

// MarkerType classifies a point of interest on the map.
type MarkerType string

const (
	MarkerRetailer  MarkerType = "retailer"
	MarkerRecycling MarkerType = "recycling"
	MarkerUser      MarkerType = "user"
	MarkerDonation  MarkerType = "donation"
)

// Marker is a point of interest rendered on the map: a retailer with a
// deposit-return machine, a recycling centre, a donation point, or the
// user's own live position.
//
// The user marker is special: its location is updated in place rather than
// by replacing the marker, so the map library's geolocation-watch binding
// keeps following one stable marker identity.
type Marker struct {
	ID          string            `json:"id"          db:"id"`
	Title       string            `json:"title"       db:"title"`
	Description string            `json:"description,omitempty" db:"description"`
	Location    Location          `json:"location"`
	Type        MarkerType        `json:"type"        db:"type"`
	Icon        string            `json:"icon,omitempty" db:"icon"`
	Metadata    map[string]string `json:"metadata,omitempty" db:"metadata"`
}
