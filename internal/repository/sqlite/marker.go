package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/repository"
)

// Markers returns the marker repository view of this DB.
func (db *DB) Markers() *MarkerDB {
	return &MarkerDB{conn: db.conn}
}

// MarkerDB implements repository.MarkerRepository.
type MarkerDB struct {
	conn *sql.DB
}

var _ repository.MarkerRepository = (*MarkerDB)(nil)

// List returns all markers.
func (m *MarkerDB) List(ctx context.Context) ([]model.Marker, error) {
	rows, err := m.conn.QueryContext(ctx,
		`SELECT id, title, description, latitude, longitude, accuracy, loc_timestamp, type, icon, metadata
		 FROM markers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing markers: %w", err)
	}
	defer rows.Close()

	markers := []model.Marker{}
	for rows.Next() {
		marker, err := scanMarker(rows)
		if err != nil {
			return nil, err
		}
		markers = append(markers, *marker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating markers: %w", err)
	}
	return markers, nil
}

// ReplaceAll swaps the marker set wholesale inside one transaction, the way
// a bulk load replaces whatever was on the map before.
func (m *MarkerDB) ReplaceAll(ctx context.Context, markers []model.Marker) error {
	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning marker replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM markers`); err != nil {
		return fmt.Errorf("sqlite: clearing markers: %w", err)
	}
	for i := range markers {
		if markers[i].ID == "" {
			markers[i].ID = xid.New().String()
		}
		if err := insertMarker(ctx, tx, &markers[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing marker replace: %w", err)
	}
	return nil
}

// Add inserts a single marker, generating an ID when the caller left it
// empty. The live user marker arrives with its fixed ID and keeps it.
func (m *MarkerDB) Add(ctx context.Context, marker *model.Marker) error {
	if marker.ID == "" {
		marker.ID = xid.New().String()
	}
	return insertMarker(ctx, m.conn, marker)
}

// Remove deletes a marker by ID.
func (m *MarkerDB) Remove(ctx context.Context, id string) error {
	res, err := m.conn.ExecContext(ctx, `DELETE FROM markers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: removing marker %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking marker removal %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("marker", id)
	}
	return nil
}

// Get returns one marker by ID.
func (m *MarkerDB) Get(ctx context.Context, id string) (*model.Marker, error) {
	row := m.conn.QueryRowContext(ctx,
		`SELECT id, title, description, latitude, longitude, accuracy, loc_timestamp, type, icon, metadata
		 FROM markers WHERE id = ?`, id)
	marker, err := scanMarker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("marker", id)
	}
	return marker, err
}

// UpdateLocation moves an existing marker in place. The row (and so the
// marker identity) is preserved — only the coordinates change. This is what
// keeps the live user marker from churning on every geolocation fix.
func (m *MarkerDB) UpdateLocation(ctx context.Context, id string, loc model.Location) error {
	res, err := m.conn.ExecContext(ctx,
		`UPDATE markers SET latitude = ?, longitude = ?, accuracy = ?, loc_timestamp = ?
		 WHERE id = ?`,
		loc.Latitude, loc.Longitude, loc.Accuracy, loc.Timestamp, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating marker location %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking marker location update %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("marker", id)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarker(row rowScanner) (*model.Marker, error) {
	var marker model.Marker
	var metadata string
	err := row.Scan(
		&marker.ID, &marker.Title, &marker.Description,
		&marker.Location.Latitude, &marker.Location.Longitude,
		&marker.Location.Accuracy, &marker.Location.Timestamp,
		&marker.Type, &marker.Icon, &metadata,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scanning marker: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &marker.Metadata); err != nil {
		return nil, fmt.Errorf("sqlite: decoding marker metadata %s: %w", marker.ID, err)
	}
	return &marker, nil
}

func insertMarker(ctx context.Context, e execer, marker *model.Marker) error {
	metadata, err := json.Marshal(marker.Metadata)
	if err != nil {
		return fmt.Errorf("sqlite: encoding marker metadata: %w", err)
	}
	_, err = e.ExecContext(ctx,
		`INSERT INTO markers (id, title, description, latitude, longitude, accuracy, loc_timestamp, type, icon, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		marker.ID, marker.Title, marker.Description,
		marker.Location.Latitude, marker.Location.Longitude,
		marker.Location.Accuracy, marker.Location.Timestamp,
		marker.Type, marker.Icon, string(metadata),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting marker %s: %w", marker.ID, err)
	}
	return nil
}
