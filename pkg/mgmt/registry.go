package mgmt

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/ndnfw/ndnfw/pkg/defn"
)

// RouteRecord is one administrator-configured FIB route, persisted so it
// survives a restart without the control client having to re-push it.
// This is control-plane administrative state, not CS/PIT — spec.md's "CS
// and PIT are memory-resident and rebuilt on restart" invariant is
// unaffected by what this file persists.
type RouteRecord struct {
	Prefix string
	FaceID defn.FaceID
	Cost   uint16
}

// Registry persists RegisterPrefix/UnregisterPrefix calls to a local
// SQLite file, grounded in the corpus's std/security/pib/sqlite-pib.go
// (database/sql + mattn/go-sqlite3, one table per concern, query-on-demand
// rather than an in-memory cache of the rows).
type Registry struct {
	db *sql.DB
}

func (r *Registry) String() string { return "mgmt-registry" }

// NewRegistry opens (creating if absent) the SQLite file at path and
// ensures its schema exists.
func NewRegistry(path string) (*Registry, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS routes (
			prefix TEXT NOT NULL,
			face_id INTEGER NOT NULL,
			cost INTEGER NOT NULL,
			PRIMARY KEY (prefix, face_id)
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create routes table: %w", err)
	}
	return &Registry{db: db}, nil
}

// SaveRoute upserts a RegisterPrefix call.
func (r *Registry) SaveRoute(prefix string, faceID defn.FaceID, cost uint16) error {
	_, err := r.db.Exec(
		`INSERT INTO routes (prefix, face_id, cost) VALUES (?, ?, ?)
		 ON CONFLICT(prefix, face_id) DO UPDATE SET cost = excluded.cost`,
		prefix, uint64(faceID), cost,
	)
	return err
}

// DeleteRoute removes a persisted UnregisterPrefix call.
func (r *Registry) DeleteRoute(prefix string, faceID defn.FaceID) error {
	_, err := r.db.Exec(`DELETE FROM routes WHERE prefix = ? AND face_id = ?`, prefix, uint64(faceID))
	return err
}

// LoadRoutes returns every persisted route, for replaying into the FIB at
// startup.
func (r *Registry) LoadRoutes() ([]RouteRecord, error) {
	rows, err := r.db.Query(`SELECT prefix, face_id, cost FROM routes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RouteRecord
	for rows.Next() {
		var rec RouteRecord
		var faceID uint64
		if err := rows.Scan(&rec.Prefix, &faceID, &rec.Cost); err != nil {
			return nil, err
		}
		rec.FaceID = defn.FaceID(faceID)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}
