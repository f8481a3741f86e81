package calibration

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// Snapshot is the persisted form of the calibration state.
type Snapshot struct {
	Session string
	SavedAt time.Time
	Points  []DataPoint
	Zones   map[ZoneKey]Factor
	Buckets map[int]Factor
}

// Store persists calibration snapshots to a versioned SQLite database. Every
// Save replaces the previous snapshot wholesale; the write volume is tiny and
// a single consistent snapshot is all the system ever wants back.
type Store struct {
	db   *sql.DB
	log  *zap.Logger
	path string
}

// OpenStore opens or creates the calibration database at path and ensures the
// schema matches the version this build writes.
func OpenStore(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("calibration: opening store %q: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version        INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key            TEXT PRIMARY KEY,
			value          TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS points (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			session        TEXT,
			intended_x     DOUBLE,
			intended_y     DOUBLE,
			actual_x       DOUBLE,
			actual_y       DOUBLE,
			device_dx      BIGINT,
			device_dy      BIGINT,
			error_px       DOUBLE,
			confidence     DOUBLE,
			zone_x         BIGINT,
			zone_y         BIGINT,
			bucket         BIGINT,
			class          TEXT,
			recorded_ns    BIGINT
		);
		CREATE TABLE IF NOT EXISTS zone_factors (
			zone_x         BIGINT,
			zone_y         BIGINT,
			fx             DOUBLE,
			fy             DOUBLE,
			confidence     DOUBLE,
			samples        BIGINT,
			updated_ns     BIGINT,
			PRIMARY KEY(zone_x, zone_y)
		);
		CREATE TABLE IF NOT EXISTS distance_factors (
			bucket         BIGINT PRIMARY KEY,
			fx             DOUBLE,
			fy             DOUBLE,
			confidence     DOUBLE,
			samples        BIGINT,
			updated_ns     BIGINT
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("calibration: initializing schema: %w", err)
	}

	var version int
	err = db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("calibration: stamping schema version: %w", err)
		}
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("calibration: reading schema version: %w", err)
	case version != schemaVersion:
		db.Close()
		return nil, fmt.Errorf("calibration: store %q has schema version %d, want %d", path, version, schemaVersion)
	}

	return &Store{db: db, log: logger.Named("calstore"), path: path}, nil
}

// Save replaces the stored snapshot inside one transaction.
func (st *Store) Save(snap Snapshot) error {
	tx, err := st.db.Begin()
	if err != nil {
		return fmt.Errorf("calibration: beginning save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"points", "zone_factors", "distance_factors", "meta"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("calibration: clearing %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('session', ?), ('saved_at_ns', ?)`,
		snap.Session, fmt.Sprintf("%d", snap.SavedAt.UnixNano())); err != nil {
		return fmt.Errorf("calibration: writing meta: %w", err)
	}

	insPoint, err := tx.Prepare(`INSERT INTO points
		(session, intended_x, intended_y, actual_x, actual_y, device_dx, device_dy,
		 error_px, confidence, zone_x, zone_y, bucket, class, recorded_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("calibration: preparing point insert: %w", err)
	}
	defer insPoint.Close()
	for _, p := range snap.Points {
		if _, err := insPoint.Exec(p.Session, p.Intended.X, p.Intended.Y, p.Actual.X, p.Actual.Y,
			p.Delta.DX, p.Delta.DY, p.ErrorPx, p.Confidence,
			p.Zone.X, p.Zone.Y, p.Bucket, p.Class, p.Recorded.UnixNano()); err != nil {
			return fmt.Errorf("calibration: writing point: %w", err)
		}
	}

	insZone, err := tx.Prepare(`INSERT INTO zone_factors
		(zone_x, zone_y, fx, fy, confidence, samples, updated_ns) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("calibration: preparing zone insert: %w", err)
	}
	defer insZone.Close()
	for k, f := range snap.Zones {
		if _, err := insZone.Exec(k.X, k.Y, f.FX, f.FY, f.Confidence, f.Samples, f.Updated.UnixNano()); err != nil {
			return fmt.Errorf("calibration: writing zone factor: %w", err)
		}
	}

	insBucket, err := tx.Prepare(`INSERT INTO distance_factors
		(bucket, fx, fy, confidence, samples, updated_ns) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("calibration: preparing bucket insert: %w", err)
	}
	defer insBucket.Close()
	for b, f := range snap.Buckets {
		if _, err := insBucket.Exec(b, f.FX, f.FY, f.Confidence, f.Samples, f.Updated.UnixNano()); err != nil {
			return fmt.Errorf("calibration: writing distance factor: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("calibration: committing save: %w", err)
	}
	st.log.Debug("calibration snapshot saved",
		zap.Int("points", len(snap.Points)),
		zap.Int("zones", len(snap.Zones)),
		zap.Int("buckets", len(snap.Buckets)))
	return nil
}

// Load reads the stored snapshot. An empty database yields an empty snapshot.
func (st *Store) Load() (Snapshot, error) {
	snap := Snapshot{
		Zones:   make(map[ZoneKey]Factor),
		Buckets: make(map[int]Factor),
	}

	rows, err := st.db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return snap, fmt.Errorf("calibration: reading meta: %w", err)
	}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			rows.Close()
			return snap, fmt.Errorf("calibration: scanning meta: %w", err)
		}
		switch key {
		case "session":
			snap.Session = value
		case "saved_at_ns":
			var ns int64
			if _, err := fmt.Sscanf(value, "%d", &ns); err == nil {
				snap.SavedAt = time.Unix(0, ns)
			}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("calibration: iterating meta: %w", err)
	}

	rows, err = st.db.Query(`SELECT session, intended_x, intended_y, actual_x, actual_y,
		device_dx, device_dy, error_px, confidence, zone_x, zone_y, bucket, class, recorded_ns
		FROM points ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("calibration: reading points: %w", err)
	}
	for rows.Next() {
		var p DataPoint
		var recNs int64
		if err := rows.Scan(&p.Session, &p.Intended.X, &p.Intended.Y, &p.Actual.X, &p.Actual.Y,
			&p.Delta.DX, &p.Delta.DY, &p.ErrorPx, &p.Confidence,
			&p.Zone.X, &p.Zone.Y, &p.Bucket, &p.Class, &recNs); err != nil {
			rows.Close()
			return snap, fmt.Errorf("calibration: scanning point: %w", err)
		}
		p.Recorded = time.Unix(0, recNs)
		snap.Points = append(snap.Points, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("calibration: iterating points: %w", err)
	}

	rows, err = st.db.Query(`SELECT zone_x, zone_y, fx, fy, confidence, samples, updated_ns FROM zone_factors`)
	if err != nil {
		return snap, fmt.Errorf("calibration: reading zone factors: %w", err)
	}
	for rows.Next() {
		var k ZoneKey
		var f Factor
		var updNs int64
		if err := rows.Scan(&k.X, &k.Y, &f.FX, &f.FY, &f.Confidence, &f.Samples, &updNs); err != nil {
			rows.Close()
			return snap, fmt.Errorf("calibration: scanning zone factor: %w", err)
		}
		f.Updated = time.Unix(0, updNs)
		snap.Zones[k] = f
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("calibration: iterating zone factors: %w", err)
	}

	rows, err = st.db.Query(`SELECT bucket, fx, fy, confidence, samples, updated_ns FROM distance_factors`)
	if err != nil {
		return snap, fmt.Errorf("calibration: reading distance factors: %w", err)
	}
	for rows.Next() {
		var b int
		var f Factor
		var updNs int64
		if err := rows.Scan(&b, &f.FX, &f.FY, &f.Confidence, &f.Samples, &updNs); err != nil {
			rows.Close()
			return snap, fmt.Errorf("calibration: scanning distance factor: %w", err)
		}
		f.Updated = time.Unix(0, updNs)
		snap.Buckets[b] = f
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("calibration: iterating distance factors: %w", err)
	}

	return snap, nil
}

// Close releases the underlying database handle.
func (st *Store) Close() error {
	return st.db.Close()
}
