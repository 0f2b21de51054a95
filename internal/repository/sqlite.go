package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	_ "modernc.org/sqlite"

	"github.com/hazardwatch/go-hazard-zones/internal/geo"
	"github.com/hazardwatch/go-hazard-zones/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// modernc sqlite serializes writes; a single connection also keeps
	// :memory: databases on one handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS devices (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			is_alert INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS user_positions (
			user_id TEXT PRIMARY KEY,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS entered_areas (
			device_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			error INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			UNIQUE (user_id, device_id)
		);

		CREATE TABLE IF NOT EXISTS push_tokens (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_devices_is_alert ON devices(is_alert);
		CREATE INDEX IF NOT EXISTS idx_push_tokens_user_id ON push_tokens(user_id);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// --- DeviceStore ---

func (s *SQLiteDB) UpsertDevice(ctx context.Context, d *models.HazardDevice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (id, type, latitude, longitude, is_alert, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			type = excluded.type,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			is_alert = excluded.is_alert`,
		d.ID, string(d.Type), d.Location.Lat, d.Location.Lon, boolToInt(d.IsAlert), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("error upserting device %d: %w", d.ID, err)
	}
	return nil
}

func (s *SQLiteDB) GetDevice(ctx context.Context, id int64) (*models.HazardDevice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, latitude, longitude, is_alert FROM devices WHERE id = ?`, id)

	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting device %d: %w", id, err)
	}
	return d, nil
}

func (s *SQLiteDB) ListActiveDevices(ctx context.Context) ([]models.HazardDevice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, latitude, longitude, is_alert FROM devices WHERE is_alert = 1`)
	if err != nil {
		return nil, fmt.Errorf("error listing active devices: %w", err)
	}
	defer rows.Close()

	var devices []models.HazardDevice
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func (s *SQLiteDB) SearchDevices(ctx context.Context, center geo.Coordinate, radiusMeters float64) ([]models.HazardDevice, error) {
	bound := searchBound(center, radiusMeters)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, latitude, longitude, is_alert FROM devices
		WHERE is_alert = 1
		  AND latitude BETWEEN ? AND ?
		  AND longitude BETWEEN ? AND ?`,
		bound.Min.Lat(), bound.Max.Lat(), bound.Min.Lon(), bound.Max.Lon(),
	)
	if err != nil {
		return nil, fmt.Errorf("error searching devices: %w", err)
	}
	defer rows.Close()

	type hit struct {
		device   models.HazardDevice
		distance float64
	}
	var hits []hit
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning device: %w", err)
		}
		dist := geo.Distance(center, d.Location.Coordinate())
		if dist > radiusMeters {
			continue
		}
		hits = append(hits, hit{device: *d, distance: dist})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	devices := make([]models.HazardDevice, 0, len(hits))
	for _, h := range hits {
		devices = append(devices, h.device)
	}
	return devices, nil
}

// --- UserPositionStore ---

func (s *SQLiteDB) UpsertPosition(ctx context.Context, userID string, c geo.Coordinate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_positions (user_id, latitude, longitude, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			updated_at = excluded.updated_at`,
		userID, c.Latitude, c.Longitude, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("error upserting position for %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteDB) UsersWithin(ctx context.Context, center geo.Coordinate, radiusMeters float64) ([]NearbyUser, error) {
	bound := searchBound(center, radiusMeters)
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, latitude, longitude FROM user_positions
		WHERE latitude BETWEEN ? AND ?
		  AND longitude BETWEEN ? AND ?`,
		bound.Min.Lat(), bound.Max.Lat(), bound.Min.Lon(), bound.Max.Lon(),
	)
	if err != nil {
		return nil, fmt.Errorf("error querying user positions: %w", err)
	}
	defer rows.Close()

	var users []NearbyUser
	for rows.Next() {
		var (
			userID   string
			lat, lon float64
		)
		if err := rows.Scan(&userID, &lat, &lon); err != nil {
			return nil, fmt.Errorf("error scanning user position: %w", err)
		}
		dist := geo.Distance(center, geo.Coordinate{Latitude: lat, Longitude: lon})
		if dist > radiusMeters {
			continue
		}
		users = append(users, NearbyUser{UserID: userID, Distance: dist})
	}
	return users, rows.Err()
}

// --- EnteredAreaLedger ---

func (s *SQLiteDB) IsEntered(ctx context.Context, deviceID int64, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM entered_areas WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking entered area: %w", err)
	}
	return true, nil
}

// MarkEntered relies on the (user_id, device_id) unique constraint as the
// serialization point: of two concurrent calls for the same pair, exactly
// one observes created=true.
func (s *SQLiteDB) MarkEntered(ctx context.Context, deviceID int64, userID string, errorFlag bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entered_areas (device_id, user_id, error, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, device_id) DO NOTHING`,
		deviceID, userID, boolToInt(errorFlag), time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("error marking entered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	// Existing record: the error flag only escalates, never resets.
	if errorFlag {
		_, err = s.db.ExecContext(ctx, `
			UPDATE entered_areas SET error = 1
			WHERE user_id = ? AND device_id = ? AND error = 0`,
			userID, deviceID,
		)
		if err != nil {
			return false, fmt.Errorf("error escalating entered record: %w", err)
		}
	}
	return false, nil
}

func (s *SQLiteDB) MarkExited(ctx context.Context, deviceID int64, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM entered_areas WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("error marking exited: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListEntered(ctx context.Context) ([]models.EnteredAreaRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, user_id, error, created_at FROM entered_areas`)
	if err != nil {
		return nil, fmt.Errorf("error listing entered areas: %w", err)
	}
	defer rows.Close()

	var records []models.EnteredAreaRecord
	for rows.Next() {
		var (
			r       models.EnteredAreaRecord
			errFlag int
		)
		if err := rows.Scan(&r.DeviceID, &r.UserID, &errFlag, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning entered area: %w", err)
		}
		r.Error = errFlag != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// --- TokenStore ---

func (s *SQLiteDB) RegisterToken(ctx context.Context, userID, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_tokens (token, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (token) DO UPDATE SET user_id = excluded.user_id`,
		token, userID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("error registering token: %w", err)
	}
	return nil
}

// searchBound cuts the candidate set down with a box around the center
// before the exact haversine filter runs in Go.
func searchBound(center geo.Coordinate, radiusMeters float64) orb.Bound {
	return orbgeo.NewBoundAroundPoint(orb.Point{center.Longitude, center.Latitude}, radiusMeters)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.HazardDevice, error) {
	var (
		d       models.HazardDevice
		devType string
		isAlert int
	)
	if err := row.Scan(&d.ID, &devType, &d.Location.Lat, &d.Location.Lon, &isAlert); err != nil {
		return nil, err
	}
	d.Type = models.HazardType(devType)
	d.IsAlert = isAlert != 0
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
