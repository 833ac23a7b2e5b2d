package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/boringdede/Snr-Attendance/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Profiles ---

func (r *SQLiteRepo) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	var (
		p         domain.Profile
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, phone, created_at
		FROM profiles
		WHERE user_id = ?`,
		userID,
	).Scan(&p.UserID, &p.Name, &p.Phone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// SaveProfile inserts or updates a profile; created_at is kept on update.
func (r *SQLiteRepo) SaveProfile(ctx context.Context, p *domain.Profile) error {
	if p == nil {
		return errors.New("nil profile")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, phone, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name  = excluded.name,
			phone = excluded.phone`,
		p.UserID, p.Name, p.Phone, unixOrNow(p.CreatedAt),
	)
	return err
}

func (r *SQLiteRepo) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, name, phone, created_at
		FROM profiles
		ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Profile
	for rows.Next() {
		var (
			p         domain.Profile
			createdAt int64
		)
		if err := rows.Scan(&p.UserID, &p.Name, &p.Phone, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		res = append(res, p)
	}
	return res, rows.Err()
}

// --- Places ---

const placeCols = `key, name, lat, lon, radius_m, always_available`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(s rowScanner) (domain.Place, error) {
	var (
		p      domain.Place
		lat    sql.NullFloat64
		lon    sql.NullFloat64
		always int
	)
	if err := s.Scan(&p.Key, &p.Name, &lat, &lon, &p.RadiusM, &always); err != nil {
		return p, err
	}
	p.Lat, p.Lon = fromNullFloat(lat), fromNullFloat(lon)
	p.AlwaysAvailable = always != 0
	return p, nil
}

// ListPlaces returns places ordered by key, case-insensitively.
func (r *SQLiteRepo) ListPlaces(ctx context.Context) ([]domain.Place, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+placeCols+` FROM places ORDER BY key COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) GetPlace(ctx context.Context, key string) (*domain.Place, error) {
	p, err := scanPlace(r.db.QueryRowContext(ctx, `SELECT `+placeCols+` FROM places WHERE key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPlace inserts or updates a place without touching its slots.
func (r *SQLiteRepo) UpsertPlace(ctx context.Context, p domain.Place) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO places (`+placeCols+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name             = excluded.name,
			lat              = excluded.lat,
			lon              = excluded.lon,
			radius_m         = excluded.radius_m,
			always_available = excluded.always_available`,
		p.Key, p.Name, toNullFloat(p.Lat), toNullFloat(p.Lon), p.RadiusM, boolToInt(p.AlwaysAvailable),
	)
	return err
}

// DeletePlace removes the place and its slots in one transaction.
func (r *SQLiteRepo) DeletePlace(ctx context.Context, key string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE place_key = ?`, key); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM places WHERE key = ?`, key)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Slots ---

func (r *SQLiteRepo) ListSlots(ctx context.Context, wd domain.Weekday) ([]domain.Slot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, weekday, start_m, end_m, place_key
		FROM slots
		WHERE weekday = ?
		ORDER BY id`,
		int(wd),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Slot
	for rows.Next() {
		var (
			s   domain.Slot
			day int
		)
		if err := rows.Scan(&s.ID, &day, &s.StartM, &s.EndM, &s.PlaceKey); err != nil {
			return nil, err
		}
		s.Weekday = domain.Weekday(day)
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) AddSlot(ctx context.Context, s domain.Slot) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO slots (weekday, start_m, end_m, place_key)
		VALUES (?, ?, ?, ?)`,
		int(s.Weekday), s.StartM, s.EndM, s.PlaceKey,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) DeleteSlot(ctx context.Context, wd domain.Weekday, placeKey string, startM int) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM slots
		WHERE weekday = ? AND place_key = ? AND start_m = ?`,
		int(wd), placeKey, startM,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceSchedule drops all places and slots and inserts the given set.
// Slots are inserted in slice order so insertion order survives a restore.
func (r *SQLiteRepo) ReplaceSchedule(ctx context.Context, places []domain.Place, slots []domain.Slot) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM slots`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM places`); err != nil {
			return err
		}
		for _, p := range places {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO places (`+placeCols+`) VALUES (?, ?, ?, ?, ?, ?)`,
				p.Key, p.Name, toNullFloat(p.Lat), toNullFloat(p.Lon), p.RadiusM, boolToInt(p.AlwaysAvailable),
			); err != nil {
				return fmt.Errorf("place %q: %w", p.Key, err)
			}
		}
		for _, s := range slots {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO slots (weekday, start_m, end_m, place_key) VALUES (?, ?, ?, ?)`,
				int(s.Weekday), s.StartM, s.EndM, s.PlaceKey,
			); err != nil {
				return fmt.Errorf("slot %s %s %s: %w", s.Weekday.Short(), s.PlaceKey, s.Start(), err)
			}
		}
		return nil
	})
}

// --- Records ---

func (r *SQLiteRepo) AppendRecord(ctx context.Context, rec *domain.Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (
			id, user_id, name, phone, action, place_key, place_name,
			date, time, weekday, slot_start, slot_end, slot_free,
			lat, lon, distance_m, in_radius, on_time, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Name, rec.Phone, string(rec.Action), rec.PlaceKey, rec.PlaceName,
		rec.Date, rec.Time, rec.Weekday, rec.SlotStart, rec.SlotEnd, boolToInt(rec.SlotFree),
		rec.Lat, rec.Lon, toNullFloat(rec.DistanceM), toNullBool(rec.InRadius), toNullBool(rec.OnTime),
		rec.Notes, unixOrNow(rec.CreatedAt),
	)
	return err
}

// QueryRecords returns matching records in creation order.
func (r *SQLiteRepo) QueryRecords(ctx context.Context, q RecordQuery) ([]domain.Record, error) {
	var (
		where []string
		args  []any
	)
	if q.Date != "" {
		where = append(where, "date = ?")
		args = append(args, q.Date)
	}
	if q.PlaceKey != "" {
		where = append(where, "place_key = ?")
		args = append(args, q.PlaceKey)
	}
	if q.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(q.Action))
	}
	query := `
		SELECT id, user_id, name, phone, action, place_key, place_name,
		       date, time, weekday, slot_start, slot_end, slot_free,
		       lat, lon, distance_m, in_radius, on_time, notes, created_at
		FROM records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, rowid"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Record
	for rows.Next() {
		var (
			rec       domain.Record
			action    string
			slotFree  int
			dist      sql.NullFloat64
			inRadius  sql.NullInt64
			onTime    sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Name, &rec.Phone, &action, &rec.PlaceKey, &rec.PlaceName,
			&rec.Date, &rec.Time, &rec.Weekday, &rec.SlotStart, &rec.SlotEnd, &slotFree,
			&rec.Lat, &rec.Lon, &dist, &inRadius, &onTime, &rec.Notes, &createdAt,
		); err != nil {
			return nil, err
		}
		rec.Action = domain.Action(action)
		rec.SlotFree = slotFree != 0
		rec.DistanceM = fromNullFloat(dist)
		rec.InRadius = fromNullBool(inRadius)
		rec.OnTime = fromNullBool(onTime)
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		res = append(res, rec)
	}
	return res, rows.Err()
}

// --- Suppression ---

func (r *SQLiteRepo) IsSuppressed(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM suppressed WHERE user_id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *SQLiteRepo) SetSuppressed(ctx context.Context, userID int64, suppressed bool) error {
	var err error
	if suppressed {
		_, err = r.db.ExecContext(ctx, `INSERT OR IGNORE INTO suppressed (user_id) VALUES (?)`, userID)
	} else {
		_, err = r.db.ExecContext(ctx, `DELETE FROM suppressed WHERE user_id = ?`, userID)
	}
	return err
}

func (r *SQLiteRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
