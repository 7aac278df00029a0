package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrMalformedTimestamp is returned when a stored timestamp cannot be parsed
// in any supported layout.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// migration is one forward-only schema step.
type migration struct {
	version     int
	description string
	stmts       []string
	apply       func(tx *sql.Tx) error // runs after stmts, for data rewrites
}

// migrations is the ordered chain applied by MigrateDB. Never edit an entry
// once released; append a new one instead.
var migrations = []migration{
	{
		version:     1,
		description: "baseline identity and attendance tables",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS user_identity (
				id TEXT PRIMARY KEY,
				full_name TEXT NOT NULL DEFAULT '',
				username TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS attendance_event (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				user_role TEXT NOT NULL,
				check_in_at TEXT NOT NULL,
				check_out_at TEXT,
				is_active INTEGER NOT NULL DEFAULT 0,
				reason TEXT
			)`,
		},
	},
	{
		version:     2,
		description: "indexes for window and per-user queries",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_attendance_event_check_in ON attendance_event(check_in_at)`,
			`CREATE INDEX IF NOT EXISTS idx_attendance_event_user ON attendance_event(user_id, is_active)`,
		},
	},
	{
		version:     3,
		description: "rewrite legacy attendance timestamps to the stored layout",
		apply:       normalizeLegacyTimes,
	},
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the version recorded in the database, 0 when unset.
// PRE: db is a valid database connection
// POST: Returns the highest applied migration version
func SchemaVersion(db *sql.DB) (int, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var v sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

// MigrateDB applies every pending migration, each in its own transaction.
// PRE: db is a valid database connection
// POST: Schema is at LatestSchemaVersion, foreign keys enforced
func MigrateDB(db *sql.DB, dbPath string) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
			}
		}
		if m.apply != nil {
			if err := m.apply(tx); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
			}
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			m.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: record version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		slog.Info("schema_migrated", "db", dbPath, "version", m.version, "description", m.description)
	}
	return nil
}

// storedTimeLayout is fixed-width UTC so stored values sort and compare as
// strings in SQL.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

// StoredTimeGlob matches values written by FormatTime. Range predicates on
// stored times are only sound for matching values; anything else must be
// let through and compared after parsing.
const StoredTimeGlob = "????-??-??T??:??:??.?????????Z"

// FormatTime renders a timestamp the way every store writes it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// ParseStoredTime parses a timestamp written by FormatTime or by older
// clients that stored Go's default time.String output.
func ParseStoredTime(value string) (time.Time, error) {
	if idx := strings.Index(value, " m="); idx != -1 {
		value = value[:idx]
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.9999999-07:00",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
}

// normalizeLegacyTimes rewrites attendance timestamps written in any layout
// ParseStoredTime accepts into the stored layout, so string comparison in
// SQL orders them correctly. Unparseable values are left for the read path
// to report as ErrMalformedTimestamp.
func normalizeLegacyTimes(tx *sql.Tx) error {
	type legacyRow struct {
		id       string
		checkIn  string
		checkOut sql.NullString
	}
	rows, err := tx.Query(`SELECT id, check_in_at, check_out_at FROM attendance_event
		WHERE check_in_at NOT GLOB ? OR (check_out_at IS NOT NULL AND check_out_at NOT GLOB ?)`,
		StoredTimeGlob, StoredTimeGlob)
	if err != nil {
		return err
	}
	var pending []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.id, &r.checkIn, &r.checkOut); err != nil {
			rows.Close()
			return err
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rewritten := 0
	for _, r := range pending {
		checkIn, err := ParseStoredTime(r.checkIn)
		if err != nil {
			slog.Warn("legacy_time_skipped", "event_id", r.id, "column", "check_in_at", "error", err.Error())
			continue
		}
		var checkOut any
		if r.checkOut.Valid && r.checkOut.String != "" {
			t, err := ParseStoredTime(r.checkOut.String)
			if err != nil {
				slog.Warn("legacy_time_skipped", "event_id", r.id, "column", "check_out_at", "error", err.Error())
				continue
			}
			checkOut = FormatTime(t)
		}
		if _, err := tx.Exec("UPDATE attendance_event SET check_in_at = ?, check_out_at = ? WHERE id = ?",
			FormatTime(checkIn), checkOut, r.id); err != nil {
			return err
		}
		rewritten++
	}
	if rewritten > 0 {
		slog.Info("legacy_times_rewritten", "rows", rewritten)
	}
	return nil
}
