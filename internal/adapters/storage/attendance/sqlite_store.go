package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gymfloor/internal/adapters/storage"
	domain "gymfloor/internal/domain/attendance"
)

// ErrNotFound is returned when no event has the requested ID.
var ErrNotFound = errors.New("attendance event not found")

// ErrActiveExists is returned by InsertActive when the user already has an
// active event.
var ErrActiveExists = errors.New("user already has an active attendance event")

const eventColumns = "e.id, e.user_id, e.user_role, e.check_in_at, e.check_out_at, e.is_active, e.reason"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new attendance Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent reads one row selected with eventColumns.
func scanEvent(row rowScanner) (domain.Event, error) {
	var entity domain.Event
	var role, checkInStr string
	var checkOutStr, reason sql.NullString
	var active int
	if err := row.Scan(
		&entity.ID,
		&entity.UserID,
		&role,
		&checkInStr,
		&checkOutStr,
		&active,
		&reason,
	); err != nil {
		return domain.Event{}, err
	}
	entity.UserRole = domain.Role(role)
	entity.IsActive = active != 0
	if reason.Valid {
		entity.Reason = reason.String
	}

	var err error
	entity.CheckInAt, err = storage.ParseStoredTime(checkInStr)
	if err != nil {
		return domain.Event{}, fmt.Errorf("event %s: check_in_at: %w", entity.ID, err)
	}
	if checkOutStr.Valid && checkOutStr.String != "" {
		entity.CheckOutAt, err = storage.ParseStoredTime(checkOutStr.String)
		if err != nil {
			return domain.Event{}, fmt.Errorf("event %s: check_out_at: %w", entity.ID, err)
		}
	}
	return entity, nil
}

// queryEvents runs query and scans every row.
func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.Event{}
	for rows.Next() {
		entity, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// GetByID retrieves an event by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM attendance_event e WHERE e.id = ?", id)
	entity, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entity, err
}

// Save persists an event (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := []string{"id", "user_id", "user_role", "check_in_at", "check_out_at", "is_active", "reason"}
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}
	query := fmt.Sprintf(
		"INSERT INTO attendance_event (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	// NULL while the session is open
	var checkOutValue any
	if !entity.CheckOutAt.IsZero() {
		checkOutValue = storage.FormatTime(entity.CheckOutAt)
	}
	var reasonValue any
	if entity.Reason != "" {
		reasonValue = entity.Reason
	}
	active := 0
	if entity.IsActive {
		active = 1
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.UserID,
		string(entity.UserRole),
		storage.FormatTime(entity.CheckInAt),
		checkOutValue,
		active,
		reasonValue,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// InsertActive stores a new active event unless the user already has one.
// The check and the insert are a single statement, so concurrent callers
// cannot both succeed.
// PRE: entity is validated, IsActive and CheckOutAt unset
// POST: Entity is persisted, or ErrActiveExists and nothing is written
func (s *SQLiteStore) InsertActive(ctx context.Context, entity domain.Event) error {
	var reasonValue any
	if entity.Reason != "" {
		reasonValue = entity.Reason
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_event (id, user_id, user_role, check_in_at, check_out_at, is_active, reason)
		SELECT ?, ?, ?, ?, NULL, 1, ?
		WHERE NOT EXISTS (SELECT 1 FROM attendance_event WHERE user_id = ? AND is_active = 1)`,
		entity.ID,
		entity.UserID,
		string(entity.UserRole),
		storage.FormatTime(entity.CheckInAt),
		reasonValue,
		entity.UserID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrActiveExists, entity.UserID)
	}
	return nil
}

// Delete removes an event.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM attendance_event WHERE id = ?", id)
	return err
}

// List retrieves events ordered by check-in time ascending. A Role filter
// joins against the current identity role, so events of users without an
// identity are excluded from role-filtered lists.
// PRE: filter has valid parameters
// POST: Returns matching entities, never nil
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Event, error) {
	var (
		where []string
		args  []any
		from  = "attendance_event e"
	)
	if !filter.Since.IsZero() {
		// rows in another layout cannot be compared as strings; let them through
		where = append(where, "(e.check_in_at >= ? OR e.check_in_at NOT GLOB ?)")
		args = append(args, storage.FormatTime(filter.Since), storage.StoredTimeGlob)
	}
	if filter.Role != "" {
		from += " JOIN user_identity i ON i.id = e.user_id"
		where = append(where, "i.role = ?")
		args = append(args, filter.Role)
	}

	query := "SELECT " + eventColumns + " FROM " + from
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.check_in_at ASC, e.id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	events, err := s.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	sortByCheckIn(events, false)
	return events, nil
}

// sortByCheckIn orders events by parsed check-in time, then ID. SQL order is
// already right for canonical rows; this fixes up any legacy-layout rows.
func sortByCheckIn(events []domain.Event, newestFirst bool) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.CheckInAt.Equal(b.CheckInAt) {
			if newestFirst {
				return a.CheckInAt.After(b.CheckInAt)
			}
			return a.CheckInAt.Before(b.CheckInAt)
		}
		return a.ID < b.ID
	})
}

// ListByUserID retrieves all events for a user, newest first.
// PRE: userID is non-empty
// POST: Returns records for the given user
func (s *SQLiteStore) ListByUserID(ctx context.Context, userID string) ([]domain.Event, error) {
	events, err := s.queryEvents(ctx,
		"SELECT "+eventColumns+" FROM attendance_event e WHERE e.user_id = ? ORDER BY e.check_in_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	sortByCheckIn(events, true)
	return events, nil
}

// ListActiveByUserID retrieves the user's events still flagged active.
// PRE: userID is non-empty
// POST: Returns active records, oldest first
func (s *SQLiteStore) ListActiveByUserID(ctx context.Context, userID string) ([]domain.Event, error) {
	return s.queryEvents(ctx,
		"SELECT "+eventColumns+" FROM attendance_event e WHERE e.user_id = ? AND e.is_active = 1 ORDER BY e.check_in_at ASC",
		userID)
}
