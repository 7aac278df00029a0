package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gymfloor/internal/adapters/storage"
	"gymfloor/internal/domain/attendance"
	domain "gymfloor/internal/domain/identity"
)

// ErrNotFound is returned when no identity has the requested ID.
var ErrNotFound = errors.New("identity not found")

// maxIDsPerQuery keeps IN lists under SQLite's bound-parameter limit.
const maxIDsPerQuery = 500

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new identity Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (domain.Identity, error) {
	var entity domain.Identity
	var role string
	if err := row.Scan(&entity.ID, &entity.FullName, &entity.Username, &role); err != nil {
		return domain.Identity{}, err
	}
	entity.Role = attendance.Role(role)
	return entity, nil
}

func (s *SQLiteStore) queryIdentities(ctx context.Context, query string, args ...any) ([]domain.Identity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Identity
	for rows.Next() {
		entity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// GetByID retrieves an identity by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, full_name, username, role FROM user_identity WHERE id = ?", id)
	entity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Identity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entity, err
}

// Save persists an identity (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Identity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_identity (id, full_name, username, role) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET full_name=excluded.full_name, username=excluded.username, role=excluded.role`,
		entity.ID, entity.FullName, entity.Username, string(entity.Role))
	return err
}

// Delete removes an identity. Attendance rows referencing it are kept.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM user_identity WHERE id = ?", id)
	return err
}

// List retrieves identities ordered by ID.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Identity, error) {
	query := "SELECT id, full_name, username, role FROM user_identity"
	var args []any
	if filter.Role != "" {
		query += " WHERE role = ?"
		args = append(args, filter.Role)
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	return s.queryIdentities(ctx, query, args...)
}

// ListByIDs retrieves the identities that exist among ids. Unknown IDs are
// silently absent from the result.
// PRE: none
// POST: Returns at most len(ids) entities
func (s *SQLiteStore) ListByIDs(ctx context.Context, ids []string) ([]domain.Identity, error) {
	var results []domain.Identity
	for start := 0; start < len(ids); start += maxIDsPerQuery {
		end := start + maxIDsPerQuery
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, id := range chunk {
			placeholders[i] = "?"
			args[i] = id
		}
		query := fmt.Sprintf("SELECT id, full_name, username, role FROM user_identity WHERE id IN (%s)",
			strings.Join(placeholders, ","))
		batch, err := s.queryIdentities(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}
