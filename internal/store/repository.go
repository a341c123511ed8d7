package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scanner is the subset of sql.Row and sql.Rows used for scanning.
type Scanner interface {
	Scan(dest ...any) error
}

// Fields is a set of column values for a create or update operation.
type Fields map[string]any

// Mapper describes how an entity type maps onto its table.
type Mapper[T any] struct {
	// Table is the table name.
	Table string

	// Columns lists all column names. The first column must be "id".
	Columns []string

	// Scan reads one row, in Columns order, into an entity value.
	Scan func(Scanner) (T, error)
}

// Repository is a typed wrapper over the record store for one entity type.
//
// All operations run as single implicit transactions; there is no
// cross-call transaction support.
type Repository[T any] struct {
	db      *sql.DB
	mapper  Mapper[T]
	columns map[string]struct{}
	selects string
}

// NewRepository creates a repository for the given entity mapping.
func NewRepository[T any](db *sql.DB, mapper Mapper[T]) *Repository[T] {
	columns := make(map[string]struct{}, len(mapper.Columns))
	for _, c := range mapper.Columns {
		columns[c] = struct{}{}
	}
	return &Repository[T]{
		db:      db,
		mapper:  mapper,
		columns: columns,
		selects: "SELECT " + strings.Join(mapper.Columns, ", ") + " FROM " + mapper.Table,
	}
}

// DB exposes the underlying connection for queries the generic surface
// cannot express (membership joins, aggregate lookups).
func (r *Repository[T]) DB() *sql.DB {
	return r.db
}

// Table returns the mapped table name.
func (r *Repository[T]) Table() string {
	return r.mapper.Table
}

// Create inserts a new record and returns the stored entity.
// An "id" field is generated if the caller does not supply one.
// Unique violations are reported as ErrConflict.
func (r *Repository[T]) Create(ctx context.Context, fields Fields) (T, error) {
	var zero T

	for name := range fields {
		if _, ok := r.columns[name]; !ok {
			return zero, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
	}

	id, _ := fields["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}

	// Stamp the creation time when the table tracks it and the caller
	// did not supply one.
	if _, mapped := r.columns["created_at"]; mapped {
		if _, ok := fields["created_at"]; !ok {
			fields = cloneFields(fields)
			fields["created_at"] = time.Now().UTC()
		}
	}

	cols := []string{"id"}
	args := []any{id}
	for _, c := range r.mapper.Columns {
		if c == "id" {
			continue
		}
		v, ok := fields[c]
		if !ok {
			continue
		}
		cols = append(cols, c)
		args = append(args, bindValue(v))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.mapper.Table,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return zero, fmt.Errorf("%w: %s", ErrConflict, r.mapper.Table)
		}
		return zero, fmt.Errorf("creating %s: %w", r.mapper.Table, err)
	}

	return r.Get(ctx, id)
}

// cloneFields copies a field set so defaulting never mutates the
// caller's map.
func cloneFields(fields Fields) Fields {
	out := make(Fields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Get retrieves a record by its unique ID.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	return r.First(ctx, Eq("id", id))
}

// First returns the first record matching all predicates. The match order
// is unspecified, so callers must use selective predicates (typically a
// unique-field equality).
func (r *Repository[T]) First(ctx context.Context, preds ...Predicate) (T, error) {
	var zero T

	where, args, err := whereClause(r.columns, preds)
	if err != nil {
		return zero, err
	}

	row := r.db.QueryRowContext(ctx, r.selects+where+" LIMIT 1", args...)
	entity, err := r.mapper.Scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("scanning %s: %w", r.mapper.Table, err)
	}
	return entity, nil
}

// List returns records with skip/limit pagination, ordered by id for a
// stable page sequence.
func (r *Repository[T]) List(ctx context.Context, skip, limit int) ([]T, error) {
	rows, err := r.db.QueryContext(ctx,
		r.selects+" ORDER BY id LIMIT ? OFFSET ?", limit, skip)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.mapper.Table, err)
	}
	defer rows.Close()

	entities := []T{}
	for rows.Next() {
		entity, err := r.mapper.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", r.mapper.Table, err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", r.mapper.Table, err)
	}
	return entities, nil
}

// Update applies the given fields to an existing record and returns the
// stored entity. An empty field set is a no-op read. Unique violations are
// reported as ErrConflict, a missing record as ErrNotFound.
func (r *Repository[T]) Update(ctx context.Context, id string, fields Fields) (T, error) {
	var zero T

	if len(fields) == 0 {
		return r.Get(ctx, id)
	}

	for name := range fields {
		if _, ok := r.columns[name]; !ok {
			return zero, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
	}

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, c := range r.mapper.Columns {
		v, ok := fields[c]
		if !ok || c == "id" {
			continue
		}
		sets = append(sets, c+" = ?")
		args = append(args, bindValue(v))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		r.mapper.Table, strings.Join(sets, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return zero, fmt.Errorf("%w: %s", ErrConflict, r.mapper.Table)
		}
		return zero, fmt.Errorf("updating %s: %w", r.mapper.Table, err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return zero, ErrNotFound
	}

	return r.Get(ctx, id)
}

// Delete removes a record by ID. A missing record is ErrNotFound.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.mapper.Table), id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", r.mapper.Table, err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWhere removes all records matching the predicates. Deleting
// nothing is not an error.
func (r *Repository[T]) DeleteWhere(ctx context.Context, preds ...Predicate) error {
	where, args, err := whereClause(r.columns, preds)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM "+r.mapper.Table+where, args...); err != nil {
		return fmt.Errorf("deleting from %s: %w", r.mapper.Table, err)
	}
	return nil
}

// Exists reports whether any record matches all predicates.
func (r *Repository[T]) Exists(ctx context.Context, preds ...Predicate) (bool, error) {
	where, args, err := whereClause(r.columns, preds)
	if err != nil {
		return false, err
	}

	var one int
	err = r.db.QueryRowContext(ctx,
		"SELECT 1 FROM "+r.mapper.Table+where+" LIMIT 1", args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking existence in %s: %w", r.mapper.Table, err)
	}
	return true, nil
}

// Count returns the total number of records.
func (r *Repository[T]) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+r.mapper.Table).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting %s: %w", r.mapper.Table, err)
	}
	return count, nil
}
