package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/domain/repository"
	"github.com/bnema/waypoint/internal/infrastructure/persistence/sqlite/sqlc"
	"github.com/bnema/waypoint/internal/logging"
)

type kvRepo struct {
	db      *sql.DB
	queries *sqlc.Queries
}

// NewKeyValueRepository creates a new SQLite-backed key/value repository.
func NewKeyValueRepository(db *sql.DB) repository.KeyValueRepository {
	return &kvRepo{db: db, queries: sqlc.New(db)}
}

func (r *kvRepo) Get(ctx context.Context, key entity.StoreKey) (string, bool, error) {
	row, err := r.queries.GetValue(ctx, key.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return row.Value, true, nil
}

func (r *kvRepo) Set(ctx context.Context, key entity.StoreKey, value string) error {
	logging.FromContext(ctx).Trace().Str("key", key.String()).Msg("setting store value")

	return r.queries.SetValue(ctx, sqlc.SetValueParams{
		Key:   key.String(),
		Value: value,
	})
}

func (r *kvRepo) Delete(ctx context.Context, key entity.StoreKey) error {
	return r.queries.DeleteValue(ctx, key.String())
}

func (r *kvRepo) Take(ctx context.Context, key entity.StoreKey) (value string, ok bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := r.queries.WithTx(tx)
	row, err := q.GetValue(ctx, key.String())
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.Commit()
		return "", false, err
	}
	if err != nil {
		return "", false, err
	}
	if err = q.DeleteValue(ctx, key.String()); err != nil {
		return "", false, err
	}
	if err = tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit: %w", err)
	}
	return row.Value, true, nil
}

// Entry is a raw stored value, used by inspection commands.
type Entry struct {
	Key   string
	Value string
}

// ListEntries returns every stored key/value pair ordered by key.
func ListEntries(ctx context.Context, db *sql.DB) ([]Entry, error) {
	rows, err := sqlc.New(db).ListValues(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = Entry{Key: row.Key, Value: row.Value}
	}
	return entries, nil
}
