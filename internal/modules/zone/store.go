// README: Zone store backed by PostgreSQL (single `zones` row holding a JSONB district map).
package zone

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// FetchMapping reads the most recently updated zones row.
func (s *Store) FetchMapping(ctx context.Context) (Mapping, error) {
	row := s.db.QueryRow(ctx, `
        SELECT zones
        FROM zones
        ORDER BY updated_at DESC
        LIMIT 1`)

	var m Mapping
	err := row.Scan(&m)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoMapping
	}
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNoMapping
	}
	return m, nil
}

// SaveMapping replaces the stored mapping. The table keeps a single row;
// the first save inserts it.
func (s *Store) SaveMapping(ctx context.Context, m Mapping) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `
        UPDATE zones
        SET zones = $1, updated_at = $2
        WHERE id = (SELECT id FROM zones ORDER BY updated_at DESC LIMIT 1)`,
		m, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx, `
            INSERT INTO zones (zones, updated_at) VALUES ($1, $2)`,
			m, now,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
