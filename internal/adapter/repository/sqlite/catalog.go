package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// CatalogStore implements ports.CatalogStore.
type CatalogStore struct {
	db *sql.DB
}

// NewCatalogStore creates a new CatalogStore with the given database connection.
func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// ListTracks returns the catalog in insertion order.
func (s *CatalogStore) ListTracks(ctx context.Context) ([]domain.Track, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM tracks ORDER BY position`)
	if err != nil {
		return nil, domain.NewRepositoryError("list", "catalog", "failed to query tracks", err)
	}
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, domain.NewRepositoryError("list", "catalog", "failed to scan track", err)
		}
		var t domain.Track
		if err := json.Unmarshal([]byte(doc), &t); err != nil {
			return nil, domain.NewRepositoryError("list", "catalog", "corrupt track document", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRepositoryError("list", "catalog", "failed to iterate tracks", err)
	}
	return tracks, nil
}

// PutTracks inserts new tracks at the end and replaces known ones in place.
func (s *CatalogStore) PutTracks(ctx context.Context, tracks []domain.Track) error {
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewRepositoryError("put", "catalog", "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) FROM tracks`).Scan(&next); err != nil {
		return domain.NewRepositoryError("put", "catalog", "failed to read positions", err)
	}

	for _, t := range tracks {
		doc, err := json.Marshal(t)
		if err != nil {
			return domain.NewRepositoryError("put", "catalog", "failed to marshal track", err)
		}
		next++
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tracks (id, position, doc) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET doc = excluded.doc
		`, t.ID, next, string(doc))
		if err != nil {
			return domain.NewRepositoryError("put", "catalog", "failed to store track", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewRepositoryError("put", "catalog", "failed to commit", err)
	}
	return nil
}

// Seed stores tracks when the catalog is empty.
func (s *CatalogStore) Seed(ctx context.Context, tracks []domain.Track) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&count); err != nil {
		return false, domain.NewRepositoryError("seed", "catalog", "failed to count tracks", err)
	}
	if count > 0 {
		return false, nil
	}
	if err := s.PutTracks(ctx, tracks); err != nil {
		return false, err
	}
	return true, nil
}

var _ ports.CatalogStore = (*CatalogStore)(nil)
