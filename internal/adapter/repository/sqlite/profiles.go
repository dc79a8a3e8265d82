package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// ProfileStore implements ports.ProfileStore for profile documents.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a new ProfileStore with the given database connection.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// ListProfiles returns the profiles of a user in creation order, or every
// profile when userID is empty.
func (s *ProfileStore) ListProfiles(ctx context.Context, userID string) ([]domain.Profile, error) {
	query := `SELECT doc FROM profiles ORDER BY rowid`
	args := []any{}
	if userID != "" {
		query = `SELECT doc FROM profiles WHERE user_id = ? ORDER BY rowid`
		args = append(args, userID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewRepositoryError("list", "profile", "failed to query profiles", err)
	}
	defer rows.Close()

	profiles := []domain.Profile{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, domain.NewRepositoryError("list", "profile", "failed to scan profile", err)
		}
		var p domain.Profile
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, domain.NewRepositoryError("list", "profile", "corrupt profile document", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRepositoryError("list", "profile", "failed to iterate profiles", err)
	}
	return profiles, nil
}

// GetProfile returns a profile by id.
func (s *ProfileStore) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	doc, err := s.loadDoc(ctx, s.db, id)
	if err != nil {
		return domain.Profile{}, err
	}

	var p domain.Profile
	if err := json.Unmarshal(doc, &p); err != nil {
		return domain.Profile{}, domain.NewRepositoryError("get", "profile", "corrupt profile document", err)
	}
	return p, nil
}

// CreateProfile stores a new profile. A missing id is generated.
func (s *ProfileStore) CreateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	if profile.UserID == "" {
		return domain.Profile{}, domain.NewValidationError("userId", profile.UserID, "user id is required")
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}

	doc, err := json.Marshal(profile)
	if err != nil {
		return domain.Profile{}, domain.NewRepositoryError("create", "profile", "failed to marshal profile", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, doc) VALUES (?, ?, ?)`,
		profile.ID, profile.UserID, string(doc))
	if err != nil {
		return domain.Profile{}, domain.NewRepositoryError("create", "profile", "failed to insert profile", err)
	}
	return profile, nil
}

// PatchProfile merges patch into the stored document in one transaction.
// The stored id always wins over an id in the patch.
func (s *ProfileStore) PatchProfile(ctx context.Context, id string, patch json.RawMessage) (domain.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Profile{}, domain.NewRepositoryError("patch", "profile", "failed to begin transaction", err)
	}
	defer tx.Rollback()

	doc, err := s.loadDoc(ctx, tx, id)
	if err != nil {
		return domain.Profile{}, err
	}

	merged, err := domain.MergePatch(doc, patch)
	if err != nil {
		return domain.Profile{}, domain.NewValidationError("body", string(patch), "patch must be a JSON object")
	}

	var p domain.Profile
	if err := json.Unmarshal(merged, &p); err != nil {
		return domain.Profile{}, domain.NewValidationError("body", string(patch), "patch does not describe a profile")
	}
	p.ID = id
	if p.UserID == "" {
		return domain.Profile{}, domain.NewValidationError("userId", p.UserID, "user id is required")
	}

	out, err := json.Marshal(p)
	if err != nil {
		return domain.Profile{}, domain.NewRepositoryError("patch", "profile", "failed to marshal profile", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE profiles SET user_id = ?, doc = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.UserID, string(out), id)
	if err != nil {
		return domain.Profile{}, domain.NewRepositoryError("patch", "profile", "failed to update profile", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Profile{}, domain.NewRepositoryError("patch", "profile", "failed to commit", err)
	}
	return p, nil
}

// DeleteProfile removes a profile.
func (s *ProfileStore) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return domain.NewRepositoryError("delete", "profile", "failed to delete profile", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *ProfileStore) loadDoc(ctx context.Context, q queryer, id string) ([]byte, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT doc FROM profiles WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, domain.NewRepositoryError("get", "profile", "failed to query profile", err)
	}
	return []byte(doc), nil
}

var _ ports.ProfileStore = (*ProfileStore)(nil)
