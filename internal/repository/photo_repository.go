package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/casefiles/internal/model"
)

// PhotoRepo manages the photo sets attached to case files.
type PhotoRepo struct{ db *sql.DB }

func NewPhotoRepo(db *sql.DB) *PhotoRepo { return &PhotoRepo{db: db} }

// ListByCaseFile returns the photos of one case file ordered by
// display_order, ties broken by insertion time.
func (r *PhotoRepo) ListByCaseFile(ctx context.Context, caseFileID string) ([]model.CaseFilePhoto, error) {
	const q = `SELECT id, case_file_id, photo_url, display_order, created_at
	           FROM case_file_photos WHERE case_file_id = ?
	           ORDER BY display_order ASC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, caseFileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CaseFilePhoto, 0)
	for rows.Next() {
		var p model.CaseFilePhoto
		if err := rows.Scan(&p.ID, &p.CaseFileID, &p.PhotoURL, &p.DisplayOrder, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Add appends a photo to a case file; its display_order is the current
// size of the set.  ErrCaseFileNotFound is returned for an unknown parent.
func (r *PhotoRepo) Add(ctx context.Context, caseFileID, photoURL string) (model.CaseFilePhoto, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CaseFilePhoto{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM case_files WHERE id = ?", caseFileID).Scan(&exists); err != nil {
		return model.CaseFilePhoto{}, err
	}
	if exists == 0 {
		return model.CaseFilePhoto{}, ErrCaseFileNotFound
	}
	var order int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM case_file_photos WHERE case_file_id = ?", caseFileID).Scan(&order); err != nil {
		return model.CaseFilePhoto{}, err
	}

	p := model.CaseFilePhoto{
		ID:           uuid.NewString(),
		CaseFileID:   caseFileID,
		PhotoURL:     photoURL,
		DisplayOrder: order,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO case_file_photos (id, case_file_id, photo_url, display_order, created_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.CaseFileID, p.PhotoURL, p.DisplayOrder, p.CreatedAt); err != nil {
		return model.CaseFilePhoto{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.CaseFilePhoto{}, err
	}
	return p, nil
}
