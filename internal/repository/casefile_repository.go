// Package repository contains data access logic separated from HTTP handlers.
// This file holds the case file repository: the evidence catalog read by the
// public site and mutated by the admin panel.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/casefiles/internal/model"
)

// ErrCaseFileNotFound is returned when a case file id matches no row.
var ErrCaseFileNotFound = fmt.Errorf("case file %w", ErrNotFound)

// CaseFileRepo encapsulates all queries against case_files.
type CaseFileRepo struct {
	db *sql.DB
}

// NewCaseFileRepo constructs a CaseFileRepo with the provided DB handle.
func NewCaseFileRepo(db *sql.DB) *CaseFileRepo {
	return &CaseFileRepo{db: db}
}

const caseFileColumns = "id, title, description, file_type, text_content, file_url, display_order, created_at"

// NewCaseFile carries the admin-supplied fields of an insert.
type NewCaseFile struct {
	Title       string
	Description *string
	FileType    model.FileType
	TextContent *string
	FileURL     *string
}

// ListOrdered returns every case file ordered by display_order ascending.
// Ties keep creation order so the listing is stable between calls.
func (r *CaseFileRepo) ListOrdered(ctx context.Context) ([]model.CaseFile, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+caseFileColumns+" FROM case_files ORDER BY display_order ASC, created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CaseFile, 0)
	for rows.Next() {
		cf, err := scanCaseFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches one case file.
func (r *CaseFileRepo) GetByID(ctx context.Context, id string) (model.CaseFile, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+caseFileColumns+" FROM case_files WHERE id = ?", id)
	cf, err := scanCaseFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CaseFile{}, ErrCaseFileNotFound
	}
	return cf, err
}

// Count returns the number of case files.
func (r *CaseFileRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM case_files").Scan(&n)
	return n, err
}

// Create inserts a case file whose display_order is the current catalog
// length.  The count and insert share a transaction so two concurrent
// inserts at least see each other's rows on commit.
func (r *CaseFileRepo) Create(ctx context.Context, in NewCaseFile) (model.CaseFile, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CaseFile{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var order int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM case_files").Scan(&order); err != nil {
		return model.CaseFile{}, err
	}

	cf := model.CaseFile{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		FileType:     in.FileType,
		TextContent:  in.TextContent,
		FileURL:      in.FileURL,
		DisplayOrder: order,
		CreatedAt:    time.Now().UTC(),
	}
	const q = `INSERT INTO case_files (id, title, description, file_type, text_content, file_url, display_order, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q,
		cf.ID, cf.Title, nullString(cf.Description), cf.FileType.String(),
		nullString(cf.TextContent), nullString(cf.FileURL), cf.DisplayOrder, cf.CreatedAt,
	); err != nil {
		return model.CaseFile{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.CaseFile{}, err
	}
	return cf, nil
}

// Delete removes a case file and its photos.  ErrCaseFileNotFound is
// returned when nothing was deleted.
func (r *CaseFileRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM case_file_photos WHERE case_file_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM case_files WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCaseFileNotFound
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCaseFile(s rowScanner) (model.CaseFile, error) {
	var (
		cf                 model.CaseFile
		fileType           string
		desc, text, rawURL sql.NullString
	)
	if err := s.Scan(&cf.ID, &cf.Title, &desc, &fileType, &text, &rawURL, &cf.DisplayOrder, &cf.CreatedAt); err != nil {
		return model.CaseFile{}, err
	}
	cf.FileType = model.ParseFileType(fileType)
	cf.Description = stringPtr(desc)
	cf.TextContent = stringPtr(text)
	cf.FileURL = stringPtr(rawURL)
	return cf, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
