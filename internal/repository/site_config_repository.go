package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/casefiles/internal/model"
)

// ErrSiteConfigMissing is returned when the singleton row has not been
// seeded yet.
var ErrSiteConfigMissing = fmt.Errorf("site config %w", ErrNotFound)

// SiteConfigRepo reads and writes the singleton site_config row.  Every
// statement is keyed by model.SiteConfigID, so a stray second row can never
// be read as "the" config or receive its updates.
type SiteConfigRepo struct{ db *sql.DB }

func NewSiteConfigRepo(db *sql.DB) *SiteConfigRepo { return &SiteConfigRepo{db: db} }

// Get fetches the singleton row.
func (r *SiteConfigRepo) Get(ctx context.Context) (model.SiteConfig, error) {
	var (
		c     model.SiteConfig
		music sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, site_password, music_url, updated_at FROM site_config WHERE id = ?",
		model.SiteConfigID).Scan(&c.ID, &c.SitePassword, &music, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SiteConfig{}, ErrSiteConfigMissing
	}
	if err != nil {
		return model.SiteConfig{}, err
	}
	c.MusicURL = stringPtr(music)
	return c, nil
}

// Seed creates the singleton row with the given password when it does not
// exist.  An existing row is left untouched.
func (r *SiteConfigRepo) Seed(ctx context.Context, password string) error {
	return r.upsert(ctx, func(tx *sql.Tx, exists bool, now time.Time) error {
		if exists {
			return nil
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO site_config (id, site_password, music_url, updated_at) VALUES (?, ?, NULL, ?)",
			model.SiteConfigID, password, now)
		return err
	})
}

// UpdatePassword sets the shared gate secret, creating the row if needed.
// Concurrent writers are last-write-wins.
func (r *SiteConfigRepo) UpdatePassword(ctx context.Context, password string) error {
	return r.upsert(ctx, func(tx *sql.Tx, exists bool, now time.Time) error {
		if !exists {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO site_config (id, site_password, music_url, updated_at) VALUES (?, ?, NULL, ?)",
				model.SiteConfigID, password, now)
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE site_config SET site_password = ?, updated_at = ? WHERE id = ?",
			password, now, model.SiteConfigID)
		return err
	})
}

// UpdateMusicURL stores the public URL of the background music file.
func (r *SiteConfigRepo) UpdateMusicURL(ctx context.Context, url string) error {
	return r.upsert(ctx, func(tx *sql.Tx, exists bool, now time.Time) error {
		if !exists {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO site_config (id, site_password, music_url, updated_at) VALUES (?, '', ?, ?)",
				model.SiteConfigID, url, now)
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE site_config SET music_url = ?, updated_at = ? WHERE id = ?",
			url, now, model.SiteConfigID)
		return err
	})
}

// upsert runs write inside a transaction after checking whether the
// singleton exists.  The existence probe avoids dialect-specific upsert
// syntax and does not depend on MySQL's "rows affected" for no-op updates.
func (r *SiteConfigRepo) upsert(ctx context.Context, write func(tx *sql.Tx, exists bool, now time.Time) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM site_config WHERE id = ?", model.SiteConfigID).Scan(&n); err != nil {
		return err
	}
	if err := write(tx, n > 0, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}
