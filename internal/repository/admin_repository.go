package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/casefiles/internal/model"
)

var (
	// ErrIdentityNotFound is returned for an unknown email or id.
	ErrIdentityNotFound = fmt.Errorf("identity %w", ErrNotFound)
	// ErrEmailExists is returned when provisioning an email that is taken.
	ErrEmailExists = fmt.Errorf("email already exists: %w", ErrConflict)
	// ErrAdminCapReached is returned when model.MaxAdmins admins exist.
	ErrAdminCapReached = errors.New("maximum admins reached")
)

// ProvisionStep names the write that failed inside Provision so callers can
// surface a distinct message per failure.
type ProvisionStep string

const (
	StepCount    ProvisionStep = "count"
	StepIdentity ProvisionStep = "identity"
	StepAdmin    ProvisionStep = "admin"
)

// ProvisionError wraps a failure of one provisioning step.
type ProvisionError struct {
	Step ProvisionStep
	Err  error
}

func (e *ProvisionError) Error() string { return fmt.Sprintf("provision %s: %v", e.Step, e.Err) }
func (e *ProvisionError) Unwrap() error { return e.Err }

// AdminRepo covers identities (the login accounts) and the admins
// allow-list that grants panel access.
type AdminRepo struct {
	DB      *sql.DB
	Dialect string // "mysql" or "sqlite"

	provisionMu sync.Mutex
}

// NewAdminRepo returns an AdminRepo for the given SQL dialect.
func NewAdminRepo(db *sql.DB, dialect string) *AdminRepo {
	return &AdminRepo{DB: db, Dialect: dialect}
}

// countAdminsForCap is the cap check run inside Provision.  On MySQL the
// count is a locking read: the next-key locks it takes block a concurrent
// provisioning transaction until this one commits.  SQLite has a single
// writer, so a plain count is enough there.
func countAdminsForCap(dialect string) string {
	if dialect == "mysql" {
		return "SELECT COUNT(*) FROM admins FOR UPDATE"
	}
	return "SELECT COUNT(*) FROM admins"
}

// GetIdentityByEmail fetches an identity by normalised email.
func (r *AdminRepo) GetIdentityByEmail(ctx context.Context, email string) (model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var id model.Identity
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM identities WHERE email = ? LIMIT 1",
		email).Scan(&id.ID, &id.Email, &id.PasswordHash, &id.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, ErrIdentityNotFound
	}
	return id, err
}

// GetIdentityByID fetches an identity by id.
func (r *AdminRepo) GetIdentityByID(ctx context.Context, identityID string) (model.Identity, error) {
	var id model.Identity
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM identities WHERE id = ? LIMIT 1",
		identityID).Scan(&id.ID, &id.Email, &id.PasswordHash, &id.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, ErrIdentityNotFound
	}
	return id, err
}

// IsAdmin reports whether the identity is on the admins allow-list.
func (r *AdminRepo) IsAdmin(ctx context.Context, identityID string) (bool, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM admins WHERE identity_id = ?", identityID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountAdmins returns the number of admin rows.
func (r *AdminRepo) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM admins").Scan(&n)
	return n, err
}

// CreateIdentity inserts a plain (non-admin) identity.  passwordHash must
// already be a bcrypt hash.
func (r *AdminRepo) CreateIdentity(ctx context.Context, email, passwordHash string) (model.Identity, error) {
	id := model.Identity{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO identities (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		id.ID, id.Email, id.PasswordHash, id.CreatedAt)
	if isDuplicateKey(err) {
		return model.Identity{}, ErrEmailExists
	}
	if err != nil {
		return model.Identity{}, err
	}
	return id, nil
}

// Provision creates an identity and its admin row in one transaction, so a
// failed admin insert never leaves an orphaned identity behind.  The cap is
// checked inside the same transaction with a locking read, so two
// concurrent bootstraps cannot both pass it.
func (r *AdminRepo) Provision(ctx context.Context, email, passwordHash string, maxAdmins int) (model.Identity, error) {
	// Serialise within the process; the locking count covers other instances.
	r.provisionMu.Lock()
	defer r.provisionMu.Unlock()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Identity{}, &ProvisionError{Step: StepCount, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, countAdminsForCap(r.Dialect)).Scan(&count); err != nil {
		return model.Identity{}, &ProvisionError{Step: StepCount, Err: err}
	}
	if count >= maxAdmins {
		return model.Identity{}, ErrAdminCapReached
	}

	now := time.Now().UTC()
	ident := model.Identity{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO identities (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		ident.ID, ident.Email, ident.PasswordHash, ident.CreatedAt); err != nil {
		if isDuplicateKey(err) {
			err = ErrEmailExists
		}
		return model.Identity{}, &ProvisionError{Step: StepIdentity, Err: err}
	}
	if err := r.insertAdmin(ctx, tx, ident.ID, now); err != nil {
		return model.Identity{}, &ProvisionError{Step: StepAdmin, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return model.Identity{}, &ProvisionError{Step: StepAdmin, Err: err}
	}
	return ident, nil
}

// insertAdmin is a seam for tests that need the admin insert to fail.
var insertAdminHook func(identityID string) error

func (r *AdminRepo) insertAdmin(ctx context.Context, tx *sql.Tx, identityID string, now time.Time) error {
	if insertAdminHook != nil {
		if err := insertAdminHook(identityID); err != nil {
			return err
		}
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO admins (id, identity_id, created_at) VALUES (?, ?, ?)",
		uuid.NewString(), identityID, now)
	return err
}
