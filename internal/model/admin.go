package model

import "time"

// MaxAdmins caps the number of admin accounts the bootstrap endpoint will
// ever provision.
const MaxAdmins = 2

// Token roles.  A VISITOR token is issued once the gate unlocks; ADMIN
// tokens are issued by the admin login.
const (
	RoleVisitor = "VISITOR"
	RoleAdmin   = "ADMIN"
)

// Identity represents an authentication identity as stored in the
// `identities` table.  Identities authenticate with email and a bcrypt
// password hash; only identities with an Admin row may use the panel.
//
// Fields:
//  ID           – opaque identifier.
//  Email        – unique, normalised to lower case.
//  PasswordHash – bcrypt hash.
//  CreatedAt    – timestamp of creation.
type Identity struct {
	ID           string    // identities.id
	Email        string    // identities.email
	PasswordHash string    // identities.password_hash
	CreatedAt    time.Time // identities.created_at
}

// Admin grants panel access to exactly one identity.
type Admin struct {
	ID         string    // admins.id
	IdentityID string    // admins.identity_id
	CreatedAt  time.Time // admins.created_at
}
