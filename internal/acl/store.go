// internal/acl/store.go
//
// Query helpers for role-based access control.
//
// Context
// -------
// The ACL model lives in the admin database:
//
//	role        (id PK, name, enabled)
//	role_acl    (role_id, component, action, permitted)
//	user_role   (user_id, role_id)
//
// The admin gate answers "is this an admin?" from the token alone.  The
// finer question, "may this admin create categories?", is answered here:
//  1. Which role names does user X have?           → `UserRoles()`
//  2. Is any of those roles permitted for P/A?     → `Allowed()`
//
// Notes
// -----
// • Component is the entity definition's permission string, for example
//   `catalog.brand`.  Action is `create` or `update`.
package acl

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Store wraps the ACL tables.
type Store struct {
	db *sqlx.DB
}

// NewStore returns a Store over db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// UserRoles returns the role names bound to userID.  Disabled roles are
// filtered out.
func (s *Store) UserRoles(ctx context.Context, userID int64) ([]string, error) {
	const q = `SELECT r.name
                 FROM user_role ur
                 JOIN role r ON r.id = ur.role_id
                WHERE ur.user_id = ? AND r.enabled = TRUE`

	roles := make([]string, 0, 4)
	if err := s.db.SelectContext(ctx, &roles, q, userID); err != nil {
		return nil, err
	}
	return roles, nil
}

// Allowed reports whether any of roles is permitted for component and
// action.  An empty roles slice returns false, nil.
func (s *Store) Allowed(ctx context.Context, roles []string, component, action string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}

	q, args, err := sqlx.In(`SELECT 1
            FROM role_acl ra
            JOIN role r ON r.id = ra.role_id
           WHERE r.name IN (?)
             AND ra.component = ?
             AND ra.action   = ?
             AND ra.permitted = TRUE
           LIMIT 1`, roles, component, action)
	if err != nil {
		return false, err
	}

	var hit int
	err = s.db.QueryRowxContext(ctx, s.db.Rebind(q), args...).Scan(&hit)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
