package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
)

const entityRole = "Role"

// RoleRepository defines the interface for role persistence.
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	Get(ctx context.Context, id int64) (*Role, error)
	List(ctx context.Context, offset, limit int) ([]Role, error)
	ListByUser(ctx context.Context, userID int64) ([]Role, error)
	Update(ctx context.Context, id int64, patch RolePatch) (*Role, error)
	Delete(ctx context.Context, id int64) error
}

// SQLiteRoleRepository implements RoleRepository using SQLite.
type SQLiteRoleRepository struct {
	db *sql.DB
}

// NewRoleRepository creates a new SQLite-backed role repository.
func NewRoleRepository(db *sql.DB) *SQLiteRoleRepository {
	return &SQLiteRoleRepository{db: db}
}

// Create inserts a role and sets its ID. A taken name yields apperr.ErrRoleAlreadyExists.
func (r *SQLiteRoleRepository) Create(ctx context.Context, role *Role) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO roles (name, description) VALUES (?, ?)", role.Name, role.Description)
		if err != nil {
			return classifyRoleWrite(err, role.Name)
		}
		role.ID, err = result.LastInsertId()
		return err
	})
	return apperr.FromWrite(apperr.OpCreate, entityRole, nil, err)
}

// Get retrieves a role by ID.
func (r *SQLiteRoleRepository) Get(ctx context.Context, id int64) (*Role, error) {
	return getRole(ctx, r.db, id)
}

// List returns a page of roles ordered by ID.
func (r *SQLiteRoleRepository) List(ctx context.Context, offset, limit int) ([]Role, error) {
	return r.queryRoles(ctx, "SELECT id, name, description FROM roles ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

// ListByUser returns every role assigned to a user, ordered by name.
func (r *SQLiteRoleRepository) ListByUser(ctx context.Context, userID int64) ([]Role, error) {
	return r.queryRoles(ctx,
		`SELECT r.id, r.name, r.description
		 FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = ? ORDER BY r.name`, userID)
}

// Update applies a partial update and returns the stored result.
func (r *SQLiteRoleRepository) Update(ctx context.Context, id int64, patch RolePatch) (*Role, error) {
	var updated *Role
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		role, err := getRole(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(role)
		if _, err := tx.ExecContext(ctx,
			"UPDATE roles SET name = ?, description = ? WHERE id = ?", role.Name, role.Description, id); err != nil {
			return classifyRoleWrite(err, role.Name)
		}
		updated = role
		return nil
	})
	if err != nil {
		return nil, apperr.FromWrite(apperr.OpUpdate, entityRole, id, err)
	}
	return updated, nil
}

// Delete removes a role together with its access rules and assignments.
func (r *SQLiteRoleRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "roles", entityRole, id)
}

func (r *SQLiteRoleRepository) queryRoles(ctx context.Context, query string, args ...any) ([]Role, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromRead(fmt.Errorf("listing roles: %w", err))
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, apperr.FromRead(err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromRead(fmt.Errorf("iterating roles: %w", err))
	}
	return roles, nil
}

func getRole(ctx context.Context, q database.Querier, id int64) (*Role, error) {
	var role Role
	err := q.QueryRowContext(ctx, "SELECT id, name, description FROM roles WHERE id = ?", id).
		Scan(&role.ID, &role.Name, &role.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(entityRole, id)
	}
	if err != nil {
		return nil, apperr.FromRead(err)
	}
	return &role, nil
}

func classifyRoleWrite(err error, name string) error {
	if v, ok := database.AsConstraintViolation(err); ok && v.Kind == database.ConstraintUnique && v.Covers("name") {
		return apperr.AlreadyExists(apperr.CodeRoleExists, entityRole, "name", name)
	}
	return err
}

// deleteByID deletes one row in a transaction, reporting NotFound when nothing matched.
func deleteByID(ctx context.Context, db *sql.DB, table, entity string, id int64) error {
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
		if err != nil {
			return err
		}
		n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
		if n == 0 {
			return apperr.NotFound(entity, id)
		}
		return nil
	})
	return apperr.FromWrite(apperr.OpDelete, entity, id, err)
}
