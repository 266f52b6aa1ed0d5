package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
)

const entityUser = "User"

// UserRepository defines the interface for user account persistence.
type UserRepository interface {
	UserLookup
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, offset, limit int) ([]User, error)
	ListByRole(ctx context.Context, roleID int64, offset, limit int) ([]User, error)
	Update(ctx context.Context, id int64, patch UserPatch) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	SetRoles(ctx context.Context, userID int64, roleIDs []int64) error
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed user repository.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = "id, first_name, last_name, email, password_hash, is_active, is_admin, created_at, updated_at"

// Create inserts a new user and sets its ID and timestamps.
// A taken email yields apperr.ErrUserAlreadyExists.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	user.Email = NormalizeEmail(user.Email)
	now := time.Now().UTC().Truncate(time.Second)

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO users (first_name, last_name, email, password_hash, is_active, is_admin, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			user.FirstName, user.LastName, user.Email, user.PasswordHash,
			boolToInt(user.IsActive), boolToInt(user.IsAdmin),
			now.Format(time.RFC3339), now.Format(time.RFC3339),
		)
		if err != nil {
			return classifyUserWrite(err, user.Email)
		}
		user.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return apperr.FromWrite(apperr.OpCreate, entityUser, nil, err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID retrieves a user by ID.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUserFrom(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(entityUser, id)
	}
	return u, apperr.FromRead(err)
}

// GetByEmail retrieves a user by email. Matching is case-insensitive.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	u, err := scanUserFrom(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundBy(entityUser, "email", email)
	}
	return u, apperr.FromRead(err)
}

// List returns a page of users ordered by ID.
func (r *SQLiteUserRepository) List(ctx context.Context, offset, limit int) ([]User, error) {
	return r.queryUsers(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

// ListByRole returns a page of the users assigned the given role.
func (r *SQLiteUserRepository) ListByRole(ctx context.Context, roleID int64, offset, limit int) ([]User, error) {
	return r.queryUsers(ctx,
		`SELECT u.id, u.first_name, u.last_name, u.email, u.password_hash, u.is_active, u.is_admin, u.created_at, u.updated_at
		 FROM users u JOIN user_roles ur ON ur.user_id = u.id
		 WHERE ur.role_id = ? ORDER BY u.id LIMIT ? OFFSET ?`, roleID, limit, offset)
}

// Update applies a partial update and returns the stored result.
func (r *SQLiteUserRepository) Update(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	var updated *User
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		u, err := scanUserFrom(tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(entityUser, id)
		}
		if err != nil {
			return err
		}

		patch.Apply(u)
		u.UpdatedAt = time.Now().UTC().Truncate(time.Second)

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET first_name = ?, last_name = ?, email = ?, is_active = ?, is_admin = ?, updated_at = ?
			 WHERE id = ?`,
			u.FirstName, u.LastName, u.Email, boolToInt(u.IsActive), boolToInt(u.IsAdmin),
			u.UpdatedAt.Format(time.RFC3339), id,
		); err != nil {
			return classifyUserWrite(err, u.Email)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, apperr.FromWrite(apperr.OpUpdate, entityUser, id, err)
	}
	return updated, nil
}

// UpdatePassword replaces a user's password hash.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
			passwordHash, time.Now().UTC().Format(time.RFC3339), id)
		if err != nil {
			return err
		}
		return requireAffected(result, id)
	})
	return apperr.FromWrite(apperr.OpUpdate, entityUser, id, err)
}

// Delete removes a user. Access logs, presence and role assignments cascade.
func (r *SQLiteUserRepository) Delete(ctx context.Context, id int64) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
		if err != nil {
			return err
		}
		return requireAffected(result, id)
	})
	return apperr.FromWrite(apperr.OpDelete, entityUser, id, err)
}

// Count returns the total number of user accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, apperr.FromRead(fmt.Errorf("counting users: %w", err))
	}
	return count, nil
}

// SetRoles replaces all role assignments for a user.
// Pass an empty slice to remove every role. Unknown role IDs fail the whole update.
func (r *SQLiteUserRepository) SetRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", userID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(entityUser, userID)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("clearing roles: %w", err)
		}
		for _, roleID := range roleIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)", userID, roleID); err != nil {
				return fmt.Errorf("assigning role %d: %w", roleID, err)
			}
		}
		return nil
	})
	return apperr.FromWrite(apperr.OpUpdate, entityUser, userID, err)
}

func (r *SQLiteUserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromRead(fmt.Errorf("listing users: %w", err))
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, apperr.FromRead(err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromRead(fmt.Errorf("iterating users: %w", err))
	}
	return users, nil
}

// classifyUserWrite maps the email unique index to UserAlreadyExists.
func classifyUserWrite(err error, email string) error {
	if v, ok := database.AsConstraintViolation(err); ok && v.Kind == database.ConstraintUnique && v.Covers("email") {
		return apperr.AlreadyExists(apperr.CodeUserExists, entityUser, "email", email)
	}
	return err
}

func requireAffected(result sql.Result, id int64) error {
	n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if n == 0 {
		return apperr.NotFound(entityUser, id)
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanUserFrom scans a user from any scanner (Row or Rows).
func scanUserFrom(s scanner) (*User, error) {
	var u User
	var isActive, isAdmin int
	var createdAt, updatedAt string

	if err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&isActive, &isAdmin, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	u.IsActive = isActive != 0
	u.IsAdmin = isAdmin != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
