package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
)

const entityRule = "AccessRule"

// RuleRepository defines the interface for access rule persistence.
//
// Create and Update report a taken (room, role) pair as
// apperr.ErrAccessRuleAlreadyExists, a missing room or role as a
// Create/Update failure, and storage outages as apperr.ErrOperational.
type RuleRepository interface {
	Create(ctx context.Context, rule *Rule) error
	Get(ctx context.Context, id int64) (*Rule, error)
	List(ctx context.Context, offset, limit int) ([]Rule, error)
	ListByRoom(ctx context.Context, roomID int64, offset, limit int) ([]Rule, error)
	ListByRole(ctx context.Context, roleID int64, offset, limit int) ([]Rule, error)
	Update(ctx context.Context, id int64, patch RulePatch) (*Rule, error)
	Delete(ctx context.Context, id int64) error
}

// SQLiteRuleRepository implements RuleRepository using SQLite.
type SQLiteRuleRepository struct {
	db *sql.DB
}

// NewRuleRepository creates a new SQLite-backed access rule repository.
func NewRuleRepository(db *sql.DB) *SQLiteRuleRepository {
	return &SQLiteRuleRepository{db: db}
}

const ruleColumns = "id, room_id, role_id, time_from, time_to"

// Create inserts an access rule and sets its ID.
func (r *SQLiteRuleRepository) Create(ctx context.Context, rule *Rule) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO access_rules (room_id, role_id, time_from, time_to) VALUES (?, ?, ?, ?)",
			rule.RoomID, rule.RoleID, rule.TimeFrom.String(), rule.TimeTo.String())
		if err != nil {
			return classifyRuleWrite(err, rule)
		}
		rule.ID, err = result.LastInsertId()
		return err
	})
	return apperr.FromWrite(apperr.OpCreate, entityRule, nil, err)
}

// Get retrieves an access rule by ID.
func (r *SQLiteRuleRepository) Get(ctx context.Context, id int64) (*Rule, error) {
	return getRule(ctx, r.db, id)
}

// List returns a page of access rules ordered by ID.
func (r *SQLiteRuleRepository) List(ctx context.Context, offset, limit int) ([]Rule, error) {
	return r.queryRules(ctx, "SELECT "+ruleColumns+" FROM access_rules ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

// ListByRoom returns a page of the rules granting entry to a room.
func (r *SQLiteRuleRepository) ListByRoom(ctx context.Context, roomID int64, offset, limit int) ([]Rule, error) {
	return r.queryRules(ctx,
		"SELECT "+ruleColumns+" FROM access_rules WHERE room_id = ? ORDER BY id LIMIT ? OFFSET ?",
		roomID, limit, offset)
}

// ListByRole returns a page of the rules granted to a role.
func (r *SQLiteRuleRepository) ListByRole(ctx context.Context, roleID int64, offset, limit int) ([]Rule, error) {
	return r.queryRules(ctx,
		"SELECT "+ruleColumns+" FROM access_rules WHERE role_id = ? ORDER BY id LIMIT ? OFFSET ?",
		roleID, limit, offset)
}

// Update applies a partial update and returns the stored result.
// Moving a rule onto a (room, role) pair that already has one fails with
// apperr.ErrAccessRuleAlreadyExists and leaves the rule unchanged.
func (r *SQLiteRuleRepository) Update(ctx context.Context, id int64, patch RulePatch) (*Rule, error) {
	var updated *Rule
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		rule, err := getRule(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(rule)
		if _, err := tx.ExecContext(ctx,
			"UPDATE access_rules SET room_id = ?, role_id = ?, time_from = ?, time_to = ? WHERE id = ?",
			rule.RoomID, rule.RoleID, rule.TimeFrom.String(), rule.TimeTo.String(), id); err != nil {
			return classifyRuleWrite(err, rule)
		}
		updated = rule
		return nil
	})
	if err != nil {
		return nil, apperr.FromWrite(apperr.OpUpdate, entityRule, id, err)
	}
	return updated, nil
}

// Delete removes an access rule.
func (r *SQLiteRuleRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "access_rules", entityRule, id)
}

func (r *SQLiteRuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromRead(fmt.Errorf("listing access rules: %w", err))
	}
	defer rows.Close()

	rules := []Rule{}
	for rows.Next() {
		rule, err := scanRuleFrom(rows)
		if err != nil {
			return nil, apperr.FromRead(err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromRead(fmt.Errorf("iterating access rules: %w", err))
	}
	return rules, nil
}

func getRule(ctx context.Context, q database.Querier, id int64) (*Rule, error) {
	rule, err := scanRuleFrom(q.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM access_rules WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(entityRule, id)
	}
	if err != nil {
		return nil, apperr.FromRead(err)
	}
	return rule, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanRuleFrom(s scanner) (*Rule, error) {
	var rule Rule
	var from, to string
	if err := s.Scan(&rule.ID, &rule.RoomID, &rule.RoleID, &from, &to); err != nil {
		return nil, err
	}
	var err error
	if rule.TimeFrom, err = ParseTimeOfDay(from); err != nil {
		return nil, fmt.Errorf("access rule %d: %w", rule.ID, err)
	}
	if rule.TimeTo, err = ParseTimeOfDay(to); err != nil {
		return nil, fmt.Errorf("access rule %d: %w", rule.ID, err)
	}
	return &rule, nil
}

// classifyRuleWrite maps the (room_id, role_id) unique index to AccessRuleAlreadyExists.
func classifyRuleWrite(err error, rule *Rule) error {
	if v, ok := database.AsConstraintViolation(err); ok && v.Kind == database.ConstraintUnique &&
		v.Covers("room_id", "role_id") {
		return apperr.AccessRuleAlreadyExists(rule.RoomID, rule.RoleID)
	}
	return err
}
