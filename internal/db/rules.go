package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/freight-doc-review/internal/types"
)

const ruleColumns = `id, user_id, name, COALESCE(description, ''), COALESCE(extraction_fields, '{}'),
	comparison_instructions, COALESCE(critical_checks, '{}'), is_default, created_at`

func scanRule(row pgx.Row) (*types.ComparisonRule, error) {
	var r types.ComparisonRule
	err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Description, &r.ExtractionFields,
		&r.ComparisonInstructions, &r.CriticalChecks, &r.IsDefault, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRule retrieves a comparison rule by ID
func (db *DB) GetRule(ctx context.Context, id uuid.UUID) (*types.ComparisonRule, error) {
	rule, err := scanRule(db.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM document_comparison_rules WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// ListRules returns a user's rules, default rules first then newest first.
func (db *DB) ListRules(ctx context.Context, userID string) ([]types.ComparisonRule, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+ruleColumns+`
		 FROM document_comparison_rules
		 WHERE user_id = $1
		 ORDER BY is_default DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	rules := []types.ComparisonRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	return rules, nil
}

// CreateRule inserts a new non-default rule.
func (db *DB) CreateRule(ctx context.Context, req *types.CreateRuleRequest) (*types.ComparisonRule, error) {
	rule, err := scanRule(db.pool.QueryRow(ctx,
		`INSERT INTO document_comparison_rules
		   (user_id, name, description, extraction_fields, comparison_instructions, critical_checks)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+ruleColumns,
		req.UserID, req.Name, req.Description, nonNil(req.ExtractionFields),
		req.ComparisonInstructions, nonNil(req.CriticalChecks),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	return rule, nil
}

// UpdateRule replaces the editable content of a rule. It returns ErrRuleNotFound if id is unknown.
func (db *DB) UpdateRule(ctx context.Context, id uuid.UUID, req *types.UpdateRuleRequest) (*types.ComparisonRule, error) {
	rule, err := scanRule(db.pool.QueryRow(ctx,
		`UPDATE document_comparison_rules
		 SET name = $2, description = $3, extraction_fields = $4,
		     comparison_instructions = $5, critical_checks = $6, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+ruleColumns,
		id, req.Name, req.Description, nonNil(req.ExtractionFields),
		req.ComparisonInstructions, nonNil(req.CriticalChecks),
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	return rule, nil
}

// DeleteRule deletes a non-default rule.
func (db *DB) DeleteRule(ctx context.Context, id uuid.UUID) error {
	var isDefault bool
	err := db.pool.QueryRow(ctx,
		`SELECT is_default FROM document_comparison_rules WHERE id = $1`, id,
	).Scan(&isDefault)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrRuleNotFound
		}
		return fmt.Errorf("failed to get rule: %w", err)
	}
	if isDefault {
		return ErrDefaultRule
	}

	result, err := db.pool.Exec(ctx,
		`DELETE FROM document_comparison_rules WHERE id = $1 AND NOT is_default`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}
