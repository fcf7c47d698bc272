package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/freight-doc-review/internal/types"
)

const historyColumns = `id, quotation_id, user_id, rule_id, version, status, full_feedback,
	results, extracted_data, critical_checks_results, created_at`

// SaveAnalysis stores a finished analysis as the next version for its quotation.
// The returned copy carries the assigned ID, version and creation time.
func (db *DB) SaveAnalysis(ctx context.Context, h *types.AnalysisHistory) (*types.AnalysisHistory, error) {
	results, err := json.Marshal(h.Results)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}
	extracted, err := json.Marshal(h.ExtractedData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extracted data: %w", err)
	}
	checks, err := json.Marshal(h.CriticalChecksResults)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal critical checks: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialises version assignment per quotation.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, h.QuotationID); err != nil {
		return nil, fmt.Errorf("failed to lock quotation history: %w", err)
	}

	saved := *h
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM document_analysis_history WHERE quotation_id = $1`,
		h.QuotationID,
	).Scan(&saved.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to get next history version: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO document_analysis_history
		   (quotation_id, user_id, rule_id, version, status, full_feedback,
		    results, extracted_data, critical_checks_results)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		h.QuotationID, h.UserID, h.RuleID, saved.Version, h.Status, h.FullFeedback,
		results, extracted, checks,
	).Scan(&saved.ID, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit analysis: %w", err)
	}
	return &saved, nil
}

// ListHistory returns the saved analyses of a quotation, latest version first.
func (db *DB) ListHistory(ctx context.Context, quotationID string) ([]types.AnalysisHistory, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+historyColumns+`
		 FROM document_analysis_history
		 WHERE quotation_id = $1
		 ORDER BY version DESC`,
		quotationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	history := []types.AnalysisHistory{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return history, nil
}

// GetHistory retrieves one saved analysis by ID
func (db *DB) GetHistory(ctx context.Context, id uuid.UUID) (*types.AnalysisHistory, error) {
	h, err := scanHistory(db.pool.QueryRow(ctx,
		`SELECT `+historyColumns+` FROM document_analysis_history WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return h, nil
}

func scanHistory(row pgx.Row) (*types.AnalysisHistory, error) {
	var h types.AnalysisHistory
	var results, extracted, checks []byte
	err := row.Scan(&h.ID, &h.QuotationID, &h.UserID, &h.RuleID, &h.Version, &h.Status,
		&h.FullFeedback, &results, &extracted, &checks, &h.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	if err := decodeHistoryJSON(&h, results, extracted, checks); err != nil {
		return nil, err
	}
	return &h, nil
}

func decodeHistoryJSON(h *types.AnalysisHistory, results, extracted, checks []byte) error {
	h.Results = []types.DocumentFeedback{}
	h.ExtractedData = map[string]types.ExtractedFields{}
	h.CriticalChecksResults = []types.CriticalCheckResult{}

	if len(results) > 0 {
		if err := json.Unmarshal(results, &h.Results); err != nil {
			return fmt.Errorf("failed to decode history results: %w", err)
		}
	}
	if len(extracted) > 0 {
		if err := json.Unmarshal(extracted, &h.ExtractedData); err != nil {
			return fmt.Errorf("failed to decode history extracted data: %w", err)
		}
	}
	if len(checks) > 0 {
		if err := json.Unmarshal(checks, &h.CriticalChecksResults); err != nil {
			return fmt.Errorf("failed to decode history critical checks: %w", err)
		}
	}
	return nil
}
