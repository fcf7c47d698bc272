package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/freight-doc-review/internal/types"
)

const documentColumns = `id::text, quotation_id::text, COALESCE(file_name, ''), document_type, file_url, submitted_at`

// GetDocumentsByIDs returns the submitted documents of a quotation whose IDs are in ids.
// Unknown IDs, and IDs that belong to another quotation, are absent from the result.
func (db *DB) GetDocumentsByIDs(ctx context.Context, quotationID string, ids []string) ([]types.Document, error) {
	if len(ids) == 0 {
		return []types.Document{}, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM document_submissions
		 WHERE quotation_id::text = $1 AND id::text = ANY($2)`,
		quotationID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}
	return scanDocuments(rows)
}

// ListDocumentsByQuotation returns every submitted document of a quotation, newest first.
func (db *DB) ListDocumentsByQuotation(ctx context.Context, quotationID string) ([]types.Document, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM document_submissions
		 WHERE quotation_id::text = $1
		 ORDER BY submitted_at DESC NULLS LAST, id`,
		quotationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return scanDocuments(rows)
}

// QuotationExists reports whether a quotation with the given ID exists.
func (db *DB) QuotationExists(ctx context.Context, quotationID string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM quotations WHERE id::text = $1)`,
		quotationID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check quotation: %w", err)
	}
	return exists, nil
}

func scanDocuments(rows pgx.Rows) ([]types.Document, error) {
	defer rows.Close()

	docs := []types.Document{}
	for rows.Next() {
		var d types.Document
		if err := rows.Scan(&d.ID, &d.QuotationID, &d.Name, &d.Type, &d.URL, &d.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return docs, nil
}
