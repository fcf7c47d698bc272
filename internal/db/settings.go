package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetSetting returns the raw JSON value of a user setting, or nil if it is not set.
func (db *DB) GetSetting(ctx context.Context, userID, category, key string) (json.RawMessage, error) {
	var value []byte
	err := db.pool.QueryRow(ctx,
		`SELECT settings_value FROM settings
		 WHERE user_id = $1 AND category = $2 AND settings_key = $3`,
		userID, category, key,
	).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get setting %s.%s: %w", category, key, err)
	}
	return json.RawMessage(value), nil
}

// UpsertSetting stores value as JSON under (userID, category, key).
func (db *DB) UpsertSetting(ctx context.Context, userID, category, key string, value any) error {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO settings (user_id, category, settings_key, settings_value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, category, settings_key)
		 DO UPDATE SET settings_value = EXCLUDED.settings_value, updated_at = NOW()`,
		userID, category, key, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save setting %s.%s: %w", category, key, err)
	}
	return nil
}
