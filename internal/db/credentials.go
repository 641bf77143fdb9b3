package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateAPIKey stores an encrypted credential for a user and returns its ID.
func (db *DB) CreateAPIKey(ctx context.Context, userID uuid.UUID, keyName, encryptedKey string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO api_keys (user_id, key_name, encrypted_key)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		userID, keyName, encryptedKey,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create api key: %w", err)
	}
	return id, nil
}

// ListAPIKeys retrieves all credentials owned by a user, newest first.
func (db *DB) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]APIKey, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, key_name, encrypted_key, usage_count, created_at
		 FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.KeyName, &k.EncryptedKey, &k.UsageCount, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// GetAPIKey retrieves one credential scoped to its owner, or nil if absent.
func (db *DB) GetAPIKey(ctx context.Context, keyID, userID uuid.UUID) (*APIKey, error) {
	var k APIKey
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, key_name, encrypted_key, usage_count, created_at
		 FROM api_keys WHERE id = $1 AND user_id = $2`,
		keyID, userID,
	).Scan(&k.ID, &k.UserID, &k.KeyName, &k.EncryptedKey, &k.UsageCount, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &k, nil
}

// DeleteAPIKey removes a credential scoped to its owner.
func (db *DB) DeleteAPIKey(ctx context.Context, keyID, userID uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM api_keys WHERE id = $1 AND user_id = $2`,
		keyID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("api key not found: %s", keyID)
	}
	return nil
}

// IncrementKeyUsage bumps a credential's usage counter.
func (db *DB) IncrementKeyUsage(ctx context.Context, keyID uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE api_keys SET usage_count = usage_count + 1 WHERE id = $1`,
		keyID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment key usage: %w", err)
	}
	return nil
}
