package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/store"
)

type ConnectionRepo struct {
	db *bun.DB
}

func NewConnectionRepo(db *bun.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

func (r *ConnectionRepo) GetActive(ctx context.Context, userID, provider string) (domain.ProviderConnection, error) {
	var conn domain.ProviderConnection
	err := r.db.NewSelect().
		Model(&conn).
		Where("user_id = ?", userID).
		Where("provider = ?", provider).
		Where("is_active = TRUE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProviderConnection{}, store.ErrNotFound
		}
		return domain.ProviderConnection{}, err
	}
	return conn, nil
}

func (r *ConnectionRepo) ListActiveByTenant(ctx context.Context, tenantID, provider string) ([]domain.ProviderConnection, error) {
	var rows []domain.ProviderConnection
	err := r.db.NewSelect().
		Model(&rows).
		Where("tenant_id = ?", tenantID).
		Where("provider = ?", provider).
		Where("is_active = TRUE").
		OrderExpr("last_used_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert replaces token material on (user_id, provider) conflict.
// Overlapping refreshes are last-writer-wins.
func (r *ConnectionRepo) Upsert(ctx context.Context, conn domain.ProviderConnection) (domain.ProviderConnection, error) {
	_, err := r.db.NewInsert().
		Model(&conn).
		On("CONFLICT (user_id, provider) DO UPDATE").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("expires_at = EXCLUDED.expires_at").
		Set("scope = EXCLUDED.scope").
		Set("is_active = EXCLUDED.is_active").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.ProviderConnection{}, err
	}
	return conn, nil
}

func (r *ConnectionRepo) Deactivate(ctx context.Context, userID, provider string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.ProviderConnection)(nil)).
		Set("is_active = FALSE").
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ?", userID).
		Where("provider = ?", provider).
		Where("is_active = TRUE").
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *ConnectionRepo) TouchLastUsed(ctx context.Context, userID, provider string) error {
	_, err := r.db.NewUpdate().
		Model((*domain.ProviderConnection)(nil)).
		Set("last_used_at = ?", time.Now().UTC()).
		Where("user_id = ?", userID).
		Where("provider = ?", provider).
		Exec(ctx)
	return err
}
