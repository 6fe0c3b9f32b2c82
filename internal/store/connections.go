package store

import (
	"context"

	"meetloop/backend/internal/domain"
)

type ConnectionRepository interface {
	GetActive(ctx context.Context, userID, provider string) (domain.ProviderConnection, error)
	ListActiveByTenant(ctx context.Context, tenantID, provider string) ([]domain.ProviderConnection, error)
	// Upsert persists a connection keyed (user_id, provider), replacing
	// token material on conflict. Overlapping refreshes are
	// last-writer-wins; any valid token is as good as another.
	Upsert(ctx context.Context, conn domain.ProviderConnection) (domain.ProviderConnection, error)
	// Deactivate soft-deletes on disconnect. Rows are never hard-deleted
	// while bookings reference them.
	Deactivate(ctx context.Context, userID, provider string) error
	TouchLastUsed(ctx context.Context, userID, provider string) error
}
