package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenState classifies how much life a stored access token has left.
type TokenState string

const (
	TokenStateActive   TokenState = "active"
	TokenStateExpiring TokenState = "expiring"
	TokenStateExpired  TokenState = "expired"
	TokenStateRevoked  TokenState = "revoked"
)

// ExpiryThreshold is how close to expiry a token counts as expiring and
// gets refreshed ahead of use.
const ExpiryThreshold = 5 * time.Minute

// ProviderConnection stores per-user credential material for a provider
// obtained through interactive consent. Server-credential providers mint
// tokens from account configuration and never have a row here.
type ProviderConnection struct {
	bun.BaseModel `bun:"table:provider_connections"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	UserID       string    `bun:"user_id,notnull"`
	TenantID     string    `bun:"tenant_id,notnull"`
	Provider     string    `bun:"provider,notnull"`
	AccessToken  string    `bun:"access_token,notnull"`
	RefreshToken string    `bun:"refresh_token"`
	ExpiresAt    time.Time `bun:"expires_at,notnull"`
	Scope        string    `bun:"scope"`
	IsActive     bool      `bun:"is_active,notnull"`
	LastUsedAt   time.Time `bun:"last_used_at"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

func (c *ProviderConnection) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if c.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			c.ID = id
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		c.UpdatedAt = now
	}
	return nil
}

// State classifies the connection's token at the given instant.
func (c *ProviderConnection) State(now time.Time) TokenState {
	if !c.IsActive {
		return TokenStateRevoked
	}
	switch {
	case !now.Before(c.ExpiresAt):
		return TokenStateExpired
	case c.ExpiresAt.Sub(now) <= ExpiryThreshold:
		return TokenStateExpiring
	default:
		return TokenStateActive
	}
}
