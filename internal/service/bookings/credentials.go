package bookings

import (
	"context"
	"errors"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/identity"
	"meetloop/backend/internal/provider"
	"meetloop/backend/internal/store"
)

// CredentialResolver picks the credentials backing a provider call:
// account credentials for server-credential providers, otherwise the
// actor's connection when they have one, falling back to any tenant
// admin with an active connection.
type CredentialResolver struct {
	tokens *provider.TokenManager
	conns  store.ConnectionRepository
	admins identity.AdminResolver
}

func NewCredentialResolver(tokens *provider.TokenManager, conns store.ConnectionRepository, admins identity.AdminResolver) *CredentialResolver {
	return &CredentialResolver{tokens: tokens, conns: conns, admins: admins}
}

func (r *CredentialResolver) AccessToken(ctx context.Context, tenantID, actorID, providerName string) (string, error) {
	if r.tokens.IsServerCredential(providerName) {
		return r.tokens.AccountToken(ctx, providerName)
	}

	conn, err := r.connectionFor(ctx, tenantID, actorID, providerName)
	if err != nil {
		return "", err
	}
	return r.tokens.Token(ctx, conn)
}

func (r *CredentialResolver) connectionFor(ctx context.Context, tenantID, actorID, providerName string) (conn domain.ProviderConnection, err error) {
	candidates := make([]string, 0, 4)
	if actorID != "" {
		candidates = append(candidates, actorID)
	}
	adminIDs, err := r.admins.Admins(ctx, tenantID)
	if err != nil {
		return conn, err
	}
	for _, id := range adminIDs {
		if id != actorID {
			candidates = append(candidates, id)
		}
	}

	for _, userID := range candidates {
		c, err := r.conns.GetActive(ctx, userID, providerName)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return conn, err
		}
	}
	return conn, provider.NewError(provider.CodeNoConnection, providerName, nil)
}
