package provider

import (
	"context"
	"log/slog"
	"time"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/store"
)

// TokenManager hands out valid access tokens for both provider classes:
// user-credential connections refreshed ahead of expiry, and
// server-credential providers minting from account configuration.
type TokenManager struct {
	conns      store.ConnectionRepository
	exchangers map[string]RefreshExchanger
	minters    map[string]AccountMinter
	log        *slog.Logger
	now        func() time.Time
}

func NewTokenManager(conns store.ConnectionRepository, log *slog.Logger) *TokenManager {
	return &TokenManager{
		conns:      conns,
		exchangers: make(map[string]RefreshExchanger),
		minters:    make(map[string]AccountMinter),
		log:        log,
		now:        time.Now,
	}
}

func (m *TokenManager) RegisterExchanger(providerName string, ex RefreshExchanger) {
	m.exchangers[providerName] = ex
}

func (m *TokenManager) RegisterMinter(providerName string, minter AccountMinter) {
	m.minters[providerName] = minter
}

// IsServerCredential reports whether the provider mints account-level
// tokens and therefore needs no stored per-user connection.
func (m *TokenManager) IsServerCredential(providerName string) bool {
	_, ok := m.minters[providerName]
	return ok
}

// AccountToken mints a fresh token from account-level credentials.
func (m *TokenManager) AccountToken(ctx context.Context, providerName string) (string, error) {
	minter, ok := m.minters[providerName]
	if !ok {
		return "", NewError(CodeUnsupportedProvider, providerName, nil)
	}
	pair, err := minter.MintAccountToken(ctx)
	if err != nil {
		return "", NewError(CodeRefreshFailed, providerName, err)
	}
	return pair.AccessToken, nil
}

// Token returns a usable access token for the connection, refreshing it
// first when it is expiring or expired.
func (m *TokenManager) Token(ctx context.Context, conn domain.ProviderConnection) (string, error) {
	state := conn.State(m.now().UTC())
	if state == domain.TokenStateRevoked {
		return "", NewError(CodeNoConnection, conn.Provider, nil)
	}

	token := conn.AccessToken
	if state != domain.TokenStateActive {
		refreshed, err := m.refresh(ctx, conn)
		if err != nil {
			return "", err
		}
		token = refreshed.AccessToken
	}

	// Telemetry only; a failed touch never fails the call.
	if err := m.conns.TouchLastUsed(ctx, conn.UserID, conn.Provider); err != nil {
		m.log.Warn("touch last_used_at failed",
			slog.String("provider", conn.Provider),
			slog.String("user_id", conn.UserID),
			slog.Any("err", err))
	}

	return token, nil
}

func (m *TokenManager) refresh(ctx context.Context, conn domain.ProviderConnection) (domain.ProviderConnection, error) {
	if conn.RefreshToken == "" {
		return domain.ProviderConnection{}, NewError(CodeNoRefreshToken, conn.Provider, nil)
	}
	ex, ok := m.exchangers[conn.Provider]
	if !ok {
		return domain.ProviderConnection{}, NewError(CodeUnsupportedProvider, conn.Provider, nil)
	}

	pair, err := ex.ExchangeRefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		return domain.ProviderConnection{}, NewError(CodeRefreshFailed, conn.Provider, err)
	}

	conn.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		conn.RefreshToken = pair.RefreshToken
	}
	conn.ExpiresAt = pair.ExpiresAt
	if pair.Scope != "" {
		conn.Scope = pair.Scope
	}

	updated, err := m.conns.Upsert(ctx, conn)
	if err != nil {
		return domain.ProviderConnection{}, err
	}

	m.log.Info("provider token refreshed",
		slog.String("provider", conn.Provider),
		slog.String("user_id", conn.UserID),
		slog.Time("expires_at", updated.ExpiresAt))

	return updated, nil
}
