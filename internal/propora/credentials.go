package propora

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pkgsecrets "github.com/Haven-Estates/propora-adapter/pkg/secrets"
	"github.com/Haven-Estates/propora-adapter/pkg/utils"
)

// CredentialResolver assembles the Propora API key/secret pair.
// The dynamic secrets store is consulted first (secret {env}/propora/credentials,
// JSON {"api_key": "...", "api_secret": "..."}); any field it does not supply
// falls back to the static environment configuration.
//
// The resolved set is deliberately not cached here: credentials can be rotated
// independently of token expiry, and the TokenManager caches the *result* of
// using them, not the credentials themselves.
type CredentialResolver struct {
	logger   *zap.Logger
	provider pkgsecrets.Provider // may be nil when no secrets store is configured
	secret   string
	fallback CredentialSet
}

// NewCredentialResolver constructs a resolver for the given environment.
// fallback holds the static env-configured key/secret, either of which may be empty.
func NewCredentialResolver(logger *zap.Logger, provider pkgsecrets.Provider, env string, fallback CredentialSet) *CredentialResolver {
	return &CredentialResolver{
		logger:   logger,
		provider: provider,
		secret:   fmt.Sprintf("%s/propora/credentials", env),
		fallback: fallback,
	}
}

// Resolve returns a complete CredentialSet or ErrCredentialsMissing.
// A missing or unreadable dynamic secret is not fatal on its own; it only
// becomes fatal when the static fallback cannot fill the gap either.
func (r *CredentialResolver) Resolve(ctx context.Context) (CredentialSet, error) {
	var creds CredentialSet

	if r.provider != nil {
		m, err := r.provider.GetSecret(ctx, r.secret)
		if err != nil {
			r.logger.Debug("propora.dynamic_credentials_unavailable",
				zap.String("secret", r.secret),
				zap.Error(err))
		} else {
			creds.APIKey = m["api_key"]
			creds.APISecret = m["api_secret"]
		}
	}

	if creds.APIKey == "" {
		creds.APIKey = r.fallback.APIKey
	}
	if creds.APISecret == "" {
		creds.APISecret = r.fallback.APISecret
	}

	if creds.APIKey == "" || creds.APISecret == "" {
		return CredentialSet{}, ErrCredentialsMissing
	}

	r.logger.Debug("propora.credentials_resolved",
		zap.String("api_key", utils.MaskSecret(creds.APIKey)))
	return creds, nil
}
