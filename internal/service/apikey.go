package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campuskart/campuskart/internal/auth"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/repository"
	"github.com/oklog/ulid/v2"
)

// ErrAPIKeyNotFound is returned for unknown or already revoked keys.
var ErrAPIKeyNotFound = errors.New("API key not found")

// APIKeyStore persists operator API keys.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	RevokeAPIKey(ctx context.Context, id string) error
}

// APIKeyService issues and revokes operator keys for the admin API.
type APIKeyService struct {
	store  APIKeyStore
	env    string
	logger *slog.Logger
}

// NewAPIKeyService creates an APIKeyService. env is auth.EnvLive or auth.EnvTest.
func NewAPIKeyService(store APIKeyStore, env string, logger *slog.Logger) *APIKeyService {
	return &APIKeyService{store: store, env: env, logger: logger.With("component", "apikey")}
}

// Create issues a key with the given scopes, defaulting to read.
// The plaintext is returned once and never stored.
func (s *APIKeyService) Create(ctx context.Context, name string, scopes []string) (*model.APIKey, string, error) {
	if len(scopes) == 0 {
		scopes = []string{model.ScopeRead}
	}
	if !model.AreScopesValid(scopes) {
		return nil, "", invalid("scopes", "must be read or admin")
	}

	generated, err := auth.GenerateAPIKey(s.env)
	if err != nil {
		return nil, "", fmt.Errorf("generate API key: %w", err)
	}

	key := &model.APIKey{
		ID:        ulid.Make().String(),
		Name:      strings.TrimSpace(name),
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    scopes,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}

	s.logger.Info("API key created",
		slog.String("key_id", key.ID),
		slog.String("key_prefix", key.KeyPrefix),
		slog.Any("scopes", key.Scopes),
	)
	return key, generated.Plaintext, nil
}

// Revoke disables a key. Cached authentications expire within the auth cache TTL.
func (s *APIKeyService) Revoke(ctx context.Context, id string) error {
	if err := s.store.RevokeAPIKey(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return ErrAPIKeyNotFound
		}
		return err
	}
	s.logger.Info("API key revoked", slog.String("key_id", id))
	return nil
}
