package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/repository"
)

// AccountService registers campus users and reads their accounts.
type AccountService struct {
	users          UserStore
	allowedDomains []string
	logger         *slog.Logger
}

// NewAccountService creates an AccountService. An empty allowedDomains
// accepts any email domain.
func NewAccountService(users UserStore, allowedDomains []string, logger *slog.Logger) *AccountService {
	return &AccountService{
		users:          users,
		allowedDomains: allowedDomains,
		logger:         logger.With("component", "account"),
	}
}

// Register creates the account for id. Registering an existing account
// returns it with created=false.
func (s *AccountService) Register(ctx context.Context, id model.Identity) (*model.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return nil, false, invalid("email", "is required")
	}
	if !s.domainAllowed(email) {
		return nil, false, ErrEmailDomainNotAllowed
	}

	name := strings.TrimSpace(id.DisplayName)
	if name == "" {
		name = DefaultSellerName
	}

	user, created, err := s.users.CreateUser(ctx, &model.User{
		ID:          id.UserID,
		Email:       email,
		DisplayName: name,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, false, ErrEmailTaken
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	if created {
		s.logger.Info("user registered", slog.String("user_id", user.ID))
	}
	return user, created, nil
}

// Get returns the account of userID with its entitlement.
func (s *AccountService) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Payments returns the most recent simulated unlock receipts of userID.
func (s *AccountService) Payments(ctx context.Context, userID string, limit int) ([]*model.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.users.ListPaymentsByUser(ctx, userID, limit)
}

func (s *AccountService) domainAllowed(email string) bool {
	if len(s.allowedDomains) == 0 {
		return true
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, allowed := range s.allowedDomains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			return true
		}
	}
	return false
}
