package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// PermissionSyncer attaches a permission to a user outside a requester
// context, used by the admin bootstrap on login.
type PermissionSyncer interface {
	SyncGrant(ctx context.Context, userID uuid.UUID, name string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo       Repository
	perms      PermissionSyncer
	logger     *slog.Logger
	adminEmail string
}

// NewService constructs a new Service. adminEmail, when set, names the
// account that is promoted to ADMIN on login.
func NewService(repo Repository, perms PermissionSyncer, logger *slog.Logger, adminEmail string) *Service {
	return &Service{repo: repo, perms: perms, logger: logger, adminEmail: strings.ToLower(adminEmail)}
}

// Authenticate validates email/password credentials. Every failure mode
// collapses into the same invalid-credentials error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return account, nil
}

// Register creates a new account with the USER role.
func (s *Service) Register(ctx context.Context, email, name, password string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return nil, fmt.Errorf("%w: email and name required", shared.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password too short", shared.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.CreateAccount(ctx, Account{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         string(rbac.RoleUser),
	})
}

// SyncAdmin promotes the configured bootstrap account on login. It
// reports whether a promotion applied; its outcome is independent of the
// login itself, which has already succeeded by the time this runs.
func (s *Service) SyncAdmin(ctx context.Context, account *Account) (bool, error) {
	if s.adminEmail == "" || !strings.EqualFold(account.Email, s.adminEmail) {
		return false, nil
	}
	if account.Role != string(rbac.RoleAdmin) {
		if err := s.repo.SetRole(ctx, account.ID, string(rbac.RoleAdmin)); err != nil {
			return true, fmt.Errorf("auth: promote admin: %w", err)
		}
		account.Role = string(rbac.RoleAdmin)
	}
	if s.perms != nil {
		if err := s.perms.SyncGrant(ctx, account.ID, shared.PermAdmin); err != nil {
			return true, fmt.Errorf("auth: sync admin grant: %w", err)
		}
	}
	return true, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
