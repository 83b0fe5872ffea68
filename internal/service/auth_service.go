package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
	"rfqportal/internal/credential"
	"rfqportal/internal/model"
	"rfqportal/internal/otp"
	"rfqportal/internal/repository"
)

// ErrInvalidCredentials is returned for an unknown email, a wrong password or
// a deactivated account. Callers must not be able to tell these apart.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrSessionRevoked means the presented token is no longer the stored one.
var ErrSessionRevoked = credential.ErrSessionRevoked

// DTOs for Request validation
type RegisterRequest struct {
	Name      string      `json:"name" binding:"required,max=100"`
	Email     string      `json:"email" binding:"required,email"`
	ShortForm string      `json:"short_form" binding:"required,max=20"`
	Password  string      `json:"password" binding:"required,min=8"`
	// Role is accepted from older clients and ignored. Self-registered
	// accounts are always plain users; elevation goes through the user admin.
	Role      interface{} `json:"role,omitempty" swaggertype:"string"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,numeric"`
}

type LoginResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// DTO for returning User without exposing sensitive data
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ShortForm   string    `json:"short_form"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

// OTPNegotiator runs the two-step login.
type OTPNegotiator interface {
	Begin(ctx context.Context, identity otp.Identity) (time.Time, error)
	Verify(ctx context.Context, identity otp.Identity, submitted string) (*otp.Credential, error)
}

// RoleResolver normalises raw role claims.
type RoleResolver interface {
	Resolve(raw any) ([]string, error)
}

// PermissionLister reports the effective grants of a role set.
type PermissionLister interface {
	PermissionsFor(roles []string) []string
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*UserResponse, error)
	// ValidateSession checks that token is still the one stored for userID.
	ValidateSession(ctx context.Context, userID uuid.UUID, token string) error
}

type authService struct {
	users       repository.UserRepository
	negotiator  OTPNegotiator
	permissions PermissionLister
	audit       AuditService
	txManager   repository.TransactionManager
	logger      *slog.Logger
}

// NewAuthService wires the login flow.
func NewAuthService(users repository.UserRepository, negotiator OTPNegotiator, permissions PermissionLister, audit AuditService, txManager repository.TransactionManager, logger *slog.Logger) AuthService {
	return &authService{
		users:       users,
		negotiator:  negotiator,
		permissions: permissions,
		audit:       audit,
		txManager:   txManager,
		logger:      logger,
	}
}

func mapUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		ShortForm: user.ShortForm,
		Roles:     user.RoleNames(),
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func identityOf(user *model.User) otp.Identity {
	return otp.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Roles:  user.RoleNames(),
	}
}

// Register creates a plain user whatever role the body asks for.
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	hashed, err := credential.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		ShortForm: strings.TrimSpace(req.ShortForm),
		Password:  hashed,
		IsActive:  true,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.users.Create(txCtx, user, []string{authz.RoleUser})
	})
	if err != nil {
		return nil, err
	}
	return mapUserResponse(user), nil
}

func (s *authService) authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !credential.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	expiresAt, err := s.negotiator.Begin(ctx, identityOf(user))
	if err != nil {
		return nil, fmt.Errorf("failed to start otp session: %w", err)
	}
	return &LoginResponse{Message: "OTP sent to email", ExpiresAt: expiresAt}, nil
}

func (s *authService) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.New(apperr.KindNoPendingSession, "no pending login for %s", req.Email)
		}
		return nil, err
	}

	identity := identityOf(user)
	cred, err := s.negotiator.Verify(ctx, identity, req.OTP)
	if err != nil {
		return nil, err
	}

	actorCtx := authz.WithActor(ctx, authz.Actor{UserID: user.ID, Email: user.Email, Roles: identity.Roles})
	if err := s.audit.Record(actorCtx, model.ActionVerifyOTP, user.ID.String(), user.Email, map[string]interface{}{
		"roles": identity.Roles,
	}); err != nil {
		// the code is already consumed
		s.logger.Warn("audit verify-otp failed", "user_id", user.ID, "err", err)
	}

	resp := mapUserResponse(user)
	resp.Permissions = s.permissions.PermissionsFor(identity.Roles)
	return &AuthResponse{Token: cred.Token, ExpiresAt: cred.ExpiresAt, User: *resp}, nil
}

func (s *authService) Logout(ctx context.Context) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	return s.users.ClearToken(ctx, actor.UserID)
}

func (s *authService) Me(ctx context.Context) (*UserResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	resp := mapUserResponse(user)
	resp.Permissions = s.permissions.PermissionsFor(actor.Roles)
	return resp, nil
}

func (s *authService) ValidateSession(ctx context.Context, userID uuid.UUID, token string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return ErrSessionRevoked
		}
		return err
	}
	if !user.IsActive || user.Token == nil || *user.Token != token {
		return ErrSessionRevoked
	}
	return nil
}
