package service

import (
	"context"
	"log/slog"
	"strings"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
	"rfqportal/internal/credential"
	"rfqportal/internal/model"
	"rfqportal/internal/repository"
)

type UpdateUserRequest struct {
	Name      string      `json:"name" binding:"omitempty,max=100"`
	Email     string      `json:"email" binding:"omitempty,email"`
	ShortForm string      `json:"short_form" binding:"omitempty,max=20"`
	Password  string      `json:"password" binding:"omitempty,min=8"`
	Roles     interface{} `json:"roles" swaggertype:"array,string"`
	IsActive  *bool       `json:"is_active"`
}

// UserService defines user administration.
type UserService interface {
	ListUsers(ctx context.Context, search string, page, limit int) ([]UserResponse, int64, error)
	GetUser(ctx context.Context, id string) (*UserResponse, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, id string) error
}

type userService struct {
	repo      repository.UserRepository
	resolver  RoleResolver
	audit     AuditService
	txManager repository.TransactionManager
	logger    *slog.Logger
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, resolver RoleResolver, audit AuditService, txManager repository.TransactionManager, logger *slog.Logger) UserService {
	return &userService{repo: repo, resolver: resolver, audit: audit, txManager: txManager, logger: logger}
}

func (s *userService) ListUsers(ctx context.Context, search string, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, strings.TrimSpace(search), page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	uid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return mapUserResponse(user), nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error) {
	uid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}

	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	var roles []string
	if req.Roles != nil {
		// explicit roles must contain at least one known name
		if roles, err = s.resolver.Resolve(req.Roles); err != nil {
			return nil, err
		}
		if authz.Rank(roles) > authz.Rank(actor.Roles) {
			return nil, apperr.New(apperr.KindUnauthorized, "cannot assign roles %v above your own", roles)
		}
	}

	var updated *model.User
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByID(txCtx, uid)
		if err != nil {
			return err
		}
		if roles != nil && authz.Rank(user.RoleNames()) > authz.Rank(actor.Roles) {
			return apperr.New(apperr.KindUnauthorized, "cannot change the roles of a user ranked above you")
		}

		if req.Name != "" {
			user.Name = strings.TrimSpace(req.Name)
		}
		if req.Email != "" {
			user.Email = strings.ToLower(strings.TrimSpace(req.Email))
		}
		if req.ShortForm != "" {
			user.ShortForm = strings.TrimSpace(req.ShortForm)
		}
		if req.Password != "" {
			hashed, err := credential.HashPassword(req.Password)
			if err != nil {
				return err
			}
			user.Password = hashed
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}

		if err := s.repo.Update(txCtx, user); err != nil {
			return err
		}
		if roles != nil {
			if err := s.repo.ReplaceRoles(txCtx, uid, roles); err != nil {
				return err
			}
		}
		// tokens carry roles, so a role change or deactivation ends the session
		if roles != nil || (req.IsActive != nil && !*req.IsActive) {
			if err := s.repo.ClearToken(txCtx, uid); err != nil {
				return err
			}
		}

		updated, err = s.repo.GetByID(txCtx, uid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mapUserResponse(updated), nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	uid, err := parseID(id, "user")
	if err != nil {
		return err
	}
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	if actor.UserID == uid {
		return apperr.New(apperr.KindInvalid, "you cannot delete your own account")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByID(txCtx, uid)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, uid); err != nil {
			return err
		}
		s.logger.Info("user deleted", "user_id", uid, "by", actor.UserID)
		return s.audit.Record(txCtx, model.ActionDeleteUser, uid.String(), user.Email, map[string]interface{}{
			"name":  user.Name,
			"roles": user.RoleNames(),
		})
	})
}
