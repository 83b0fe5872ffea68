package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
	"rfqportal/internal/credential"
	"rfqportal/internal/model"
	"rfqportal/internal/repository"
)

// --- DTOs ---

type AssignPermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required,min=1,dive,uuid"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID          string `json:"id"`
	Action      string `json:"action"`
	Resource    string `json:"resource"`
	Description string `json:"description"`
}

// SeedAdmin is the optional super-admin account created at startup.
type SeedAdmin struct {
	Email    string
	Password string
}

// --- Collaborators ---

// GrantReloader rebuilds and reports the in-memory grant table.
type GrantReloader interface {
	Reload(ctx context.Context) authz.Status
	Status() authz.Status
}

// GrantNotifier tells other instances that grants changed.
type GrantNotifier interface {
	Notify(ctx context.Context, reason string) error
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	GetRolePermissions(ctx context.Context, roleID string) (*RoleResponse, error)
	AssignPermissions(ctx context.Context, roleID string, req AssignPermissionsRequest) (*RoleResponse, error)
	ListGrants(ctx context.Context) ([]model.GrantRow, error)
	Status(ctx context.Context) authz.Status
	Reload(ctx context.Context) (authz.Status, error)
	SeedDefaults(ctx context.Context, admin SeedAdmin) error
}

type roleService struct {
	repo      repository.RoleRepository
	users     repository.UserRepository
	audit     AuditService
	txManager repository.TransactionManager
	engine    GrantReloader
	notifier  GrantNotifier
	logger    *slog.Logger
}

// NewRoleService wires grant administration. notifier may be nil on a single instance.
func NewRoleService(
	repo repository.RoleRepository,
	users repository.UserRepository,
	audit AuditService,
	txManager repository.TransactionManager,
	engine GrantReloader,
	notifier GrantNotifier,
	logger *slog.Logger,
) RoleService {
	return &roleService{
		repo:      repo,
		users:     users,
		audit:     audit,
		txManager: txManager,
		engine:    engine,
		notifier:  notifier,
		logger:    logger,
	}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) GetRolePermissions(ctx context.Context, roleID string) (*RoleResponse, error) {
	id, err := parseID(roleID, "role")
	if err != nil {
		return nil, err
	}
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) AssignPermissions(ctx context.Context, roleID string, req AssignPermissionsRequest) (*RoleResponse, error) {
	id, err := parseID(roleID, "role")
	if err != nil {
		return nil, err
	}
	permIDs := make([]uuid.UUID, 0, len(req.PermissionIDs))
	for _, raw := range req.PermissionIDs {
		pid, err := parseID(raw, "permission")
		if err != nil {
			return nil, err
		}
		permIDs = append(permIDs, pid)
	}
	permIDs = dedupIDs(permIDs)

	var role *model.Role
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		role, err = s.repo.ReplacePermissions(txCtx, id, permIDs)
		if err != nil {
			return err
		}
		codes := make([]string, 0, len(role.Permissions))
		for _, p := range role.Permissions {
			codes = append(codes, p.Action+":"+p.Resource)
		}
		return s.audit.Record(txCtx, model.ActionAssignRolePermissions, role.ID.String(), role.Name, map[string]interface{}{
			"permissions": codes,
		})
	})
	if err != nil {
		return nil, err
	}

	// The new grants only take effect once the table is rebuilt.
	s.propagate(ctx, "role "+role.Name+" permissions replaced")

	return s.GetRolePermissions(ctx, role.ID.String())
}

func (s *roleService) ListGrants(ctx context.Context) ([]model.GrantRow, error) {
	return s.repo.ListGrantRows(ctx)
}

func (s *roleService) Status(ctx context.Context) authz.Status {
	return s.engine.Status()
}

func (s *roleService) Reload(ctx context.Context) (authz.Status, error) {
	st := s.propagate(ctx, "manual reload")
	err := s.audit.Record(ctx, model.ActionReloadGrants, fmt.Sprint(st.Version), string(st.Origin), map[string]interface{}{
		"grants":     st.Grants,
		"load_error": st.LoadError,
	})
	return st, err
}

func (s *roleService) propagate(ctx context.Context, reason string) authz.Status {
	st := s.engine.Reload(ctx)
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, reason); err != nil {
			s.logger.Warn("failed to notify peers of grant change", "reason", reason, "err", err)
		}
	}
	return st
}

var roleDescriptions = map[string]string{
	authz.RoleUser:        "Reads its own records and raises RFQs",
	authz.RoleSalesPerson: "Works RFQs, customers, sales funnels and invoices",
	authz.RoleAdmin:       "Manages users and deletes records",
	authz.RoleSuperAdmin:  "Unrestricted access",
}

// SeedDefaults upserts the built-in roles and the full permission catalogue.
// Default grants are written only when no grant exists, so edits made through
// the API survive restarts.
func (s *roleService) SeedDefaults(ctx context.Context, admin SeedAdmin) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		roleIDs := make(map[string]uuid.UUID, len(authz.KnownRoles))
		for _, name := range authz.KnownRoles {
			role := model.Role{Name: name, Description: roleDescriptions[name], IsSystem: true}
			if err := s.repo.UpsertRole(txCtx, &role); err != nil {
				return fmt.Errorf("failed to seed role '%s': %w", name, err)
			}
			roleIDs[name] = role.ID
		}

		permIDs := make(map[authz.Grant]uuid.UUID, len(authz.Actions)*len(authz.Resources))
		for _, res := range authz.Resources {
			for _, act := range authz.Actions {
				perm := model.Permission{
					Action:      string(act),
					Resource:    string(res),
					Description: fmt.Sprintf("%s on %s", act, res),
				}
				if err := s.repo.UpsertPermission(txCtx, &perm); err != nil {
					return fmt.Errorf("failed to seed permission '%s:%s': %w", act, res, err)
				}
				permIDs[authz.Grant{Action: act, Resource: res}] = perm.ID
			}
		}

		n, err := s.repo.CountGrants(txCtx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		byRole := make(map[string][]uuid.UUID)
		for _, g := range authz.FallbackGrants() {
			byRole[g.Role] = append(byRole[g.Role], permIDs[authz.Grant{Action: g.Action, Resource: g.Resource}])
		}
		for _, name := range authz.KnownRoles {
			if len(byRole[name]) == 0 {
				continue
			}
			if _, err := s.repo.ReplacePermissions(txCtx, roleIDs[name], dedupIDs(byRole[name])); err != nil {
				return fmt.Errorf("failed to assign default permissions to '%s': %w", name, err)
			}
		}
		s.logger.Info("seeded default grants", "fallback_version", authz.FallbackVersion)
		return nil
	})
	if err != nil {
		return err
	}

	if strings.TrimSpace(admin.Email) != "" {
		if err := s.seedAdmin(ctx, admin); err != nil {
			return err
		}
	}
	return nil
}

func (s *roleService) seedAdmin(ctx context.Context, admin SeedAdmin) error {
	_, err := s.users.GetByEmail(ctx, admin.Email)
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return err
	}
	if len(admin.Password) < 8 {
		return apperr.New(apperr.KindInvalid, "seed admin password must be at least 8 characters")
	}

	hashed, err := credential.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	user := &model.User{
		Name:      "Super Admin",
		Email:     strings.ToLower(strings.TrimSpace(admin.Email)),
		ShortForm: "SA",
		Password:  hashed,
		IsActive:  true,
	}
	if err := s.users.Create(ctx, user, []string{authz.RoleSuperAdmin}); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	s.logger.Info("seeded super-admin account", "email", user.Email)
	return nil
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID.String(),
		Action:      p.Action,
		Resource:    p.Resource,
		Description: p.Description,
	}
}
