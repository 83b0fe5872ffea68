package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rfqportal/internal/apperr"
	"rfqportal/internal/authz"
	"rfqportal/internal/model"
)

// RoleRepository is the grant store: roles, the permission catalogue and the
// role_permissions rows between them. It satisfies authz.GrantSource.
type RoleRepository interface {
	authz.GrantSource

	ListRoles(ctx context.Context) ([]model.Role, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	ListGrantRows(ctx context.Context) ([]model.GrantRow, error)
	ReplacePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) (*model.Role, error)
	UpsertRole(ctx context.Context, role *model.Role) error
	UpsertPermission(ctx context.Context, perm *model.Permission) error
	CountGrants(ctx context.Context) (int64, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) ListRoles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").Order("created_at asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	err := GetDB(ctx, r.db).
		Preload("Permissions", func(db *gorm.DB) *gorm.DB { return db.Order("resource asc, action asc") }).
		First(&role, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "role")
	}
	return &role, nil
}

func (r *roleRepository) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	if err := GetDB(ctx, r.db).Order("resource asc, action asc").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *roleRepository) ListGrantRows(ctx context.Context) ([]model.GrantRow, error) {
	var rows []model.GrantRow
	err := GetDB(ctx, r.db).Table("role_permissions rp").
		Select("r.name AS role, p.action AS action, p.resource AS resource").
		Joins("JOIN roles r ON r.id = rp.role_id").
		Joins("JOIN permissions p ON p.id = rp.permission_id").
		Order("r.name, p.resource, p.action").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	return rows, nil
}

// ListGrants feeds the authorization engine.
func (r *roleRepository) ListGrants(ctx context.Context) ([]authz.Grant, error) {
	rows, err := r.ListGrantRows(ctx)
	if err != nil {
		return nil, err
	}
	grants := make([]authz.Grant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, authz.Grant{
			Role:     row.Role,
			Action:   authz.Action(row.Action),
			Resource: authz.Resource(row.Resource),
		})
	}
	return grants, nil
}

func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) (*model.Role, error) {
	db := GetDB(ctx, r.db)
	var role model.Role
	if err := db.First(&role, "id = ?", roleID).Error; err != nil {
		return nil, translate(err, "role")
	}

	unique := make(map[uuid.UUID]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		unique[id] = struct{}{}
	}
	var perms []model.Permission
	if err := db.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
		return nil, err
	}
	if len(perms) != len(unique) {
		return nil, apperr.New(apperr.KindInvalid, "one or more permission ids do not exist")
	}

	if err := db.Model(&role).Association("Permissions").Replace(perms); err != nil {
		return nil, fmt.Errorf("failed to replace permissions: %w", err)
	}
	role.Permissions = perms
	return &role, nil
}

func (r *roleRepository) UpsertRole(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).
		Where(model.Role{Name: role.Name}).
		Assign(model.Role{Description: role.Description, IsSystem: role.IsSystem}).
		FirstOrCreate(role).Error
}

func (r *roleRepository) UpsertPermission(ctx context.Context, perm *model.Permission) error {
	db := GetDB(ctx, r.db)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "action"}, {Name: "resource"}},
		DoUpdates: clause.AssignmentColumns([]string{"description"}),
	}).Create(perm).Error; err != nil {
		return err
	}
	// ON CONFLICT does not return the existing id.
	return db.Where("action = ? AND resource = ?", perm.Action, perm.Resource).First(perm).Error
}

func (r *roleRepository) CountGrants(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.RolePermission{}).Count(&n).Error
	return n, err
}
