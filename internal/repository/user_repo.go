package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rfqportal/internal/apperr"
	"rfqportal/internal/model"
	"rfqportal/internal/otp"
)

// UserRepository defines data access for users, their roles and their
// pending one-time code. It satisfies otp.SessionStore.
type UserRepository interface {
	otp.SessionStore

	Create(ctx context.Context, user *model.User, roleNames []string) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, search string, page, limit int) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	ReplaceRoles(ctx context.Context, userID uuid.UUID, roleNames []string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClearToken(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User, roleNames []string) error {
	db := GetDB(ctx, r.db)
	roles, err := findRoles(db, roleNames)
	if err != nil {
		return err
	}
	user.Roles = nil
	if err := db.Omit("Roles").Create(user).Error; err != nil {
		return translate(err, "user")
	}
	if len(roles) > 0 {
		if err := db.Model(user).Association("Roles").Append(roles); err != nil {
			return fmt.Errorf("attach roles: %w", err)
		}
	}
	user.Roles = roles
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Roles").First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Roles").First(&user, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, search string, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	query := GetDB(ctx, r.db).Model(&model.User{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ? OR short_form ILIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Roles").Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update writes profile columns only; the otp and token columns are owned by
// the session store methods.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	err := GetDB(ctx, r.db).Model(user).
		Select("name", "email", "short_form", "password", "is_active", "deactivated_at").
		Updates(user).Error
	return translate(err, "user")
}

func (r *userRepository) ReplaceRoles(ctx context.Context, userID uuid.UUID, roleNames []string) error {
	db := GetDB(ctx, r.db)
	roles, err := findRoles(db, roleNames)
	if err != nil {
		return err
	}
	user := model.User{ID: userID}
	if err := db.Model(&user).Association("Roles").Replace(roles); err != nil {
		return fmt.Errorf("replace roles: %w", err)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleted(GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.User{}), "user")
}

func (r *userRepository) ClearToken(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Update("token", nil).Error
}

// --- otp.SessionStore ---

func (r *userRepository) SaveCode(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"otp_code": code, "otp_expires": expiresAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}

func (r *userRepository) PendingCode(ctx context.Context, userID uuid.UUID) (string, time.Time, error) {
	var user model.User
	err := GetDB(ctx, r.db).Select("id", "otp_code", "otp_expires").First(&user, "id = ?", userID).Error
	if err != nil {
		return "", time.Time{}, translate(err, "user")
	}
	if user.OTPCode == nil || *user.OTPCode == "" || user.OTPExpires == nil {
		return "", time.Time{}, otp.ErrNoCode
	}
	return *user.OTPCode, *user.OTPExpires, nil
}

// ConsumeCode is a single conditional UPDATE: concurrent callers with the
// same code race on the row and at most one sees a row affected.
func (r *userRepository) ConsumeCode(ctx context.Context, userID uuid.UUID, code string, now time.Time, token string) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.User{}).
		Where("id = ? AND otp_code = ? AND otp_expires > ?", userID, code, now).
		Updates(map[string]interface{}{"otp_code": nil, "otp_expires": nil, "token": token})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func findRoles(db *gorm.DB, names []string) ([]model.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var roles []model.Role
	if err := db.Where("name IN ?", names).Find(&roles).Error; err != nil {
		return nil, err
	}
	if len(roles) != len(names) {
		return nil, apperr.New(apperr.KindInvalid, "one or more roles in %v do not exist", names)
	}
	// keep caller order
	byName := make(map[string]model.Role, len(roles))
	for _, role := range roles {
		byName[role.Name] = role
	}
	ordered := make([]model.Role, 0, len(names))
	for _, n := range names {
		ordered = append(ordered, byName[n])
	}
	return ordered, nil
}
