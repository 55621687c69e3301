package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;not null" json:"tenant_id"`
	StoreId   *int      `gorm:"index" json:"store_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:100;not null;index" json:"email" binding:"required"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;not null;default:SELLER" json:"role"`
	Active    *bool     `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	StoreId  *int     `json:"store_id"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required"`
	Password string   `json:"password" binding:"required"`
	Role     UserRole `json:"role"`
}

func (input *NewUser) validate(ctx context.Context, tenantId string, id int) error {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !utils.IsValidEmail(email) {
		return utils.NewValidationError("invalid email")
	}
	if err := utils.ValidateUnique[User](ctx, tenantId, "email", email, id); err != nil {
		return err
	}
	if input.Role != "" && input.Role != UserRoleAdmin && input.Role != UserRoleSeller {
		return utils.NewValidationError("invalid role")
	}
	if input.StoreId != nil {
		if err := utils.ValidateResourceId[Store](ctx, tenantId, *input.StoreId); err != nil {
			return utils.NewNotFoundError("store")
		}
	}
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	hashedStr := string(hashed)

	role := input.Role
	if role == "" {
		role = UserRoleSeller
	}

	user := User{
		TenantId: tenantId,
		StoreId:  input.StoreId,
		Name:     input.Name,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Password: hashedStr,
		Role:     role,
		Active:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and returns a signed token. Lookup bypasses the
// tenant guard since the tenant is not known before the user row is found.
func Login(ctx context.Context, email string, password string) (string, *User, error) {

	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var user User
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("email = ? AND active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, utils.NewValidationError("invalid email or password")
		}
		return "", nil, err
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		return "", nil, utils.NewValidationError("invalid email or password")
	}

	if err := ValidateTenantActive(ctx, user.TenantId); err != nil {
		return "", nil, err
	}

	token, err := utils.JwtGenerate(user.ID, user.TenantId, string(user.Role), user.Name, user.Email)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	user, err := utils.FetchModel[User](ctx, tenantId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("user")
	}
	return user, nil
}

func GetUsers(ctx context.Context) ([]*User, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchAllModels[User](ctx, tenantId)
}

func DeactivateUser(ctx context.Context, id int) (*User, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	user, err := utils.FetchModel[User](ctx, tenantId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("user")
	}

	user.Active = utils.NewFalse()
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
