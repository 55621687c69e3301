package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/utils"
	"gorm.io/gorm"
)

type Tenant struct {
	ID        string    `gorm:"primary_key;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Slug      string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Currency  string    `gorm:"size:3;not null;default:ARS" json:"currency"`
	Plan      string    `gorm:"size:20;not null;default:BASIC" json:"plan"`
	Active    *bool     `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func tenantCacheKey(id string) string {
	return fmt.Sprintf("tenant:%s", id)
}

// GetTenantById reads through a short-lived redis cache. The tenant row is
// immutable for the lifetime of a request, so staleness is acceptable.
func GetTenantById(ctx context.Context, id string) (*Tenant, error) {
	var tenant Tenant

	found, err := config.GetRedisObject(tenantCacheKey(id), &tenant)
	if err == nil && found {
		return &tenant, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("tenant", id)
		}
		return nil, err
	}

	_ = config.SetRedisObject(tenantCacheKey(id), &tenant, 10*time.Minute)
	return &tenant, nil
}

func ValidateTenantActive(ctx context.Context, id string) error {
	tenant, err := GetTenantById(ctx, id)
	if err != nil {
		return err
	}
	if !utils.DereferencePtr(tenant.Active) {
		return utils.NewValidationError("tenant is inactive")
	}
	return nil
}
