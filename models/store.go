package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/utils"
)

type Store struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;not null" json:"tenant_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Address   string    `gorm:"type:text" json:"address"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Active    *bool     `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Stores rarely change and the list is read on nearly every screen, so it is
// served through redis and dropped whenever a store row is written.
func storeListCacheKey(tenantId string) string {
	return fmt.Sprintf("stores:%s", tenantId)
}

func invalidateStoreListCache(tenantId string) {
	_ = config.RemoveRedisKey(storeListCacheKey(tenantId))
}

// validate input for both create & update. (id = 0 for create)

func (input *NewStore) validate(ctx context.Context, tenantId string, id int) error {
	if err := utils.ValidateUnique[Store](ctx, tenantId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateStore(ctx context.Context, input *NewStore) (*Store, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	store := Store{
		TenantId: tenantId,
		Name:     input.Name,
		Address:  input.Address,
		Phone:    input.Phone,
		Active:   utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&store).Error
	if err != nil {
		return nil, err
	}
	invalidateStoreListCache(tenantId)
	return &store, nil
}

func UpdateStore(ctx context.Context, id int, input *NewStore) (*Store, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if err := input.validate(ctx, tenantId, id); err != nil {
		return nil, err
	}

	store, err := utils.FetchModel[Store](ctx, tenantId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("store")
	}

	store.Name = input.Name
	store.Address = input.Address
	store.Phone = input.Phone

	db := config.GetDB()
	err = db.WithContext(ctx).Save(store).Error
	if err != nil {
		return nil, err
	}
	invalidateStoreListCache(tenantId)
	return store, nil
}

func GetStore(ctx context.Context, id int) (*Store, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	store, err := utils.FetchModel[Store](ctx, tenantId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("store")
	}
	return store, nil
}

func GetStores(ctx context.Context) ([]*Store, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var cached []*Store
	if found, err := config.GetRedisObject(storeListCacheKey(tenantId), &cached); err == nil && found {
		return cached, nil
	}

	stores, err := utils.FetchAllModels[Store](ctx, tenantId)
	if err != nil {
		return nil, err
	}
	_ = config.SetRedisObject(storeListCacheKey(tenantId), stores, 5*time.Minute)
	return stores, nil
}

// DeactivateStore soft-disables the store. Rows referencing it survive.
func DeactivateStore(ctx context.Context, id int) (*Store, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	store, err := utils.FetchModel[Store](ctx, tenantId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("store")
	}

	store.Active = utils.NewFalse()
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(store).Error; err != nil {
		return nil, err
	}
	invalidateStoreListCache(tenantId)
	return store, nil
}
