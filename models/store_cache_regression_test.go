package models_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/models"
	"github.com/clodeb/retail_backend/utils"
)

func TestStoreListCacheDropsOnWrite(t *testing.T) {
	ctx := integrationContext(t)
	ctx, _, _ = seedTenant(t, ctx)

	stores, err := models.GetStores(ctx)
	if err != nil {
		t.Fatalf("GetStores: %v", err)
	}
	if len(stores) != 2 {
		t.Fatalf("stores = %d, want 2", len(stores))
	}

	// second read is served from redis and must match
	cached, err := models.GetStores(ctx)
	if err != nil {
		t.Fatalf("GetStores (cached): %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("cached stores = %d, want 2", len(cached))
	}

	deposito, err := models.CreateStore(ctx, &models.NewStore{Name: "Deposito"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	stores, err = models.GetStores(ctx)
	if err != nil {
		t.Fatalf("GetStores after create: %v", err)
	}
	if len(stores) != 3 {
		t.Fatalf("stores after create = %d, want 3 (stale cache?)", len(stores))
	}

	if _, err := models.DeactivateStore(ctx, deposito.ID); err != nil {
		t.Fatalf("DeactivateStore: %v", err)
	}
	stores, err = models.GetStores(ctx)
	if err != nil {
		t.Fatalf("GetStores after deactivate: %v", err)
	}
	for _, s := range stores {
		if s.ID == deposito.ID && utils.DereferencePtr(s.Active) {
			t.Fatalf("deactivated store still active in list (stale cache?)")
		}
	}
}

func TestLoginRejectsInactiveTenant(t *testing.T) {
	ctx := integrationContext(t)
	ctx, _, _ = seedTenant(t, ctx)
	tenantId, _ := utils.GetTenantIdFromContext(ctx)

	email := fmt.Sprintf("seller-%d@test.local", time.Now().UnixNano())
	if _, err := models.CreateUser(ctx, &models.NewUser{
		Name:     "Seller",
		Email:    email,
		Password: "secret1234",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	err := config.GetDB().Model(&models.Tenant{}).
		Where("id = ?", tenantId).Update("active", false).Error
	if err != nil {
		t.Fatalf("deactivate tenant: %v", err)
	}

	_, _, err = models.Login(ctx, email, "secret1234")
	var ve *utils.ValidationError
	if err == nil || !errors.As(err, &ve) {
		t.Fatalf("login against inactive tenant: err=%v, want ValidationError", err)
	}

	// a user of a live tenant still gets in
	ctx2, _, _ := seedTenant(t, ctx)
	email2 := fmt.Sprintf("seller-%d@test.local", time.Now().UnixNano())
	if _, err := models.CreateUser(ctx2, &models.NewUser{
		Name:     "Seller",
		Email:    email2,
		Password: "secret1234",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, _, err := models.Login(ctx2, email2, "secret1234")
	if err != nil || token == "" {
		t.Fatalf("login against active tenant: token=%q err=%v", token, err)
	}
}
