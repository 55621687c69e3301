package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/clodeb/retail_backend/models"
	"github.com/clodeb/retail_backend/utils"
	"github.com/shopspring/decimal"
)

func TestProductUpdateGuardsStockAgainstHolds(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	vidrio := seedAccessory(t, ctx, central.ID, "Vidrio Templado", 3, 4000)

	_, err := models.CreateAppointment(ctx, &models.NewAppointment{
		StoreId:      &central.ID,
		Date:         time.Now().AddDate(0, 0, 2),
		TimeSlot:     "11:00",
		CustomerName: "Juan Perez",
		ProductId:    &vidrio.ID,
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	// the editor cannot drop on-hand below the outstanding hold
	_, err = models.UpdateProduct(ctx, vidrio.ID, &models.NewProduct{
		StoreId:  central.ID,
		Name:     "Vidrio Templado",
		Category: models.ProductCategoryAccessory,
		Price:    decimal.NewFromInt(4000),
		Stock:    0,
	})
	var ve *utils.ValidationError
	if err == nil || !errors.As(err, &ve) {
		t.Fatalf("update below reserved: err=%v, want ValidationError", err)
	}

	after := reloadProduct(t, ctx, vidrio.ID)
	if after.Stock != 3 || after.Reserved != 1 {
		t.Fatalf("ledger after rejected update: stock=%d reserved=%d, want 3/1", after.Stock, after.Reserved)
	}

	// raising on-hand keeps the hold counter intact
	updated, err := models.UpdateProduct(ctx, vidrio.ID, &models.NewProduct{
		StoreId:  central.ID,
		Name:     "Vidrio Templado",
		Category: models.ProductCategoryAccessory,
		Price:    decimal.NewFromInt(4500),
		Stock:    10,
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if updated.Stock != 10 {
		t.Fatalf("stock after update = %d, want 10", updated.Stock)
	}
	after = reloadProduct(t, ctx, vidrio.ID)
	if after.Stock != 10 || after.Reserved != 1 {
		t.Fatalf("ledger after update: stock=%d reserved=%d, want 10/1", after.Stock, after.Reserved)
	}
	if !after.Price.Equal(decimal.NewFromInt(4500)) {
		t.Fatalf("price after update = %s, want 4500", after.Price)
	}
}

func TestProductStockAdjustmentFollowsActivationRule(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	cable := seedAccessory(t, ctx, central.ID, "Cable Lightning", 4, 6000)

	edit := func(stock int) (*models.Product, error) {
		return models.UpdateProduct(ctx, cable.ID, &models.NewProduct{
			StoreId:  central.ID,
			Name:     "Cable Lightning",
			Category: models.ProductCategoryAccessory,
			Price:    decimal.NewFromInt(6000),
			Stock:    stock,
		})
	}

	if _, err := edit(0); err != nil {
		t.Fatalf("UpdateProduct to zero: %v", err)
	}
	after := reloadProduct(t, ctx, cable.ID)
	if after.Stock != 0 || utils.DereferencePtr(after.Active) {
		t.Fatalf("adjusted to zero: stock=%d active=%v, want 0/false", after.Stock, utils.DereferencePtr(after.Active))
	}

	if _, err := edit(6); err != nil {
		t.Fatalf("UpdateProduct back above zero: %v", err)
	}
	after = reloadProduct(t, ctx, cable.ID)
	if after.Stock != 6 || !utils.DereferencePtr(after.Active) {
		t.Fatalf("adjusted above zero: stock=%d active=%v, want 6/true", after.Stock, utils.DereferencePtr(after.Active))
	}
}
