package models_test

import (
	"testing"
	"time"

	"github.com/clodeb/retail_backend/models"
	"github.com/shopspring/decimal"
)

func TestTransferPartialSplitsAndMerges(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, branch := seedTenant(t, ctx)

	source := seedAccessory(t, ctx, central.ID, "Funda Silicona", 10, 9500)
	dest := seedAccessory(t, ctx, branch.ID, "Funda Silicona", 2, 9500)

	affected, qty, err := models.TransferProduct(ctx, &models.TransferInput{
		ProductId:     &source.ID,
		TargetStoreId: branch.ID,
		Quantity:      3,
	})
	if err != nil {
		t.Fatalf("TransferProduct: %v", err)
	}
	if qty != 3 {
		t.Fatalf("transferred = %d, want 3", qty)
	}
	if affected.ID != dest.ID {
		t.Fatalf("merge created a new row instead of merging into %d", dest.ID)
	}

	if got := reloadProduct(t, ctx, source.ID).Stock; got != 7 {
		t.Fatalf("source stock = %d, want 7", got)
	}
	if got := reloadProduct(t, ctx, dest.ID).Stock; got != 5 {
		t.Fatalf("destination stock = %d, want 5", got)
	}
}

func TestTransferPartialCreatesRowWhenNoMatch(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, branch := seedTenant(t, ctx)

	source := seedAccessory(t, ctx, central.ID, "Cargador 20W", 6, 18000)

	affected, qty, err := models.TransferProduct(ctx, &models.TransferInput{
		ProductId:     &source.ID,
		TargetStoreId: branch.ID,
		Quantity:      2,
	})
	if err != nil {
		t.Fatalf("TransferProduct: %v", err)
	}
	if qty != 2 || affected.ID == source.ID {
		t.Fatalf("expected a new destination row with qty 2, got id=%d qty=%d", affected.ID, qty)
	}
	if affected.StoreId != branch.ID || affected.Stock != 2 {
		t.Fatalf("destination row store=%d stock=%d, want %d/2", affected.StoreId, affected.Stock, branch.ID)
	}
	if got := reloadProduct(t, ctx, source.ID).Stock; got != 4 {
		t.Fatalf("source stock = %d, want 4", got)
	}
}

func TestTransferFullQuantityRelocatesRow(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, branch := seedTenant(t, ctx)

	source := seedAccessory(t, ctx, central.ID, "Vidrio Templado", 4, 6000)

	// requesting more than on hand caps at the full stock and relocates
	affected, qty, err := models.TransferProduct(ctx, &models.TransferInput{
		ProductId:     &source.ID,
		TargetStoreId: branch.ID,
		Quantity:      99,
	})
	if err != nil {
		t.Fatalf("TransferProduct: %v", err)
	}
	if qty != 4 || affected.ID != source.ID {
		t.Fatalf("full transfer: id=%d qty=%d, want same row / 4", affected.ID, qty)
	}
	if got := reloadProduct(t, ctx, source.ID).StoreId; got != branch.ID {
		t.Fatalf("row store = %d, want %d", got, branch.ID)
	}
}

func TestTransferByImeiRelocatesUnit(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, branch := seedTenant(t, ctx)

	imei := "358472063981673"
	phone, err := models.CreateProduct(ctx, &models.NewProduct{
		StoreId:  central.ID,
		Name:     "iPhone 12 64GB",
		Imei:     &imei,
		Category: models.ProductCategoryPhone,
		Price:    decimal.NewFromInt(450),
		Stock:    1,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	affected, qty, err := models.TransferProduct(ctx, &models.TransferInput{
		Imei:          &imei,
		TargetStoreId: branch.ID,
	})
	if err != nil {
		t.Fatalf("TransferProduct: %v", err)
	}
	if qty != 1 || affected.ID != phone.ID || affected.StoreId != branch.ID {
		t.Fatalf("imei transfer: id=%d store=%d qty=%d", affected.ID, affected.StoreId, qty)
	}
}

func TestTransferRejectsHeldUnits(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, branch := seedTenant(t, ctx)

	source := seedAccessory(t, ctx, central.ID, "Auriculares BT", 3, 25000)

	// hold 2 of the 3 units via appointments
	for i := 0; i < 2; i++ {
		if _, err := models.CreateAppointment(ctx, &models.NewAppointment{
			Date:         time.Now().AddDate(0, 0, 1),
			CustomerName: "Holder",
			ProductId:    &source.ID,
		}); err != nil {
			t.Fatalf("CreateAppointment: %v", err)
		}
	}

	// moving 2 would leave stock below the held quantity
	_, _, err := models.TransferProduct(ctx, &models.TransferInput{
		ProductId:     &source.ID,
		TargetStoreId: branch.ID,
		Quantity:      2,
	})
	if err == nil {
		t.Fatalf("transfer of held units succeeded")
	}

	// moving the one free unit is fine
	_, qty, err := models.TransferProduct(ctx, &models.TransferInput{
		ProductId:     &source.ID,
		TargetStoreId: branch.ID,
		Quantity:      1,
	})
	if err != nil {
		t.Fatalf("TransferProduct: %v", err)
	}
	if qty != 1 {
		t.Fatalf("transferred = %d, want 1", qty)
	}
}
