package models_test

import (
	"errors"
	"testing"

	"github.com/clodeb/retail_backend/models"
	"github.com/clodeb/retail_backend/utils"
	"github.com/shopspring/decimal"
)

func TestValidateIMEI(t *testing.T) {
	valid := []string{
		"490154203237518",
		"358472063981673",
		"867534091234567",
	}
	for _, imei := range valid {
		if err := models.ValidateIMEI(imei); err != nil {
			t.Fatalf("ValidateIMEI(%q) = %v, want nil", imei, err)
		}
	}

	invalid := []struct {
		imei string
		why  string
	}{
		{"", "empty"},
		{"49015420323751", "14 digits"},
		{"4901542032375189", "16 digits"},
		{"49015420323751a", "non-digit"},
		{"490154203237519", "bad check digit"},
	}
	for _, tc := range invalid {
		if err := models.ValidateIMEI(tc.imei); err == nil {
			t.Fatalf("ValidateIMEI(%q) = nil, want error (%s)", tc.imei, tc.why)
		}
	}
}

func saleInput(total int64, discount int64, items ...models.NewSaleItem) *models.NewSale {
	return &models.NewSale{
		StoreId:       1,
		Total:         decimal.NewFromInt(total),
		Discount:      decimal.NewFromInt(discount),
		PaymentMethod: models.PaymentMethodCash,
		Items:         items,
	}
}

func item(productId int, qty int, price int64) models.NewSaleItem {
	return models.NewSaleItem{ProductId: productId, Quantity: qty, Price: decimal.NewFromInt(price)}
}

func TestValidateSaleInputArithmetic(t *testing.T) {
	// 2x100 + 1x50 - 30 = 220
	if err := models.ValidateSaleInput(saleInput(220, 30, item(1, 2, 100), item(2, 1, 50))); err != nil {
		t.Fatalf("exact total rejected: %v", err)
	}

	// off by 1 is inside the default tolerance
	if err := models.ValidateSaleInput(saleInput(219, 30, item(1, 2, 100), item(2, 1, 50))); err != nil {
		t.Fatalf("total within tolerance rejected: %v", err)
	}

	// off by 2 is outside
	err := models.ValidateSaleInput(saleInput(218, 30, item(1, 2, 100), item(2, 1, 50)))
	var validation *utils.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("total outside tolerance: got %v, want ValidationError", err)
	}
	if validation.Details["difference"] == nil {
		t.Fatalf("mismatch error carries no difference detail: %#v", validation.Details)
	}

	// a zero-price line counts as zero; the declared total must not assume
	// the catalog price gets substituted
	if err := models.ValidateSaleInput(saleInput(100, 0, item(1, 1, 100), item(2, 1, 0))); err != nil {
		t.Fatalf("zero-price line rejected: %v", err)
	}
	err = models.ValidateSaleInput(saleInput(220, 0, item(1, 1, 100), item(2, 1, 0)))
	if !errors.As(err, &validation) {
		t.Fatalf("total assuming substituted price: got %v, want ValidationError", err)
	}

	// a wildly wrong total gets the distinct message
	err = models.ValidateSaleInput(saleInput(5000, 0, item(1, 1, 100)))
	if !errors.As(err, &validation) {
		t.Fatalf("large mismatch: got %v, want ValidationError", err)
	}
	if validation.Message != "total mismatch too large to be rounding" {
		t.Fatalf("large mismatch message = %q", validation.Message)
	}
}

func TestValidateSaleInputRejects(t *testing.T) {
	cases := []struct {
		name  string
		input *models.NewSale
	}{
		{"no items", saleInput(100, 0)},
		{"zero total", saleInput(0, 0, item(1, 1, 100))},
		{"negative discount", saleInput(100, -5, item(1, 1, 100))},
		{"zero quantity", saleInput(100, 0, item(1, 0, 100))},
		{"negative price", saleInput(100, 0, item(1, 1, -100))},
		{"discount exceeds items", saleInput(1, 200, item(1, 1, 100))},
	}
	for _, tc := range cases {
		err := models.ValidateSaleInput(tc.input)
		var validation *utils.ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("%s: got %v, want ValidationError", tc.name, err)
		}
	}
}

func TestInsufficientStockErrorShortfall(t *testing.T) {
	err := utils.NewInsufficientStockError("Funda Silicona", 2, 5)
	if got := err.Missing(); !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("Missing() = %s, want 3", got)
	}
}
