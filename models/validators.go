package models

import (
	"context"
	"fmt"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ValidateIMEI checks the 15-digit format and the Luhn check digit.
func ValidateIMEI(imei string) error {
	if len(imei) != 15 {
		return utils.NewValidationError("imei must be 15 digits")
	}
	sum := 0
	for i, r := range imei {
		if r < '0' || r > '9' {
			return utils.NewValidationError("imei must be 15 digits")
		}
		d := int(r - '0')
		// double every second digit from the left (positions 1, 3, ...)
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	if sum%10 != 0 {
		return utils.NewValidationError("imei failed check digit validation")
	}
	return nil
}

// ValidateSaleInput checks the arithmetic of a sale before any database work.
// The declared total must match the line items minus the discount within the
// configured tolerance (rounding drift between clients is expected). A
// mismatch beyond 100x the tolerance is reported as a distinct error since it
// cannot be rounding.
func ValidateSaleInput(input *NewSale) error {
	if len(input.Items) == 0 {
		return utils.NewValidationError("sale must have at least one item")
	}
	if !input.Total.IsPositive() {
		return utils.NewValidationError("total must be greater than zero")
	}
	if input.Discount.IsNegative() {
		return utils.NewValidationError("discount must not be negative")
	}

	expected := decimal.Zero
	for i, item := range input.Items {
		if item.Quantity < 1 {
			return utils.NewValidationError(fmt.Sprintf("item %d: quantity must be at least 1", i+1))
		}
		if item.Price.IsNegative() {
			return utils.NewValidationError(fmt.Sprintf("item %d: price must not be negative", i+1))
		}
		expected = expected.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	if input.Discount.GreaterThan(expected) {
		return utils.NewValidationError("discount exceeds the sum of items")
	}

	expected = expected.Sub(input.Discount)
	difference := expected.Sub(input.Total).Abs()
	tolerance := config.SaleTotalTolerance()

	if difference.GreaterThan(tolerance) {
		details := map[string]interface{}{
			"expected":   expected,
			"received":   input.Total,
			"difference": difference,
		}
		if difference.GreaterThan(tolerance.Mul(decimal.NewFromInt(100))) {
			return utils.NewValidationErrorWithDetails("total mismatch too large to be rounding", details)
		}
		return utils.NewValidationErrorWithDetails("total does not match items minus discount", details)
	}
	return nil
}

// ValidateReferences checks that every row the sale points at exists, is
// active and belongs to the tenant.
func ValidateReferences(ctx context.Context, input *NewSale) error {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return utils.NewValidationError("tenant id is required")
	}

	if err := utils.ValidateActiveResourceId[Store](ctx, tenantId, input.StoreId); err != nil {
		return utils.NewNotFoundError("store", fmt.Sprint(input.StoreId))
	}
	if input.ClientId != nil {
		if err := utils.ValidateActiveResourceId[Client](ctx, tenantId, *input.ClientId); err != nil {
			return utils.NewNotFoundError("client", fmt.Sprint(*input.ClientId))
		}
	}

	productIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		productIds = append(productIds, item.ProductId)
	}
	if err := utils.ValidateResourcesId[Product](ctx, tenantId, productIds); err != nil {
		return utils.NewNotFoundError("product")
	}
	return nil
}

// ValidateStock checks sellable availability per line. On the pre-transaction
// path tx is the plain db handle and the result is advisory; inside the
// serializable transaction the same check is authoritative.
func ValidateStock(tx *gorm.DB, ctx context.Context, tenantId string, items []NewSaleItem) error {
	for _, item := range items {
		product, err := fetchLedgerProduct(tx, tenantId, item.ProductId)
		if err != nil {
			return err
		}
		if !utils.DereferencePtr(product.Active) {
			return utils.NewValidationError(fmt.Sprintf("product %q is not active", product.Name))
		}
		if product.Available() < item.Quantity {
			return utils.NewInsufficientStockError(product.Name, product.Available(), item.Quantity)
		}
	}
	return nil
}
