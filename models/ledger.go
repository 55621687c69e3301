package models

// The inventory ledger is the only code that mutates Product.Stock and
// Product.Reserved. Every function here runs on an already-open transaction
// and never commits; the caller owns the transaction boundary. Under MySQL
// SERIALIZABLE the plain reads below take shared locks, so two transactions
// racing on the same row abort with a deadlock or lock wait timeout instead
// of both succeeding.

import (
	"context"
	"errors"
	"fmt"

	"github.com/clodeb/retail_backend/utils"
	"gorm.io/gorm"
)

func fetchLedgerProduct(tx *gorm.DB, tenantId string, productId int) (*Product, error) {
	var product Product
	err := tx.Where("tenant_id = ? AND id = ?", tenantId, productId).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("product", fmt.Sprint(productId))
		}
		return nil, err
	}
	return &product, nil
}

func checkLedgerInvariant(product *Product) error {
	if product.Reserved < 0 || product.Reserved > product.Stock {
		return fmt.Errorf("ledger invariant violated for product %d: stock=%d reserved=%d",
			product.ID, product.Stock, product.Reserved)
	}
	return nil
}

// ReserveStock places a single-unit hold on the product.
func ReserveStock(tx *gorm.DB, ctx context.Context, tenantId string, productId int) (*Product, error) {
	product, err := fetchLedgerProduct(tx, tenantId, productId)
	if err != nil {
		return nil, err
	}

	if !utils.DereferencePtr(product.Active) {
		return nil, utils.NewValidationError("product is not active")
	}
	if product.Available() < 1 {
		return nil, utils.NewInsufficientStockError(product.Name, product.Available(), 1)
	}

	product.Reserved += 1
	if err := checkLedgerInvariant(product); err != nil {
		return nil, err
	}
	if err := tx.Model(&Product{}).Where("id = ?", product.ID).
		Update("reserved", product.Reserved).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// ReleaseStock drops a single-unit hold. Releasing with no hold outstanding
// is a no-op rather than an error; the counter never goes negative.
func ReleaseStock(tx *gorm.DB, ctx context.Context, tenantId string, productId int) (*Product, error) {
	product, err := fetchLedgerProduct(tx, tenantId, productId)
	if err != nil {
		return nil, err
	}

	if product.Reserved > 0 {
		product.Reserved -= 1
		if err := tx.Model(&Product{}).Where("id = ?", product.ID).
			Update("reserved", product.Reserved).Error; err != nil {
			return nil, err
		}
	}
	return product, nil
}

// CommitSaleStock consumes qty units of on-hand stock. The availability check
// here is the authoritative one; any earlier check was advisory. When
// alsoReleaseHeld is set the same quantity is dropped from the hold counter
// (an appointment being attended converts its hold into the sale).
//
// Deactivation rule: a serialized unit always deactivates on sale; a fungible
// row deactivates only when on-hand reaches zero.
func CommitSaleStock(tx *gorm.DB, ctx context.Context, tenantId string, productId int, qty int, alsoReleaseHeld bool) (*Product, error) {
	if qty < 1 {
		return nil, utils.NewValidationError("quantity must be at least 1")
	}

	product, err := fetchLedgerProduct(tx, tenantId, productId)
	if err != nil {
		return nil, err
	}

	available := product.Stock
	if !alsoReleaseHeld {
		available = product.Available()
	}
	if available < qty {
		return nil, utils.NewInsufficientStockError(product.Name, available, qty)
	}

	product.Stock -= qty
	if alsoReleaseHeld {
		product.Reserved -= qty
		if product.Reserved < 0 {
			product.Reserved = 0
		}
	}
	if product.Reserved > product.Stock {
		product.Reserved = product.Stock
	}

	if product.IsSerialized() || product.Stock == 0 {
		product.Active = utils.NewFalse()
	}

	if err := checkLedgerInvariant(product); err != nil {
		return nil, err
	}
	err = tx.Model(&Product{}).Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"stock":    product.Stock,
			"reserved": product.Reserved,
			"active":   product.Active,
		}).Error
	if err != nil {
		return nil, err
	}
	return product, nil
}

// AdjustStock sets the on-hand quantity to an explicit level, for manual
// corrections from the product editor. The level can never drop below the
// outstanding holds. Adjusting to zero deactivates the row the same way a
// sale draining it would; adjusting back above zero reactivates it.
func AdjustStock(tx *gorm.DB, ctx context.Context, tenantId string, productId int, newStock int) (*Product, error) {
	if newStock < 0 {
		return nil, utils.NewValidationError("stock must not be negative")
	}

	product, err := fetchLedgerProduct(tx, tenantId, productId)
	if err != nil {
		return nil, err
	}
	if newStock < product.Reserved {
		return nil, utils.NewValidationError("stock cannot drop below reserved quantity")
	}

	product.Stock = newStock
	if newStock == 0 {
		product.Active = utils.NewFalse()
	} else {
		product.Active = utils.NewTrue()
	}
	if err := checkLedgerInvariant(product); err != nil {
		return nil, err
	}
	err = tx.Model(&Product{}).Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"stock":  product.Stock,
			"active": product.Active,
		}).Error
	if err != nil {
		return nil, err
	}
	return product, nil
}

// RestoreStock gives qty units back and reactivates the row. Used by sale
// cancellation.
func RestoreStock(tx *gorm.DB, ctx context.Context, tenantId string, productId int, qty int) (*Product, error) {
	if qty < 1 {
		return nil, utils.NewValidationError("quantity must be at least 1")
	}

	product, err := fetchLedgerProduct(tx, tenantId, productId)
	if err != nil {
		return nil, err
	}

	product.Stock += qty
	product.Active = utils.NewTrue()

	if err := checkLedgerInvariant(product); err != nil {
		return nil, err
	}
	err = tx.Model(&Product{}).Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"stock":  product.Stock,
			"active": product.Active,
		}).Error
	if err != nil {
		return nil, err
	}
	return product, nil
}
