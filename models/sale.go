package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/notify"
	"github.com/clodeb/retail_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Sale struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TenantId      string          `gorm:"index;not null" json:"tenant_id"`
	StoreId       int             `gorm:"index;not null" json:"store_id"`
	UserId        int             `gorm:"index;not null" json:"user_id"`
	ClientId      *int            `gorm:"index" json:"client_id"`
	Total         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	Discount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"discount"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	SaleType      SaleType        `gorm:"size:20;not null;default:RETAIL" json:"sale_type"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Items  []SaleItem `gorm:"foreignKey:SaleId" json:"items"`
	Client *Client    `gorm:"foreignKey:ClientId" json:"client,omitempty"`
	Store  *Store     `gorm:"foreignKey:StoreId" json:"store,omitempty"`
}

type SaleItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	SaleId    int             `gorm:"index;not null" json:"sale_id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`

	Product *Product `gorm:"foreignKey:ProductId" json:"product,omitempty"`
}

type NewSaleItem struct {
	ProductId int             `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required"`
	Price     decimal.Decimal `json:"price"`
}

type NewSale struct {
	StoreId       int             `json:"store_id" binding:"required"`
	ClientId      *int            `json:"client_id"`
	Total         decimal.Decimal `json:"total" binding:"required"`
	Discount      decimal.Decimal `json:"discount"`
	PaymentMethod PaymentMethod   `json:"payment_method" binding:"required"`
	SaleType      SaleType        `json:"sale_type"`
	Notes         string          `json:"notes"`
	Items         []NewSaleItem   `json:"items" binding:"required"`
}

// beginSerializableTx opens the transaction every stock-mutating workflow
// runs under. The timeout bounds how long a lock pile-up can hold the row.
func beginSerializableTx(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	txCtx, cancel := context.WithTimeout(ctx, config.SaleTxTimeout())
	db := config.GetDB()
	tx := db.WithContext(txCtx).Begin(&sql.TxOptions{Isolation: sql.LevelSerializable})
	return tx, cancel
}

// CreateSale runs the whole sale inside one serializable transaction: the
// stock checks, the accessory store resolution, the sale rows and the stock
// decrements either all commit or none do. Notifications, currency buckets
// and the audit entry run strictly after commit and never fail the sale.
func CreateSale(ctx context.Context, input *NewSale) (*Sale, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	if err := ValidateSaleInput(input); err != nil {
		return nil, err
	}
	if err := ValidateReferences(ctx, input); err != nil {
		return nil, err
	}
	// advisory check on the plain handle, cheap rejection before locking
	if err := ValidateStock(config.GetDB().WithContext(ctx), ctx, tenantId, input.Items); err != nil {
		return nil, err
	}

	if input.SaleType == "" {
		input.SaleType = SaleTypeRetail
	}

	tx, cancel := beginSerializableTx(ctx)
	defer cancel()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	sale := Sale{
		TenantId:      tenantId,
		StoreId:       input.StoreId,
		UserId:        userId,
		ClientId:      input.ClientId,
		Total:         input.Total,
		Discount:      input.Discount,
		PaymentMethod: input.PaymentMethod,
		SaleType:      input.SaleType,
		Notes:         input.Notes,
	}
	if err := tx.Create(&sale).Error; err != nil {
		tx.Rollback()
		return nil, utils.WrapTxError("create sale", err)
	}

	soldProducts := make([]*Product, 0, len(input.Items))
	for _, line := range input.Items {
		product, err := fetchLedgerProduct(tx, tenantId, line.ProductId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		// an accessory referenced from another store is fulfilled from the
		// selling store when a matching row with enough stock exists there
		if product.Category == ProductCategoryAccessory && product.StoreId != input.StoreId {
			match, err := findFulfillingProduct(tx, tenantId, input.StoreId,
				ProductCategoryAccessory, product.NormalizedName, line.Quantity, product.ID)
			if err != nil {
				tx.Rollback()
				return nil, utils.WrapTxError("resolve fulfilling store", err)
			}
			if match != nil {
				product = match
			}
		}

		// the line price is stored as submitted; the arithmetic check already
		// counted it, so substituting the catalog price here would break the
		// declared total
		item := SaleItem{
			SaleId:    sale.ID,
			ProductId: product.ID,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Subtotal:  line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, utils.WrapTxError("create sale item", err)
		}
		sale.Items = append(sale.Items, item)

		updated, err := CommitSaleStock(tx, ctx, tenantId, product.ID, line.Quantity, false)
		if err != nil {
			tx.Rollback()
			return nil, utils.WrapTxError("commit sale stock", err)
		}
		soldProducts = append(soldProducts, updated)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.WrapTxError("commit sale", err)
	}

	emitSaleSideEffects(ctx, &sale, soldProducts)

	return &sale, nil
}

// emitSaleSideEffects runs after the sale committed. Everything here is
// best-effort.
func emitSaleSideEffects(ctx context.Context, sale *Sale, soldProducts []*Product) {
	logger := config.GetLogger()

	usdTotal := decimal.Zero
	arsTotal := decimal.Zero
	names := make([]string, 0, len(sale.Items))
	for i, item := range sale.Items {
		if i < len(soldProducts) {
			names = append(names, soldProducts[i].Name)
			switch soldProducts[i].Category {
			case ProductCategoryPhone:
				usdTotal = usdTotal.Add(item.Subtotal)
			case ProductCategoryAccessory:
				arsTotal = arsTotal.Add(item.Subtotal)
			}
		}
	}

	highValue := usdTotal.GreaterThanOrEqual(config.HighValueUSDThreshold()) ||
		arsTotal.GreaterThanOrEqual(config.HighValueARSThreshold())

	EmitAudit(ctx, AuditActionCreateSale, "sale", sale.ID, fmt.Sprintf("sale #%d", sale.ID),
		map[string]interface{}{
			"total":      sale.Total,
			"discount":   sale.Discount,
			"items":      len(sale.Items),
			"usd_total":  usdTotal,
			"ars_total":  arsTotal,
			"high_value": highValue,
		})

	kind := string(NotificationSaleCompleted)
	if highValue {
		kind = string(NotificationSaleHighValue)
	}
	notify.Dispatch(ctx, notify.Event{
		Kind:  kind,
		Title: fmt.Sprintf("Sale #%d completed", sale.ID),
		Body:  fmt.Sprintf("%d item(s), total %s", len(sale.Items), sale.Total.String()),
		Data: map[string]interface{}{
			"sale_id":   sale.ID,
			"usd_total": usdTotal,
			"ars_total": arsTotal,
			"products":  names,
		},
	})

	threshold := config.LowStockThreshold()
	for _, product := range soldProducts {
		if product.IsSerialized() {
			continue
		}
		if product.Stock > 0 && product.Stock < threshold {
			notify.Dispatch(ctx, notify.Event{
				Kind:  string(NotificationStockLow),
				Title: fmt.Sprintf("Low stock: %s", product.Name),
				Body:  fmt.Sprintf("%d unit(s) left", product.Stock),
				Data: map[string]interface{}{
					"product_id": product.ID,
					"stock":      product.Stock,
				},
			})
		}
	}

	logger.WithFields(map[string]interface{}{
		"sale_id":    sale.ID,
		"high_value": highValue,
	}).Info("sale completed")
}

// CancelSale restores the sold stock and removes the sale. The audit entry is
// written inside the transaction: a cancellation that cannot be audited does
// not happen. The route restricts this to admins.
func CancelSale(ctx context.Context, id int) error {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return errors.New("tenant id is required")
	}

	tx, cancel := beginSerializableTx(ctx)
	defer cancel()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var sale Sale
	err := tx.Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantId, id).
		First(&sale).Error
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewNotFoundError("sale", fmt.Sprint(id))
		}
		return utils.WrapTxError("cancel sale", err)
	}

	restored := make([]map[string]interface{}, 0, len(sale.Items))
	for _, item := range sale.Items {
		product, err := RestoreStock(tx, ctx, tenantId, item.ProductId, item.Quantity)
		if err != nil {
			tx.Rollback()
			return utils.WrapTxError("restore stock", err)
		}
		restored = append(restored, map[string]interface{}{
			"product_id": product.ID,
			"name":       product.Name,
			"quantity":   item.Quantity,
			"stock":      product.Stock,
		})
	}

	err = WriteAuditLogTx(tx, ctx, tenantId, AuditActionCancelSale, "sale", sale.ID,
		fmt.Sprintf("sale #%d", sale.ID), map[string]interface{}{
			"total":    sale.Total,
			"restored": restored,
		})
	if err != nil {
		tx.Rollback()
		return utils.WrapTxError("audit cancel sale", err)
	}

	if err := tx.Where("sale_id = ?", sale.ID).Delete(&SaleItem{}).Error; err != nil {
		tx.Rollback()
		return utils.WrapTxError("delete sale items", err)
	}
	if err := tx.Delete(&sale).Error; err != nil {
		tx.Rollback()
		return utils.WrapTxError("delete sale", err)
	}

	if err := tx.Commit().Error; err != nil {
		return utils.WrapTxError("cancel sale", err)
	}
	return nil
}

func GetSale(ctx context.Context, id int) (*Sale, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var sale Sale
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Items").Preload("Items.Product").Preload("Client").Preload("Store").
		Where("tenant_id = ? AND id = ?", tenantId, id).
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("sale", fmt.Sprint(id))
		}
		return nil, err
	}
	return &sale, nil
}

func PaginateSales(ctx context.Context, page int, limit int, storeId *int, paymentMethod *PaymentMethod, fromDate *time.Time, toDate *time.Time) ([]*Sale, int64, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, 0, errors.New("tenant id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Sale{}).Where("tenant_id = ?", tenantId)

	if storeId != nil && *storeId > 0 {
		dbCtx.Where("store_id = ?", *storeId)
	}
	if paymentMethod != nil && *paymentMethod != "" {
		dbCtx.Where("payment_method = ?", *paymentMethod)
	}
	if fromDate != nil && toDate != nil {
		dbCtx.Where("created_at BETWEEN ? AND ?", *fromDate, *toDate)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sales []*Sale
	err := dbCtx.Preload("Items").Preload("Client").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sales).Error
	if err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}
