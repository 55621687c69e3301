package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID             int             `gorm:"primary_key" json:"id"`
	TenantId       string          `gorm:"index;not null" json:"tenant_id"`
	StoreId        int             `gorm:"index;not null" json:"store_id"`
	Name           string          `gorm:"size:200;not null" json:"name" binding:"required"`
	NormalizedName string          `gorm:"size:200;index;not null" json:"-"`
	Model          string          `gorm:"size:100" json:"model"`
	Storage        string          `gorm:"size:50" json:"storage"`
	Color          string          `gorm:"size:50" json:"color"`
	Imei           *string         `gorm:"size:20;uniqueIndex" json:"imei"`
	Battery        int             `json:"battery"`
	Condition      string          `gorm:"size:50" json:"condition"`
	Category       ProductCategory `gorm:"size:20;not null;index" json:"category"`
	Price          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price"`
	Cost           decimal.Decimal `gorm:"type:decimal(20,4)" json:"cost"`
	Stock          int             `gorm:"not null;default:0" json:"stock"`
	Reserved       int             `gorm:"not null;default:0" json:"reserved"`
	Active         *bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Store *Store `gorm:"foreignKey:StoreId" json:"store,omitempty"`
}

// Available is the sellable quantity: on-hand stock minus reservation holds.
func (p *Product) Available() int {
	return p.Stock - p.Reserved
}

// IsSerialized reports whether the row tracks a single physical unit.
func (p *Product) IsSerialized() bool {
	return p.Imei != nil && *p.Imei != ""
}

type NewProduct struct {
	StoreId   int             `json:"store_id" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	Model     string          `json:"model"`
	Storage   string          `json:"storage"`
	Color     string          `json:"color"`
	Imei      *string         `json:"imei"`
	Battery   int             `json:"battery"`
	Condition string          `json:"condition"`
	Category  ProductCategory `json:"category" binding:"required"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int             `json:"stock"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewProduct) validate(ctx context.Context, tenantId string, id int) error {
	if len(strings.TrimSpace(input.Name)) == 0 {
		return utils.NewValidationError("name is required")
	}
	if input.Category != ProductCategoryPhone && input.Category != ProductCategoryAccessory {
		return utils.NewValidationError("invalid product category")
	}
	if input.Price.IsNegative() {
		return utils.NewValidationError("price must not be negative")
	}
	if input.Stock < 0 {
		return utils.NewValidationError("stock must not be negative")
	}
	if err := utils.ValidateActiveResourceId[Store](ctx, tenantId, input.StoreId); err != nil {
		return utils.NewNotFoundError("store")
	}
	if input.Imei != nil && *input.Imei != "" {
		if err := ValidateIMEI(*input.Imei); err != nil {
			return err
		}
		if input.Stock > 1 {
			return utils.NewValidationError("serialized product cannot have stock > 1")
		}
		if err := utils.ValidateUnique[Product](ctx, tenantId, "imei", *input.Imei, id); err != nil {
			return utils.NewValidationError("imei already registered")
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	product := Product{
		TenantId:       tenantId,
		StoreId:        input.StoreId,
		Name:           input.Name,
		NormalizedName: utils.NormalizeName(input.Name),
		Model:          input.Model,
		Storage:        input.Storage,
		Color:          input.Color,
		Imei:           input.Imei,
		Battery:        input.Battery,
		Condition:      input.Condition,
		Category:       input.Category,
		Price:          input.Price,
		Cost:           input.Cost,
		Stock:          input.Stock,
		Reserved:       0,
		Active:         utils.NewTrue(),
	}
	if product.IsSerialized() {
		product.Stock = 1
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if err := input.validate(ctx, tenantId, id); err != nil {
		return nil, err
	}

	// the counter fields live behind the ledger, so the whole update runs
	// under the same serializable transaction the sale workflows use and the
	// stock change goes through AdjustStock against a fresh read
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

	product, err := fetchLedgerProduct(tx, tenantId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	product.StoreId = input.StoreId
	product.Name = input.Name
	product.NormalizedName = utils.NormalizeName(input.Name)
	product.Model = input.Model
	product.Storage = input.Storage
	product.Color = input.Color
	product.Imei = input.Imei
	product.Battery = input.Battery
	product.Condition = input.Condition
	product.Category = input.Category
	product.Price = input.Price
	product.Cost = input.Cost

	err = tx.Model(&Product{}).Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"store_id":        product.StoreId,
			"name":            product.Name,
			"normalized_name": product.NormalizedName,
			"model":           product.Model,
			"storage":         product.Storage,
			"color":           product.Color,
			"imei":            product.Imei,
			"battery":         product.Battery,
			"condition":       product.Condition,
			"category":        product.Category,
			"price":           product.Price,
			"cost":            product.Cost,
		}).Error
	if err != nil {
		tx.Rollback()
		return nil, utils.WrapTxError("update product", err)
	}

	if input.Stock != product.Stock {
		adjusted, err := AdjustStock(tx, ctx, tenantId, product.ID, input.Stock)
		if err != nil {
			tx.Rollback()
			return nil, utils.WrapTxError("adjust product stock", err)
		}
		product.Stock = adjusted.Stock
		product.Active = adjusted.Active
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.WrapTxError("update product", err)
	}
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	product, err := utils.FetchModel[Product](ctx, tenantId, id, "Store")
	if err != nil {
		return nil, utils.NewNotFoundError("product")
	}
	return product, nil
}

func GetProductByImei(ctx context.Context, imei string) (*Product, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var product Product
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND imei = ?", tenantId, imei).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("product", imei)
		}
		return nil, err
	}
	return &product, nil
}

func PaginateProducts(ctx context.Context, page int, limit int, storeId *int, category *ProductCategory, search *string, activeOnly bool) ([]*Product, int64, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, 0, errors.New("tenant id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Product{}).Where("tenant_id = ?", tenantId)

	if storeId != nil && *storeId > 0 {
		dbCtx.Where("store_id = ?", *storeId)
	}
	if category != nil && *category != "" {
		dbCtx.Where("category = ?", *category)
	}
	if search != nil && *search != "" {
		term := "%" + utils.NormalizeName(*search) + "%"
		dbCtx.Where("normalized_name LIKE ? OR imei LIKE ?", term, "%"+strings.TrimSpace(*search)+"%")
	}
	if activeOnly {
		dbCtx.Where("active = ?", true)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []*Product
	err := dbCtx.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// DeactivateProduct hides the product from sale. A row with a live
// reservation hold cannot be deactivated.
func DeactivateProduct(ctx context.Context, id int) (*Product, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	// the hold guard has to see the current reserved counter, so the check
	// runs against a fresh read under the serializable transaction
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

	product, err := fetchLedgerProduct(tx, tenantId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if product.Reserved > 0 {
		tx.Rollback()
		return nil, utils.NewValidationError("product has active reservations")
	}

	product.Active = utils.NewFalse()
	err = tx.Model(&Product{}).Where("id = ?", product.ID).
		Update("active", product.Active).Error
	if err != nil {
		tx.Rollback()
		return nil, utils.WrapTxError("deactivate product", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.WrapTxError("deactivate product", err)
	}
	return product, nil
}

// findFulfillingProduct looks for an active row in the given store matching
// the reference row by category and normalized name, with enough sellable
// stock. Used by accessory store resolution on sale and by transfer merge.
// Runs on the caller's tx so the read is part of the serializable snapshot.
func findFulfillingProduct(tx *gorm.DB, tenantId string, storeId int, category ProductCategory, normalizedName string, minAvailable int, excludeId int) (*Product, error) {
	var product Product
	err := tx.
		Where("tenant_id = ? AND store_id = ? AND category = ? AND normalized_name = ? AND active = ? AND id != ?",
			tenantId, storeId, category, normalizedName, true, excludeId).
		Where("stock - reserved >= ?", minAvailable).
		Order("id ASC").
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}
