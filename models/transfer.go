package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/clodeb/retail_backend/notify"
	"github.com/clodeb/retail_backend/utils"
	"gorm.io/gorm"
)

type TransferInput struct {
	ProductId     *int    `json:"product_id"`
	Imei          *string `json:"imei"`
	TargetStoreId int     `json:"target_store_id" binding:"required"`
	Quantity      int     `json:"quantity"`
}

func resolveTransferSource(tx *gorm.DB, tenantId string, input *TransferInput) (*Product, error) {
	if input.Imei != nil && *input.Imei != "" {
		var product Product
		err := tx.Where("tenant_id = ? AND imei = ?", tenantId, *input.Imei).First(&product).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, utils.NewNotFoundError("product", *input.Imei)
			}
			return nil, err
		}
		return &product, nil
	}
	if input.ProductId != nil {
		return fetchLedgerProduct(tx, tenantId, *input.ProductId)
	}
	return nil, utils.NewValidationError("product_id or imei is required")
}

// TransferProduct moves stock between stores. A serialized unit relocates its
// row. A fungible row relocates whole when the full on-hand quantity moves,
// otherwise it is split: the source is decremented and the quantity merges
// into the matching active destination row (same category, same normalized
// name) or a new row. Returns the affected destination-side record and the
// quantity actually moved, which is capped at the source's on-hand stock.
func TransferProduct(ctx context.Context, input *TransferInput) (*Product, int, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, 0, errors.New("tenant id is required")
	}

	if err := utils.ValidateActiveResourceId[Store](ctx, tenantId, input.TargetStoreId); err != nil {
		return nil, 0, utils.NewNotFoundError("store", fmt.Sprint(input.TargetStoreId))
	}

	requested := input.Quantity
	if requested <= 0 {
		requested = 1
	}

	tx, cancel := beginSerializableTx(ctx)
	defer cancel()
	if tx.Error != nil {
		return nil, 0, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	source, err := resolveTransferSource(tx, tenantId, input)
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}

	fromStoreId := source.StoreId
	if fromStoreId == input.TargetStoreId {
		tx.Rollback()
		return nil, 0, utils.NewValidationError("product is already in the target store")
	}
	if source.Stock <= 0 {
		tx.Rollback()
		return nil, 0, utils.NewInsufficientStockError(source.Name, source.Stock, requested)
	}

	var affected *Product
	qty := requested

	switch {
	case source.IsSerialized():
		// a physical unit moves with its row
		qty = 1
		source.StoreId = input.TargetStoreId
		if err := tx.Model(&Product{}).Where("id = ?", source.ID).
			Update("store_id", input.TargetStoreId).Error; err != nil {
			tx.Rollback()
			return nil, 0, utils.WrapTxError("relocate product", err)
		}
		affected = source

	default:
		if qty > source.Stock {
			qty = source.Stock
		}
		if source.Stock-qty < source.Reserved {
			tx.Rollback()
			return nil, 0, utils.NewValidationError("cannot transfer units held by reservations")
		}

		if qty == source.Stock {
			source.StoreId = input.TargetStoreId
			if err := tx.Model(&Product{}).Where("id = ?", source.ID).
				Update("store_id", input.TargetStoreId).Error; err != nil {
				tx.Rollback()
				return nil, 0, utils.WrapTxError("relocate product", err)
			}
			affected = source
			break
		}

		source.Stock -= qty
		if err := tx.Model(&Product{}).Where("id = ?", source.ID).
			Update("stock", source.Stock).Error; err != nil {
			tx.Rollback()
			return nil, 0, utils.WrapTxError("decrement source stock", err)
		}

		match, err := findFulfillingProduct(tx, tenantId, input.TargetStoreId,
			source.Category, source.NormalizedName, 0, source.ID)
		if err != nil {
			tx.Rollback()
			return nil, 0, utils.WrapTxError("find destination product", err)
		}

		if match != nil {
			match.Stock += qty
			match.Active = utils.NewTrue()
			err = tx.Model(&Product{}).Where("id = ?", match.ID).
				Updates(map[string]interface{}{
					"stock":  match.Stock,
					"active": match.Active,
				}).Error
			if err != nil {
				tx.Rollback()
				return nil, 0, utils.WrapTxError("merge destination stock", err)
			}
			affected = match
		} else {
			replica := Product{
				TenantId:       tenantId,
				StoreId:        input.TargetStoreId,
				Name:           source.Name,
				NormalizedName: source.NormalizedName,
				Model:          source.Model,
				Storage:        source.Storage,
				Color:          source.Color,
				Battery:        source.Battery,
				Condition:      source.Condition,
				Category:       source.Category,
				Price:          source.Price,
				Cost:           source.Cost,
				Stock:          qty,
				Reserved:       0,
				Active:         utils.NewTrue(),
			}
			if err := tx.Create(&replica).Error; err != nil {
				tx.Rollback()
				return nil, 0, utils.WrapTxError("create destination product", err)
			}
			affected = &replica
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, 0, utils.WrapTxError("transfer product", err)
	}

	EmitAudit(ctx, AuditActionTransfer, "product", source.ID, source.Name,
		map[string]interface{}{
			"from_store": fromStoreId,
			"to_store":   input.TargetStoreId,
			"quantity":   qty,
			"serialized": source.IsSerialized(),
		})
	notify.Dispatch(ctx, notify.Event{
		Kind:  string(NotificationStockTransferred),
		Title: fmt.Sprintf("Transfer: %s", source.Name),
		Body:  fmt.Sprintf("%d unit(s) moved to store %d", qty, input.TargetStoreId),
		Data: map[string]interface{}{
			"product_id":      source.ID,
			"target_store_id": input.TargetStoreId,
			"quantity":        qty,
		},
	})

	return affected, qty, nil
}
