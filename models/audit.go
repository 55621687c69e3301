package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/utils"
	"gorm.io/gorm"
)

type AuditLog struct {
	ID         int         `gorm:"primary_key" json:"id"`
	TenantId   string      `gorm:"index;not null" json:"tenant_id"`
	UserId     int         `gorm:"index" json:"user_id"`
	UserName   string      `gorm:"size:100" json:"user_name"`
	UserRole   string      `gorm:"size:20" json:"user_role"`
	Action     AuditAction `gorm:"size:30;not null;index" json:"action"`
	Entity     string      `gorm:"size:50;not null" json:"entity"`
	EntityId   int         `gorm:"index" json:"entity_id"`
	EntityName string      `gorm:"size:200" json:"entity_name"`
	Changes    string      `gorm:"type:json" json:"changes"`
	Ip         string      `gorm:"size:50" json:"ip"`
	UserAgent  string      `gorm:"size:255" json:"user_agent"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func buildAuditLog(ctx context.Context, tenantId string, action AuditAction, entity string, entityId int, entityName string, changes map[string]interface{}) *AuditLog {
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)
	userRole, _ := utils.GetUserRoleFromContext(ctx)

	entry := &AuditLog{
		TenantId:   tenantId,
		UserId:     userId,
		UserName:   userName,
		UserRole:   userRole,
		Action:     action,
		Entity:     entity,
		EntityId:   entityId,
		EntityName: entityName,
	}
	if changes != nil {
		if raw, err := json.Marshal(changes); err == nil {
			entry.Changes = string(raw)
		}
	}
	return entry
}

// WriteAuditLogTx records the entry inside the caller's transaction, so the
// entry commits or rolls back with the operation it describes. Sale
// cancellation uses this.
func WriteAuditLogTx(tx *gorm.DB, ctx context.Context, tenantId string, action AuditAction, entity string, entityId int, entityName string, changes map[string]interface{}) error {
	entry := buildAuditLog(ctx, tenantId, action, entity, entityId, entityName, changes)
	return tx.Create(entry).Error
}

// EmitAudit records the entry best-effort after the operation has committed.
// A failure is logged and swallowed; it must never undo the operation.
func EmitAudit(ctx context.Context, action AuditAction, entity string, entityId int, entityName string, changes map[string]interface{}) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return
	}

	entry := buildAuditLog(ctx, tenantId, action, entity, entityId, entityName, changes)
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		config.LogError(config.GetLogger(), "models", "EmitAudit", string(action), entry, err)
	}
}

func PaginateAuditLogs(ctx context.Context, page int, limit int, action *AuditAction) ([]*AuditLog, int64, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, 0, utils.NewValidationError("tenant id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&AuditLog{}).Where("tenant_id = ?", tenantId)
	if action != nil && *action != "" {
		dbCtx.Where("action = ?", *action)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*AuditLog
	err := dbCtx.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
