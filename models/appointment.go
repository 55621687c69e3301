package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/notify"
	"github.com/clodeb/retail_backend/utils"
	"github.com/shopspring/decimal"
)

type Appointment struct {
	ID             int               `gorm:"primary_key" json:"id"`
	TenantId       string            `gorm:"index;not null" json:"tenant_id"`
	StoreId        *int              `gorm:"index" json:"store_id"`
	ClientId       *int              `gorm:"index" json:"client_id"`
	Date           time.Time         `gorm:"index;not null" json:"date"`
	TimeSlot       string            `gorm:"size:20" json:"time_slot"`
	CustomerName   string            `gorm:"size:100;not null" json:"customer_name"`
	CustomerPhone  string            `gorm:"size:30" json:"customer_phone"`
	ProductId      *int              `gorm:"index" json:"product_id"`
	ProductLabel   string            `gorm:"size:200" json:"product_label"`
	Notes          string            `gorm:"type:text" json:"notes"`
	Status         AppointmentStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	PaymentMethod  *PaymentMethod    `gorm:"size:20" json:"payment_method"`
	AssignedUserId int               `gorm:"index" json:"assigned_user_id"`
	AttendedAt     *time.Time        `json:"attended_at"`
	CancelledAt    *time.Time        `json:"cancelled_at"`
	CancelReason   string            `gorm:"size:255" json:"cancel_reason"`
	ReminderSentAt *time.Time        `json:"reminder_sent_at"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	Client  *Client  `gorm:"foreignKey:ClientId" json:"client,omitempty"`
}

type NewAppointment struct {
	StoreId       *int           `json:"store_id"`
	ClientId      *int           `json:"client_id"`
	Date          time.Time      `json:"date" binding:"required"`
	TimeSlot      string         `json:"time_slot"`
	CustomerName  string         `json:"customer_name" binding:"required"`
	CustomerPhone string         `json:"customer_phone"`
	ProductId     *int           `json:"product_id"`
	ProductLabel  string         `json:"product_label"`
	Notes         string         `json:"notes"`
	PaymentMethod *PaymentMethod `json:"payment_method"`
}

type UpdateAppointmentInput struct {
	StoreId       *int               `json:"store_id"`
	ClientId      *int               `json:"client_id"`
	Date          *time.Time         `json:"date"`
	TimeSlot      *string            `json:"time_slot"`
	CustomerName  *string            `json:"customer_name"`
	CustomerPhone *string            `json:"customer_phone"`
	ProductId     *int               `json:"product_id"`
	ClearProduct  bool               `json:"clear_product"`
	ProductLabel  *string            `json:"product_label"`
	Notes         *string            `json:"notes"`
	Status        *AppointmentStatus `json:"status"`
	PaymentMethod *PaymentMethod     `json:"payment_method"`
}

func (input *NewAppointment) validate(ctx context.Context, tenantId string) error {
	if len(strings.TrimSpace(input.CustomerName)) == 0 {
		return utils.NewValidationError("customer name is required")
	}
	if input.StoreId != nil {
		if err := utils.ValidateActiveResourceId[Store](ctx, tenantId, *input.StoreId); err != nil {
			return utils.NewNotFoundError("store", fmt.Sprint(*input.StoreId))
		}
	}
	if input.ClientId != nil {
		if err := utils.ValidateResourceId[Client](ctx, tenantId, *input.ClientId); err != nil {
			return utils.NewNotFoundError("client", fmt.Sprint(*input.ClientId))
		}
	}
	return nil
}

// CreateAppointment persists the appointment and, when a product is attached,
// places a single-unit hold on it in the same transaction.
func CreateAppointment(ctx context.Context, input *NewAppointment) (*Appointment, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	if err := input.validate(ctx, tenantId); err != nil {
		return nil, err
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

	var reservedProduct *Product
	if input.ProductId != nil {
		product, err := ReserveStock(tx, ctx, tenantId, *input.ProductId)
		if err != nil {
			tx.Rollback()
			return nil, utils.WrapTxError("reserve stock", err)
		}
		reservedProduct = product
	}

	appointment := Appointment{
		TenantId:       tenantId,
		StoreId:        input.StoreId,
		ClientId:       input.ClientId,
		Date:           input.Date,
		TimeSlot:       input.TimeSlot,
		CustomerName:   input.CustomerName,
		CustomerPhone:  input.CustomerPhone,
		ProductId:      input.ProductId,
		ProductLabel:   input.ProductLabel,
		Notes:          input.Notes,
		Status:         AppointmentStatusPending,
		PaymentMethod:  input.PaymentMethod,
		AssignedUserId: userId,
	}
	if appointment.ProductLabel == "" && reservedProduct != nil {
		appointment.ProductLabel = reservedProduct.Name
	}
	if err := tx.Create(&appointment).Error; err != nil {
		tx.Rollback()
		return nil, utils.WrapTxError("create appointment", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.WrapTxError("create appointment", err)
	}

	if reservedProduct != nil {
		EmitAudit(ctx, AuditActionReserve, "appointment", appointment.ID, appointment.CustomerName,
			map[string]interface{}{
				"product_id": reservedProduct.ID,
				"product":    reservedProduct.Name,
				"reserved":   reservedProduct.Reserved,
			})
	}
	return &appointment, nil
}

// UpdateAppointment edits the mutable fields. Reassigning the product swaps
// the hold atomically: the old unit is released and the new one reserved in
// one transaction. Status may only move along the transition table; terminal
// transitions go through AttendAppointment / CancelAppointment.
func UpdateAppointment(ctx context.Context, id int, input *UpdateAppointmentInput) (*Appointment, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if input.Status != nil && (*input.Status == AppointmentStatusAttended || *input.Status == AppointmentStatusCancelled) {
		return nil, utils.NewValidationError("use the attend or cancel operation for terminal states")
	}
	if input.StoreId != nil {
		if err := utils.ValidateActiveResourceId[Store](ctx, tenantId, *input.StoreId); err != nil {
			return nil, utils.NewNotFoundError("store", fmt.Sprint(*input.StoreId))
		}
	}
	if input.ClientId != nil {
		if err := utils.ValidateResourceId[Client](ctx, tenantId, *input.ClientId); err != nil {
			return nil, utils.NewNotFoundError("client", fmt.Sprint(*input.ClientId))
		}
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

	appointment, err := utils.FetchModelTx[Appointment](tx, ctx, tenantId, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.NewNotFoundError("appointment", fmt.Sprint(id))
	}

	if appointment.Status.IsTerminal() {
		tx.Rollback()
		return nil, utils.NewValidationError("appointment is in a terminal state")
	}
	if input.Status != nil && *input.Status != appointment.Status {
		if !appointment.Status.CanTransition(*input.Status) {
			tx.Rollback()
			return nil, utils.NewValidationError(
				fmt.Sprintf("cannot change status from %s to %s", appointment.Status, *input.Status))
		}
		appointment.Status = *input.Status
	}

	var released, reserved *Product
	newProductId := appointment.ProductId
	if input.ClearProduct {
		newProductId = nil
	} else if input.ProductId != nil {
		newProductId = input.ProductId
	}

	changingProduct := !intPtrEqual(appointment.ProductId, newProductId)
	if changingProduct {
		if appointment.ProductId != nil {
			released, err = ReleaseStock(tx, ctx, tenantId, *appointment.ProductId)
			if err != nil {
				tx.Rollback()
				return nil, utils.WrapTxError("release stock", err)
			}
		}
		if newProductId != nil {
			reserved, err = ReserveStock(tx, ctx, tenantId, *newProductId)
			if err != nil {
				tx.Rollback()
				return nil, utils.WrapTxError("reserve stock", err)
			}
		}
		appointment.ProductId = newProductId
		if reserved != nil && input.ProductLabel == nil {
			appointment.ProductLabel = reserved.Name
		}
	}

	if input.StoreId != nil {
		appointment.StoreId = input.StoreId
	}
	if input.ClientId != nil {
		appointment.ClientId = input.ClientId
	}
	if input.Date != nil {
		appointment.Date = *input.Date
	}
	if input.TimeSlot != nil {
		appointment.TimeSlot = *input.TimeSlot
	}
	if input.CustomerName != nil {
		appointment.CustomerName = *input.CustomerName
	}
	if input.CustomerPhone != nil {
		appointment.CustomerPhone = *input.CustomerPhone
	}
	if input.ProductLabel != nil {
		appointment.ProductLabel = *input.ProductLabel
	}
	if input.Notes != nil {
		appointment.Notes = *input.Notes
	}
	if input.PaymentMethod != nil {
		appointment.PaymentMethod = input.PaymentMethod
	}

	if err := tx.Save(appointment).Error; err != nil {
		tx.Rollback()
		return nil, utils.WrapTxError("update appointment", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.WrapTxError("update appointment", err)
	}

	if released != nil {
		EmitAudit(ctx, AuditActionUnreserve, "appointment", appointment.ID, appointment.CustomerName,
			map[string]interface{}{"product_id": released.ID, "product": released.Name})
	}
	if reserved != nil {
		EmitAudit(ctx, AuditActionReserve, "appointment", appointment.ID, appointment.CustomerName,
			map[string]interface{}{"product_id": reserved.ID, "product": reserved.Name})
	}
	return appointment, nil
}

// AttendAppointment closes the appointment as kept. With a product attached
// it converts the hold into a quantity-1 sale in the same transaction.
func AttendAppointment(ctx context.Context, id int) (*Appointment, *Sale, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, nil, errors.New("tenant id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	tx, cancel := beginSerializableTx(ctx)
	defer cancel()
	if tx.Error != nil {
		return nil, nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	appointment, err := utils.FetchModelTx[Appointment](tx, ctx, tenantId, id)
	if err != nil {
		tx.Rollback()
		return nil, nil, utils.NewNotFoundError("appointment", fmt.Sprint(id))
	}

	if !appointment.Status.CanTransition(AppointmentStatusAttended) {
		tx.Rollback()
		return nil, nil, utils.NewValidationError(
			fmt.Sprintf("cannot attend appointment in status %s", appointment.Status))
	}

	var sale *Sale
	if appointment.ProductId != nil {
		product, err := fetchLedgerProduct(tx, tenantId, *appointment.ProductId)
		if err != nil {
			tx.Rollback()
			return nil, nil, err
		}

		paymentMethod := PaymentMethodCash
		if appointment.PaymentMethod != nil {
			paymentMethod = *appointment.PaymentMethod
		}
		storeId := product.StoreId
		if appointment.StoreId != nil {
			storeId = *appointment.StoreId
		}

		sale = &Sale{
			TenantId:      tenantId,
			StoreId:       storeId,
			UserId:        userId,
			ClientId:      appointment.ClientId,
			Total:         product.Price,
			Discount:      decimal.Zero,
			PaymentMethod: paymentMethod,
			SaleType:      SaleTypeRetail,
			Notes:         fmt.Sprintf("appointment #%d", appointment.ID),
		}
		if err := tx.Create(sale).Error; err != nil {
			tx.Rollback()
			return nil, nil, utils.WrapTxError("create sale", err)
		}

		item := SaleItem{
			SaleId:    sale.ID,
			ProductId: product.ID,
			Quantity:  1,
			Price:     product.Price,
			Subtotal:  product.Price,
		}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, nil, utils.WrapTxError("create sale item", err)
		}
		sale.Items = append(sale.Items, item)

		if _, err := CommitSaleStock(tx, ctx, tenantId, product.ID, 1, true); err != nil {
			tx.Rollback()
			return nil, nil, utils.WrapTxError("commit sale stock", err)
		}
	}

	now := time.Now().UTC()
	appointment.Status = AppointmentStatusAttended
	appointment.AttendedAt = &now
	if err := tx.Save(appointment).Error; err != nil {
		tx.Rollback()
		return nil, nil, utils.WrapTxError("attend appointment", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, utils.WrapTxError("attend appointment", err)
	}

	if sale != nil {
		EmitAudit(ctx, AuditActionCreateSale, "sale", sale.ID,
			fmt.Sprintf("sale #%d (appointment #%d)", sale.ID, appointment.ID),
			map[string]interface{}{"total": sale.Total, "appointment_id": appointment.ID})
		notify.Dispatch(ctx, notify.Event{
			Kind:  string(NotificationSaleCompleted),
			Title: fmt.Sprintf("Appointment #%d attended", appointment.ID),
			Body:  fmt.Sprintf("sale #%d created, total %s", sale.ID, sale.Total.String()),
			Data:  map[string]interface{}{"sale_id": sale.ID, "appointment_id": appointment.ID},
		})
	}
	return appointment, sale, nil
}

// CancelAppointment closes the appointment as not kept, releasing the hold.
func CancelAppointment(ctx context.Context, id int, reason string) (*Appointment, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
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

	appointment, err := utils.FetchModelTx[Appointment](tx, ctx, tenantId, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.NewNotFoundError("appointment", fmt.Sprint(id))
	}

	if !appointment.Status.CanTransition(AppointmentStatusCancelled) {
		tx.Rollback()
		return nil, utils.NewValidationError(
			fmt.Sprintf("cannot cancel appointment in status %s", appointment.Status))
	}

	var released *Product
	if appointment.ProductId != nil {
		released, err = ReleaseStock(tx, ctx, tenantId, *appointment.ProductId)
		if err != nil {
			tx.Rollback()
			return nil, utils.WrapTxError("release stock", err)
		}
	}

	now := time.Now().UTC()
	appointment.Status = AppointmentStatusCancelled
	appointment.CancelledAt = &now
	appointment.CancelReason = reason
	if err := tx.Save(appointment).Error; err != nil {
		tx.Rollback()
		return nil, utils.WrapTxError("cancel appointment", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.WrapTxError("cancel appointment", err)
	}

	if released != nil {
		EmitAudit(ctx, AuditActionUnreserve, "appointment", appointment.ID, appointment.CustomerName,
			map[string]interface{}{"product_id": released.ID, "product": released.Name, "reason": reason})
	}
	return appointment, nil
}

// DeleteAppointment removes a closed appointment. A live appointment still
// owns a hold and must be cancelled first.
func DeleteAppointment(ctx context.Context, id int) error {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return errors.New("tenant id is required")
	}

	appointment, err := utils.FetchModel[Appointment](ctx, tenantId, id)
	if err != nil {
		return utils.NewNotFoundError("appointment", fmt.Sprint(id))
	}

	if !appointment.Status.IsTerminal() {
		return utils.NewValidationError("only attended or cancelled appointments can be deleted")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Delete(appointment).Error
}

func GetAppointment(ctx context.Context, id int) (*Appointment, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	appointment, err := utils.FetchModel[Appointment](ctx, tenantId, id, "Product", "Client")
	if err != nil {
		return nil, utils.NewNotFoundError("appointment", fmt.Sprint(id))
	}
	return appointment, nil
}

func PaginateAppointments(ctx context.Context, page int, limit int, status *AppointmentStatus, storeId *int, fromDate *time.Time, toDate *time.Time) ([]*Appointment, int64, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, 0, errors.New("tenant id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Appointment{}).Where("tenant_id = ?", tenantId)

	if status != nil && *status != "" {
		dbCtx.Where("status = ?", *status)
	}
	if storeId != nil && *storeId > 0 {
		dbCtx.Where("store_id = ?", *storeId)
	}
	if fromDate != nil && toDate != nil {
		dbCtx.Where("date BETWEEN ? AND ?", *fromDate, *toDate)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var appointments []*Appointment
	err := dbCtx.Preload("Product").Preload("Client").
		Order("date ASC, id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&appointments).Error
	if err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

// FindAppointmentsDueReminder returns live appointments scheduled inside the
// given day that have not been reminded yet. The reminder worker bypasses the
// tenant guard since it scans across tenants.
func FindAppointmentsDueReminder(ctx context.Context, dayStart time.Time, dayEnd time.Time) ([]*Appointment, error) {
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var appointments []*Appointment
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("status IN ? AND reminder_sent_at IS NULL AND date BETWEEN ? AND ?",
			[]AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed},
			dayStart, dayEnd).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// MarkReminderSent stamps the appointment so the next scan skips it.
func MarkReminderSent(ctx context.Context, id int, at time.Time) error {
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	db := config.GetDB()
	return db.WithContext(ctx).Model(&Appointment{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at).Error
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
