package models

import (
	"encoding/json"
	"errors"
)

type ProductCategory string

const (
	ProductCategoryPhone     ProductCategory = "PHONE"
	ProductCategoryAccessory ProductCategory = "ACCESSORY"
)

func (t *ProductCategory) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("product category must be string")
	}
	switch str {
	case "PHONE":
		*t = ProductCategoryPhone
	case "ACCESSORY":
		*t = ProductCategoryAccessory
	default:
		return errors.New("invalid product category")
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodMixed    PaymentMethod = "MIXED"
)

func (t *PaymentMethod) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("payment method must be string")
	}
	paymentMethods := map[string]PaymentMethod{
		"CASH":     PaymentMethodCash,
		"CARD":     PaymentMethodCard,
		"TRANSFER": PaymentMethodTransfer,
		"MIXED":    PaymentMethodMixed,
	}
	v, ok := paymentMethods[str]
	if !ok {
		return errors.New("invalid payment method")
	}
	*t = v
	return nil
}

type SaleType string

const (
	SaleTypeRetail    SaleType = "RETAIL"
	SaleTypeWholesale SaleType = "WHOLESALE"
)

func (t *SaleType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("sale type must be string")
	}
	switch str {
	case "RETAIL":
		*t = SaleTypeRetail
	case "WHOLESALE":
		*t = SaleTypeWholesale
	default:
		return errors.New("invalid sale type")
	}
	return nil
}

// AppointmentStatus is a closed state machine:
//
//	PENDING -> CONFIRMED -> ATTENDED (terminal)
//	PENDING/CONFIRMED   -> CANCELLED (terminal)
//
// There are no transitions out of a terminal state.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusAttended  AppointmentStatus = "ATTENDED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusAttended || s == AppointmentStatusCancelled
}

// CanTransition reports whether from -> to is a legal status change.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending:
		return to == AppointmentStatusConfirmed || to == AppointmentStatusAttended || to == AppointmentStatusCancelled
	case AppointmentStatusConfirmed:
		return to == AppointmentStatusAttended || to == AppointmentStatusCancelled
	default:
		return false
	}
}

func (s *AppointmentStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("appointment status must be string")
	}
	statuses := map[string]AppointmentStatus{
		"PENDING":   AppointmentStatusPending,
		"CONFIRMED": AppointmentStatusConfirmed,
		"ATTENDED":  AppointmentStatusAttended,
		"CANCELLED": AppointmentStatusCancelled,
	}
	v, ok := statuses[str]
	if !ok {
		return errors.New("invalid appointment status")
	}
	*s = v
	return nil
}

type UserRole string

const (
	UserRoleAdmin  UserRole = "ADMIN"
	UserRoleSeller UserRole = "SELLER"
)

type AuditAction string

const (
	AuditActionCreateSale AuditAction = "CREATE_SALE"
	AuditActionCancelSale AuditAction = "CANCEL_SALE"
	AuditActionReserve    AuditAction = "RESERVE"
	AuditActionUnreserve  AuditAction = "UNRESERVE"
	AuditActionTransfer   AuditAction = "TRANSFER"
)

type NotificationKind string

const (
	NotificationSaleCompleted       NotificationKind = "saleCompleted"
	NotificationSaleHighValue       NotificationKind = "saleHighValue"
	NotificationStockLow            NotificationKind = "stockLow"
	NotificationAppointmentReminder NotificationKind = "appointmentReminder"
	NotificationStockTransferred    NotificationKind = "stockTransferred"
)
