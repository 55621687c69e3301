package models_test

import (
	"testing"
	"time"

	"github.com/clodeb/retail_backend/models"
	"github.com/clodeb/retail_backend/utils"
	"github.com/shopspring/decimal"
)

func TestAppointmentHoldAndAttend(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	funda := seedAccessory(t, ctx, central.ID, "Funda Silicona", 1, 9500)

	appointment, err := models.CreateAppointment(ctx, &models.NewAppointment{
		StoreId:      &central.ID,
		Date:         time.Now().AddDate(0, 0, 2),
		TimeSlot:     "15:30",
		CustomerName: "Juan Perez",
		ProductId:    &funda.ID,
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	held := reloadProduct(t, ctx, funda.ID)
	if held.Reserved != 1 || held.Stock != 1 {
		t.Fatalf("after reserve: stock=%d reserved=%d, want 1/1", held.Stock, held.Reserved)
	}

	// the held unit is not sellable to someone else
	_, err = models.CreateSale(ctx, &models.NewSale{
		StoreId:       central.ID,
		Total:         decimal.NewFromInt(9500),
		PaymentMethod: models.PaymentMethodCash,
		Items: []models.NewSaleItem{
			{ProductId: funda.ID, Quantity: 1, Price: decimal.NewFromInt(9500)},
		},
	})
	if err == nil {
		t.Fatalf("sale of a fully held product succeeded")
	}

	updated, sale, err := models.AttendAppointment(ctx, appointment.ID)
	if err != nil {
		t.Fatalf("AttendAppointment: %v", err)
	}
	if updated.Status != models.AppointmentStatusAttended || updated.AttendedAt == nil {
		t.Fatalf("attend did not stamp status/time: %s %v", updated.Status, updated.AttendedAt)
	}
	if sale == nil || len(sale.Items) != 1 || sale.Items[0].Quantity != 1 {
		t.Fatalf("attend did not create a quantity-1 sale: %+v", sale)
	}

	after := reloadProduct(t, ctx, funda.ID)
	if after.Stock != 0 || after.Reserved != 0 {
		t.Fatalf("after attend: stock=%d reserved=%d, want 0/0", after.Stock, after.Reserved)
	}
	if utils.DereferencePtr(after.Active) {
		t.Fatalf("product still active at zero stock")
	}
}

func TestAppointmentCancelReleasesHold(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	funda := seedAccessory(t, ctx, central.ID, "Funda Silicona", 2, 9500)

	appointment, err := models.CreateAppointment(ctx, &models.NewAppointment{
		Date:         time.Now().AddDate(0, 0, 1),
		CustomerName: "Maria Gomez",
		ProductId:    &funda.ID,
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	// a live appointment cannot be deleted
	if err := models.DeleteAppointment(ctx, appointment.ID); err == nil {
		t.Fatalf("deleted a live appointment")
	}

	cancelled, err := models.CancelAppointment(ctx, appointment.ID, "no show")
	if err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}
	if cancelled.Status != models.AppointmentStatusCancelled || cancelled.CancelReason != "no show" {
		t.Fatalf("cancel did not stamp status/reason: %s %q", cancelled.Status, cancelled.CancelReason)
	}

	after := reloadProduct(t, ctx, funda.ID)
	if after.Reserved != 0 || after.Stock != 2 {
		t.Fatalf("after cancel: stock=%d reserved=%d, want 2/0", after.Stock, after.Reserved)
	}

	// cancelling twice is rejected, deleting is now allowed
	if _, err := models.CancelAppointment(ctx, appointment.ID, "again"); err == nil {
		t.Fatalf("cancelled a cancelled appointment")
	}
	if err := models.DeleteAppointment(ctx, appointment.ID); err != nil {
		t.Fatalf("DeleteAppointment: %v", err)
	}
}

func TestAppointmentProductReassignmentSwapsHold(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	first := seedAccessory(t, ctx, central.ID, "Funda Silicona", 1, 9500)
	second := seedAccessory(t, ctx, central.ID, "Cargador 20W", 1, 18000)

	appointment, err := models.CreateAppointment(ctx, &models.NewAppointment{
		Date:         time.Now().AddDate(0, 0, 3),
		CustomerName: "Juan Perez",
		ProductId:    &first.ID,
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	if _, err := models.UpdateAppointment(ctx, appointment.ID, &models.UpdateAppointmentInput{
		ProductId: &second.ID,
	}); err != nil {
		t.Fatalf("UpdateAppointment: %v", err)
	}

	if got := reloadProduct(t, ctx, first.ID).Reserved; got != 0 {
		t.Fatalf("old hold not released: reserved=%d", got)
	}
	if got := reloadProduct(t, ctx, second.ID).Reserved; got != 1 {
		t.Fatalf("new hold not placed: reserved=%d", got)
	}
}

func TestReminderScanMarksSentOnce(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	appointment, err := models.CreateAppointment(ctx, &models.NewAppointment{
		StoreId:      &central.ID,
		Date:         time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 12, 0, 0, 0, time.UTC),
		CustomerName: "Juan Perez",
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	dayStart := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Second)

	due, err := models.FindAppointmentsDueReminder(ctx, dayStart, dayEnd)
	if err != nil {
		t.Fatalf("FindAppointmentsDueReminder: %v", err)
	}
	if len(due) != 1 || due[0].ID != appointment.ID {
		t.Fatalf("due reminders = %d, want the created appointment", len(due))
	}

	if err := models.MarkReminderSent(ctx, appointment.ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkReminderSent: %v", err)
	}

	due, err = models.FindAppointmentsDueReminder(ctx, dayStart, dayEnd)
	if err != nil {
		t.Fatalf("FindAppointmentsDueReminder: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("reminded appointment still due")
	}
}
