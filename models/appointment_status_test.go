package models_test

import (
	"testing"

	"github.com/clodeb/retail_backend/models"
)

func TestAppointmentStatusTransitions(t *testing.T) {
	const (
		pending   = models.AppointmentStatusPending
		confirmed = models.AppointmentStatusConfirmed
		attended  = models.AppointmentStatusAttended
		cancelled = models.AppointmentStatusCancelled
	)

	cases := []struct {
		from models.AppointmentStatus
		to   models.AppointmentStatus
		ok   bool
	}{
		{pending, confirmed, true},
		{pending, attended, true},
		{pending, cancelled, true},
		{confirmed, attended, true},
		{confirmed, cancelled, true},
		{confirmed, pending, false},
		{attended, cancelled, false},
		{attended, pending, false},
		{attended, confirmed, false},
		{cancelled, pending, false},
		{cancelled, confirmed, false},
		{cancelled, attended, false},
		{pending, pending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestAppointmentStatusTerminal(t *testing.T) {
	if models.AppointmentStatusPending.IsTerminal() || models.AppointmentStatusConfirmed.IsTerminal() {
		t.Fatal("live statuses reported terminal")
	}
	if !models.AppointmentStatusAttended.IsTerminal() || !models.AppointmentStatusCancelled.IsTerminal() {
		t.Fatal("closed statuses not reported terminal")
	}
}
