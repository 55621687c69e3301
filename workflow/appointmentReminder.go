package workflow

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/models"
	"github.com/clodeb/retail_backend/notify"
	"github.com/sirupsen/logrus"
)

const reminderLockKey = "lock:appointment-reminder"

func reminderScanInterval() time.Duration {
	if v := os.Getenv("REMINDER_SCAN_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return time.Hour
}

// RunAppointmentReminderWorker periodically reminds customers about
// tomorrow's appointments. A redis lock keeps the scan on a single instance;
// if the lock is unavailable the tick is skipped, the next one retries. A
// missed or duplicate reminder is harmless, only ReminderSentAt dedupes.
func RunAppointmentReminderWorker(ctx context.Context) {
	logger := config.GetLogger()
	interval := reminderScanInterval()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.WithField("interval", interval.String()).Info("appointment reminder worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("appointment reminder worker stopped")
			return
		case <-ticker.C:
			scanAndRemind(ctx, logger)
		}
	}
}

func scanAndRemind(ctx context.Context, logger *logrus.Logger) {
	locker := config.GetRedisLock()
	if locker == nil {
		logger.Warn("redis lock not ready; skipping reminder scan")
		return
	}

	lock, err := locker.Obtain(ctx, reminderLockKey, 5*time.Minute, nil)
	if err == redislock.ErrNotObtained {
		return
	} else if err != nil {
		config.LogError(logger, "workflow", "scanAndRemind", "obtain lock", reminderLockKey, err)
		return
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	dayStart := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Second)

	appointments, err := models.FindAppointmentsDueReminder(ctx, dayStart, dayEnd)
	if err != nil {
		config.LogError(logger, "workflow", "scanAndRemind", "scan appointments", nil, err)
		return
	}

	for _, appointment := range appointments {
		notify.Dispatch(ctx, notify.Event{
			TenantId: appointment.TenantId,
			Kind:     string(models.NotificationAppointmentReminder),
			Title:    fmt.Sprintf("Appointment tomorrow: %s", appointment.CustomerName),
			Body:     fmt.Sprintf("%s at %s", appointment.Date.Format("2006-01-02"), appointment.TimeSlot),
			Data: map[string]interface{}{
				"appointment_id": appointment.ID,
				"customer_phone": appointment.CustomerPhone,
				"product_label":  appointment.ProductLabel,
			},
		})

		if err := models.MarkReminderSent(ctx, appointment.ID, time.Now().UTC()); err != nil {
			config.LogError(logger, "workflow", "scanAndRemind", "mark reminder sent", appointment.ID, err)
		}
	}

	if len(appointments) > 0 {
		logger.WithField("count", len(appointments)).Info("appointment reminders dispatched")
	}
}
