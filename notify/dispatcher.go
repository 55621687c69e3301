// Package notify delivers fire-and-forget domain notifications over Google
// Pub/Sub. Delivery is best-effort: a full queue or a publish failure is
// logged and the event is dropped, it never propagates back into the
// operation that raised it.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/utils"
)

type Event struct {
	TenantId      string                 `json:"tenant_id"`
	CorrelationId string                 `json:"correlation_id,omitempty"`
	Kind          string                 `json:"kind"`
	Title         string                 `json:"title"`
	Body          string                 `json:"body"`
	Data          map[string]interface{} `json:"data,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

const queueSize = 256

var (
	queue    chan Event
	initOnce sync.Once
	stopOnce sync.Once
	done     chan struct{}
)

// Start launches the dispatcher goroutine. Safe to call once at boot.
func Start(ctx context.Context) {
	initOnce.Do(func() {
		queue = make(chan Event, queueSize)
		done = make(chan struct{})
		go run(ctx)
	})
}

// Stop drains nothing and waits for the goroutine to exit. Called on
// shutdown after the HTTP server stopped accepting requests.
func Stop() {
	stopOnce.Do(func() {
		if queue != nil {
			close(queue)
			<-done
		}
	})
}

// Dispatch enqueues an event without blocking. Tenant and correlation id are
// taken from the request context so callers only describe the event itself.
func Dispatch(ctx context.Context, event Event) {
	if queue == nil {
		return
	}

	if event.TenantId == "" {
		event.TenantId, _ = utils.GetTenantIdFromContext(ctx)
	}
	if event.CorrelationId == "" {
		event.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	select {
	case queue <- event:
	default:
		config.GetLogger().WithField("kind", event.Kind).Warn("notification queue full, event dropped")
	}
}

func run(ctx context.Context) {
	defer close(done)
	logger := config.GetLogger()
	topic := config.NotificationTopic()

	for event := range queue {
		publishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := config.PublishJSON(publishCtx, topic, event)
		cancel()
		if err != nil {
			extErr := &utils.ExternalServiceError{Service: "pubsub", Cause: err}
			config.LogError(logger, "notify", "run", event.Kind, event, extErr)
			continue
		}
		logger.WithFields(map[string]interface{}{
			"kind":   event.Kind,
			"tenant": event.TenantId,
		}).Debug("notification published")
	}
}
