package bridge

import (
	"time"

	"github.com/google/uuid"

	"github.com/driftsignal/crashbridge/internal/analytics"
	"github.com/driftsignal/crashbridge/internal/model"
	"github.com/driftsignal/crashbridge/internal/router"
)

// NewBreadcrumbReceiver returns a receiver that captures routed breadcrumb
// events into the given buffer for persistence.
func NewBreadcrumbReceiver(buf *router.GrowableBuffer[model.Breadcrumb]) analytics.EventReceiver {
	return analytics.EventReceiverFunc(func(name string, params analytics.Envelope) {
		buf.Send(model.Breadcrumb{
			ID:         uuid.New(),
			Name:       name,
			Params:     params,
			ReceivedAt: time.Now().UnixMicro(),
		})
	})
}

// NewCrashEventReceiver returns a receiver that captures routed crash-origin
// events into the given buffer for persistence.
func NewCrashEventReceiver(buf *router.GrowableBuffer[model.CrashEvent]) analytics.EventReceiver {
	return analytics.EventReceiverFunc(func(name string, params analytics.Envelope) {
		buf.Send(model.CrashEvent{
			ID:         uuid.New(),
			Name:       name,
			Params:     params,
			ReceivedAt: time.Now().UnixMicro(),
		})
	})
}
