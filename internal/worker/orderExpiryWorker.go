package worker

import (
	"context"
	"time"

	"github.com/ds124wfegd/afritix/internal/clock"
	"github.com/sirupsen/logrus"
)

// OrderExpirer is the booking operation the expiry worker drives.
type OrderExpirer interface {
	ExpirePendingOrders(ctx context.Context, before time.Time) (int, error)
}

// OrderExpiryWorker releases the inventory held by pending orders whose
// payment window has passed.
type OrderExpiryWorker struct {
	booking  OrderExpirer
	clock    clock.Clock
	interval time.Duration
}

func NewOrderExpiryWorker(booking OrderExpirer, clk clock.Clock, interval time.Duration) *OrderExpiryWorker {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &OrderExpiryWorker{
		booking:  booking,
		clock:    clk,
		interval: interval,
	}
}

func (w *OrderExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Order expiry worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Order expiry worker stopped")
			return
		case <-ticker.C:
			w.expire(ctx)
		}
	}
}

func (w *OrderExpiryWorker) expire(ctx context.Context) int {
	n, err := w.booking.ExpirePendingOrders(ctx, w.clock.Now())
	if err != nil {
		logrus.Errorf("Failed to expire pending orders: %v", err)
		return 0
	}
	if n > 0 {
		logrus.Infof("Expired %d pending orders", n)
	}
	return n
}
