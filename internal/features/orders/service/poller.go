package service

import (
	"context"
	"time"

	"pharma-sync/internal/core/logger"
	"pharma-sync/internal/features/orders/ports"

	"go.uber.org/zap"
)

// Poller refreshes the customer and pharmacy views on a fixed interval
// so the caches stay warm between user-driven requests.
type Poller struct {
	sync     ports.OrderSyncService
	interval time.Duration
}

// NewPoller creates a new Poller.
func NewPoller(sync ports.OrderSyncService, interval time.Duration) *Poller {
	return &Poller{
		sync:     sync,
		interval: interval,
	}
}

// Run refreshes the views until the context is cancelled. One cycle
// runs immediately so the caches are warm before the first tick.
func (p *Poller) Run(ctx context.Context) {
	logger.Get().Info("Order poller started",
		zap.Duration("interval", p.interval),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refreshOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Get().Info("Order poller stopped")
			return
		case <-ticker.C:
			p.refreshOnce(ctx)
		}
	}
}

// refreshOnce runs one refresh of both polled views. Failures are
// logged and swallowed: a missed cycle just means a staler cache.
func (p *Poller) refreshOnce(ctx context.Context) {
	if _, err := p.sync.CustomerOrders(ctx); err != nil {
		logger.Get().Warn("Customer view refresh failed", zap.Error(err))
	}
	if _, err := p.sync.PharmacyOrders(ctx); err != nil {
		logger.Get().Warn("Pharmacy view refresh failed", zap.Error(err))
	}
}
