// Package listeners reacts to domain events after the originating
// transaction has committed. Listeners must not fail the request that fired
// the event; they log and move on.
package listeners

import (
	"context"

	"github.com/shashiranjanraj/mithai/app/events"
	"github.com/shashiranjanraj/mithai/pkg/event"
	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/metrics"
)

type Options struct {
	LowStockThreshold int
}

// Register wires every listener onto d.
func Register(d *event.Dispatcher, opts Options) {
	for _, name := range []string{
		events.UserRegistered,
		events.UserLoggedIn,
		events.PurchaseCompleted,
		events.InventoryRestocked,
		events.CatalogChanged,
	} {
		d.Listen(name, LogEvent(name))
	}

	d.Listen(events.UserRegistered, CountRegistration)
	d.Listen(events.PurchaseCompleted, RecordSale)
	d.Listen(events.PurchaseCompleted, WarnLowStock(opts.LowStockThreshold))
	d.Listen(events.InventoryRestocked, RecordRestock)
}

func LogEvent(name string) event.Listener {
	return func(ctx context.Context, payload any) {
		log := logger.WithCtx(ctx).With("event", name)
		switch p := payload.(type) {
		case events.UserPayload:
			log.Info("event", "user_id", p.User.ID)
		case events.PurchasePayload:
			log.Info("event", "purchase_id", p.Purchase.ID, "sweet_id", p.Purchase.SweetID)
		case events.RestockPayload:
			log.Info("event", "restock_id", p.Restock.ID, "sweet_id", p.Restock.SweetID)
		case events.CatalogPayload:
			log.Info("event", "action", p.Action, "sweet_id", p.SweetID)
		default:
			log.Info("event")
		}
	}
}

func CountRegistration(context.Context, any) {
	metrics.Registrations.Inc()
}

func RecordSale(_ context.Context, payload any) {
	p, ok := payload.(events.PurchasePayload)
	if !ok {
		return
	}
	metrics.UnitsSold.Add(float64(p.Purchase.QuantityPurchased))
	metrics.Revenue.Add(p.Purchase.TotalPrice.InexactFloat64())
}

func RecordRestock(_ context.Context, payload any) {
	if p, ok := payload.(events.RestockPayload); ok {
		metrics.UnitsRestocked.Add(float64(p.Restock.QuantityAdded))
	}
}

// WarnLowStock logs when a purchase leaves a sweet at or below threshold.
func WarnLowStock(threshold int) event.Listener {
	return func(ctx context.Context, payload any) {
		p, ok := payload.(events.PurchasePayload)
		if !ok || p.Remaining > threshold {
			return
		}
		metrics.LowStock.Inc()
		logger.WithCtx(ctx).Warn("low stock",
			"sweet_id", p.Purchase.SweetID,
			"sweet", p.SweetName,
			"remaining", p.Remaining,
			"threshold", threshold,
		)
	}
}
