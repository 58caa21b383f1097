package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"nedapay-api/internal/logging"
	"nedapay-api/internal/models"
	"nedapay-api/internal/monitoring"
	"nedapay-api/internal/paycrest"
)

// Reconciler resolves pending off-ramp orders whose settlement webhook never
// arrived by polling the provider's order-status endpoint.
type Reconciler struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Paycrest *paycrest.Client
	Interval time.Duration
	MinAge   time.Duration
}

func NewReconciler(db *gorm.DB, rdb *redis.Client, client *paycrest.Client, interval, minAge time.Duration) *Reconciler {
	return &Reconciler{
		DB:       db,
		Redis:    rdb,
		Paycrest: client,
		Interval: interval,
		MinAge:   minAge,
	}
}

func (r *Reconciler) Start() {
	ticker := time.NewTicker(r.Interval)
	logging.Sugar().Infow("reconciliation worker started", "interval", r.Interval, "minAge", r.MinAge)

	// Run once at start
	r.reconcilePending()

	for range ticker.C {
		r.reconcilePending()
	}
}

func (r *Reconciler) reconcilePending() {
	ctx := context.Background()
	cutoff := time.Now().Add(-r.MinAge)

	var pending []models.OffRampTransaction
	if err := r.DB.Where("status = ? AND created_at < ?", models.OrderStatusPending, cutoff).
		Find(&pending).Error; err != nil {
		logging.Sugar().Errorw("failed to query pending orders", "err", err)
		return
	}

	for _, tx := range pending {
		// One poll per order per cycle window, across instances.
		key := fmt.Sprintf("reconcile_%s", tx.ID)
		set, err := r.Redis.SetNX(ctx, key, "1", r.Interval).Result()
		if err == nil && !set {
			continue
		}

		order, err := r.Paycrest.GetOrder(tx.ID)
		if err != nil {
			logging.Sugar().Warnw("failed to fetch order from provider", "order", tx.ID, "err", err)
			continue
		}

		if !models.IsTerminalStatus(order.Status) {
			continue
		}

		if err := r.DB.Model(&models.OffRampTransaction{}).
			Where("id = ? AND status = ?", tx.ID, models.OrderStatusPending).
			Update("status", order.Status).Error; err != nil {
			logging.Sugar().Errorw("failed to update reconciled order", "order", tx.ID, "err", err)
			continue
		}

		monitoring.OrdersReconciled.Inc()
		logging.Sugar().Infow("order reconciled", "order", tx.ID, "status", order.Status)
	}

	// Sweep links past their expiry so the pay page stops resolving them.
	if err := r.DB.Model(&models.PaymentLink{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", "active", time.Now()).
		Update("status", "expired").Error; err != nil {
		logging.Sugar().Errorw("failed to expire payment links", "err", err)
	}
}
