package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trading-academy-platform/internal/domain/ports/adapter"
	"trading-academy-platform/internal/domain/ports/repository"
	"trading-academy-platform/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending orders and asks the
// provider for their real state. This covers the delivery gap where a webhook
// never arrived or the process crashed before applying it.
type PaymentReconciler struct {
	reconcileUC usecase.ReconcileUseCase
	enrollments repository.EnrollmentRepository
	gateways    map[string]adapter.PaymentGateway
	interval    time.Duration // how often to scan
	staleAfter  time.Duration // how old a pending order must be to retry
	log         *zerolog.Logger
}

func NewPaymentReconciler(
	reconcileUC usecase.ReconcileUseCase,
	enrollments repository.EnrollmentRepository,
	gateways map[string]adapter.PaymentGateway,
	interval, staleAfter time.Duration,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	compLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		reconcileUC: reconcileUC,
		enrollments: enrollments,
		gateways:    gateways,
		interval:    interval,
		staleAfter:  staleAfter,
		log:         &compLog,
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting payment reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.enrollments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending enrollments failed")
		return
	}
	for _, e := range pending {
		gw, ok := w.gateways[e.Provider]
		if !ok {
			continue
		}
		state, txnID, err := gw.VerifyOrder(ctx, e.OrderID)
		if err != nil {
			w.log.Warn().Err(err).Str("order_id", e.OrderID).Str("provider", e.Provider).Msg("provider verification failed")
			continue
		}
		// Stable synthetic event ids: a later tick or a late webhook for the
		// same outcome lands on the ledger row and no-ops.
		switch state {
		case adapter.OrderStatePaid:
			if err := w.reconcileUC.PaymentSucceeded(ctx, e.Provider, "reconcile:"+e.OrderID+":paid", e.OrderID, txnID); err != nil {
				w.log.Error().Err(err).Str("order_id", e.OrderID).Msg("reconcile settle failed")
				continue
			}
			w.log.Info().Str("order_id", e.OrderID).Msg("stale pending order reconciled as paid")
		case adapter.OrderStateFailed:
			if err := w.reconcileUC.PaymentFailed(ctx, e.Provider, "reconcile:"+e.OrderID+":failed", e.OrderID, false); err != nil {
				w.log.Error().Err(err).Str("order_id", e.OrderID).Msg("reconcile fail-mark failed")
			}
		}
	}
}
