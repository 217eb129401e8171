package worker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stitchkart/internal/domain"
	"stitchkart/internal/repo"
	"stitchkart/internal/service"
)

const sweepBatchSize = 100

// ReconciliationWorker sweeps payments that stayed UNPAID past the cutoff --
// carts whose gateway callback never arrived -- and applies the same
// compensation policy the callback failure branch uses.
type ReconciliationWorker struct {
	db           *sql.DB
	orderRepo    repo.OrderRepo
	paymentRepo  repo.PaymentRepo
	compensation service.CompensationPolicy
	interval     time.Duration
	cutoff       time.Duration
	log          *zap.Logger
}

func NewReconciliationWorker(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	paymentRepo repo.PaymentRepo,
	compensation service.CompensationPolicy,
	interval time.Duration,
	cutoff time.Duration,
	log *zap.Logger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		db:           db,
		orderRepo:    orderRepo,
		paymentRepo:  paymentRepo,
		compensation: compensation,
		interval:     interval,
		cutoff:       cutoff,
		log:          log,
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.log.Info("reconciliation worker started",
		zap.Duration("interval", rw.interval),
		zap.Duration("cutoff", rw.cutoff),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rw.process(ctx); err != nil {
				rw.log.Error("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

func (rw *ReconciliationWorker) process(ctx context.Context) error {
	abandoned, err := rw.paymentRepo.FindUnpaidBefore(ctx, time.Now().Add(-rw.cutoff), sweepBatchSize)
	if err != nil {
		return fmt.Errorf("paymentRepo.FindUnpaidBefore: %w", err)
	}

	for _, pay := range abandoned {
		if err := rw.compensate(ctx, pay); err != nil {
			rw.log.Error("failed to compensate abandoned payment",
				zap.String("payment_id", pay.ID.String()),
				zap.Error(err),
			)
			continue
		}

		rw.log.Info("abandoned payment compensated",
			zap.String("payment_id", pay.ID.String()),
			zap.String("order_id", pay.OrderID.String()),
		)
	}

	return nil
}

func (rw *ReconciliationWorker) compensate(ctx context.Context, pay domain.Payment) error {
	tx, err := rw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTx: %w", err)
	}
	defer tx.Rollback()

	switch rw.compensation {
	case service.CompensationCancel:
		if err := rw.paymentRepo.MarkFailed(ctx, tx, pay.ID, nil); err != nil {
			return fmt.Errorf("paymentRepo.MarkFailed: %w", err)
		}
		if err := rw.orderRepo.UpdateStatusTx(ctx, tx, pay.OrderID, domain.OrderCancelled); err != nil {
			return fmt.Errorf("orderRepo.UpdateStatusTx: %w", err)
		}
	default:
		if err := rw.paymentRepo.Delete(ctx, tx, pay.ID); err != nil {
			return fmt.Errorf("paymentRepo.Delete: %w", err)
		}
		if err := rw.orderRepo.Delete(ctx, tx, pay.OrderID); err != nil {
			return fmt.Errorf("orderRepo.Delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}

	return nil
}
