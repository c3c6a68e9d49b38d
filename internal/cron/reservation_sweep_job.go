package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/internal/inventory"
	"github.com/oaklinehq/oakline-backend/internal/orders"
	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
	"github.com/oaklinehq/oakline-backend/pkg/outbox"
)

const sweepBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ReservationSweepJobParams configure the expired reservation sweep.
type ReservationSweepJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Ledger     inventory.Ledger
	OrdersRepo orders.Repository
	Outbox     outboxEmitter
}

// ReservationExpiredEvent is emitted when a hold is reclaimed.
type ReservationExpiredEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	ItemsFreed int       `json:"items_freed"`
	ExpiredAt  time.Time `json:"expired_at"`
}

// NewReservationSweepJob builds the job that reclaims stock held by orders
// whose payment never arrived.
func NewReservationSweepJob(params ReservationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &reservationSweepJob{
		logg:       params.Logger,
		db:         params.DB,
		ledger:     params.Ledger,
		ordersRepo: params.OrdersRepo,
		outbox:     params.Outbox,
		now:        time.Now,
	}, nil
}

type reservationSweepJob struct {
	logg       *logger.Logger
	db         txRunner
	ledger     inventory.Ledger
	ordersRepo orders.Repository
	outbox     outboxEmitter
	now        func() time.Time
}

func (j *reservationSweepJob) Name() string { return "reservation-sweep" }

func (j *reservationSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	expired, err := j.ledger.FindExpired(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("query expired reservations: %w", err)
	}

	orderIDs := make([]uuid.UUID, 0, len(expired))
	seen := make(map[uuid.UUID]struct{}, len(expired))
	for _, reservation := range expired {
		if _, ok := seen[reservation.OrderID]; ok {
			continue
		}
		seen[reservation.OrderID] = struct{}{}
		orderIDs = append(orderIDs, reservation.OrderID)
	}

	var errs []error
	swept := 0
	for _, orderID := range orderIDs {
		if err := j.sweepOrder(ctx, orderID); err != nil {
			errs = append(errs, fmt.Errorf("sweep order %s: %w", orderID, err))
			continue
		}
		swept++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"expired_orders": len(orderIDs), "swept": swept})
	j.logg.Info(logCtx, "reservation sweep complete")
	return multierr.Combine(errs...)
}

// sweepOrder releases one order's hold inside a single transaction. Orders
// that were paid or cancelled between the scan and the sweep are left alone.
func (j *reservationSweepJob) sweepOrder(ctx context.Context, orderID uuid.UUID) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.ordersRepo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return nil
		}
		if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
			return nil
		}
		// offline-settled orders never owe the gateway a payment; their
		// holds are committed at creation and are not ours to reclaim
		if !order.PaymentMethod.RequiresGateway() {
			return nil
		}

		freed, err := j.ledger.ReleaseByOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if freed == 0 {
			return nil
		}

		now := j.now().UTC()
		if order.PaymentStatus.CanTransitionTo(enums.PaymentStatusFailed) {
			order.PaymentStatus = enums.PaymentStatusFailed
			if err := repo.Save(ctx, order); err != nil {
				return err
			}
		}
		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          "Reservation expired, stock released",
		}); err != nil {
			return err
		}

		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReservationExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: ReservationExpiredEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				ItemsFreed: freed,
				ExpiredAt:  now,
			},
			Version: 1,
		})
	})
}
