package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
	"github.com/oaklinehq/oakline-backend/pkg/outbox"
)

// OrderConfirmedEvent is emitted when a payment is verified.
type OrderConfirmedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      uuid.UUID `json:"order_number"`
	UserID           uuid.UUID `json:"user_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
}

// PaymentFailedEvent is emitted when signature verification rejects a payment.
type PaymentFailedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	Reason         string    `json:"reason"`
}

// CompletePayment reconciles the gateway artifacts against the order. The
// signature check is the only source of truth for payment success; a failed
// check records the attempt and keeps the reservations held so the client can
// retry against the same order.
func (s *service) CompletePayment(ctx context.Context, input CompleteInput) (*models.Order, error) {
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" || input.GatewaySignature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id, payment id, and signature are required")
	}

	order, err := s.ordersRepo.FindByIDForUser(ctx, input.OrderID, input.UserID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !order.PaymentMethod.RequiresGateway() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order does not settle through the gateway")
	}
	if order.GatewayOrderID == nil || *order.GatewayOrderID != input.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id does not match the order")
	}

	// a repeated call with the artifacts of an already verified payment is a
	// no-op, not a conflict
	if order.PaymentStatus == enums.PaymentStatusPaid {
		if order.GatewayPaymentID != nil && *order.GatewayPaymentID == input.GatewayPaymentID {
			return order, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	// one completion per (order, payment) runs at a time; the key is released
	// on every failure path so the client can retry the same payment
	idemKey := s.idem.IdempotencyKey("checkout-complete", order.ID.String()+":"+input.GatewayPaymentID)
	acquired, err := s.idem.SetNX(ctx, idemKey, "1", s.cfg.CompletionIdempotencyTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "payment completion already in progress")
	}

	_, verifyErr := s.gateway.VerifyPayment(input.GatewayOrderID, input.GatewayPaymentID, input.GatewaySignature)
	if verifyErr != nil {
		if typed := pkgerrors.As(verifyErr); typed != nil && typed.Code() == pkgerrors.CodePaymentVerification {
			if recordErr := s.recordFailedVerification(ctx, order, input); recordErr != nil {
				s.releaseCompletionKey(ctx, idemKey)
				return nil, recordErr
			}
			if s.logg != nil {
				logCtx := s.logg.WithOrderID(ctx, order.ID.String())
				s.logg.Warn(logCtx, "payment signature rejected, possible tampering")
			}
		}
		s.releaseCompletionKey(ctx, idemKey)
		return nil, verifyErr
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		if !order.PaymentStatus.CanTransitionTo(enums.PaymentStatusPaid) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment can no longer be completed")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusConfirmed) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be confirmed")
		}

		order.PaymentStatus = enums.PaymentStatusPaid
		order.Status = enums.OrderStatusConfirmed
		order.GatewayPaymentID = &input.GatewayPaymentID
		order.GatewaySignature = &input.GatewaySignature
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          "Payment verified, order confirmed",
			ActorID:       &input.UserID,
		}); err != nil {
			return err
		}

		if err := s.ledger.Commit(ctx, tx, order.ID); err != nil {
			return err
		}

		userCart, err := s.cartRepo.WithTx(tx).FindByUser(ctx, order.UserID)
		if err != nil {
			return err
		}
		if userCart != nil {
			if err := s.cartRepo.WithTx(tx).ClearItems(ctx, userCart.ID); err != nil {
				return err
			}
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			Data: OrderConfirmedEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				UserID:           order.UserID,
				GatewayPaymentID: input.GatewayPaymentID,
			},
			Version: 1,
		})
	})
	if err != nil {
		s.releaseCompletionKey(ctx, idemKey)
		return nil, err
	}
	return order, nil
}

func (s *service) releaseCompletionKey(ctx context.Context, key string) {
	if err := s.idem.Del(ctx, key); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "idempotency_key", key), "failed to release completion idempotency key")
	}
}

// recordFailedVerification persists the attempt so it is auditable without
// marking the order paid or touching its reservations.
func (s *service) recordFailedVerification(ctx context.Context, order *models.Order, input CompleteInput) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		if !order.PaymentStatus.CanTransitionTo(enums.PaymentStatusFailed) {
			return nil
		}
		order.PaymentStatus = enums.PaymentStatusFailed
		order.GatewayPaymentID = &input.GatewayPaymentID
		order.GatewaySignature = &input.GatewaySignature
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          "Payment signature verification failed",
			ActorID:       &input.UserID,
		}); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: PaymentFailedEvent{
				OrderID:        order.ID,
				GatewayOrderID: input.GatewayOrderID,
				Reason:         "signature mismatch",
			},
			Version: 1,
		})
	})
}
