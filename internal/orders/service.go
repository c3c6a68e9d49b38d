package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/internal/inventory"
	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
	"github.com/oaklinehq/oakline-backend/pkg/outbox"
	"github.com/oaklinehq/oakline-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ShipInput carries the courier details recorded when an order ships.
type ShipInput struct {
	TrackingNumber string
	Courier        string
	ActorID        *uuid.UUID
}

// Service owns order reads and lifecycle transitions. Every transition writes
// the order and exactly one history row in the same transaction.
type Service interface {
	Get(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	Confirm(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	Ship(ctx context.Context, orderID uuid.UUID, input ShipInput) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID) (*models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger inventory.Ledger
	outbox outboxEmitter
}

// NewService validates dependencies and returns an order service.
func NewService(repo Repository, tx txRunner, ledger inventory.Ledger, emitter outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository is required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if ledger == nil {
		return nil, errors.New("inventory ledger is required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter is required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger, outbox: emitter}, nil
}

func (s *service) Get(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	return s.repo.ListByUser(ctx, userID, params)
}

// OrderConfirmedEvent is emitted when an order moves to confirmed.
type OrderConfirmedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber uuid.UUID `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
}

// Confirm moves a pending order to confirmed. Gateway orders confirm through
// payment verification; this operator path accepts offline-settled orders and
// anything already paid.
func (s *service) Confirm(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID) (*models.Order, error) {
	var confirmed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.PaymentMethod.RequiresGateway() && order.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order confirms once its payment is verified")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusConfirmed) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot confirm an order in status %s", order.Status))
		}

		order.Status = enums.OrderStatusConfirmed
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          "Order confirmed",
			ActorID:       actorID,
		}); err != nil {
			return err
		}

		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: OrderConfirmedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
			},
			Version: 1,
		}); err != nil {
			return err
		}
		confirmed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// OrderCancelledEvent is emitted when an order is cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber uuid.UUID `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	ItemsFreed  int       `json:"items_freed"`
}

func (s *service) Cancel(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUser(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel an order in status %s", order.Status))
		}

		released, err := s.ledger.ReleaseByOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		entry := &models.OrderStatusHistory{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          "Order cancelled",
			ActorID:       &userID,
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: OrderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				ItemsFreed:  released,
			},
			Version: 1,
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return err
		}
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// OrderShippedEvent is emitted when an order ships.
type OrderShippedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	Courier        string    `json:"courier"`
}

func (s *service) Ship(ctx context.Context, orderID uuid.UUID, input ShipInput) (*models.Order, error) {
	if input.TrackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}
	return s.transition(ctx, orderID, enums.OrderStatusShipped, "Order shipped", input.ActorID,
		func(order *models.Order) {
			order.TrackingNumber = &input.TrackingNumber
			if input.Courier != "" {
				order.Courier = &input.Courier
			}
		},
		func(order *models.Order) outbox.DomainEvent {
			return outbox.DomainEvent{
				EventType:     enums.EventOrderShipped,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: OrderShippedEvent{
					OrderID:        order.ID,
					TrackingNumber: input.TrackingNumber,
					Courier:        input.Courier,
				},
				Version: 1,
			}
		})
}

// OrderDeliveredEvent is emitted when an order is delivered.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID) (*models.Order, error) {
	now := time.Now()
	return s.transition(ctx, orderID, enums.OrderStatusDelivered, "Order delivered", actorID,
		func(order *models.Order) {
			order.DeliveredAt = &now
			if order.PaymentMethod == enums.PaymentMethodCOD {
				order.PaymentStatus = enums.PaymentStatusPaid
			}
		},
		func(order *models.Order) outbox.DomainEvent {
			return outbox.DomainEvent{
				EventType:     enums.EventOrderDelivered,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data:          OrderDeliveredEvent{OrderID: order.ID, DeliveredAt: now},
				Version:       1,
			}
		})
}

func (s *service) transition(
	ctx context.Context,
	orderID uuid.UUID,
	target enums.OrderStatus,
	note string,
	actorID *uuid.UUID,
	mutate func(*models.Order),
	event func(*models.Order) outbox.DomainEvent,
) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
		}

		order.Status = target
		if mutate != nil {
			mutate(order)
		}
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		entry := &models.OrderStatusHistory{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          note,
			ActorID:       actorID,
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return err
		}
		if event != nil {
			if err := s.outbox.EmitIfNotExists(ctx, tx, event(order)); err != nil {
				return err
			}
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
