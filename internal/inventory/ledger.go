package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
)

// Line identifies one stock decrement scoped to a product or, when set, one
// of its variants.
type Line struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// InsufficientStockDetails is attached to CodeInsufficientStock errors so the
// client can react without parsing prose.
type InsufficientStockDetails struct {
	ProductID uuid.UUID  `json:"productId"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Available int        `json:"available"`
}

// Ledger is the only mutator of stock_quantity. Every decrement happens
// through an atomic conditional update so concurrent checkouts against the
// same row resolve to exactly one winner.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []Line, expiresAt time.Time) error
	Commit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ReleaseByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int, error)
	FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error)
}

type ledger struct {
	db *gorm.DB
}

// NewLedger returns the inventory ledger bound to the provided DB.
func NewLedger(db *gorm.DB) (Ledger, error) {
	if db == nil {
		return nil, errors.New("inventory ledger requires a db")
	}
	return &ledger{db: db}, nil
}

// Reserve atomically decrements stock for every line and records one
// stock_reservations row per line. Reservations are all-or-nothing per order:
// the caller runs this inside a transaction, and the returned error aborts it,
// undoing decrements already granted.
func (l *ledger) Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []Line, expiresAt time.Time) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no lines to reserve")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}
		if err := l.decrement(ctx, tx, line); err != nil {
			return err
		}
		reservation := models.StockReservation{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			Status:    enums.ReservationStatusReserved,
			ExpiresAt: expiresAt,
		}
		if err := tx.WithContext(ctx).Create(&reservation).Error; err != nil {
			return err
		}
	}
	return nil
}

func (l *ledger) decrement(ctx context.Context, tx *gorm.DB, line Line) error {
	var result *gorm.DB
	if line.VariantID != nil {
		result = tx.WithContext(ctx).Model(&models.ProductVariant{}).
			Where("id = ? AND stock_quantity >= ?", *line.VariantID, line.Quantity).
			Updates(map[string]any{
				"stock_quantity": gorm.Expr("stock_quantity - ?", line.Quantity),
				"is_in_stock":    gorm.Expr("stock_quantity - ? > 0", line.Quantity),
			})
	} else {
		result = tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ? AND stock_quantity >= ?", line.ProductID, line.Quantity).
			Updates(map[string]any{
				"stock_quantity": gorm.Expr("stock_quantity - ?", line.Quantity),
				"is_in_stock":    gorm.Expr("stock_quantity - ? > 0", line.Quantity),
			})
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	available, err := l.availableQty(ctx, tx, line)
	if err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(InsufficientStockDetails{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Available: available,
		})
}

func (l *ledger) availableQty(ctx context.Context, tx *gorm.DB, line Line) (int, error) {
	var available int
	var err error
	if line.VariantID != nil {
		err = tx.WithContext(ctx).Model(&models.ProductVariant{}).
			Where("id = ?", *line.VariantID).
			Pluck("stock_quantity", &available).Error
	} else {
		err = tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ?", line.ProductID).
			Pluck("stock_quantity", &available).Error
	}
	return available, err
}

// Commit marks all reserved rows for the order as committed. Stock was
// already decremented at reserve time, so commit is a state marker only.
func (l *ledger) Commit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.WithContext(ctx).Model(&models.StockReservation{}).
		Where("order_id = ? AND status = ?", orderID, enums.ReservationStatusReserved).
		Update("status", enums.ReservationStatusCommitted).Error
}

// ReleaseByOrder restores stock for every non-released reservation of the
// order and marks the rows released. The status guard in the update makes a
// second release a no-op, so stock is returned exactly once per reservation.
func (l *ledger) ReleaseByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	var reservations []models.StockReservation
	err := tx.WithContext(ctx).
		Where("order_id = ? AND status <> ?", orderID, enums.ReservationStatusReleased).
		Find(&reservations).Error
	if err != nil {
		return 0, err
	}

	released := 0
	for _, reservation := range reservations {
		result := tx.WithContext(ctx).Model(&models.StockReservation{}).
			Where("id = ? AND status <> ?", reservation.ID, enums.ReservationStatusReleased).
			Update("status", enums.ReservationStatusReleased)
		if result.Error != nil {
			return released, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		if err := l.increment(ctx, tx, reservation); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

func (l *ledger) increment(ctx context.Context, tx *gorm.DB, reservation models.StockReservation) error {
	if reservation.VariantID != nil {
		return tx.WithContext(ctx).Model(&models.ProductVariant{}).
			Where("id = ?", *reservation.VariantID).
			Updates(map[string]any{
				"stock_quantity": gorm.Expr("stock_quantity + ?", reservation.Quantity),
				"is_in_stock":    true,
			}).Error
	}
	return tx.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", reservation.ProductID).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", reservation.Quantity),
			"is_in_stock":    true,
		}).Error
}

// FindExpired returns reserved rows whose hold expired before cutoff,
// grouped for the reclamation sweep.
func (l *ledger) FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error) {
	var rows []models.StockReservation
	err := l.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", enums.ReservationStatusReserved, cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
