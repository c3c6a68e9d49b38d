package cron

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/internal/inventory"
	"github.com/oaklinehq/oakline-backend/internal/orders"
	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
	"github.com/oaklinehq/oakline-backend/pkg/outbox"
)

const sweepSchema = `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  price NUMERIC NOT NULL,
  compare_at_price NUMERIC,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  is_in_stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  user_id TEXT NOT NULL,
  address_id TEXT NOT NULL,
  ship_full_name TEXT NOT NULL DEFAULT '',
  ship_phone TEXT NOT NULL DEFAULT '',
  ship_street TEXT NOT NULL DEFAULT '',
  ship_city TEXT NOT NULL DEFAULT '',
  ship_state TEXT NOT NULL DEFAULT '',
  ship_postal_code TEXT NOT NULL DEFAULT '',
  ship_country TEXT NOT NULL DEFAULT 'IN',
  subtotal NUMERIC NOT NULL DEFAULT 0,
  tax_amount NUMERIC NOT NULL DEFAULT 0,
  platform_fee NUMERIC NOT NULL DEFAULT 0,
  shipping_cost NUMERIC NOT NULL DEFAULT 0,
  coupon_discount NUMERIC NOT NULL DEFAULT 0,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  coupon_code TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL DEFAULT 'upi',
  gateway_order_id TEXT,
  gateway_payment_id TEXT,
  gateway_signature TEXT,
  tracking_number TEXT,
  courier TEXT,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  product_name TEXT NOT NULL,
  variant_color TEXT,
  variant_size TEXT,
  variant_pattern TEXT,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  note TEXT NOT NULL,
  actor_id TEXT,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS stock_reservations (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'reserved',
  expires_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`

type gormTxRunner struct {
	db *gorm.DB
}

func (g *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type sweepEnv struct {
	db  *gorm.DB
	job Job
}

func newSweepEnv(t *testing.T) *sweepEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:sweep_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(sweepSchema).Error)

	ledger, err := inventory.NewLedger(db)
	require.NoError(t, err)
	job, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         &gormTxRunner{db: db},
		Ledger:     ledger,
		OrdersRepo: orders.NewRepository(db),
		Outbox:     outbox.NewService(outbox.NewRepository(db), nil),
	})
	require.NoError(t, err)
	return &sweepEnv{db: db, job: job}
}

func (e *sweepEnv) seedHeldOrder(t *testing.T, qty int, expiresAt time.Time, status enums.OrderStatus, paymentStatus enums.PaymentStatus) (uuid.UUID, uuid.UUID) {
	t.Helper()
	return e.seedHeldOrderWithMethod(t, qty, expiresAt, status, paymentStatus, enums.PaymentMethodUPI)
}

func (e *sweepEnv) seedHeldOrderWithMethod(t *testing.T, qty int, expiresAt time.Time, status enums.OrderStatus, paymentStatus enums.PaymentStatus, method enums.PaymentMethod) (uuid.UUID, uuid.UUID) {
	t.Helper()
	productID := uuid.New()
	require.NoError(t, e.db.Exec(
		`INSERT INTO products (id, sku, name, category, price, stock_quantity, is_in_stock) VALUES (?, ?, 'Walnut Bookshelf', 'storage', '8000.00', 10, 1)`,
		productID.String(), "SKU-"+productID.String()[:8],
	).Error)

	orderID := uuid.New()
	require.NoError(t, e.db.Exec(
		`INSERT INTO orders (id, order_number, user_id, address_id, status, payment_status, payment_method) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		orderID.String(), uuid.NewString(), uuid.NewString(), uuid.NewString(), string(status), string(paymentStatus), string(method),
	).Error)
	require.NoError(t, e.db.Exec(
		`INSERT INTO stock_reservations (id, order_id, product_id, quantity, status, expires_at) VALUES (?, ?, ?, ?, 'reserved', ?)`,
		uuid.NewString(), orderID.String(), productID.String(), qty, expiresAt,
	).Error)
	return orderID, productID
}

func (e *sweepEnv) productStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, e.db.First(&product, "id = ?", id).Error)
	return product.StockQuantity
}

func TestSweep_ReleasesExpiredHold(t *testing.T) {
	env := newSweepEnv(t)
	orderID, productID := env.seedHeldOrder(t, 3, time.Now().Add(-time.Minute), enums.OrderStatusPending, enums.PaymentStatusPending)

	require.NoError(t, env.job.Run(context.Background()))

	assert.Equal(t, 13, env.productStock(t, productID))

	var order models.Order
	require.NoError(t, env.db.First(&order, "id = ?", orderID).Error)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusFailed, order.PaymentStatus)

	var historyCount, eventCount int64
	require.NoError(t, env.db.Model(&models.OrderStatusHistory{}).Where("order_id = ?", orderID).Count(&historyCount).Error)
	require.NoError(t, env.db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", orderID).Count(&eventCount).Error)
	assert.Equal(t, int64(1), historyCount)
	assert.Equal(t, int64(1), eventCount)

	var reservation models.StockReservation
	require.NoError(t, env.db.First(&reservation, "order_id = ?", orderID).Error)
	assert.Equal(t, enums.ReservationStatusReleased, reservation.Status)
}

func TestSweep_LeavesUnexpiredHold(t *testing.T) {
	env := newSweepEnv(t)
	_, productID := env.seedHeldOrder(t, 3, time.Now().Add(time.Hour), enums.OrderStatusPending, enums.PaymentStatusPending)

	require.NoError(t, env.job.Run(context.Background()))
	assert.Equal(t, 10, env.productStock(t, productID))
}

func TestSweep_SkipsPaidOrder(t *testing.T) {
	env := newSweepEnv(t)
	orderID, productID := env.seedHeldOrder(t, 3, time.Now().Add(-time.Minute), enums.OrderStatusConfirmed, enums.PaymentStatusPaid)

	require.NoError(t, env.job.Run(context.Background()))

	assert.Equal(t, 10, env.productStock(t, productID))
	var historyCount int64
	require.NoError(t, env.db.Model(&models.OrderStatusHistory{}).Where("order_id = ?", orderID).Count(&historyCount).Error)
	assert.Equal(t, int64(0), historyCount)
}

func TestSweep_SkipsCashOnDeliveryOrder(t *testing.T) {
	env := newSweepEnv(t)
	orderID, productID := env.seedHeldOrderWithMethod(t, 3, time.Now().Add(-time.Minute),
		enums.OrderStatusPending, enums.PaymentStatusPending, enums.PaymentMethodCOD)

	require.NoError(t, env.job.Run(context.Background()))

	// no gateway payment is owed, so the hold and the order stay untouched
	assert.Equal(t, 10, env.productStock(t, productID))

	var order models.Order
	require.NoError(t, env.db.First(&order, "id = ?", orderID).Error)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)

	var historyCount int64
	require.NoError(t, env.db.Model(&models.OrderStatusHistory{}).Where("order_id = ?", orderID).Count(&historyCount).Error)
	assert.Equal(t, int64(0), historyCount)
}

func TestSweep_SecondRunIsIdempotent(t *testing.T) {
	env := newSweepEnv(t)
	orderID, productID := env.seedHeldOrder(t, 3, time.Now().Add(-time.Minute), enums.OrderStatusPending, enums.PaymentStatusPending)

	require.NoError(t, env.job.Run(context.Background()))
	require.NoError(t, env.job.Run(context.Background()))

	assert.Equal(t, 13, env.productStock(t, productID))
	var historyCount int64
	require.NoError(t, env.db.Model(&models.OrderStatusHistory{}).Where("order_id = ?", orderID).Count(&historyCount).Error)
	assert.Equal(t, int64(1), historyCount)
}
