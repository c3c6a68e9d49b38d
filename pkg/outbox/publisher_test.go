package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/pkg/config"
	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:outbox_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type fakeBroker struct {
	published map[string][]string
	fail      bool
}

func (f *fakeBroker) Publish(ctx context.Context, channel string, payload any) error {
	if f.fail {
		return errors.New("broker unavailable")
	}
	if f.published == nil {
		f.published = make(map[string][]string)
	}
	f.published[channel] = append(f.published[channel], fmt.Sprint(payload))
	return nil
}

func insertOutboxRow(t *testing.T, db *gorm.DB, eventType enums.OutboxEventType) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestDrainOnce_PublishesAndMarks(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	broker := &fakeBroker{}
	cfg := config.OutboxConfig{BatchSize: 10, MaxAttempts: 5, Channel: "oakline:events"}

	inserted := insertOutboxRow(t, db, enums.EventOrderCreated)

	publisher := NewPublisher(repo, broker, cfg, nil)
	count, err := publisher.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, broker.published["oakline:events"], 1)

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", inserted.ID).Error)
	assert.NotNil(t, stored.PublishedAt)

	count, err = publisher.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDrainOnce_BrokerFailureIncrementsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	broker := &fakeBroker{fail: true}
	cfg := config.OutboxConfig{BatchSize: 10, MaxAttempts: 2, Channel: "oakline:events"}

	inserted := insertOutboxRow(t, db, enums.EventOrderConfirmed)

	publisher := NewPublisher(repo, broker, cfg, nil)
	for i := 0; i < 3; i++ {
		count, err := publisher.DrainOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	}

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", inserted.ID).Error)
	assert.Nil(t, stored.PublishedAt)
	assert.Equal(t, 2, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
}

func TestEmitIfNotExists_Deduplicates(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	service := NewService(repo, nil)

	aggregateID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   aggregateID,
		Data:          map[string]string{"reason": "customer"},
		Version:       1,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := service.EmitIfNotExists(context.Background(), tx, event); err != nil {
			return err
		}
		return service.EmitIfNotExists(context.Background(), tx, event)
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", aggregateID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
