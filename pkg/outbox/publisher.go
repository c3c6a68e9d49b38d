package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oaklinehq/oakline-backend/pkg/config"
	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
)

// Broker is the transport the publisher drains outbox rows onto.
type Broker interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Publisher polls unpublished outbox rows and relays them to the broker.
// Rows that keep failing stop being picked up once they exhaust MaxAttempts.
type Publisher struct {
	repo   *Repository
	broker Broker
	cfg    config.OutboxConfig
	logg   *logger.Logger
}

func NewPublisher(repo *Repository, broker Broker, cfg config.OutboxConfig, logg *logger.Logger) *Publisher {
	return &Publisher{repo: repo, broker: broker, cfg: cfg, logg: logg}
}

// Run drains the outbox until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(p.cfg.PollIntervalMS) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.DrainOnce(ctx); err != nil && p.logg != nil {
				p.logg.Error(ctx, "outbox drain failed", err)
			}
		}
	}
}

// DrainOnce publishes one batch and returns how many rows were relayed.
func (p *Publisher) DrainOnce(ctx context.Context) (int, error) {
	rows, err := p.repo.FetchUnpublished(p.cfg.BatchSize, p.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, row := range rows {
		if err := p.publishRow(ctx, row); err != nil {
			if markErr := p.repo.MarkFailed(row.ID, err); markErr != nil && p.logg != nil {
				p.logg.Error(ctx, "marking outbox row failed", markErr)
			}
			continue
		}
		if err := p.repo.MarkPublished(row.ID); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

func (p *Publisher) publishRow(ctx context.Context, row models.OutboxEvent) error {
	message := map[string]any{
		"id":            row.ID.String(),
		"eventType":     row.EventType,
		"aggregateType": row.AggregateType,
		"aggregateId":   row.AggregateID.String(),
		"payload":       row.Payload,
	}
	encoded, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return p.broker.Publish(ctx, p.cfg.Channel, string(encoded))
}
