package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
)

type KafkaEvent = string

const (
	SyncCompletedEvent          KafkaEvent = "sync_completed"
	ClaimItemsTransitionedEvent KafkaEvent = "claim_items_transitioned"
	SyncRequestedCommand        KafkaEvent = "sync_requested"
)

// Envelope общий формат событий и команд
type Envelope struct {
	Type       KafkaEvent      `json:"type"`
	AccountID  string          `json:"account_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// ClaimItemsTransitioned данные события о решении по возврату
type ClaimItemsTransitioned struct {
	ClaimID     string             `json:"claim_id"`
	LineItemIDs []string           `json:"line_item_ids"`
	Action      models.ClaimAction `json:"action"`
	ReasonID    int                `json:"reason_id,omitempty"`
}

// SyncRequested команда воркеру запустить синхронизацию
type SyncRequested struct {
	Resource models.Resource `json:"resource"`
}

// Topics имена топиков событий и команд
type Topics struct {
	Events   string
	Commands string
}

// Publisher публикует доменные события в брокер.
// Ключ сообщения ID аккаунта: события одного аккаунта сохраняют порядок
type Publisher struct {
	broker interfaces.MessagingPort
	topics Topics
	now    func() time.Time
}

// NewPublisher создает издателя событий
func NewPublisher(broker interfaces.MessagingPort, topics Topics) *Publisher {
	return &Publisher{
		broker: broker,
		topics: topics,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewEnvelope упаковывает payload в конверт
func NewEnvelope(kind KafkaEvent, accountID string, payload any, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{
		Type:       kind,
		AccountID:  accountID,
		OccurredAt: at,
		Payload:    raw,
	})
}

// DecodeEnvelope разбирает конверт
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Type == "" || env.AccountID == "" {
		return nil, fmt.Errorf("envelope without type or account_id")
	}
	return &env, nil
}

func (p *Publisher) publish(ctx context.Context, topic string, kind KafkaEvent, accountID string, payload any) error {
	body, err := NewEnvelope(kind, accountID, payload, p.now())
	if err != nil {
		return err
	}
	return p.broker.PublishWithKey(ctx, topic, accountID, body)
}

// SyncCompleted публикует итог синхронизации
func (p *Publisher) SyncCompleted(ctx context.Context, result *models.SyncResult) error {
	return p.publish(ctx, p.topics.Events, SyncCompletedEvent, result.AccountID, result)
}

// ClaimItemsTransitioned публикует решение по позициям возврата
func (p *Publisher) ClaimItemsTransitioned(ctx context.Context, accountID string, t models.ClaimTransition) error {
	return p.publish(ctx, p.topics.Events, ClaimItemsTransitionedEvent, accountID, ClaimItemsTransitioned{
		ClaimID:     t.ClaimID,
		LineItemIDs: t.LineItemIDs,
		Action:      t.Action,
		ReasonID:    t.ReasonID,
	})
}

// RequestSync отправляет воркеру команду на синхронизацию
func (p *Publisher) RequestSync(ctx context.Context, accountID string, resource models.Resource) error {
	return p.publish(ctx, p.topics.Commands, SyncRequestedCommand, accountID, SyncRequested{Resource: resource})
}
