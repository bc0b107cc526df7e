package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic string
	key   string
	body  []byte
}

type fakeBroker struct {
	mu   sync.Mutex
	sent []published
}

func (b *fakeBroker) Publish(ctx context.Context, topic string, message []byte) error {
	return b.PublishWithKey(ctx, topic, "", message)
}

func (b *fakeBroker) PublishWithKey(_ context.Context, topic, key string, message []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, published{topic: topic, key: key, body: message})
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string, interfaces.MessageHandler) (func() error, error) {
	return func() error { return nil }, nil
}

func (b *fakeBroker) Close() error { return nil }

func newTestPublisher() (*Publisher, *fakeBroker) {
	broker := &fakeBroker{}
	p := NewPublisher(broker, Topics{Events: "sync.events", Commands: "sync.commands"})
	p.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return p, broker
}

func TestPublisher_SyncCompleted(t *testing.T) {
	p, broker := newTestPublisher()

	err := p.SyncCompleted(context.Background(), &models.SyncResult{
		Resource:  models.ResourceProducts,
		AccountID: "acc-1",
		Created:   3,
	})
	require.NoError(t, err)

	require.Len(t, broker.sent, 1)
	assert.Equal(t, "sync.events", broker.sent[0].topic)
	assert.Equal(t, "acc-1", broker.sent[0].key)

	env, err := DecodeEnvelope(broker.sent[0].body)
	require.NoError(t, err)
	assert.Equal(t, SyncCompletedEvent, env.Type)
	assert.Equal(t, "acc-1", env.AccountID)

	var result models.SyncResult
	require.NoError(t, json.Unmarshal(env.Payload, &result))
	assert.Equal(t, 3, result.Created)
}

func TestPublisher_ClaimItemsTransitioned(t *testing.T) {
	p, broker := newTestPublisher()

	err := p.ClaimItemsTransitioned(context.Background(), "acc-1", models.ClaimTransition{
		ClaimID:     "c-1",
		LineItemIDs: []string{"i-1"},
		Action:      models.ClaimReject,
		ReasonID:    2,
		Description: "damaged",
	})
	require.NoError(t, err)

	env, err := DecodeEnvelope(broker.sent[0].body)
	require.NoError(t, err)
	assert.Equal(t, ClaimItemsTransitionedEvent, env.Type)

	var payload ClaimItemsTransitioned
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, ClaimItemsTransitioned{ClaimID: "c-1", LineItemIDs: []string{"i-1"}, Action: models.ClaimReject, ReasonID: 2}, payload)
}

func TestPublisher_RequestSync(t *testing.T) {
	p, broker := newTestPublisher()

	require.NoError(t, p.RequestSync(context.Background(), "acc-1", models.ResourceOrders))
	assert.Equal(t, "sync.commands", broker.sent[0].topic)

	env, err := DecodeEnvelope(broker.sent[0].body)
	require.NoError(t, err)
	assert.Equal(t, SyncRequestedCommand, env.Type)
	assert.JSONEq(t, `{"resource":"orders"}`, string(env.Payload))
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`{"type":"sync_requested"}`))
	assert.Error(t, err)
}

func TestKafkaMessageRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 123, time.UTC)
	km := messageToKafkaMessage("sync.events", []byte(`{}`), "acc-1", map[string]string{headerTenantID: "acc-1"}, at)

	assert.Equal(t, "sync.events", *km.TopicPartition.Topic)
	assert.Equal(t, kafka.PartitionAny, km.TopicPartition.Partition)
	assert.Equal(t, []byte("acc-1"), km.Key)

	msg := kafkaMessageToMessage(km)
	assert.Equal(t, "sync.events", msg.Topic)
	assert.Equal(t, "acc-1", msg.Key)
	assert.Equal(t, "acc-1", msg.TenantID)
	assert.NotEmpty(t, msg.ID)
	assert.True(t, at.Equal(msg.PublishedAt))
}

func TestKafkaMessageWithoutKey(t *testing.T) {
	km := messageToKafkaMessage("sync.events", []byte(`{}`), "", nil, time.Now())
	assert.Nil(t, km.Key)

	msg := kafkaMessageToMessage(km)
	assert.Empty(t, msg.Key)
	assert.Empty(t, msg.TenantID)
}
