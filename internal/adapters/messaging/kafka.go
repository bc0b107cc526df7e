package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

const (
	headerMessageID = "message_id"
	headerTimestamp = "timestamp"
	headerTenantID  = "tenant_id"
)

// KafkaConfig параметры подключения к Kafka
type KafkaConfig struct {
	Brokers     []string
	GroupID     string
	ClientID    string
	PollTimeout time.Duration
}

// KafkaMessaging реализация MessagingPort с использованием Kafka
type KafkaMessaging struct {
	producer       *kafka.Producer
	consumers      map[string]*kafka.Consumer
	consumersMutex sync.Mutex
	cfg            KafkaConfig
	logger         interfaces.LoggerPort
	done           chan struct{}
}

// NewKafkaMessaging создает producer и запускает чтение отчетов о доставке
func NewKafkaMessaging(cfg KafkaConfig, logger interfaces.LoggerPort) (*KafkaMessaging, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "gomarket-sync"
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 100 * time.Millisecond
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":            strings.Join(cfg.Brokers, ","),
		"client.id":                    cfg.ClientID + "-producer",
		"acks":                         "all",
		"enable.idempotence":           true,
		"retries":                      5,
		"retry.backoff.ms":             500,
		"compression.type":             "snappy",
		"linger.ms":                    10,
		"message.max.bytes":            1000000,
		"queue.buffering.max.messages": 100000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	k := &KafkaMessaging{
		producer:  producer,
		consumers: make(map[string]*kafka.Consumer),
		cfg:       cfg,
		logger:    logger,
		done:      make(chan struct{}),
	}
	go k.deliveryReports()

	return k, nil
}

// deliveryReports логирует сообщения, которые брокер не принял
func (k *KafkaMessaging) deliveryReports() {
	for {
		select {
		case <-k.done:
			return
		case ev, ok := <-k.producer.Events():
			if !ok {
				return
			}
			if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				k.logger.Error("Сообщение не доставлено в Kafka",
					"topic", topicName(m),
					"key", string(m.Key),
					"error", m.TopicPartition.Error.Error(),
				)
			}
		}
	}
}

func topicName(m *kafka.Message) string {
	if m.TopicPartition.Topic == nil {
		return ""
	}
	return *m.TopicPartition.Topic
}

// messageToKafkaMessage преобразует данные публикации в kafka.Message
func messageToKafkaMessage(topic string, value []byte, key string, headers map[string]string, now time.Time) *kafka.Message {
	kafkaHeaders := make([]kafka.Header, 0, len(headers)+2)
	for k, v := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: k, Value: []byte(v)})
	}
	kafkaHeaders = append(kafkaHeaders,
		kafka.Header{Key: headerMessageID, Value: []byte(uuid.New().String())},
		kafka.Header{Key: headerTimestamp, Value: []byte(now.UTC().Format(time.RFC3339Nano))},
	)

	var keyBytes []byte
	if key != "" {
		keyBytes = []byte(key)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
		Key:            keyBytes,
		Headers:        kafkaHeaders,
	}
}

// kafkaMessageToMessage преобразует kafka.Message в Message
func kafkaMessageToMessage(msg *kafka.Message) *interfaces.Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, header := range msg.Headers {
		headers[header.Key] = string(header.Value)
	}

	publishedAt := msg.Timestamp
	if ts, ok := headers[headerTimestamp]; ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			publishedAt = parsed
		}
	}

	return &interfaces.Message{
		ID:          headers[headerMessageID],
		Topic:       topicName(msg),
		Key:         string(msg.Key),
		Value:       msg.Value,
		Headers:     headers,
		TenantID:    headers[headerTenantID],
		PublishedAt: publishedAt,
	}
}

// Publish публикует сообщение в указанную тему
func (k *KafkaMessaging) Publish(ctx context.Context, topic string, message []byte) error {
	return k.produce(ctx, messageToKafkaMessage(topic, message, "", nil, time.Now()))
}

// PublishWithKey публикует сообщение с ключом. Ключ считается ID аккаунта
// и дублируется в заголовок tenant_id
func (k *KafkaMessaging) PublishWithKey(ctx context.Context, topic string, key string, message []byte) error {
	headers := map[string]string{headerTenantID: key}
	return k.produce(ctx, messageToKafkaMessage(topic, message, key, headers, time.Now()))
}

func (k *KafkaMessaging) produce(ctx context.Context, msg *kafka.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce message to %s: %w", topicName(msg), err)
	}
	return nil
}

// Subscribe подписывается на тему и обрабатывает сообщения в отдельной горутине.
// Смещение фиксируется только после успешной обработки
func (k *KafkaMessaging) Subscribe(ctx context.Context, topic string, handler interfaces.MessageHandler) (func() error, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":     strings.Join(k.cfg.Brokers, ","),
		"group.id":              k.cfg.GroupID,
		"client.id":             k.cfg.ClientID + "-consumer",
		"auto.offset.reset":     "latest",
		"enable.auto.commit":    false,
		"session.timeout.ms":    30000,
		"max.poll.interval.ms":  300000,
		"heartbeat.interval.ms": 3000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := consumer.Subscribe(topic, nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	id := uuid.New().String()
	k.consumersMutex.Lock()
	k.consumers[id] = consumer
	k.consumersMutex.Unlock()

	consumeCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		k.consumeMessages(consumeCtx, consumer, topic, handler)
	}()

	unsubscribe := func() error {
		cancel()
		<-stopped

		k.consumersMutex.Lock()
		c, ok := k.consumers[id]
		delete(k.consumers, id)
		k.consumersMutex.Unlock()

		if ok {
			return c.Close()
		}
		return nil
	}

	return unsubscribe, nil
}

// consumeMessages обрабатывает сообщения из Kafka
func (k *KafkaMessaging) consumeMessages(ctx context.Context, consumer *kafka.Consumer, topic string, handler interfaces.MessageHandler) {
	log := k.logger.WithField("topic", topic)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := consumer.Poll(int(k.cfg.PollTimeout.Milliseconds()))
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			msg := kafkaMessageToMessage(e)
			if err := handler(ctx, msg); err != nil {
				log.ErrorWithContext(ctx, "Ошибка обработки сообщения",
					"message_id", msg.ID,
					"key", msg.Key,
					"error", err.Error(),
				)
				continue
			}
			if _, err := consumer.CommitMessage(e); err != nil {
				log.WarnWithContext(ctx, "Не удалось зафиксировать смещение", "error", err.Error())
			}

		case kafka.Error:
			log.ErrorWithContext(ctx, "Ошибка Kafka", "code", e.Code().String(), "error", e.Error())
			if e.Code() == kafka.ErrAllBrokersDown {
				return
			}
		}
	}
}

// Close закрывает потребителей и дожидается отправки сообщений producer
func (k *KafkaMessaging) Close() error {
	k.consumersMutex.Lock()
	for id, consumer := range k.consumers {
		if err := consumer.Close(); err != nil {
			k.logger.Warn("Ошибка закрытия consumer", "error", err.Error())
		}
		delete(k.consumers, id)
	}
	k.consumersMutex.Unlock()

	if remaining := k.producer.Flush(15 * 1000); remaining > 0 {
		k.logger.Warn("Не все сообщения отправлены в Kafka", "remaining", remaining)
	}
	close(k.done)
	k.producer.Close()

	return nil
}
