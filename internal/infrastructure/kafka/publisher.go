package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

type DefaultKafkaPublisher struct {
	writer *kafka.Writer
}

func NewDefaultKafkaPublisher(brokers []string) *DefaultKafkaPublisher {
	return &DefaultKafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (k *DefaultKafkaPublisher) Publish(topic string, msgs ...domain.Message) error {
	var km []kafka.Message
	for _, m := range msgs {
		km = append(km, kafka.Message{
			Key:   m.Key,
			Value: m.Value,
			Time:  time.Now(),
			Topic: topic,
		})
	}

	return k.writer.WriteMessages(context.Background(), km...)
}

func (k *DefaultKafkaPublisher) PublishPayment(event PaymentEvent) error {
	v, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return k.Publish(TopicPaymentEvents, domain.Message{Key: []byte(event.EscrowID), Value: v})
}

func (k *DefaultKafkaPublisher) PublishTimeout(event TimeoutEvent) error {
	v, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return k.Publish(TopicTimeoutEvents, domain.Message{Key: []byte(event.EntityID), Value: v})
}

// BatchPublishTimeouts publishes one sweep's worth of timeout events in a
// single write. Events that fail to marshal are skipped, not fatal.
func (k *DefaultKafkaPublisher) BatchPublishTimeouts(events []TimeoutEvent) error {
	if len(events) == 0 {
		return nil
	}

	if len(events) == 1 {
		return k.PublishTimeout(events[0])
	}

	messages := make([]kafka.Message, 0, len(events))
	timestamp := time.Now()

	for _, event := range events {
		msg, err := json.Marshal(event)
		if err != nil {
			log.Printf("Failed to marshal timeout event for %s %s: %v", event.EntityType, event.EntityID, err)
			continue
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(event.EntityID),
			Value: msg,
			Time:  timestamp,
			Topic: TopicTimeoutEvents,
		})
	}

	if len(messages) == 0 {
		return fmt.Errorf("no valid messages to publish")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed to write batch messages: %w", err)
	}

	log.Printf("Successfully published %d timeout events to Kafka", len(messages))
	return nil
}

// BatchPublishTimeoutsWithRetry splits large sweeps into chunks and retries
// each chunk with a linear backoff. Only a total failure is returned as an
// error; partial success is logged and accepted.
func (k *DefaultKafkaPublisher) BatchPublishTimeoutsWithRetry(events []TimeoutEvent, batchSize int, maxRetries int) error {
	if len(events) == 0 {
		return nil
	}

	if batchSize <= 0 {
		batchSize = 100
	}

	var allErrors []error
	successfulCount := 0

	for i := 0; i < len(events); i += batchSize {
		end := i + batchSize
		if end > len(events) {
			end = len(events)
		}

		batch := events[i:end]

		var err error
		for attempt := 1; attempt <= maxRetries; attempt++ {
			err = k.BatchPublishTimeouts(batch)
			if err == nil {
				successfulCount += len(batch)
				break
			}

			log.Printf("Batch publish attempt %d failed: %v", attempt, err)

			if attempt < maxRetries {
				time.Sleep(time.Duration(attempt) * time.Second)
			}
		}

		if err != nil {
			allErrors = append(allErrors, fmt.Errorf("batch %d-%d failed after %d attempts: %w",
				i, end, maxRetries, err))
		}
	}

	log.Printf("Batch publish completed: %d/%d events successful", successfulCount, len(events))

	if successfulCount == 0 && len(allErrors) > 0 {
		return fmt.Errorf("all batches failed: %v", allErrors)
	}

	return nil
}
