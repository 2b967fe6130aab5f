// Package dispatch delivers verification codes to the external mail service.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"medbridge/internal/emailverify/models"
)

// EventVerificationCode is the event_type header value on published records.
const EventVerificationCode = "verification_code"

// Publisher is the subset of the Kafka producer the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// VerificationCodeEvent is the record the mail service consumes.
type VerificationCodeEvent struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	ExpiresAt   string `json:"expires_at"`
}

// KafkaDispatcher publishes one record per code, keyed by address so codes for
// one mailbox stay ordered on a partition.
type KafkaDispatcher struct {
	publisher Publisher
	topic     string
}

func NewKafkaDispatcher(publisher Publisher, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: publisher, topic: topic}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, msg models.Message) error {
	payload, err := json.Marshal(VerificationCodeEvent{
		Email:       msg.To,
		Code:        msg.Code,
		DisplayName: msg.DisplayName,
		ExpiresAt:   msg.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal verification code event: %w", err)
	}
	return d.publisher.Publish(ctx, d.topic, []byte(msg.To), payload, map[string]string{
		"event_type": EventVerificationCode,
	})
}
