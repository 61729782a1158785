package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"medassist/internal/model"
)

// SpeechPublisher enqueues synthesized-speech jobs for the playback worker.
type SpeechPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewSpeechPublisher(conn *amqp.Connection, queueName string) *SpeechPublisher {
	return &SpeechPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *SpeechPublisher) Publish(ctx context.Context, job model.SpeechJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal speech job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish speech job failed: %w", err)
	}
	return nil
}
