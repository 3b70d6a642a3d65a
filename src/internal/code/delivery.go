package code

import (
	"encoding/json"
	"fmt"
	"qrlogin-svc/src/internal/config"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// DeliveryMessage is handed to the delivery worker over the queue. The
// actual email/SMS send happens outside this service.
type DeliveryMessage struct {
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Username  string    `json:"username,omitempty"`
	Code      string    `json:"code"`
	TTL       int       `json:"ttl_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher pushes delivery messages onto the broker.
type Publisher interface {
	PublishCode(msg *DeliveryMessage) error
}

type amqpPublisher struct {
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
}

func NewPublisher(channel *amqp.Channel, cfg *config.RabbitMQConfig) Publisher {
	return &amqpPublisher{
		channel: channel,
		cfg:     cfg,
	}
}

func (p *amqpPublisher) PublishCode(msg *DeliveryMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery message: %w", err)
	}

	err = p.channel.Publish(
		p.cfg.Exchange,
		p.cfg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		logrus.WithError(err).Error("Failed to publish code delivery message")
		return fmt.Errorf("failed to publish delivery message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"channel":     msg.Channel,
		"recipient":   msg.Recipient,
		"exchange":    p.cfg.Exchange,
		"routing_key": p.cfg.RoutingKey,
	}).Debug("Code delivery message published")

	return nil
}
