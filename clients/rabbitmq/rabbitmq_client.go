package rabbitmq_client

import (
	"buffettbackend/types"
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

type Config struct {
	Server   string
	Port     string
	User     string
	Password string
	Queue    string
}

type Publisher struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	queue      amqp.Queue
}

// NewPublisher dials the broker and declares a durable queue for analysis events.
func NewPublisher(cfg Config) (*Publisher, error) {
	zap.L().Info("RabbitMQ server", zap.String("server", cfg.Server), zap.String("port", cfg.Port), zap.String("user", cfg.User))

	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.User, cfg.Password, cfg.Server, cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.Queue, // Name of the queue
		true,      // Durable
		false,     // Delete when unused
		false,     // Exclusive
		false,     // No-wait
		nil,       // Arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq declare queue: %w", err)
	}

	zap.L().Info("Connected to RabbitMQ.", zap.String("queue", q.Name))
	return &Publisher{connection: conn, channel: ch, queue: q}, nil
}

func (p *Publisher) Publish(ctx context.Context, event types.AnalysisCompletedEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal analysis event: %w", err)
	}

	zap.L().Debug("Sending message to rabbitmq", zap.String("queue", p.queue.Name), zap.String("symbol", event.Symbol))
	return p.channel.Publish(
		"",           // Exchange (empty means default)
		p.queue.Name, // Routing key (queue name in this case)
		false,        // Mandatory
		false,        // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Body:         message,
		})
}

func (p *Publisher) Close() {
	p.channel.Close()
	p.connection.Close()
}
