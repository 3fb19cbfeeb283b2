package _kafka

import (
	"context"
	"encoding/json"

	_rabbitmq "streamloop/pkg/rabbitmq"

	_logger "streamloop/pkg/logger"
)

// AMQPDiagnostics publishes each Event to a topic exchange, using the
// event kind as the routing key so consumers can bind selectively
// (e.g. only "commit_failure.#"). Fire-and-forget, same as Redis.
type AMQPDiagnostics struct {
	producer *_rabbitmq.Producer
	exchange string
	log      *_logger.Logger
}

// NewAMQPDiagnostics wraps a producer bound to an already-declared
// topic exchange.
func NewAMQPDiagnostics(producer *_rabbitmq.Producer, exchange string, log *_logger.Logger) *AMQPDiagnostics {
	return &AMQPDiagnostics{producer: producer, exchange: exchange, log: log}
}

func (d *AMQPDiagnostics) Emit(e Event) {
	payload, err := json.Marshal(eventPayload(e))
	if err != nil {
		if d.log != nil {
			d.log.Error(context.Background(), "kafka diagnostics: marshal event", "error", err, "kind", e.Kind.String())
		}
		return
	}

	cfg := _rabbitmq.DefaultPublishConfig()
	cfg.Exchange = d.exchange
	cfg.RoutingKey = e.Kind.String()

	if _, err := d.producer.Publish(context.Background(), payload, cfg); err != nil {
		if d.log != nil {
			d.log.Error(context.Background(), "kafka diagnostics: publish event", "error", err, "kind", e.Kind.String())
		}
	}
}
