package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeActions Exchange = "zapflow.actions"
	ExchangeDLQ     Exchange = "zapflow.dlq"
)

const (
	QueueActionsReady Queue = "actions.ready"
	QueueDLQActions   Queue = "dlq.actions"
)

const (
	RoutingKeyReady      RoutingKey = "ready"
	RoutingKeyDLQActions RoutingKey = "actions"
)

// exchangeDecl, queueDecl, binding — описание топологии.
type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// topology возвращает полное описание exchanges, очередей и привязок.
func topology() ([]exchangeDecl, []queueDecl, []binding) {
	exchanges := []exchangeDecl{
		{ExchangeActions, amqp.ExchangeDirect},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	queues := []queueDecl{
		// actions.ready — отклонённые без requeue уходят в DLQ
		{QueueActionsReady, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQActions),
		}},
		{QueueDLQActions, nil},
	}

	bindings := []binding{
		{QueueActionsReady, RoutingKeyReady, ExchangeActions},
		{QueueDLQActions, RoutingKeyDLQActions, ExchangeDLQ},
	}

	return exchanges, queues, bindings
}

// SetupTopology объявляет exchanges, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	exchanges, queues, bindings := topology()

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings {
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Zapflow RabbitMQ Topology:

    zapflow.actions (direct)
    └── actions.ready [routing: ready]
            Consumer: Worker
            DLQ: dlq.actions

    zapflow.dlq (direct)
    └── dlq.actions [routing: actions]
            Manual processing
  `
}
