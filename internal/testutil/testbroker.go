package testutil

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	rabbitmqTC "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

// TestBroker holds test message broker resources
type TestBroker struct {
	Conn      *amqp.Connection
	container *rabbitmqTC.RabbitMQContainer
}

// SetupTestBroker creates a new test RabbitMQ container
func SetupTestBroker(ctx context.Context) (*TestBroker, error) {
	container, err := rabbitmqTC.Run(ctx, "rabbitmq:3.12-alpine")
	if err != nil {
		return nil, err
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		if terr := container.Terminate(ctx); terr != nil {
			err = terr
		}
		return nil, err
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		if terr := container.Terminate(ctx); terr != nil {
			err = terr
		}
		return nil, err
	}

	return &TestBroker{Conn: conn, container: container}, nil
}

// Teardown closes connections and terminates container
func (t *TestBroker) Teardown(ctx context.Context) {
	if t.Conn != nil {
		t.Conn.Close()
	}
	if t.container != nil {
		if err := t.container.Terminate(ctx); err != nil {
			return
		}
	}
}
