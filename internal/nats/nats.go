// Package nats wraps the NATS JetStream connection used for notification
// event publishing.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Client is a thin JetStream publisher.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// Connect dials the NATS server and initializes JetStream.
func Connect(url, name string) (*Client, error) {
	conn, err := nats.Connect(url, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize jetstream: %w", err)
	}

	return &Client{conn: conn, js: js}, nil
}

// Publish publishes a message to a JetStream subject.
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := c.js.Publish(ctx, subject, data)
	return err
}

// Close drains and closes the connection.
func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Drain()
	}
}
