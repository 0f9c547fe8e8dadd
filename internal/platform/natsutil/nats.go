package natsutil

import (
	"fmt"
	"time"

	"github.com/eventboard/project/internal/messaging"
	"github.com/nats-io/nats.go"
)

type Client struct {
	Conn *nats.Conn
	JS   nats.JetStreamContext
}

func ConnectJetStream(url string) (*Client, error) {
	conn, err := nats.Connect(url, nats.Name("eventboard"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		_ = conn.Drain()
		conn.Close()
		return nil, err
	}
	if err := messaging.EnsureStreams(js); err != nil {
		_ = conn.Drain()
		conn.Close()
		return nil, err
	}
	return &Client{Conn: conn, JS: js}, nil
}

func ConnectJetStreamWithRetry(url string, timeout time.Duration) (*Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ConnectJetStream(url)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("connect jetstream timeout after %s: %w", timeout, lastErr)
}

func (c *Client) Close() {
	if c == nil || c.Conn == nil {
		return
	}
	_ = c.Conn.Drain()
	c.Conn.Close()
}

// Connected reports whether the connection is usable, for readiness probes.
func (c *Client) Connected() error {
	if c == nil || c.Conn == nil {
		return fmt.Errorf("nats connection is nil")
	}
	if status := c.Conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats is not connected: %s", status.String())
	}
	return nil
}

type JetStreamPublisher struct {
	JS nats.JetStreamContext
}

func (p JetStreamPublisher) Publish(subject string, payload []byte) error {
	_, err := p.JS.Publish(subject, payload)
	return err
}

// JetStreamFeed delivers messages published after the subscription starts.
type JetStreamFeed struct {
	JS nats.JetStreamContext
}

func (f JetStreamFeed) Subscribe(subject string, handler func(payload []byte, seq uint64)) (func() error, error) {
	sub, err := f.JS.Subscribe(subject, func(msg *nats.Msg) {
		var seq uint64
		if meta, metaErr := msg.Metadata(); metaErr == nil {
			seq = meta.Sequence.Stream
		}
		handler(msg.Data, seq)
	}, nats.DeliverNew())
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}
