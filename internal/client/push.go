package client

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// reconnectDelay is how long the listener waits before redialing after
// a dropped connection.
const reconnectDelay = 2 * time.Second

// PushListener consumes the server's push channel. The channel carries
// opaque "something changed" signals; the payload is ignored and every
// message collapses into one notify call. All actual state comes from
// the subsequent snapshot fetch.
type PushListener struct {
	url    string
	dialer *websocket.Dialer
	notify func()
}

// NewPushListener creates a listener for the given websocket URL.
// notify is invoked once per received message, from the listener's
// goroutine; it must be cheap and non-blocking (typically an enqueue).
func NewPushListener(url string, notify func()) *PushListener {
	return &PushListener{
		url:    url,
		dialer: websocket.DefaultDialer,
		notify: notify,
	}
}

// Run connects and consumes signals until ctx is canceled, redialing
// with a fixed delay after connection loss. Returns ctx.Err() on
// cancellation; dial and read errors are absorbed into the redial loop.
func (p *PushListener) Run(ctx context.Context) error {
	for {
		if err := p.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// consume dials once and reads messages until the connection drops or
// ctx is canceled.
func (p *PushListener) consume(ctx context.Context) error {
	conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return fmt.Errorf("dial push channel: %w", err)
	}

	// ReadMessage has no context; closing the connection is the only way
	// to unblock it on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return fmt.Errorf("read push channel: %w", err)
		}
		p.notify()
	}
}
