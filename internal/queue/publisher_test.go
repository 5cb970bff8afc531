package queue

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentBroker accepts TCP connections and never answers the handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				_ = c.Close()
			}
		}()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublisher_DialHonoursContextDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t), "")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Publish(ctx, NewUserEvent(EventRegistered, "u-1", "a@x.io"))
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPublisher_CancelledContext(t *testing.T) {
	p := NewPublisher(silentBroker(t), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, NewUserEvent(EventRegistered, "u-1", "a@x.io"))
	assert.ErrorIs(t, err, context.Canceled)
}
