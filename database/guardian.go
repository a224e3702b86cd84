package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ErrUnavailable is returned by Acquire when the store cannot be reached
// within the connect budget. Callers must fail fast, not block or retry.
var ErrUnavailable = errors.New("event store unavailable")

// connectTimeout caps a single connect attempt. One HTTP request triggers at
// most one attempt; the guardian never retries in a loop on its own.
const connectTimeout = 8 * time.Second

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

// DialFunc establishes and verifies a ClickHouse session.
type DialFunc func(ctx context.Context) (clickhouse.Conn, error)

// Guardian owns the single pooled ClickHouse session. All access goes
// through Acquire, which either hands back the live session immediately or
// makes one bounded connect attempt. Concurrent Acquire calls may race into
// duplicate dials; the first to finish wins and the others are discarded.
type Guardian struct {
	mu    sync.Mutex
	state connState
	conn  clickhouse.Conn
	dial  DialFunc
}

func NewGuardian(dial DialFunc) *Guardian {
	return &Guardian{dial: dial}
}

// Acquire returns the usable session, connecting first if necessary. While
// disconnected it makes exactly one connect attempt bounded by
// connectTimeout (and by the caller's context if shorter); failure leaves
// the guardian disconnected and returns ErrUnavailable.
func (g *Guardian) Acquire(ctx context.Context) (clickhouse.Conn, error) {
	g.mu.Lock()
	if g.state == stateConnected {
		conn := g.conn
		g.mu.Unlock()
		return conn, nil
	}
	g.state = stateConnecting
	dial := g.dial
	g.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := dial(dialCtx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		if g.state == stateConnecting {
			g.state = stateDisconnected
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if g.state == stateConnected {
		// Lost the race against a concurrent connect; keep the winner.
		if conn != nil && conn != g.conn {
			conn.Close()
		}
		return g.conn, nil
	}
	g.state = stateConnected
	g.conn = conn
	log.Println("Event store connected")
	return conn, nil
}

// Ready reports whether a session can be acquired, connecting if needed.
func (g *Guardian) Ready(ctx context.Context) error {
	_, err := g.Acquire(ctx)
	return err
}

// MarkDown records an observed session error. The next Acquire will attempt
// a fresh connect.
func (g *Guardian) MarkDown(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != stateConnected {
		return
	}
	log.Printf("Event store connection lost: %v", err)
	if g.conn != nil {
		g.conn.Close()
	}
	g.conn = nil
	g.state = stateDisconnected
}

// Status reports "connected" or "disconnected" for health endpoints.
func (g *Guardian) Status() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == stateConnected {
		return "connected"
	}
	return "disconnected"
}

// Close tears down the session, if any.
func (g *Guardian) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn != nil {
		g.conn.Close()
		g.conn = nil
	}
	g.state = stateDisconnected
}
