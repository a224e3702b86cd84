package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

const eventsSchema = `
	CREATE TABLE IF NOT EXISTS tracking_events (
		event_id   String,
		visitor_id String,
		session_id String,
		page       String,
		event_type String,
		payload    String,
		ip         String,
		user_agent String,
		geo        String,
		timestamp  DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	ORDER BY (timestamp, event_id)
`

// ClickHouseOptions builds native-protocol connection options from the
// environment. The pool is kept small on purpose; a disconnected store must
// fail requests fast instead of queueing work behind a large pool.
func ClickHouseOptions() (*clickhouse.Options, error) {
	host := os.Getenv("CLICKHOUSE_HOST")
	nativePortStr := os.Getenv("CLICKHOUSE_NATIVE_PORT")
	dbName := os.Getenv("CLICKHOUSE_DB_NAME")
	username := os.Getenv("CLICKHOUSE_USERNAME")
	password := os.Getenv("CLICKHOUSE_PASSWORD")

	if host == "" || nativePortStr == "" || dbName == "" {
		return nil, fmt.Errorf("CLICKHOUSE_HOST, CLICKHOUSE_NATIVE_PORT, or CLICKHOUSE_DB_NAME environment variables are not set")
	}

	nativePort, err := strconv.Atoi(nativePortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CLICKHOUSE_NATIVE_PORT: %w", err)
	}

	return &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", host, nativePort)},
		Auth: clickhouse.Auth{
			Database: dbName,
			Username: username,
			Password: password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "webtracker-api", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:  5 * time.Second,
		MaxOpenConns: 5,
		MaxIdleConns: 5,
	}, nil
}

// ClickHouseDialer returns a DialFunc for the Guardian. Every successful
// connect also ensures the events table exists, so a store that was wiped
// while we were disconnected still accepts writes after reconnect.
func ClickHouseDialer(options *clickhouse.Options) DialFunc {
	return func(ctx context.Context) (clickhouse.Conn, error) {
		conn, err := clickhouse.Open(options)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
		}
		if err := conn.Ping(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
		}
		if err := conn.Exec(ctx, eventsSchema); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to ensure tracking_events table: %w", err)
		}
		return conn, nil
	}
}
