package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// StageMetrics records per-stage wall-clock timing samples (stage name,
// conversation id, duration) to ClickHouse; run-all records one "extract"
// sample per conversation, covering linearization plus extraction. Grounded on
// the teacher's metrics_clickhouse.go connection pattern. A nil
// *StageMetrics is safe to call on — metrics reporting is optional.
type StageMetrics struct {
	conn clickhouse.Conn
}

// OpenStageMetrics connects to ClickHouse at dsn and ensures the metrics
// table exists. Pass an empty dsn to get a nil *StageMetrics (metrics
// reporting disabled).
func OpenStageMetrics(ctx context.Context, dsn string) (*StageMetrics, error) {
	if dsn == "" {
		return nil, nil
	}
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	m := &StageMetrics{conn: conn}
	if err := m.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure metrics schema: %w", err)
	}
	return m, nil
}

func (m *StageMetrics) ensureSchema(ctx context.Context) error {
	return m.conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ck_stage_timings (
	stage String,
	conversation_id String,
	duration_ms UInt64,
	recorded_at DateTime DEFAULT now()
) ENGINE = MergeTree()
ORDER BY (stage, recorded_at)
`)
}

// RecordStage writes one stage-duration sample. Safe to call on a nil
// *StageMetrics (no-op) and swallows write errors, since metrics must
// never fail a pipeline run.
func (m *StageMetrics) RecordStage(ctx context.Context, stage, conversationID string, duration time.Duration) {
	if m == nil {
		return
	}
	_ = m.conn.Exec(ctx, `INSERT INTO ck_stage_timings (stage, conversation_id, duration_ms) VALUES (?, ?, ?)`,
		stage, conversationID, uint64(duration.Milliseconds()))
}

// Close releases the ClickHouse connection. Safe to call on a nil
// *StageMetrics.
func (m *StageMetrics) Close() error {
	if m == nil {
		return nil
	}
	return m.conn.Close()
}
