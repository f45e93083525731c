package database

import (
	"context"
	"fmt"
)

// schemaSQL creates the tables read by the transaction source and written by the feature sink
const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS retail;
CREATE SCHEMA IF NOT EXISTS features;

-- 정제된 거래 로그 (S0 입력)
CREATE TABLE IF NOT EXISTS retail.transactions (
    id           BIGSERIAL PRIMARY KEY,
    invoice_no   TEXT NOT NULL,
    customer_id  TEXT NOT NULL,
    stock_code   TEXT NOT NULL,
    quantity     BIGINT NOT NULL CHECK (quantity > 0),
    unit_price   NUMERIC(12,4) NOT NULL CHECK (unit_price > 0),
    invoice_date TIMESTAMP NOT NULL,
    country      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_invoice_date ON retail.transactions (invoice_date);

-- 피처 테이블 run 메타 (S4 출력)
CREATE TABLE IF NOT EXISTS features.runs (
    run_id          TEXT PRIMARY KEY,
    config_hash     TEXT NOT NULL,
    cutoff          TIMESTAMP NOT NULL,
    observation_end TIMESTAMP NOT NULL,
    customers       INTEGER NOT NULL,
    churn_rate      DOUBLE PRECISION NOT NULL,
    metadata        JSONB NOT NULL,
    manifest        JSONB NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON features.runs (created_at DESC);

CREATE TABLE IF NOT EXISTS features.customer_features (
    run_id      TEXT NOT NULL REFERENCES features.runs (run_id) ON DELETE CASCADE,
    customer_id TEXT NOT NULL,
    churn       SMALLINT NOT NULL,
    recency     INTEGER NOT NULL,
    frequency   INTEGER NOT NULL,
    total_spent DOUBLE PRECISION NOT NULL,
    rfm_score   INTEGER NOT NULL,
    segment     TEXT,
    features    JSONB NOT NULL,
    PRIMARY KEY (run_id, customer_id)
);
`

// EnsureSchema creates the retail/features schemas if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
