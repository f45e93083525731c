package s4_table

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

// FeatureRepository persists feature tables to features.customer_features
// ⭐ SSOT: 피처 테이블 DB 기록은 여기서만
type FeatureRepository struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

// NewFeatureRepository creates a new repository instance
func NewFeatureRepository(db *pgxpool.Pool, log *logger.Logger) *FeatureRepository {
	return &FeatureRepository{
		db:     db,
		logger: log.WithStage("s4_table").WithField("sink", "postgres"),
	}
}

// Name implements contracts.FeatureSink
func (r *FeatureRepository) Name() string { return "postgres" }

// Write implements contracts.FeatureSink.
// 같은 run_id의 이전 행을 지우고 한 트랜잭션으로 다시 기록
func (r *FeatureRepository) Write(ctx context.Context, table *contracts.FeatureTable, manifest *contracts.RunManifest) ([]string, error) {
	if manifest == nil || manifest.RunID == "" {
		return nil, errors.New("postgres sink: run id required")
	}

	metaJSON, err := json.Marshal(table.Metadata())
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM features.customer_features WHERE run_id = $1`, manifest.RunID); err != nil {
		return nil, fmt.Errorf("delete previous rows: %w", err)
	}

	query := `
		INSERT INTO features.runs (run_id, config_hash, cutoff, observation_end, customers, churn_rate, metadata, manifest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (run_id) DO UPDATE SET
			config_hash = EXCLUDED.config_hash,
			cutoff = EXCLUDED.cutoff,
			observation_end = EXCLUDED.observation_end,
			customers = EXCLUDED.customers,
			churn_rate = EXCLUDED.churn_rate,
			metadata = EXCLUDED.metadata,
			manifest = EXCLUDED.manifest,
			created_at = NOW()
	`
	if _, err := tx.Exec(ctx, query,
		manifest.RunID,
		manifest.ConfigHash,
		manifest.Window.Cutoff,
		manifest.Window.ObservationEnd,
		table.Count(),
		table.ChurnRate(),
		metaJSON,
		manifestJSON,
	); err != nil {
		return nil, fmt.Errorf("upsert run: %w", err)
	}

	columns := []string{"run_id", "customer_id", "churn", "recency", "frequency", "total_spent", "rfm_score", "segment", "features"}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"features", "customer_features"},
		columns,
		pgx.CopyFromSlice(len(table.Rows), func(i int) ([]any, error) {
			row := table.Rows[i]
			features, err := json.Marshal(row)
			if err != nil {
				return nil, err
			}
			var segment *string
			if row.Segment != "" {
				segment = &row.Segment
			}
			return []any{
				manifest.RunID,
				row.CustomerID,
				row.Churn,
				row.Recency,
				row.Frequency,
				row.TotalSpent,
				row.RFMScore,
				segment,
				features,
			}, nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("copy feature rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"run_id": manifest.RunID,
		"rows":   n,
	}).Info("Feature table stored")

	return []string{fmt.Sprintf("postgres:features.customer_features?run_id=%s", manifest.RunID)}, nil
}

// Discard implements contracts.DiscardableSink: the run written by Write is
// removed and its customer rows go with it (ON DELETE CASCADE).
func (r *FeatureRepository) Discard(ctx context.Context, manifest *contracts.RunManifest) error {
	if manifest == nil || manifest.RunID == "" {
		return nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM features.runs WHERE run_id = $1`, manifest.RunID)
	if err != nil {
		return fmt.Errorf("discard run %s: %w", manifest.RunID, err)
	}
	r.logger.WithFields(map[string]interface{}{
		"run_id": manifest.RunID,
		"runs":   tag.RowsAffected(),
	}).Warn("Stored feature table discarded")
	return nil
}

// LatestManifest implements Store
func (r *FeatureRepository) LatestManifest(ctx context.Context) (*contracts.RunManifest, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT manifest FROM features.runs ORDER BY created_at DESC LIMIT 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query latest run: %w", err)
	}

	var m contracts.RunManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Metadata implements Store
func (r *FeatureRepository) Metadata(ctx context.Context) (*contracts.FeatureMetadata, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT metadata FROM features.runs ORDER BY created_at DESC LIMIT 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query metadata: %w", err)
	}

	var m contracts.FeatureMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &m, nil
}

// Customer implements Store (latest run)
func (r *FeatureRepository) Customer(ctx context.Context, customerID string) (*contracts.CustomerFeatures, error) {
	query := `
		SELECT cf.features
		FROM features.customer_features cf
		JOIN (SELECT run_id FROM features.runs ORDER BY created_at DESC LIMIT 1) latest
			ON cf.run_id = latest.run_id
		WHERE cf.customer_id = $1
	`

	var raw []byte
	if err := r.db.QueryRow(ctx, query, customerID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query customer: %w", err)
	}

	var row contracts.CustomerFeatures
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	return &row, nil
}
