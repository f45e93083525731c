package contracts

import (
	"context"
)

// TransactionSource loads the cleaned transaction log (S0)
// ⭐ SSOT: S0 데이터 입력 인터페이스
type TransactionSource interface {
	Load(ctx context.Context) (*TransactionTable, error)
}

// Splitter partitions transactions around the cutoff (S1)
// ⭐ SSOT: S1 학습/관측 분할 인터페이스
type Splitter interface {
	Split(ctx context.Context, table *TransactionTable, spec WindowSpec) (*Split, error)
}

// Labeler derives the churn base table from a split (S1)
type Labeler interface {
	Label(ctx context.Context, split *Split) (*LabelBase, error)
}

// FeatureBuilder runs every per-customer aggregator over the training window (S2)
// ⭐ SSOT: S2 피처 집계 인터페이스
type FeatureBuilder interface {
	Build(ctx context.Context, split *Split, base *LabelBase) (*FeatureSet, error)
}

// Segmenter converts RFM values into quartile scores (S3)
type Segmenter interface {
	Segment(ctx context.Context, base *LabelBase, rfm map[string]RFMFeatures) (*Segmentation, error)
}

// Assembler joins every stage output into the final table (S4)
type Assembler interface {
	Assemble(ctx context.Context, base *LabelBase, features *FeatureSet, segments *Segmentation) (*FeatureTable, error)
}

// FeatureSink persists a finished table (CSV, Postgres)
type FeatureSink interface {
	Name() string
	Write(ctx context.Context, table *FeatureTable, manifest *RunManifest) ([]string, error)
}

// DiscardableSink can undo a successful Write when a later step of the same run fails
type DiscardableSink interface {
	FeatureSink
	Discard(ctx context.Context, manifest *RunManifest) error
}
