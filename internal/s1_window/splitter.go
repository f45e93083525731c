package s1_window

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

// PreconditionError is a fatal split failure (empty input, empty training window, bad cutoff)
type PreconditionError struct {
	Reason         string
	Cutoff         time.Time
	ObservationEnd time.Time
	InputRows      int
}

func (e *PreconditionError) Error() string {
	if e.Cutoff.IsZero() {
		return fmt.Sprintf("split precondition failed: %s", e.Reason)
	}
	return fmt.Sprintf("split precondition failed: %s (cutoff=%s, observation_end=%s, rows=%d)",
		e.Reason,
		e.Cutoff.Format(time.DateTime),
		e.ObservationEnd.Format(time.DateTime),
		e.InputRows,
	)
}

// TemporalSplitter partitions transactions around the cutoff
// ⭐ SSOT: 학습 ≤ cutoff < 관측 규칙은 여기서만
type TemporalSplitter struct {
	logger *logger.Logger
}

// NewTemporalSplitter creates a new splitter
func NewTemporalSplitter(log *logger.Logger) *TemporalSplitter {
	return &TemporalSplitter{logger: log.WithStage("s1_window")}
}

// Split implements contracts.Splitter
func (s *TemporalSplitter) Split(ctx context.Context, table *contracts.TransactionTable, spec contracts.WindowSpec) (*contracts.Split, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, &PreconditionError{Reason: "input table is empty"}
	}

	observationEnd := table.MaxDate()
	cutoff := ResolveCutoff(spec, observationEnd)

	if !cutoff.Before(observationEnd) {
		return nil, &PreconditionError{
			Reason:         "cutoff must be strictly before observation end",
			Cutoff:         cutoff,
			ObservationEnd: observationEnd,
			InputRows:      table.Len(),
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	training := make([]contracts.Transaction, 0, table.Len())
	var observation []contracts.Transaction
	for _, tx := range table.Rows {
		if tx.InvoiceDate.After(cutoff) {
			observation = append(observation, tx)
		} else {
			training = append(training, tx)
		}
	}

	// 기간이 데이터 범위보다 길면 학습 구간이 비어버림
	if len(training) == 0 {
		return nil, &PreconditionError{
			Reason:         "training window is empty (horizon exceeds data span or cutoff precedes first transaction)",
			Cutoff:         cutoff,
			ObservationEnd: observationEnd,
			InputRows:      table.Len(),
		}
	}

	window := contracts.Window{
		Cutoff:          cutoff,
		ObservationEnd:  observationEnd,
		HorizonDays:     spec.HorizonDays,
		TrainingRows:    len(training),
		ObservationRows: len(observation),
	}

	s.logger.WithFields(map[string]interface{}{
		"cutoff":           cutoff.Format(time.DateTime),
		"observation_end":  observationEnd.Format(time.DateTime),
		"training_rows":    window.TrainingRows,
		"observation_rows": window.ObservationRows,
	}).Info("Temporal split computed")

	return &contracts.Split{
		Window:      window,
		Training:    contracts.NewTransactionTable(training),
		Observation: contracts.NewTransactionTable(observation),
	}, nil
}

// ResolveCutoff returns the fixed cutoff or observationEnd - HorizonDays×24h
func ResolveCutoff(spec contracts.WindowSpec, observationEnd time.Time) time.Time {
	if spec.Cutoff != nil {
		return *spec.Cutoff
	}
	return observationEnd.Add(-time.Duration(spec.HorizonDays) * 24 * time.Hour)
}
