package brain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/internal/pipelineconfig"
	"github.com/wonny/churnlab/internal/s0_data"
	"github.com/wonny/churnlab/internal/s1_window"
	"github.com/wonny/churnlab/internal/s4_table"
	"github.com/wonny/churnlab/pkg/logger"
)

var origin = time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)

func stamp(day int) string {
	return origin.AddDate(0, 0, day).Format("2006-01-02 15:04:05")
}

// writeInput writes a cleaned transaction CSV:
// C1 on days 1, 10, 40 (qty 2,3,1 @ 5) then absent; C2 active on both sides.
func writeInput(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("InvoiceNo,StockCode,Quantity,InvoiceDate,Price,CustomerID,Country\n")
	fmt.Fprintf(&b, "A1,P1,2,%s,5,C1,United Kingdom\n", stamp(1))
	fmt.Fprintf(&b, "A2,P2,3,%s,5,C1,United Kingdom\n", stamp(10))
	fmt.Fprintf(&b, "A3,P1,1,%s,5,C1,United Kingdom\n", stamp(40))
	fmt.Fprintf(&b, "B1,P3,4,%s,2.5,C2,France\n", stamp(20))
	fmt.Fprintf(&b, "B2,P3,1,%s,2.5,C2,France\n", stamp(65))
	fmt.Fprintf(&b, "B3,P4,1,%s,2.5,C2,France\n", stamp(80))

	path := filepath.Join(dir, "cleaned_transactions.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func newPipeline(t *testing.T, input, outDir string, cfg *pipelineconfig.Config) (*Orchestrator, RunConfig) {
	t.Helper()
	log := logger.Nop()
	stages := DefaultStages(cfg, s0_data.NewCSVLoader(input, log), log)
	exporter := s4_table.NewExporter(outDir, FileNames(cfg), log)
	stages.Sinks = []contracts.FeatureSink{exporter}
	stages.Manifest = exporter

	runCfg, err := RunConfigFor(cfg, input)
	require.NoError(t, err)
	return NewOrchestrator(stages, log), runCfg
}

func fixedCutoff(t *testing.T, day int) *pipelineconfig.Config {
	t.Helper()
	cfg, err := pipelineconfig.Default().WithOverrides(0, origin.AddDate(0, 0, day).Format(pipelineconfig.DateLayout))
	require.NoError(t, err)
	return cfg
}

func TestRun_Scenario(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	out := filepath.Join(dir, "out")

	o, runCfg := newPipeline(t, input, out, fixedCutoff(t, 50))
	result, err := o.Run(context.Background(), runCfg)
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, []string{StageLoad, StageQuality, StageSplit, StageLabel, StageFeatures, StageSegment, StageAssemble, StageSink}, result.CompletedStages)
	require.Equal(t, 2, result.Table.Count())

	c1 := result.Table.Rows[0]
	assert.Equal(t, "C1", c1.CustomerID)
	assert.Equal(t, 1, c1.Churn)
	assert.Equal(t, 10, c1.Recency)
	assert.Equal(t, 3, c1.Frequency)
	assert.InDelta(t, 30.0, c1.TotalSpent, 1e-9)
	assert.InDelta(t, 10.0, c1.AvgOrderValue, 1e-9)

	c2 := result.Table.Rows[1]
	assert.Equal(t, 0, c2.Churn)
	assert.Equal(t, 0.0, c2.StdDaysBetweenPurchases, "single training transaction")
	assert.Equal(t, 0.0, c2.StdBasketSize)
	assert.Equal(t, 0, c2.CustomerLifetimeDays)

	assert.InDelta(t, 0.5, result.Manifest.ChurnRate, 1e-12)
	assert.Equal(t, runCfg.ConfigHash, result.Manifest.ConfigHash)

	for _, name := range []string{"customer_features.csv", "feature_info.json", "run_manifest.json"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	assert.Len(t, result.Outputs, 3)
}

func TestRun_Idempotent(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	out1, out2 := filepath.Join(dir, "a"), filepath.Join(dir, "b")

	o1, cfg1 := newPipeline(t, input, out1, fixedCutoff(t, 50))
	_, err := o1.Run(context.Background(), cfg1)
	require.NoError(t, err)

	o2, cfg2 := newPipeline(t, input, out2, fixedCutoff(t, 50))
	_, err = o2.Run(context.Background(), cfg2)
	require.NoError(t, err)

	for _, name := range []string{"customer_features.csv", "feature_info.json"} {
		a, err := os.ReadFile(filepath.Join(out1, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(out2, name))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(a, b), name)
	}
}

func TestRun_EmptyTrainingFailsWithoutOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	out := filepath.Join(dir, "out")

	cfg, err := pipelineconfig.Default().WithOverrides(365, "")
	require.NoError(t, err)

	o, runCfg := newPipeline(t, input, out, cfg)
	result, err := o.Run(context.Background(), runCfg)
	require.Error(t, err)

	var perr *s1_window.PreconditionError
	assert.True(t, errors.As(err, &perr))
	assert.False(t, result.Success)
	assert.Equal(t, []string{StageLoad, StageQuality}, result.CompletedStages)

	_, statErr := os.Stat(filepath.Join(out, "customer_features.csv"))
	assert.True(t, os.IsNotExist(statErr), "no partial output file")
}

func TestRun_ContractViolation(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(input, []byte("InvoiceNo,StockCode,Quantity,InvoiceDate,Price,CustomerID,Country\n1,A,0,2011-01-01,1,,UK\n"), 0o644))

	o, runCfg := newPipeline(t, input, filepath.Join(dir, "out"), pipelineconfig.Default())
	_, err := o.Run(context.Background(), runCfg)

	var cerr *s0_data.ContractError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 1, cerr.Violations[s0_data.ColCustomerID])
	assert.Equal(t, 1, cerr.Violations[s0_data.ColQuantity])
}

type failingSink struct{}

func (failingSink) Name() string { return "failing" }
func (failingSink) Write(context.Context, *contracts.FeatureTable, *contracts.RunManifest) ([]string, error) {
	return nil, errors.New("disk full")
}

func TestRun_SinkFailureSkipsManifest(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	out := filepath.Join(dir, "out")

	o, runCfg := newPipeline(t, input, out, fixedCutoff(t, 50))
	o.stages.Sinks = []contracts.FeatureSink{failingSink{}}

	_, err := o.Run(context.Background(), runCfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")

	_, statErr := os.Stat(filepath.Join(out, "run_manifest.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_LaterSinkFailureRestoresEarlierOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	out := filepath.Join(dir, "out")

	// 정상 실행 결과가 먼저 있는 상태
	o, runCfg := newPipeline(t, input, out, fixedCutoff(t, 50))
	_, err := o.Run(context.Background(), runCfg)
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(out, "customer_features.csv"))
	require.NoError(t, err)

	failing, failCfg := newPipeline(t, input, out, fixedCutoff(t, 30))
	failing.stages.Sinks = append(failing.stages.Sinks, failingSink{})
	_, err = failing.Run(context.Background(), failCfg)
	require.Error(t, err)

	after, err := os.ReadFile(filepath.Join(out, "customer_features.csv"))
	require.NoError(t, err)
	assert.Equal(t, before, after, "previous table restored")
}

func TestRun_LaterSinkFailureLeavesNoNewFiles(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	out := filepath.Join(dir, "out")

	o, runCfg := newPipeline(t, input, out, fixedCutoff(t, 50))
	o.stages.Sinks = append(o.stages.Sinks, failingSink{})

	_, err := o.Run(context.Background(), runCfg)
	require.Error(t, err)

	for _, name := range []string{"customer_features.csv", "feature_info.json", "run_manifest.json"} {
		_, statErr := os.Stat(filepath.Join(out, name))
		assert.True(t, os.IsNotExist(statErr), name)
	}
}

type failingManifest struct{}

func (failingManifest) WriteManifest(*contracts.RunManifest) (string, error) {
	return "", errors.New("read-only file system")
}

func TestRun_ManifestFailureDiscardsSinks(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	out := filepath.Join(dir, "out")

	o, runCfg := newPipeline(t, input, out, fixedCutoff(t, 50))
	o.stages.Manifest = failingManifest{}

	result, err := o.Run(context.Background(), runCfg)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, err.Error(), "manifest")

	_, statErr := os.Stat(filepath.Join(out, "customer_features.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_ExplicitRunID(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)

	o, runCfg := newPipeline(t, input, filepath.Join(dir, "out"), fixedCutoff(t, 50))
	runCfg.RunID = "manual-1"

	result, err := o.Run(context.Background(), runCfg)
	require.NoError(t, err)
	assert.Equal(t, "manual-1", result.Manifest.RunID)
}

type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingSource) Load(context.Context) (*contracts.TransactionTable, error) {
	close(s.started)
	<-s.release
	return nil, errors.New("released")
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	o := NewOrchestrator(DefaultStages(pipelineconfig.Default(), src, logger.Nop()), logger.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), RunConfig{Window: contracts.WindowSpec{HorizonDays: 90}})
		done <- err
	}()
	<-src.started

	_, err := o.Run(context.Background(), RunConfig{Window: contracts.WindowSpec{HorizonDays: 90}})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(src.release)
	assert.Error(t, <-done)
}
