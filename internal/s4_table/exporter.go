package s4_table

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

// FileNames of the exported artifacts (relative to the output dir)
type FileNames struct {
	Features string
	Metadata string
	Manifest string
}

// DefaultFileNames matches the training stage's expected inputs
func DefaultFileNames() FileNames {
	return FileNames{
		Features: "customer_features.csv",
		Metadata: "feature_info.json",
		Manifest: "run_manifest.json",
	}
}

// Exporter writes the table, metadata and run manifest to disk
// ⭐ SSOT: 파일 산출물은 여기서만 기록
type Exporter struct {
	dir    string
	names  FileNames
	logger *logger.Logger

	mu      sync.Mutex
	pending []artifact // 마지막 Write가 교체한 파일 (Discard용)
}

// artifact is a file replaced by Write together with its previous content
type artifact struct {
	path    string
	prev    []byte
	existed bool
}

// NewExporter creates a file sink rooted at dir
func NewExporter(dir string, names FileNames, log *logger.Logger) *Exporter {
	return &Exporter{
		dir:    dir,
		names:  names,
		logger: log.WithStage("s4_table").WithField("sink", "csv"),
	}
}

// Name implements contracts.FeatureSink
func (e *Exporter) Name() string { return "csv" }

// Dir returns the output directory
func (e *Exporter) Dir() string { return e.dir }

// Names returns the artifact file names
func (e *Exporter) Names() FileNames { return e.names }

// Write implements contracts.FeatureSink: customer_features.csv + feature_info.json.
// 두 파일 모두 임시 파일에 완성한 뒤 rename (부분 파일 없음)
func (e *Exporter) Write(ctx context.Context, table *contracts.FeatureTable, _ *contracts.RunManifest) ([]string, error) {
	csvBytes, err := EncodeCSV(table)
	if err != nil {
		return nil, err
	}
	metaBytes, err := encodeJSON(table.Metadata())
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	featuresPath := filepath.Join(e.dir, e.names.Features)
	metadataPath := filepath.Join(e.dir, e.names.Metadata)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = nil

	// 중간에 실패하면 이미 교체한 파일을 되돌림
	for _, f := range []struct {
		path string
		data []byte
	}{{featuresPath, csvBytes}, {metadataPath, metaBytes}} {
		if err := e.remember(f.path); err != nil {
			e.restoreLocked()
			return nil, err
		}
		if err := writeAtomic(f.path, f.data); err != nil {
			e.restoreLocked()
			return nil, err
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"features": featuresPath,
		"metadata": metadataPath,
		"rows":     table.Count(),
		"bytes":    len(csvBytes),
	}).Info("Feature table exported")

	return []string{featuresPath, metadataPath}, nil
}

// Discard implements contracts.DiscardableSink: the files replaced by the last
// Write get their previous content back, files that did not exist are removed.
func (e *Exporter) Discard(_ context.Context, _ *contracts.RunManifest) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.pending)
	if err := e.restoreLocked(); err != nil {
		return fmt.Errorf("discard csv output: %w", err)
	}
	if n > 0 {
		e.logger.WithField("files", n).Warn("Feature table export discarded")
	}
	return nil
}

func (e *Exporter) remember(path string) error {
	prev, err := os.ReadFile(path)
	switch {
	case err == nil:
		e.pending = append(e.pending, artifact{path: path, prev: prev, existed: true})
	case errors.Is(err, os.ErrNotExist):
		e.pending = append(e.pending, artifact{path: path})
	default:
		return fmt.Errorf("read previous %s: %w", path, err)
	}
	return nil
}

// restoreLocked undoes pending replacements, newest first. e.mu must be held.
func (e *Exporter) restoreLocked() error {
	var errs []error
	for i := len(e.pending) - 1; i >= 0; i-- {
		a := e.pending[i]
		if a.existed {
			if err := writeAtomic(a.path, a.prev); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	e.pending = nil
	return errors.Join(errs...)
}

// WriteManifest writes run_manifest.json
func (e *Exporter) WriteManifest(manifest *contracts.RunManifest) (string, error) {
	data, err := encodeJSON(manifest)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(e.dir, e.names.Manifest)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// EncodeCSV renders the table with a header row
func EncodeCSV(table *contracts.FeatureTable) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i := range table.Rows {
		rec, err := Record(table.Columns, table.Lookbacks, &table.Rows[i])
		if err != nil {
			return nil, fmt.Errorf("render customer %s: %w", table.Rows[i].CustomerID, err)
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeAtomic writes data to a temp file in the same dir and renames it over path
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
