package s4_table

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wonny/churnlab/internal/contracts"
)

// ErrNotFound is returned when a customer or artifact does not exist
var ErrNotFound = errors.New("not found")

// Store serves a finished feature table (used by the API)
type Store interface {
	LatestManifest(ctx context.Context) (*contracts.RunManifest, error)
	Metadata(ctx context.Context) (*contracts.FeatureMetadata, error)
	Customer(ctx context.Context, customerID string) (*contracts.CustomerFeatures, error)
}

// ReadTable loads an exported customer_features.csv
func ReadTable(r io.Reader) (*contracts.FeatureTable, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := append([]string(nil), header...)

	var lookbacks []int
	for _, col := range columns {
		if days, ok := parseLookback(col); ok {
			lookbacks = append(lookbacks, days)
		}
	}

	table := &contracts.FeatureTable{Columns: columns, Lookbacks: lookbacks}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		row := contracts.CustomerFeatures{
			TemporalFeatures: contracts.TemporalFeatures{RecentPurchases: make([]int, len(lookbacks))},
		}
		for i, col := range columns {
			if err := setCell(col, rec[i], lookbacks, &row); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// FileStore serves the artifacts of an Exporter's output dir.
// 파일 mtime이 바뀌면 테이블을 다시 읽음
type FileStore struct {
	dir   string
	names FileNames

	mu      sync.RWMutex
	modTime time.Time
	index   map[string]*contracts.CustomerFeatures
}

// NewFileStore creates a store over dir
func NewFileStore(dir string, names FileNames) *FileStore {
	return &FileStore{dir: dir, names: names}
}

// LatestManifest returns run_manifest.json
func (s *FileStore) LatestManifest(_ context.Context) (*contracts.RunManifest, error) {
	var m contracts.RunManifest
	if err := readJSON(filepath.Join(s.dir, s.names.Manifest), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Metadata returns feature_info.json
func (s *FileStore) Metadata(_ context.Context) (*contracts.FeatureMetadata, error) {
	var m contracts.FeatureMetadata
	if err := readJSON(filepath.Join(s.dir, s.names.Metadata), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Customer returns one row of customer_features.csv
func (s *FileStore) Customer(_ context.Context, customerID string) (*contracts.CustomerFeatures, error) {
	index, err := s.load()
	if err != nil {
		return nil, err
	}
	row, ok := index[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *FileStore) load() (map[string]*contracts.CustomerFeatures, error) {
	path := filepath.Join(s.dir, s.names.Features)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.mu.RLock()
	if s.index != nil && info.ModTime().Equal(s.modTime) {
		index := s.index
		s.mu.RUnlock()
		return index, nil
	}
	s.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	index := make(map[string]*contracts.CustomerFeatures, len(table.Rows))
	for i := range table.Rows {
		index[table.Rows[i].CustomerID] = &table.Rows[i]
	}

	s.mu.Lock()
	s.index = index
	s.modTime = info.ModTime()
	s.mu.Unlock()

	return index, nil
}
