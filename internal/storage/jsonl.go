package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"poolScope/internal/model"
)

// JsonlStorage appends JSON lines to a file. It archives snapshots and,
// through Append, any other record type such as sample failures.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// Path returns the output file.
func (s *JsonlStorage) Path() string {
	return s.path
}

// PutSnapshotBatch appends a batch of snapshot records as JSON lines.
func (s *JsonlStorage) PutSnapshotBatch(_ context.Context, records []model.SnapshotRecord) error {
	if len(records) == 0 {
		return nil
	}
	items := make([]any, 0, len(records))
	for _, record := range records {
		items = append(items, record)
	}
	return s.Append(items...)
}

// PutFailures appends dropped sample heights.
func (s *JsonlStorage) PutFailures(failures []model.SampleFailure) error {
	if len(failures) == 0 {
		return nil
	}
	items := make([]any, 0, len(failures))
	for _, failure := range failures {
		items = append(items, failure)
	}
	return s.Append(items...)
}

// Append writes each item as one JSON line.
func (s *JsonlStorage) Append(items ...any) error {
	if len(items) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
