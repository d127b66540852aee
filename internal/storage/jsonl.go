package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"chronicle/internal/model"
)

// JSONLArchive appends raw log records to a JSONL file so they can be
// decoded again offline.
type JSONLArchive struct {
	path string
	mu   sync.Mutex
}

func NewJSONLArchive(path string) *JSONLArchive {
	return &JSONLArchive{path: path}
}

// PutLogBatch appends a batch of log records as JSON lines.
func (s *JSONLArchive) PutLogBatch(logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)
	for _, record := range logs {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("write log record: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return nil
}
