package training

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// runLog appends one JSON line per epoch under the log directory, so runs
// can be compared after the fact without parsing console output.
type runLog struct {
	path string
	file *os.File
}

func newRunLog(logDir, runID string) (*runLog, error) {
	dir := filepath.Join(logDir, "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}
	path := filepath.Join(dir, runID+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return &runLog{path: path, file: file}, nil
}

func (l *runLog) Path() string { return l.path }

func (l *runLog) Append(entry EpochMetrics) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode run log entry: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write run log entry: %w", err)
	}
	return nil
}

func (l *runLog) Close() error {
	return l.file.Close()
}
