package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// Sink persists job results as they complete. When the output path is an
// existing directory it writes one <pid>.json file per result, overwriting on
// re-run; otherwise it appends one JSON line per result to the single output
// file.
//
// Write is only ever invoked from the executor's serialized callback loop, so
// appends to the single file never interleave.
type Sink struct {
	path   string
	isDir  bool
	logger hclog.Logger
}

// NewSink creates a sink for the given output path.
func NewSink(path string, logger hclog.Logger) *Sink {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	info, err := os.Stat(path)
	return &Sink{
		path:   path,
		isDir:  err == nil && info.IsDir(),
		logger: logger.Named("sink"),
	}
}

// Write persists one result. Nil results (poisoned no-op jobs) are skipped.
func (s *Sink) Write(pid string, result any) error {
	if result == nil {
		return nil
	}

	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result for %q: %w", pid, err)
	}

	if s.isDir {
		target := filepath.Join(s.path, pid+".json")
		s.logger.Debug("writing result file", "path", target)
		return os.WriteFile(target, line, 0o644)
	}

	s.logger.Debug("appending result", "path", s.path, "pid", pid)
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return f.Close()
}

// WriteLines overwrites path with one JSON line per result. Used by the bulk
// mode, which produces the whole result set in one call.
func WriteLines[T any](path string, results []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, result := range results {
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encoding bulk result: %w", err)
		}
	}
	return f.Close()
}
