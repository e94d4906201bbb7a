// internal/results/store.go
//
// Package results persists attempt outcomes: an append-only CSV log of every URL's
// final verdict and a plain-text list of the URLs that failed in the current run.
package results

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
)

// Header is the first row of a new outcome log.
var Header = []string{"url", "email", "result", "note", "timestamp"}

// TimestampLayout formats the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Store writes outcomes to disk. Every row is appended and flushed on its own, so
// the log survives a crash between URLs.
type Store struct {
	mu          sync.Mutex
	successPath string
	failedPath  string
	logger      *zap.Logger
}

// Open prepares both files: the outcome log gets a header when it does not exist
// yet, and the failed list is truncated for the new run.
func Open(successPath, failedPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, p := range []string{successPath, failedPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory for %s: %w", p, err)
			}
		}
	}

	if _, err := os.Stat(successPath); errors.Is(err, os.ErrNotExist) {
		if err := appendRow(successPath, Header); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat outcome log %s: %w", successPath, err)
	}

	if err := os.WriteFile(failedPath, nil, 0o644); err != nil {
		return nil, fmt.Errorf("failed to reset failed list %s: %w", failedPath, err)
	}

	return &Store{
		successPath: successPath,
		failedPath:  failedPath,
		logger:      logger.Named("results"),
	}, nil
}

// PersistOutcome appends one row to the outcome log and, for failures, the URL to the
// failed list.
func (s *Store) PersistOutcome(ctx context.Context, outcome schemas.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := []string{
		outcome.URL,
		outcome.Email,
		string(outcome.Result),
		outcome.Reason,
		outcome.Timestamp.Format(TimestampLayout),
	}
	if err := appendRow(s.successPath, row); err != nil {
		return err
	}

	if outcome.Result == schemas.ResultFailed {
		if err := appendLine(s.failedPath, outcome.URL); err != nil {
			return err
		}
	}

	s.logger.Debug("Persisted outcome.", zap.String("url", outcome.URL), zap.String("result", string(outcome.Result)))
	return nil
}

// Paths returns the outcome log and failed list locations.
func (s *Store) Paths() (successPath, failedPath string) {
	return s.successPath, s.failedPath
}

func appendRow(path string, row []string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open outcome log %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close outcome log %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write outcome row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush outcome row: %w", err)
	}
	return nil
}

func appendLine(path, line string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open failed list %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close failed list %s: %w", path, cerr)
		}
	}()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("failed to append to failed list: %w", err)
	}
	return nil
}
