// Package audit appends every detected wallet event to a JSON-lines file.
// The log is an operator-facing paper trail; appends are fire-and-forget so a
// full disk or unwritable path never blocks a poll cycle.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ozanylmz/walletwatch/internal/domain"
)

// Record is one audit entry. Detail carries the rendered notification body so
// the log can be grepped without replaying provider responses.
type Record struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	WalletID  string           `json:"wallet_id"`
	Address   string           `json:"address"`
	Event     domain.EventType `json:"event"`
	Title     string           `json:"title"`
	Detail    string           `json:"detail,omitempty"`
	Delivered bool             `json:"delivered"`
}

// Recorder accepts audit records. Implementations must never fail the caller.
type Recorder interface {
	Append(ctx context.Context, rec Record)
}

// Nop is a Recorder that discards everything. Used when auditing is disabled.
type Nop struct{}

func (Nop) Append(context.Context, Record) {}

// FileRecorder appends records to a single JSONL file, one object per line.
type FileRecorder struct {
	mu     sync.Mutex
	f      *os.File
	logger *slog.Logger
	now    func() time.Time
}

// NewFileRecorder opens (or creates) the audit file in append mode.
func NewFileRecorder(path string, logger *slog.Logger) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return &FileRecorder{
		f:      f,
		logger: logger.With(slog.String("component", "audit")),
		now:    time.Now,
	}, nil
}

// Append writes the record as one JSON line. A missing ID or timestamp is
// filled in. Write failures are logged and swallowed.
func (r *FileRecorder) Append(ctx context.Context, rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now().UTC()
	}

	line, err := json.Marshal(rec)
	if err != nil {
		r.logger.WarnContext(ctx, "marshal record failed",
			slog.String("wallet", rec.WalletID),
			slog.String("error", err.Error()),
		)
		return
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.f.Write(line); err != nil {
		r.logger.WarnContext(ctx, "append record failed",
			slog.String("wallet", rec.WalletID),
			slog.String("error", err.Error()),
		)
	}
}

// Close flushes and closes the underlying file.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("audit: close: %w", err)
	}
	return nil
}
