package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SinkState is the delivery status reported by a download sink.
type SinkState string

const (
	SinkPending     SinkState = "pending"
	SinkComplete    SinkState = "complete"
	SinkCancelled   SinkState = "cancelled"
	SinkInterrupted SinkState = "interrupted"
)

// Sink is the external download collaborator. Deliver hands over one
// archive blob; Wait polls the returned handle until the delivery
// reaches a terminal state or the bounded wait elapses. A Wait that
// returns SinkPending with no error means the outcome is unknown: the
// pipeline must not treat it as a confirmed success.
type Sink interface {
	Deliver(ctx context.Context, name string, data []byte, prompt bool) (string, error)
	Wait(ctx context.Context, id string, timeout time.Duration) (SinkState, error)
}

// FileSink writes archives straight to a directory. Delivery is
// synchronous, so Wait confirms immediately.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

func (s *FileSink) Deliver(ctx context.Context, name string, data []byte, prompt bool) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("sink: ensure dir: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("sink: write %s: %w", name, err)
	}
	return path, nil
}

func (s *FileSink) Wait(ctx context.Context, id string, timeout time.Duration) (SinkState, error) {
	return SinkComplete, nil
}
