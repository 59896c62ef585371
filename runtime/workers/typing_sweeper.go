package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
)

// Ensure *TypingSweeper implements the contract.Worker interface at compile time.
var _ contract.Worker = (*TypingSweeper)(nil)

// TypingMarks is the slice of the coordinator the sweeper drives.
type TypingMarks interface {
	ExpireDue(ctx context.Context, now time.Time) int
}

// TypingSweeper ends overdue typing marks on a fixed cadence. It is the
// only time-driven component of the relay; the coordinator itself never
// owns a timer, which keeps expiry deterministic under test.
type TypingSweeper struct {
	log      *slog.Logger
	marks    TypingMarks
	interval time.Duration
}

func NewTypingSweeper(log *slog.Logger, marks TypingMarks, interval time.Duration) *TypingSweeper {
	return &TypingSweeper{log: log, marks: marks, interval: interval}
}

func (w *TypingSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case <-ticker.C:
			if n := w.marks.ExpireDue(ctx, time.Now()); n > 0 {
				w.log.Debug("Expired typing marks", "count", n)
			}
		}
	}
}
