package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/domain/event"
	"chat-relay/mocks"
)

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	var calls atomic.Int32
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			calls.Add(1)
			panic("boom")
		}).
		AnyTimes()

	telemetryChan := make(chan event.Event, 16)
	sup := NewSupervisor(log, telemetryChan, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	go sup.Add(workerMock).Run(ctx)

	// Waiting for panics and restarts
	time.Sleep(300 * time.Millisecond)

	req.GreaterOrEqual(calls.Load(), int32(2))

	// Each restart left a telemetry trace
	evt := <-telemetryChan
	req.Equal(event.RestartedAfterPanicType, evt.Type)
	req.Equal("MockWorker", evt.Payload.(event.WorkerRestartedAfterPanic).WorkerName)
}

func TestSupervisor_StopOnSuccess(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)
	ctrl := gomock.NewController(t)

	workerMock := mocks.NewMockWorker(ctrl)

	// Given a worker running only once
	workerMock.EXPECT().
		Run(gomock.Any()).
		Return(nil).
		Times(1)

	sup := NewSupervisor(log, nil, 50*time.Millisecond)

	// Given a channel to notify when Run() terminated
	done := make(chan struct{})

	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// Then supervisor detected a success, returned nil and stopped
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}
}

func TestSupervisor_StopCancelsWorkers(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)
	ctrl := gomock.NewController(t)

	workerMock := mocks.NewMockWorker(ctrl)

	// Given a worker blocking until its context ends
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}).
		Times(1)

	sup := NewSupervisor(log, nil, 50*time.Millisecond)

	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	// When the supervisor is stopped
	time.Sleep(50 * time.Millisecond)
	sup.Stop()

	select {
	case <-done:
		// Then every goroutine drained
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped all workers")
	}
}

func TestTypingSweeper_DrivesExpiry(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	marks := &countingMarks{}
	sweeper := NewTypingSweeper(log, marks, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := sweeper.Run(ctx)

	req.ErrorIs(err, context.DeadlineExceeded)
	req.GreaterOrEqual(marks.calls.Load(), int32(3))
}

type countingMarks struct {
	calls atomic.Int32
}

func (c *countingMarks) ExpireDue(ctx context.Context, now time.Time) int {
	c.calls.Add(1)
	return 0
}
