package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/cursive-labs/beacon/backend"
	"github.com/cursive-labs/beacon/log"
)

// recordingBackend records each transaction and optionally fails them.
type recordingBackend struct {
	mu      sync.Mutex
	batches [][]backend.Op
	failErr error
}

func (r *recordingBackend) Execute(_ context.Context, ops []backend.Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.batches = append(r.batches, append([]backend.Op(nil), ops...))
	return nil
}

func (r *recordingBackend) Close() error { return nil }

func (r *recordingBackend) snapshot() [][]backend.Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]backend.Op(nil), r.batches...)
}

func quietLogger() *log.Logger {
	return log.NewLogger("test").WithOutput(io.Discard)
}

func persist(key string) backend.Op {
	return backend.PersistOp{Key: key, Entity: key}
}

func TestActor_EnqueueAndFlush(t *testing.T) {
	be := &recordingBackend{}
	a := New(Config{Mode: ModePipelined, QueueSize: 8}, be, quietLogger())
	a.Start(context.Background())

	if err := a.Enqueue([]backend.Op{persist("a"), persist("b")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	batches := be.snapshot()
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	if total != 2 {
		t.Fatalf("expected 2 committed ops, got %d", total)
	}

	stats := a.Stats()
	if stats.BatchesEnqueued != 1 || stats.OpsCommitted != 2 || stats.Failures != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestActor_GroupsPendingBatches(t *testing.T) {
	be := &recordingBackend{}
	a := New(Config{Mode: ModePipelined, QueueSize: 8, MaxBatch: 8}, be, quietLogger())

	// Queue three batches before the worker starts so the first pop can
	// gather all of them into one transaction.
	for i, key := range []string{"a", "b", "c"} {
		if err := a.Enqueue([]backend.Op{persist(key)}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	a.Start(context.Background())
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	batches := be.snapshot()
	if len(batches) != 1 {
		t.Fatalf("expected 1 grouped transaction, got %d", len(batches))
	}
	if len(batches[0]) != 3 {
		t.Errorf("expected 3 ops in the grouped transaction, got %d", len(batches[0]))
	}

	if stats := a.Stats(); stats.FlushCount != 1 {
		t.Errorf("expected 1 flush, got %d", stats.FlushCount)
	}
}

func TestActor_QueueFull(t *testing.T) {
	be := &recordingBackend{}
	// No worker: the queue fills and stays full.
	a := New(Config{Mode: ModePipelined, QueueSize: 1}, be, quietLogger())

	if err := a.Enqueue([]backend.Op{persist("a")}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := a.Enqueue([]backend.Op{persist("b")}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	stats := a.Stats()
	if stats.BatchesEnqueued != 1 || stats.BatchesRejected != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestActor_EnqueueAfterClose(t *testing.T) {
	be := &recordingBackend{}
	a := New(Config{Mode: ModePipelined}, be, quietLogger())
	a.Start(context.Background())
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := a.Enqueue([]backend.Op{persist("late")}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	// Close is idempotent.
	if err := a.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestActor_EnqueueWaitSync(t *testing.T) {
	be := &recordingBackend{}
	a := New(Config{Mode: ModeSync, Workers: 2}, be, quietLogger())

	if err := a.EnqueueWait(context.Background(), []backend.Op{persist("a")}); err != nil {
		t.Fatalf("enqueue wait: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(be.snapshot()) != 1 {
		t.Errorf("expected 1 committed transaction")
	}
}

func TestActor_EnqueueWaitSurfacesFailure(t *testing.T) {
	boom := errors.New("backend down")
	be := &recordingBackend{failErr: boom}
	a := New(Config{Mode: ModeSync, Workers: 1}, be, quietLogger())

	err := a.EnqueueWait(context.Background(), []backend.Op{persist("a")})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the commit error, got %v", err)
	}
	if stats := a.Stats(); stats.Failures != 1 {
		t.Errorf("expected 1 failure, got %d", stats.Failures)
	}
}

func TestActor_EnqueueWaitPipelined(t *testing.T) {
	boom := errors.New("backend down")
	be := &recordingBackend{failErr: boom}
	a := New(Config{Mode: ModePipelined, QueueSize: 4}, be, quietLogger())
	a.Start(context.Background())
	defer func() { _ = a.Close() }()

	err := a.EnqueueWait(context.Background(), []backend.Op{persist("a")})
	if !errors.Is(err, boom) {
		t.Fatalf("pipelined await must observe the commit error, got %v", err)
	}
}

func TestActor_FailedBatchNotRetried(t *testing.T) {
	boom := errors.New("backend down")
	be := &recordingBackend{failErr: boom}
	a := New(Config{Mode: ModePipelined, QueueSize: 4}, be, quietLogger())
	a.Start(context.Background())

	if err := a.Enqueue([]backend.Op{persist("a")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	stats := a.Stats()
	if stats.Failures != 1 {
		t.Errorf("expected exactly 1 failed flush, got %d", stats.Failures)
	}
	if stats.OpsCommitted != 0 {
		t.Errorf("a failed batch must commit nothing, got %d", stats.OpsCommitted)
	}
}

func TestActor_ConcurrentEnqueueClose(t *testing.T) {
	// Producers hammer the queue while Close races them. Every enqueue
	// must resolve to nil, ErrQueueFull, or ErrClosed; a send on the
	// closed queue would panic and fail the test.
	for i := 0; i < 50; i++ {
		be := &recordingBackend{}
		a := New(Config{Mode: ModePipelined, QueueSize: 4}, be, quietLogger())
		a.Start(context.Background())

		var wg sync.WaitGroup
		for p := 0; p < 8; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for n := 0; n < 100; n++ {
					err := a.Enqueue([]backend.Op{persist("x")})
					if err != nil && !errors.Is(err, ErrQueueFull) && !errors.Is(err, ErrClosed) {
						t.Errorf("unexpected enqueue error: %v", err)
						return
					}
					if errors.Is(err, ErrClosed) {
						return
					}
				}
			}()
		}

		if err := a.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		wg.Wait()

		if err := a.Enqueue([]backend.Op{persist("late")}); !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed after close, got %v", err)
		}
	}
}

func TestActor_Defaults(t *testing.T) {
	a := New(Config{}, &recordingBackend{}, nil)
	if a.config.Mode != ModePipelined {
		t.Errorf("expected pipelined default, got %s", a.config.Mode)
	}
	if a.config.QueueSize != DefaultConfig().QueueSize {
		t.Errorf("unexpected queue size %d", a.config.QueueSize)
	}
}
