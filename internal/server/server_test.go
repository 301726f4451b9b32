package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"
)

func testServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(http.NotFoundHandler(), Config{Port: 0, ShutdownTimeout: time.Second}, logger)
}

func TestRun_ShutdownHooksRunInReverseOrder(t *testing.T) {
	s := testServer()

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) ShutdownFunc {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	s.OnShutdown("redis", record("redis"))
	s.OnShutdown("worker", record("worker"))

	ctx, cancel := context.WithCancel(context.Background())
	workerCtx, stopWorker := context.WithCancel(context.Background())
	s.OnShutdown("stop-worker", func(context.Context) error {
		stopWorker()
		return nil
	})
	s.Go(workerCtx, "loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(order) != 2 || order[0] != "worker" || order[1] != "redis" {
		t.Errorf("shutdown order = %v, want [worker redis]", order)
	}
}

func TestRun_WorkerFailureStopsServer(t *testing.T) {
	s := testServer()
	boom := errors.New("boom")

	s.Go(context.Background(), "broken", func(context.Context) error {
		return boom
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("expected worker error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after worker failure")
	}
}

func TestRun_HookErrorsAreReturned(t *testing.T) {
	s := testServer()
	boom := errors.New("close failed")
	s.OnShutdown("db", func(context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx); !errors.Is(err, boom) {
		t.Errorf("expected hook error, got %v", err)
	}
}
