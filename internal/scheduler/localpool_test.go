package scheduler

import (
	"context"
	"testing"
)

func TestLocalPool_RunPreservesOrder(t *testing.T) {
	p := NewLocalPool(4)
	tasks := make([]LocalTask, 10)
	for i := range tasks {
		i := i
		tasks[i] = func() any { return i * i }
	}

	results := p.Run(context.Background(), tasks)
	if len(results) != len(tasks) {
		t.Fatalf("got %d results, want %d", len(results), len(tasks))
	}
	for i, r := range results {
		if r.(int) != i*i {
			t.Errorf("result[%d] = %v, want %d", i, r, i*i)
		}
	}
}

func TestLocalPool_DefaultsWorkerCount(t *testing.T) {
	p := NewLocalPool(0)
	if p.workers <= 0 {
		t.Fatalf("expected positive default worker count, got %d", p.workers)
	}
}

func TestLocalPool_CancelledContextLeavesRemainingZero(t *testing.T) {
	p := NewLocalPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []LocalTask{
		func() any { return 42 },
	}
	results := p.Run(ctx, tasks)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0] != nil {
		t.Errorf("result[0] = %v, want nil for a task never dispatched", results[0])
	}
}
