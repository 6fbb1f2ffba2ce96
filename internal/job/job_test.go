package job

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewJob(t *testing.T) {
	j := New(func() {})
	if j.State() != StatePending {
		t.Errorf("expected Pending, got %s", j.State())
	}
	if j.ID() == "" {
		t.Error("expected non-empty ID")
	}

	other := New(func() {})
	if j.ID() == other.ID() {
		t.Error("expected distinct IDs")
	}
}

func TestNewJobNilBody(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for nil body")
		}
		if err, ok := r.(error); !ok || !errors.Is(err, ErrNilBody) {
			t.Errorf("expected ErrNilBody, got %v", r)
		}
	}()
	New(nil)
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StatePending, "Pending"},
		{StateQueued, "Queued"},
		{StateExecuting, "Executing"},
		{StateCompleted, "Completed"},
		{State(42), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.expected)
		}
	}
}

func TestExecute(t *testing.T) {
	var calls atomic.Int32
	j := New(func() { calls.Add(1) })

	if err := j.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
	if j.State() != StateCompleted {
		t.Errorf("expected Completed, got %s", j.State())
	}

	select {
	case <-j.Done():
	default:
		t.Error("expected done channel to be closed")
	}
}

func TestExecuteTwice(t *testing.T) {
	var calls atomic.Int32
	j := New(func() { calls.Add(1) })

	if err := j.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := j.Execute(); !errors.Is(err, ErrAlreadyExecuted) {
		t.Errorf("expected ErrAlreadyExecuted, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("body should run once, ran %d times", calls.Load())
	}
}

func TestExecuteConcurrent(t *testing.T) {
	var calls atomic.Int32
	j := New(func() { calls.Add(1) })

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if j.Execute() == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("body should run once, ran %d times", calls.Load())
	}
	if succeeded.Load() != 1 {
		t.Errorf("expected exactly one successful Execute, got %d", succeeded.Load())
	}
}

func TestWaitHappensAfterBody(t *testing.T) {
	var result int
	j := New(func() {
		time.Sleep(10 * time.Millisecond)
		result = 42
	})
	if err := j.MarkQueued(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() { _ = j.Execute() }()

	if err := j.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Wait 以外の同期なしで結果が見えること
	if result != 42 {
		t.Errorf("expected 42, got %d", result)
	}
}

func TestWaitNotSubmitted(t *testing.T) {
	j := New(func() {})
	if err := j.Wait(); !errors.Is(err, ErrNotSubmitted) {
		t.Errorf("expected ErrNotSubmitted, got %v", err)
	}
}

func TestWaitIdempotent(t *testing.T) {
	var calls atomic.Int32
	j := New(func() { calls.Add(1) })
	_ = j.MarkQueued()
	_ = j.Execute()

	for range 3 {
		if err := j.Wait(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = j.Wait()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for concurrent waiters")
	}

	if calls.Load() != 1 {
		t.Errorf("Wait should not re-run the body, ran %d times", calls.Load())
	}
}

func TestWaitMultipleWaitersBeforeExecute(t *testing.T) {
	j := New(func() {})
	_ = j.MarkQueued()

	var released atomic.Int32
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if j.Wait() == nil {
				released.Add(1)
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	if released.Load() != 0 {
		t.Fatal("waiters released before execution")
	}

	_ = j.Execute()
	wg.Wait()

	if released.Load() != 4 {
		t.Errorf("expected 4 released waiters, got %d", released.Load())
	}
}

func TestMarkQueuedTwice(t *testing.T) {
	j := New(func() {})
	if err := j.MarkQueued(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := j.MarkQueued(); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("expected ErrAlreadySubmitted, got %v", err)
	}
	if j.SubmittedAt().IsZero() {
		t.Error("expected submitted time to be set")
	}
}

func TestAssign(t *testing.T) {
	var got string
	j := New(func() { got = "first" })

	if err := j.Assign(func() { got = "second" }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := j.Assign(nil); !errors.Is(err, ErrNilBody) {
		t.Errorf("expected ErrNilBody, got %v", err)
	}

	_ = j.Execute()
	if got != "second" {
		t.Errorf("expected replaced body to run, got %q", got)
	}
}

func TestAssignAfterSubmit(t *testing.T) {
	j := New(func() {})
	_ = j.MarkQueued()

	if err := j.Assign(func() {}); !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending, got %v", err)
	}

	_ = j.Execute()
	if err := j.Assign(func() {}); !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending after execute, got %v", err)
	}
}

func TestTimings(t *testing.T) {
	j := New(func() { time.Sleep(5 * time.Millisecond) })

	if j.QueueWait() != 0 || j.RunTime() != 0 {
		t.Error("expected zero timings before execution")
	}

	_ = j.MarkQueued()
	_ = j.Execute()

	if j.RunTime() < 5*time.Millisecond {
		t.Errorf("expected run time >= 5ms, got %v", j.RunTime())
	}
	if j.QueueWait() < 0 {
		t.Errorf("expected non-negative queue wait, got %v", j.QueueWait())
	}
	if !j.FinishedAt().After(j.StartedAt()) && !j.FinishedAt().Equal(j.StartedAt()) {
		t.Error("finished time should not precede start time")
	}
}

func TestWaitBeforeSubmitIsNotDeferred(t *testing.T) {
	var ran atomic.Bool
	j := New(func() { ran.Store(true) })

	// 投入前の Wait は後の投入を待たずにエラーを返す
	if err := j.Wait(); !errors.Is(err, ErrNotSubmitted) {
		t.Fatalf("expected ErrNotSubmitted, got %v", err)
	}

	if err := j.MarkQueued(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := j.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := j.Wait(); err != nil {
		t.Errorf("expected Wait after submit to succeed, got %v", err)
	}
	if !ran.Load() {
		t.Error("expected body to run after the early Wait")
	}
}

func TestRunOnStart(t *testing.T) {
	var order []string
	j := New(func() { order = append(order, "body") })

	err := j.Run(func() {
		if j.State() != StateExecuting {
			t.Errorf("expected Executing in onStart, got %s", j.State())
		}
		order = append(order, "start")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "start" || order[1] != "body" {
		t.Errorf("expected [start body], got %v", order)
	}
}

func TestRunOnStartSkippedWhenExecuted(t *testing.T) {
	j := New(func() {})
	_ = j.Execute()

	var called bool
	if err := j.Run(func() { called = true }); !errors.Is(err, ErrAlreadyExecuted) {
		t.Errorf("expected ErrAlreadyExecuted, got %v", err)
	}
	if called {
		t.Error("onStart should not run for an executed job")
	}
}
