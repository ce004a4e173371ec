package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestImportLimiter_Defaults(t *testing.T) {
	l := NewImportLimiter(0, 0)
	if got := l.MaxConcurrent(); got != 1 {
		t.Errorf("MaxConcurrent = %d, want 1", got)
	}
	if l.maxWait != DefaultMaxWaitTime {
		t.Errorf("maxWait = %v, want %v", l.maxWait, DefaultMaxWaitTime)
	}
}

func TestImportLimiter_SecondImportIsBusy(t *testing.T) {
	l := NewImportLimiter(1, 20*time.Millisecond)
	first := ContextWithSource(context.Background(), "spanish.csv")

	release, err := l.Acquire(first)
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}

	_, err = l.Acquire(ContextWithSource(context.Background(), "french.csv"))
	if !errors.Is(err, ErrImportBusy) {
		t.Fatalf("second Acquire() error = %v, want ErrImportBusy", err)
	}
	if _, ok := l.TryAcquire("french.csv"); ok {
		t.Fatal("TryAcquire succeeded while an import is running")
	}

	st := l.Status()
	if st.Active != 1 || len(st.Running) != 1 || st.Running[0].Source != "spanish.csv" {
		t.Errorf("Status() = %+v, want spanish.csv running", st)
	}

	release()
	release()

	again, ok := l.TryAcquire("french.csv")
	if !ok {
		t.Fatal("slot not freed by release")
	}
	again()
	if got := l.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount = %d, want 0", got)
	}
}

func TestImportLimiter_WaiterGetsSlot(t *testing.T) {
	l := NewImportLimiter(1, time.Second)
	release, _ := l.TryAcquire("first.csv")

	got := make(chan error, 1)
	go func() {
		r, err := l.Acquire(ContextWithSource(context.Background(), "second.csv"))
		if err == nil {
			r()
		}
		got <- err
	}()

	time.Sleep(20 * time.Millisecond)
	release()

	select {
	case err := <-got:
		if err != nil {
			t.Errorf("queued Acquire() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("queued import never got the slot")
	}
}

func TestImportLimiter_CallerCancels(t *testing.T) {
	l := NewImportLimiter(1, time.Minute)
	release, _ := l.TryAcquire("held.csv")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestImportLimiter_Drain(t *testing.T) {
	l := NewImportLimiter(1, time.Second)

	if err := l.Drain(context.Background()); err != nil {
		t.Fatalf("Drain() on idle limiter = %v", err)
	}

	release, _ := l.TryAcquire("long.csv")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Drain() while busy = %v, want DeadlineExceeded", err)
	}

	done := make(chan error, 1)
	go func() { done <- l.Drain(context.Background()) }()
	release()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Drain() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Drain did not return after release")
	}
}

func TestImportLimiter_StatusOrder(t *testing.T) {
	l := NewImportLimiter(2, time.Second)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	r1, _ := l.TryAcquire("a.csv")
	r2, _ := l.TryAcquire("b.csv")
	defer r2()

	st := l.Status()
	if st.Active != 2 || st.MaxConcurrent != 2 {
		t.Fatalf("Status() = %+v", st)
	}
	if st.Running[0].Source != "a.csv" || st.Running[1].Source != "b.csv" {
		t.Errorf("Running = %+v, want oldest first", st.Running)
	}

	r1()
	if st := l.Status(); st.Active != 1 || st.Running[0].Source != "b.csv" {
		t.Errorf("after release Status() = %+v", st)
	}
}
