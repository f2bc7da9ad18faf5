package resilience

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBulkhead_LimitsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})

	started := make(chan struct{}, 2)
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func(ctx context.Context) error {
				started <- struct{}{}
				<-release
				return nil
			})
		}()
	}

	<-started
	<-started

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("third call must not run")
		return nil
	})
	if err != ErrBulkheadFull {
		t.Errorf("Execute() = %v, want ErrBulkheadFull", err)
	}

	m := b.Metrics()
	if m.Active != 2 || m.Rejected != 1 {
		t.Errorf("Metrics = %+v, want Active=2 Rejected=1", m)
	}

	close(release)
	wg.Wait()

	if m := b.Metrics(); m.Active != 0 {
		t.Errorf("Active after release = %d, want 0", m.Active)
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Errorf("Execute() = %v, want nil once the slot frees", err)
	}
}

func TestBulkhead_AcquireHonorsContext(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Hour})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := b.Acquire(ctx); err != context.DeadlineExceeded {
		t.Errorf("Acquire() = %v, want context.DeadlineExceeded", err)
	}

	b.Release()
}
