package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	s := NewState("CA1", "b1", "+15551234567", "", time.Now())
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, s); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := store.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stage != StageGreeting {
		t.Fatalf("unexpected stage: %q", got.Stage)
	}

	got.Stage = StageDoctor
	if err := store.Put(ctx, got); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, _ = store.Get(ctx, "CA1")
	if got.Stage != StageDoctor {
		t.Fatalf("put did not replace state")
	}

	if err := store.Delete(ctx, "CA1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "CA1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStore_GetUnknownCall(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_SweepReclaimsIdleStates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Minute)

	base := time.Unix(1700000000, 0).UTC()
	store.now = func() time.Time { return base }

	_ = store.Create(ctx, NewState("stale", "b1", "+1", "", base))
	store.now = func() time.Time { return base.Add(9 * time.Minute) }
	_ = store.Create(ctx, NewState("fresh", "b2", "+2", "", base))

	if n := store.sweep(base.Add(11 * time.Minute)); n != 1 {
		t.Fatalf("expected 1 expired state, got %d", n)
	}
	if _, err := store.Get(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale state should be gone, got %v", err)
	}
	if _, err := store.Get(ctx, "fresh"); err != nil {
		t.Fatalf("fresh state should survive the sweep: %v", err)
	}
}

// Many calls can progress through their own state machines in parallel
// without cross-call interference.
func TestMemoryStore_ConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	const calls = 50
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("CA%d", i)
			s := NewState(id, "b", "+1", "", time.Now())
			if err := store.Create(ctx, s); err != nil {
				t.Errorf("create %s: %v", id, err)
				return
			}
			for _, stage := range []Stage{StageDoctor, StageDatetime, StageConfirmation} {
				s.Stage = stage
				if err := store.Put(ctx, s); err != nil {
					t.Errorf("put %s: %v", id, err)
					return
				}
			}
			got, err := store.Get(ctx, id)
			if err != nil || got.Stage != StageConfirmation {
				t.Errorf("get %s: %v stage=%q", id, err, got.Stage)
			}
		}(i)
	}
	wg.Wait()
}
