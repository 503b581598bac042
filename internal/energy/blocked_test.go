package energy

import (
	"sync"
	"testing"
)

func TestBlockedSet(t *testing.T) {
	blocked := NewBlockedSet()

	t.Run("empty by default", func(t *testing.T) {
		if blocked.Len() != 0 {
			t.Errorf("Len() = %d, want 0", blocked.Len())
		}
		if blocked.Contains("dev-001") {
			t.Error("Contains() = true for empty set")
		}
	})

	t.Run("add and contains", func(t *testing.T) {
		blocked.Add("dev-001")
		if !blocked.Contains("dev-001") {
			t.Error("Contains() = false after Add()")
		}
	})

	t.Run("add is idempotent", func(t *testing.T) {
		blocked.Add("dev-001")
		blocked.Add("dev-001")
		if blocked.Len() != 1 {
			t.Errorf("Len() = %d after repeated Add, want 1", blocked.Len())
		}
	})

	t.Run("remove clears membership", func(t *testing.T) {
		blocked.Remove("dev-001")
		if blocked.Contains("dev-001") {
			t.Error("Contains() = true after Remove()")
		}
	})

	t.Run("remove of absent id is a no-op", func(t *testing.T) {
		blocked.Remove("never-added")
	})

	t.Run("ids snapshot", func(t *testing.T) {
		blocked.Add("dev-a")
		blocked.Add("dev-b")

		ids := blocked.IDs()
		if len(ids) != 2 {
			t.Fatalf("IDs() returned %d entries, want 2", len(ids))
		}
	})
}

func TestBlockedSet_ConcurrentAccess(t *testing.T) {
	blocked := NewBlockedSet()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			blocked.Add("dev-001")
		}()
		go func() {
			defer wg.Done()
			_ = blocked.Contains("dev-001")
		}()
	}
	wg.Wait()

	if !blocked.Contains("dev-001") {
		t.Error("device missing after concurrent adds")
	}
}
