package reactive

import (
	"sync"
	"testing"
)

func TestSignalGetSet(t *testing.T) {
	s := NewSignal(1)
	if got := s.Get(); got != 1 {
		t.Fatalf("Get = %d, want 1", got)
	}

	s.Set(2)
	if got := s.Get(); got != 2 {
		t.Fatalf("Get = %d, want 2", got)
	}
}

func TestSignalSubscribe(t *testing.T) {
	t.Run("subscriber sees every change", func(t *testing.T) {
		s := NewSignal("a")
		var seen []string
		cancel := s.Subscribe(func(v string) { seen = append(seen, v) })
		defer cancel()

		s.Set("b")
		s.Set("c")

		if len(seen) != 2 || seen[0] != "b" || seen[1] != "c" {
			t.Fatalf("seen = %v", seen)
		}
	})

	t.Run("setting an equal value does not notify", func(t *testing.T) {
		s := NewSignal(5)
		calls := 0
		cancel := s.Subscribe(func(int) { calls++ })
		defer cancel()

		s.Set(5)
		if calls != 0 {
			t.Fatalf("calls = %d, want 0", calls)
		}
	})

	t.Run("cancel stops notifications", func(t *testing.T) {
		s := NewSignal(0)
		calls := 0
		cancel := s.Subscribe(func(int) { calls++ })
		cancel()
		cancel() // second cancel is harmless

		s.Set(1)
		if calls != 0 {
			t.Fatalf("calls = %d, want 0", calls)
		}
	})

	t.Run("subscriber can cancel itself during notify", func(t *testing.T) {
		s := NewSignal(0)
		var cancel func()
		calls := 0
		cancel = s.Subscribe(func(int) {
			calls++
			cancel()
		})

		s.Set(1)
		s.Set(2)
		if calls != 1 {
			t.Fatalf("calls = %d, want 1", calls)
		}
	})
}

func TestSignalUpdate(t *testing.T) {
	s := NewSignal(10)
	s.Update(func(v int) int { return v + 5 })
	if got := s.Get(); got != 15 {
		t.Fatalf("Get = %d, want 15", got)
	}
}

func TestSignalWithEquals(t *testing.T) {
	type box struct{ n int }
	// Treat all boxes with the same parity as equal.
	s := NewSignal(box{2}).WithEquals(func(a, b box) bool {
		return a.n%2 == b.n%2
	})

	calls := 0
	cancel := s.Subscribe(func(box) { calls++ })
	defer cancel()

	s.Set(box{4}) // same parity, no change
	s.Set(box{3}) // parity flipped
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestSignalConcurrentAccess(t *testing.T) {
	s := NewSignal(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.Set(n)
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Get()
		}()
	}
	wg.Wait()
}
