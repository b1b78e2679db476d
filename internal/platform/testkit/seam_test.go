package testkit

import (
	"sync"
	"testing"
	"time"
)

var (
	pageSizeFn = func() int { return 100 }
	swapTarget = 10
)

func TestSwap_FunctionAndRestore(t *testing.T) {
	// run swap in a subtest so Cleanup runs before we validate restoration
	t.Run("swap-in-subtest", func(t *testing.T) {
		if pageSizeFn() != 100 {
			t.Fatalf("precondition failed, pageSizeFn()=%d want 100", pageSizeFn())
		}
		Swap(t, &pageSizeFn, func() int { return 5 })
		if got := pageSizeFn(); got != 5 {
			t.Fatalf("swap did not take effect, got %d want 5", got)
		}
	})

	// after subtest completes, Cleanup restored the original
	if got := pageSizeFn(); got != 100 {
		t.Fatalf("swap did not restore original, got %d want 100", got)
	}
}

func TestSwap_NonFunctionType(t *testing.T) {
	// swap an int and ensure it restores
	t.Run("int", func(t *testing.T) {
		if swapTarget != 10 {
			t.Fatalf("precondition failed, got %d", swapTarget)
		}
		Swap(t, &swapTarget, 42)
		if swapTarget != 42 {
			t.Fatalf("swap failed, got %d want 42", swapTarget)
		}
	})
	if swapTarget != 10 {
		t.Fatalf("swap did not restore original, got %d want 10", swapTarget)
	}
}

func TestSerial_GuardsConcurrentSubtests(t *testing.T) {
	t.Parallel()

	var seqMu sync.Mutex
	seq := make([]string, 0, 4)

	record := func(s string) {
		seqMu.Lock()
		seq = append(seq, s)
		seqMu.Unlock()
	}

	t.Run("A", func(t *testing.T) {
		t.Parallel()
		Serial(t)
		record("A-start")
		time.Sleep(50 * time.Millisecond)
		record("A-end")
	})

	t.Run("B", func(t *testing.T) {
		t.Parallel()
		Serial(t)
		record("B-start")
		time.Sleep(50 * time.Millisecond)
		record("B-end")
	})

	t.Cleanup(func() {
		seqMu.Lock()
		defer seqMu.Unlock()
		if len(seq) != 4 {
			t.Fatalf("unexpected sequence length %d, seq=%v", len(seq), seq)
		}
		idx := map[string]int{}
		for i, s := range seq {
			idx[s] = i
		}
		groupedAFirst := idx["A-start"] < idx["A-end"] && idx["A-end"] < idx["B-start"]
		groupedBFirst := idx["B-start"] < idx["B-end"] && idx["B-end"] < idx["A-start"]
		if !(groupedAFirst || groupedBFirst) {
			t.Fatalf("expected grouped execution, got seq=%v", seq)
		}
	})
}
