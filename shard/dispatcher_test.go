package shard

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/cespare/xxhash/v2"
)

func TestNewDispatcher_RoundsToPowerOfTwo(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{1, 1},
		{2, 2},
		{3, 4},
		{5, 8},
		{16, 16},
		{17, 32},
		{MaxShards, MaxShards},
		{MaxShards * 3, MaxShards},
	}
	for _, tt := range tests {
		d := NewDispatcher[string](tt.in)
		if got := d.Count(); got != tt.want {
			t.Errorf("NewDispatcher(%d).Count() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewDispatcher_DefaultFromHardware(t *testing.T) {
	d := NewDispatcher[string](0)
	if d.Count() != DefaultCount() {
		t.Errorf("Count() = %d, want DefaultCount() = %d", d.Count(), DefaultCount())
	}
	if DefaultCount() < runtime.GOMAXPROCS(0) {
		t.Errorf("DefaultCount() = %d, want at least GOMAXPROCS = %d", DefaultCount(), runtime.GOMAXPROCS(0))
	}
	if n := DefaultCount(); n&(n-1) != 0 {
		t.Errorf("DefaultCount() = %d is not a power of two", n)
	}
}

func TestDispatcher_ForIsStableAndInRange(t *testing.T) {
	d := NewDispatcher[string](8)
	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("key-%d", i)
		first := d.For(key)
		if first < 0 || first >= d.Count() {
			t.Fatalf("For(%q) = %d out of range", key, first)
		}
		if again := d.For(key); again != first {
			t.Fatalf("For(%q) changed from %d to %d", key, first, again)
		}
	}
}

func TestDispatcher_StringKeysMatchXXHash(t *testing.T) {
	d := NewDispatcher[string](16)
	key := "style:div.header"
	want := int(xxhash.Sum64String(key) & 15)
	if got := d.For(key); got != want {
		t.Errorf("For(%q) = %d, want %d", key, got, want)
	}
}

func TestDispatcher_ComparableKeys(t *testing.T) {
	type glyphKey struct {
		Font uint32
		Rune rune
		Size float32
	}
	d := NewDispatcher[glyphKey](32)
	k := glyphKey{Font: 7, Rune: 'a', Size: 12}
	if d.For(k) != d.For(glyphKey{Font: 7, Rune: 'a', Size: 12}) {
		t.Error("equal struct keys routed to different shards")
	}
}

func TestDispatcher_SpreadsKeys(t *testing.T) {
	d := NewDispatcher[int](8)
	counts := make([]int, d.Count())
	for i := 0; i < 8000; i++ {
		counts[d.For(i)]++
	}
	for i, c := range counts {
		if c == 0 {
			t.Errorf("shard %d received no keys", i)
		}
	}
}

func TestDispatcher_ConcurrentFor(t *testing.T) {
	d := NewDispatcher[string](4)
	want := d.For("shared")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := d.For("shared"); got != want {
					t.Errorf("For(shared) = %d, want %d", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}
