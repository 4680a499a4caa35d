package intern

import (
	"sync"
	"testing"

	"github.com/jonwraymond/heapcache/sizeof"
)

func TestInterner_EqualValuesShareHandle(t *testing.T) {
	in := New[string]()

	a := in.Intern("div")
	b := in.Intern("d" + "iv")

	if a != b {
		t.Fatal("equal values should intern to the same handle")
	}
	if a.Value() != "div" {
		t.Errorf("Value() = %q, want %q", a.Value(), "div")
	}
	if got := a.Refs(); got != 2 {
		t.Errorf("Refs() = %d, want 2", got)
	}
	if in.Len() != 1 {
		t.Errorf("Len() = %d, want 1", in.Len())
	}
}

func TestInterner_DistinctValues(t *testing.T) {
	in := New[string]()
	if in.Intern("a") == in.Intern("b") {
		t.Fatal("distinct values should not share a handle")
	}
	if in.Len() != 2 {
		t.Errorf("Len() = %d, want 2", in.Len())
	}
}

func TestInterner_ReleaseRemovesAfterLastRef(t *testing.T) {
	in := New[string]()

	first := in.Intern("span")
	second := in.Intern("span")

	first.Release()
	if _, ok := in.Lookup("span"); !ok {
		t.Fatal("value should stay interned while a reference remains")
	}
	if again := in.Intern("span"); again != first {
		t.Fatal("re-intern before full release should return the live handle")
	} else {
		again.Release()
	}

	second.Release()
	if _, ok := in.Lookup("span"); ok {
		t.Fatal("value should be removed after the last release")
	}
	if in.Len() != 0 {
		t.Errorf("Len() = %d, want 0", in.Len())
	}
	if in.Bytes() != 0 {
		t.Errorf("Bytes() = %d, want 0", in.Bytes())
	}

	fresh := in.Intern("span")
	if fresh == first {
		t.Fatal("re-intern after full release should allocate a fresh handle")
	}
	if fresh.Refs() != 1 {
		t.Errorf("fresh Refs() = %d, want 1", fresh.Refs())
	}
}

func TestInterner_ExtraReleaseIsNoop(t *testing.T) {
	in := New[string]()
	old := in.Intern("p")
	old.Release()

	fresh := in.Intern("p")
	old.Release() // dead handle; must not touch the fresh one

	if fresh.Refs() != 1 {
		t.Errorf("fresh Refs() = %d, want 1", fresh.Refs())
	}
	if _, ok := in.Lookup("p"); !ok {
		t.Fatal("fresh handle should remain interned")
	}
}

func TestInterner_BytesAccounting(t *testing.T) {
	in := New[string]()
	in.Intern("abc")
	in.Intern("abc")
	in.Intern("de")

	want := sizeof.Of("abc") + sizeof.Of("de")
	if got := in.Bytes(); got != want {
		t.Errorf("Bytes() = %d, want %d", got, want)
	}
}

func TestInterner_WithSizer(t *testing.T) {
	in := New(WithSizer(func(int) uint64 { return 100 }))
	h := in.Intern(42)
	if h.Size() != 100 {
		t.Errorf("Size() = %d, want 100", h.Size())
	}
	if in.Bytes() != 100 {
		t.Errorf("Bytes() = %d, want 100", in.Bytes())
	}
}

func TestInterner_HandleIsSharedForAccounting(t *testing.T) {
	in := New[string]()
	h := in.Intern(string(make([]byte, 1024)))

	type styleRule struct {
		Selector *Handle[string]
		Weight   int64
	}
	if got, want := sizeof.Of(styleRule{Selector: h, Weight: 1}), uint64(16); got != want {
		t.Errorf("sizeof.Of(styleRule) = %d, want %d", got, want)
	}
}

func TestInterner_ConcurrentInternConverges(t *testing.T) {
	in := New[string]()

	const workers = 64
	handles := make([]*Handle[string], workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			handles[i] = in.Intern("shared-value")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if handles[i] != handles[0] {
			t.Fatalf("worker %d got a different handle", i)
		}
	}
	if got := handles[0].Refs(); got != workers {
		t.Errorf("Refs() = %d, want %d", got, workers)
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			handles[i].Release()
		}(i)
	}
	wg.Wait()

	if in.Len() != 0 {
		t.Errorf("Len() = %d after releasing all, want 0", in.Len())
	}
}
