package cache_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/heapcache/cache"
)

func ExampleNew() {
	c := cache.New[string, string](cache.Config[string]{
		Shards:      4,
		ShardBudget: 1 << 20,
	})

	c.Insert("font:serif", "Times")

	if h, ok := c.Get("font:serif"); ok {
		fmt.Println("Value:", h.Value())
	}
	// Output:
	// Value: Times
}

func ExampleCache_GetOrInsertWith() {
	c := cache.New[string, int](cache.Config[int]{Shards: 1})
	ctx := context.Background()

	h, err := c.GetOrInsertWith(ctx, "line-height", func(ctx context.Context) (int, error) {
		return 18, nil
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("Value:", h.Value())
	// Output:
	// Value: 18
}

func ExampleCache_Snapshot() {
	c := cache.New[string, int](cache.Config[int]{
		Shards:      1,
		ShardBudget: 100,
		Sizer:       func(v int) uint64 { return uint64(v) },
	})

	c.Insert("A", 40)
	c.Insert("B", 40)
	c.Insert("C", 40)

	snap := c.Snapshot()
	fmt.Println("entries:", snap.Entries)
	fmt.Println("used:", snap.Used, "of", snap.Budget)
	fmt.Println("A cached:", c.Contains("A"))
	// Output:
	// entries: 2
	// used: 80 of 100
	// A cached: false
}
