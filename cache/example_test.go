package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/clycites/geofetch/cache"
)

func ExampleNewMemoryCache() {
	c := cache.NewMemoryCache(cache.DefaultPolicy())
	ctx := context.Background()

	_ = c.Put(ctx, "geofetch:location_search:abc", []byte(`{"results":[]}`))

	value, ok := c.Get(ctx, "geofetch:location_search:abc")
	if ok {
		fmt.Println("Value:", string(value))
	}
	// Output:
	// Value: {"results":[]}
}

func ExampleMemoryCache_Get() {
	mock := clock.NewMock()
	c := cache.NewMemoryCache(cache.Policy{TTL: time.Minute}, cache.WithClock(mock))
	ctx := context.Background()

	_ = c.Put(ctx, "k", []byte("data"))

	_, ok := c.Get(ctx, "k")
	fmt.Println("Fresh:", ok)

	mock.Add(time.Minute)
	_, ok = c.Get(ctx, "k")
	fmt.Println("After TTL:", ok)
	// Output:
	// Fresh: true
	// After TTL: false
}

func ExampleValidateKey() {
	fmt.Println(cache.ValidateKey("geofetch:forecast:abc"))
	fmt.Println(cache.ValidateKey(""))
	// Output:
	// <nil>
	// cache: key is invalid
}

func ExampleNoCachePolicy() {
	c := cache.NewMemoryCache(cache.NoCachePolicy())
	ctx := context.Background()

	_ = c.Put(ctx, "k", []byte("v"))
	fmt.Println("Entries:", c.Len())
	// Output:
	// Entries: 0
}
