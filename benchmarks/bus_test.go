package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/gangway/pkg/gangway/cache"
	"github.com/randalmurphal/gangway/pkg/gangway/service"
)

// BenchmarkBusAdvance measures ticking a resource with no watchers.
func BenchmarkBusAdvance(b *testing.B) {
	bus := service.NewBus()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Advance("users", nil)
	}
}

// BenchmarkBusAdvance_Watchers measures fan-out to attached watchers.
func BenchmarkBusAdvance_Watchers(b *testing.B) {
	bus := service.NewBus()
	for i := 0; i < 16; i++ {
		_, stop := bus.Watch("users")
		defer stop()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Advance("users", nil)
	}
}

// BenchmarkAtomWarmGet measures the synchronous warm-read path.
func BenchmarkAtomWarmGet(b *testing.B) {
	atom := cache.New(func(_ context.Context) (string, error) {
		return "value", nil
	})
	defer atom.Close()

	ctx := context.Background()
	if _, err := atom.Get(ctx); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = atom.Get(ctx)
	}
}
