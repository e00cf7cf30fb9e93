package generator

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/sasquatch989/mockingj/pkg/cache"
	"github.com/sasquatch989/mockingj/pkg/resolver"
)

func BenchmarkGenerate(b *testing.B) {
	g, id, err := resolver.ResolveSchema([]byte(kitchenSink))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.Run("uncached", func(b *testing.B) {
		gen := New(DefaultConfig())
		b.ReportAllocs()
		for i := 0; b.Loop(); i++ {
			if _, err := gen.Generate(ctx, g, id, Scope{Scenario: strconv.Itoa(i)}); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("cached", func(b *testing.B) {
		gen := New(DefaultConfig(), WithStore(cache.New(time.Hour)))
		b.ReportAllocs()
		for b.Loop() {
			if _, err := gen.Generate(ctx, g, id, Scope{}); err != nil {
				b.Fatal(err)
			}
		}
	})
}
