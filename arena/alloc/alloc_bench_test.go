package alloc

import (
	"math/rand"
	"testing"
)

func BenchmarkAllocateRelease(b *testing.B) {
	a, _ := New(make([]byte, 1<<20), nil)
	b.ReportAllocs()
	for b.Loop() {
		h, err := a.Allocate(256)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Release(&h); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResizeGrowInPlace(b *testing.B) {
	a, _ := New(make([]byte, 1<<20), nil)
	for b.Loop() {
		h, _ := a.Allocate(64)
		_ = a.Resize(&h, 512)
		_ = a.Release(&h)
	}
}

func BenchmarkCompactFragmented(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	for range b.N {
		b.StopTimer()
		a, _ := New(make([]byte, 1<<16), nil)
		var hs []Handle
		for {
			h, err := a.Allocate(16 + rng.Intn(64))
			if err != nil {
				break
			}
			hs = append(hs, h)
		}
		for i := 0; i < len(hs); i += 2 {
			_ = a.Release(&hs[i])
		}
		b.StartTimer()
		a.Compact()
	}
}
