package integrators

import (
	"context"
	"testing"
)

func benchmarkBackend(b *testing.B, k Kind, n int) {
	be, _ := New(k)
	y := make([]float64, n)
	for i := range y {
		y[i] = 1
	}
	opts := Options{RelTol: 1e-6, AbsTol: uniform(n, 1e-10), Band: Band{Upper: 1, Lower: 1}}
	if err := be.Init(chain, 0, y, opts); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := be.ReInit(0, y); err != nil {
			b.Fatal(err)
		}
		if _, err := be.Evolve(context.Background(), 1, y); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRK45Chain(b *testing.B)   { benchmarkBackend(b, KindRK45, 64) }
func BenchmarkBDFChain(b *testing.B)    { benchmarkBackend(b, KindBDF, 64) }
func BenchmarkBDFChainBig(b *testing.B) { benchmarkBackend(b, KindBDF, 1024) }
