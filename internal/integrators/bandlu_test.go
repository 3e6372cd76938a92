package integrators

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestBandLU_MatchesDense(t *testing.T) {
	tests := []struct {
		n    int
		band Band
	}{
		{1, Band{}},
		{6, Band{}},
		{8, Band{Upper: 1, Lower: 1}},
		{10, Band{Upper: 3, Lower: 1}},
		{10, Band{Upper: 0, Lower: 2}},
		{12, Band{Upper: 2, Lower: 4}},
		{3, Band{Upper: 2, Lower: 2}},
	}
	rng := rand.New(rand.NewSource(3))
	for _, tt := range tests {
		lu := newBandLU(tt.n, tt.band)
		dense := mat.NewDense(tt.n, tt.n, nil)
		for i := 0; i < tt.n; i++ {
			for j := max(0, i-tt.band.Lower); j <= min(tt.n-1, i+tt.band.Upper); j++ {
				// small diagonal so partial pivoting has to swap rows
				v := rng.Float64()*2 - 1
				if i == j {
					v *= 0.01
				}
				lu.a.SetBand(i, j, v)
				dense.Set(i, j, v)
			}
		}
		rhs := make([]float64, tt.n)
		for i := range rhs {
			rhs[i] = rng.Float64()
		}

		var want mat.VecDense
		if err := want.SolveVec(dense, mat.NewVecDense(tt.n, append([]float64(nil), rhs...))); err != nil {
			t.Fatalf("n=%d band=%+v: dense solve failed: %v", tt.n, tt.band, err)
		}
		if err := lu.factorize(); err != nil {
			t.Fatalf("n=%d band=%+v: factorize failed: %v", tt.n, tt.band, err)
		}
		got := append([]float64(nil), rhs...)
		lu.solve(got)
		for i := range got {
			if math.Abs(got[i]-want.AtVec(i)) > 1e-8*math.Max(1, math.Abs(want.AtVec(i))) {
				t.Errorf("n=%d band=%+v: x[%d] = %v, want %v", tt.n, tt.band, i, got[i], want.AtVec(i))
			}
		}
	}
}

func TestBandLU_Singular(t *testing.T) {
	lu := newBandLU(3, Band{Upper: 1, Lower: 1})
	lu.a.SetBand(0, 0, 1)
	lu.a.SetBand(2, 2, 1)
	if err := lu.factorize(); err != errSingular {
		t.Errorf("expected errSingular, got %v", err)
	}
}
