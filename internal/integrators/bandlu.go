package integrators

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errSingular = errors.New("singular iteration matrix")

// bandLU is an LU factorisation with partial pivoting that stays inside
// the band. The matrix is stored with Upper+Lower super-diagonals so
// that row interchanges have room for fill-in; the factorisation costs
// O(n·Lower·(Upper+Lower)).
type bandLU struct {
	a     *mat.BandDense
	piv   []int
	n     int
	lower int
	upper int // of the factors, Upper+Lower
}

func newBandLU(n int, b Band) *bandLU {
	upper := min(b.Upper+b.Lower, n-1)
	return &bandLU{
		a:     mat.NewBandDense(n, n, b.Lower, upper, nil),
		piv:   make([]int, n),
		n:     n,
		lower: b.Lower,
		upper: upper,
	}
}

// factorize overwrites the stored matrix with its factors.
func (f *bandLU) factorize() error {
	a, n := f.a, f.n
	for k := 0; k < n; k++ {
		last := min(n-1, k+f.lower)
		p := k
		for i := k + 1; i <= last; i++ {
			if math.Abs(a.At(i, k)) > math.Abs(a.At(p, k)) {
				p = i
			}
		}
		f.piv[k] = p
		pivot := a.At(p, k)
		if pivot == 0 || math.IsNaN(pivot) {
			return errSingular
		}

		right := min(n-1, k+f.upper)
		if p != k {
			for j := k; j <= right; j++ {
				vk, vp := a.At(k, j), a.At(p, j)
				a.SetBand(k, j, vp)
				a.SetBand(p, j, vk)
			}
		}
		for i := k + 1; i <= last; i++ {
			l := a.At(i, k) / pivot
			a.SetBand(i, k, l)
			if l == 0 {
				continue
			}
			for j := k + 1; j <= right; j++ {
				a.SetBand(i, j, a.At(i, j)-l*a.At(k, j))
			}
		}
	}
	return nil
}

// solve overwrites x with the solution of A x = x.
func (f *bandLU) solve(x []float64) {
	a, n := f.a, f.n
	for k := 0; k < n; k++ {
		if p := f.piv[k]; p != k {
			x[k], x[p] = x[p], x[k]
		}
		for i := k + 1; i <= min(n-1, k+f.lower); i++ {
			x[i] -= a.At(i, k) * x[k]
		}
	}
	for k := n - 1; k >= 0; k-- {
		x[k] /= a.At(k, k)
		for i := max(0, k-f.upper); i < k; i++ {
			x[i] -= a.At(i, k) * x[k]
		}
	}
}
