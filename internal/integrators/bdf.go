package integrators

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errNewton = errors.New("newton iteration did not converge")

// BDF is the implicit stiff solver: variable-step backward
// differentiation of order 2, started with one order-1 step, with a
// modified Newton corrector. The iteration matrix I - gamma*J is banded;
// J is built by difference quotients that perturb Upper+Lower+1
// interleaved column groups at once, and the iteration matrix is
// factored without leaving the band.
type BDF struct {
	safety    float64
	minScale  float64
	maxScale  float64
	maxNewton int
	newtonTol float64

	f     RHS
	opts  Options
	n     int
	t     float64
	h     float64
	hInit float64
	hPrev float64
	prev  bool
	init  bool

	y, yPrev, fy       []float64
	ypred, ycor, fpred []float64
	base, resid, delta []float64
	w, ytmp, ftmp, inc []float64

	jac   *mat.BandDense
	lu    *bandLU
	stats Stats
}

func NewBDF() *BDF {
	return &BDF{
		safety:    0.9,
		minScale:  0.2,
		maxScale:  2.0,
		maxNewton: 4,
		newtonTol: 0.03,
	}
}

func (b *BDF) Name() string { return KindBDF.String() }

func (b *BDF) Init(f RHS, t0 float64, y0 []float64, opts Options) error {
	n := len(y0)
	if err := validateOptions(n, opts); err != nil {
		return err
	}
	opts.Band.Upper = clampBand(opts.Band.Upper, n)
	opts.Band.Lower = clampBand(opts.Band.Lower, n)

	b.f = f
	b.opts = opts
	b.n = n
	for _, v := range []*[]float64{
		&b.y, &b.yPrev, &b.fy, &b.ypred, &b.ycor, &b.fpred,
		&b.base, &b.resid, &b.delta, &b.w, &b.ytmp, &b.ftmp, &b.inc,
	} {
		*v = make([]float64, n)
	}
	if n > 0 {
		b.jac = mat.NewBandDense(n, n, opts.Band.Lower, opts.Band.Upper, nil)
		b.lu = newBandLU(n, opts.Band)
	}
	b.hInit = opts.InitStep
	b.init = true
	return b.ReInit(t0, y0)
}

func clampBand(m, n int) int {
	return max(0, min(m, n-1))
}

func (b *BDF) ReInit(t0 float64, y0 []float64) error {
	if !b.init {
		return ErrNotInitialized
	}
	if len(y0) != b.n {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(y0), b.n)
	}
	copy(b.y, y0)
	b.t = t0
	b.h = b.hInit
	b.hPrev = 0
	b.prev = false
	b.stats = Stats{}
	return b.eval(t0, b.y, b.fy)
}

func (b *BDF) SetInitStep(h float64) {
	b.hInit = math.Abs(h)
	b.h = b.hInit
}

func (b *BDF) Time() float64 { return b.t }
func (b *BDF) Stats() Stats  { return b.stats }

// Band returns the bandwidth of the iteration matrix.
func (b *BDF) Band() Band { return b.opts.Band }

func (b *BDF) eval(t float64, y, dy []float64) error {
	b.stats.RHSEvals++
	return b.f(t, y, dy)
}

func (b *BDF) Evolve(ctx context.Context, tout float64, y []float64) (float64, error) {
	if !b.init {
		return b.t, ErrNotInitialized
	}
	if len(y) != b.n {
		return b.t, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(y), b.n)
	}
	// accept rotates the buffers, so b.y is read on return
	defer func() { copy(y, b.y) }()

	if b.n == 0 {
		b.t = tout
		return b.t, nil
	}

	dir := 1.0
	if tout < b.t {
		dir = -1.0
	}
	if b.h <= 0 {
		errWeights(b.w, b.y, &b.opts)
		b.h = initialStep(b.y, b.fy, b.w, math.Abs(tout-b.t))
	}

	steps, failures := 0, 0
	for (tout-b.t)*dir > 0 {
		if err := checkContext(ctx); err != nil {
			return b.t, err
		}
		if b.opts.MaxSteps > 0 && steps >= b.opts.MaxSteps {
			return b.t, fmt.Errorf("%w: %d steps", ErrTooManySteps, steps)
		}

		remaining := math.Abs(tout - b.t)
		if remaining <= minStep(b.t, tout) {
			break
		}
		h := math.Min(b.h, remaining)
		if b.prev {
			h = math.Min(h, b.maxScale*math.Abs(b.hPrev))
		}
		if h <= minStep(b.t, tout) {
			return b.t, fmt.Errorf("%w: h=%g at t=%g", ErrStepTooSmall, h, b.t)
		}

		errNorm, order, err := b.try(dir * h)
		if err != nil {
			failures++
			b.stats.Failures++
			if failures > maxFailures {
				return b.t, fmt.Errorf("%w: %w", ErrTooManyFailures, err)
			}
			b.h = h * 0.25
			continue
		}
		failures = 0

		exp := -1.0 / float64(order+1)
		if errNorm > 1 {
			b.stats.Rejected++
			b.h = h * math.Max(b.minScale, b.safety*math.Pow(errNorm, exp))
			continue
		}

		b.accept(dir * h)
		if h == remaining {
			b.t = tout
		}
		steps++
		b.stats.Steps++

		if errNorm > 0 {
			b.h = h * math.Min(b.maxScale, b.safety*math.Pow(errNorm, exp))
		} else {
			b.h = h * b.maxScale
		}
	}
	b.t = tout
	return b.t, nil
}

// try solves one implicit step of size dt and returns the scaled local
// error estimate and the order used.
func (b *BDF) try(dt float64) (float64, int, error) {
	n := b.n
	tn := b.t + dt

	order, beta, lte := 1, 1.0, 0.5
	if b.prev {
		order, lte = 2, 0.4
		hp := b.hPrev
		om := dt / hp
		beta = (1 + om) / (1 + 2*om)
		c1 := (1 + om) * (1 + om) / (1 + 2*om)
		c2 := -om * om / (1 + 2*om)
		for i := 0; i < n; i++ {
			b.base[i] = c1*b.y[i] + c2*b.yPrev[i]
			curv := (b.yPrev[i] - b.y[i] + b.fy[i]*hp) / (hp * hp)
			b.ypred[i] = b.y[i] + b.fy[i]*dt + curv*dt*dt
		}
	} else {
		for i := 0; i < n; i++ {
			b.base[i] = b.y[i]
			b.ypred[i] = b.y[i] + dt*b.fy[i]
		}
	}
	gamma := beta * dt

	errWeights(b.w, b.y, &b.opts)
	if err := b.eval(tn, b.ypred, b.fpred); err != nil {
		return 0, order, err
	}
	if err := b.jacobian(tn, b.ypred, b.fpred); err != nil {
		return 0, order, err
	}
	b.buildIteration(gamma)
	if err := b.lu.factorize(); err != nil {
		return 0, order, err
	}

	copy(b.ycor, b.ypred)
	copy(b.ftmp, b.fpred)
	converged := false
	prevNorm := 0.0
	for m := 0; m < b.maxNewton; m++ {
		if m > 0 {
			if err := b.eval(tn, b.ycor, b.ftmp); err != nil {
				return 0, order, err
			}
		}
		for i := 0; i < n; i++ {
			b.delta[i] = -(b.ycor[i] - b.base[i] - gamma*b.ftmp[i])
		}
		b.lu.solve(b.delta)
		for i := 0; i < n; i++ {
			b.ycor[i] += b.delta[i]
		}

		dn := wrms(b.delta, b.w)
		if math.IsNaN(dn) || math.IsInf(dn, 0) {
			return 0, order, fmt.Errorf("%w: non-finite correction", errNewton)
		}
		if dn <= b.newtonTol {
			converged = true
			break
		}
		if m > 0 && dn > 2*prevNorm {
			break
		}
		prevNorm = dn
	}
	if !converged {
		return 0, order, fmt.Errorf("%w at t=%g", errNewton, tn)
	}

	for i := 0; i < n; i++ {
		b.resid[i] = b.ycor[i] - b.ypred[i]
	}
	return lte * wrms(b.resid, b.w), order, nil
}

func (b *BDF) accept(dt float64) {
	gamma := dt
	if b.prev {
		om := dt / b.hPrev
		gamma = dt * (1 + om) / (1 + 2*om)
	}
	for i := 0; i < b.n; i++ {
		// f at the new point from the converged corrector equation
		b.fy[i] = (b.ycor[i] - b.base[i]) / gamma
	}
	b.yPrev, b.y, b.ycor = b.y, b.ycor, b.yPrev
	b.hPrev = dt
	b.prev = true
	b.t += dt
}

// jacobian fills b.jac with difference quotients of f around (t, y),
// where fy = f(t, y).
func (b *BDF) jacobian(t float64, y, fy []float64) error {
	const srur = 1.4901161193847656e-08 // sqrt(machine epsilon)
	n, mu, ml := b.n, b.opts.Band.Upper, b.opts.Band.Lower
	width := ml + mu + 1
	b.stats.JacEvals++

	copy(b.ytmp, y)
	for g := 0; g < width && g < n; g++ {
		for j := g; j < n; j += width {
			inc := srur * math.Max(math.Abs(y[j]), 1/b.w[j])
			if inc == 0 || math.IsInf(inc, 0) || math.IsNaN(inc) {
				inc = srur
			}
			b.inc[j] = inc
			b.ytmp[j] += inc
		}
		if err := b.eval(t, b.ytmp, b.ftmp); err != nil {
			return err
		}
		for j := g; j < n; j += width {
			b.ytmp[j] = y[j]
			for i := max(0, j-mu); i <= min(n-1, j+ml); i++ {
				b.jac.SetBand(i, j, (b.ftmp[i]-fy[i])/b.inc[j])
			}
		}
	}
	return nil
}

// buildIteration writes I - gamma*J into the factor storage, clearing
// the fill-in diagonals left by the previous factorisation.
func (b *BDF) buildIteration(gamma float64) {
	n, mu, ml := b.n, b.opts.Band.Upper, b.opts.Band.Lower
	a := b.lu.a
	for j := 0; j < n; j++ {
		for i := max(0, j-mu-ml); i <= min(n-1, j+ml); i++ {
			v := 0.0
			if j-i <= mu {
				v = -gamma * b.jac.At(i, j)
			}
			if i == j {
				v++
			}
			a.SetBand(i, j, v)
		}
	}
}
