package integrators

import (
	"context"
	"fmt"
	"math"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

const maxFailures = 10

// RK45 is the adaptive Dormand-Prince 5(4) pair with first-same-as-last
// reuse of the final stage. The embedded order is fixed at 5; the band
// option is accepted and ignored since no linear system is solved.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	f     RHS
	opts  Options
	n     int
	t     float64
	h     float64
	hInit float64
	init  bool

	y, ynew, tmp, w []float64
	k               [7][]float64
	stats           Stats
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Name() string { return KindRK45.String() }

func (r *RK45) Init(f RHS, t0 float64, y0 []float64, opts Options) error {
	n := len(y0)
	if err := validateOptions(n, opts); err != nil {
		return err
	}
	r.f = f
	r.opts = opts
	r.n = n
	r.y = make([]float64, n)
	r.ynew = make([]float64, n)
	r.tmp = make([]float64, n)
	r.w = make([]float64, n)
	for i := range r.k {
		r.k[i] = make([]float64, n)
	}
	r.hInit = opts.InitStep
	r.init = true
	return r.ReInit(t0, y0)
}

func (r *RK45) ReInit(t0 float64, y0 []float64) error {
	if !r.init {
		return ErrNotInitialized
	}
	if len(y0) != r.n {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(y0), r.n)
	}
	copy(r.y, y0)
	r.t = t0
	r.h = r.hInit
	r.stats = Stats{}
	return r.eval(t0, r.y, r.k[0])
}

func (r *RK45) SetInitStep(h float64) {
	r.hInit = math.Abs(h)
	r.h = r.hInit
}

func (r *RK45) Time() float64 { return r.t }
func (r *RK45) Stats() Stats  { return r.stats }

func (r *RK45) eval(t float64, y, dy []float64) error {
	r.stats.RHSEvals++
	return r.f(t, y, dy)
}

func (r *RK45) Evolve(ctx context.Context, tout float64, y []float64) (float64, error) {
	if !r.init {
		return r.t, ErrNotInitialized
	}
	if len(y) != r.n {
		return r.t, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(y), r.n)
	}
	defer copy(y, r.y)

	if r.n == 0 {
		r.t = tout
		return r.t, nil
	}

	dir := 1.0
	if tout < r.t {
		dir = -1.0
	}
	if r.h <= 0 {
		errWeights(r.w, r.y, &r.opts)
		r.h = initialStep(r.y, r.k[0], r.w, math.Abs(tout-r.t))
	}

	steps, failures := 0, 0
	for (tout-r.t)*dir > 0 {
		if err := checkContext(ctx); err != nil {
			return r.t, err
		}
		if r.opts.MaxSteps > 0 && steps >= r.opts.MaxSteps {
			return r.t, fmt.Errorf("%w: %d steps", ErrTooManySteps, steps)
		}

		remaining := math.Abs(tout - r.t)
		if remaining <= minStep(r.t, tout) {
			break
		}
		h := math.Min(r.h, remaining)
		if h <= minStep(r.t, tout) {
			return r.t, fmt.Errorf("%w: h=%g at t=%g", ErrStepTooSmall, h, r.t)
		}

		errRatio, err := r.try(dir * h)
		if err != nil {
			failures++
			r.stats.Failures++
			if failures > maxFailures {
				return r.t, fmt.Errorf("%w: %w", ErrTooManyFailures, err)
			}
			r.h = h * 0.25
			continue
		}
		failures = 0

		if errRatio > 1 {
			r.stats.Rejected++
			r.h = h * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
			continue
		}

		if h == remaining {
			r.t = tout
		} else {
			r.t += dir * h
		}
		copy(r.y, r.ynew)
		r.k[0], r.k[6] = r.k[6], r.k[0]
		steps++
		r.stats.Steps++

		if errRatio > 0 {
			r.h = h * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
		} else {
			r.h = h * r.maxScale
		}
	}
	r.t = tout
	return r.t, nil
}

// try attempts one step of size dt from (r.t, r.y); k[0] already holds
// f(r.t, r.y). It returns the scaled error norm of the embedded pair.
func (r *RK45) try(dt float64) (float64, error) {
	x, t, n := r.y, r.t, r.n
	k1, k2, k3, k4, k5, k6, k7 := r.k[0], r.k[1], r.k[2], r.k[3], r.k[4], r.k[5], r.k[6]
	tmp := r.tmp

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*b21*k1[i]
	}
	if err := r.eval(t+a2*dt, tmp, k2); err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	if err := r.eval(t+a3*dt, tmp, k3); err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	if err := r.eval(t+a4*dt, tmp, k4); err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	if err := r.eval(t+a5*dt, tmp, k5); err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	if err := r.eval(t+dt, tmp, k6); err != nil {
		return 0, err
	}

	xNew := r.ynew
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}
	if err := r.eval(t+dt, xNew, k7); err != nil {
		return 0, err
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := r.opts.RelTol*math.Max(math.Abs(x[i]), math.Abs(xNew[i])) + r.opts.AbsTol[i]
		e := errEst / math.Max(scale, tinyScale)
		sum += e * e
	}
	errRatio := math.Sqrt(sum / float64(n))
	if math.IsNaN(errRatio) {
		return 0, fmt.Errorf("non-finite error estimate at t=%g", t)
	}
	return errRatio, nil
}
