package integrators

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/hipert/internal/pert"
)

var (
	ErrNotInitialized    = errors.New("integrators: backend not initialized")
	ErrDimensionMismatch = errors.New("integrators: state length does not match backend size")
	ErrStepTooSmall      = errors.New("integrators: step size below minimum")
	ErrTooManyFailures   = errors.New("integrators: too many consecutive step failures")
	ErrTooManySteps      = errors.New("integrators: step limit reached")
	ErrBadTolerance      = errors.New("integrators: invalid tolerance")
)

// RHS evaluates dy = f(t, y). A non-nil error marks the evaluation as a
// recoverable failure: the backend shrinks the step and retries.
type RHS func(t float64, y, dy []float64) error

// Band is the half-bandwidth pair of the Jacobian.
type Band struct {
	Upper int
	Lower int
}

type Options struct {
	RelTol float64
	// AbsTol is read at every step, so callers may update it in place.
	AbsTol []float64
	// MaxSteps bounds the steps of one Evolve call; 0 means unbounded.
	MaxSteps int
	Band     Band
	// InitStep is the first trial step; 0 lets the backend estimate it.
	InitStep float64
}

type Stats struct {
	Steps    int
	Rejected int
	Failures int
	RHSEvals int
	JacEvals int
}

// Backend is an ODE solver that owns its workspace between calls.
type Backend interface {
	Name() string
	Init(f RHS, t0 float64, y0 []float64, opts Options) error
	// ReInit restarts at (t0, y0) keeping the workspace and options.
	ReInit(t0 float64, y0 []float64) error
	SetInitStep(h float64)
	// Evolve advances to tout and writes the solution into y.
	Evolve(ctx context.Context, tout float64, y []float64) (float64, error)
	Time() float64
	Stats() Stats
}

type Kind int

const (
	// KindBDF is the implicit stiff solver.
	KindBDF Kind = iota
	// KindRK45 is the adaptive embedded solver.
	KindRK45
	NumKinds
)

var kindNames = [...]string{"bdf", "rk45"}

func (k Kind) Valid() bool { return k >= 0 && k < NumKinds }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", pert.ErrUnsupportedBackend, s)
}

// New allocates a fresh backend of the given kind.
func New(k Kind) (Backend, error) {
	switch k {
	case KindBDF:
		return NewBDF(), nil
	case KindRK45:
		return NewRK45(), nil
	default:
		return nil, fmt.Errorf("%w: %v", pert.ErrUnsupportedBackend, k)
	}
}

func validateOptions(n int, opts Options) error {
	if !(opts.RelTol > 0 && opts.RelTol <= 1) {
		return fmt.Errorf("%w: reltol %g not in (0, 1]", ErrBadTolerance, opts.RelTol)
	}
	if len(opts.AbsTol) != n {
		return fmt.Errorf("%w: %d abstol entries for %d variables", ErrDimensionMismatch, len(opts.AbsTol), n)
	}
	for _, a := range opts.AbsTol {
		if a < 0 || math.IsNaN(a) {
			return fmt.Errorf("%w: abstol %g", ErrBadTolerance, a)
		}
	}
	if opts.MaxSteps < 0 {
		return fmt.Errorf("%w: negative step limit", ErrBadTolerance)
	}
	return nil
}

// tinyScale floors the error scale of a variable with zero tolerance.
const tinyScale = 1e-300

// errWeights fills w with 1/(reltol*|y|+abstol).
func errWeights(w, y []float64, opts *Options) {
	for i := range w {
		scale := opts.RelTol*math.Abs(y[i]) + opts.AbsTol[i]
		w[i] = 1 / math.Max(scale, tinyScale)
	}
}

// wrms is the weighted root mean square norm used by both backends.
func wrms(v, w []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for i := range v {
		x := v[i] * w[i]
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(v)))
}

// minStep is the smallest step distinguishable at t.
func minStep(t, tout float64) float64 {
	const eps = 2.220446049250313e-16
	return 16 * eps * math.Max(math.Abs(t), math.Abs(tout))
}

// initialStep estimates a first step from the scaled sizes of y and f.
func initialStep(y, f, w []float64, span float64) float64 {
	h := 0.01 * span
	d0, d1 := wrms(y, w), wrms(f, w)
	if d0 > 1e-5 && d1 > 1e-5 {
		h = math.Min(h, 0.01*d0/d1)
	}
	return h
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
