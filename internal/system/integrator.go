package system

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/hipert/internal/integrators"
	"github.com/san-kum/hipert/internal/pert"
)

// controller owns the integrator backends and the state vectors. Only
// the backend of the selected kind is kept; each is either uninitialized
// or initialized at the current size.
type controller struct {
	kind   integrators.Kind
	reltol float64
	abstol float64

	backends [integrators.NumKinds]integrators.Backend
	ready    [integrators.NumKinds]bool
	size     int
	band     integrators.Band
	y        []float64
	abs      []float64
	prepared bool
}

// reset drops the backends so the next prepare initializes from scratch.
func (c *controller) reset() {
	c.backends = [integrators.NumKinds]integrators.Backend{}
	c.ready = [integrators.NumKinds]bool{}
	c.prepared = false
}

// free releases the backends and the state vectors.
func (c *controller) free() {
	c.reset()
	c.y = nil
	c.abs = nil
	c.size = 0
}

func checkTolerances(reltol, abstol float64) error {
	if !(reltol > 0 && reltol <= 1) {
		return fmt.Errorf("%w: reltol %g not in (0, 1]", integrators.ErrBadTolerance, reltol)
	}
	if !(abstol >= 0) {
		return fmt.Errorf("%w: abstol %g", integrators.ErrBadTolerance, abstol)
	}
	return nil
}

func (s *System) Backend() integrators.Kind { return s.ctl.kind }
func (s *System) RelTol() float64           { return s.ctl.reltol }
func (s *System) AbsTol() float64           { return s.ctl.abstol }

// SetBackend selects the integrator used by the next Prepare.
func (s *System) SetBackend(k integrators.Kind) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %v", pert.ErrUnsupportedBackend, k)
	}
	if k == s.ctl.kind {
		return nil
	}
	s.ctl.backends[s.ctl.kind] = nil
	s.ctl.ready[s.ctl.kind] = false
	s.ctl.kind = k
	s.ctl.prepared = false
	return nil
}

func (s *System) SetRelTol(reltol float64) error {
	if err := checkTolerances(reltol, s.ctl.abstol); err != nil {
		return err
	}
	if reltol != s.ctl.reltol {
		s.ctl.reltol = reltol
		s.ctl.reset()
	}
	return nil
}

func (s *System) SetAbsTol(abstol float64) error {
	if err := checkTolerances(s.ctl.reltol, abstol); err != nil {
		return err
	}
	if abstol != s.ctl.abstol {
		s.ctl.abstol = abstol
		s.ctl.reset()
	}
	return nil
}

// Prepare seeds the state with the initial condition and readies the
// selected backend at the initial time.
func (s *System) Prepare() error {
	if s.grav == nil {
		return pert.ErrNoGravity
	}
	if !s.assembled {
		return pert.ErrNotAssembled
	}

	n := len(s.vars)
	if n != s.ctl.size || s.ctl.y == nil {
		s.ctl.free()
		s.ctl.y = make([]float64, n)
		s.ctl.abs = make([]float64, n)
		s.ctl.size = n
	}

	t0, err := s.initial.Seed(s.vars, s.ctl.y)
	if err != nil {
		return fmt.Errorf("initial condition: %w", err)
	}
	return s.prepareIntegrator(t0)
}

func (s *System) prepareIntegrator(t0 float64) error {
	c := &s.ctl
	k := c.kind
	for i := range c.abs {
		c.abs[i] = c.abstol
	}
	h0 := math.Abs(t0) * c.reltol

	// the banded solver workspace is sized at init
	if c.ready[k] && c.band != s.band {
		c.reset()
	}

	reinit := c.ready[k]
	if reinit {
		b := c.backends[k]
		b.SetInitStep(h0)
		if err := b.ReInit(t0, c.y); err != nil {
			c.ready[k] = false
			return fmt.Errorf("reinit %v: %w", k, err)
		}
	} else {
		b, err := integrators.New(k)
		if err != nil {
			return err
		}
		opts := integrators.Options{
			RelTol:   c.reltol,
			AbsTol:   c.abs,
			MaxSteps: 0,
			Band:     s.band,
			InitStep: h0,
		}
		if err := b.Init(s.RHS, t0, c.y, opts); err != nil {
			return fmt.Errorf("init %v: %w", k, err)
		}
		c.backends[k] = b
		c.ready[k] = true
		c.band = s.band
	}
	c.prepared = true

	s.log.Debug("integrator_prepared",
		"backend", k.String(),
		"size", c.size,
		"t0", t0,
		"h0", h0,
		"reinit", reinit,
	)
	return nil
}

// Evolve advances the prepared backend to tout and returns the time reached.
func (s *System) Evolve(ctx context.Context, tout float64) (float64, error) {
	if !s.ctl.prepared {
		return s.Time(), fmt.Errorf("%w: call Prepare first", integrators.ErrNotInitialized)
	}
	return s.ctl.backends[s.ctl.kind].Evolve(ctx, tout, s.ctl.y)
}

// Time returns the time of the prepared backend.
func (s *System) Time() float64 {
	if b := s.ctl.backends[s.ctl.kind]; b != nil && s.ctl.ready[s.ctl.kind] {
		return b.Time()
	}
	return 0
}

// State returns a copy of the state vector, indexed by state position.
func (s *System) State() []float64 {
	return slices.Clone(s.ctl.y)
}

// Stats returns the counters of the selected backend.
func (s *System) Stats() integrators.Stats {
	if b := s.ctl.backends[s.ctl.kind]; b != nil {
		return b.Stats()
	}
	return integrators.Stats{}
}

// Close frees the backends and state vectors.
func (s *System) Close() error {
	s.ctl.free()
	return nil
}
