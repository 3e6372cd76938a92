package system

import (
	"fmt"

	"github.com/san-kum/hipert/internal/integrators"
	"github.com/san-kum/hipert/internal/pert"
)

// RHS writes dy = f(t, y) for the assembled system. The order of the
// sector calls is fixed: stress-energy of every component, gravity
// potentials, gravity derivatives, component derivatives. A sector error
// is returned as a *pert.StepError, which the integrators treat as a
// recoverable step failure.
func (s *System) RHS(t float64, y, dy []float64) error {
	if !s.assembled {
		return pert.ErrNotAssembled
	}
	if len(y) != len(s.vars) || len(dy) != len(s.vars) {
		return fmt.Errorf("%w: rhs got %d/%d, want %d", integrators.ErrDimensionMismatch, len(y), len(dy), len(s.vars))
	}
	clear(dy)

	bg := s.bg.Refresh(t)
	gv := pert.NewStateView(y, dy, s.gravPos)

	s.total.Zero()
	for i, id := range s.active {
		s.scratch.Zero()
		v := pert.NewStateView(y, dy, s.compPos[i])
		if err := s.slots[id].StressEnergy(bg, v, &s.scratch); err != nil {
			return &pert.StepError{Time: t, Owner: id, Wrapped: err}
		}
		if !s.scratch.IsValid() {
			return &pert.StepError{Time: t, Owner: id, Wrapped: fmt.Errorf("%w: non-finite stress-energy", pert.ErrStepFailure)}
		}
		s.total.Add(&s.scratch)
	}

	s.pot.Zero()
	if err := s.grav.Potentials(bg, gv, &s.total, &s.pot); err != nil {
		return &pert.StepError{Time: t, Owner: pert.GravityOwner, Wrapped: err}
	}
	if err := s.grav.Derivs(bg, gv, &s.total, &s.pot); err != nil {
		return &pert.StepError{Time: t, Owner: pert.GravityOwner, Wrapped: err}
	}

	for i, id := range s.active {
		v := pert.NewStateView(y, dy, s.compPos[i])
		if err := s.slots[id].Derivs(bg, v, &s.total, &s.pot); err != nil {
			return &pert.StepError{Time: t, Owner: id, Wrapped: err}
		}
	}
	return nil
}

// Potentials evaluates the source terms and metric potentials at (t, y)
// without writing derivatives.
func (s *System) Potentials(t float64, y []float64) (pert.TScalar, pert.GScalar, error) {
	if !s.assembled {
		return pert.TScalar{}, pert.GScalar{}, pert.ErrNotAssembled
	}
	dy := make([]float64, len(y))
	if err := s.RHS(t, y, dy); err != nil {
		return pert.TScalar{}, pert.GScalar{}, err
	}
	return s.total, s.pot, nil
}
