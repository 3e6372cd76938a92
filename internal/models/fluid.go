package models

import "github.com/san-kum/hipert/internal/pert"

// Fluid is a perfect fluid with density contrast delta and velocity
// divergence theta.
type Fluid struct {
	id      int
	W       float64 // equation of state
	Cs2     float64 // sound speed squared
	K       float64 // wavenumber
	Rho     float64 // background density weight
	Damping float64
}

func NewFluid(id int) *Fluid {
	return &Fluid{
		id:      id,
		W:       0,
		Cs2:     0,
		K:       1,
		Rho:     1,
		Damping: 0,
	}
}

func (f *Fluid) ID() int             { return f.id }
func (f *Fluid) NDynVar() int        { return 2 }
func (f *Fluid) SetGauge(pert.Gauge) {}

func (f *Fluid) Deps(i int) pert.Deps {
	switch i {
	case 0:
		return pert.Deps{0, 1, int(pert.DotPsi)}
	case 1:
		return pert.Deps{0, 1, int(pert.Psi)}
	}
	return nil
}

func (f *Fluid) TInfo() pert.InfoTable {
	return pert.InfoTable{
		pert.DRho:   {0},
		pert.RhoPPV: {1},
		pert.DP:     {0},
	}
}

func (f *Fluid) StressEnergy(bg pert.BG, v pert.StateView, T *pert.TScalar) error {
	delta, theta := v.At(0), v.At(1)
	T.DRho += f.Rho * delta
	T.RhoPPV += f.Rho * (1 + f.W) * theta
	T.DP += f.Rho * f.Cs2 * delta
	return nil
}

func (f *Fluid) Derivs(bg pert.BG, v pert.StateView, T *pert.TScalar, G *pert.GScalar) error {
	delta, theta := v.At(0), v.At(1)
	k2 := f.K * f.K
	v.SetDeriv(0, -(1+f.W)*(theta-3*G.DotPsi))
	v.SetDeriv(1, -(bg.H*(1-3*f.W)+f.Damping)*theta+k2*f.Cs2/(1+f.W)*delta+k2*G.Psi)
	return nil
}
