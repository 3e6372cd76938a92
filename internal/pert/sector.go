package pert

// Sector is the capability set shared by gravity and components.
type Sector interface {
	// NDynVar is the number of dynamical variables under the current gauge.
	NDynVar() int
	// Deps returns the local dependency list of variable i. The caller
	// owns the returned slice.
	Deps(i int) Deps
	SetGauge(g Gauge)
}

// Gravity is the metric sector.
type Gravity interface {
	Sector
	// Info expands the metric placeholders (phi, dsigma, psi, dotpsi).
	Info() InfoTable
	Potentials(bg BG, v StateView, T *TScalar, G *GScalar) error
	Derivs(bg BG, v StateView, T *TScalar, G *GScalar) error
}

// Component is a matter or radiation species.
type Component interface {
	Sector
	ID() int
	// TInfo expands the stress-energy placeholders with local indices.
	TInfo() InfoTable
	StressEnergy(bg BG, v StateView, T *TScalar) error
	Derivs(bg BG, v StateView, T *TScalar, G *GScalar) error
}

// Background refreshes the homogeneous solution. It may be called at
// arbitrary, non-monotonic times.
type Background interface {
	Refresh(t float64) BG
}

// BackgroundFunc adapts a function to Background.
type BackgroundFunc func(t float64) BG

func (f BackgroundFunc) Refresh(t float64) BG { return f(t) }
