package models

import "github.com/san-kum/hipert/internal/pert"

// Hierarchy is a free-streaming species truncated at multipole LMax.
// Multipole l couples to l-1 and l+1, so the block is tridiagonal.
type Hierarchy struct {
	id      int
	LMax    int
	K       float64
	Rho     float64
	Damping float64
}

func NewHierarchy(id, lmax int) *Hierarchy {
	return &Hierarchy{id: id, LMax: max(lmax, 2), K: 1, Rho: 1, Damping: 0.05}
}

func (h *Hierarchy) ID() int             { return h.id }
func (h *Hierarchy) NDynVar() int        { return h.LMax + 1 }
func (h *Hierarchy) SetGauge(pert.Gauge) {}

func (h *Hierarchy) Deps(l int) pert.Deps {
	d := pert.Deps{l}
	if l > 0 {
		d = append(d, l-1)
	}
	if l < h.LMax {
		d = append(d, l+1)
	}
	switch l {
	case 0:
		d = append(d, int(pert.DotPsi))
	case 1:
		d = append(d, int(pert.Psi))
	}
	return d
}

func (h *Hierarchy) TInfo() pert.InfoTable {
	return pert.InfoTable{
		pert.DRho:   {0},
		pert.RhoPPV: {1},
		pert.DP:     {0},
		pert.DPi:    {2},
	}
}

func (h *Hierarchy) StressEnergy(bg pert.BG, v pert.StateView, T *pert.TScalar) error {
	T.DRho += h.Rho * v.At(0)
	T.RhoPPV += h.Rho * v.At(1) * 4.0 / 3.0
	T.DP += h.Rho * v.At(0) / 3.0
	T.DPi += h.Rho * v.At(2)
	return nil
}

func (h *Hierarchy) Derivs(bg pert.BG, v pert.StateView, T *pert.TScalar, G *pert.GScalar) error {
	for l := 0; l <= h.LMax; l++ {
		fl := float64(l)
		d := -h.Damping * v.At(l)
		if l > 0 {
			d += h.K * fl / (2*fl + 1) * v.At(l-1)
		}
		if l < h.LMax {
			d -= h.K * (fl + 1) / (2*fl + 1) * v.At(l+1)
		}
		switch l {
		case 0:
			d += 4 * G.DotPsi
		case 1:
			d += 4 * h.K / 3 * G.Psi
		}
		v.SetDeriv(l, d)
	}
	return nil
}
