package models

import "github.com/san-kum/hipert/internal/pert"

// Metric is a toy scalar metric sector. In the synchronous gauge it
// carries two variables (h, eta); in the other gauges a single potential
// phi sourced directly by the density contrast.
type Metric struct {
	Kappa   float64 // coupling to the total source
	Damping float64
	gauge   pert.Gauge
}

func NewMetric() *Metric {
	return &Metric{Kappa: 0.5, Damping: 0.1}
}

func (m *Metric) SetGauge(g pert.Gauge) { m.gauge = g }

func (m *Metric) NDynVar() int {
	if m.gauge == pert.GaugeSynchronous {
		return 2
	}
	return 1
}

func (m *Metric) Deps(i int) pert.Deps {
	if m.gauge == pert.GaugeSynchronous {
		switch i {
		case 0:
			return pert.Deps{0, 1, int(pert.DRho)}
		case 1:
			return pert.Deps{0, 1, int(pert.RhoPPV)}
		}
		return nil
	}
	return pert.Deps{0, int(pert.DRho), int(pert.RhoPPV)}
}

func (m *Metric) Info() pert.InfoTable {
	if m.gauge == pert.GaugeSynchronous {
		return pert.InfoTable{
			pert.Phi:    {1},
			pert.DSigma: {0},
			pert.Psi:    {1},
			pert.DotPsi: {0, 1, int(pert.RhoPPV)},
		}
	}
	// psi carries the anisotropic stress outside the synchronous gauge
	t := pert.InfoTable{
		pert.Phi:    {0},
		pert.Psi:    {0, int(pert.DPi)},
		pert.DotPsi: {0, int(pert.RhoPPV)},
	}
	if m.gauge == pert.GaugeConstCurv {
		t[pert.DSigma] = pert.Deps{0}
	}
	return t
}

func (m *Metric) Potentials(bg pert.BG, v pert.StateView, T *pert.TScalar, G *pert.GScalar) error {
	a2 := bg.A * bg.A
	if m.gauge == pert.GaugeSynchronous {
		h, eta := v.At(0), v.At(1)
		G.Phi = eta
		G.Psi = eta
		G.DSigma = h
		G.DotPsi = -m.Damping*eta + 0.5*h - m.Kappa*a2*T.RhoPPV
		return nil
	}
	phi := v.At(0)
	G.Phi = phi
	G.Psi = phi + m.Kappa*a2*T.DPi
	G.DotPsi = -(bg.H+m.Damping)*phi - m.Kappa*a2*T.RhoPPV
	if m.gauge == pert.GaugeConstCurv {
		G.DSigma = phi
	}
	return nil
}

func (m *Metric) Derivs(bg pert.BG, v pert.StateView, T *pert.TScalar, G *pert.GScalar) error {
	a2 := bg.A * bg.A
	if m.gauge == pert.GaugeSynchronous {
		h := v.At(0)
		v.SetDeriv(0, -(bg.H+m.Damping)*h+m.Kappa*a2*T.DRho)
		v.SetDeriv(1, G.DotPsi)
		return nil
	}
	v.SetDeriv(0, G.DotPsi-m.Kappa*a2*T.DRho)
	return nil
}
