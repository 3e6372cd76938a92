package models

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/hipert/internal/integrators"
	"github.com/san-kum/hipert/internal/pert"
	"github.com/san-kum/hipert/internal/system"
)

func TestMetricGauges(t *testing.T) {
	tests := []struct {
		gauge  pert.Gauge
		n      int
		dsigma bool
	}{
		{pert.GaugeSynchronous, 2, true},
		{pert.GaugeNewtonian, 1, false},
		{pert.GaugeConstCurv, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.gauge.String(), func(t *testing.T) {
			m := NewMetric()
			m.SetGauge(tt.gauge)
			if m.NDynVar() != tt.n {
				t.Errorf("NDynVar() = %d, want %d", m.NDynVar(), tt.n)
			}
			_, ok := m.Info()[pert.DSigma]
			if ok != tt.dsigma {
				t.Errorf("dsigma expansion present = %v, want %v", ok, tt.dsigma)
			}
			for i := 0; i < m.NDynVar(); i++ {
				for _, d := range m.Deps(i) {
					if d >= m.NDynVar() {
						t.Errorf("var %d depends on %d outside the block", i, d)
					}
				}
			}
		})
	}
}

func TestFluidStressEnergy(t *testing.T) {
	f := NewFluid(0)
	f.W = 1.0 / 3.0
	f.Cs2 = 1.0 / 3.0
	f.Rho = 2

	y := []float64{0.3, 0.6}
	var T pert.TScalar
	if err := f.StressEnergy(pert.BG{A: 1}, pert.NewStateView(y, make([]float64, 2), []int{0, 1}), &T); err != nil {
		t.Fatal(err)
	}
	if math.Abs(T.DRho-0.6) > 1e-12 {
		t.Errorf("DRho = %v, want 0.6", T.DRho)
	}
	if math.Abs(T.RhoPPV-1.6) > 1e-12 {
		t.Errorf("RhoPPV = %v, want 1.6", T.RhoPPV)
	}
	if math.Abs(T.DP-0.2) > 1e-12 {
		t.Errorf("DP = %v, want 0.2", T.DP)
	}
}

func TestFluidAtRest(t *testing.T) {
	f := NewFluid(0)
	y := []float64{0, 0}
	dy := []float64{1, 1}
	var G pert.GScalar
	if err := f.Derivs(pert.BG{A: 1}, pert.NewStateView(y, dy, []int{0, 1}), &pert.TScalar{}, &G); err != nil {
		t.Fatal(err)
	}
	if dy[0] != 0 || dy[1] != 0 {
		t.Errorf("unperturbed fluid evolves: %v", dy)
	}
}

func TestHierarchyDeps(t *testing.T) {
	h := NewHierarchy(1, 5)
	if h.NDynVar() != 6 {
		t.Fatalf("NDynVar() = %d, want 6", h.NDynVar())
	}
	for l := 0; l < h.NDynVar(); l++ {
		for _, d := range h.Deps(l) {
			if d >= 0 && (d < l-1 || d > l+1) {
				t.Errorf("multipole %d depends on %d", l, d)
			}
		}
	}
	if NewHierarchy(0, 0).LMax != 2 {
		t.Error("LMax below 2 not raised")
	}
}

func TestHierarchyStreaming(t *testing.T) {
	h := NewHierarchy(0, 3)
	h.Damping = 0
	y := []float64{0, 1, 0, 0}
	dy := make([]float64, 4)
	if err := h.Derivs(pert.BG{A: 1}, pert.NewStateView(y, dy, []int{0, 1, 2, 3}), &pert.TScalar{}, &pert.GScalar{}); err != nil {
		t.Fatal(err)
	}
	// F1 feeds F0 downward and F2 upward
	if dy[0] != -1 || math.Abs(dy[2]-2.0/5.0) > 1e-12 {
		t.Errorf("dy = %v", dy)
	}
}

func TestExpansion(t *testing.T) {
	e := NewExpansion(0.5)
	bg := e.Refresh(2)
	if math.Abs(bg.A-math.E) > 1e-12 || bg.H != 0.5 || bg.T != 2 {
		t.Errorf("Refresh(2) = %+v", bg)
	}
	if (Static{}).Refresh(3).A != 1 {
		t.Error("static background expands")
	}
}

func TestModelsAssembleAndIntegrate(t *testing.T) {
	for _, gauge := range []pert.Gauge{pert.GaugeSynchronous, pert.GaugeNewtonian} {
		for k := integrators.Kind(0); k < integrators.NumKinds; k++ {
			t.Run(gauge.String()+"/"+k.String(), func(t *testing.T) {
				s, err := system.New(
					system.WithBackend(k),
					system.WithBackground(NewExpansion(0.1)),
					system.WithInitialCondition(system.Uniform{Value: 1e-3}),
				)
				if err != nil {
					t.Fatal(err)
				}
				if err := s.SetGauge(gauge); err != nil {
					t.Fatal(err)
				}
				if err := s.SetGravity(NewMetric()); err != nil {
					t.Fatal(err)
				}
				if err := s.AddComponent(NewFluid(0)); err != nil {
					t.Fatal(err)
				}
				if err := s.AddComponent(NewHierarchy(1, 8)); err != nil {
					t.Fatal(err)
				}

				want := NewMetric()
				want.SetGauge(gauge)
				if s.Len() != want.NDynVar()+2+9 {
					t.Errorf("Len() = %d", s.Len())
				}
				if err := s.Prepare(); err != nil {
					t.Fatal(err)
				}
				if _, err := s.Evolve(context.Background(), 2); err != nil {
					t.Fatal(err)
				}
				for i, v := range s.State() {
					if math.IsNaN(v) || math.IsInf(v, 0) {
						t.Errorf("y[%d] = %v", i, v)
					}
				}
			})
		}
	}
}

// TestDeclaredCoupling checks, by perturbing each state entry, that every
// derivative that moves is covered by the assembled dependency pattern.
func TestDeclaredCoupling(t *testing.T) {
	const h = 1e-3
	for _, gauge := range []pert.Gauge{pert.GaugeSynchronous, pert.GaugeNewtonian, pert.GaugeConstCurv} {
		t.Run(gauge.String(), func(t *testing.T) {
			s, err := system.New(system.WithBackground(NewExpansion(0.1)))
			if err != nil {
				t.Fatal(err)
			}
			if err := s.SetGauge(gauge); err != nil {
				t.Fatal(err)
			}
			if err := s.SetGravity(NewMetric()); err != nil {
				t.Fatal(err)
			}
			if err := s.AddComponent(NewFluid(0)); err != nil {
				t.Fatal(err)
			}
			if err := s.AddComponent(NewHierarchy(1, 4)); err != nil {
				t.Fatal(err)
			}

			n := s.Len()
			declared := make([]map[int]bool, n)
			for _, v := range s.Variables() {
				declared[v.Index] = make(map[int]bool)
				for _, d := range v.Deps {
					declared[v.Index][d] = true
				}
			}
			upper, lower := s.Bandwidth()

			y := make([]float64, n)
			for i := range y {
				y[i] = 0.1 * float64(i+1)
			}
			f0 := make([]float64, n)
			if err := s.RHS(0.5, y, f0); err != nil {
				t.Fatal(err)
			}
			f1 := make([]float64, n)
			for j := 0; j < n; j++ {
				y[j] += h
				if err := s.RHS(0.5, y, f1); err != nil {
					t.Fatal(err)
				}
				y[j] -= h
				for i := 0; i < n; i++ {
					if math.Abs(f1[i]-f0[i])/h < 1e-8 {
						continue
					}
					if !declared[i][j] {
						t.Errorf("f[%d] depends on y[%d] but it is not declared", i, j)
					}
					if j-i > upper || i-j > lower {
						t.Errorf("f[%d] depends on y[%d] outside band (%d, %d)", i, j, upper, lower)
					}
				}
			}
		})
	}
}

func TestMetricPsiCarriesStress(t *testing.T) {
	m := NewMetric()
	m.SetGauge(pert.GaugeNewtonian)
	psi := m.Info()[pert.Psi]
	found := false
	for _, d := range psi {
		if d == int(pert.DPi) {
			found = true
		}
	}
	if !found {
		t.Errorf("psi expands to %v, want the anisotropic stress included", psi)
	}

	var G pert.GScalar
	T := pert.TScalar{DPi: 2}
	y := []float64{1}
	if err := m.Potentials(pert.BG{A: 1}, pert.NewStateView(y, make([]float64, 1), []int{0}), &T, &G); err != nil {
		t.Fatal(err)
	}
	if G.Psi == G.Phi {
		t.Error("psi does not respond to the anisotropic stress")
	}
}
