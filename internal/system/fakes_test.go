package system

import (
	"github.com/san-kum/hipert/internal/pert"
)

// fakeGravity is a configurable metric sector: phi is the total density
// contrast and every variable decays at rate plus coupling*phi.
type fakeGravity struct {
	deps     [][]int
	info     pert.InfoTable
	rate     float64
	coupling float64
	gauge    pert.Gauge
	gauges   int
	calls    *[]string
}

func (g *fakeGravity) NDynVar() int { return len(g.deps) }

func (g *fakeGravity) Deps(i int) pert.Deps { return pert.Deps(g.deps[i]).Clone() }

func (g *fakeGravity) SetGauge(gauge pert.Gauge) {
	g.gauge = gauge
	g.gauges++
}

func (g *fakeGravity) Info() pert.InfoTable { return g.info }

func (g *fakeGravity) Potentials(bg pert.BG, v pert.StateView, T *pert.TScalar, G *pert.GScalar) error {
	record(g.calls, "potentials")
	G.Phi = T.DRho
	return nil
}

func (g *fakeGravity) Derivs(bg pert.BG, v pert.StateView, T *pert.TScalar, G *pert.GScalar) error {
	record(g.calls, "gravity")
	for j := 0; j < v.Len(); j++ {
		v.SetDeriv(j, -g.rate*v.At(j)+g.coupling*G.Phi)
	}
	return nil
}

// fakeComponent contributes its variables' sum to the density contrast
// and decays at rate.
type fakeComponent struct {
	id    int
	deps  [][]int
	tinfo pert.InfoTable
	rate  float64
	fail  func(t float64) error
	gauge pert.Gauge
	calls *[]string
}

func (c *fakeComponent) ID() int                   { return c.id }
func (c *fakeComponent) NDynVar() int              { return len(c.deps) }
func (c *fakeComponent) Deps(i int) pert.Deps      { return pert.Deps(c.deps[i]).Clone() }
func (c *fakeComponent) SetGauge(gauge pert.Gauge) { c.gauge = gauge }
func (c *fakeComponent) TInfo() pert.InfoTable     { return c.tinfo }

func (c *fakeComponent) StressEnergy(bg pert.BG, v pert.StateView, T *pert.TScalar) error {
	record(c.calls, "stress")
	if c.fail != nil {
		if err := c.fail(bg.T); err != nil {
			return err
		}
	}
	for j := 0; j < v.Len(); j++ {
		T.DRho += v.At(j)
	}
	return nil
}

func (c *fakeComponent) Derivs(bg pert.BG, v pert.StateView, T *pert.TScalar, G *pert.GScalar) error {
	record(c.calls, "component")
	for j := 0; j < v.Len(); j++ {
		v.SetDeriv(j, -c.rate*v.At(j))
	}
	return nil
}

// hybrid claims both roles.
type hybrid struct {
	*fakeGravity
}

func (h hybrid) ID() int               { return 0 }
func (h hybrid) TInfo() pert.InfoTable { return nil }
func (h hybrid) StressEnergy(bg pert.BG, v pert.StateView, T *pert.TScalar) error {
	return nil
}

func record(calls *[]string, name string) {
	if calls != nil {
		*calls = append(*calls, name)
	}
}

// chainComponent returns a component with n variables, each depending on
// its neighbours, exporting its first variable as the density contrast.
func chainComponent(id, n int) *fakeComponent {
	deps := make([][]int, n)
	for i := range deps {
		if i > 0 {
			deps[i] = append(deps[i], i-1)
		}
		if i < n-1 {
			deps[i] = append(deps[i], i+1)
		}
		deps[i] = append(deps[i], int(pert.Phi))
	}
	return &fakeComponent{
		id:    id,
		deps:  deps,
		tinfo: pert.InfoTable{pert.DRho: {0}},
		rate:  1,
	}
}
