// Package metrics provides scalar diagnostics computed from the output
// samples of an experiment run.
package metrics

import (
	"math"

	"github.com/san-kum/hipert/internal/experiment"
)

// Metric accumulates one scalar over the samples of a run.
type Metric interface {
	experiment.Observer
	Name() string
	Value() float64
	Reset()
}

// Defaults returns the diagnostics reported after an integration.
func Defaults() []Metric {
	return []Metric{NewStability(1e3), NewPhiDrift(), NewGrowth()}
}

// Stability is the fraction of samples whose state stays inside
// [-threshold, threshold] in every component.
type Stability struct {
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) OnSample(smp experiment.Sample) {
	s.samples++
	for _, v := range smp.Y {
		if math.IsNaN(v) || math.Abs(v) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// PhiDrift is the largest relative departure of the potential phi from
// its value at the first sample.
type PhiDrift struct {
	initial  float64
	maxDrift float64
	samples  int
}

func NewPhiDrift() *PhiDrift { return &PhiDrift{} }

func (p *PhiDrift) Name() string { return "phi_drift" }

func (p *PhiDrift) OnSample(s experiment.Sample) {
	phi := s.G.Phi
	if p.samples == 0 {
		p.initial = phi
	}
	p.samples++

	if p.initial != 0 {
		drift := math.Abs(phi-p.initial) / math.Abs(p.initial)
		p.maxDrift = math.Max(p.maxDrift, drift)
	}
}

func (p *PhiDrift) Value() float64 { return p.maxDrift }

func (p *PhiDrift) Reset() {
	p.initial = 0
	p.maxDrift = 0
	p.samples = 0
}

// Growth is the mean logarithmic growth rate of the state norm between
// the first and the last sample.
type Growth struct {
	t0, n0 float64
	t1, n1 float64
	samples int
}

func NewGrowth() *Growth { return &Growth{} }

func (g *Growth) Name() string { return "growth_rate" }

func (g *Growth) OnSample(s experiment.Sample) {
	n := norm(s.Y)
	if g.samples == 0 {
		g.t0, g.n0 = s.T, n
	}
	g.t1, g.n1 = s.T, n
	g.samples++
}

func (g *Growth) Value() float64 {
	if g.samples < 2 || g.t1 == g.t0 || g.n0 == 0 || g.n1 == 0 {
		return 0
	}
	return math.Log(g.n1/g.n0) / (g.t1 - g.t0)
}

func (g *Growth) Reset() { *g = Growth{} }

func norm(y []float64) float64 {
	var sum float64
	for _, v := range y {
		sum += v * v
	}
	return math.Sqrt(sum)
}
