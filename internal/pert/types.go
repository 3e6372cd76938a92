package pert

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// GravityOwner is the owner of the variables contributed by the gravity sector.
const GravityOwner = -1

type Gauge int

const (
	GaugeSynchronous Gauge = iota
	GaugeNewtonian
	GaugeConstCurv
)

var gaugeNames = [...]string{"synchronous", "newtonian", "const-curv"}

func (g Gauge) Valid() bool {
	return g >= GaugeSynchronous && g <= GaugeConstCurv
}

func (g Gauge) String() string {
	if !g.Valid() {
		return fmt.Sprintf("gauge(%d)", int(g))
	}
	return gaugeNames[g]
}

func ParseGauge(s string) (Gauge, error) {
	for i, name := range gaugeNames {
		if strings.EqualFold(s, name) {
			return Gauge(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGauge, s)
}

// Placeholder is a symbolic dependency. Codes are negative so they never
// collide with variable indices.
type Placeholder int

const (
	Phi Placeholder = -1 - iota
	DSigma
	Psi
	DotPsi
	DRho
	RhoPPV
	DP
	DPi
)

var placeholderNames = map[Placeholder]string{
	Phi:    "phi",
	DSigma: "dsigma",
	Psi:    "psi",
	DotPsi: "dotpsi",
	DRho:   "drho",
	RhoPPV: "rhoppv",
	DP:     "dp",
	DPi:    "dPi",
}

// IsGravity reports whether p is expanded by the gravity info table.
func (p Placeholder) IsGravity() bool {
	return p <= Phi && p >= DotPsi
}

// IsStressEnergy reports whether p is expanded by the aggregated
// component info table.
func (p Placeholder) IsStressEnergy() bool {
	return p <= DRho && p >= DPi
}

func (p Placeholder) Valid() bool {
	return p.IsGravity() || p.IsStressEnergy()
}

func (p Placeholder) String() string {
	if name, ok := placeholderNames[p]; ok {
		return name
	}
	return fmt.Sprintf("placeholder(%d)", int(p))
}

// Deps is a dependency list: non-negative entries are variable indices,
// negative entries are placeholder codes.
type Deps []int

func (d Deps) Clone() Deps {
	return slices.Clone(d)
}

// AddPad shifts every concrete entry by pad, leaving placeholders untouched.
func (d Deps) AddPad(pad int) {
	if pad == 0 {
		return
	}
	for i, v := range d {
		if v >= 0 {
			d[i] = v + pad
		}
	}
}

// Concrete reports whether d holds no placeholder.
func (d Deps) Concrete() bool {
	for _, v := range d {
		if v < 0 {
			return false
		}
	}
	return true
}

// InfoTable maps each placeholder to the entries it expands to.
type InfoTable map[Placeholder]Deps

func (t InfoTable) Clone() InfoTable {
	c := make(InfoTable, len(t))
	for p, d := range t {
		c[p] = d.Clone()
	}
	return c
}

func (t InfoTable) AddPad(pad int) {
	for _, d := range t {
		d.AddPad(pad)
	}
}

// Append concatenates the expansions of other onto t.
func (t InfoTable) Append(other InfoTable) {
	for p, d := range other {
		t[p] = append(t[p], d...)
	}
}

// Variable is one scalar degree of freedom of the assembled system.
type Variable struct {
	Owner int // GravityOwner or component id
	Local int // position inside the owner's block
	Slot  int // global position before reordering
	Index int // position in the state vector
	Deps  []int
}

func (v Variable) Clone() Variable {
	v.Deps = slices.Clone(v.Deps)
	return v
}

// BG is the background snapshot handed to the sectors at time T.
type BG struct {
	T float64
	A float64 // scale factor
	H float64 // expansion rate
}

// TScalar accumulates the scalar stress-energy perturbations.
type TScalar struct {
	DRho   float64
	RhoPPV float64
	DP     float64
	DPi    float64
}

func (ts *TScalar) Zero() {
	*ts = TScalar{}
}

func (ts *TScalar) Add(o *TScalar) {
	ts.DRho += o.DRho
	ts.RhoPPV += o.RhoPPV
	ts.DP += o.DP
	ts.DPi += o.DPi
}

func (ts *TScalar) IsValid() bool {
	for _, v := range [...]float64{ts.DRho, ts.RhoPPV, ts.DP, ts.DPi} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// GScalar holds the scalar metric potentials.
type GScalar struct {
	Phi    float64
	DSigma float64
	Psi    float64
	DotPsi float64
}

func (gs *GScalar) Zero() {
	*gs = GScalar{}
}

// StateView exposes one sector's variables inside y and dy.
type StateView struct {
	Y   []float64
	DY  []float64
	pos []int
}

func NewStateView(y, dy []float64, pos []int) StateView {
	return StateView{Y: y, DY: dy, pos: pos}
}

func (v StateView) Len() int                  { return len(v.pos) }
func (v StateView) At(j int) float64          { return v.Y[v.pos[j]] }
func (v StateView) Deriv(j int) float64       { return v.DY[v.pos[j]] }
func (v StateView) SetDeriv(j int, d float64) { v.DY[v.pos[j]] = d }

// Pos returns the state vector position of local variable j.
func (v StateView) Pos(j int) int { return v.pos[j] }
