// Package system assembles the perturbation ODE system from a gravity
// sector and a set of components, and integrates it.
//
// Every structural change (gauge, gravity, component set) rebuilds the
// variable table from scratch: dependencies are padded to global
// positions, placeholders are expanded, and the variables are reordered
// to minimise the Jacobian bandwidth. The RHS and the integrator
// controller always work on the last successful rebuild.
package system

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/san-kum/hipert/internal/closure"
	"github.com/san-kum/hipert/internal/integrators"
	"github.com/san-kum/hipert/internal/pert"
)

const (
	DefaultRelTol = 1e-6
	DefaultAbsTol = 1e-10
)

type System struct {
	log     *slog.Logger
	bg      pert.Background
	initial InitialCondition

	gauge    pert.Gauge
	gaugeSet bool
	grav     pert.Gravity
	// slots is the registry, indexed by component id; active holds
	// the ids of the non-nil slots in ascending order.
	slots  []pert.Component
	active []int

	maxDepth  int
	assembled bool
	vars      []pert.Variable
	deps      [][]int // resolved, by slot
	order     orderings
	band      integrators.Band
	gravPos   []int
	compPos   [][]int // aligned with active

	total   pert.TScalar
	scratch pert.TScalar
	pot     pert.GScalar

	ctl controller
}

// Option configures a System.
type Option func(*System)

// WithLogger sets the structured logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *System) { s.log = l }
}

// WithBackground sets the background provider refreshed at every RHS call.
func WithBackground(bg pert.Background) Option {
	return func(s *System) { s.bg = bg }
}

// WithInitialCondition sets the strategy that seeds y and t0 in Prepare.
func WithInitialCondition(ic InitialCondition) Option {
	return func(s *System) { s.initial = ic }
}

// WithMaxDepth sets the placeholder expansion cap.
func WithMaxDepth(depth int) Option {
	return func(s *System) { s.maxDepth = depth }
}

func WithTolerances(reltol, abstol float64) Option {
	return func(s *System) {
		s.ctl.reltol = reltol
		s.ctl.abstol = abstol
	}
}

func WithBackend(k integrators.Kind) Option {
	return func(s *System) { s.ctl.kind = k }
}

// staticBackground is a non-expanding background with a = 1.
var staticBackground = pert.BackgroundFunc(func(t float64) pert.BG {
	return pert.BG{T: t, A: 1}
})

func New(opts ...Option) (*System, error) {
	s := &System{
		log:      slog.Default(),
		bg:       staticBackground,
		initial:  ZeroState{},
		gauge:    pert.GaugeSynchronous,
		maxDepth: closure.DefaultMaxDepth,
		ctl: controller{
			kind:   integrators.KindRK45,
			reltol: DefaultRelTol,
			abstol: DefaultAbsTol,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.ctl.kind.Valid() {
		return nil, fmt.Errorf("%w: %v", pert.ErrUnsupportedBackend, s.ctl.kind)
	}
	if err := checkTolerances(s.ctl.reltol, s.ctl.abstol); err != nil {
		return nil, err
	}
	if s.maxDepth < 1 {
		s.maxDepth = closure.DefaultMaxDepth
	}
	return s, nil
}

// AddComponent registers c under its id. A second component with the same
// id is dropped with a warning and ErrDuplicateComponent; the registry is
// left untouched.
func (s *System) AddComponent(c pert.Component) error {
	if c == nil {
		return fmt.Errorf("%w: nil component", pert.ErrInvalidComponentID)
	}
	if _, ok := c.(pert.Gravity); ok {
		return pert.ErrInvalidRole
	}
	id := c.ID()
	if id < 0 {
		return fmt.Errorf("%w: %d", pert.ErrInvalidComponentID, id)
	}
	if id < len(s.slots) && s.slots[id] != nil {
		s.log.Warn("component_duplicate", "id", id)
		return fmt.Errorf("%w: %d", pert.ErrDuplicateComponent, id)
	}

	if id >= len(s.slots) {
		s.slots = append(s.slots, make([]pert.Component, id+1-len(s.slots))...)
	}
	s.slots[id] = c
	s.active = s.active[:0]
	for i, slot := range s.slots {
		if slot != nil {
			s.active = append(s.active, i)
		}
	}
	c.SetGauge(s.gauge)
	return s.rebuild()
}

// SetGravity replaces the gravity sector; nil clears it.
func (s *System) SetGravity(g pert.Gravity) error {
	s.grav = g
	if g != nil {
		g.SetGauge(s.gauge)
	}
	return s.rebuild()
}

// SetGauge propagates g to every sector and rebuilds. Setting the current
// gauge again is a no-op.
func (s *System) SetGauge(g pert.Gauge) error {
	if !g.Valid() {
		return fmt.Errorf("%w: %v", pert.ErrInvalidGauge, g)
	}
	if s.gaugeSet && g == s.gauge {
		return nil
	}
	s.gauge = g
	s.gaugeSet = true
	if s.grav != nil {
		s.grav.SetGauge(g)
	}
	for _, id := range s.active {
		s.slots[id].SetGauge(g)
	}
	return s.rebuild()
}

func (s *System) Gauge() pert.Gauge     { return s.gauge }
func (s *System) Gravity() pert.Gravity { return s.grav }
func (s *System) Assembled() bool       { return s.assembled }
func (s *System) Len() int              { return len(s.vars) }
func (s *System) MaxDepth() int         { return s.maxDepth }

// Component returns the component registered under id, or nil.
func (s *System) Component(id int) pert.Component {
	if id < 0 || id >= len(s.slots) {
		return nil
	}
	return s.slots[id]
}

// Components returns the active component ids in registry order.
func (s *System) Components() []int {
	return slices.Clone(s.active)
}

// Variables returns a copy of the variable table in slot order.
func (s *System) Variables() []pert.Variable {
	out := make([]pert.Variable, len(s.vars))
	for i, v := range s.vars {
		out[i] = v.Clone()
	}
	return out
}

// Bandwidth returns the upper and lower bandwidth of the current ordering.
func (s *System) Bandwidth() (upper, lower int) {
	return s.band.Upper, s.band.Lower
}

// OriginalBandwidth returns the bandwidth of the table before reordering.
func (s *System) OriginalBandwidth() (upper, lower int) {
	return s.order.original.Upper, s.order.original.Lower
}

// Positions returns the state vector positions of owner's variables in
// local order, or nil if owner contributes none.
func (s *System) Positions(owner int) []int {
	if owner == pert.GravityOwner {
		return slices.Clone(s.gravPos)
	}
	if i, ok := slices.BinarySearch(s.active, owner); ok && i < len(s.compPos) {
		return slices.Clone(s.compPos[i])
	}
	return nil
}
