package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/hipert/internal/config"
	"github.com/san-kum/hipert/internal/integrators"
	"github.com/san-kum/hipert/internal/pert"
	"github.com/san-kum/hipert/internal/system"
)

// Sample is the state of the system at one output time.
type Sample struct {
	Index int
	T     float64
	Y     []float64
	T00   pert.TScalar
	G     pert.GScalar
}

// Observer is notified after every output sample.
type Observer interface {
	OnSample(s Sample)
}

type ObserverFunc func(s Sample)

func (f ObserverFunc) OnSample(s Sample) { f(s) }

type Result struct {
	Times   []float64
	States  [][]float64
	Phi     []float64
	Psi     []float64
	Stats   integrators.Stats
	Vars    []pert.Variable
	Samples int
}

// Series returns the trajectory of the variable at state position pos.
func (r *Result) Series(pos int) []float64 {
	out := make([]float64, len(r.States))
	for i, y := range r.States {
		out[i] = y[pos]
	}
	return out
}

type Experiment struct {
	cfg       *config.Config
	reg       *Registry
	log       *slog.Logger
	sys       *system.System
	observers []Observer
}

func New(cfg *config.Config, reg *Registry, log *slog.Logger) *Experiment {
	if reg == nil {
		reg = NewRegistry()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Experiment{cfg: cfg, reg: reg, log: log}
}

func (e *Experiment) AddObserver(o Observer) { e.observers = append(e.observers, o) }

// System returns the assembled system, nil before Setup.
func (e *Experiment) System() *system.System { return e.sys }

// Setup validates the configuration and assembles the system.
func (e *Experiment) Setup() error {
	sys, err := Build(e.cfg, e.reg, e.log)
	if err != nil {
		return err
	}
	e.sys = sys
	return nil
}

// Build assembles a system from cfg using the factories in reg.
func Build(cfg *config.Config, reg *Registry, log *slog.Logger) (*system.System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gauge, _ := pert.ParseGauge(cfg.Gauge)
	kind, _ := integrators.ParseKind(cfg.Integrator)

	bg, err := reg.GetBackground(cfg.Background)
	if err != nil {
		return nil, err
	}
	var ic system.InitialCondition = system.ZeroState{T0: cfg.Init.T0}
	if cfg.Init.Strategy == "uniform" {
		ic = system.Uniform{T0: cfg.Init.T0, Value: cfg.Init.Value}
	}

	sys, err := system.New(
		system.WithLogger(log),
		system.WithBackground(bg),
		system.WithInitialCondition(ic),
		system.WithMaxDepth(cfg.MaxDepth),
		system.WithTolerances(cfg.RelTol, cfg.AbsTol),
		system.WithBackend(kind),
	)
	if err != nil {
		return nil, err
	}
	if err := sys.SetGauge(gauge); err != nil {
		return nil, err
	}

	grav, err := reg.GetGravity(cfg.Gravity.Model, cfg.Gravity.Params)
	if err != nil {
		return nil, err
	}
	if err := sys.SetGravity(grav); err != nil {
		return nil, fmt.Errorf("gravity %s: %w", cfg.Gravity.Model, err)
	}
	for _, cc := range cfg.Components {
		c, err := reg.GetComponent(cc.Model, cc.ID, cc.Params)
		if err != nil {
			return nil, err
		}
		if err := sys.AddComponent(c); err != nil {
			return nil, fmt.Errorf("component %d (%s): %w", cc.ID, cc.Model, err)
		}
	}
	return sys, nil
}

// Run integrates from the initial time to t_end, sampling the state at
// evenly spaced output times.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.sys == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	if err := e.sys.Prepare(); err != nil {
		return nil, err
	}

	n := e.cfg.Samples
	result := &Result{
		Times:   make([]float64, 0, n+1),
		States:  make([][]float64, 0, n+1),
		Phi:     make([]float64, 0, n+1),
		Psi:     make([]float64, 0, n+1),
		Vars:    e.sys.Variables(),
		Samples: n,
	}

	t0 := e.sys.Time()
	if err := e.record(result, 0, t0); err != nil {
		return result, err
	}
	for i := 1; i <= n; i++ {
		tout := t0 + (e.cfg.TEnd-t0)*float64(i)/float64(n)
		t, err := e.sys.Evolve(ctx, tout)
		if err != nil {
			result.Stats = e.sys.Stats()
			return result, fmt.Errorf("evolve to t=%g: %w", tout, err)
		}
		if err := e.record(result, i, t); err != nil {
			return result, err
		}
	}
	result.Stats = e.sys.Stats()

	e.log.Info("integration_done",
		"backend", e.sys.Backend().String(),
		"t_end", e.sys.Time(),
		"steps", result.Stats.Steps,
		"rejected", result.Stats.Rejected,
		"rhs_evals", result.Stats.RHSEvals,
	)
	return result, nil
}

func (e *Experiment) record(r *Result, i int, t float64) error {
	y := e.sys.State()
	T, G, err := e.sys.Potentials(t, y)
	if err != nil {
		return err
	}
	r.Times = append(r.Times, t)
	r.States = append(r.States, y)
	r.Phi = append(r.Phi, G.Phi)
	r.Psi = append(r.Psi, G.Psi)

	s := Sample{Index: i, T: t, Y: y, T00: T, G: G}
	for _, o := range e.observers {
		o.OnSample(s)
	}
	return nil
}
