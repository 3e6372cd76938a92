package system

import "github.com/san-kum/hipert/internal/pert"

// InitialCondition seeds the state vector before integration starts and
// returns the initial time. y is indexed by state position (Variable.Index).
type InitialCondition interface {
	Seed(vars []pert.Variable, y []float64) (float64, error)
}

// InitialConditionFunc adapts a function to InitialCondition.
type InitialConditionFunc func(vars []pert.Variable, y []float64) (float64, error)

func (f InitialConditionFunc) Seed(vars []pert.Variable, y []float64) (float64, error) {
	return f(vars, y)
}

// ZeroState starts every variable at zero.
type ZeroState struct {
	T0 float64
}

func (z ZeroState) Seed(_ []pert.Variable, y []float64) (float64, error) {
	clear(y)
	return z.T0, nil
}

// Uniform starts every variable at Value.
type Uniform struct {
	T0    float64
	Value float64
}

func (u Uniform) Seed(_ []pert.Variable, y []float64) (float64, error) {
	for i := range y {
		y[i] = u.Value
	}
	return u.T0, nil
}
