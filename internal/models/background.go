package models

import (
	"math"

	"github.com/san-kum/hipert/internal/pert"
)

// Expansion is an exponentially expanding background, a = A0 exp(H0 t).
type Expansion struct {
	A0 float64
	H0 float64
}

func NewExpansion(h0 float64) *Expansion {
	return &Expansion{A0: 1, H0: h0}
}

func (e *Expansion) Refresh(t float64) pert.BG {
	return pert.BG{T: t, A: e.A0 * math.Exp(e.H0*t), H: e.H0}
}

// Static is a non-expanding background with a = 1.
type Static struct{}

func (Static) Refresh(t float64) pert.BG { return pert.BG{T: t, A: 1} }
