// Package pert defines the data model shared by every stage of a
// first-order perturbation system.
//
// A system is made of sectors that each own a block of scalar ODE
// variables:
//
//   - [Gravity]: the metric sector, always placed first in the state vector
//   - [Component]: a matter or radiation species identified by a small id
//   - [Background]: the homogeneous solution refreshed at every RHS call
//
// Sectors describe their couplings symbolically. A dependency entry is
// either a concrete (sector-local) variable index or a negative
// [Placeholder] code standing for an abstract quantity such as the
// curvature potential or the density contrast. The gravity sector and
// the components publish [InfoTable]s that expand placeholders into
// further entries; the closure package resolves them to concrete
// indices.
//
// # State access
//
// After assembly the variables are reordered to shrink the Jacobian
// bandwidth, so sectors never index the state vector directly. Each
// call receives a [StateView] that maps the sector's local variable j
// to its position in y and dy.
package pert
