package system

import (
	"bytes"
	"log/slog"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hipert/internal/pert"
)

var _ = Describe("System assembly", func() {
	var (
		logs *bytes.Buffer
		sys  *System
	)

	BeforeEach(func() {
		logs = &bytes.Buffer{}
		var err error
		sys, err = New(WithLogger(slog.New(slog.NewTextHandler(logs, nil))))
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with a single gravity variable and no components", func() {
		It("has one variable at index 0 and zero bandwidth", func() {
			Expect(sys.SetGravity(&fakeGravity{deps: [][]int{{}}})).To(Succeed())

			vars := sys.Variables()
			Expect(vars).To(HaveLen(1))
			Expect(vars[0].Index).To(Equal(0))
			Expect(vars[0].Owner).To(Equal(pert.GravityOwner))
			upper, lower := sys.Bandwidth()
			Expect(upper).To(Equal(0))
			Expect(lower).To(Equal(0))
		})
	})

	Context("with two components coupled through placeholders", func() {
		BeforeEach(func() {
			Expect(sys.SetGravity(&fakeGravity{})).To(Succeed())
			c0 := &fakeComponent{id: 0, deps: [][]int{{int(pert.DP)}}, tinfo: pert.InfoTable{pert.DRho: {0}}}
			c1 := &fakeComponent{id: 1, deps: [][]int{{int(pert.DRho)}}, tinfo: pert.InfoTable{pert.DP: {0}}}
			Expect(sys.AddComponent(c0)).To(Succeed())
			Expect(sys.AddComponent(c1)).To(Succeed())
		})

		It("resolves each variable to the other's final index", func() {
			vars := sys.Variables()
			Expect(vars).To(HaveLen(2))
			Expect(vars[0].Deps).To(Equal([]int{vars[1].Index}))
			Expect(vars[1].Deps).To(Equal([]int{vars[0].Index}))
		})

		It("has bandwidth (1, 1)", func() {
			upper, lower := sys.Bandwidth()
			Expect(upper).To(Equal(1))
			Expect(lower).To(Equal(1))
		})
	})

	Context("when a component id is registered twice", func() {
		It("keeps the first and warns", func() {
			first := &fakeComponent{id: 3, deps: [][]int{{}}}
			Expect(sys.AddComponent(first)).To(Succeed())
			Expect(sys.AddComponent(&fakeComponent{id: 3})).To(MatchError(pert.ErrDuplicateComponent))

			Expect(sys.Components()).To(Equal([]int{3}))
			Expect(sys.Component(3)).To(BeIdenticalTo(first))
			Expect(logs.String()).To(ContainSubstring("component_duplicate"))
		})
	})

	Context("when a placeholder expands into itself", func() {
		It("rejects the table once the depth cap is reached", func() {
			g := &fakeGravity{
				deps: [][]int{{int(pert.Phi)}},
				info: pert.InfoTable{pert.Phi: {int(pert.Phi), 0}},
			}
			Expect(sys.SetGravity(g)).To(MatchError(pert.ErrDepthExceeded))
			Expect(sys.Assembled()).To(BeFalse())
		})

		It("rejects a mutual cycle between the two tables", func() {
			g := &fakeGravity{
				deps: [][]int{{int(pert.Psi)}},
				info: pert.InfoTable{pert.Psi: {int(pert.DRho)}},
			}
			Expect(sys.SetGravity(g)).To(Succeed())
			c := &fakeComponent{id: 0, deps: [][]int{{}}, tinfo: pert.InfoTable{pert.DRho: {int(pert.Psi)}}}
			Expect(sys.AddComponent(c)).To(MatchError(pert.ErrDepthExceeded))
		})
	})

	Context("when blocks are concatenated", func() {
		It("offsets the second block by the size of the first", func() {
			Expect(sys.SetGravity(&fakeGravity{})).To(Succeed())
			a := &fakeComponent{id: 0, deps: [][]int{{1}, {0}, {}}}
			b := &fakeComponent{id: 1, deps: [][]int{{1}, {0}}}
			Expect(sys.AddComponent(a)).To(Succeed())
			Expect(sys.AddComponent(b)).To(Succeed())

			vars := sys.Variables()
			Expect(vars).To(HaveLen(5))
			seen := map[int]bool{}
			for _, v := range vars {
				Expect(seen[v.Index]).To(BeFalse())
				seen[v.Index] = true
			}
			Expect(vars[3].Slot).To(Equal(3))
			Expect(vars[3].Owner).To(Equal(1))
			Expect(vars[3].Deps).To(Equal([]int{vars[4].Index}))
			Expect(vars[4].Deps).To(Equal([]int{vars[3].Index}))
		})
	})

	Context("when rebuilt with the same configuration", func() {
		It("produces an identical variable table", func() {
			Expect(sys.SetGravity(&fakeGravity{deps: [][]int{{int(pert.DRho)}, {0}}})).To(Succeed())
			for id := 0; id < 4; id++ {
				Expect(sys.AddComponent(chainComponent(id, 3+id))).To(Succeed())
			}
			first := sys.Variables()
			firstUpper, firstLower := sys.Bandwidth()

			Expect(sys.SetGauge(pert.GaugeConstCurv)).To(Succeed())
			Expect(sys.SetGauge(pert.GaugeSynchronous)).To(Succeed())

			Expect(sys.Variables()).To(Equal(first))
			upper, lower := sys.Bandwidth()
			Expect(upper).To(Equal(firstUpper))
			Expect(lower).To(Equal(firstLower))
		})
	})

	Context("with randomly coupled components", func() {
		It("keeps every dependency inside the bandwidth", func() {
			rng := rand.New(rand.NewSource(11))
			Expect(sys.SetGravity(&fakeGravity{
				deps: [][]int{{int(pert.DRho)}, {int(pert.DP)}},
				info: pert.InfoTable{pert.Phi: {0}, pert.Psi: {1}},
			})).To(Succeed())

			for id := 0; id < 6; id++ {
				n := 1 + rng.Intn(5)
				deps := make([][]int, n)
				for i := range deps {
					for k := 0; k < 2; k++ {
						deps[i] = append(deps[i], rng.Intn(n))
					}
					if rng.Intn(2) == 0 {
						deps[i] = append(deps[i], int(pert.Phi))
					} else {
						deps[i] = append(deps[i], int(pert.Psi))
					}
				}
				c := &fakeComponent{
					id:    id,
					deps:  deps,
					tinfo: pert.InfoTable{pert.DRho: {0}, pert.DP: {n - 1}},
				}
				Expect(sys.AddComponent(c)).To(Succeed())
			}

			upper, lower := sys.Bandwidth()
			limit := max(upper, lower)
			for _, v := range sys.Variables() {
				for _, d := range v.Deps {
					Expect(d - v.Index).To(BeNumerically("<=", upper))
					Expect(v.Index - d).To(BeNumerically("<=", lower))
					Expect(abs(d - v.Index)).To(BeNumerically("<=", limit))
				}
			}
		})
	})
})

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
