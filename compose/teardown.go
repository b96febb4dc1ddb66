package compose

import (
	"go.uber.org/zap"
)

// teardown runs once, either from the shared count reaching zero or from a
// failed construction. Hooks run companion first so the primary can still
// be reached from the companion's hook; targets are released only after
// both hooks have finished.
func (p *Pair) teardown() {
	if !p.tornDown.CompareAndSwap(false, true) {
		return
	}
	p.state.Store(int32(TearingDown))

	for _, side := range [2]Side{SideCompanion, SidePrimary} {
		if !p.constructed[side] {
			continue
		}
		if td, ok := p.halves[side].(TearDowner); ok {
			td.OnTearDown()
		}
	}

	released := 0
	for _, side := range [2]Side{SideCompanion, SidePrimary} {
		released += p.halves[side].Targets().ReleaseAll()
	}

	p.state.Store(int32(Destroyed))
	Logger().Debug("pair destroyed",
		zap.String("class", p.cfg.Name),
		zap.Int("targets_released", released))
}
