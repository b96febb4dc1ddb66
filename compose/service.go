package compose

import (
	"go.uber.org/zap"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
	"github.com/wippyai/passthrough/resolve"
)

// QueryService passes a service query through to the halves' main targets,
// Primary's first. The first target that provides the service answers, and
// its handle carries the pair's identity.
func (p *Pair) QueryService(service, id capability.ID) (capability.Unknown, error) {
	return p.queryService(SidePrimary, service, id)
}

func (p *Pair) queryService(first Side, service, id capability.ID) (capability.Unknown, error) {
	if s := p.State(); !s.serviceable() {
		return nil, errors.Invalidated(errors.PhaseQuery, s.String())
	}

	controlling := p.Controlling()
	var lastErr error
	for _, side := range [2]Side{first, first.other()} {
		target := p.halves[side].Targets().Get(resolve.SlotTarget)
		if target == nil {
			continue
		}
		provider, ok := capability.As[capability.ServiceProvider](target)
		if !ok {
			continue
		}
		h, err := resolve.QueryService(controlling, provider, service, id)
		if err == nil {
			Logger().Debug("service passed through",
				zap.String("class", p.cfg.Name),
				zap.Stringer("side", side),
				zap.String("service", capability.Name(service)),
				zap.String("capability", capability.Name(id)))
			return h, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return resolve.QueryService(controlling, nil, service, id)
}

// QueryService is the delegating service query. An aggregated pair defers to
// the outer controller when it provides services; otherwise this half's
// target is asked before the other's.
func (b *Base) QueryService(service, id capability.ID) (capability.Unknown, error) {
	p := b.pair
	if p == nil {
		return nil, errDetached()
	}
	if p.outer != nil {
		if sp, ok := p.outer.(capability.ServiceProvider); ok {
			return sp.QueryService(service, id)
		}
	}
	return p.queryService(b.side, service, id)
}

var (
	_ capability.ServiceProvider = (*Pair)(nil)
	_ capability.ServiceProvider = (*Base)(nil)
)
