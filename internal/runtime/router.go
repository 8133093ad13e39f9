package runtime

import "github.com/KyroDB/kyroql/internal/ir"

// Router selects the execution path for an envelope. Custom routers can
// override the default Vision-aligned policy (spec §4.5).
type Router interface {
	Route(env ir.Envelope) ExecutionPath
}

// DefaultRouter implements the policy every KyroQL deployment uses unless
// overridden: RESOLVE(simple) and Assert(force) and RETRACT stay on Reflex
// so bounded, low-latency callers are never queued behind deliberative
// work; everything else (aggregate/temporal resolves, non-force asserts,
// define_pattern, derive, simulate, monitor) goes to Reflection.
type DefaultRouter struct{}

func (DefaultRouter) Route(env ir.Envelope) ExecutionPath {
	switch env.Op {
	case ir.OpResolve:
		if env.Resolve != nil && env.Resolve.Mode == ir.ResolveSimple {
			return Reflex
		}
		return Reflection
	case ir.OpAssert:
		if env.Assert != nil && env.Assert.ConsistencyMode == ir.ModeForce {
			return Reflex
		}
		return Reflection
	case ir.OpRetract:
		return Reflex
	case ir.OpDefinePattern, ir.OpDerive, ir.OpSimulate, ir.OpMonitor:
		return Reflection
	default:
		return Reflection
	}
}
