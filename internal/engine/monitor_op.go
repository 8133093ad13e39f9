package engine

import (
	"fmt"

	"github.com/KyroDB/kyroql/internal/ir"
)

// ErrMonitorUnavailable is returned by op=monitor when the engine was
// built without a MonitorSystem (e.g. a simulation-scoped Engine).
var ErrMonitorUnavailable = fmt.Errorf("engine: monitor subsystem not wired")

// executeMonitor registers payload.Trigger with the MONITOR subsystem and
// returns the resulting registration and stream handle. Grounded on
// execute_monitor in original_source/src/engine/mod.rs, simplified to
// take an already-built monitor.Trigger instead of deriving one from a
// raw threshold Value (triggers_from_threshold_value was not present in
// the retrieval pack).
func (e *Engine) executeMonitor(payload ir.MonitorPayload) (Response, error) {
	if e.MonitorSystem == nil {
		return Response{}, ErrMonitorUnavailable
	}

	reg, stream, err := e.MonitorSystem.Subscribe(payload.Trigger, payload.StreamCapacity, payload.ExpiresAt)
	if err != nil {
		return Response{}, fmt.Errorf("engine: monitor: %w", err)
	}
	return Response{Op: ir.OpMonitor, MonitorRegistration: reg, MonitorStream: stream}, nil
}
