package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStorage struct{ segments int }

func (f fakeStorage) SegmentCount() int { return f.segments }

type fakeMonitor struct {
	depth         int
	dropped       int64
	droppedEvents int64
}

func (f fakeMonitor) QueueDepth() int            { return f.depth }
func (f fakeMonitor) DroppedObservations() int64 { return f.dropped }
func (f fakeMonitor) DroppedEvents() int64       { return f.droppedEvents }

type fakeRuntime struct {
	reflex, reflection int
}

func (f fakeRuntime) ReflexQueueDepth() int     { return f.reflex }
func (f fakeRuntime) ReflectionQueueDepth() int { return f.reflection }

func TestRegisterSucceedsWithAllSourcesPresent(t *testing.T) {
	err := Register(fakeStorage{segments: 3}, fakeMonitor{depth: 1, dropped: 2}, fakeRuntime{reflex: 4, reflection: 5})
	require.NoError(t, err)
}

func TestRegisterSucceedsWithNilSources(t *testing.T) {
	err := Register(nil, nil, nil)
	require.NoError(t, err)
}

func TestRegisterSucceedsWithPartialSources(t *testing.T) {
	err := Register(fakeStorage{segments: 1}, nil, nil)
	require.NoError(t, err)
}
