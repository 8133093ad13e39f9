package simulation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/timerange"
)

type deltaBeliefState struct {
	inserted         map[confidence.BeliefID]belief.Belief
	affectedEntities map[confidence.EntityID]struct{}
	superseded       map[confidence.BeliefID]confidence.BeliefID
	index            *deltaVectorIndex
}

func newDeltaBeliefState() *deltaBeliefState {
	return &deltaBeliefState{
		inserted:         make(map[confidence.BeliefID]belief.Belief),
		affectedEntities: make(map[confidence.EntityID]struct{}),
		superseded:       make(map[confidence.BeliefID]confidence.BeliefID),
		index:            newDeltaVectorIndex(),
	}
}

// deltaBeliefStore is the write overlay: inserts land only in memory,
// reads merge base (read-only) with the overlay. Grounded on
// DeltaBeliefStore in original_source/src/simulation/delta_store.rs.
type deltaBeliefStore struct {
	base        belief.Store
	constraints Constraints

	mu    sync.RWMutex
	state *deltaBeliefState
}

var _ belief.Store = (*deltaBeliefStore)(nil)

func newDeltaBeliefStore(base belief.Store, constraints Constraints) *deltaBeliefStore {
	return &deltaBeliefStore{base: base, constraints: constraints, state: newDeltaBeliefState()}
}

func (d *deltaBeliefStore) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = newDeltaBeliefState()
}

func (d *deltaBeliefStore) recordAffectedEntityLocked(entityID confidence.EntityID) error {
	if _, ok := d.state.affectedEntities[entityID]; ok {
		return nil
	}
	max := d.constraints.MaxAffectedEntities
	if len(d.state.affectedEntities) >= max {
		return fmt.Errorf("simulation: affected entity limit exceeded: max=%d actual=%d (next=%s)",
			max, len(d.state.affectedEntities), entityID)
	}
	d.state.affectedEntities[entityID] = struct{}{}
	return nil
}

// applySupersedeLocked stamps SupersededBy on beliefs the overlay has
// marked as replaced. Best-effort, mirroring the original's comment: it
// never mutates base storage.
func (d *deltaBeliefStore) applySupersedeLocked(beliefs []belief.Belief) {
	for i := range beliefs {
		if newID, ok := d.state.superseded[beliefs[i].ID]; ok {
			id := newID
			beliefs[i].SupersededBy = &id
		}
	}
}

// mergeOverlayLocked appends overlay-inserted beliefs matching the given
// predicate (if non-nil) to base, without entity filtering; callers apply
// their own entity/time retain afterward, matching merge_beliefs + retain
// in the original.
func (d *deltaBeliefStore) mergeOverlayLocked(base []belief.Belief, predicate *string) []belief.Belief {
	for _, b := range d.state.inserted {
		if predicate != nil && b.Predicate != *predicate {
			continue
		}
		base = append(base, b)
	}
	d.applySupersedeLocked(base)
	return base
}

func (d *deltaBeliefStore) Insert(ctx context.Context, b belief.Belief) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.state.inserted[b.ID]; ok {
		return fmt.Errorf("%w: %s", belief.ErrDuplicateKey, b.ID)
	}
	if _, err := d.base.Get(ctx, b.ID); err == nil {
		return fmt.Errorf("%w: %s", belief.ErrDuplicateKey, b.ID)
	}

	if err := d.recordAffectedEntityLocked(b.Subject); err != nil {
		return err
	}

	if len(b.Embedding) > 0 {
		if err := d.state.index.upsert(b.ID, b.Embedding, b.Confidence.Value); err != nil {
			return err
		}
	}

	d.state.inserted[b.ID] = b
	return nil
}

func (d *deltaBeliefStore) Get(ctx context.Context, id confidence.BeliefID) (belief.Belief, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if b, ok := d.state.inserted[id]; ok {
		if newID, ok := d.state.superseded[id]; ok {
			n := newID
			b.SupersededBy = &n
		}
		return b, nil
	}

	b, err := d.base.Get(ctx, id)
	if err != nil {
		return belief.Belief{}, err
	}
	if newID, ok := d.state.superseded[id]; ok {
		n := newID
		b.SupersededBy = &n
	}
	return b, nil
}

func (d *deltaBeliefStore) Supersede(ctx context.Context, old, new confidence.BeliefID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.superseded[old] = new
	return nil
}

func (d *deltaBeliefStore) FindByEntity(ctx context.Context, entityID confidence.EntityID) ([]belief.Belief, error) {
	base, err := d.base.FindByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	merged := d.mergeOverlayLocked(base, nil)
	out := merged[:0]
	for _, b := range merged {
		if b.Subject == entityID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (d *deltaBeliefStore) FindByEntityPredicate(ctx context.Context, entityID confidence.EntityID, predicate string) ([]belief.Belief, error) {
	base, err := d.base.FindByEntityPredicate(ctx, entityID, predicate)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	merged := d.mergeOverlayLocked(base, &predicate)
	out := merged[:0]
	for _, b := range merged {
		if b.Subject == entityID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (d *deltaBeliefStore) FindAsOf(ctx context.Context, entityID confidence.EntityID, predicate string, at time.Time) ([]belief.Belief, error) {
	base, err := d.base.FindAsOf(ctx, entityID, predicate, at)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	merged := d.mergeOverlayLocked(base, &predicate)
	out := merged[:0]
	for _, b := range merged {
		if b.Subject == entityID && b.ValidTime.Contains(at) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (d *deltaBeliefStore) FindByTimeRange(ctx context.Context, tr timerange.TimeRange) ([]belief.Belief, error) {
	base, err := d.base.FindByTimeRange(ctx, tr)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, b := range d.state.inserted {
		if b.ValidTime.Overlaps(tr) {
			base = append(base, b)
		}
	}
	d.applySupersedeLocked(base)
	return base, nil
}

// FindByEmbedding merges the base store's (already cosine-ordered, see
// DESIGN.md) results with overlay hits from the in-memory delta index,
// then re-sorts by confidence since neither side exposes a raw score
// through the Go Store contract.
func (d *deltaBeliefStore) FindByEmbedding(ctx context.Context, query []float32, limit int, minConfidence *float32) ([]belief.Belief, error) {
	base, err := d.base.FindByEmbedding(ctx, query, limit, minConfidence)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	hitIDs, err := d.state.index.search(query, limit, minConfidence)
	if err != nil {
		d.mu.RUnlock()
		return nil, err
	}
	for _, id := range hitIDs {
		if b, ok := d.state.inserted[id]; ok {
			base = append(base, b)
		}
	}
	d.applySupersedeLocked(base)
	d.mu.RUnlock()

	sort.SliceStable(base, func(i, j int) bool {
		return base[i].Confidence.Value > base[j].Confidence.Value
	})
	if limit > 0 && len(base) > limit {
		base = base[:limit]
	}
	return base, nil
}

func (d *deltaBeliefStore) CountByEntity(ctx context.Context, entityID confidence.EntityID) (int, error) {
	base, err := d.base.CountByEntity(ctx, entityID)
	if err != nil {
		return 0, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	delta := 0
	for _, b := range d.state.inserted {
		if b.Subject == entityID {
			delta++
		}
	}
	return base + delta, nil
}
