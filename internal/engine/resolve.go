package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/frame"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/timerange"
)

// policyDecision is the outcome of decideWithTrust: either a winner was
// selected, or the policy declined to pick one (spec §4.3's
// ExplicitConflict policy, or a tie nothing breaks).
type policyDecision struct {
	selected bool
	winner   confidence.BeliefID
}

// decideWithTrust applies a conflict policy over competing beliefs,
// matching the Rust engine's decide_with_trust tie-break chains exactly:
// LatestWins breaks ties by trusted confidence then lexicographic id;
// HighestConfidence breaks ties by tx_time then lexicographic id;
// SourcePriority ranks by priority-list position first, then the
// HighestConfidence chain.
func (e *Engine) decideWithTrust(policy ir.ConflictPolicy, beliefs []belief.Belief, domain *string) policyDecision {
	if len(beliefs) == 0 {
		return policyDecision{}
	}
	switch policy.Kind {
	case ir.PolicyExplicitConflict:
		return policyDecision{}

	case ir.PolicyLatestWins:
		best := beliefs[0]
		for _, b := range beliefs[1:] {
			if b.TxTime.After(best.TxTime) {
				best = b
			} else if b.TxTime.Equal(best.TxTime) {
				tc := e.trustedConfidence(b, domain)
				bc := e.trustedConfidence(best, domain)
				if tc > bc || (tc == bc && b.ID.String() < best.ID.String()) {
					best = b
				}
			}
		}
		return policyDecision{selected: true, winner: best.ID}

	case ir.PolicyHighestConfidence:
		best := beliefs[0]
		bestScore := e.trustedConfidence(best, domain)
		for _, b := range beliefs[1:] {
			score := e.trustedConfidence(b, domain)
			if score > bestScore {
				best, bestScore = b, score
			} else if score == bestScore {
				if b.TxTime.After(best.TxTime) || (b.TxTime.Equal(best.TxTime) && b.ID.String() < best.ID.String()) {
					best, bestScore = b, score
				}
			}
		}
		return policyDecision{selected: true, winner: best.ID}

	case ir.PolicySourcePriority:
		rank := func(b belief.Belief) int {
			sid := b.Source.SourceID()
			for i, p := range policy.PriorityList {
				if p == sid {
					return i
				}
			}
			return len(policy.PriorityList) + 1
		}
		best := beliefs[0]
		bestRank := rank(best)
		bestScore := e.trustedConfidence(best, domain)
		for _, b := range beliefs[1:] {
			r := rank(b)
			score := e.trustedConfidence(b, domain)
			switch {
			case r < bestRank:
				best, bestRank, bestScore = b, r, score
			case r == bestRank:
				if score > bestScore {
					best, bestScore = b, score
				} else if score == bestScore {
					if b.TxTime.After(best.TxTime) || (b.TxTime.Equal(best.TxTime) && b.ID.String() < best.ID.String()) {
						best, bestScore = b, score
					}
				}
			}
		}
		return policyDecision{selected: true, winner: best.ID}

	default:
		return policyDecision{}
	}
}

func distinctValueCount(beliefs []belief.Belief) int {
	var distinct []belief.Belief
	for _, b := range beliefs {
		found := false
		for _, d := range distinct {
			if d.Value.Equal(b.Value) {
				found = true
				break
			}
		}
		if !found {
			distinct = append(distinct, b)
		}
	}
	return len(distinct)
}

func rankedClaimOf(b belief.Belief, trustedConf float32, relevance *float32) frame.RankedClaim {
	return frame.RankedClaim{
		BeliefID:           b.ID,
		Value:              b.Value,
		TrustedConfidence:  trustedConf,
		RetrievalRelevance: relevance,
		Source:             b.Source.SourceID(),
		TxTime:             b.TxTime,
	}
}

// executeResolve answers a RESOLVE query by selecting the current belief
// set for (entity, predicate), ranking it by trust-weighted confidence, and
// assembling a Frame that records the winning claim, supporting/counter
// evidence, open conflicts, and any gaps found along the way (spec §4.3
// step 5).
func (e *Engine) executeResolve(ctx context.Context, payload ir.ResolvePayload) (Response, error) {
	asOf := time.Now().UTC()
	if payload.AsOf != nil {
		asOf = *payload.AsOf
	}
	minConf := float32(0)
	if payload.MinConfidence != nil {
		minConf = *payload.MinConfidence
	}
	policy := ir.ConflictPolicy{Kind: ir.PolicyLatestWins}
	if payload.ConflictPolicy != nil {
		policy = *payload.ConflictPolicy
	}
	limit := 10
	if payload.Limit != nil {
		limit = *payload.Limit
	}
	includeGaps := true
	if payload.IncludeGaps != nil {
		includeGaps = *payload.IncludeGaps
	}

	entityID := payload.EntityID
	if entityID == nil && payload.Query != nil {
		q := strings.TrimSpace(*payload.Query)
		looksLikeName := q != "" && len(q) <= 80 && !strings.Contains(q, "?") && len(strings.Fields(q)) <= 6
		if looksLikeName {
			candidates, err := e.Entities.FindByNameFuzzy(ctx, q, 2)
			if err == nil && len(candidates) == 1 {
				id := candidates[0].ID
				entityID = &id
			}
		}
	}

	fr := frame.Frame{
		TimeWindow: timerange.Instant(asOf),
		QueryAssumptions: frame.QueryAssumptions{
			ConflictPolicy: string(policy.Kind),
			MinConfidence:  minConf,
			TrustModelName: e.Trust.Name(),
			AsOfTime:       asOf,
		},
	}

	if len(payload.QueryEmbedding) > 0 {
		return e.resolveSemantic(ctx, payload, fr, asOf, minConf, policy, entityID, limit, includeGaps)
	}

	predicate := ""
	if payload.Predicate != nil {
		predicate = strings.TrimSpace(*payload.Predicate)
	}

	if entityID == nil {
		if includeGaps {
			fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapMissingEntity, Message: "resolve requires an entity_id (or a query that resolves to exactly one entity)"})
		}
		msg := "resolve requires an entity_id (or a query that resolves to exactly one entity)"
		fr.DebugSummary = &msg
		return Response{Op: ir.OpResolve, ResolveFrame: fr}, nil
	}
	if err := e.ensureEntityExists(ctx, *entityID); err != nil {
		return Response{}, err
	}

	if predicate == "" {
		if includeGaps {
			count, err := e.Beliefs.CountByEntity(ctx, *entityID)
			if err != nil {
				return Response{}, fmt.Errorf("engine: resolve: %w", err)
			}
			if count == 0 {
				fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapNoDataFound, Message: "entity has no beliefs to resolve"})
			} else {
				fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapInsufficientEvidence, Message: "resolve requires a predicate to answer this query"})
			}
		}
		return Response{Op: ir.OpResolve, ResolveFrame: fr}, nil
	}

	trustDomain := payload.TrustDomain
	if trustDomain == nil {
		trustDomain = &predicate
	}

	all, err := e.Beliefs.FindAsOf(ctx, *entityID, predicate, asOf)
	if err != nil {
		return Response{}, fmt.Errorf("engine: resolve: %w", err)
	}
	var maxConf float32
	var beliefs []belief.Belief
	for _, b := range all {
		if b.Confidence.Value > maxConf {
			maxConf = b.Confidence.Value
		}
		if b.Confidence.Value >= minConf {
			beliefs = append(beliefs, b)
		}
	}
	e.sortBeliefsByTrustedConfidence(beliefs, trustDomain)
	if limit > 0 && len(beliefs) > limit {
		beliefs = beliefs[:limit]
	}

	if len(beliefs) == 0 {
		if includeGaps {
			if maxConf > 0 && maxConf < minConf {
				fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapLowConfidenceOnly, Message: fmt.Sprintf("data exists but maximum confidence (%.3f) is below min_confidence (%.3f)", maxConf, minConf)})
			} else {
				fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapNoDataFound, Message: fmt.Sprintf("no data found for predicate %q", predicate)})
			}
		}
		return Response{Op: ir.OpResolve, ResolveFrame: fr}, nil
	}

	var winnerID confidence.BeliefID
	var decision policyDecision
	if distinctValueCount(beliefs) <= 1 {
		winnerID = beliefs[0].ID
		decision = policyDecision{selected: true, winner: winnerID}
	} else {
		decision = e.decideWithTrust(policy, beliefs, trustDomain)
		if decision.selected {
			winnerID = decision.winner
		} else {
			winnerID = beliefs[0].ID
			if includeGaps {
				fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapInsufficientEvidence, Message: "competing beliefs exist; no resolution policy selected"})
			}
			msg := "multiple competing beliefs found and conflict policy did not select a winner"
			fr.DebugSummary = &msg
		}
	}

	winner := beliefs[0]
	for _, b := range beliefs {
		if b.ID == winnerID {
			winner = b
			break
		}
	}

	for _, b := range beliefs {
		relevance := float32(1.0)
		if b.Value.Equal(winner.Value) {
			fr.SupportingEvidence = append(fr.SupportingEvidence, rankedClaimOf(b, e.trustedConfidence(b, trustDomain), &relevance))
		} else if payload.IncludeCounterEvidence {
			fr.CounterEvidence = append(fr.CounterEvidence, rankedClaimOf(b, e.trustedConfidence(b, trustDomain), &relevance))
		}
		cs, err := e.Conflicts.FindByBelief(ctx, b.ID)
		if err != nil {
			return Response{}, fmt.Errorf("engine: resolve: %w", err)
		}
		fr.Conflicts = append(fr.Conflicts, frame.OpenConflictsOf(cs)...)
	}

	if decision.selected {
		conf := e.trustedConfidence(winner, trustDomain)
		fr.BestSupportedClaim = &frame.BestSupportedClaim{Value: winner.Value, CombinedConfidence: conf, Relevance: float32Ptr(1.0)}
	}

	return Response{Op: ir.OpResolve, ResolveFrame: fr}, nil
}

func float32Ptr(f float32) *float32 { return &f }

// resolveSemantic is the embedding-retrieval path: it ranks candidates by
// cosine similarity first, then applies filters and trust ranking.
func (e *Engine) resolveSemantic(ctx context.Context, payload ir.ResolvePayload, fr frame.Frame, asOf time.Time, minConf float32, policy ir.ConflictPolicy, entityID *confidence.EntityID, limit int, includeGaps bool) (Response, error) {
	fetchLimit := limit * 4
	if fetchLimit <= 0 {
		fetchLimit = 40
	}
	matches, err := e.Beliefs.FindByEmbedding(ctx, payload.QueryEmbedding, fetchLimit, &minConf)
	if err != nil {
		return Response{}, fmt.Errorf("engine: resolve: %w", err)
	}

	filtered := matches[:0:0]
	for _, b := range matches {
		if !b.IsValidAt(asOf) {
			continue
		}
		filtered = append(filtered, b)
	}
	if entityID != nil {
		if err := e.ensureEntityExists(ctx, *entityID); err != nil {
			return Response{}, err
		}
		scoped := filtered[:0:0]
		for _, b := range filtered {
			if b.Subject == *entityID {
				scoped = append(scoped, b)
			}
		}
		filtered = scoped
	}

	var predicateFilter string
	if payload.Predicate != nil {
		predicateFilter = strings.TrimSpace(*payload.Predicate)
	}
	trustDomain := payload.TrustDomain
	if trustDomain == nil && predicateFilter != "" {
		trustDomain = &predicateFilter
	}
	if predicateFilter != "" {
		scoped := filtered[:0:0]
		for _, b := range filtered {
			if b.Predicate == predicateFilter {
				scoped = append(scoped, b)
			}
		}
		filtered = scoped
	}

	if len(filtered) == 0 {
		if includeGaps {
			switch {
			case entityID != nil && predicateFilter != "":
				fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapNoDataFound, Message: fmt.Sprintf("no semantically relevant beliefs found for %q", predicateFilter)})
			case entityID != nil:
				fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapNoDataFound, Message: "no semantically relevant beliefs found"})
			default:
				fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapMissingEntity, Message: "semantic search returned no beliefs; provide entity_id or refine query"})
			}
		}
		return Response{Op: ir.OpResolve, ResolveFrame: fr}, nil
	}

	e.sortBeliefsByTrustedConfidence(filtered, trustDomain)
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	distinctPredicates := map[string]bool{}
	for _, b := range filtered {
		distinctPredicates[b.Predicate] = true
	}
	if len(distinctPredicates) != 1 {
		if includeGaps {
			fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapInsufficientEvidence, Message: "semantic resolve matched multiple predicates; specify predicate to synthesize an answer"})
		}
		for _, b := range filtered {
			relevance := float32Ptr(1.0)
			fr.SupportingEvidence = append(fr.SupportingEvidence, rankedClaimOf(b, e.trustedConfidence(b, trustDomain), relevance))
		}
		return Response{Op: ir.OpResolve, ResolveFrame: fr}, nil
	}

	var winnerID confidence.BeliefID
	var decision policyDecision
	if distinctValueCount(filtered) <= 1 {
		winnerID = filtered[0].ID
		decision = policyDecision{selected: true, winner: winnerID}
	} else {
		decision = e.decideWithTrust(policy, filtered, trustDomain)
		if decision.selected {
			winnerID = decision.winner
		} else {
			winnerID = filtered[0].ID
			if includeGaps {
				fr.Gaps = append(fr.Gaps, frame.Gap{Kind: frame.GapInsufficientEvidence, Message: "competing beliefs exist; no resolution policy selected"})
			}
			msg := "multiple competing beliefs found and conflict policy did not select a winner"
			fr.DebugSummary = &msg
		}
	}

	winner := filtered[0]
	for _, b := range filtered {
		if b.ID == winnerID {
			winner = b
			break
		}
	}

	for _, b := range filtered {
		relevance := float32Ptr(1.0)
		if b.Value.Equal(winner.Value) {
			fr.SupportingEvidence = append(fr.SupportingEvidence, rankedClaimOf(b, e.trustedConfidence(b, trustDomain), relevance))
		} else if payload.IncludeCounterEvidence {
			fr.CounterEvidence = append(fr.CounterEvidence, rankedClaimOf(b, e.trustedConfidence(b, trustDomain), relevance))
		}
		cs, err := e.Conflicts.FindByBelief(ctx, b.ID)
		if err != nil {
			return Response{}, fmt.Errorf("engine: resolve: %w", err)
		}
		fr.Conflicts = append(fr.Conflicts, frame.OpenConflictsOf(cs)...)
	}

	if decision.selected {
		conf := e.trustedConfidence(winner, trustDomain)
		fr.BestSupportedClaim = &frame.BestSupportedClaim{Value: winner.Value, CombinedConfidence: conf, Relevance: float32Ptr(1.0)}
	}

	return Response{Op: ir.OpResolve, ResolveFrame: fr}, nil
}
