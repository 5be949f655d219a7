package pii

import "sort"

// resolveEntities collapses overlapping candidates into a non-overlapping
// sequence, ascending by start, then drops survivors below the confidence
// threshold.
//
// The sweep is a single-pass greedy policy: candidates are ordered by
// (start asc, confidence desc) and each one is compared only against the most
// recently accepted entity. An overlapping candidate with strictly higher
// confidence replaces that entity; otherwise it is discarded. With chains of
// overlaps this is locally, not globally, optimal; callers depend on exactly
// this behavior, so do not swap in an interval-scheduling algorithm.
func resolveEntities(entities []Entity, threshold float64) []Entity {
	if len(entities) == 0 {
		return nil
	}

	sorted := append([]Entity(nil), entities...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var accepted []Entity
	lastEnd := -1

	for _, candidate := range sorted {
		if candidate.Start >= lastEnd {
			accepted = append(accepted, candidate)
			lastEnd = candidate.End
			continue
		}
		if len(accepted) > 0 && candidate.Confidence > accepted[len(accepted)-1].Confidence {
			accepted[len(accepted)-1] = candidate
			lastEnd = candidate.End
		}
	}

	var surviving []Entity
	for _, e := range accepted {
		if e.Confidence >= threshold {
			surviving = append(surviving, e)
		}
	}
	return surviving
}
