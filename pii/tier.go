package pii

// classifyEntities applies the tiered disclosure policy to a resolved entity
// set and returns the subset to redact, preserving input (ascending-start)
// order. It is a pure function of the resolved entities and the three
// configured type sets; it holds no state across calls.
//
// Tiered mode is active when the conditional-mask set or the trigger set is
// non-empty. In that mode:
//
//   - Tier 1 (always-mask) entities are approved unconditionally.
//   - Tier 2 (conditional-mask) entities are approved only when unlocked by a
//     Tier 1 entity or a sensitive trigger elsewhere in the same text.
//   - Everything else, including trigger-typed entities themselves, is never
//     approved. Triggers exist only as unlock signals: masking "prior felony
//     conviction" would destroy information the caller may need, while the
//     link to an identity is what has to be suppressed.
//
// With both of those sets empty but a non-empty always-mask set, the policy
// degrades to a flat type filter. With all three sets empty, no type
// restriction applies and every resolved entity is approved.
func classifyEntities(resolved []Entity, policy disclosurePolicy) []Entity {
	tieredMode := len(policy.conditionalMask) > 0 || len(policy.sensitiveTrigger) > 0

	if !tieredMode {
		if len(policy.alwaysMask) == 0 {
			return resolved
		}
		var approved []Entity
		for _, e := range resolved {
			if policy.alwaysMask[e.Type] {
				approved = append(approved, e)
			}
		}
		return approved
	}

	tier1Present := false
	triggerPresent := false
	for _, e := range resolved {
		if policy.alwaysMask[e.Type] {
			tier1Present = true
		}
		if policy.sensitiveTrigger[e.Type] {
			triggerPresent = true
		}
	}
	unlockTier2 := tier1Present || triggerPresent

	var approved []Entity
	for _, e := range resolved {
		switch {
		case policy.alwaysMask[e.Type]:
			approved = append(approved, e)
		case policy.conditionalMask[e.Type] && unlockTier2:
			approved = append(approved, e)
		}
	}
	return approved
}
