package pii

import (
	"regexp"
	"strconv"
)

// Rule is a domain-specific detection heuristic expressed as code,
// independent of the pattern catalog. New rules are added by passing them to
// WithRules; this layer is the library's designed extension point.
type Rule interface {
	// Name identifies the rule in diagnostics.
	Name() string
	// Detect returns candidate entities with original-text offsets.
	Detect(text string) []Entity
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{ageOver89Rule{}}
}

// ageOver89Rule flags mentioned ages above 89. HIPAA Safe Harbor treats ages
// over 89 as identifying and requires them aggregated or removed.
type ageOver89Rule struct{}

var agePattern = regexp.MustCompile(`(?i)\b(?:age|aged)[\s:]*(\d{2,3})\b`)

func (ageOver89Rule) Name() string { return "age_over_89" }

func (ageOver89Rule) Detect(text string) []Entity {
	var entities []Entity
	for _, m := range agePattern.FindAllStringSubmatchIndex(text, -1) {
		age, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || age <= 89 {
			continue
		}
		entities = append(entities, Entity{
			Type:       "AGE_OVER_89",
			Text:       text[m[0]:m[1]],
			Start:      m[0],
			End:        m[1],
			Confidence: 0.9,
			Method:     MethodRule,
		})
	}
	return entities
}
