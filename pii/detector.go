package pii

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	guardianotel "github.com/dativo-io/guardian/internal/otel"
)

var tracer = guardianotel.Tracer("github.com/dativo-io/guardian/pii")

// Layer confidences are fixed per detection method.
const (
	patternConfidence = 0.95
	modelConfidence   = 0.85
)

// RecognitionModel is the optional named-entity recognition capability.
// Implementations must be safe for concurrent read-only use if the owning
// Guardian is shared across goroutines; the library documents this as a
// precondition and does not enforce it. No timeout or cancellation contract
// is defined here beyond ctx propagation; callers needing bounded latency
// wrap the capability externally.
type RecognitionModel interface {
	// Recognize returns candidate spans with the model's own label
	// vocabulary and half-open offsets into text.
	Recognize(ctx context.Context, text string) ([]ModelSpan, error)
}

// ModelSpan is one candidate produced by a RecognitionModel.
type ModelSpan struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// modelLabelTypes maps recognition-model labels into the entity-type
// vocabulary. Unmapped labels are dropped silently.
var modelLabelTypes = map[string]string{
	"PERSON":   "PERSON",
	"GPE":      "LOCATION",
	"LOC":      "LOCATION",
	"ORG":      "ORGANIZATION",
	"DATE":     "DATE",
	"MONEY":    "MONEY",
	"CARDINAL": "NUMBER",
}

// detector runs all enabled recognition layers and unions their raw
// candidates. It holds only effectively-immutable state (the compiled
// catalog, the model handle) and is safe for concurrent use.
type detector struct {
	catalog     *Catalog
	model       RecognitionModel
	rules       []Rule
	enableRegex bool
	enableModel bool
}

// detectAll returns the unresolved union of all layer outputs: candidates may
// overlap and may sit below the confidence threshold. All offsets are into
// the original text.
func (d *detector) detectAll(ctx context.Context, text string) []Entity {
	ctx, span := tracer.Start(ctx, "pii.detect")
	defer span.End()

	var entities []Entity

	if d.enableRegex {
		fromPatterns := d.detectPatterns(text)
		entities = append(entities, fromPatterns...)
		log.Debug().Int("count", len(fromPatterns)).Msg("pattern layer candidates")
	}

	if d.enableModel && d.model != nil {
		fromModel := d.detectModel(ctx, text)
		entities = append(entities, fromModel...)
		log.Debug().Int("count", len(fromModel)).Msg("model layer candidates")
	} else if d.enableModel {
		log.Warn().Msg("recognition model enabled but unavailable; layer skipped")
	}

	entities = append(entities, d.detectRules(text)...)

	span.SetAttributes(attribute.Int("pii.candidates", len(entities)))
	return entities
}

// detectPatterns evaluates every catalog entry against the full text.
func (d *detector) detectPatterns(text string) []Entity {
	var entities []Entity
	for _, entry := range d.catalog.Entries() {
		matches := entry.Pattern.FindAllStringIndex(text, -1)
		for _, m := range matches {
			entities = append(entities, Entity{
				Type:       entry.Type,
				Text:       text[m[0]:m[1]],
				Start:      m[0],
				End:        m[1],
				Confidence: patternConfidence,
				Method:     MethodPattern,
			})
		}
	}
	return entities
}

// detectModel delegates to the recognition model and maps its labels into
// the entity-type vocabulary. Model failure yields an empty layer result.
func (d *detector) detectModel(ctx context.Context, text string) []Entity {
	spans, err := d.model.Recognize(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("recognition model failed; layer skipped")
		return nil
	}

	var entities []Entity
	for _, s := range spans {
		entityType, ok := modelLabelTypes[s.Label]
		if !ok {
			continue
		}
		if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
			continue
		}
		entities = append(entities, Entity{
			Type:       entityType,
			Text:       s.Text,
			Start:      s.Start,
			End:        s.End,
			Confidence: modelConfidence,
			Method:     MethodModel,
		})
	}
	return entities
}

// detectRules runs the code-rule layer. Rules always run; a single rule's
// output is appended as-is.
func (d *detector) detectRules(text string) []Entity {
	var entities []Entity
	for _, rule := range d.rules {
		entities = append(entities, rule.Detect(text)...)
	}
	return entities
}
