package pii

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dativo-io/guardian/patterns"
)

// Guardian is the pipeline facade: detect -> resolve -> classify -> redact.
//
// A Guardian holds only effectively-immutable state after construction (the
// compiled catalog, the rule set, the model handle), so concurrent Protect
// calls on one instance are safe provided the RecognitionModel handle is
// itself safe for concurrent read-only use. That is a documented
// precondition, not something the library enforces. Construct instances
// explicitly and share them by reference; there is no package-level default.
type Guardian struct {
	cfg    Config
	policy disclosurePolicy
	det    *detector
}

// Option customizes Guardian construction beyond the Config fields.
type Option func(*guardianOptions)

type guardianOptions struct {
	patternFile       string
	customRecognizers []RecognizerConfig
	enabledEntities   []string
	disabledEntities  []string
	model             RecognitionModel
	rules             []Rule
}

// WithPatternFile loads additional recognizers from a catalog file layered
// over the embedded defaults. A missing file is silently skipped.
func WithPatternFile(path string) Option {
	return func(o *guardianOptions) { o.patternFile = path }
}

// WithCustomRecognizers layers caller-supplied recognizer definitions over
// the embedded defaults and any pattern file.
func WithCustomRecognizers(recognizers []RecognizerConfig) Option {
	return func(o *guardianOptions) { o.customRecognizers = recognizers }
}

// WithEnabledEntities restricts the catalog to the listed entity types.
func WithEnabledEntities(entities []string) Option {
	return func(o *guardianOptions) { o.enabledEntities = entities }
}

// WithDisabledEntities removes the listed entity types from the catalog.
func WithDisabledEntities(entities []string) Option {
	return func(o *guardianOptions) { o.disabledEntities = entities }
}

// WithModel supplies the recognition-model capability. The layer only runs
// when cfg.EnableModel is also true.
func WithModel(model RecognitionModel) Option {
	return func(o *guardianOptions) { o.model = model }
}

// WithRules appends custom detection rules to the built-in rule set.
func WithRules(rules ...Rule) Option {
	return func(o *guardianOptions) { o.rules = rules }
}

// New builds a Guardian from cfg. It returns a ConfigurationError when cfg
// fails validation. Catalog compilation never fails: malformed patterns are
// logged and skipped.
func New(cfg Config, opts ...Option) (*Guardian, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o guardianOptions
	for _, opt := range opts {
		opt(&o)
	}

	defaults, err := ParseRecognizerFile(patterns.PIIDefaultYAML())
	if err != nil {
		return nil, &ConfigurationError{Field: "patterns", Reason: err.Error()}
	}

	var fileRecs []RecognizerConfig
	if o.patternFile != "" {
		rf, err := LoadRecognizerFile(o.patternFile)
		if err != nil {
			return nil, &ConfigurationError{Field: "pattern_file", Reason: err.Error()}
		}
		if rf != nil {
			fileRecs = rf.Recognizers
		}
	}

	merged := MergeRecognizers(defaults.Recognizers, fileRecs, o.customRecognizers)
	merged = FilterByEntities(merged, o.enabledEntities, o.disabledEntities)
	catalog := CompileCatalog(merged)

	rules := DefaultRules()
	rules = append(rules, o.rules...)

	if cfg.EnableModel && o.model == nil {
		log.Warn().Str("model", cfg.ModelID).Msg("model layer enabled without a model handle; falling back to pattern and rule layers")
	}

	return &Guardian{
		cfg:    cfg,
		policy: cfg.policy(),
		det: &detector{
			catalog:     catalog,
			model:       o.model,
			rules:       rules,
			enableRegex: cfg.EnableRegex,
			enableModel: cfg.EnableModel,
		},
	}, nil
}

// MustNew is like New but panics on error. Useful for zero-config startup
// where the defaults are expected to always validate.
func MustNew(cfg Config, opts ...Option) *Guardian {
	g, err := New(cfg, opts...)
	if err != nil {
		panic("pii.New: " + err.Error())
	}
	return g
}

// Protect detects, classifies, and redacts PII in text. The pipeline is
// synchronous; the only externally-blocking step is the optional recognition
// model call.
func (g *Guardian) Protect(ctx context.Context, text string) (*ProtectionResult, error) {
	ctx, span := tracer.Start(ctx, "pii.protect")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, &ProtectionError{Op: "protect", Err: err}
	}

	approved := g.classify(ctx, text)
	red := redactEntities(text, approved)

	span.SetAttributes(
		attribute.Int("pii.approved", red.count),
		attribute.Bool("pii.redacted", red.count > 0),
	)

	return &ProtectionResult{
		Text:         red.text,
		Count:        red.count,
		Entities:     approved,
		RedactionMap: red.redactionMap,
		AuditLog:     red.auditLog,
	}, nil
}

// DetectOnly runs detection, resolution, and classification without
// rewriting the text. Useful for analysis.
func (g *Guardian) DetectOnly(ctx context.Context, text string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProtectionError{Op: "detect", Err: err}
	}
	return g.classify(ctx, text), nil
}

func (g *Guardian) classify(ctx context.Context, text string) []Entity {
	candidates := g.det.detectAll(ctx, text)
	resolved := resolveEntities(candidates, g.cfg.ConfidenceThreshold)
	return classifyEntities(resolved, g.policy)
}

// ProtectBatch protects texts sequentially with per-item isolation: a failing
// item is replaced by a sentinel result (Count -1, error audit record, text
// passed through) and processing continues. No retries.
func (g *Guardian) ProtectBatch(ctx context.Context, texts []string) []*ProtectionResult {
	results := make([]*ProtectionResult, 0, len(texts))
	for _, text := range texts {
		res, err := g.Protect(ctx, text)
		if err != nil {
			log.Warn().Err(err).Msg("batch item failed; continuing")
			results = append(results, &ProtectionResult{
				Text:         text,
				Count:        -1,
				Entities:     []Entity{},
				RedactionMap: map[string]string{},
				AuditLog:     []AuditRecord{{Error: err.Error()}},
			})
			continue
		}
		results = append(results, res)
	}
	return results
}

// Chunk is a document fragment with caller-defined keys, typically produced
// by a RAG ingestion pipeline.
type Chunk = map[string]any

// ProtectChunks redacts the text under textKey in each chunk and merges
// pii_redacted, pii_count, and pii_types into the chunk's metadata map
// without disturbing other keys. Chunks with an empty or missing text value
// pass through unchanged, as do chunks whose protection fails.
func (g *Guardian) ProtectChunks(ctx context.Context, chunks []Chunk, textKey string) []Chunk {
	out := make([]Chunk, 0, len(chunks))

	for _, chunk := range chunks {
		text, _ := chunk[textKey].(string)
		if text == "" {
			out = append(out, chunk)
			continue
		}

		res, err := g.Protect(ctx, text)
		if err != nil {
			log.Warn().Err(err).Msg("chunk protection failed; passing through")
			out = append(out, chunk)
			continue
		}

		updated := make(Chunk, len(chunk)+1)
		for k, v := range chunk {
			updated[k] = v
		}
		updated[textKey] = res.Text

		meta := make(map[string]any)
		if existing, ok := updated["metadata"].(map[string]any); ok {
			for k, v := range existing {
				meta[k] = v
			}
		}
		meta["pii_redacted"] = res.HasPII()
		meta["pii_count"] = res.Count
		if res.HasPII() {
			meta["pii_types"] = uniqueTypes(res.Entities)
		}
		updated["metadata"] = meta

		out = append(out, updated)
	}

	return out
}

// IsSafe reports whether the approved-entity count is at or below threshold
// (pass 0 for the strict check). It fails safe: if protection itself errors,
// the text is reported unsafe.
func (g *Guardian) IsSafe(ctx context.Context, text string, threshold int) bool {
	res, err := g.Protect(ctx, text)
	if err != nil {
		log.Error().Err(err).Msg("safety check failed; reporting unsafe")
		return false
	}
	return res.Count <= threshold
}

func uniqueTypes(entities []Entity) []string {
	seen := make(map[string]bool, len(entities))
	var types []string
	for _, e := range entities {
		if !seen[e.Type] {
			seen[e.Type] = true
			types = append(types, e.Type)
		}
	}
	sort.Strings(types)
	return types
}
