package pii

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtectTier1AlwaysMasked(t *testing.T) {
	g := MustNew(DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"email", "Email john@test.com please.", "[EMAIL]"},
		{"ssn", "SSN: 123-45-6789", "[SSN]"},
		{"phone", "Call me at 555-867-5309.", "[PHONE]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := g.Protect(ctx, tt.text)
			require.NoError(t, err)
			assert.Contains(t, res.Text, tt.want)
			assert.True(t, res.HasPII())
			assert.False(t, res.IsSafe())
		})
	}
}

func TestProtectCleanTextUnchanged(t *testing.T) {
	g := MustNew(DefaultConfig())

	text := "Hello, this is a clean sentence."
	res, err := g.Protect(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, text, res.Text)
	assert.True(t, res.IsSafe())
	assert.Zero(t, res.Count)
	assert.Empty(t, res.RedactionMap)
	assert.Empty(t, res.AuditLog)
}

func TestProtectTier2SuppressedAlone(t *testing.T) {
	g := MustNew(DefaultConfig())

	text := "I live in 90210."
	res, err := g.Protect(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, text, res.Text)
	assert.NotContains(t, res.Text, "[ZIP_CODE]")
	assert.True(t, res.IsSafe())
}

func TestProtectTier2UnlockedByTier1(t *testing.T) {
	g := MustNew(DefaultConfig())

	res, err := g.Protect(context.Background(), "Email me at user@example.com, zip 90210.")
	require.NoError(t, err)

	assert.Contains(t, res.Text, "[EMAIL]")
	assert.Contains(t, res.Text, "[ZIP_CODE]")
}

func TestProtectSensitiveTriggerUnlocksButStaysVisible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AlwaysMaskTypes = nil
	cfg.ConditionalMaskTypes = []string{"PERSON"}
	cfg.SensitiveTriggerTypes = []string{"CRIMINAL_HISTORY"}
	cfg.EnableModel = true

	model := &fakeModel{spans: []ModelSpan{
		{Label: "PERSON", Text: "John Smith", Start: 0, End: 10},
	}}
	g, err := New(cfg, WithModel(model))
	require.NoError(t, err)

	res, err := g.Protect(context.Background(), "John Smith has a prior felony conviction.")
	require.NoError(t, err)

	assert.Contains(t, res.Text, "[PERSON]")
	assert.Contains(t, res.Text, "prior felony conviction",
		"trigger entities are unlock signals, never masked")
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "PERSON", res.Entities[0].Type)
}

func TestProtectFlatLegacyMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AlwaysMaskTypes = []string{"SSN"}
	cfg.ConditionalMaskTypes = nil
	cfg.SensitiveTriggerTypes = nil
	g := MustNew(cfg)

	res, err := g.Protect(context.Background(), "Email: a@b.com, SSN: 123-45-6789")
	require.NoError(t, err)

	assert.Contains(t, res.Text, "[SSN]")
	assert.NotContains(t, res.Text, "[EMAIL]")
	assert.Contains(t, res.Text, "a@b.com")
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "SSN", res.Entities[0].Type)
}

func TestProtectOffsetSafetyEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0
	cfg.AlwaysMaskTypes = []string{"SSN"}
	cfg.ConditionalMaskTypes = []string{"ZIP_CODE"}
	cfg.SensitiveTriggerTypes = nil
	g := MustNew(cfg)

	res, err := g.Protect(context.Background(), "SSN: 123-45-6789, zip 10001.")
	require.NoError(t, err)
	assert.Equal(t, "SSN: [SSN], zip [ZIP_CODE].", res.Text)
}

func TestProtectEntitiesAscendingByStart(t *testing.T) {
	g := MustNew(DefaultConfig())

	res, err := g.Protect(context.Background(), "a@b.com then 123-45-6789 then c@d.org")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Entities), 2)
	for i := 1; i < len(res.Entities); i++ {
		assert.Less(t, res.Entities[i-1].Start, res.Entities[i].Start)
	}
}

// Redacting already-redacted text is a fixed point as long as no placeholder
// itself matches a pattern (edge case flagged in the docs, not guaranteed).
func TestProtectIdempotentOnRedactedText(t *testing.T) {
	g := MustNew(DefaultConfig())
	ctx := context.Background()

	first, err := g.Protect(ctx, "Email john@test.com, SSN: 123-45-6789")
	require.NoError(t, err)

	second, err := g.Protect(ctx, first.Text)
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
}

func TestProtectMultipleTier1TypesAllMasked(t *testing.T) {
	g := MustNew(DefaultConfig())

	res, err := g.Protect(context.Background(), "Email: a@b.com, SSN: 123-45-6789")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "[EMAIL]")
	assert.Contains(t, res.Text, "[SSN]")
}

// Values set on Config.SensitiveTriggerTypes must actually reach the
// classifier: with the trigger configured, a co-occurring Tier 2 entity is
// unlocked; without it, nothing is masked.
func TestTriggerTypesReachClassifier(t *testing.T) {
	text := "Zip 90210, prior felony conviction."
	base := DefaultConfig()
	base.AlwaysMaskTypes = nil
	base.ConditionalMaskTypes = []string{"ZIP_CODE"}

	withTrigger := base
	withTrigger.SensitiveTriggerTypes = []string{"CRIMINAL_HISTORY"}
	res, err := MustNew(withTrigger).Protect(context.Background(), text)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "[ZIP_CODE]")
	assert.Contains(t, res.Text, "prior felony conviction")

	withoutTrigger := base
	withoutTrigger.SensitiveTriggerTypes = nil
	res, err = MustNew(withoutTrigger).Protect(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, text, res.Text)
}

func TestNewRejectsBadThreshold(t *testing.T) {
	for _, threshold := range []float64{-0.1, 1.5} {
		cfg := DefaultConfig()
		cfg.ConfidenceThreshold = threshold
		_, err := New(cfg)
		require.Error(t, err)

		var confErr *ConfigurationError
		assert.ErrorAs(t, err, &confErr)
	}
}

func TestDetectOnlyDoesNotRewrite(t *testing.T) {
	g := MustNew(DefaultConfig())

	entities, err := g.DetectOnly(context.Background(), "Email john@test.com please.")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "EMAIL", entities[0].Type)
	assert.Equal(t, "john@test.com", entities[0].Text)
}

func TestProtectBatchIsolatesFailures(t *testing.T) {
	g := MustNew(DefaultConfig())

	// A canceled context fails every item, but each failure is absorbed into
	// a sentinel result and the batch still completes.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	texts := []string{"Email a@b.com", "clean text"}
	results := g.ProtectBatch(ctx, texts)
	require.Len(t, results, 2)

	for i, res := range results {
		assert.Equal(t, -1, res.Count)
		assert.Equal(t, texts[i], res.Text, "failed item passes original text through")
		require.Len(t, res.AuditLog, 1)
		assert.NotEmpty(t, res.AuditLog[0].Error)
	}
}

func TestProtectBatchSuccess(t *testing.T) {
	g := MustNew(DefaultConfig())

	results := g.ProtectBatch(context.Background(), []string{
		"Email a@b.com",
		"nothing here",
	})
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Text, "[EMAIL]")
	assert.True(t, results[1].IsSafe())
}

func TestProtectChunks(t *testing.T) {
	g := MustNew(DefaultConfig())

	chunks := []Chunk{
		{"text": "SSN: 123-45-6789", "metadata": map[string]any{"page": 1}},
		{"text": "no pii here", "metadata": map[string]any{"page": 2}},
		{"text": "", "metadata": map[string]any{"page": 3}},
		{"other": "missing text key"},
	}

	out := g.ProtectChunks(context.Background(), chunks, "text")
	require.Len(t, out, 4)

	first := out[0]
	assert.Equal(t, "SSN: [SSN]", first["text"])
	meta := first["metadata"].(map[string]any)
	assert.Equal(t, true, meta["pii_redacted"])
	assert.Equal(t, 1, meta["pii_count"])
	assert.Equal(t, []string{"SSN"}, meta["pii_types"])
	assert.Equal(t, 1, meta["page"], "existing metadata keys are preserved")

	second := out[1]
	meta = second["metadata"].(map[string]any)
	assert.Equal(t, false, meta["pii_redacted"])
	assert.Equal(t, 0, meta["pii_count"])
	assert.NotContains(t, meta, "pii_types")

	// Empty or missing text passes through untouched.
	assert.Equal(t, chunks[2], out[2])
	assert.Equal(t, chunks[3], out[3])
}

func TestProtectChunksDoesNotMutateInput(t *testing.T) {
	g := MustNew(DefaultConfig())

	chunks := []Chunk{{"text": "SSN: 123-45-6789"}}
	_ = g.ProtectChunks(context.Background(), chunks, "text")
	assert.Equal(t, "SSN: 123-45-6789", chunks[0]["text"])
}

func TestIsSafe(t *testing.T) {
	g := MustNew(DefaultConfig())
	ctx := context.Background()

	assert.True(t, g.IsSafe(ctx, "Hello world", 0))
	assert.False(t, g.IsSafe(ctx, "SSN: 123-45-6789", 0))
	assert.True(t, g.IsSafe(ctx, "SSN: 123-45-6789", 1))
}

func TestIsSafeFailsClosed(t *testing.T) {
	g := MustNew(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, g.IsSafe(ctx, "Hello world", 0))
}

func TestGuardianCustomRecognizersOverrideDefaults(t *testing.T) {
	g := MustNew(DefaultConfig(), WithCustomRecognizers([]RecognizerConfig{
		{
			Name:            "ssn_recognizer", // same name replaces the default
			SupportedEntity: "SSN",
			Patterns: []PatternConfig{
				{Name: "never_matches", Regex: `\bxyzzy-ssn\b`},
			},
		},
	}))

	res, err := g.Protect(context.Background(), "SSN: 123-45-6789")
	require.NoError(t, err)
	assert.NotContains(t, res.Text, "[SSN]")
}
