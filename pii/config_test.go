package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultConfidenceThreshold, cfg.ConfidenceThreshold)
	assert.True(t, cfg.EnableRegex)
	assert.False(t, cfg.EnableModel)
	assert.Equal(t, DefaultAlwaysMaskTypes, cfg.AlwaysMaskTypes)
	assert.Equal(t, DefaultConditionalMaskTypes, cfg.ConditionalMaskTypes)
	assert.Equal(t, DefaultSensitiveTriggerTypes, cfg.SensitiveTriggerTypes)
	require.NoError(t, cfg.Validate())
}

func TestDefaultConfigReturnsCopies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AlwaysMaskTypes[0] = "MUTATED"
	assert.Equal(t, "EMAIL", DefaultAlwaysMaskTypes[0])
}

func TestConfigValidateThresholdBounds(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		wantErr   bool
	}{
		{"zero", 0, false},
		{"one", 1, false},
		{"default", 0.8, false},
		{"negative", -0.01, true},
		{"above one", 1.01, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ConfidenceThreshold = tt.threshold
			err := cfg.Validate()
			if tt.wantErr {
				var confErr *ConfigurationError
				require.ErrorAs(t, err, &confErr)
				assert.Equal(t, "confidence_threshold", confErr.Field)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPolicyMembership(t *testing.T) {
	cfg := Config{
		AlwaysMaskTypes:       []string{"SSN"},
		ConditionalMaskTypes:  []string{"ZIP_CODE"},
		SensitiveTriggerTypes: []string{"CREDIT_SCORE"},
	}
	p := cfg.policy()

	assert.True(t, p.alwaysMask["SSN"])
	assert.False(t, p.alwaysMask["ZIP_CODE"])
	assert.True(t, p.conditionalMask["ZIP_CODE"])
	assert.True(t, p.sensitiveTrigger["CREDIT_SCORE"])
	assert.False(t, p.sensitiveTrigger["SSN"])
}
