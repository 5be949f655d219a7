package pii

import "fmt"

// Default entity-type tiers. These mirror common compliance guidance:
// Tier 1 types identify a person on their own, Tier 2 types only do so in
// combination, and trigger types flag a sensitive context without being
// identifiers themselves.
var (
	// DefaultAlwaysMaskTypes are direct identifiers (Tier 1), masked
	// unconditionally whenever detected above the confidence threshold.
	DefaultAlwaysMaskTypes = []string{
		"EMAIL", "PHONE", "SSN", "CREDIT_CARD", "PASSPORT",
		"DRIVERS_LICENSE", "MEDICAL_RECORD", "IP_ADDRESS", "BANK_ACCOUNT",
	}

	// DefaultConditionalMaskTypes are quasi-identifiers (Tier 2), masked only
	// when a Tier 1 entity or a sensitive trigger is present in the same text.
	DefaultConditionalMaskTypes = []string{
		"PERSON", "DATE_OF_BIRTH", "ZIP_CODE", "STREET_ADDRESS",
	}

	// DefaultSensitiveTriggerTypes unlock Tier 2 masking by their presence
	// but are never masked themselves: redacting "prior felony conviction"
	// would destroy information the caller may need, while the link to an
	// identity is what must be suppressed.
	DefaultSensitiveTriggerTypes = []string{
		"CREDIT_SCORE", "CRIMINAL_HISTORY", "EVICTION_HISTORY",
	}
)

// DefaultConfidenceThreshold is the minimum confidence a resolved entity
// needs to survive the cut.
const DefaultConfidenceThreshold = 0.8

// Config controls detection layers and the tiered disclosure policy.
// The three type sets are disjoint by convention; this is not enforced.
type Config struct {
	// ConfidenceThreshold must be in [0,1]; construction fails otherwise.
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`

	// EnableRegex toggles the pattern layer.
	EnableRegex bool `json:"enable_regex" yaml:"enable_regex"`
	// EnableModel toggles the recognition-model layer. The layer also needs a
	// model handle supplied via WithModel; absence is non-fatal.
	EnableModel bool `json:"enable_model" yaml:"enable_model"`
	// ModelID names the recognition model to use when the model layer is on.
	ModelID string `json:"model_id" yaml:"model_id"`

	// AlwaysMaskTypes is the Tier 1 set (direct identifiers).
	AlwaysMaskTypes []string `json:"always_mask_types" yaml:"always_mask_types"`
	// ConditionalMaskTypes is the Tier 2 set (quasi-identifiers).
	ConditionalMaskTypes []string `json:"conditional_mask_types" yaml:"conditional_mask_types"`
	// SensitiveTriggerTypes unlock Tier 2 but are never masked themselves.
	SensitiveTriggerTypes []string `json:"sensitive_trigger_types" yaml:"sensitive_trigger_types"`
}

// DefaultConfig returns the built-in tiered configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:   DefaultConfidenceThreshold,
		EnableRegex:           true,
		EnableModel:           false,
		ModelID:               "llama3.1",
		AlwaysMaskTypes:       append([]string(nil), DefaultAlwaysMaskTypes...),
		ConditionalMaskTypes:  append([]string(nil), DefaultConditionalMaskTypes...),
		SensitiveTriggerTypes: append([]string(nil), DefaultSensitiveTriggerTypes...),
	}
}

// Validate checks constraints that must hold before a Guardian is built.
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return &ConfigurationError{
			Field:  "confidence_threshold",
			Reason: fmt.Sprintf("must be between 0 and 1, got %v", c.ConfidenceThreshold),
		}
	}
	return nil
}

// disclosurePolicy is the classifier's view of the config: membership sets
// instead of slices.
type disclosurePolicy struct {
	alwaysMask       map[string]bool
	conditionalMask  map[string]bool
	sensitiveTrigger map[string]bool
}

func (c Config) policy() disclosurePolicy {
	return disclosurePolicy{
		alwaysMask:       toSet(c.AlwaysMaskTypes),
		conditionalMask:  toSet(c.ConditionalMaskTypes),
		sensitiveTrigger: toSet(c.SensitiveTriggerTypes),
	}
}

func toSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
