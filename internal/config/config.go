// Package config holds operator-level configuration for a guardian process:
// data directory, audit signing key, recognition-model endpoint, server
// settings, and the detection defaults handed to the pii pipeline.
//
// Values come from env vars with the GUARDIAN_ prefix (e.g. GUARDIAN_DATA_DIR)
// or a guardian.config.yaml file, merged by viper. Per-call detection settings
// can still be overridden programmatically through pii.Config.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dativo-io/guardian/pii"
)

// Viper keys. Each maps to an env var with the GUARDIAN_ prefix
// (e.g. "signing_key" -> GUARDIAN_SIGNING_KEY) and to a YAML field
// in guardian.config.yaml.
const (
	KeyDataDir           = "data_dir"
	KeySigningKey        = "signing_key"
	KeyListenAddr        = "listen_addr"
	KeyRetentionDays     = "audit_retention_days"
	KeyModelBaseURL      = "model_base_url"
	KeyModelID           = "model_id"
	KeyConfidence        = "confidence_threshold"
	KeyEnableRegex       = "enable_regex"
	KeyEnableModel       = "enable_model"
	KeyAlwaysMask        = "always_mask_types"
	KeyConditionalMask   = "conditional_mask_types"
	KeySensitiveTrigger  = "sensitive_trigger_types"
	KeyPatternFile       = "pattern_file"
	KeyRequestsPerMinute = "requests_per_minute"
)

// Defaults that do not involve crypto material. The signing key has no
// baked-in default; when unset we derive a per-machine fallback and warn.
const (
	DefaultListenAddr        = "127.0.0.1:8787"
	DefaultRetentionDays     = 90
	DefaultModelBaseURL      = "http://localhost:11434/v1"
	DefaultRequestsPerMinute = 120
)

// Config is the resolved operator configuration for a guardian process.
type Config struct {
	DataDir           string // Base directory for all state (~/.guardian)
	SigningKey        string // HMAC-SHA256 key for audit signing (>=32 bytes)
	ListenAddr        string // HTTP API listen address
	RetentionDays     int    // Audit records older than this are pruned
	ModelBaseURL      string // OpenAI-compatible endpoint for the NER model
	PatternFile       string // Optional recognizer override file
	RequestsPerMinute int    // Per-client HTTP rate limit

	pipeline pii.Config

	usingDefaultSigningKey bool
}

// Pipeline returns the detection/redaction settings for pii.New.
func (c *Config) Pipeline() pii.Config { return c.pipeline }

// UsingDefaultSigningKey reports whether the signing key was derived rather
// than set explicitly. Commands should warn when this is the case.
func (c *Config) UsingDefaultSigningKey() bool { return c.usingDefaultSigningKey }

// AuditDBPath returns the full path to the audit SQLite database.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKey logs a warning when the signing key is not explicitly set.
func (c *Config) WarnIfDefaultKey() {
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default GUARDIAN_SIGNING_KEY; set via env var or config file for production")
	}
}

func init() {
	viper.SetEnvPrefix("GUARDIAN")
	viper.AutomaticEnv()
	viper.SetDefault(KeyListenAddr, DefaultListenAddr)
	viper.SetDefault(KeyRetentionDays, DefaultRetentionDays)
	viper.SetDefault(KeyModelBaseURL, DefaultModelBaseURL)
	viper.SetDefault(KeyRequestsPerMinute, DefaultRequestsPerMinute)
	viper.SetDefault(KeyConfidence, pii.DefaultConfidenceThreshold)
	viper.SetDefault(KeyEnableRegex, true)
	viper.SetDefault(KeyEnableModel, false)
	viper.SetDefault(KeyModelID, "llama3.1")
	viper.SetDefault(KeyAlwaysMask, strings.Join(pii.DefaultAlwaysMaskTypes, ","))
	viper.SetDefault(KeyConditionalMask, strings.Join(pii.DefaultConditionalMaskTypes, ","))
	viper.SetDefault(KeySensitiveTrigger, strings.Join(pii.DefaultSensitiveTriggerTypes, ","))
}

// Load reads configuration from viper (env vars, config file, defaults) and
// returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:           resolveDataDir(),
		SigningKey:        viper.GetString(KeySigningKey),
		ListenAddr:        viper.GetString(KeyListenAddr),
		RetentionDays:     viper.GetInt(KeyRetentionDays),
		ModelBaseURL:      viper.GetString(KeyModelBaseURL),
		PatternFile:       viper.GetString(KeyPatternFile),
		RequestsPerMinute: viper.GetInt(KeyRequestsPerMinute),
		pipeline: pii.Config{
			ConfidenceThreshold:   viper.GetFloat64(KeyConfidence),
			EnableRegex:           viper.GetBool(KeyEnableRegex),
			EnableModel:           viper.GetBool(KeyEnableModel),
			ModelID:               viper.GetString(KeyModelID),
			AlwaysMaskTypes:       splitTypes(viper.GetString(KeyAlwaysMask)),
			ConditionalMaskTypes:  splitTypes(viper.GetString(KeyConditionalMask)),
			SensitiveTriggerTypes: splitTypes(viper.GetString(KeySensitiveTrigger)),
		},
	}

	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "audit-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".guardian"
	}
	return filepath.Join(home, ".guardian")
}

// splitTypes parses a comma-separated type list, trimming whitespace and
// dropping empty segments.
func splitTypes(s string) []string {
	var types []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. NOT cryptographically strong; it exists so
// `guardian serve` works out of the box while still signing audit records
// with a per-machine-unique key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("guardian:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if err := c.pipeline.Validate(); err != nil {
		return err
	}
	if len(c.SigningKey) < 32 {
		return fmt.Errorf("signing_key must be at least 32 bytes (got %d); set GUARDIAN_SIGNING_KEY", len(c.SigningKey))
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("audit_retention_days must be positive")
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}
	return nil
}
