package pii

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// RecognizerFile is the top-level YAML structure for a recognizer config file.
// Mirrors Presidio's recognizer registry format, reduced to the fields this
// library consumes.
type RecognizerFile struct {
	Recognizers []RecognizerConfig `yaml:"recognizers"`
}

// RecognizerConfig declares the regex patterns for one entity type.
type RecognizerConfig struct {
	Name            string          `yaml:"name" json:"name"`
	SupportedEntity string          `yaml:"supported_entity" json:"supported_entity"`
	Enabled         *bool           `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Patterns        []PatternConfig `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// PatternConfig is a single regex pattern within a recognizer.
type PatternConfig struct {
	Name  string `yaml:"name" json:"name"`
	Regex string `yaml:"regex" json:"regex"`
}

// isEnabled returns true if the recognizer is enabled (defaults to true when nil).
func (r *RecognizerConfig) isEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// CatalogEntry is one compiled matcher in the catalog. Matching is
// case-insensitive over the full text.
type CatalogEntry struct {
	Type    string
	Name    string
	Pattern *regexp.Regexp
}

// Catalog is the ordered pattern table the detector's regex layer evaluates.
// It is effectively immutable once built and safe for concurrent use.
type Catalog struct {
	entries []CatalogEntry
}

// Entries returns the compiled entries in catalog order.
func (c *Catalog) Entries() []CatalogEntry { return c.entries }

// Len returns the number of compiled entries.
func (c *Catalog) Len() int { return len(c.entries) }

// ParseRecognizerFile parses recognizer YAML bytes into a RecognizerFile.
func ParseRecognizerFile(data []byte) (*RecognizerFile, error) {
	var rf RecognizerFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	return &rf, nil
}

// LoadRecognizerFile reads and parses a recognizer YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing override file as a no-op.
func LoadRecognizerFile(path string) (*RecognizerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	return ParseRecognizerFile(data)
}

// MergeRecognizers performs a layered merge: embedded defaults, then a global
// override file, then caller-supplied custom recognizers. Later layers
// override earlier ones by matching on the recognizer Name field; new
// recognizers are appended, preserving first-seen order.
func MergeRecognizers(layers ...[]RecognizerConfig) []RecognizerConfig {
	index := make(map[string]int)
	var merged []RecognizerConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, rc)
			}
		}
	}

	return merged
}

// FilterByEntities applies enabled/disabled entity-type filters. A non-empty
// enabled list acts as a whitelist; the disabled list is then removed.
func FilterByEntities(recognizers []RecognizerConfig, enabled, disabled []string) []RecognizerConfig {
	result := recognizers

	if len(enabled) > 0 {
		allowed := toSet(enabled)
		var filtered []RecognizerConfig
		for _, rc := range result {
			if allowed[rc.SupportedEntity] {
				filtered = append(filtered, rc)
			}
		}
		result = filtered
	}

	if len(disabled) > 0 {
		blocked := toSet(disabled)
		var filtered []RecognizerConfig
		for _, rc := range result {
			if !blocked[rc.SupportedEntity] {
				filtered = append(filtered, rc)
			}
		}
		result = filtered
	}

	return result
}

// CompileCatalog compiles recognizer configs into the runtime catalog.
// Matching is forced case-insensitive. A malformed regex is logged and
// skipped; it never aborts compilation of the remaining patterns.
func CompileCatalog(recognizers []RecognizerConfig) *Catalog {
	var entries []CatalogEntry

	for _, rec := range recognizers {
		if !rec.isEnabled() {
			continue
		}
		entityType := strings.ToUpper(rec.SupportedEntity)
		for _, p := range rec.Patterns {
			compiled, err := regexp.Compile("(?i)" + p.Regex)
			if err != nil {
				log.Warn().
					Err(err).
					Str("recognizer", rec.Name).
					Str("pattern", p.Name).
					Msg("skipping malformed pattern")
				continue
			}
			entries = append(entries, CatalogEntry{
				Type:    entityType,
				Name:    p.Name,
				Pattern: compiled,
			})
		}
	}

	return &Catalog{entries: entries}
}
