// Package pii detects and redacts personally identifiable information in
// text. Detection runs up to three independent layers (regex patterns, an
// optional recognition model, and code rules), overlapping candidates are
// resolved into a non-overlapping set, and a tiered disclosure policy decides
// which spans are actually masked before the text is rewritten with
// type-tagged placeholders such as "[EMAIL]".
package pii

// Detection methods, recorded on each entity for the audit trail.
const (
	MethodPattern = "pattern"
	MethodModel   = "model"
	MethodRule    = "rule"
)

// Entity is a detected PII span. Offsets are half-open character positions
// into the original input text (0 <= Start < End <= len(text)). Entities are
// value objects: a detection layer creates one and nothing mutates it after.
type Entity struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// AuditRecord describes a single redaction (or, in batch processing, the
// failure that replaced one item's result).
type AuditRecord struct {
	Type        string  `json:"type"`
	Placeholder string  `json:"placeholder"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Confidence  float64 `json:"confidence"`
	Method      string  `json:"method"`
	Error       string  `json:"error,omitempty"`
}

// ProtectionResult is the immutable outcome of one Protect call.
type ProtectionResult struct {
	// Text is the redacted copy of the input.
	Text string `json:"text"`
	// Count is the number of approved (masked) entities. A batch item that
	// failed carries the sentinel value -1.
	Count int `json:"pii_count"`
	// Entities are the approved entities, ascending by original Start.
	Entities []Entity `json:"entities"`
	// RedactionMap maps each masked substring to its placeholder. When the
	// same literal substring was masked more than once, the last write in
	// processing order wins; the map records an example mapping, not a
	// multiset.
	RedactionMap map[string]string `json:"redaction_map"`
	// AuditLog holds one record per approved entity, in redaction
	// (descending-start) processing order.
	AuditLog []AuditRecord `json:"audit_log"`
}

// IsSafe reports whether no PII was masked.
func (r *ProtectionResult) IsSafe() bool { return r.Count == 0 }

// HasPII reports whether at least one entity was masked.
func (r *ProtectionResult) HasPII() bool { return r.Count > 0 }
