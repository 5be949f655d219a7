// Package patterns provides the embedded default recognizer definitions.
// The YAML uses a reduced Presidio-compatible recognizer format; entity
// types are the uppercase names used in placeholders ("[EMAIL]").
package patterns

import _ "embed"

//go:embed pii_default.yaml
var piiDefaultYAML []byte

// PIIDefaultYAML returns the embedded default PII recognizer definitions.
func PIIDefaultYAML() []byte { return piiDefaultYAML }
