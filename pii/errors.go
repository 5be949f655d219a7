package pii

import "fmt"

// ConfigurationError reports an invalid configuration at construction time.
// It is fatal and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ProtectionError wraps an unexpected failure inside the protect pipeline.
// Per-layer failures (a bad pattern, an unavailable recognition model) are
// absorbed before this point; a ProtectionError means the whole call failed.
type ProtectionError struct {
	Op  string
	Err error
}

func (e *ProtectionError) Error() string {
	return fmt.Sprintf("protection failed during %s: %v", e.Op, e.Err)
}

func (e *ProtectionError) Unwrap() error { return e.Err }
