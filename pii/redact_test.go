package pii

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEntitiesOffsetSafety(t *testing.T) {
	// Placeholders are longer and shorter than what they replace; offsets of
	// unprocessed spans must survive every splice.
	text := "SSN: 123-45-6789, zip 10001."
	approved := []Entity{
		entity("SSN", "123-45-6789", 5, 0.95),
		entity("ZIP_CODE", "10001", 22, 0.95),
	}

	out := redactEntities(text, approved)
	assert.Equal(t, "SSN: [SSN], zip [ZIP_CODE].", out.text)
	assert.Equal(t, 2, out.count)
}

func TestRedactEntitiesPlaceholderFormat(t *testing.T) {
	text := "contact a@b.com"
	out := redactEntities(text, []Entity{entity("email", "a@b.com", 8, 0.95)})

	// Type names are uppercased in placeholders.
	assert.Equal(t, "contact [EMAIL]", out.text)
	assert.Equal(t, "[EMAIL]", out.redactionMap["a@b.com"])
}

func TestRedactEntitiesNoApproved(t *testing.T) {
	text := "nothing sensitive here"
	out := redactEntities(text, nil)

	assert.Equal(t, text, out.text)
	assert.Zero(t, out.count)
	assert.Empty(t, out.redactionMap)
	assert.Empty(t, out.auditLog)
}

func TestRedactEntitiesAuditOrderAndContent(t *testing.T) {
	text := "a@b.com then 123-45-6789"
	approved := []Entity{
		{Type: "EMAIL", Text: "a@b.com", Start: 0, End: 7, Confidence: 0.95, Method: MethodPattern},
		{Type: "SSN", Text: "123-45-6789", Start: 13, End: 24, Confidence: 0.95, Method: MethodPattern},
	}

	out := redactEntities(text, approved)
	require.Len(t, out.auditLog, 2)

	// Audit records follow descending-start processing order.
	assert.Equal(t, "SSN", out.auditLog[0].Type)
	assert.Equal(t, "EMAIL", out.auditLog[1].Type)

	rec := out.auditLog[0]
	assert.Equal(t, "[SSN]", rec.Placeholder)
	assert.Equal(t, 13, rec.Start)
	assert.Equal(t, 24, rec.End)
	assert.Equal(t, 0.95, rec.Confidence)
	assert.Equal(t, MethodPattern, rec.Method)
}

func TestRedactEntitiesDuplicateSubstringLastWriteWins(t *testing.T) {
	text := "90210 and 90210"
	approved := []Entity{
		entity("ZIP_CODE", "90210", 0, 0.95),
		entity("ZIP_CODE", "90210", 10, 0.95),
	}

	out := redactEntities(text, approved)
	assert.Equal(t, "[ZIP_CODE] and [ZIP_CODE]", out.text)
	// One key, two redactions: the map is an example mapping, count is not.
	assert.Len(t, out.redactionMap, 1)
	assert.Equal(t, 2, out.count)
}

func TestRedactEntitiesCountIsPerEntity(t *testing.T) {
	text := strings.Repeat("a@b.com ", 3)
	approved := []Entity{
		entity("EMAIL", "a@b.com", 0, 0.95),
		entity("EMAIL", "a@b.com", 8, 0.95),
		entity("EMAIL", "a@b.com", 16, 0.95),
	}

	out := redactEntities(text, approved)
	assert.Equal(t, 3, out.count)
	assert.Equal(t, "[EMAIL] [EMAIL] [EMAIL] ", out.text)
}
