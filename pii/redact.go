package pii

import (
	"sort"
	"strings"
)

// redaction is the output of one redactEntities pass.
type redaction struct {
	text         string
	redactionMap map[string]string
	auditLog     []AuditRecord
	count        int
}

// redactEntities rewrites text for the approved entities and builds the audit
// trail. Entities are processed in descending Start order: splicing a
// replacement only shifts offsets after the replaced span, so right-to-left
// processing keeps every not-yet-processed span valid against the partially
// mutated string. Left-to-right would invalidate all later offsets after the
// first unequal-length replacement.
func redactEntities(text string, approved []Entity) redaction {
	out := redaction{
		text:         text,
		redactionMap: map[string]string{},
		auditLog:     []AuditRecord{},
		count:        len(approved),
	}
	if len(approved) == 0 {
		return out
	}

	ordered := append([]Entity(nil), approved...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start > ordered[j].Start
	})

	buf := []byte(text)
	for _, e := range ordered {
		placeholder := "[" + strings.ToUpper(e.Type) + "]"
		buf = append(buf[:e.Start], append([]byte(placeholder), buf[e.End:]...)...)

		out.redactionMap[e.Text] = placeholder
		out.auditLog = append(out.auditLog, AuditRecord{
			Type:        e.Type,
			Placeholder: placeholder,
			Start:       e.Start,
			End:         e.End,
			Confidence:  e.Confidence,
			Method:      e.Method,
		})
	}

	out.text = string(buf)
	return out
}
