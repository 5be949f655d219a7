// Package audit persists HMAC-signed audit records for protection runs.
//
// Each Protect invocation routed through the CLI or the HTTP API produces one
// Record summarizing what was masked. Records are signed (HMAC-SHA256) and
// stored in SQLite so that an operator can later prove what was redacted and
// detect tampering. Redaction map values are stored, original matched text is
// deliberately NOT persisted.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	guardianotel "github.com/dativo-io/guardian/internal/otel"
	"github.com/dativo-io/guardian/pii"
)

var tracer = guardianotel.Tracer("github.com/dativo-io/guardian/internal/audit")

// Store persists HMAC-signed audit records in SQLite.
type Store struct {
	db     *sql.DB
	signer *Signer
}

// Record is the persisted audit trail for a single protection run.
type Record struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"` // "cli", "http", "batch"
	PIICount  int               `json:"pii_count"`
	Types     []string          `json:"types,omitempty"`
	Entries   []pii.AuditRecord `json:"entries,omitempty"`
	Signature string            `json:"signature"`
}

// NewRecord builds an audit record from a protection result. The entries
// carry placeholders and spans, never the original matched text.
func NewRecord(source string, res *pii.ProtectionResult) *Record {
	entries := make([]pii.AuditRecord, len(res.AuditLog))
	copy(entries, res.AuditLog)

	seen := make(map[string]bool)
	var types []string
	for _, e := range res.Entities {
		if !seen[e.Type] {
			seen[e.Type] = true
			types = append(types, e.Type)
		}
	}

	return &Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		PIICount:  res.Count,
		Types:     types,
		Entries:   entries,
	}
}

// NewStore opens (creating if needed) the audit database.
func NewStore(dbPath string, signingKey string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS audit (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		source TEXT NOT NULL,
		pii_count INTEGER NOT NULL,
		record_json TEXT NOT NULL,
		signature TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_source ON audit(source);
	`

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	signer, err := NewSigner(signingKey)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}

	return &Store{db: db, signer: signer}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Store saves a record with an HMAC signature.
func (s *Store) Store(ctx context.Context, rec *Record) error {
	ctx, span := tracer.Start(ctx, "audit.store",
		trace.WithAttributes(
			attribute.String("audit.id", rec.ID),
			attribute.String("audit.source", rec.Source),
		))
	defer span.End()

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling audit record: %w", err)
	}

	signature, err := s.signer.Sign(recordJSON)
	if err != nil {
		return fmt.Errorf("signing audit record: %w", err)
	}

	rec.Signature = signature
	recordJSONWithSig, _ := json.Marshal(rec)

	query := `INSERT INTO audit (id, timestamp, source, pii_count, record_json, signature)
	          VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.Timestamp, rec.Source, rec.PIICount, string(recordJSONWithSig), signature,
	)
	if err != nil {
		return fmt.Errorf("storing audit record: %w", err)
	}

	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	ctx, span := tracer.Start(ctx, "audit.get",
		trace.WithAttributes(attribute.String("audit.id", id)))
	defer span.End()

	var recordJSON string
	query := `SELECT record_json FROM audit WHERE id = ?`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&recordJSON)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("audit record %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying audit record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling audit record: %w", err)
	}
	return &rec, nil
}

// List returns records matching the filters, newest first.
func (s *Store) List(ctx context.Context, source string, from, to time.Time, limit int) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "audit.list",
		trace.WithAttributes(attribute.String("audit.source", source)))
	defer span.End()

	query := `SELECT record_json FROM audit WHERE 1=1`
	args := []interface{}{}

	if source != "" {
		query += ` AND source = ?`
		args = append(args, source)
	}
	if !from.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, from)
	}
	if !to.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, to)
	}

	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling audit record: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// Verify recomputes the signature of a stored record and reports whether it
// matches. The signature column is checked against the record JSON with its
// signature field cleared, mirroring how Store signed it.
func (s *Store) Verify(ctx context.Context, id string) (bool, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	stored := rec.Signature
	rec.Signature = ""
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshaling audit record: %w", err)
	}

	return s.signer.Verify(recordJSON, stored), nil
}

// Prune deletes records older than cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "audit.prune")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM audit WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning audit records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("audit.pruned", n))
	return n, nil
}
