// Package store persists users, answered runs, HR documents and tool cards
// in Postgres. Vector search happens in memory (internal/knowledge); the
// database only keeps document embeddings so the index can be rebuilt on boot.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"

	core "github.com/hrdesk-ai/hrdesk/internal/agent/core"
	"github.com/hrdesk-ai/hrdesk/internal/knowledge"
)

type Store struct {
	DB *sql.DB
}

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// Run is a persisted question/answer run. ReasoningTrace is only populated
// by GetRun; listings leave it nil to keep history responses small.
type Run struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Query          string    `json:"query"`
	Topic          string    `json:"topic,omitempty"`
	QueryType      string    `json:"query_type"`
	Answer         string    `json:"answer"`
	Confidence     float64   `json:"confidence"`
	Sources        []string  `json:"sources"`
	ToolsUsed      []string  `json:"tools_used"`
	ReasoningTrace []string  `json:"reasoning_trace,omitempty"`
	Iterations     int       `json:"iterations"`
	TokensUsed     int64     `json:"tokens_used"`
	CostEstimate   float64   `json:"cost_estimate"`
	ProcessingMS   int64     `json:"processing_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// SaveRun records a completed orchestrator run for a user and returns the
// generated run id.
func (s *Store) SaveRun(ctx context.Context, userID string, res core.RunResult) (string, error) {
	trace, err := json.Marshal(emptyIfNil(res.ReasoningTrace))
	if err != nil {
		return "", fmt.Errorf("marshal reasoning trace: %w", err)
	}
	var id string
	err = s.DB.QueryRowContext(ctx, `
INSERT INTO runs (user_id, query, topic, query_type, answer, confidence, sources, tools_used, reasoning_trace, iterations, tokens_used, cost_estimate, processing_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING id`,
		userID, res.Query, res.Topic, res.QueryType, res.Answer, res.Confidence,
		pq.Array(emptyIfNil(res.Sources)), pq.Array(emptyIfNil(res.ToolsUsed)), trace,
		res.Iterations, res.TokensUsed, res.CostEstimate, res.ProcessingTime.Milliseconds(),
	).Scan(&id)
	return id, err
}

// ListRuns returns a user's run history, newest first. limit <= 0 means the
// default page of 50.
func (s *Store) ListRuns(ctx context.Context, userID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, query, topic, query_type, answer, confidence, sources, tools_used, iterations, tokens_used, cost_estimate, processing_ms, created_at
FROM runs
WHERE user_id=$1
ORDER BY created_at DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.UserID, &r.Query, &r.Topic, &r.QueryType, &r.Answer, &r.Confidence,
			pq.Array(&r.Sources), pq.Array(&r.ToolsUsed), &r.Iterations, &r.TokensUsed, &r.CostEstimate,
			&r.ProcessingMS, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun fetches one run with its full reasoning trace, scoped to the owner.
func (s *Store) GetRun(ctx context.Context, id, userID string) (Run, bool, error) {
	var r Run
	var trace []byte
	row := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, query, topic, query_type, answer, confidence, sources, tools_used, reasoning_trace, iterations, tokens_used, cost_estimate, processing_ms, created_at
FROM runs
WHERE id=$1 AND user_id=$2`, id, userID)
	if err := row.Scan(&r.ID, &r.UserID, &r.Query, &r.Topic, &r.QueryType, &r.Answer, &r.Confidence,
		pq.Array(&r.Sources), pq.Array(&r.ToolsUsed), &trace, &r.Iterations, &r.TokensUsed, &r.CostEstimate,
		&r.ProcessingMS, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	if len(trace) > 0 {
		if err := json.Unmarshal(trace, &r.ReasoningTrace); err != nil {
			return Run{}, false, fmt.Errorf("decode reasoning trace: %w", err)
		}
	}
	return r, true, nil
}

// Document operations. hr_documents rows feed the in-memory knowledge index;
// embeddings are stored as JSONB so reindexing does not re-embed unchanged
// documents.

// UpsertDocument inserts or updates an HR document and returns its id.
// Updating re-writes the embedding from the given document, so callers that
// change content should pass a nil embedding to force re-embedding on the
// next refresh.
func (s *Store) UpsertDocument(ctx context.Context, doc knowledge.Document) (string, error) {
	emb, err := embeddingParam(doc.Embedding)
	if err != nil {
		return "", err
	}
	var id string
	if doc.ID == "" {
		err = s.DB.QueryRowContext(ctx, `
INSERT INTO hr_documents (title, topic, content, source, embedding, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW())
RETURNING id`, doc.Title, doc.Topic, doc.Content, doc.Source, emb).Scan(&id)
		return id, err
	}
	err = s.DB.QueryRowContext(ctx, `
INSERT INTO hr_documents (id, title, topic, content, source, embedding, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  topic = EXCLUDED.topic,
  content = EXCLUDED.content,
  source = EXCLUDED.source,
  embedding = EXCLUDED.embedding,
  updated_at = NOW()
RETURNING id`, doc.ID, doc.Title, doc.Topic, doc.Content, doc.Source, emb).Scan(&id)
	return id, err
}

// ListDocuments returns documents for a topic, or every document when topic
// is empty. Satisfies knowledge.DocumentStore.
func (s *Store) ListDocuments(ctx context.Context, topic string) ([]knowledge.Document, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, title, topic, content, source, embedding, updated_at
FROM hr_documents
WHERE ($1 = '' OR topic = $1)
ORDER BY updated_at DESC`, topic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []knowledge.Document
	for rows.Next() {
		var d knowledge.Document
		var emb []byte
		if err := rows.Scan(&d.ID, &d.Title, &d.Topic, &d.Content, &d.Source, &emb, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if len(emb) > 0 {
			if err := json.Unmarshal(emb, &d.Embedding); err != nil {
				return nil, fmt.Errorf("decode embedding %s: %w", d.ID, err)
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveDocumentEmbedding persists a freshly computed vector. Satisfies
// knowledge.DocumentStore.
func (s *Store) SaveDocumentEmbedding(ctx context.Context, id string, embedding []float32) error {
	emb, err := embeddingParam(embedding)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE hr_documents SET embedding=$2 WHERE id=$1`, id, emb)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	} else if err != nil {
		return err
	}
	return nil
}

// CountDocuments reports how many documents are stored, optionally per topic.
func (s *Store) CountDocuments(ctx context.Context, topic string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM hr_documents WHERE ($1 = '' OR topic = $1)`, topic).Scan(&n)
	return n, err
}

// ClearEmbeddings drops every stored vector so the next refresh re-embeds the
// whole corpus. Used by `hrdesk reindex` after an embedding-model change.
func (s *Store) ClearEmbeddings(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `UPDATE hr_documents SET embedding = NULL`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ToolCardRecord is the persisted form of a capability ToolCard.
type ToolCardRecord struct {
	Name         string
	Version      string
	Description  string
	InputSchema  []byte
	OutputSchema []byte
	CostEstimate float64
	SideEffects  []byte
	Checksum     string
	Signature    string
	CreatedAt    time.Time
}

func (s *Store) UpsertToolCard(ctx context.Context, tc ToolCardRecord) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO tool_registry (name, version, description, input_schema, output_schema, cost_estimate, side_effects, checksum, signature, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
ON CONFLICT (name, version) DO UPDATE SET
  description = EXCLUDED.description,
  input_schema = EXCLUDED.input_schema,
  output_schema = EXCLUDED.output_schema,
  cost_estimate = EXCLUDED.cost_estimate,
  side_effects = EXCLUDED.side_effects,
  checksum = EXCLUDED.checksum,
  signature = EXCLUDED.signature;
`, tc.Name, tc.Version, tc.Description, tc.InputSchema, tc.OutputSchema, tc.CostEstimate, tc.SideEffects, tc.Checksum, tc.Signature)
	return err
}

// ListToolCards returns all registered ToolCards.
func (s *Store) ListToolCards(ctx context.Context) ([]ToolCardRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT name, version, description, input_schema, output_schema, cost_estimate, side_effects, checksum, signature, created_at FROM tool_registry ORDER BY name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ToolCardRecord
	for rows.Next() {
		var rec ToolCardRecord
		if err := rows.Scan(&rec.Name, &rec.Version, &rec.Description, &rec.InputSchema, &rec.OutputSchema, &rec.CostEstimate, &rec.SideEffects, &rec.Checksum, &rec.Signature, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetToolCard fetches a ToolCard by name/version.
func (s *Store) GetToolCard(ctx context.Context, name, version string) (ToolCardRecord, bool, error) {
	var rec ToolCardRecord
	row := s.DB.QueryRowContext(ctx, `SELECT name, version, description, input_schema, output_schema, cost_estimate, side_effects, checksum, signature, created_at FROM tool_registry WHERE name=$1 AND version=$2`, name, version)
	if err := row.Scan(&rec.Name, &rec.Version, &rec.Description, &rec.InputSchema, &rec.OutputSchema, &rec.CostEstimate, &rec.SideEffects, &rec.Checksum, &rec.Signature, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return ToolCardRecord{}, false, nil
		}
		return ToolCardRecord{}, false, err
	}
	return rec, true, nil
}

// embeddingParam renders a vector as JSONB, mapping empty to SQL NULL so the
// refresher can tell "never embedded" from "embedded with a zero vector".
func embeddingParam(vec []float32) (interface{}, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	return b, nil
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
