// Package postgres mirrors the consolidated atom store and topic registry
// into Postgres for callers that want SQL access over the project's atoms
// and assignments, alongside the canonical JSONL files (which remain the
// source of truth). Grounded on the teacher's
// internal/persistence/databases/postgres_search.go bootstrap-table and
// upsert pattern, adapted from full-text documents to atoms/assignments.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ckexporter/internal/atoms"
	"ckexporter/internal/topics"
)

// Store is an optional durable mirror of the project's consolidated atom
// store and topic assignments. A nil *Store is safe to call on (every
// method no-ops), so callers can wire it unconditionally and only pay for
// it when Postgres is configured.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres at dsn and ensures the schema exists. Pass an
// empty dsn to get a nil *Store (Postgres mirroring disabled).
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ck_atoms (
			kind TEXT NOT NULL,
			topic TEXT NOT NULL DEFAULT '',
			statement_norm TEXT NOT NULL,
			statement TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			status_confidence TEXT NOT NULL DEFAULT '',
			extracted_at TEXT NOT NULL DEFAULT '',
			evidence JSONB NOT NULL DEFAULT '[]'::jsonb,
			meta JSONB NOT NULL DEFAULT '{}'::jsonb,
			PRIMARY KEY (kind, topic, statement_norm)
		)`,
		`CREATE TABLE IF NOT EXISTS ck_topics (
			topic_id INT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
			representative_conversation_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
			centroid_embedding JSONB NOT NULL DEFAULT '[]'::jsonb,
			generated_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS ck_assignments (
			conversation_id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			project_id TEXT NOT NULL DEFAULT '',
			project_name TEXT NOT NULL DEFAULT '',
			atom_count INT NOT NULL DEFAULT 0,
			topics JSONB NOT NULL DEFAULT '[]'::jsonb,
			review_flag BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertAtoms upserts one ck_atoms row per atom in atomList, keyed by the
// atom's composite key. Rows whose key is not in atomList are left in place.
func (s *Store) UpsertAtoms(ctx context.Context, atomList []atoms.Atom) error {
	if s == nil {
		return nil
	}
	for _, a := range atomList {
		key := a.Key()
		evidence, err := json.Marshal(a.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence: %w", err)
		}
		meta := a.Meta
		if len(meta) == 0 {
			meta = []byte("{}")
		}
		_, err = s.pool.Exec(ctx, `
INSERT INTO ck_atoms (kind, topic, statement_norm, statement, status, status_confidence, extracted_at, evidence, meta)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (kind, topic, statement_norm) DO UPDATE SET
	statement=EXCLUDED.statement, status=EXCLUDED.status, status_confidence=EXCLUDED.status_confidence,
	extracted_at=EXCLUDED.extracted_at, evidence=EXCLUDED.evidence, meta=EXCLUDED.meta
`, string(key.Kind), key.Topic, key.Statement, a.Statement, a.Status, string(a.StatusConfidence), a.ExtractedAt, evidence, meta)
		if err != nil {
			return fmt.Errorf("upsert atom: %w", err)
		}
	}
	return nil
}

// UpsertTopicRegistry upserts one ck_topics row per topic in registry.
// Rows for topic ids not in registry are left in place.
func (s *Store) UpsertTopicRegistry(ctx context.Context, registry topics.Registry) error {
	if s == nil {
		return nil
	}
	for _, t := range registry.Topics {
		keywords, _ := json.Marshal(t.Keywords)
		reps, _ := json.Marshal(t.RepresentativeConvIDs)
		centroid, _ := json.Marshal(t.CentroidEmbedding)
		_, err := s.pool.Exec(ctx, `
INSERT INTO ck_topics (topic_id, name, description, keywords, representative_conversation_ids, centroid_embedding, generated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (topic_id) DO UPDATE SET
	name=EXCLUDED.name, description=EXCLUDED.description, keywords=EXCLUDED.keywords,
	representative_conversation_ids=EXCLUDED.representative_conversation_ids,
	centroid_embedding=EXCLUDED.centroid_embedding, generated_at=EXCLUDED.generated_at
`, t.TopicID, t.Name, t.Description, keywords, reps, centroid, registry.GeneratedAt)
		if err != nil {
			return fmt.Errorf("upsert topic: %w", err)
		}
	}
	return nil
}

// UpsertAssignments upserts one ck_assignments row per assignment. Rows
// for conversation ids not in assignments are left in place.
func (s *Store) UpsertAssignments(ctx context.Context, assignments []topics.Assignment) error {
	if s == nil {
		return nil
	}
	for _, a := range assignments {
		topicsJSON, err := json.Marshal(a.Topics)
		if err != nil {
			return fmt.Errorf("marshal topics: %w", err)
		}
		_, err = s.pool.Exec(ctx, `
INSERT INTO ck_assignments (conversation_id, title, project_id, project_name, atom_count, topics, review_flag)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (conversation_id) DO UPDATE SET
	title=EXCLUDED.title, project_id=EXCLUDED.project_id, project_name=EXCLUDED.project_name,
	atom_count=EXCLUDED.atom_count, topics=EXCLUDED.topics, review_flag=EXCLUDED.review_flag
`, a.ConversationID, a.Title, a.ProjectID, a.ProjectName, a.AtomCount, topicsJSON, a.ReviewFlag)
		if err != nil {
			return fmt.Errorf("upsert assignment: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool. Safe to call on a nil *Store.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.pool.Close()
}
