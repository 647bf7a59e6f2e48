// Package vectorindex keeps program summaries searchable by meaning.
// Embeddings are stored as JSON next to the summary in SQLite and ranked by cosine similarity;
// without an embedder, or when embedding fails, search falls back to keyword overlap.
package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"fitcoach/programgen/internal/generation"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var ErrDimensionMismatch = errors.New("vector dimensions do not match")

// Record is one indexed program summary.
type Record struct {
	ID       string // program id
	OwnerID  string
	Text     string
	Metadata map[string]any
}

// Match is a search hit.
type Match struct {
	Record
	Score float64
}

// Index receives summaries and answers similarity queries scoped to an owner.
type Index interface {
	Upsert(ctx context.Context, rec Record) error
	Search(ctx context.Context, ownerID, query string, limit int) ([]Match, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS vectors (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT,
	metadata TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_vectors_owner ON vectors(owner_id);
`

// SQLiteIndex implements Index on a local SQLite database.
type SQLiteIndex struct {
	mu       sync.RWMutex
	db       *sql.DB
	embedder generation.Embedder // nil means keyword search only
	logger   *zap.Logger
}

// Open creates or opens the index at path (":memory:" for an in-process index).
func Open(path string, embedder generation.Embedder, logger *zap.Logger) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	return &SQLiteIndex{db: db, embedder: embedder, logger: logger}, nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// Upsert stores rec, replacing any earlier record with the same id.
func (s *SQLiteIndex) Upsert(ctx context.Context, rec Record) error {
	var embeddingJSON sql.NullString
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, rec.Text)
		if err != nil {
			// keep the record searchable by keyword
			s.logger.Warn("embedding failed, storing keyword-only record",
				zap.String("id", rec.ID), zap.Error(err))
		} else {
			b, err := json.Marshal(vec)
			if err != nil {
				return fmt.Errorf("failed to serialize embedding: %w", err)
			}
			embeddingJSON = sql.NullString{String: string(b), Valid: true}
		}
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vectors (id, owner_id, content, embedding, metadata) VALUES (?, ?, ?, ?, ?)",
		rec.ID, rec.OwnerID, rec.Text, embeddingJSON, string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store vector %s: %w", rec.ID, err)
	}
	return nil
}

// Search ranks the owner's records against query, best first.
func (s *SQLiteIndex) Search(ctx context.Context, ownerID, query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 5
	}
	var queryVec []float32
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, query)
		if err != nil {
			s.logger.Warn("query embedding failed, using keyword search", zap.Error(err))
		} else {
			queryVec = vec
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, content, embedding, metadata FROM vectors WHERE owner_id = ?", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	terms := keywords(query)
	var matches []Match
	for rows.Next() {
		var m Match
		var embeddingJSON sql.NullString
		var metaJSON string
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Text, &embeddingJSON, &metaJSON); err != nil {
			return nil, err
		}
		if metaJSON != "" {
			_ = json.Unmarshal([]byte(metaJSON), &m.Metadata)
		}

		m.Score = -1
		if queryVec != nil && embeddingJSON.Valid {
			var vec []float32
			if err := json.Unmarshal([]byte(embeddingJSON.String), &vec); err == nil {
				if sim, err := CosineSimilarity(queryVec, vec); err == nil {
					m.Score = sim
				}
			}
		}
		if m.Score < 0 {
			m.Score = keywordScore(terms, m.Text)
		}
		if m.Score > 0 {
			matches = append(matches, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, ErrDimensionMismatch
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

func keywords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

// keywordScore is the share of query terms present in text.
func keywordScore(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	text = strings.ToLower(text)
	hits := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
