package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists memories in a SQLite database. Similarity search
// loads candidate embeddings and ranks them in process, which is fine at
// the store sizes this system targets.
type SQLiteStore struct {
	db       *sql.DB
	mu       sync.RWMutex
	embedder Embedder
}

// NewSQLiteStore opens or creates the database at path. A nil embedder
// defaults to the deterministic hash embedder.
func NewSQLiteStore(path string, embedder Embedder) (*SQLiteStore, error) {
	if embedder == nil {
		embedder = NewHashEmbedder(0)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db, embedder: embedder}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		memory_type TEXT NOT NULL,
		metadata TEXT,
		embedding BLOB,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddMemory stores an entry with its embedding.
func (s *SQLiteStore) AddMemory(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	vec, err := s.embedder.Embed(ctx, e.Content)
	if err != nil {
		return "", fmt.Errorf("failed to embed memory: %w", err)
	}

	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO memories (id, user_id, content, memory_type, metadata, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Content, string(e.MemoryType), string(metaJSON),
		encodeVector(vec), e.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert memory: %w", err)
	}
	return e.ID, nil
}

// SearchMemories ranks stored entries by cosine similarity to the query.
func (s *SQLiteStore) SearchMemories(ctx context.Context, q Query) (Result, error) {
	start := time.Now()
	q = q.withDefaults()

	qvec, err := s.embedder.Embed(ctx, q.Query)
	if err != nil {
		return Result{}, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, user_id, content, memory_type, metadata, embedding, created_at FROM memories`
	args := []any{}
	if q.UserID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, q.UserID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var matched []Entry
	for rows.Next() {
		e, vec, err := scanEntry(rows)
		if err != nil {
			return Result{}, err
		}
		sim := Cosine(qvec, vec)
		if sim < q.SimilarityThreshold {
			continue
		}
		e.Similarity = sim
		matched = append(matched, e)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("failed to scan memories: %w", err)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Similarity > matched[j].Similarity })
	total := len(matched)
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return Result{Memories: matched, TotalCount: total, QueryTime: time.Since(start)}, nil
}

// GetUserMemories returns the user's most recent entries.
func (s *SQLiteStore) GetUserMemories(ctx context.Context, userID string, limit int) (Result, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, content, memory_type, metadata, embedding, created_at
		 FROM memories WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var matched []Entry
	for rows.Next() {
		e, _, err := scanEntry(rows)
		if err != nil {
			return Result{}, err
		}
		matched = append(matched, e)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("failed to scan memories: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return Result{}, fmt.Errorf("failed to count memories: %w", err)
	}
	return Result{Memories: matched, TotalCount: total, QueryTime: time.Since(start)}, nil
}

func scanEntry(rows *sql.Rows) (Entry, []float32, error) {
	var e Entry
	var memType, metaJSON string
	var blob []byte
	if err := rows.Scan(&e.ID, &e.UserID, &e.Content, &memType, &metaJSON, &blob, &e.CreatedAt); err != nil {
		return Entry{}, nil, fmt.Errorf("failed to scan memory row: %w", err)
	}
	e.MemoryType = Type(memType)
	if metaJSON != "" && metaJSON != "null" {
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			return Entry{}, nil, fmt.Errorf("failed to parse memory metadata: %w", err)
		}
	}
	return e, decodeVector(blob), nil
}

// Embeddings are stored as little-endian float32 blobs.

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
