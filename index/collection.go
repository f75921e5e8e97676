// ABOUTME: SQLite-backed vector collection storing transcript chunks with embeddings.
// ABOUTME: Brute-force cosine search over stored vectors; scales to the tens of thousands of chunks a chatbot holds.
package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/tubular-ai/tubular/chunk"
)

// VideoMeta is the per-video metadata attached to every stored chunk.
type VideoMeta struct {
	VideoID string `json:"video_id"`
	URL     string `json:"source"`
	Title   string `json:"title"`
}

// Result is one nearest-neighbor hit.
type Result struct {
	Text       string    `json:"text"`
	Meta       VideoMeta `json:"metadata"`
	ChunkIndex int       `json:"chunk_id"`
	Distance   float64   `json:"distance"`
	Similarity float64   `json:"similarity"`
}

// Stats summarizes collection contents.
type Stats struct {
	TotalDocuments int      `json:"total_documents"`
	UniqueVideos   int      `json:"unique_videos"`
	VideoIDs       []string `json:"video_ids"`
}

// Collection is a persistent vector store backed by a single SQLite file,
// typically living inside the current run directory.
type Collection struct {
	db *sql.DB
}

// Open opens (or creates) a collection database at path.
func Open(path string) (*Collection, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			video_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_video ON chunks(video_id);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Collection{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Collection) Close() error {
	return c.db.Close()
}

// Add stores chunks with their embeddings under the video's metadata.
// chunks and embeddings must be parallel slices. Returns the number stored.
func (c *Collection) Add(ctx context.Context, meta VideoMeta, chunks []chunk.Chunk, embeddings [][]float32) (int, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks to add")
	}
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("%d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, video_id, chunk_index, text, embedding, url, title)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, ch := range chunks {
		id := ulid.Make().String()
		if _, err := stmt.ExecContext(ctx, id, meta.VideoID, ch.Index, ch.Text,
			encodeVector(embeddings[i]), meta.URL, meta.Title); err != nil {
			return 0, fmt.Errorf("insert chunk %d: %w", ch.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(chunks), nil
}

// Search returns the k chunks nearest to the query embedding by cosine
// distance, nearest first.
func (c *Collection) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT text, video_id, chunk_index, url, title, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var blob []byte
		if err := rows.Scan(&r.Text, &r.Meta.VideoID, &r.ChunkIndex, &r.Meta.URL, &r.Meta.Title, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}

		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for chunk: %w", err)
		}
		if len(vec) != len(query) {
			continue // stale row from a different embedding model
		}

		r.Similarity = cosineSimilarity(query, vec)
		r.Distance = 1 - r.Similarity
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	// Partial sort would do; corpus sizes keep a full sort cheap.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Distance < results[j-1].Distance; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Stats returns document totals and the distinct video IDs present.
func (c *Collection) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	n, err := c.Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalDocuments = n

	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT video_id FROM chunks ORDER BY video_id`)
	if err != nil {
		return stats, fmt.Errorf("query video IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return stats, fmt.Errorf("scan video ID: %w", err)
		}
		stats.VideoIDs = append(stats.VideoIDs, id)
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	stats.UniqueVideos = len(stats.VideoIDs)
	return stats, nil
}

// DeleteVideo removes every chunk belonging to videoID, returning how many
// rows were deleted.
func (c *Collection) DeleteVideo(ctx context.Context, videoID string) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM chunks WHERE video_id = ?`, videoID)
	if err != nil {
		return 0, fmt.Errorf("delete video %s: %w", videoID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Reset drops every chunk in the collection.
func (c *Collection) Reset(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("reset collection: %w", err)
	}
	return nil
}

// encodeVector packs a float32 slice into little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks little-endian bytes into a float32 slice.
func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}

// cosineSimilarity computes the cosine of the angle between a and b.
// Zero vectors yield similarity 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
