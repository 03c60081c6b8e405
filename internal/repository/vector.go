package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/vea-labs/docpipe/internal/domain"
	"github.com/vea-labs/docpipe/internal/pagination"
)

// DocumentVectorRepository persists one averaged embedding per document,
// keyed by the content-derived dedup key. Re-ingesting unchanged content
// overwrites the prior row instead of accumulating duplicates.
type DocumentVectorRepository struct {
	db dbtx
}

func NewDocumentVectorRepository(pool *pgxpool.Pool) *DocumentVectorRepository {
	return &DocumentVectorRepository{db: pool}
}

func NewDocumentVectorRepositoryWithTx(tx pgx.Tx) *DocumentVectorRepository {
	return &DocumentVectorRepository{db: tx}
}

func (r *DocumentVectorRepository) Upsert(ctx context.Context, entry *domain.VectorEntry) error {
	if err := domain.ValidateVectorEntry(entry); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO document_vectors
			(dedup_key, document_id, embedding, content, filename, content_type,
			 upload_date, file_size, chunks_count, embeddings_generated, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (dedup_key) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			embedding = EXCLUDED.embedding,
			content = EXCLUDED.content,
			filename = EXCLUDED.filename,
			content_type = EXCLUDED.content_type,
			upload_date = EXCLUDED.upload_date,
			file_size = EXCLUDED.file_size,
			chunks_count = EXCLUDED.chunks_count,
			embeddings_generated = EXCLUDED.embeddings_generated,
			expires_at = EXCLUDED.expires_at`,
		entry.DedupKey,
		entry.DocumentID,
		pgvector.NewVector(entry.Embedding),
		entry.Text,
		entry.Filename,
		entry.ContentType,
		entry.UploadDate,
		entry.FileSize,
		entry.ChunksCount,
		entry.EmbeddingsGenerated,
		entry.ExpiresAt,
	)
	return err
}

// Search returns the topK nearest documents by cosine similarity, highest
// first. No score threshold is applied here.
func (r *DocumentVectorRepository) Search(ctx context.Context, embedding []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}

	vec := pgvector.NewVector(embedding)
	rows, err := r.db.Query(ctx,
		`SELECT document_id, dedup_key, content, filename, content_type,
		        1 - (embedding <=> $1) AS score
		 FROM document_vectors
		 WHERE embeddings_generated AND expires_at > now()
		 ORDER BY embedding <=> $1 ASC
		 LIMIT $2`,
		vec, topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var res domain.SearchResult
		if err := rows.Scan(&res.DocumentID, &res.DedupKey, &res.Text,
			&res.Filename, &res.ContentType, &res.Score); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *DocumentVectorRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.VectorEntry, error) {
	var entry domain.VectorEntry
	var vec pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT dedup_key, document_id, embedding, content, filename, content_type,
		        upload_date, file_size, chunks_count, embeddings_generated, expires_at
		 FROM document_vectors WHERE document_id = $1`,
		documentID,
	).Scan(&entry.DedupKey, &entry.DocumentID, &vec, &entry.Text, &entry.Filename,
		&entry.ContentType, &entry.UploadDate, &entry.FileSize, &entry.ChunksCount,
		&entry.EmbeddingsGenerated, &entry.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	entry.Embedding = vec.Slice()
	return &entry, nil
}

// List returns document metadata ordered by newest upload first, using
// keyset pagination on (upload_date, document_id). A non-empty prefix
// restricts results to document ids starting with it. Embeddings and
// content are left out of the listing.
func (r *DocumentVectorRepository) List(ctx context.Context, prefix string, limit int, cursor *pagination.Cursor) ([]*domain.VectorEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT dedup_key, document_id, filename, content_type, upload_date,
	                 file_size, chunks_count, embeddings_generated, expires_at
	          FROM document_vectors`
	args := []any{limit}
	var conds []string
	if prefix != "" {
		args = append(args, escapeLike(prefix)+"%")
		conds = append(conds, fmt.Sprintf(`document_id LIKE $%d`, len(args)))
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		conds = append(conds, fmt.Sprintf(`(upload_date, document_id) < ($%d, $%d)`, len(args)-1, len(args)))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY upload_date DESC, document_id DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.VectorEntry
	for rows.Next() {
		var entry domain.VectorEntry
		if err := rows.Scan(&entry.DedupKey, &entry.DocumentID, &entry.Filename,
			&entry.ContentType, &entry.UploadDate, &entry.FileSize,
			&entry.ChunksCount, &entry.EmbeddingsGenerated, &entry.ExpiresAt); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// escapeLike neutralizes LIKE metacharacters so a prefix matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

func (r *DocumentVectorRepository) Delete(ctx context.Context, documentID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM document_vectors WHERE document_id = $1`,
		documentID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// PurgeExpired removes entries past their retention window and reports how
// many were deleted.
func (r *DocumentVectorRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM document_vectors WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
