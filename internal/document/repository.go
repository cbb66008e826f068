package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const documentColumns = `id, filename, original_filename, content_type, size_bytes, storage_key, owner_id, owner_username, tags, description, checksum, created_at, updated_at`

// Repository provides access to document metadata storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new document repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts metadata for a new document.
func (r *Repository) Create(ctx context.Context, doc Document) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO documents (id, filename, original_filename, content_type, size_bytes, storage_key, owner_id, owner_username, tags, description, checksum)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + documentColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		doc.ID,
		doc.Filename,
		doc.OriginalFilename,
		doc.ContentType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.OwnerID,
		doc.OwnerUsername,
		doc.Tags,
		doc.Description,
		doc.Checksum,
	)

	stored, err := scanDocument(row)
	if err != nil {
		return Document{}, fmt.Errorf("create document metadata: %w", err)
	}
	return stored, nil
}

// Get fetches metadata for a single document.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1;`

	doc, err := scanDocument(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, fmt.Errorf("get document metadata: %w", err)
	}
	return doc, nil
}

// Update rewrites the mutable metadata fields of a document.
func (r *Repository) Update(ctx context.Context, doc Document) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE documents
SET filename = $2, tags = $3, description = $4, updated_at = NOW()
WHERE id = $1
RETURNING ` + documentColumns + `;`

	updated, err := scanDocument(r.pool.QueryRow(ctx, query, doc.ID, doc.Filename, doc.Tags, doc.Description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, fmt.Errorf("update document metadata: %w", err)
	}
	return updated, nil
}

// List returns one page of documents, newest first.
func (r *Repository) List(ctx context.Context, page PageRequest) (Page, error) {
	return r.listWhere(ctx, page, "", nil)
}

// ListByOwner returns one page of documents owned by the user.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, page PageRequest) (Page, error) {
	return r.listWhere(ctx, page, "WHERE owner_id = $1", []any{ownerID})
}

// ListByTag returns one page of documents carrying the tag.
func (r *Repository) ListByTag(ctx context.Context, tag string, page PageRequest) (Page, error) {
	return r.listWhere(ctx, page, "WHERE $1 = ANY(tags)", []any{tag})
}

// Search returns one page of documents whose filename matches the term.
func (r *Repository) Search(ctx context.Context, term string, page PageRequest) (Page, error) {
	return r.listWhere(ctx, page, "WHERE filename ILIKE '%' || $1 || '%'", []any{term})
}

func (r *Repository) listWhere(ctx context.Context, page PageRequest, where string, args []any) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	page = page.Normalize()

	countQuery := `SELECT COUNT(*) FROM documents ` + where + `;`
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count documents: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM documents %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`,
		documentColumns, where, len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return Page{}, fmt.Errorf("scan document metadata: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate documents: %w", err)
	}

	return Page{Documents: docs, Page: page.Page, Size: page.Size, Total: total}, nil
}

// Delete removes metadata and returns the deleted record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `DELETE FROM documents WHERE id = $1 RETURNING ` + documentColumns + `;`

	doc, err := scanDocument(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, fmt.Errorf("delete document metadata: %w", err)
	}
	return doc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.OriginalFilename,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&doc.OwnerID,
		&doc.OwnerUsername,
		&doc.Tags,
		&doc.Description,
		&doc.Checksum,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	return doc, err
}
