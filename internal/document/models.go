package document

import (
	"time"

	"github.com/google/uuid"
)

// Document represents stored metadata about one object in the repository.
type Document struct {
	ID               uuid.UUID `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	StorageKey       string    `json:"storage_key"`
	OwnerID          uuid.UUID `json:"owner_id"`
	OwnerUsername    string    `json:"owner_username"`
	Tags             []string  `json:"tags,omitempty"`
	Description      string    `json:"description,omitempty"`
	Checksum         string    `json:"checksum,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Page wraps one page of documents with paging bookkeeping.
type Page struct {
	Documents []Document `json:"documents"`
	Page      int        `json:"page"`
	Size      int        `json:"size"`
	Total     int64      `json:"total"`
}

// PageRequest carries normalized paging parameters.
type PageRequest struct {
	Page int
	Size int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize clamps paging parameters into the supported range.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Offset returns the row offset for the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}
