package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const (
	defaultMaxFileSize = 500 * 1024 * 1024 // 500MB
)

type metadataStore interface {
	Create(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	List(ctx context.Context, page PageRequest) (Page, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page PageRequest) (Page, error)
	ListByTag(ctx context.Context, tag string, page PageRequest) (Page, error)
	Search(ctx context.Context, term string, page PageRequest) (Page, error)
	Update(ctx context.Context, doc Document) (Document, error)
	Delete(ctx context.Context, id uuid.UUID) (Document, error)
}

type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// Service manages document lifecycle operations.
type Service struct {
	repo         metadataStore
	objectStore  objectStore
	objectBucket string
	maxFileSize  int64
}

// NewService constructs a document service.
func NewService(repo metadataStore, store objectStore, objectBucket string) *Service {
	return &Service{
		repo:         repo,
		objectStore:  store,
		objectBucket: objectBucket,
		maxFileSize:  defaultMaxFileSize,
	}
}

// Owner identifies the authenticated caller on write operations.
type Owner struct {
	ID       uuid.UUID
	Username string
}

// StoreObject streams content into object storage under a fresh storage key.
// The key keeps the original filename's extension for content-type friendliness.
func (s *Service) StoreObject(ctx context.Context, reader io.Reader, contentType string, size int64, nameHint string) (string, error) {
	storageKey := generateStorageKey(nameHint)

	opts := minio.PutObjectOptions{ContentType: normalizeContentType(contentType)}
	if _, err := s.objectStore.PutObject(ctx, s.objectBucket, storageKey, reader, size, opts); err != nil {
		return "", fmt.Errorf("store object: %w", err)
	}
	return storageKey, nil
}

// CreateMetadata persists a metadata record for an already-stored object.
func (s *Service) CreateMetadata(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	doc.Filename = sanitizeFilename(doc.Filename)
	if doc.OriginalFilename == "" {
		doc.OriginalFilename = doc.Filename
	}
	doc.ContentType = normalizeContentType(doc.ContentType)
	return s.repo.Create(ctx, doc)
}

// Upload stores a single-shot multipart upload and creates its metadata record.
func (s *Service) Upload(ctx context.Context, owner Owner, fileHeader *multipart.FileHeader, tags []string, description string) (Document, error) {
	if fileHeader == nil {
		return Document{}, fmt.Errorf("missing file payload")
	}

	size := fileHeader.Size
	if size > s.maxFileSize {
		return Document{}, ErrFileTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Document{}, fmt.Errorf("open upload file: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	reader := io.TeeReader(file, hasher)

	contentType := fileHeader.Header.Get("Content-Type")
	storageKey, err := s.StoreObject(ctx, reader, contentType, size, fileHeader.Filename)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:               uuid.New(),
		Filename:         sanitizeFilename(fileHeader.Filename),
		OriginalFilename: sanitizeFilename(fileHeader.Filename),
		ContentType:      normalizeContentType(contentType),
		SizeBytes:        size,
		StorageKey:       storageKey,
		OwnerID:          owner.ID,
		OwnerUsername:    owner.Username,
		Tags:             tags,
		Description:      description,
		Checksum:         hex.EncodeToString(hasher.Sum(nil)),
	}

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		_ = s.objectStore.RemoveObject(ctx, s.objectBucket, storageKey, minio.RemoveObjectOptions{})
		return Document{}, err
	}

	return stored, nil
}

// Get returns metadata for a single document.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	return s.repo.Get(ctx, id)
}

// UpdateRequest carries optional metadata changes. A nil field keeps the
// stored value; a non-nil empty Tags slice clears the tags.
type UpdateRequest struct {
	Filename    *string
	Tags        []string
	Description *string
}

// UpdateMetadata applies the provided fields to the document's metadata.
// The stored object itself is never touched.
func (s *Service) UpdateMetadata(ctx context.Context, id uuid.UUID, req UpdateRequest) (Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}

	if req.Filename != nil {
		doc.Filename = sanitizeFilename(*req.Filename)
	}
	if req.Tags != nil {
		doc.Tags = req.Tags
	}
	if req.Description != nil {
		doc.Description = *req.Description
	}

	return s.repo.Update(ctx, doc)
}

// Download retrieves metadata and an object reader.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (Document, io.ReadCloser, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}

	object, err := s.objectStore.GetObject(ctx, s.objectBucket, doc.StorageKey, minio.GetObjectOptions{})
	if err != nil {
		return Document{}, nil, fmt.Errorf("fetch object: %w", err)
	}

	return doc, object, nil
}

// List returns one page of all documents.
func (s *Service) List(ctx context.Context, page PageRequest) (Page, error) {
	return s.repo.List(ctx, page)
}

// ListByOwner returns one page of the owner's documents.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, page PageRequest) (Page, error) {
	return s.repo.ListByOwner(ctx, ownerID, page)
}

// ListByTag returns one page of documents carrying the tag.
func (s *Service) ListByTag(ctx context.Context, tag string, page PageRequest) (Page, error) {
	return s.repo.ListByTag(ctx, tag, page)
}

// Search returns one page of documents whose filename matches the term.
func (s *Service) Search(ctx context.Context, term string, page PageRequest) (Page, error) {
	return s.repo.Search(ctx, term, page)
}

// Delete removes the document from storage and metadata.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	if err := s.objectStore.RemoveObject(ctx, s.objectBucket, doc.StorageKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}

	return nil
}

func generateStorageKey(nameHint string) string {
	ext := filepath.Ext(nameHint)
	return uuid.New().String() + ext
}

func normalizeContentType(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return "application/octet-stream"
	}
	return contentType
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "upload"
	}
	return name
}
