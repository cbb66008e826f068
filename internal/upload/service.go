package upload

import (
	"context"
	"fmt"
	"io"
	"time"

	"docrepo/internal/config"
	"docrepo/internal/document"
	"docrepo/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// objectStore is the narrow contract to the object-storage collaborator.
type objectStore interface {
	StoreObject(ctx context.Context, reader io.Reader, contentType string, size int64, nameHint string) (string, error)
}

// documentStore persists the metadata record once the object is stored.
type documentStore interface {
	CreateMetadata(ctx context.Context, doc document.Document) (document.Document, error)
}

// Owner identifies the authenticated caller initiating a session.
type Owner struct {
	ID       uuid.UUID
	Username string
}

// Service coordinates chunked upload sessions: the in-memory registry,
// the on-disk chunk scratch area, assembly and the storage collaborators.
type Service struct {
	sessions  *SessionStore
	chunks    *ChunkStore
	objects   objectStore
	documents documentStore
	cfg       config.UploadConfig
	log       *zap.Logger
	nowFunc   func() time.Time
}

// NewService constructs the chunked upload service.
func NewService(chunks *ChunkStore, objects objectStore, documents documentStore, cfg config.UploadConfig, log *zap.Logger) *Service {
	return &Service{
		sessions:  NewSessionStore(),
		chunks:    chunks,
		objects:   objects,
		documents: documents,
		cfg:       cfg,
		log:       log,
		nowFunc:   time.Now,
	}
}

// Init creates a new upload session and allocates its chunk directory.
// If the directory cannot be created the session is rolled back.
func (s *Service) Init(ctx context.Context, owner Owner, req InitRequest) (InitResponse, error) {
	if req.FileSize <= 0 {
		return InitResponse{}, ErrInvalidFileSize
	}

	uploadID := uuid.NewString()
	// Ceiling division without overflow near MaxInt64; FileSize > 0 here.
	totalChunks := int((req.FileSize-1)/s.cfg.ChunkSize + 1)
	now := s.nowFunc()

	session := Session{
		UploadID:      uploadID,
		Filename:      req.Filename,
		ContentType:   req.ContentType,
		FileSize:      req.FileSize,
		TotalChunks:   totalChunks,
		ChunkSize:     s.cfg.ChunkSize,
		OwnerID:       owner.ID,
		OwnerUsername: owner.Username,
		Tags:          req.Tags,
		Description:   req.Description,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.SessionTTL),
	}

	s.sessions.Put(session)

	if err := s.chunks.Allocate(uploadID); err != nil {
		s.sessions.Remove(uploadID)
		return InitResponse{}, err
	}

	metrics.UploadSessionsActive.Inc()
	s.log.Info("initialized chunked upload",
		zap.String("upload_id", uploadID),
		zap.String("filename", req.Filename),
		zap.Int("total_chunks", totalChunks),
	)

	return InitResponse{
		UploadID:    uploadID,
		TotalChunks: totalChunks,
		ChunkSize:   s.cfg.ChunkSize,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// UploadChunk writes one chunk's bytes to disk, then marks the index
// received. The write lands before the mark so a crash in between never
// records a chunk whose bytes are absent. Re-uploading an index overwrites
// the previous bytes and leaves the received count unchanged.
func (s *Service) UploadChunk(ctx context.Context, uploadID string, chunkIndex int, chunk io.Reader) (ChunkResponse, error) {
	session, ok := s.sessions.Snapshot(uploadID)
	if !ok {
		return ChunkResponse{}, ErrSessionNotFound
	}

	if session.ExpiredAt(s.nowFunc()) {
		s.cleanupSession(uploadID)
		return ChunkResponse{}, ErrSessionExpired
	}

	if chunkIndex < 0 || chunkIndex >= session.TotalChunks {
		return ChunkResponse{}, ErrInvalidChunkIndex
	}

	if _, err := s.chunks.WriteChunk(uploadID, chunkIndex, chunk); err != nil {
		return ChunkResponse{}, err
	}

	session, ok = s.sessions.MarkChunk(uploadID, chunkIndex)
	if !ok {
		// Session torn down while the chunk was being written.
		return ChunkResponse{}, ErrSessionNotFound
	}

	metrics.UploadChunksReceived.Inc()
	s.log.Debug("uploaded chunk",
		zap.String("upload_id", uploadID),
		zap.Int("chunk_index", chunkIndex),
		zap.Float64("progress_percent", session.ProgressPercent()),
	)

	return ChunkResponse{
		ChunkIndex:      chunkIndex,
		CompletedChunks: session.CompletedChunks(),
		TotalChunks:     session.TotalChunks,
		UploadedChunks:  session.UploadedIndices(),
		ProgressPercent: session.ProgressPercent(),
	}, nil
}

// Status reports the session state. It is a pure read: an expired session
// is reported as EXPIRED but not evicted here.
func (s *Service) Status(uploadID string) (StatusResponse, error) {
	session, ok := s.sessions.Snapshot(uploadID)
	if !ok {
		return StatusResponse{}, ErrSessionNotFound
	}

	return StatusResponse{
		UploadID:        session.UploadID,
		Filename:        session.Filename,
		CompletedChunks: session.CompletedChunks(),
		TotalChunks:     session.TotalChunks,
		UploadedChunks:  session.UploadedIndices(),
		MissingChunks:   session.MissingIndices(),
		ProgressPercent: session.ProgressPercent(),
		Status:          session.StatusAt(s.nowFunc()),
		CreatedAt:       session.CreatedAt,
		ExpiresAt:       session.ExpiresAt,
	}, nil
}

// Complete verifies all chunks are present, streams the assembled object to
// storage and creates the metadata record. The session and its chunks are
// torn down once the object is stored, whether or not the metadata record
// could be created; the caller sees the record-creation error, and the
// orphaned storage key is logged for reconciliation.
func (s *Service) Complete(ctx context.Context, uploadID string, req CompleteRequest) (document.Document, error) {
	session, ok := s.sessions.Snapshot(uploadID)
	if !ok {
		return document.Document{}, ErrSessionNotFound
	}

	if session.ExpiredAt(s.nowFunc()) {
		s.cleanupSession(uploadID)
		return document.Document{}, ErrSessionExpired
	}

	if !session.IsComplete() {
		return document.Document{}, &IncompleteError{Missing: session.MissingIndices()}
	}

	reader, err := NewAssemblyReader(s.chunks, uploadID, session.TotalChunks)
	if err != nil {
		// Inconsistent scratch area; leave the session for the sweeper.
		return document.Document{}, fmt.Errorf("assemble upload %s: %w", uploadID, err)
	}
	defer reader.Close()

	storageKey, err := s.objects.StoreObject(ctx, reader, session.ContentType, session.FileSize, session.Filename)
	if err != nil {
		return document.Document{}, fmt.Errorf("store assembled object: %w", err)
	}

	// The object is stored; the session is finished either way.
	defer s.cleanupSession(uploadID)

	tags := session.Tags
	if req.Tags != nil {
		tags = req.Tags
	}
	description := session.Description
	if req.Description != nil {
		description = *req.Description
	}

	doc, err := s.documents.CreateMetadata(ctx, document.Document{
		Filename:         session.Filename,
		OriginalFilename: session.Filename,
		ContentType:      session.ContentType,
		SizeBytes:        session.FileSize,
		StorageKey:       storageKey,
		OwnerID:          session.OwnerID,
		OwnerUsername:    session.OwnerUsername,
		Tags:             tags,
		Description:      description,
	})
	if err != nil {
		s.log.Error("stored object has no metadata record",
			zap.String("upload_id", uploadID),
			zap.String("storage_key", storageKey),
			zap.Error(err),
		)
		return document.Document{}, fmt.Errorf("create document record: %w", err)
	}

	metrics.UploadsCompleted.Inc()
	s.log.Info("completed chunked upload",
		zap.String("upload_id", uploadID),
		zap.String("document_id", doc.ID.String()),
	)

	return doc, nil
}

// Cancel tears down the session regardless of progress.
func (s *Service) Cancel(uploadID string) error {
	if _, ok := s.sessions.Snapshot(uploadID); !ok {
		return ErrSessionNotFound
	}

	s.cleanupSession(uploadID)
	s.log.Info("cancelled chunked upload", zap.String("upload_id", uploadID))
	return nil
}

// cleanupSession removes the session and its chunk directory. Teardown is
// advisory: disk errors are logged, never propagated.
func (s *Service) cleanupSession(uploadID string) {
	if _, ok := s.sessions.Remove(uploadID); ok {
		metrics.UploadSessionsActive.Dec()
	}
	if err := s.chunks.Remove(uploadID); err != nil {
		s.log.Warn("failed to remove upload directory",
			zap.String("upload_id", uploadID),
			zap.Error(err),
		)
	}
}
