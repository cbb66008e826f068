package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ChunkStore owns the on-disk scratch area for in-flight uploads. Each
// session gets one directory named by its upload id, holding one file per
// received chunk.
type ChunkStore struct {
	root string
}

// NewChunkStore ensures the scratch root exists and returns the store.
func NewChunkStore(root string) (*ChunkStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload temp directory: %w", err)
	}
	return &ChunkStore{root: root}, nil
}

// Allocate creates the directory for a new session.
func (c *ChunkStore) Allocate(uploadID string) error {
	if err := os.MkdirAll(c.sessionDir(uploadID), 0o755); err != nil {
		return fmt.Errorf("create upload directory: %w", err)
	}
	return nil
}

// WriteChunk durably writes one chunk's bytes. The content lands in a
// temporary file first and is renamed into place, so a partially written
// chunk is never visible under its final name.
func (c *ChunkStore) WriteChunk(uploadID string, chunkIndex int, r io.Reader) (int64, error) {
	finalPath := c.chunkPath(uploadID, chunkIndex)
	tmpPath := finalPath + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create chunk file: %w", err)
	}

	written, err := io.Copy(file, r)
	if err != nil {
		file.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("write chunk data: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("close chunk file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("finalize chunk file: %w", err)
	}

	return written, nil
}

// OpenChunk opens one chunk file for reading.
func (c *ChunkStore) OpenChunk(uploadID string, chunkIndex int) (io.ReadCloser, error) {
	file, err := os.Open(c.chunkPath(uploadID, chunkIndex))
	if err != nil {
		return nil, fmt.Errorf("open chunk %d: %w", chunkIndex, err)
	}
	return file, nil
}

// ChunkExists reports whether the chunk file is present on disk.
func (c *ChunkStore) ChunkExists(uploadID string, chunkIndex int) (bool, error) {
	_, err := os.Stat(c.chunkPath(uploadID, chunkIndex))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat chunk %d: %w", chunkIndex, err)
}

// Remove tears down the session's directory and everything in it.
func (c *ChunkStore) Remove(uploadID string) error {
	if err := os.RemoveAll(c.sessionDir(uploadID)); err != nil {
		return fmt.Errorf("remove upload directory: %w", err)
	}
	return nil
}

func (c *ChunkStore) sessionDir(uploadID string) string {
	return filepath.Join(c.root, uploadID)
}

func (c *ChunkStore) chunkPath(uploadID string, chunkIndex int) string {
	return filepath.Join(c.sessionDir(uploadID), fmt.Sprintf("chunk-%d", chunkIndex))
}
