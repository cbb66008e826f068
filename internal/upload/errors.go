package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound signals an unknown upload identifier.
	ErrSessionNotFound = errors.New("upload session not found")
	// ErrSessionExpired signals a session past its TTL.
	ErrSessionExpired = errors.New("upload session expired")
	// ErrInvalidChunkIndex signals a chunk index outside [0, totalChunks).
	ErrInvalidChunkIndex = errors.New("invalid chunk index")
	// ErrInvalidFileSize signals a non-positive declared file size.
	ErrInvalidFileSize = errors.New("file size must be positive")
)

// IncompleteError is returned by Complete when chunks are still missing.
// It lists the absent indices so the client can retry exactly those.
type IncompleteError struct {
	Missing []int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("upload not complete, missing chunks: %v", e.Missing)
}
