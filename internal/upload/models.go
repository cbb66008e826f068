package upload

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Session states reported by status calls.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusComplete   = "COMPLETE"
	StatusExpired    = "EXPIRED"
)

// Session holds the server-side state of one chunked upload. Values handed
// out by the SessionStore are snapshots; mutation goes through store methods.
type Session struct {
	UploadID      string
	Filename      string
	ContentType   string
	FileSize      int64
	TotalChunks   int
	ChunkSize     int64
	OwnerID       uuid.UUID
	OwnerUsername string
	Tags          []string
	Description   string
	CreatedAt     time.Time
	ExpiresAt     time.Time

	// Uploaded is the set of chunk indices received so far.
	Uploaded map[int]struct{}
}

// CompletedChunks returns how many distinct chunks have been received.
func (s Session) CompletedChunks() int {
	return len(s.Uploaded)
}

// IsComplete reports whether every chunk index has been received.
func (s Session) IsComplete() bool {
	return len(s.Uploaded) == s.TotalChunks
}

// UploadedIndices returns the received chunk indices in ascending order.
func (s Session) UploadedIndices() []int {
	indices := make([]int, 0, len(s.Uploaded))
	for idx := range s.Uploaded {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// MissingIndices returns the complement of the received set within
// [0, TotalChunks), in ascending order.
func (s Session) MissingIndices() []int {
	missing := make([]int, 0, s.TotalChunks-len(s.Uploaded))
	for i := 0; i < s.TotalChunks; i++ {
		if _, ok := s.Uploaded[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// ProgressPercent returns upload progress in [0, 100].
func (s Session) ProgressPercent() float64 {
	if s.TotalChunks == 0 {
		return 0
	}
	return float64(len(s.Uploaded)) / float64(s.TotalChunks) * 100
}

// ExpiredAt reports whether the session is past its deadline at the given time.
func (s Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// StatusAt derives the reported state at the given time.
func (s Session) StatusAt(now time.Time) string {
	if s.ExpiredAt(now) {
		return StatusExpired
	}
	if s.IsComplete() {
		return StatusComplete
	}
	return StatusInProgress
}

// InitRequest carries client-declared file properties for a new session.
type InitRequest struct {
	Filename    string   `json:"filename" binding:"required"`
	ContentType string   `json:"content_type"`
	FileSize    int64    `json:"file_size" binding:"required"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// InitResponse tells the client how to slice the file.
type InitResponse struct {
	UploadID    string    `json:"upload_id"`
	TotalChunks int       `json:"total_chunks"`
	ChunkSize   int64     `json:"chunk_size"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ChunkResponse reports progress after one chunk lands.
type ChunkResponse struct {
	ChunkIndex      int     `json:"chunk_index"`
	CompletedChunks int     `json:"completed_chunks"`
	TotalChunks     int     `json:"total_chunks"`
	UploadedChunks  []int   `json:"uploaded_chunks"`
	ProgressPercent float64 `json:"progress_percent"`
}

// StatusResponse describes the full state of a session.
type StatusResponse struct {
	UploadID        string    `json:"upload_id"`
	Filename        string    `json:"filename"`
	CompletedChunks int       `json:"completed_chunks"`
	TotalChunks     int       `json:"total_chunks"`
	UploadedChunks  []int     `json:"uploaded_chunks"`
	MissingChunks   []int     `json:"missing_chunks"`
	ProgressPercent float64   `json:"progress_percent"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// CompleteRequest optionally overrides session metadata at completion time.
// Nil fields keep the values declared at init.
type CompleteRequest struct {
	Tags        []string `json:"tags,omitempty"`
	Description *string  `json:"description,omitempty"`
}
