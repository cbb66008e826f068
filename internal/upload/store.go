package upload

import (
	"sync"
	"time"
)

// SessionStore is a concurrency-safe registry of live upload sessions.
// The top-level map is guarded by an RWMutex held only for map access;
// the received-index set of each session is guarded by its entry's own
// mutex, so chunk uploads for unrelated sessions never contend.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session Session
}

// NewSessionStore builds an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[string]*sessionEntry)}
}

// Put registers a new session under its upload id.
func (s *SessionStore) Put(session Session) {
	if session.Uploaded == nil {
		session.Uploaded = make(map[int]struct{})
	}
	s.mu.Lock()
	s.entries[session.UploadID] = &sessionEntry{session: session}
	s.mu.Unlock()
}

// Snapshot returns a copy of the session state, safe to read without
// further locking. The received set is copied.
func (s *SessionStore) Snapshot(uploadID string) (Session, bool) {
	entry, ok := s.lookup(uploadID)
	if !ok {
		return Session{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return copySession(entry.session), true
}

// MarkChunk records a received chunk index and returns the resulting
// snapshot. Marking an already-received index is a no-op beyond the
// snapshot. Returns false if the session is gone.
func (s *SessionStore) MarkChunk(uploadID string, chunkIndex int) (Session, bool) {
	entry, ok := s.lookup(uploadID)
	if !ok {
		return Session{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.session.Uploaded[chunkIndex] = struct{}{}
	return copySession(entry.session), true
}

// Remove deletes the session, returning its final snapshot.
func (s *SessionStore) Remove(uploadID string) (Session, bool) {
	s.mu.Lock()
	entry, ok := s.entries[uploadID]
	if ok {
		delete(s.entries, uploadID)
	}
	s.mu.Unlock()

	if !ok {
		return Session{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return copySession(entry.session), true
}

// ExpiredIDs returns the upload ids of all sessions past their deadline
// at the given time.
func (s *SessionStore) ExpiredIDs(now time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []string
	for id, entry := range s.entries {
		entry.mu.Lock()
		if entry.session.ExpiredAt(now) {
			expired = append(expired, id)
		}
		entry.mu.Unlock()
	}
	return expired
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *SessionStore) lookup(uploadID string) (*sessionEntry, bool) {
	s.mu.RLock()
	entry, ok := s.entries[uploadID]
	s.mu.RUnlock()
	return entry, ok
}

func copySession(session Session) Session {
	uploaded := make(map[int]struct{}, len(session.Uploaded))
	for idx := range session.Uploaded {
		uploaded[idx] = struct{}{}
	}
	session.Uploaded = uploaded
	return session
}
