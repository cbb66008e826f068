package upload

import (
	"sync"
	"testing"
	"time"
)

func testSession(id string, totalChunks int, expiresAt time.Time) Session {
	return Session{
		UploadID:    id,
		Filename:    "data.bin",
		FileSize:    int64(totalChunks) * 10,
		TotalChunks: totalChunks,
		ChunkSize:   10,
		CreatedAt:   time.Now(),
		ExpiresAt:   expiresAt,
	}
}

func TestConcurrentMarkChunkLosesNoUpdates(t *testing.T) {
	store := NewSessionStore()
	const total = 200
	store.Put(testSession("upload-1", total, time.Now().Add(time.Hour)))

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if _, ok := store.MarkChunk("upload-1", idx); !ok {
				t.Errorf("MarkChunk(%d) reported missing session", idx)
			}
		}(i)
	}
	wg.Wait()

	snapshot, ok := store.Snapshot("upload-1")
	if !ok {
		t.Fatalf("session vanished")
	}
	if snapshot.CompletedChunks() != total {
		t.Fatalf("expected %d chunks recorded, got %d", total, snapshot.CompletedChunks())
	}
	if !snapshot.IsComplete() {
		t.Fatalf("expected complete session")
	}
}

func TestSnapshotIsIsolatedFromLaterMutation(t *testing.T) {
	store := NewSessionStore()
	store.Put(testSession("upload-1", 3, time.Now().Add(time.Hour)))

	before, _ := store.Snapshot("upload-1")
	store.MarkChunk("upload-1", 0)

	if before.CompletedChunks() != 0 {
		t.Fatalf("snapshot observed later mutation")
	}

	after, _ := store.Snapshot("upload-1")
	if after.CompletedChunks() != 1 {
		t.Fatalf("expected mark visible in fresh snapshot")
	}
}

func TestRemoveReturnsFinalStateOnce(t *testing.T) {
	store := NewSessionStore()
	store.Put(testSession("upload-1", 2, time.Now().Add(time.Hour)))
	store.MarkChunk("upload-1", 0)

	final, ok := store.Remove("upload-1")
	if !ok {
		t.Fatalf("expected removal to succeed")
	}
	if final.CompletedChunks() != 1 {
		t.Fatalf("unexpected final state: %d chunks", final.CompletedChunks())
	}

	if _, ok := store.Remove("upload-1"); ok {
		t.Fatalf("expected second removal to report absence")
	}
	if _, ok := store.Snapshot("upload-1"); ok {
		t.Fatalf("expected session gone")
	}
}

func TestExpiredIDsSelectsOnlyPastDeadline(t *testing.T) {
	store := NewSessionStore()
	now := time.Now()
	store.Put(testSession("live", 1, now.Add(time.Hour)))
	store.Put(testSession("dead", 1, now.Add(-time.Minute)))

	expired := store.ExpiredIDs(now)
	if len(expired) != 1 || expired[0] != "dead" {
		t.Fatalf("unexpected expired set %v", expired)
	}
}

func TestConcurrentDistinctSessions(t *testing.T) {
	store := NewSessionStore()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		store.Put(testSession(id, 50, time.Now().Add(time.Hour)))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(id string, idx int) {
				defer wg.Done()
				store.MarkChunk(id, idx)
			}(id, i)
		}
	}
	wg.Wait()

	for _, id := range ids {
		snapshot, ok := store.Snapshot(id)
		if !ok || !snapshot.IsComplete() {
			t.Fatalf("session %s incomplete after concurrent marks", id)
		}
	}
	if store.Len() != len(ids) {
		t.Fatalf("unexpected store size %d", store.Len())
	}
}
