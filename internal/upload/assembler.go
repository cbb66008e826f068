package upload

import (
	"fmt"
	"io"
)

// NewAssemblyReader returns a reader that yields the session's chunks
// concatenated in ascending index order. Chunks are opened one at a time,
// so the assembled file is never buffered in memory.
//
// Every chunk file must be present; a marked-but-missing chunk means the
// scratch area is inconsistent with the session state and assembly refuses
// to produce a truncated object.
func NewAssemblyReader(chunks *ChunkStore, uploadID string, totalChunks int) (io.ReadCloser, error) {
	for i := 0; i < totalChunks; i++ {
		exists, err := chunks.ChunkExists(uploadID, i)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("chunk %d marked received but missing on disk", i)
		}
	}

	return &assemblyReader{
		chunks:      chunks,
		uploadID:    uploadID,
		totalChunks: totalChunks,
	}, nil
}

type assemblyReader struct {
	chunks      *ChunkStore
	uploadID    string
	totalChunks int

	next    int
	current io.ReadCloser
}

func (r *assemblyReader) Read(p []byte) (int, error) {
	for {
		if r.current == nil {
			if r.next >= r.totalChunks {
				return 0, io.EOF
			}
			chunk, err := r.chunks.OpenChunk(r.uploadID, r.next)
			if err != nil {
				return 0, err
			}
			r.current = chunk
			r.next++
		}

		n, err := r.current.Read(p)
		if err == io.EOF {
			if closeErr := r.current.Close(); closeErr != nil {
				r.current = nil
				return n, closeErr
			}
			r.current = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (r *assemblyReader) Close() error {
	if r.current != nil {
		err := r.current.Close()
		r.current = nil
		return err
	}
	return nil
}
