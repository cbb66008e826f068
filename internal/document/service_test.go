package document

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

func TestUploadStoresObjectAndMetadata(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeObjectStore()
	service := NewService(repo, store, "documents")

	owner := Owner{ID: uuid.New(), Username: "editor"}
	fileHeader := buildFileHeader(t, "file", "notes.txt", "text/plain", []byte("hello world"))

	doc, err := service.Upload(context.Background(), owner, fileHeader, []string{"notes"}, "scratch pad")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	if doc.Filename != "notes.txt" {
		t.Fatalf("unexpected filename: %s", doc.Filename)
	}
	if doc.OwnerUsername != "editor" {
		t.Fatalf("unexpected owner username: %s", doc.OwnerUsername)
	}
	if !strings.HasSuffix(doc.StorageKey, ".txt") {
		t.Fatalf("expected storage key to keep extension, got %s", doc.StorageKey)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected metadata stored, got %d", len(repo.records))
	}
	if got := string(store.objects[doc.StorageKey]); got != "hello world" {
		t.Fatalf("stored object mismatch: %q", got)
	}
}

func TestUploadRemovesObjectWhenMetadataFails(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = io.ErrUnexpectedEOF
	store := newFakeObjectStore()
	service := NewService(repo, store, "documents")

	fileHeader := buildFileHeader(t, "file", "data.bin", "application/octet-stream", []byte("payload"))

	_, err := service.Upload(context.Background(), Owner{ID: uuid.New(), Username: "editor"}, fileHeader, nil, "")
	if err == nil {
		t.Fatalf("expected error from metadata create")
	}
	if store.removeCount != 1 {
		t.Fatalf("expected stored object to be removed, removeCount=%d", store.removeCount)
	}
}

func TestDownloadStreamsStoredBytes(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeObjectStore()
	service := NewService(repo, store, "documents")

	fileHeader := buildFileHeader(t, "file", "data.bin", "application/octet-stream", []byte("payload"))
	doc, err := service.Upload(context.Background(), Owner{ID: uuid.New(), Username: "editor"}, fileHeader, nil, "")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	got, reader, err := service.Download(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	defer reader.Close()

	if got.ID != doc.ID {
		t.Fatalf("unexpected document returned")
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if string(content) != "payload" {
		t.Fatalf("round trip mismatch: %q", content)
	}
}

func TestDeleteRemovesMetadataAndObject(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeObjectStore()
	service := NewService(repo, store, "documents")

	fileHeader := buildFileHeader(t, "file", "data.bin", "application/octet-stream", []byte("payload"))
	doc, err := service.Upload(context.Background(), Owner{ID: uuid.New(), Username: "editor"}, fileHeader, nil, "")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	if err := service.Delete(context.Background(), doc.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(repo.records) != 0 {
		t.Fatalf("expected metadata removed, remaining %d", len(repo.records))
	}
	if _, exists := store.objects[doc.StorageKey]; exists {
		t.Fatalf("expected object removed from store")
	}
}

func TestUpdateMetadataAppliesOnlyProvidedFields(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeObjectStore()
	service := NewService(repo, store, "documents")

	owner := Owner{ID: uuid.New(), Username: "editor"}
	fileHeader := buildFileHeader(t, "file", "report.pdf", "application/pdf", []byte("pdf bytes"))
	doc, err := service.Upload(context.Background(), owner, fileHeader, []string{"finance"}, "Q1 draft")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	desc := "Q1 final"
	updated, err := service.UpdateMetadata(context.Background(), doc.ID, UpdateRequest{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateMetadata returned error: %v", err)
	}
	if updated.Description != "Q1 final" {
		t.Fatalf("unexpected description: %q", updated.Description)
	}
	if updated.Filename != "report.pdf" {
		t.Fatalf("filename changed without being requested: %q", updated.Filename)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "finance" {
		t.Fatalf("tags changed without being requested: %v", updated.Tags)
	}

	name := "report-final.pdf"
	updated, err = service.UpdateMetadata(context.Background(), doc.ID, UpdateRequest{
		Filename: &name,
		Tags:     []string{"finance", "approved"},
	})
	if err != nil {
		t.Fatalf("UpdateMetadata returned error: %v", err)
	}
	if updated.Filename != "report-final.pdf" {
		t.Fatalf("unexpected filename: %q", updated.Filename)
	}
	if len(updated.Tags) != 2 {
		t.Fatalf("unexpected tags: %v", updated.Tags)
	}
	if updated.Description != "Q1 final" {
		t.Fatalf("description lost on partial update: %q", updated.Description)
	}
}

func TestUpdateMetadataUnknownDocument(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, newFakeObjectStore(), "documents")

	desc := "anything"
	if _, err := service.UpdateMetadata(context.Background(), uuid.New(), UpdateRequest{Description: &desc}); err != ErrDocumentNotFound {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestPageRequestNormalize(t *testing.T) {
	page := PageRequest{Page: -3, Size: 0}.Normalize()
	if page.Page != 0 || page.Size != defaultPageSize {
		t.Fatalf("unexpected normalization: %+v", page)
	}

	page = PageRequest{Page: 2, Size: 10_000}.Normalize()
	if page.Size != maxPageSize {
		t.Fatalf("expected size capped at %d, got %d", maxPageSize, page.Size)
	}
	if page.Offset() != 2*maxPageSize {
		t.Fatalf("unexpected offset %d", page.Offset())
	}
}

// --- helpers & fakes ---

func buildFileHeader(t *testing.T, fieldName, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("CreateFormFile error: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(int64(len(content)) + 1024); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}

	return req.MultipartForm.File[fieldName][0]
}

type fakeRepo struct {
	records   map[uuid.UUID]Document
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[uuid.UUID]Document)}
}

func (f *fakeRepo) Create(ctx context.Context, doc Document) (Document, error) {
	if f.createErr != nil {
		return Document{}, f.createErr
	}
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	f.records[doc.ID] = doc
	return doc, nil
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	doc, ok := f.records[id]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeRepo) List(ctx context.Context, page PageRequest) (Page, error) {
	var docs []Document
	for _, doc := range f.records {
		docs = append(docs, doc)
	}
	return Page{Documents: docs, Page: page.Page, Size: page.Size, Total: int64(len(docs))}, nil
}

func (f *fakeRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, page PageRequest) (Page, error) {
	var docs []Document
	for _, doc := range f.records {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	return Page{Documents: docs, Page: page.Page, Size: page.Size, Total: int64(len(docs))}, nil
}

func (f *fakeRepo) ListByTag(ctx context.Context, tag string, page PageRequest) (Page, error) {
	var docs []Document
	for _, doc := range f.records {
		for _, t := range doc.Tags {
			if t == tag {
				docs = append(docs, doc)
				break
			}
		}
	}
	return Page{Documents: docs, Page: page.Page, Size: page.Size, Total: int64(len(docs))}, nil
}

func (f *fakeRepo) Search(ctx context.Context, term string, page PageRequest) (Page, error) {
	var docs []Document
	for _, doc := range f.records {
		if strings.Contains(strings.ToLower(doc.Filename), strings.ToLower(term)) {
			docs = append(docs, doc)
		}
	}
	return Page{Documents: docs, Page: page.Page, Size: page.Size, Total: int64(len(docs))}, nil
}

func (f *fakeRepo) Update(ctx context.Context, doc Document) (Document, error) {
	stored, ok := f.records[doc.ID]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	stored.Filename = doc.Filename
	stored.Tags = doc.Tags
	stored.Description = doc.Description
	stored.UpdatedAt = time.Now()
	f.records[doc.ID] = stored
	return stored, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) (Document, error) {
	doc, ok := f.records[id]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	delete(f.records, id)
	return doc, nil
}

type fakeObjectStore struct {
	objects     map[string][]byte
	removeCount int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[objectName] = data
	return minio.UploadInfo{Size: int64(len(data))}, nil
}

func (f *fakeObjectStore) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	data, ok := f.objects[objectName]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStore) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	f.removeCount++
	delete(f.objects, objectName)
	return nil
}

func (f *fakeObjectStore) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	data, ok := f.objects[objectName]
	if !ok {
		return minio.ObjectInfo{}, io.ErrUnexpectedEOF
	}
	return minio.ObjectInfo{Key: objectName, Size: int64(len(data))}, nil
}
