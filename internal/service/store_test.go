package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"docvault/internal/envelope"
	"docvault/internal/kms"
	"docvault/internal/logging"
	"docvault/internal/repository/memory"
	"docvault/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStack struct {
	store *storage.Memory
	repo  *memory.MetadataMemory
	svc   DocumentService
}

func newMemoryStack(t *testing.T) memoryStack {
	t.Helper()
	local, err := kms.NewLocal(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	store := storage.NewMemory()
	repo := memory.NewMetadataMemory()
	cipher := envelope.New(local, 0, logging.Discard())
	return memoryStack{
		store: store,
		repo:  repo,
		svc:   NewDocumentService(store, repo, cipher, testOptions, logging.Discard()),
	}
}

func TestDocumentStore_RoundTrip(t *testing.T) {
	s := newMemoryStack(t)
	ctx := context.Background()

	doc, err := s.svc.Upload(ctx, UploadInput{
		Path:        "notes",
		FileName:    "a.txt",
		ContentType: "text/plain",
		Content:     strings.NewReader("hello"),
		Attributes:  map[string]string{"tag": "x"},
		OwnerID:     "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "notes/"+doc.DocumentID+"/a.txt", doc.StorageKey)
	assert.Equal(t, int64(5), doc.FileSize)
	assert.Equal(t, "1.0", doc.Version)

	rc, _, err := s.store.Get(ctx, "documents", doc.StorageKey)
	require.NoError(t, err)
	var stored bytes.Buffer
	_, err = stored.ReadFrom(rc)
	require.NoError(t, err)
	assert.NotContains(t, stored.String(), "hello")

	got, err := s.svc.Retrieve(ctx, doc.DocumentID, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got.Content))

	hits, err := s.svc.Search(ctx, map[string]string{"tag": "x"}, "u1", false)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, doc.DocumentID, hits[0].DocumentID)

	_, err = s.svc.Retrieve(ctx, doc.DocumentID, "u2", false)
	assert.ErrorIs(t, err, ErrForbidden)

	hits, err = s.svc.Search(ctx, map[string]string{"tag": "x"}, "u2", false)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDocumentStore_EmptyContent(t *testing.T) {
	s := newMemoryStack(t)
	ctx := context.Background()

	doc, err := s.svc.Upload(ctx, UploadInput{FileName: "empty", Content: strings.NewReader(""), OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", doc.ContentType)

	got, err := s.svc.Retrieve(ctx, doc.DocumentID, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, got.Content)
}

func TestDocumentStore_ConcurrentUploadsAreUnique(t *testing.T) {
	s := newMemoryStack(t)
	ctx := context.Background()

	const n = 32
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := s.svc.Upload(ctx, UploadInput{
				Path:     "shared",
				FileName: "same.txt",
				Content:  strings.NewReader(fmt.Sprintf("body-%d", i)),
				OwnerID:  "u1",
			})
			if assert.NoError(t, err) {
				ids[i] = doc.DocumentID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, n, s.repo.Len())
	assert.Equal(t, n, s.store.Len("documents"))

	for i, id := range ids {
		got, err := s.svc.Retrieve(ctx, id, "u1", false)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("body-%d", i), string(got.Content))
	}
}

func TestDocumentStore_TamperedObject(t *testing.T) {
	s := newMemoryStack(t)
	ctx := context.Background()

	doc, err := s.svc.Upload(ctx, UploadInput{FileName: "a.txt", Content: strings.NewReader("hello"), OwnerID: "u1"})
	require.NoError(t, err)

	_, err = s.store.Put(ctx, "documents", doc.StorageKey, strings.NewReader("garbage"), storage.PutObjectOptions{Size: 7})
	require.NoError(t, err)

	_, err = s.svc.Retrieve(ctx, doc.DocumentID, "u1", false)
	assert.ErrorIs(t, err, envelope.ErrDecryptionFailure)
}

func TestDocumentStore_MissingObject(t *testing.T) {
	s := newMemoryStack(t)
	ctx := context.Background()

	doc, err := s.svc.Upload(ctx, UploadInput{FileName: "a.txt", Content: strings.NewReader("hello"), OwnerID: "u1"})
	require.NoError(t, err)
	require.NoError(t, s.store.Delete(ctx, "documents", doc.StorageKey))

	_, err = s.svc.Retrieve(ctx, doc.DocumentID, "u1", false)
	assert.ErrorIs(t, err, ErrObjectUnavailable)
}

func TestDocumentStore_Delete(t *testing.T) {
	s := newMemoryStack(t)
	ctx := context.Background()

	doc, err := s.svc.Upload(ctx, UploadInput{FileName: "a.txt", Content: strings.NewReader("hello"), OwnerID: "u1"})
	require.NoError(t, err)

	require.NoError(t, s.svc.Delete(ctx, doc.DocumentID, "u1", false))
	assert.Zero(t, s.repo.Len())
	assert.Zero(t, s.store.Len("documents"))

	_, err = s.svc.GetMetadata(ctx, doc.DocumentID, "u1", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentStore_UploadCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	uploads, err := NewUploadCounter(reg)
	require.NoError(t, err)

	local, err := kms.NewLocal(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	opts := testOptions
	opts.Uploads = uploads
	svc := NewDocumentService(storage.NewMemory(), memory.NewMetadataMemory(),
		envelope.New(local, 0, logging.Discard()), opts, logging.Discard())

	_, err = svc.Upload(context.Background(), UploadInput{FileName: "a.txt", Content: strings.NewReader("x"), OwnerID: "u1"})
	require.NoError(t, err)

	noKey := NewDocumentService(storage.NewMemory(), memory.NewMetadataMemory(),
		envelope.New(local, 0, logging.Discard()), Options{Bucket: "documents", Uploads: uploads}, logging.Discard())
	_, err = noKey.Upload(context.Background(), UploadInput{FileName: "a.txt", Content: strings.NewReader("x"), OwnerID: "u1"})
	assert.ErrorIs(t, err, envelope.ErrEncryptionFailure)

	assert.Equal(t, 1.0, testutil.ToFloat64(uploads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(uploads.WithLabelValues("error")))

	_, err = NewUploadCounter(reg)
	assert.Error(t, err)
}
