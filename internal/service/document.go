package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docvault/internal/access"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

const defaultContentType = "application/octet-stream"

var tracer = otel.Tracer("docvault/internal/service")

// Cipher encrypts and decrypts document content. *envelope.Cipher implements it.
type Cipher interface {
	Encrypt(ctx context.Context, keyID string, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// UploadInput carries one upload request.
type UploadInput struct {
	// Path is the logical folder the document is filed under, stored as given.
	Path        string
	FileName    string
	ContentType string
	Content     io.Reader
	Attributes  map[string]string
	OwnerID     string
}

// Document is a decrypted document together with its metadata.
type Document struct {
	Metadata *model.DocumentMetadata
	Content  []byte
}

// Options configures where documents are written and which key encrypts them.
// Uploads, when set, counts upload attempts by outcome.
type Options struct {
	Bucket  string
	KeyID   string
	Uploads *prometheus.CounterVec
}

// NewUploadCounter creates and registers docvault_documents_uploaded_total.
func NewUploadCounter(reg prometheus.Registerer) (*prometheus.CounterVec, error) {
	c := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docvault_documents_uploaded_total",
			Help: "Document uploads by outcome.",
		},
		[]string{"outcome"},
	)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// DocumentService defines the use cases for handling encrypted documents.
// Every read is gated by the access guard using the explicit requester identity.
type DocumentService interface {
	// Upload encrypts the content, writes the ciphertext to object storage and then saves
	// the metadata record. Failures are reported as *UploadError.
	Upload(ctx context.Context, in UploadInput) (*model.DocumentMetadata, error)

	// Retrieve returns the decrypted content of a document the requester may read.
	Retrieve(ctx context.Context, id, requesterID string, isAdmin bool) (*Document, error)

	// GetMetadata returns a document's metadata record without touching its content.
	GetMetadata(ctx context.Context, id, requesterID string, isAdmin bool) (*model.DocumentMetadata, error)

	// Search returns readable records whose attributes contain every criteria value.
	Search(ctx context.Context, criteria map[string]string, requesterID string, isAdmin bool) ([]model.DocumentMetadata, error)

	// FindByPath returns readable records filed under the path prefix.
	FindByPath(ctx context.Context, prefix, requesterID string, isAdmin bool) ([]model.DocumentMetadata, error)

	// FindByOwner returns readable records created by ownerID.
	FindByOwner(ctx context.Context, ownerID, requesterID string, isAdmin bool) ([]model.DocumentMetadata, error)

	// Delete removes a document's metadata record, then its object on a best-effort basis.
	Delete(ctx context.Context, id, requesterID string, isAdmin bool) error
}

// documentService is a concrete implementation of DocumentService.
// It holds only immutable collaborators and is safe for concurrent use.
type documentService struct {
	store   storage.Storage
	repo    repository.MetadataRepository
	cipher  Cipher
	bucket  string
	keyID   string
	uploads *prometheus.CounterVec
	log     logrus.FieldLogger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.MetadataRepository, cipher Cipher, opts Options, log logrus.FieldLogger) DocumentService {
	return &documentService{
		store:   store,
		repo:    repo,
		cipher:  cipher,
		bucket:  opts.Bucket,
		keyID:   opts.KeyID,
		uploads: opts.Uploads,
		log:     log.WithField("component", "document_service"),
	}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*model.DocumentMetadata, error) {
	if in.Content == nil {
		return nil, ErrReaderNil
	}
	if in.FileName == "" {
		return nil, ErrFileNameRequired
	}
	if in.OwnerID == "" {
		return nil, ErrOwnerRequired
	}

	ctx, span := tracer.Start(ctx, "DocumentService.Upload", trace.WithAttributes(
		attribute.String("docvault.path", in.Path),
		attribute.String("docvault.owner", in.OwnerID),
	))
	defer span.End()

	doc, err := s.upload(ctx, in)
	s.countUpload(err)
	if err != nil {
		recordError(span, err)
		s.log.WithFields(logrus.Fields{
			"event":  "document_upload_failed",
			"status": "error",
			"bucket": s.bucket,
		}).WithError(err).Error("document upload failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("docvault.document_id", doc.DocumentID))
	s.log.WithFields(logrus.Fields{
		"event":       "document_uploaded",
		"status":      "success",
		"document_id": doc.DocumentID,
		"storage_key": doc.StorageKey,
		"file_size":   doc.FileSize,
	}).Info("document uploaded")
	return doc, nil
}

func (s *documentService) upload(ctx context.Context, in UploadInput) (*model.DocumentMetadata, error) {
	id := uuid.NewString()
	key := storage.ObjectKey(in.Path, id, in.FileName)
	fail := func(cause error) error {
		return &UploadError{Bucket: s.bucket, Key: key, Err: cause}
	}

	content, err := io.ReadAll(in.Content)
	if err != nil {
		return nil, fail(fmt.Errorf("read content: %w", err))
	}

	if err := s.store.EnsureBucket(ctx, s.bucket); err != nil {
		return nil, fail(fmt.Errorf("ensure bucket: %w", err))
	}

	ciphertext, err := s.cipher.Encrypt(ctx, s.keyID, content)
	if err != nil {
		return nil, fail(err)
	}

	_, err = s.store.Put(ctx, s.bucket, key, bytes.NewReader(ciphertext), storage.PutObjectOptions{
		Size:        int64(len(ciphertext)),
		ContentType: defaultContentType,
		Metadata: map[string]string{
			"document-id": id,
		},
	})
	if err != nil {
		return nil, fail(fmt.Errorf("write object: %w", err))
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	now := time.Now().UTC()
	doc := &model.DocumentMetadata{
		DocumentID:     id,
		FileName:       in.FileName,
		FilePath:       in.Path,
		ContentType:    contentType,
		FileSize:       int64(len(content)),
		Version:        model.InitialVersion,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      in.OwnerID,
		LastModifiedBy: in.OwnerID,
		StorageBucket:  s.bucket,
		StorageKey:     key,
		Attributes:     in.Attributes,
		IsEncrypted:    true,
		KeyID:          s.keyID,
	}

	// An abandoned call must not be reported as a success once the object is written.
	saveErr := ctx.Err()
	if saveErr == nil {
		saveErr = s.repo.Save(ctx, doc)
	}
	if saveErr != nil {
		s.removeOrphan(ctx, key, id)
		return nil, fail(fmt.Errorf("write metadata: %w", saveErr))
	}
	return doc, nil
}

func (s *documentService) countUpload(err error) {
	if s.uploads == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.uploads.WithLabelValues(outcome).Inc()
}

// removeOrphan makes one attempt to delete an object whose metadata could not be saved.
// It runs detached from the caller's cancellation and never changes the upload's outcome.
func (s *documentService) removeOrphan(ctx context.Context, key, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	entry := s.log.WithFields(logrus.Fields{
		"event":       "orphan_cleanup",
		"document_id": id,
		"bucket":      s.bucket,
		"storage_key": key,
	})
	if err := s.store.Delete(ctx, s.bucket, key); err != nil {
		entry.WithField("status", "error").WithError(err).Error("orphaned object left in storage")
		return
	}
	entry.WithField("status", "success").Warn("orphaned object removed")
}

func (s *documentService) Retrieve(ctx context.Context, id, requesterID string, isAdmin bool) (*Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Retrieve", trace.WithAttributes(
		attribute.String("docvault.document_id", id),
	))
	defer span.End()

	d, err := s.retrieve(ctx, id, requesterID, isAdmin)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return d, nil
}

func (s *documentService) retrieve(ctx context.Context, id, requesterID string, isAdmin bool) (*Document, error) {
	doc, err := s.authorize(ctx, id, requesterID, isAdmin)
	if err != nil {
		return nil, err
	}

	rc, _, err := s.store.Get(ctx, doc.StorageBucket, doc.StorageKey)
	if err != nil {
		return nil, s.objectUnavailable(doc, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, s.objectUnavailable(doc, err)
	}

	if !doc.IsEncrypted {
		return &Document{Metadata: doc, Content: raw}, nil
	}
	plaintext, err := s.cipher.Decrypt(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &Document{Metadata: doc, Content: plaintext}, nil
}

func (s *documentService) objectUnavailable(doc *model.DocumentMetadata, cause error) error {
	s.log.WithFields(logrus.Fields{
		"event":       "object_unavailable",
		"status":      "error",
		"document_id": doc.DocumentID,
		"bucket":      doc.StorageBucket,
		"storage_key": doc.StorageKey,
	}).WithError(cause).Error("metadata references an unreadable object")
	return fmt.Errorf("%w: %s/%s: %w", ErrObjectUnavailable, doc.StorageBucket, doc.StorageKey, cause)
}

func (s *documentService) GetMetadata(ctx context.Context, id, requesterID string, isAdmin bool) (*model.DocumentMetadata, error) {
	return s.authorize(ctx, id, requesterID, isAdmin)
}

// authorize loads the record and applies the access guard.
func (s *documentService) authorize(ctx context.Context, id, requesterID string, isAdmin bool) (*model.DocumentMetadata, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !access.CanRead(doc, requesterID, isAdmin) {
		return nil, ErrForbidden
	}
	return doc, nil
}

func (s *documentService) Search(ctx context.Context, criteria map[string]string, requesterID string, isAdmin bool) ([]model.DocumentMetadata, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Search", trace.WithAttributes(
		attribute.Int("docvault.criteria", len(criteria)),
	))
	defer span.End()

	docs, err := s.repo.SearchByAttributes(ctx, criteria)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	out := access.Filter(docs, requesterID, isAdmin)
	span.SetAttributes(attribute.Int("docvault.results", len(out)))
	return out, nil
}

func (s *documentService) FindByPath(ctx context.Context, prefix, requesterID string, isAdmin bool) ([]model.DocumentMetadata, error) {
	docs, err := s.repo.FindByPathPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return access.Filter(docs, requesterID, isAdmin), nil
}

func (s *documentService) FindByOwner(ctx context.Context, ownerID, requesterID string, isAdmin bool) ([]model.DocumentMetadata, error) {
	docs, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return access.Filter(docs, requesterID, isAdmin), nil
}

// Delete removes the metadata record first so no record ever points at a missing
// object, then removes the object. A failed object removal is logged, not returned.
func (s *documentService) Delete(ctx context.Context, id, requesterID string, isAdmin bool) error {
	doc, err := s.authorize(ctx, id, requesterID, isAdmin)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}

	entry := s.log.WithFields(logrus.Fields{
		"event":       "document_deleted",
		"document_id": id,
		"storage_key": doc.StorageKey,
	})
	if err := s.store.Delete(ctx, doc.StorageBucket, doc.StorageKey); err != nil {
		entry.WithField("status", "error").WithError(err).Warn("metadata deleted, object left in storage")
		return nil
	}
	entry.WithField("status", "success").Info("document deleted")
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
