// Package bootstrap assembles the document store from configuration. Both the
// HTTP server and the CLI go through Build so they see identical backends.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/envelope"
	"docvault/internal/kms"
	"docvault/internal/repository"
	"docvault/internal/repository/memory"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// Components are the wired collaborators of a running document store.
type Components struct {
	// DB is nil when the catalog lives in memory.
	DB        *sql.DB
	Store     storage.Storage
	Catalog   repository.MetadataRepository
	Cipher    *envelope.Cipher
	Documents service.DocumentService
}

// Close releases the catalog connection pool, if any.
func (c *Components) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// Build connects every backend named in cfg. Metrics are registered on reg when it is non-nil.
func Build(ctx context.Context, cfg *config.AppConfig, log logrus.FieldLogger, reg prometheus.Registerer) (*Components, error) {
	c := &Components{}

	var err error
	c.DB, c.Catalog, err = openCatalog(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	c.Store, err = openStorage(cfg.Storage, cfg.MinIO)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	client, err := kms.New(ctx, cfg.KMS)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("kms: %w", err)
	}
	c.Cipher = envelope.New(client, cfg.KMS.Timeout, log)

	opts := service.Options{Bucket: cfg.MinIO.Bucket, KeyID: cfg.KMS.KeyID}
	if reg != nil {
		if err := c.Cipher.Register(reg); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("register kms metrics: %w", err)
		}
		if opts.Uploads, err = service.NewUploadCounter(reg); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("register upload metrics: %w", err)
		}
	}

	c.Documents = service.NewDocumentService(c.Store, c.Catalog, c.Cipher, opts, log)

	log.WithFields(logrus.Fields{
		"component":    "bootstrap",
		"catalog":      cfg.Catalog.Backend,
		"storage":      cfg.Storage.Backend,
		"kms_provider": cfg.KMS.Provider,
		"bucket":       cfg.MinIO.Bucket,
	}).Info("document store ready")
	return c, nil
}

func openCatalog(ctx context.Context, cfg *config.AppConfig, log logrus.FieldLogger) (*sql.DB, repository.MetadataRepository, error) {
	switch strings.ToLower(cfg.Catalog.Backend) {
	case "postgres", "":
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect catalog: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate catalog: %w", err)
		}
		return db, postgres.NewMetadataPostgres(db), nil
	case "memory":
		return nil, memory.NewMetadataMemory(), nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog backend %q", cfg.Catalog.Backend)
	}
}

func openStorage(sc config.StorageConfig, mc config.MinIOConfig) (storage.Storage, error) {
	switch strings.ToLower(sc.Backend) {
	case "minio", "":
		s, err := storage.NewMinIO(mc)
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		return s, nil
	case "memory":
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}
