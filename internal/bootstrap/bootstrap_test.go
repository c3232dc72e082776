package bootstrap

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/config"
	"docvault/internal/logging"
	"docvault/internal/service"
)

func memoryConfig() *config.AppConfig {
	return &config.AppConfig{
		MinIO:   config.MinIOConfig{Bucket: "documents"},
		Catalog: config.CatalogConfig{Backend: "memory"},
		Storage: config.StorageConfig{Backend: "memory"},
		KMS: config.KMSConfig{
			Provider:       "local",
			KeyID:          "dev-key",
			LocalMasterKey: strings.Repeat("ab", 32),
		},
	}
}

func TestBuild_InMemory(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := Build(context.Background(), memoryConfig(), logging.Discard(), reg)
	require.NoError(t, err)
	defer c.Close()
	assert.Nil(t, c.DB)

	doc, err := c.Documents.Upload(context.Background(), service.UploadInput{
		Path: "notes", FileName: "a.txt", Content: strings.NewReader("hello"), OwnerID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "dev-key", doc.KeyID)

	got, err := c.Documents.Retrieve(context.Background(), doc.DocumentID, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got.Content))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "docvault_kms_request_duration_seconds")
	assert.Contains(t, names, "docvault_documents_uploaded_total")
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.AppConfig)
		wantErr string
	}{
		{"unknown catalog", func(c *config.AppConfig) { c.Catalog.Backend = "mongo" }, "unknown catalog backend"},
		{"unknown storage", func(c *config.AppConfig) { c.Storage.Backend = "tape" }, "unknown storage backend"},
		{"bad master key", func(c *config.AppConfig) { c.KMS.LocalMasterKey = "zz" }, "kms"},
		{"unknown kms provider", func(c *config.AppConfig) { c.KMS.Provider = "vault" }, "unknown kms provider"},
		{"minio without endpoint", func(c *config.AppConfig) { c.Storage.Backend = "minio" }, "minio endpoint is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(cfg)
			_, err := Build(context.Background(), cfg, logging.Discard(), nil)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBuild_DuplicateMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := Build(context.Background(), memoryConfig(), logging.Discard(), reg)
	require.NoError(t, err)
	defer c.Close()

	_, err = Build(context.Background(), memoryConfig(), logging.Discard(), reg)
	assert.ErrorContains(t, err, "register kms metrics")
}
