package model

import "time"

// InitialVersion is the version assigned to every newly created record.
const InitialVersion = "1.0"

// DocumentMetadata describes one stored document: its identity, ownership,
// location in the object store and caller supplied attributes.
// It carries no persistence tags and is shared by the HTTP, service and repository layers.
type DocumentMetadata struct {
	DocumentID     string            `json:"document_id"`
	FileName       string            `json:"file_name"`
	FilePath       string            `json:"file_path"`
	ContentType    string            `json:"content_type"`
	FileSize       int64             `json:"file_size"`
	Version        string            `json:"version"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	CreatedBy      string            `json:"created_by"`
	LastModifiedBy string            `json:"last_modified_by"`
	StorageBucket  string            `json:"storage_bucket"`
	StorageKey     string            `json:"storage_key"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	// Tags is reserved for classification; the upload path never sets it.
	Tags        map[string]string `json:"tags,omitempty"`
	IsEncrypted bool              `json:"is_encrypted"`
	KeyID       string            `json:"key_id"`
}
