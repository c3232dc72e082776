package repository

import (
	"context"

	"docvault/internal/model"
)

// MetadataRepository is the metadata catalog: durable storage and search for
// document metadata. No business logic here, strictly persistence operations.
// Search results are materialized slices in no particular order.
type MetadataRepository interface {
	// Save inserts the record, replacing any existing record with the same DocumentID.
	Save(ctx context.Context, doc *model.DocumentMetadata) error

	// FindByID returns the record for id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.DocumentMetadata, error)

	// SearchByAttributes returns records whose attributes contain every criteria
	// value as a substring of the attribute with the same key. Empty criteria return all records.
	SearchByAttributes(ctx context.Context, criteria map[string]string) ([]model.DocumentMetadata, error)

	// FindByPathPrefix returns records whose FilePath starts with prefix.
	FindByPathPrefix(ctx context.Context, prefix string) ([]model.DocumentMetadata, error)

	// FindByOwner returns records created by ownerID.
	FindByOwner(ctx context.Context, ownerID string) ([]model.DocumentMetadata, error)

	// DeleteByID removes the record. It returns nil if the record did not exist.
	DeleteByID(ctx context.Context, id string) error
}
