package memory

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// MetadataMemory is an in-process repository.MetadataRepository with the same
// search semantics as the PostgreSQL implementation. It backs the CLI's dev
// mode and service-level tests.
type MetadataMemory struct {
	mu      sync.RWMutex
	records map[string]model.DocumentMetadata
}

// NewMetadataMemory returns an empty catalog.
func NewMetadataMemory() *MetadataMemory {
	return &MetadataMemory{records: make(map[string]model.DocumentMetadata)}
}

var _ repository.MetadataRepository = (*MetadataMemory)(nil)

func (m *MetadataMemory) Save(ctx context.Context, doc *model.DocumentMetadata) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[doc.DocumentID] = clone(*doc)
	return nil
}

func (m *MetadataMemory) FindByID(ctx context.Context, id string) (*model.DocumentMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := clone(d)
	return &out, nil
}

func (m *MetadataMemory) SearchByAttributes(ctx context.Context, criteria map[string]string) ([]model.DocumentMetadata, error) {
	return m.scan(ctx, func(d *model.DocumentMetadata) bool {
		for k, v := range criteria {
			got, ok := d.Attributes[k]
			if !ok || !strings.Contains(got, v) {
				return false
			}
		}
		return true
	})
}

func (m *MetadataMemory) FindByPathPrefix(ctx context.Context, prefix string) ([]model.DocumentMetadata, error) {
	return m.scan(ctx, func(d *model.DocumentMetadata) bool {
		return strings.HasPrefix(d.FilePath, prefix)
	})
}

func (m *MetadataMemory) FindByOwner(ctx context.Context, ownerID string) ([]model.DocumentMetadata, error) {
	return m.scan(ctx, func(d *model.DocumentMetadata) bool {
		return d.CreatedBy == ownerID
	})
}

func (m *MetadataMemory) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Len reports the number of stored records.
func (m *MetadataMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MetadataMemory) scan(ctx context.Context, match func(*model.DocumentMetadata) bool) ([]model.DocumentMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]model.DocumentMetadata, 0)
	for _, d := range m.records {
		if match(&d) {
			items = append(items, clone(d))
		}
	}
	return items, nil
}

func clone(d model.DocumentMetadata) model.DocumentMetadata {
	d.Attributes = maps.Clone(d.Attributes)
	d.Tags = maps.Clone(d.Tags)
	return d
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", repository.ErrCatalogUnavailable, err)
}
