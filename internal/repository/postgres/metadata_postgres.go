package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// MetadataPostgres is a PostgreSQL implementation of repository.MetadataRepository.
// Attributes and tags are stored as JSONB; every filter value is a bound parameter.
type MetadataPostgres struct {
	db *sql.DB
}

// NewMetadataPostgres creates a new MetadataPostgres repository.
func NewMetadataPostgres(db *sql.DB) *MetadataPostgres {
	return &MetadataPostgres{db: db}
}

var _ repository.MetadataRepository = (*MetadataPostgres)(nil)

const selectMetadata = `
		SELECT document_id, file_name, file_path, content_type, file_size, version,
		       created_at, updated_at, created_by, last_modified_by,
		       storage_bucket, storage_key, attributes, tags, is_encrypted, key_id
		FROM document_metadata`

// Save upserts the record keyed by document_id.
func (r *MetadataPostgres) Save(ctx context.Context, doc *model.DocumentMetadata) error {
	const q = `
		INSERT INTO document_metadata (
			document_id, file_name, file_path, content_type, file_size, version,
			created_at, updated_at, created_by, last_modified_by,
			storage_bucket, storage_key, attributes, tags, is_encrypted, key_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (document_id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			file_path = EXCLUDED.file_path,
			content_type = EXCLUDED.content_type,
			file_size = EXCLUDED.file_size,
			version = EXCLUDED.version,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			created_by = EXCLUDED.created_by,
			last_modified_by = EXCLUDED.last_modified_by,
			storage_bucket = EXCLUDED.storage_bucket,
			storage_key = EXCLUDED.storage_key,
			attributes = EXCLUDED.attributes,
			tags = EXCLUDED.tags,
			is_encrypted = EXCLUDED.is_encrypted,
			key_id = EXCLUDED.key_id
	`
	attrs, err := encodeMap(doc.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	tags, err := encodeMap(doc.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, q,
		doc.DocumentID,
		doc.FileName,
		doc.FilePath,
		doc.ContentType,
		doc.FileSize,
		doc.Version,
		doc.CreatedAt,
		doc.UpdatedAt,
		doc.CreatedBy,
		doc.LastModifiedBy,
		doc.StorageBucket,
		doc.StorageKey,
		attrs,
		tags,
		doc.IsEncrypted,
		doc.KeyID,
	)
	if err != nil {
		return unavailable("save", err)
	}
	return nil
}

// FindByID fetches a single record by its id.
func (r *MetadataPostgres) FindByID(ctx context.Context, id string) (*model.DocumentMetadata, error) {
	row := r.db.QueryRowContext(ctx, selectMetadata+` WHERE document_id = $1`, id)
	d, err := scanMetadata(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, unavailable("find by id", err)
	}
	return d, nil
}

// SearchByAttributes compiles criteria into a conjunction of substring predicates,
// one per key, or performs a full scan when criteria is empty.
func (r *MetadataPostgres) SearchByAttributes(ctx context.Context, criteria map[string]string) ([]model.DocumentMetadata, error) {
	q := selectMetadata
	where, args := BuildAttributeFilter(criteria)
	if where != "" {
		q += " WHERE " + where
	}
	return r.query(ctx, "search by attributes", q, args...)
}

// FindByPathPrefix matches file_path by exact prefix.
func (r *MetadataPostgres) FindByPathPrefix(ctx context.Context, prefix string) ([]model.DocumentMetadata, error) {
	return r.query(ctx, "find by path prefix", selectMetadata+` WHERE starts_with(file_path, $1)`, prefix)
}

// FindByOwner matches created_by exactly.
func (r *MetadataPostgres) FindByOwner(ctx context.Context, ownerID string) ([]model.DocumentMetadata, error) {
	return r.query(ctx, "find by owner", selectMetadata+` WHERE created_by = $1`, ownerID)
}

// DeleteByID removes a record by id. It does not return an error if the row does not exist.
func (r *MetadataPostgres) DeleteByID(ctx context.Context, id string) error {
	const q = `DELETE FROM document_metadata WHERE document_id = $1`
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return unavailable("delete by id", err)
	}
	return nil
}

// BuildAttributeFilter returns the WHERE fragment and bound arguments for an
// attribute-contains search. Keys are emitted in sorted order so the statement
// is stable for a given criteria map. An empty map yields an empty fragment.
func BuildAttributeFilter(criteria map[string]string) (string, []any) {
	if len(criteria) == 0 {
		return "", nil
	}
	keys := slices.Sorted(maps.Keys(criteria))
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, 2*len(keys))
	for i, k := range keys {
		clauses = append(clauses, fmt.Sprintf("strpos(attributes ->> $%d, $%d) > 0", 2*i+1, 2*i+2))
		args = append(args, k, criteria[k])
	}
	return strings.Join(clauses, " AND "), args
}

func (r *MetadataPostgres) query(ctx context.Context, op, q string, args ...any) ([]model.DocumentMetadata, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	items := make([]model.DocumentMetadata, 0)
	for rows.Next() {
		d, err := scanMetadata(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetadata(s rowScanner) (*model.DocumentMetadata, error) {
	var (
		d           model.DocumentMetadata
		attrs, tags []byte
	)
	if err := s.Scan(
		&d.DocumentID,
		&d.FileName,
		&d.FilePath,
		&d.ContentType,
		&d.FileSize,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.CreatedBy,
		&d.LastModifiedBy,
		&d.StorageBucket,
		&d.StorageKey,
		&attrs,
		&tags,
		&d.IsEncrypted,
		&d.KeyID,
	); err != nil {
		return nil, err
	}
	var err error
	if d.Attributes, err = decodeMap(attrs); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	if d.Tags, err = decodeMap(tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &d, nil
}

func encodeMap(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMap(b []byte) (map[string]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", repository.ErrCatalogUnavailable, op, err)
}
