package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelQuery reports whether the catalog table already exists.
const sentinelQuery = "SELECT to_regclass('public.document_metadata') IS NOT NULL"

var steps = []migrationStep{
	{
		Name: "create_table_document_metadata",
		SQL: `CREATE TABLE IF NOT EXISTS document_metadata (
  document_id      TEXT        PRIMARY KEY,
  file_name        TEXT        NOT NULL,
  file_path        TEXT        NOT NULL,
  content_type     TEXT        NOT NULL,
  file_size        BIGINT      NOT NULL CHECK (file_size >= 0),
  version          TEXT        NOT NULL,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  created_by       TEXT        NOT NULL,
  last_modified_by TEXT        NOT NULL,
  storage_bucket   TEXT        NOT NULL,
  storage_key      TEXT        NOT NULL UNIQUE,
  attributes       JSONB       NOT NULL DEFAULT '{}'::jsonb,
  tags             JSONB       NOT NULL DEFAULT '{}'::jsonb,
  is_encrypted     BOOLEAN     NOT NULL DEFAULT false,
  key_id           TEXT        NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_index_document_metadata_created_by",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_metadata_created_by ON document_metadata (created_by);`,
	},
	{
		Name: "create_index_document_metadata_file_path",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_metadata_file_path ON document_metadata (file_path text_pattern_ops);`,
	},
	{
		Name: "create_index_document_metadata_attributes",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_metadata_attributes ON document_metadata USING GIN (attributes);`,
	},
	{
		Name: "create_index_document_metadata_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_metadata_created_at ON document_metadata (created_at);`,
	},
}

// EnsureMigrated creates the document_metadata table and its indexes unless the
// table already exists. Every step is idempotent, so a half-finished run can be retried.
func EnsureMigrated(ctx context.Context, db *sql.DB, log logrus.FieldLogger, dbHost string) error {
	start := time.Now()
	log = log.WithFields(logrus.Fields{
		"component": "database",
		"db_host":   dbHost,
	})

	log.WithFields(logrus.Fields{
		"event":  "db_migration_check",
		"status": "starting",
	}).Info("checking catalog schema")

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery).Scan(&exists); err != nil {
		log.WithFields(logrus.Fields{
			"event":       "db_migration_failed",
			"status":      "error",
			"duration_ms": time.Since(start).Milliseconds(),
		}).WithError(err).Error("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.WithFields(logrus.Fields{
			"event":       "db_migration_skip",
			"status":      "success",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("schema already exists, skipping migration")
		return nil
	}

	log.WithFields(logrus.Fields{
		"event":  "db_migration_start",
		"status": "in_progress",
	}).Info("applying catalog schema")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.WithFields(logrus.Fields{
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			}).WithError(err).Error("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.WithFields(logrus.Fields{
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Debug("migration step applied")
	}

	log.WithFields(logrus.Fields{
		"event":       "db_migration_success",
		"status":      "success",
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("catalog schema created")
	return nil
}
