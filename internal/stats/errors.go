package stats

import "codeberg.org/mutker/daviscap/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("stats_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("stats_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("stats_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("stats_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("stats_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitStats
	ErrStorageClose = errors.ErrCloseStats

	// Recording Errors
	ErrRecordFailed  = errors.ErrRecordStats
	ErrInvalidWindow = errors.ErrorCode("stats_invalid_window")
)
