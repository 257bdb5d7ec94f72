package db

import (
	"context"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
)

// schema is applied idempotently at startup. Every tenant-scoped table is
// keyed (tenant_id, id) so cross-tenant probing cannot distinguish a
// foreign row from an absent one at any index.
const schema = `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		revoked_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS storage_locations (
		id UUID PRIMARY KEY,
		backend TEXT NOT NULL,
		key TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS folders (
		id UUID NOT NULL,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		parent_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (tenant_id, id)
	);

	CREATE TABLE IF NOT EXISTS media (
		id UUID NOT NULL,
		tenant_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		sanitized_filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		storage_id UUID NOT NULL REFERENCES storage_locations(id),
		folder_id UUID,
		store_behavior TEXT NOT NULL DEFAULT 'auto',
		store_permanently BOOLEAN NOT NULL DEFAULT FALSE,
		expires_at TIMESTAMPTZ,
		metadata_user JSONB,
		metadata_plugins JSONB,
		attributes JSONB,
		processing_status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ,
		PRIMARY KEY (tenant_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_media_expires ON media (expires_at) WHERE expires_at IS NOT NULL AND deleted_at IS NULL;

	CREATE TABLE IF NOT EXISTS embeddings (
		id UUID NOT NULL,
		tenant_id TEXT NOT NULL,
		entity_id UUID NOT NULL,
		entity_kind TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		vector vector,
		model TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (tenant_id, id),
		UNIQUE (entity_id, entity_kind)
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		type TEXT NOT NULL,
		payload JSONB,
		status TEXT NOT NULL DEFAULT 'pending',
		priority INT NOT NULL DEFAULT 1,
		scheduled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		retry_count INT NOT NULL DEFAULT 0,
		max_retries INT NOT NULL DEFAULT 3,
		timeout_seconds INT NOT NULL DEFAULT 3600,
		depends_on UUID[],
		result JSONB,
		failure_reason TEXT,
		unrecoverable BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_claim ON tasks (priority DESC, scheduled_at ASC, created_at ASC)
		WHERE status IN ('pending', 'scheduled');

	CREATE TABLE IF NOT EXISTS workflows (
		id UUID NOT NULL,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		trigger_rule JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (tenant_id, id)
	);

	CREATE TABLE IF NOT EXISTS workflow_executions (
		id UUID NOT NULL,
		tenant_id TEXT NOT NULL,
		workflow_id UUID NOT NULL,
		task_ids UUID[],
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (tenant_id, id)
	);

	CREATE TABLE IF NOT EXISTS webhooks (
		id UUID PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		url TEXT NOT NULL,
		event_type TEXT NOT NULL,
		secret TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		max_retries INT NOT NULL DEFAULT 10,
		deactivated_at TIMESTAMPTZ,
		deactivation_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_webhooks_lookup ON webhooks (tenant_id, event_type) WHERE is_active;

	CREATE TABLE IF NOT EXISTS webhook_events (
		id UUID PRIMARY KEY,
		webhook_id UUID NOT NULL REFERENCES webhooks(id),
		tenant_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload JSONB,
		status TEXT NOT NULL DEFAULT 'pending',
		retry_count INT NOT NULL DEFAULT 0,
		response_status INT,
		response_body TEXT,
		error_message TEXT,
		sent_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS webhook_retry_queue (
		id UUID PRIMARY KEY,
		webhook_event_id UUID NOT NULL UNIQUE REFERENCES webhook_events(id),
		retry_count INT NOT NULL DEFAULT 0,
		next_retry_at TIMESTAMPTZ NOT NULL,
		last_error TEXT,
		last_attempt_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_webhook_retry_due ON webhook_retry_queue (next_retry_at);

	CREATE TABLE IF NOT EXISTS presigned_upload_sessions (
		id UUID NOT NULL,
		tenant_id TEXT NOT NULL,
		storage_key TEXT NOT NULL,
		filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		declared_size BIGINT NOT NULL,
		kind TEXT NOT NULL,
		store_behavior TEXT NOT NULL DEFAULT 'auto',
		expires_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		chunk_size_bytes BIGINT,
		chunk_count INT,
		client_metadata JSONB,
		media_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (tenant_id, id)
	);

	CREATE TABLE IF NOT EXISTS request_analytics (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		path TEXT NOT NULL,
		method TEXT NOT NULL,
		status INT NOT NULL,
		duration_ms BIGINT NOT NULL,
		bytes_in BIGINT NOT NULL DEFAULT 0,
		bytes_out BIGINT NOT NULL DEFAULT 0,
		occurred_at TIMESTAMPTZ NOT NULL
	);
`

// Migrate applies the schema idempotently at startup.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return mdlerr.Database("apply schema", err)
	}
	return nil
}
