package postgres

// schema is applied at startup. Events and dead letters are append-only;
// nothing in the service issues UPDATE or DELETE against audit_events.
const schema = `
CREATE TABLE IF NOT EXISTS audit_chain_head (
	id        INTEGER PRIMARY KEY,
	sequence  BIGINT NOT NULL,
	head_hash TEXT NOT NULL,
	version   BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	id            UUID PRIMARY KEY,
	sequence      BIGINT NOT NULL UNIQUE,
	previous_hash TEXT NOT NULL,
	current_hash  TEXT NOT NULL,
	event_type    TEXT NOT NULL,
	collection    TEXT NOT NULL,
	entity_id     TEXT NOT NULL,
	owner_id      TEXT NOT NULL,
	change_type   TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	payload       JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_owner
	ON audit_events (owner_id, sequence DESC);

CREATE TABLE IF NOT EXISTS audit_dead_letters (
	id          UUID PRIMARY KEY,
	failed_at   TIMESTAMPTZ NOT NULL,
	collection  TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	path        TEXT NOT NULL,
	change_type TEXT NOT NULL,
	attempts    INTEGER NOT NULL,
	reason      TEXT NOT NULL,
	last_error  TEXT NOT NULL,
	payload     JSONB NOT NULL
);
`
