package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	avatar_url    TEXT,
	bio           TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'offline',
	last_seen     TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id              UUID PRIMARY KEY,
	participants    UUID[] NOT NULL,
	name            TEXT NOT NULL,
	avatar_url      TEXT,
	last_message    TEXT,
	last_message_at TIMESTAMPTZ,
	pinned_by       UUID[] NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS conversations_participants_idx ON conversations USING GIN (participants);

CREATE TABLE IF NOT EXISTS messages (
	id              UUID PRIMARY KEY,
	conversation_id UUID NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
	sender_id       UUID NOT NULL,
	content_type    TEXT NOT NULL,
	content_data    TEXT NOT NULL,
	reactions       JSONB NOT NULL DEFAULT '[]',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_conversation_created_idx ON messages (conversation_id, created_at DESC);
`
