package postgres

// schemaDDL declares the relational shape of every collection. It is applied
// statement by statement on startup; the snapshot `state` table is the
// authoritative hydration source, these tables document the model for
// external tooling.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	id BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	title TEXT NOT NULL,
	file_name TEXT NOT NULL,
	content_type TEXT,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	storage_key TEXT,
	uploaded_by BIGINT NOT NULL,
	related_to_type TEXT,
	related_to_id BIGINT,
	CHECK ((related_to_type IS NULL) = (related_to_id IS NULL))
);
CREATE TABLE IF NOT EXISTS leads (
	id BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	name TEXT NOT NULL,
	company TEXT NOT NULL,
	email TEXT,
	phone TEXT,
	status TEXT NOT NULL,
	owner_id BIGINT,
	notes TEXT
);
CREATE TABLE IF NOT EXISTS tenders (
	id BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	title TEXT NOT NULL,
	reference TEXT NOT NULL,
	status TEXT NOT NULL,
	lead_id BIGINT,
	value DOUBLE PRECISION NOT NULL DEFAULT 0,
	due_date TIMESTAMPTZ,
	description TEXT
);
CREATE TABLE IF NOT EXISTS projects (
	id BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	tender_id BIGINT,
	project_manager_id BIGINT,
	start_date TIMESTAMPTZ,
	end_date TIMESTAMPTZ,
	description TEXT
);
CREATE TABLE IF NOT EXISTS milestones (
	id BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	project_id BIGINT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	due_date TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS activities (
	id BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	entity_type TEXT NOT NULL,
	action_type TEXT NOT NULL,
	performed_by_id BIGINT NOT NULL,
	related_to_type TEXT,
	related_to_id BIGINT,
	CHECK ((related_to_type IS NULL) = (related_to_id IS NULL))
);
`
