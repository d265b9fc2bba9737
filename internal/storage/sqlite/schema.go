package sqlite

// Schema defines the SQLite database schema for the Ekko backend.
//
// Enrichments reference contacts with ON DELETE CASCADE so that deleting a
// contact removes its enrichment record in the same statement. The UNIQUE
// constraint on contact_id enforces the one-record-per-contact rule at the
// storage layer.
const Schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	company TEXT,
	role TEXT,
	email TEXT,
	phone TEXT,
	linkedin TEXT,
	notes TEXT,
	tags TEXT,
	avatar_color TEXT,
	last_contact_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_last_name ON contacts(last_name);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company);
CREATE INDEX IF NOT EXISTS idx_contacts_created_at ON contacts(created_at);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	due_at TIMESTAMP,
	priority TEXT NOT NULL DEFAULT 'medium',
	category TEXT NOT NULL DEFAULT 'followUp',
	completed INTEGER NOT NULL DEFAULT 0,
	completed_at TIMESTAMP,
	contact_id TEXT,
	contact_name TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_due_at ON tasks(due_at);
CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed);
CREATE INDEX IF NOT EXISTS idx_tasks_contact_id ON tasks(contact_id);

CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT,
	color TEXT,
	pinned INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_pinned ON notes(pinned);
CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at);

CREATE TABLE IF NOT EXISTS voice_logs (
	id TEXT PRIMARY KEY,
	transcription TEXT NOT NULL,
	intent TEXT NOT NULL,
	response TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_voice_logs_created_at ON voice_logs(created_at);

CREATE TABLE IF NOT EXISTS enrichments (
	id TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'pending',
	linkedin_url TEXT,
	linkedin_headline TEXT,
	linkedin_summary TEXT,
	company_description TEXT,
	company_industry TEXT,
	company_size TEXT,
	company_website TEXT,
	company_funding_stage TEXT,
	twitter_url TEXT,
	github_url TEXT,
	recent_news TEXT,
	last_error TEXT,
	last_enriched_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_enrichments_status ON enrichments(status);
`
