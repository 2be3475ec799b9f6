package sqlite

// Schema creates every table the assistant persists. Statements are
// idempotent so Open can apply them on each start.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	language         TEXT NOT NULL DEFAULT 'English',
	status           TEXT NOT NULL DEFAULT 'active',
	created_at       TEXT NOT NULL,
	last_activity_at TEXT NOT NULL,
	message_count    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_activity ON sessions(user_id, last_activity_at);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	session_id      TEXT NOT NULL REFERENCES sessions(id),
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	metadata        TEXT NOT NULL DEFAULT '{}',
	idempotency_key TEXT UNIQUE,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(user_id, session_id, created_at);

CREATE TABLE IF NOT EXISTS memories (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	text       TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	source     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id, created_at);

CREATE TABLE IF NOT EXISTS knowledge (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	text       TEXT NOT NULL,
	source     TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_knowledge_created ON knowledge(created_at);

CREATE TABLE IF NOT EXISTS style_preferences (
	user_id          TEXT PRIMARY KEY,
	style_preference TEXT NOT NULL DEFAULT 'balanced',
	tone_preference  TEXT NOT NULL DEFAULT '',
	style_scores     TEXT NOT NULL DEFAULT '{}',
	updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	session_id      TEXT NOT NULL DEFAULT '',
	message_id      TEXT NOT NULL DEFAULT '',
	value           TEXT NOT NULL,
	applied_style   TEXT NOT NULL,
	preferred_style TEXT NOT NULL DEFAULT '',
	preferred_tone  TEXT NOT NULL DEFAULT '',
	feedback_text   TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	name    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS goals (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id        TEXT NOT NULL,
	goal           TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	target_amount  REAL NOT NULL DEFAULT 0,
	current_amount REAL NOT NULL DEFAULT 0,
	progress       REAL NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'active'
);
CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id);

CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	amount      REAL NOT NULL,
	type        TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	merchant    TEXT NOT NULL DEFAULT '',
	reference   TEXT NOT NULL DEFAULT '',
	occurred_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, occurred_at);
`
