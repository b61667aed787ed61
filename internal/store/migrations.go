package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create support desk tables",
		SQL: `
			CREATE TABLE customers (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id         INTEGER NOT NULL UNIQUE,
				name            TEXT NOT NULL DEFAULT '',
				email           TEXT NOT NULL DEFAULT '',
				phone           TEXT NOT NULL DEFAULT '',
				account_status  TEXT NOT NULL DEFAULT 'active',
				credit_score    INTEGER,
				account_age     TEXT NOT NULL DEFAULT '',
				loan_status     TEXT NOT NULL DEFAULT '',
				created_at      TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE agents (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				name            TEXT NOT NULL,
				email           TEXT NOT NULL UNIQUE,
				status          TEXT NOT NULL DEFAULT 'OFFLINE',
				last_active_at  TEXT NOT NULL DEFAULT (datetime('now')),
				created_at      TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE conversations (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				customer_id      INTEGER NOT NULL REFERENCES customers(id),
				agent_id         INTEGER REFERENCES agents(id),
				status           TEXT NOT NULL DEFAULT 'OPEN',
				last_message_at  TEXT NOT NULL,
				resolved_at      TEXT,
				created_at       TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_conversations_customer_status ON conversations (customer_id, status);
			CREATE INDEX idx_conversations_last_message ON conversations (last_message_at);

			CREATE TABLE messages (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				customer_id      INTEGER NOT NULL REFERENCES customers(id),
				conversation_id  INTEGER NOT NULL REFERENCES conversations(id),
				content          TEXT NOT NULL,
				direction        TEXT NOT NULL,
				urgency_score    INTEGER NOT NULL DEFAULT 1,
				urgency_level    TEXT NOT NULL DEFAULT 'LOW',
				status           TEXT NOT NULL DEFAULT 'UNREAD',
				agent_id         INTEGER REFERENCES agents(id),
				timestamp        TEXT NOT NULL,
				created_at       TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_conversation ON messages (conversation_id, timestamp);
			CREATE INDEX idx_messages_status ON messages (status);
			CREATE INDEX idx_messages_urgency ON messages (urgency_level);

			CREATE TABLE canned_responses (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				title       TEXT NOT NULL,
				content     TEXT NOT NULL,
				category    TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_canned_category ON canned_responses (category, title);
		`,
	},
}
