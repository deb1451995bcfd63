package sqlstore

// Supported dialects, named after their database/sql driver
const (
	DialectSQLite   = "sqlite3"
	DialectMySQL    = "mysql"
	DialectPostgres = "pgx"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS llm_cache (
		message_id TEXT PRIMARY KEY,
		verdict TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS llm_debug (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT NOT NULL,
		attempt TEXT NOT NULL,
		raw TEXT NOT NULL,
		error TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_debug_message ON llm_debug(message_id)`,
	`CREATE TABLE IF NOT EXISTS emails (
		user_id TEXT NOT NULL,
		gmail_id TEXT NOT NULL,
		thread_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		sender TEXT NOT NULL,
		snippet TEXT NOT NULL,
		recipient TEXT NOT NULL,
		sender_email TEXT NOT NULL,
		is_placement_sender BOOLEAN NOT NULL,
		label TEXT NOT NULL,
		score REAL NOT NULL,
		reasons TEXT NOT NULL,
		llm_annotation TEXT NOT NULL,
		llm TEXT,
		received_at TEXT NOT NULL,
		PRIMARY KEY (user_id, gmail_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_received ON emails(user_id, received_at)`,
	`CREATE TABLE IF NOT EXISTS companies (
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (user_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		user_id TEXT NOT NULL,
		keyword TEXT NOT NULL,
		weight REAL NOT NULL DEFAULT 0,
		type TEXT NOT NULL,
		PRIMARY KEY (user_id, keyword, type)
	)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS llm_cache (
		message_id VARCHAR(255) PRIMARY KEY,
		verdict TEXT NOT NULL,
		created_at VARCHAR(32) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS llm_debug (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		message_id VARCHAR(255) NOT NULL,
		attempt VARCHAR(16) NOT NULL,
		raw MEDIUMTEXT NOT NULL,
		error TEXT NOT NULL,
		created_at VARCHAR(32) NOT NULL,
		INDEX idx_llm_debug_message (message_id)
	)`,
	`CREATE TABLE IF NOT EXISTS emails (
		user_id VARCHAR(255) NOT NULL,
		gmail_id VARCHAR(255) NOT NULL,
		thread_id VARCHAR(255) NOT NULL,
		subject TEXT NOT NULL,
		sender TEXT NOT NULL,
		snippet TEXT NOT NULL,
		recipient TEXT NOT NULL,
		sender_email VARCHAR(320) NOT NULL,
		is_placement_sender BOOLEAN NOT NULL,
		label VARCHAR(32) NOT NULL,
		score DOUBLE NOT NULL,
		reasons TEXT NOT NULL,
		llm_annotation TEXT NOT NULL,
		llm TEXT,
		received_at VARCHAR(32) NOT NULL,
		PRIMARY KEY (user_id, gmail_id),
		INDEX idx_emails_received (user_id, received_at)
	)`,
	`CREATE TABLE IF NOT EXISTS companies (
		user_id VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		PRIMARY KEY (user_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		user_id VARCHAR(255) NOT NULL,
		keyword VARCHAR(255) NOT NULL,
		weight DOUBLE NOT NULL DEFAULT 0,
		type VARCHAR(16) NOT NULL,
		PRIMARY KEY (user_id, keyword, type)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS llm_cache (
		message_id TEXT PRIMARY KEY,
		verdict TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS llm_debug (
		id BIGSERIAL PRIMARY KEY,
		message_id TEXT NOT NULL,
		attempt TEXT NOT NULL,
		raw TEXT NOT NULL,
		error TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_debug_message ON llm_debug(message_id)`,
	`CREATE TABLE IF NOT EXISTS emails (
		user_id TEXT NOT NULL,
		gmail_id TEXT NOT NULL,
		thread_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		sender TEXT NOT NULL,
		snippet TEXT NOT NULL,
		recipient TEXT NOT NULL,
		sender_email TEXT NOT NULL,
		is_placement_sender BOOLEAN NOT NULL,
		label TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		reasons TEXT NOT NULL,
		llm_annotation TEXT NOT NULL,
		llm TEXT,
		received_at TEXT NOT NULL,
		PRIMARY KEY (user_id, gmail_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_received ON emails(user_id, received_at)`,
	`CREATE TABLE IF NOT EXISTS companies (
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (user_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		user_id TEXT NOT NULL,
		keyword TEXT NOT NULL,
		weight DOUBLE PRECISION NOT NULL DEFAULT 0,
		type TEXT NOT NULL,
		PRIMARY KEY (user_id, keyword, type)
	)`,
}

// upsert statements differ only in their conflict clause
const (
	upsertVerdictStd = `INSERT INTO llm_cache (message_id, verdict, created_at) VALUES (?, ?, ?)
		ON CONFLICT (message_id) DO UPDATE SET verdict = excluded.verdict, created_at = excluded.created_at`
	upsertVerdictMySQL = `INSERT INTO llm_cache (message_id, verdict, created_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE verdict = VALUES(verdict), created_at = VALUES(created_at)`

	insertEmail = `INSERT INTO emails (user_id, gmail_id, thread_id, subject, sender, snippet, recipient,
		sender_email, is_placement_sender, label, score, reasons, llm_annotation, llm, received_at)
		VALUES (:user_id, :gmail_id, :thread_id, :subject, :sender, :snippet, :recipient,
		:sender_email, :is_placement_sender, :label, :score, :reasons, :llm_annotation, :llm, :received_at)`
	upsertEmailStd = insertEmail + `
		ON CONFLICT (user_id, gmail_id) DO UPDATE SET label = excluded.label, score = excluded.score,
		reasons = excluded.reasons, llm_annotation = excluded.llm_annotation, llm = excluded.llm,
		received_at = excluded.received_at`
	upsertEmailMySQL = insertEmail + `
		ON DUPLICATE KEY UPDATE label = VALUES(label), score = VALUES(score), reasons = VALUES(reasons),
		llm_annotation = VALUES(llm_annotation), llm = VALUES(llm), received_at = VALUES(received_at)`

	insertCompanyStd   = `INSERT INTO companies (user_id, name) VALUES (?, ?) ON CONFLICT DO NOTHING`
	insertCompanyMySQL = `INSERT IGNORE INTO companies (user_id, name) VALUES (?, ?)`

	upsertKeywordStd = `INSERT INTO keywords (user_id, keyword, weight, type) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, keyword, type) DO UPDATE SET weight = excluded.weight`
	upsertKeywordMySQL = `INSERT INTO keywords (user_id, keyword, weight, type) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE weight = VALUES(weight)`
)

func schemaFor(dialect string) []string {
	switch dialect {
	case DialectMySQL:
		return mysqlSchema
	case DialectPostgres:
		return postgresSchema
	default:
		return sqliteSchema
	}
}
