package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"sessionhistory/internal/config"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the SQL database selected by dbType.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}
	var (
		db  *sql.DB
		err error
	)
	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", sqliteDSN(dbCfg.DSN))
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if dbCfg.DSN == ":memory:" {
			// every pooled connection would otherwise get its own empty database
			db.SetMaxOpenConns(1)
		}
	case "mysql":
		dsn, err := mysqlDSN(dbCfg)
		if err != nil {
			return nil, err
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// sqliteDSN turns on foreign keys for every connection the pool opens.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// mysqlDSN merges user params with the options the store depends on:
// parseTime for DATETIME scanning and clientFoundRows so that a no-op
// UPDATE still reports the matched row.
func mysqlDSN(dbCfg config.DatabaseConfig) (string, error) {
	params := dbCfg.Params
	if params == "" {
		params = "charset=utf8mb4"
	}
	raw := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		dbCfg.Username,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.DBName,
		params,
	)
	mc, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql params: %w", err)
	}
	mc.ParseTime = true
	mc.ClientFoundRows = true
	return mc.FormatDSN(), nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS user_tokens (
				token TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_user_tokens_user ON user_tokens(user_id)`,
			`CREATE TABLE IF NOT EXISTS learning_sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				title TEXT NOT NULL,
				mode TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'active',
				total_messages INTEGER NOT NULL DEFAULT 0,
				insights_count INTEGER NOT NULL DEFAULT 0,
				progress INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_learning_sessions_user ON learning_sessions(user_id)`,
			`CREATE TABLE IF NOT EXISTS session_messages (
				id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL,
				sender TEXT NOT NULL CHECK (sender IN ('user', 'assistant')),
				content TEXT NOT NULL,
				message_order INTEGER NOT NULL,
				metadata TEXT NOT NULL DEFAULT '{}',
				ai_state TEXT,
				processing_time_ms INTEGER,
				is_insight BOOLEAN NOT NULL DEFAULT 0,
				is_exercise BOOLEAN NOT NULL DEFAULT 0,
				is_feedback BOOLEAN NOT NULL DEFAULT 0,
				generated_resources TEXT,
				related_topics TEXT,
				user_rating INTEGER CHECK (user_rating BETWEEN 1 AND 5),
				user_found_helpful BOOLEAN,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				UNIQUE(session_id, message_order),
				FOREIGN KEY(session_id) REFERENCES learning_sessions(id) ON DELETE CASCADE
			)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id CHAR(36) NOT NULL,
				email VARCHAR(255) NOT NULL UNIQUE,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS user_tokens (
				token VARCHAR(255) NOT NULL PRIMARY KEY,
				user_id CHAR(36) NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				INDEX idx_user_tokens_user (user_id),
				CONSTRAINT fk_user_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS learning_sessions (
				id CHAR(36) NOT NULL,
				user_id CHAR(36) NOT NULL,
				title VARCHAR(255) NOT NULL,
				mode VARCHAR(32) NOT NULL,
				status VARCHAR(32) NOT NULL DEFAULT 'active',
				total_messages INT NOT NULL DEFAULT 0,
				insights_count INT NOT NULL DEFAULT 0,
				progress INT NOT NULL DEFAULT 0,
				created_at DATETIME(3) NOT NULL,
				updated_at DATETIME(3) NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_learning_sessions_user (user_id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS session_messages (
				id CHAR(36) NOT NULL,
				session_id CHAR(36) NOT NULL,
				sender VARCHAR(16) NOT NULL,
				content MEDIUMTEXT NOT NULL,
				message_order INT NOT NULL,
				metadata JSON NOT NULL,
				ai_state VARCHAR(64),
				processing_time_ms BIGINT,
				is_insight BOOLEAN NOT NULL DEFAULT FALSE,
				is_exercise BOOLEAN NOT NULL DEFAULT FALSE,
				is_feedback BOOLEAN NOT NULL DEFAULT FALSE,
				generated_resources JSON,
				related_topics JSON,
				user_rating TINYINT,
				user_found_helpful BOOLEAN,
				created_at DATETIME(3) NOT NULL,
				updated_at DATETIME(3) NOT NULL,
				PRIMARY KEY (id),
				UNIQUE KEY uniq_session_order (session_id, message_order),
				CONSTRAINT fk_session_messages_session FOREIGN KEY (session_id) REFERENCES learning_sessions(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
