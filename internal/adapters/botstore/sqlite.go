// Package botstore persists BotConfig and BotState across daemon restarts
// using the two-table schema of §4.9.
package botstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tradecore/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS bot_configs (
    bot_id     TEXT PRIMARY KEY,
    symbol     TEXT NOT NULL,
    strategy   TEXT NOT NULL,
    config     TEXT NOT NULL,
    enabled    INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bot_runtime_state (
    bot_id         TEXT PRIMARY KEY,
    state          TEXT NOT NULL,
    started_at     INTEGER,
    last_heartbeat INTEGER,
    error_message  TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (bot_id) REFERENCES bot_configs(bot_id)
);
`

// Store is the bot persistence layer. One Store per daemon process; SQLite
// is single-writer, the same constraint the teacher's SQLiteStorage
// documents for its own schema.
type Store struct {
	db *sql.DB
}

// Open applies the schema to path (creating the file if needed) and
// returns a ready Store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("botstore.Open: %w: %w", err, domain.ErrPersistenceFailure)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("botstore.Open: apply schema: %w: %w", err, domain.ErrPersistenceFailure)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveConfig upserts a bot's configuration. Wallet is never written — it
// is excluded by BotConfig.MarshalJSON, which this call relies on rather
// than re-implementing the skip-serialize rule here.
func (s *Store) SaveConfig(ctx context.Context, cfg domain.BotConfig) error {
	blob, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("botstore.SaveConfig: marshal %s: %w", cfg.BotID, err)
	}

	now := time.Now().UTC().Unix()
	enabled := 0
	if cfg.Enabled {
		enabled = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bot_configs (bot_id, symbol, strategy, config, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bot_id) DO UPDATE SET
			symbol     = excluded.symbol,
			strategy   = excluded.strategy,
			config     = excluded.config,
			enabled    = excluded.enabled,
			updated_at = excluded.updated_at
	`, cfg.BotID, cfg.Symbol, cfg.Strategy, string(blob), enabled, now, now)
	if err != nil {
		return fmt.Errorf("botstore.SaveConfig: upsert %s: %w: %w", cfg.BotID, err, domain.ErrPersistenceFailure)
	}
	return nil
}

// DeleteConfig removes bot_id from both tables.
func (s *Store) DeleteConfig(ctx context.Context, botID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_runtime_state WHERE bot_id = ?`, botID); err != nil {
		return fmt.Errorf("botstore.DeleteConfig: runtime state %s: %w: %w", botID, err, domain.ErrPersistenceFailure)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_configs WHERE bot_id = ?`, botID); err != nil {
		return fmt.Errorf("botstore.DeleteConfig: config %s: %w: %w", botID, err, domain.ErrPersistenceFailure)
	}
	return nil
}

// LoadEnabledConfigs returns every config with enabled = 1, for
// restore_from_db at daemon startup (§4.9). Wallet is always nil on the
// returned configs — callers must repopulate it from the environment.
func (s *Store) LoadEnabledConfigs(ctx context.Context) ([]domain.BotConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT config FROM bot_configs WHERE enabled = 1`)
	if err != nil {
		return nil, fmt.Errorf("botstore.LoadEnabledConfigs: query: %w: %w", err, domain.ErrPersistenceFailure)
	}
	defer rows.Close()

	var configs []domain.BotConfig
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("botstore.LoadEnabledConfigs: scan: %w: %w", err, domain.ErrPersistenceFailure)
		}
		var cfg domain.BotConfig
		if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
			return nil, fmt.Errorf("botstore.LoadEnabledConfigs: unmarshal: %w: %w", err, domain.ErrPersistenceFailure)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// SaveRuntimeState upserts a bot's runtime state row. Failures here are
// logged by the caller, not fatal — only the pre-spawn config write is
// crash-safety-critical (§4.9).
func (s *Store) SaveRuntimeState(ctx context.Context, botID string, state domain.BotState, startedAt time.Time, errorMessage string) error {
	var startedAtUnix *int64
	if !startedAt.IsZero() {
		v := startedAt.UTC().Unix()
		startedAtUnix = &v
	}
	now := time.Now().UTC().Unix()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_runtime_state (bot_id, state, started_at, last_heartbeat, error_message)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(bot_id) DO UPDATE SET
			state          = excluded.state,
			started_at     = excluded.started_at,
			last_heartbeat = excluded.last_heartbeat,
			error_message  = excluded.error_message
	`, botID, string(state), startedAtUnix, now, errorMessage)
	if err != nil {
		return fmt.Errorf("botstore.SaveRuntimeState: upsert %s: %w: %w", botID, err, domain.ErrPersistenceFailure)
	}
	return nil
}
