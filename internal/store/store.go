// Package store persists finished-match results in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/peterkuimelis/anchorlink/internal/game"
	"github.com/peterkuimelis/anchorlink/internal/store/migrations"
)

// Store is a game.Recorder backed by SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Entry is one leaderboard row.
type Entry struct {
	PlayerName string `json:"playerName"`
	BestScore  int    `json:"bestScore"`
	Games      int    `json:"games"`
	Wins       int    `json:"wins"`
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Record implements game.Recorder.
func (s *Store) Record(ctx context.Context, result game.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(result.PlayerID) == "" {
		return fmt.Errorf("player id is required")
	}
	gameType := result.GameType
	if gameType == "" {
		gameType = game.GameType
	}
	meta, err := json.Marshal(result.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	won := 0
	if result.Won {
		won = 1
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO game_results (
		   id, player_id, player_name, game_type, final_score, mode, won, metadata, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		result.PlayerID,
		strings.TrimSpace(result.PlayerName),
		gameType,
		result.FinalScore,
		result.Mode,
		won,
		string(meta),
		s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

// Results returns every stored result for playerID, newest first.
func (s *Store) Results(ctx context.Context, playerID string) ([]game.Result, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT player_id, player_name, game_type, final_score, mode, won, metadata
		   FROM game_results
		  WHERE player_id = ?
		  ORDER BY created_at DESC, rowid DESC`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []game.Result
	for rows.Next() {
		var r game.Result
		var won int
		var meta string
		if err := rows.Scan(&r.PlayerID, &r.PlayerName, &r.GameType, &r.FinalScore, &r.Mode, &won, &meta); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Won = won != 0
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Leaderboard returns the best score per player name, highest first.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT player_name, MAX(final_score), COUNT(*), SUM(won)
		   FROM game_results
		  WHERE game_type = ?
		  GROUP BY player_name
		  ORDER BY MAX(final_score) DESC, player_name ASC
		  LIMIT ?`,
		game.GameType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PlayerName, &e.BestScore, &e.Games, &e.Wins); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
