// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/wordgame/models"
)

// PostgreSQL 数据库实现, database/sql + lib/pq. Uses the same tables as GormPostgreSQL.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", DSN(host, port, user, password, dbname))
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS match_records (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            match_id VARCHAR(64) UNIQUE NOT NULL,
            room_code VARCHAR(32) NOT NULL,
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL,
            words TEXT[] NOT NULL DEFAULT '{}'
        )`,
		`CREATE TABLE IF NOT EXISTS player_results (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            match_record_id BIGINT NOT NULL REFERENCES match_records(id),
            player_id BIGINT NOT NULL,
            name VARCHAR(32) NOT NULL,
            rounds_played INTEGER DEFAULT 0,
            points INTEGER DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS words (
            id BIGSERIAL PRIMARY KEY,
            word VARCHAR(64) UNIQUE NOT NULL
        )`,
		// 创建索引以提高查询性能
		`CREATE INDEX IF NOT EXISTS idx_match_records_room_code ON match_records(room_code);
        CREATE INDEX IF NOT EXISTS idx_match_records_finished_at ON match_records(finished_at);
        CREATE INDEX IF NOT EXISTS idx_player_results_match_record_id ON player_results(match_record_id);
        CREATE INDEX IF NOT EXISTS idx_player_results_name ON player_results(name);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgreSQL) SaveMatchRecord(ctx context.Context, record *models.MatchRecord) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
        INSERT INTO match_records (match_id, room_code, started_at, finished_at, words)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`,
		record.MatchID, record.RoomCode, record.StartedAt, record.FinishedAt, pq.Array(record.Words),
	).Scan(&id)
	if err != nil {
		return err
	}

	for _, pr := range record.Players {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO player_results (match_record_id, player_id, name, rounds_played, points)
            VALUES ($1, $2, $3, $4, $5)`,
			id, int64(pr.PlayerID), pr.Name, pr.RoundsPlayed, pr.Points)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *PostgreSQL) LoadMatchRecord(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		id  int64
		rec = &models.MatchRecord{MatchID: matchID}
	)
	err := p.db.QueryRowContext(ctx, `
        SELECT id, room_code, started_at, finished_at, words
        FROM match_records WHERE match_id = $1 AND deleted_at IS NULL`, matchID,
	).Scan(&id, &rec.RoomCode, &rec.StartedAt, &rec.FinishedAt, pq.Array(&rec.Words))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
        SELECT player_id, name, rounds_played, points
        FROM player_results WHERE match_record_id = $1 AND deleted_at IS NULL ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pr       models.PlayerResult
			playerID int64
		)
		if err := rows.Scan(&playerID, &pr.Name, &pr.RoundsPlayed, &pr.Points); err != nil {
			return nil, err
		}
		pr.PlayerID = uint64(playerID)
		rec.Players = append(rec.Players, pr)
	}
	return rec, rows.Err()
}

func (p *PostgreSQL) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT name, COUNT(*) AS matches, SUM(points) AS total_points, MAX(points) AS best_points
        FROM player_results
        WHERE deleted_at IS NULL
        GROUP BY name
        ORDER BY total_points DESC, name
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Matches, &e.TotalPoints, &e.BestPoints); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PostgreSQL) Words(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var list []string
	err := p.db.QueryRowContext(ctx, `SELECT COALESCE(array_agg(word), '{}') FROM words`).Scan(pq.Array(&list))
	return list, err
}

func (p *PostgreSQL) SaveWords(ctx context.Context, words []string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM words`); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO words (word)
        SELECT unnest($1::text[])
        ON CONFLICT (word) DO NOTHING`, pq.Array(words))
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

var _ Database = (*PostgreSQL)(nil)
