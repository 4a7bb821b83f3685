// persistence/interface.go
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/wordgame/models"
)

// Database 数据库接口
type Database interface {
	SaveMatchRecord(ctx context.Context, record *models.MatchRecord) error
	LoadMatchRecord(ctx context.Context, matchID string) (*models.MatchRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	// Words and SaveWords let the database back the dictionary.
	Words(ctx context.Context) ([]string, error)
	SaveWords(ctx context.Context, words []string) error
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

const queryTimeout = 5 * time.Second

// DSN builds a lib/pq style connection string.
func DSN(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}
