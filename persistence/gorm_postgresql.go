// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/models"
)

const wordBatchSize = 500

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	// 配置GORM日志, 输出到 zap
	gormLog := gormlogger.New(
		zap.NewStdLog(logger.Log.Desugar()),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(DSN(host, port, user, password, dbname)), &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}
	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormMatchRecord{},
		&models.GormPlayerResult{},
		&models.GormWord{},
	)
}

// SaveMatchRecord stores the match and its player results in one transaction.
func (p *GormPostgreSQL) SaveMatchRecord(ctx context.Context, record *models.MatchRecord) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	m := models.NewGormMatchRecord(record)
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(m).Error
	})
}

func (p *GormPostgreSQL) LoadMatchRecord(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var m models.GormMatchRecord
	err := p.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("match_id = ?", matchID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.Record(), nil
}

// Leaderboard ranks player names by total points over all stored matches.
func (p *GormPostgreSQL) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var entries []models.LeaderboardEntry
	err := p.db.WithContext(ctx).
		Model(&models.GormPlayerResult{}).
		Select("name, COUNT(*) AS matches, SUM(points) AS total_points, MAX(points) AS best_points").
		Group("name").
		Order("total_points DESC, name").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}

func (p *GormPostgreSQL) Words(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var list []string
	if err := p.db.WithContext(ctx).Model(&models.GormWord{}).Pluck("word", &list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// SaveWords replaces the stored dictionary.
func (p *GormPostgreSQL) SaveWords(ctx context.Context, words []string) error {
	rows := make([]models.GormWord, 0, len(words))
	for _, w := range words {
		rows = append(rows, models.GormWord{Word: w})
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.GormWord{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, wordBatchSize).Error
	})
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Database = (*GormPostgreSQL)(nil)
