// models/gorm_models.go
package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GormMatchRecord 比赛记录模型
type GormMatchRecord struct {
	gorm.Model
	MatchID    string             `gorm:"uniqueIndex;size:64;not null"`
	RoomCode   string             `gorm:"index;size:32;not null"`
	StartedAt  time.Time          `gorm:"not null"`
	FinishedAt time.Time          `gorm:"index;not null"`
	Words      pq.StringArray     `gorm:"type:text[]"`
	Players    []GormPlayerResult `gorm:"foreignKey:MatchRecordID"`
}

func (GormMatchRecord) TableName() string { return "match_records" }

// GormPlayerResult 玩家成绩模型
type GormPlayerResult struct {
	gorm.Model
	MatchRecordID uint   `gorm:"index;not null"`
	PlayerID      uint64 `gorm:"not null"`
	Name          string `gorm:"index;size:32;not null"`
	RoundsPlayed  int    `gorm:"default:0"`
	Points        int    `gorm:"default:0"`
}

func (GormPlayerResult) TableName() string { return "player_results" }

// GormWord is one dictionary entry.
type GormWord struct {
	ID   uint   `gorm:"primaryKey"`
	Word string `gorm:"uniqueIndex;size:64;not null"`
}

func (GormWord) TableName() string { return "words" }

// NewGormMatchRecord converts a record for storage.
func NewGormMatchRecord(r *MatchRecord) *GormMatchRecord {
	m := &GormMatchRecord{
		MatchID:    r.MatchID,
		RoomCode:   r.RoomCode,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Words:      pq.StringArray(append([]string{}, r.Words...)),
	}
	for _, p := range r.Players {
		m.Players = append(m.Players, GormPlayerResult{
			PlayerID:     p.PlayerID,
			Name:         p.Name,
			RoundsPlayed: p.RoundsPlayed,
			Points:       p.Points,
		})
	}
	return m
}

// Record converts a stored match back to the domain type.
func (m *GormMatchRecord) Record() *MatchRecord {
	r := &MatchRecord{
		MatchID:    m.MatchID,
		RoomCode:   m.RoomCode,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Words:      append([]string{}, m.Words...),
	}
	for _, p := range m.Players {
		r.Players = append(r.Players, PlayerResult{
			PlayerID:     p.PlayerID,
			Name:         p.Name,
			RoundsPlayed: p.RoundsPlayed,
			Points:       p.Points,
		})
	}
	return r
}
