// models/models.go
package models

import (
	"time"
)

// MatchRecord is a finished match as stored and published.
type MatchRecord struct {
	MatchID    string         `json:"match_id"`
	RoomCode   string         `json:"room_code"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Players    []PlayerResult `json:"players"`
	Words      []string       `json:"words"`
}

// PlayerResult 玩家在一局比赛中的成绩
type PlayerResult struct {
	PlayerID     uint64 `json:"player_id"`
	Name         string `json:"name"`
	RoundsPlayed int    `json:"rounds_played"`
	Points       int    `json:"points"`
}

// Winner returns the highest scoring player, or false when the match had no players.
// Ties go to the player listed first.
func (r *MatchRecord) Winner() (PlayerResult, bool) {
	if len(r.Players) == 0 {
		return PlayerResult{}, false
	}
	best := r.Players[0]
	for _, p := range r.Players[1:] {
		if p.Points > best.Points {
			best = p
		}
	}
	return best, true
}

// LeaderboardEntry aggregates results by player name across stored matches.
type LeaderboardEntry struct {
	Name        string `json:"name"`
	Matches     int    `json:"matches"`
	TotalPoints int    `json:"total_points"`
	BestPoints  int    `json:"best_points"`
}
