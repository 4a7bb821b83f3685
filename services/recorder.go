package services

import (
	"context"
	"time"

	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/models"
	"github.com/wfunc/wordgame/room"
)

const recordTimeout = 10 * time.Second

// MatchRecorder adapts MatchService to room.Observer: finished matches are recorded,
// other events are ignored.
type MatchRecorder struct {
	room.NopObserver
	service *MatchService
}

func NewMatchRecorder(service *MatchService) *MatchRecorder {
	return &MatchRecorder{service: service}
}

func (r *MatchRecorder) MatchFinished(s room.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.service.RecordMatch(ctx, RecordFromSummary(s)); err != nil {
		logger.Log.Errorw("failed to record match", "match", s.MatchID, "code", s.RoomCode, "error", err)
	}
}

// RecordFromSummary converts an engine summary into the stored form.
func RecordFromSummary(s room.Summary) *models.MatchRecord {
	rec := &models.MatchRecord{
		MatchID:    s.MatchID,
		RoomCode:   s.RoomCode,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Words:      append([]string{}, s.Words...),
	}
	for _, p := range s.Scores {
		rec.Players = append(rec.Players, models.PlayerResult{
			PlayerID:     p.ID,
			Name:         p.Name,
			RoundsPlayed: p.RoundsPlayed,
			Points:       p.Points,
		})
	}
	return rec
}

var _ room.Observer = (*MatchRecorder)(nil)
