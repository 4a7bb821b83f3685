// services/match_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wfunc/wordgame/eventlog"
	"github.com/wfunc/wordgame/models"
	"github.com/wfunc/wordgame/persistence"
)

// defaultRecentLimit is how many match records are kept in memory when there is no database.
const defaultRecentLimit = 1000

// MatchService records finished matches and answers leaderboard queries.
// Without a database, leaderboard totals live for the lifetime of the process and only the
// last recentLimit match records are kept.
type MatchService struct {
	db        persistence.Database
	publisher eventlog.Publisher

	mutex       sync.Mutex
	totals      map[string]*models.LeaderboardEntry
	recent      map[string]*models.MatchRecord
	recentOrder []string
	recentLimit int
}

func NewMatchService(db persistence.Database, publisher eventlog.Publisher) *MatchService {
	if publisher == nil {
		publisher = eventlog.Nop{}
	}
	return &MatchService{
		db:          db,
		publisher:   publisher,
		totals:      make(map[string]*models.LeaderboardEntry),
		recent:      make(map[string]*models.MatchRecord),
		recentLimit: defaultRecentLimit,
	}
}

// RecordMatch persists the record and publishes it. Both are attempted; the returned
// error joins whatever failed.
func (s *MatchService) RecordMatch(ctx context.Context, record *models.MatchRecord) error {
	var errs []error
	if s.db != nil {
		if err := s.db.SaveMatchRecord(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("save match %s: %w", record.MatchID, err))
		}
	} else {
		s.remember(record)
	}
	if err := s.publisher.PublishMatch(ctx, record); err != nil {
		errs = append(errs, fmt.Errorf("publish match %s: %w", record.MatchID, err))
	}
	return errors.Join(errs...)
}

func (s *MatchService) remember(record *models.MatchRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.recent[record.MatchID]; !ok {
		s.recentOrder = append(s.recentOrder, record.MatchID)
	}
	s.recent[record.MatchID] = record
	for len(s.recentOrder) > s.recentLimit {
		delete(s.recent, s.recentOrder[0])
		s.recentOrder = s.recentOrder[1:]
	}
	for _, p := range record.Players {
		e, ok := s.totals[p.Name]
		if !ok {
			e = &models.LeaderboardEntry{Name: p.Name, BestPoints: p.Points}
			s.totals[p.Name] = e
		}
		e.Matches++
		e.TotalPoints += p.Points
		if p.Points > e.BestPoints {
			e.BestPoints = p.Points
		}
	}
}

// Match looks up a recorded match.
func (s *MatchService) Match(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	if s.db != nil {
		return s.db.LoadMatchRecord(ctx, matchID)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if rec, ok := s.recent[matchID]; ok {
		return rec, nil
	}
	return nil, persistence.ErrRecordNotFound
}

// Leaderboard returns the top limit players by total points.
func (s *MatchService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if s.db != nil {
		return s.db.Leaderboard(ctx, limit)
	}

	s.mutex.Lock()
	entries := make([]models.LeaderboardEntry, 0, len(s.totals))
	for _, e := range s.totals {
		entries = append(entries, *e)
	}
	s.mutex.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MatchService) Close() error {
	return s.publisher.Close()
}
