package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *MatchRecord {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &MatchRecord{
		MatchID:    "m-1",
		RoomCode:   "gameroom",
		StartedAt:  now,
		FinishedAt: now.Add(time.Minute),
		Players: []PlayerResult{
			{PlayerID: 1, Name: "alice", RoundsPlayed: 3, Points: 4},
			{PlayerID: 2, Name: "bobby", RoundsPlayed: 3, Points: 6},
			{PlayerID: 3, Name: "carol", RoundsPlayed: 3, Points: 6},
		},
		Words: []string{"RING", "KING"},
	}
}

func TestMatchRecord_Winner(t *testing.T) {
	w, ok := sampleRecord().Winner()
	require.True(t, ok)
	assert.Equal(t, "bobby", w.Name)

	_, ok = (&MatchRecord{}).Winner()
	assert.False(t, ok)
}

func TestGormMatchRecord_Conversion(t *testing.T) {
	rec := sampleRecord()
	m := NewGormMatchRecord(rec)

	assert.Equal(t, "match_records", m.TableName())
	require.Len(t, m.Players, 3)
	assert.Equal(t, uint64(2), m.Players[1].PlayerID)
	assert.Equal(t, []string{"RING", "KING"}, []string(m.Words))

	assert.Equal(t, rec, m.Record())
}
