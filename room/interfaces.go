package room

import (
	"context"
	"time"

	"github.com/wfunc/wordgame/network"
	"github.com/wfunc/wordgame/words"
)

// Picker produces the fragment and candidate list for the next round.
type Picker interface {
	Next(ctx context.Context) (words.Round, error)
}

// Summary describes a match. MatchStarted receives it with only the identity fields and roster set.
type Summary struct {
	MatchID    string
	RoomID     uint64
	RoomCode   string
	StartedAt  time.Time
	FinishedAt time.Time
	Scores     []network.PlayerScore
	Words      []string
}

// Observer is notified of match events. AnswerEvaluated and TurnTimedOut run with the room
// lock held and must not block or call back into the room. MatchStarted and MatchFinished
// run without it.
type Observer interface {
	MatchStarted(s Summary)
	AnswerEvaluated(roomCode string, accepted bool)
	TurnTimedOut(roomCode string)
	MatchFinished(s Summary)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) MatchStarted(Summary)         {}
func (NopObserver) AnswerEvaluated(string, bool) {}
func (NopObserver) TurnTimedOut(string)          {}
func (NopObserver) MatchFinished(Summary)        {}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (o Observers) MatchStarted(s Summary) {
	for _, obs := range o {
		obs.MatchStarted(s)
	}
}

func (o Observers) AnswerEvaluated(roomCode string, accepted bool) {
	for _, obs := range o {
		obs.AnswerEvaluated(roomCode, accepted)
	}
}

func (o Observers) TurnTimedOut(roomCode string) {
	for _, obs := range o {
		obs.TurnTimedOut(roomCode)
	}
}

func (o Observers) MatchFinished(s Summary) {
	for _, obs := range o {
		obs.MatchFinished(s)
	}
}
