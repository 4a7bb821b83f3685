package room

import (
	"context"
	"slices"
	"time"

	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/network"
	"github.com/wfunc/wordgame/scoring"
	"github.com/wfunc/wordgame/session"
	"github.com/wfunc/wordgame/state"
)

// run drives one match. The room lock is held only while applying a transition or a mailbox
// entry, never across a wait.
func (r *Room) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer r.finishMatch()

	for first := true; ; first = false {
		if !r.loadRound(ctx, first) {
			return
		}
		if !sleep(ctx, r.settings.SelectDelay) {
			return
		}
		active, ok := r.selectPlayer()
		if !ok {
			return
		}
		if !sleep(ctx, r.settings.RevealDelay) {
			return
		}
		r.revealFragment()
		r.answerWindow(ctx, active)
		if ctx.Err() != nil || r.matchOver() {
			return
		}
	}
}

// loadRound enters Loading, fetches the next fragment and enters SelectingPlayer.
// The first round is already in Loading from TryStart.
func (r *Room) loadRound(ctx context.Context, first bool) bool {
	r.mu.Lock()
	if len(r.participantsLocked()) < 2 {
		r.mu.Unlock()
		return false
	}
	r.broadcastLocked(network.MsgTypePlayerTyping, network.TypingBody{})
	if !first {
		if !r.changeStateLocked(state.State{ID: state.Loading}) {
			r.mu.Unlock()
			return false
		}
	} else {
		r.broadcastStateLocked()
	}
	r.mu.Unlock()

	round, err := r.picker.Next(ctx)
	if err != nil {
		logger.Log.Errorw("fragment generation failed", "room", r.ID, "code", r.Code, "error", err)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fragment = round.Fragment
	r.revealed = false
	r.candidates = round.Candidates
	return r.changeStateLocked(state.State{ID: state.SelectingPlayer})
}

// selectPlayer picks the next participant round-robin and enters PlayerChosen.
func (r *Room) selectPlayer() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := r.participantsLocked()
	if len(participants) < 2 {
		return 0, false
	}
	if r.rrIndex >= len(participants) {
		r.rrIndex = 0
	}
	p := participants[r.rrIndex]
	r.rrIndex++
	r.stats[p.ID].RoundsPlayed++

	// a departure signalled during an earlier turn must not end this one
	select {
	case <-r.departed:
	default:
	}
	r.active = p.ID
	if !r.changeStateLocked(state.State{ID: state.PlayerChosen, Player: p.ID}) {
		return 0, false
	}
	return p.ID, true
}

// revealFragment announces the fragment and discards entries queued before it was visible.
func (r *Room) revealFragment() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(network.MsgTypeFragment, network.FragmentBody{Fragment: r.fragment})
	r.revealed = true
	r.drainMailbox()
}

func (r *Room) drainMailbox() {
	for {
		select {
		case <-r.mailbox:
		default:
			return
		}
	}
}

// answerWindow waits for an accepted answer, the deadline, or a departure that ends the turn.
func (r *Room) answerWindow(ctx context.Context, active uint64) {
	deadline := time.NewTimer(r.settings.AnswerWindow)
	defer deadline.Stop()

	for {
		select {
		case e := <-r.mailbox:
			if r.apply(active, e) {
				r.finishTurn(active, false)
				return
			}
		case id := <-r.departed:
			if id == active {
				logger.Log.Infow("active player left, turn forfeited", "room", r.ID, "player", id)
				return
			}
			if r.tooFewPlayers() {
				return
			}
		case <-deadline.C:
			r.finishTurn(active, true)
			return
		case <-ctx.Done():
			return
		}
	}
}

// apply handles one mailbox entry and reports whether it ended the turn.
func (r *Room) apply(active uint64, e Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Kind == EntryTyping {
		r.broadcastLocked(network.MsgTypePlayerTyping, network.TypingBody{Player: e.PlayerID, Text: e.Text}, active)
		return false
	}
	if e.PlayerID != active || scoring.Normalize(e.Text) == "" {
		return false
	}

	res := scoring.Evaluate(r.fragment, r.candidates, r.used, e.Text)
	r.observer.AnswerEvaluated(r.Code, res.Accepted)
	if !res.Accepted {
		r.broadcastLocked(network.MsgTypeAnswerResult, network.AnswerResultBody{Player: active, Text: res.Word})
		return false
	}

	r.stats[active].Points += res.Points
	r.used[res.Word] = struct{}{}
	r.usedOrder = append(r.usedOrder, res.Word)
	r.broadcastLocked(network.MsgTypeAnswerResult, network.AnswerResultBody{
		Player:   active,
		Text:     res.Word,
		Accepted: true,
		Points:   res.Points,
	})
	return true
}

// finishTurn applies the timeout penalty if needed and announces the active player's total.
func (r *Room) finishTurn(active uint64, timedOut bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stats[active]
	if timedOut {
		st.Points += scoring.TimeoutPenalty
		r.observer.TurnTimedOut(r.Code)
		r.broadcastLocked(network.MsgTypeTimeUp, network.TimeUpBody{Player: active})
	}
	r.broadcastLocked(network.MsgTypePoints, network.PointsBody{Player: active, Points: st.Points})
}

// matchOver reports whether every remaining participant has played its rounds, or too few remain.
func (r *Room) matchOver() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := r.participantsLocked()
	if len(participants) < 2 {
		return true
	}
	return allPlayersPlayed(participants, r.stats, r.settings.RoundsPerPlayer)
}

func (r *Room) tooFewPlayers() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participantsLocked()) < 2
}

func allPlayersPlayed(participants []*session.Session, stats map[uint64]*Stats, rounds int) bool {
	for _, p := range participants {
		if stats[p.ID].RoundsPlayed < rounds {
			return false
		}
	}
	return true
}

func (r *Room) finishMatch() {
	r.mu.Lock()
	r.changeStateLocked(state.State{ID: state.Idle})
	summary := r.summaryLocked()
	summary.FinishedAt = time.Now()
	if len(r.members) > 0 {
		r.broadcastLocked(network.MsgTypeMatchSummary, network.MatchSummaryBody{
			MatchID: summary.MatchID,
			Scores:  summary.Scores,
			Words:   summary.Words,
		})
	}
	r.fragment = ""
	r.revealed = false
	r.candidates = nil
	r.used = nil
	r.usedOrder = nil
	r.active = 0
	r.drainMailbox()
	r.mu.Unlock()

	logger.Log.Infow("match finished", "room", r.ID, "code", r.Code, "match", summary.MatchID)
	r.observer.MatchFinished(summary)
}

func (r *Room) summaryLocked() Summary {
	s := Summary{
		MatchID:   r.matchID,
		RoomID:    r.ID,
		RoomCode:  r.Code,
		StartedAt: r.startedAt,
		Words:     append([]string(nil), r.usedOrder...),
	}
	for _, id := range r.rosterLocked() {
		st := r.stats[id]
		s.Scores = append(s.Scores, network.PlayerScore{
			ID:           id,
			Name:         r.names[id],
			RoundsPlayed: st.RoundsPlayed,
			Points:       st.Points,
		})
	}
	return s
}

// rosterLocked lists the match roster by player id, which is also connection order.
func (r *Room) rosterLocked() []uint64 {
	ids := make([]uint64, 0, len(r.stats))
	for id := range r.stats {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Room) changeStateLocked(next state.State) bool {
	if err := r.machine.ChangeState(next); err != nil {
		logger.Log.Errorw("state change rejected", "room", r.ID, "from", r.machine.Current().ID, "to", next.ID, "error", err)
		return false
	}
	r.broadcastStateLocked()
	return true
}

func (r *Room) broadcastStateLocked() {
	st := r.machine.Current()
	r.broadcastLocked(network.MsgTypeGameState, network.GameStateBody{State: int(st.ID), Player: st.Player})
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
