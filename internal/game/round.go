// internal/game/round.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/drawphone/internal/models"
)

// submitTurn records a submission on a stack and settles the round. The
// caller must hold s.Mu.
func submitTurn(s *models.Session, playerID, stackID string, sub models.Submission) error {
	if s.Status != models.SessionRunning {
		return ErrSessionNotRunning
	}
	st := s.Stack(stackID)
	if st == nil {
		return ErrStackNotFound
	}
	if st.Status != models.StackWaiting {
		return ErrStackNotWaiting
	}
	if s.Holder(st) != playerID {
		return ErrNotYourTurn
	}
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	if sub.Type != ExpectedType(st) {
		return fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedSubmissionType, ExpectedType(st), sub.Type)
	}

	st.Submissions = append(st.Submissions, sub)
	last := sub
	st.LastSubmission = &last
	st.LastType = sub.Type
	st.Status = models.StackReady

	settleRound(s)
	return nil
}

// settleRound closes the round once every stack is ready. Any stack serves
// as the witness because all stacks move in lockstep: if its next hop lands
// back on its starter, every chain has gone full circle and the game is over.
// Otherwise every stack moves one seat forward. Stacks that land on a seat
// whose player has left are closed immediately, which may settle the next
// round too.
func settleRound(s *models.Session) {
	for s.Status == models.SessionRunning && allReady(s) {
		witness := s.Stacks[0]
		if Advance(len(s.Seats), witness.CurrentPlayerIndex) == witness.StartPlayerIndex {
			s.Status = models.SessionComplete
			return
		}
		for _, st := range s.Stacks {
			st.Status = models.StackWaiting
			st.CurrentPlayerIndex = Advance(len(s.Seats), st.CurrentPlayerIndex)
		}
		s.Round++
		skipDeparted(s)
	}
}

func allReady(s *models.Session) bool {
	if len(s.Stacks) == 0 {
		return false
	}
	for _, st := range s.Stacks {
		if st.Status != models.StackReady {
			return false
		}
	}
	return true
}

// skipDeparted closes the turn of every waiting stack whose holder is no
// longer in the session. Returns the number of stacks closed.
func skipDeparted(s *models.Session) int {
	n := 0
	for _, st := range s.Stacks {
		if st.Status != models.StackWaiting {
			continue
		}
		if s.HasPlayer(s.Holder(st)) {
			continue
		}
		st.Status = models.StackReady
		st.Skipped++
		n++
	}
	return n
}

// removePlayer drops playerID from the roster. Seats and stack indices are
// left untouched; a running session closes the departed player's turns so
// the round can still finish. Reports whether the player was present. The
// caller must hold s.Mu.
func removePlayer(s *models.Session, playerID string) bool {
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return false
	}
	s.Players = append(s.Players[:idx], s.Players[idx+1:]...)

	switch s.Status {
	case models.SessionOpen:
		if s.HostPlayerID == playerID && len(s.Players) > 0 {
			s.HostPlayerID = s.Players[0].ID
		}
	case models.SessionRunning:
		if skipDeparted(s) > 0 {
			settleRound(s)
		}
	}
	return true
}
