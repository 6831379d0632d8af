package game

import (
	"testing"

	"github.com/jason-s-yu/drawphone/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceIsCyclic(t *testing.T) {
	for n := 1; n <= 8; n++ {
		for start := 0; start < n; start++ {
			idx := start
			for i := 0; i < n; i++ {
				idx = Advance(n, idx)
			}
			assert.Equal(t, start, idx, "n=%d start=%d", n, start)
		}
	}
	assert.Equal(t, 0, Advance(2, 1))
	assert.Equal(t, 0, Advance(0, 3))
}

func TestTopicsRotate(t *testing.T) {
	topics := NewTopics([]string{"cat", "dog"})
	assert.Equal(t, "cat", topics.Next())
	assert.Equal(t, "dog", topics.Next())
	assert.Equal(t, "cat", topics.Next())

	def := NewTopics(nil)
	for _, want := range DefaultTopics {
		assert.Equal(t, want, def.Next())
	}
	assert.Equal(t, DefaultTopics[0], def.Next())
}

// TestStartDealsOneStackPerPlayer: host P0, P1 joins, host starts.
func TestStartDealsOneStackPerPlayer(t *testing.T) {
	r, cr := setupRegistry(t)
	players := testPlayers(2)
	code := openSession(t, r, players)

	_, err := r.Start(code, players[0].ID)
	require.NoError(t, err)

	s, ok := r.Snapshot(code)
	require.True(t, ok)
	assert.Equal(t, models.SessionRunning, s.Status)
	require.Len(t, s.Stacks, 2)
	assert.Equal(t, []string{"conn-0", "conn-1"}, s.Seats)

	starts := map[int]bool{}
	for i, st := range s.Stacks {
		assert.NotEmpty(t, st.ID)
		assert.Equal(t, i, st.StartPlayerIndex)
		assert.Equal(t, i, st.CurrentPlayerIndex)
		assert.Equal(t, models.StackWaiting, st.Status)
		assert.Equal(t, models.SubmissionDescription, st.LastType)
		assert.NotNil(t, st.Submissions)
		assert.Empty(t, st.Submissions)
		assert.Nil(t, st.LastSubmission)
		starts[st.StartPlayerIndex] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true}, starts)
	assert.Equal(t, "apple", s.Stacks[0].Subject)
	assert.Equal(t, "pear", s.Stacks[1].Subject)

	for i, p := range s.Players {
		require.NotNil(t, p.SessionIndex)
		assert.Equal(t, i, *p.SessionIndex)
	}
	assert.Equal(t, []ChangeKind{ChangeCreated, ChangeJoined, ChangeStarted}, cr.kinds())
}

func TestStartGuards(t *testing.T) {
	r, _ := setupRegistry(t)
	players := testPlayers(2)

	solo, err := r.Create(players[0])
	require.NoError(t, err)
	_, err = r.Start(solo.Code, players[0].ID)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	code := openSession(t, r, players)
	_, err = r.Start(code, players[1].ID)
	assert.ErrorIs(t, err, ErrNotHost)

	_, err = r.Start(code, players[0].ID)
	require.NoError(t, err)
	_, err = r.Start(code, players[0].ID)
	assert.ErrorIs(t, err, ErrSessionAlreadyStarted)

	_, err = r.Start("zzzzzz", players[0].ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubjectsContinueAcrossSessions(t *testing.T) {
	r, _ := setupRegistry(t)
	first, _ := startedSession(t, r, 3)
	second, _ := startedSession(t, r, 2)

	a, _ := r.Snapshot(first)
	b, _ := r.Snapshot(second)
	assert.Equal(t, "apple", a.Stacks[0].Subject)
	assert.Equal(t, "orange", a.Stacks[2].Subject)
	assert.Equal(t, "strawberry", b.Stacks[0].Subject)
	assert.Equal(t, "apple", b.Stacks[1].Subject)
}
