package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/drawphone/internal/models"
	"github.com/stretchr/testify/require"
)

// changeRecorder collects OnChange notifications instead of broadcasting them.
type changeRecorder struct {
	mu       sync.Mutex
	changes  []Change
	versions []int
	statuses []models.SessionStatus
}

func (cr *changeRecorder) record(s *models.Session, ch Change) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.changes = append(cr.changes, ch)
	cr.versions = append(cr.versions, s.Version)
	cr.statuses = append(cr.statuses, s.Status)
}

func (cr *changeRecorder) kinds() []ChangeKind {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	out := make([]ChangeKind, len(cr.changes))
	for i, ch := range cr.changes {
		out[i] = ch.Kind
	}
	return out
}

// sequenceCodes returns a code generator that yields codes in order.
func sequenceCodes(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(codes) {
			return "", fmt.Errorf("code sequence exhausted")
		}
		c := codes[i]
		i++
		return c, nil
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupRegistry(t *testing.T) (*Registry, *changeRecorder) {
	t.Helper()
	r := NewRegistry(NewMemoryStore(), NewTopics(nil))
	cr := &changeRecorder{}
	r.OnChange = cr.record
	return r, cr
}

func testPlayers(n int) []models.Player {
	players := make([]models.Player, n)
	for i := range players {
		players[i] = models.Player{ID: fmt.Sprintf("conn-%d", i), Name: fmt.Sprintf("player%d", i)}
	}
	return players
}

// openSession creates a session hosted by players[0] and joins the rest.
func openSession(t *testing.T, r *Registry, players []models.Player) string {
	t.Helper()
	s, err := r.Create(players[0])
	require.NoError(t, err)
	for _, p := range players[1:] {
		_, err := r.Join(s.Code, p)
		require.NoError(t, err)
	}
	return s.Code
}

// startedSession opens and starts a session with n players.
func startedSession(t *testing.T, r *Registry, n int) (string, []models.Player) {
	t.Helper()
	players := testPlayers(n)
	code := openSession(t, r, players)
	_, err := r.Start(code, players[0].ID)
	require.NoError(t, err)
	return code, players
}

func submissionFor(typ models.SubmissionType, round int) models.Submission {
	if typ == models.SubmissionDrawing {
		return models.NewDrawing(fmt.Sprintf("data:image/png;base64,round%d", round))
	}
	return models.NewDescription(fmt.Sprintf("description %d", round))
}

// playRound has the holder of every waiting stack submit the expected type.
func playRound(t *testing.T, r *Registry, code string) {
	t.Helper()
	snap, ok := r.Snapshot(code)
	require.True(t, ok)
	for _, st := range snap.Stacks {
		if st.Status != models.StackWaiting {
			continue
		}
		_, err := r.Submit(code, snap.Holder(st), st.ID, submissionFor(ExpectedType(st), snap.Round))
		require.NoError(t, err)
	}
}
