package game

import (
	"context"
	"time"

	"github.com/jason-s-yu/drawphone/internal/models"
	"github.com/sirupsen/logrus"
)

// ReapIdle removes sessions whose last activity is older than cutoff and
// returns their codes. Each removal is published as an expired change so
// players still attached to the session hear about it.
func (r *Registry) ReapIdle(cutoff time.Time) []string {
	var reaped []string
	for _, s := range r.store.List() {
		if r.expire(s, cutoff) {
			reaped = append(reaped, s.Code)
		}
	}
	return reaped
}

func (r *Registry) expire(s *models.Session, cutoff time.Time) bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if !r.storedUnsafe(s) || !s.LastActive.Before(cutoff) {
		return false
	}
	r.store.Delete(s.Code)
	r.notifyUnsafe(s, Change{Kind: ChangeExpired, Previous: s.Status, Removed: true})
	return true
}

// RunReaper removes sessions idle for longer than timeout until ctx is done.
// It checks twice per timeout period.
func RunReaper(ctx context.Context, r *Registry, timeout time.Duration, logger *logrus.Logger) {
	if timeout <= 0 {
		return
	}
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, code := range r.ReapIdle(r.Now().Add(-timeout)) {
				logger.WithField("session", code).Info("Removed idle session")
			}
		}
	}
}
