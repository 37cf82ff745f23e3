package jobs

import (
	"context"
	"log"
	"time"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/service"
)

// SessionCleanup periodically deletes expired session rows so the table only
// holds live sessions. Expired sessions are already unusable before the sweep
// runs; this is purely a storage reclaim.
type SessionCleanup struct {
	sessions *service.SessionService
	interval time.Duration
}

func NewSessionCleanup(sessions *service.SessionService, interval time.Duration) *SessionCleanup {
	return &SessionCleanup{sessions: sessions, interval: interval}
}

// Start runs the sweep loop until ctx is cancelled. One sweep fires
// immediately so restarts do not postpone cleanup by a full interval.
func (c *SessionCleanup) Start(ctx context.Context) {
	c.sweep(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[CLEANUP] Session cleanup stopped")
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *SessionCleanup) sweep(ctx context.Context) {
	deleted, err := c.sessions.DeleteExpired(ctx)
	if err != nil {
		log.Printf("[CLEANUP] Session sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[CLEANUP] Removed %d expired sessions", deleted)
	}
}
