package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/stackstart/api/internal/repository"
)

// StartSessionSweeper runs an hourly goroutine that reclaims expired
// sessions. The sweep only removes rows already past expiry, so running it
// alongside request traffic, or twice in a row, is harmless.
func StartSessionSweeper(sessions repository.SessionRepository, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := sessions.DeleteExpired(context.Background(), time.Now())
				if err != nil {
					slog.Error("session sweep failed", "error", err)
				} else if n > 0 {
					slog.Info("session sweep completed", "deleted", n)
				}
			case <-done:
				return
			}
		}
	}()
}
