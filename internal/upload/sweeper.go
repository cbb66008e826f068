package upload

import (
	"context"
	"time"

	"docrepo/internal/metrics"

	"go.uber.org/zap"
)

// StartSweeper runs the expiry sweep on a fixed interval until the context
// is cancelled. The sweep is best-effort and idempotent: a session already
// removed by a concurrent complete or cancel is simply skipped, and a
// failure on one session never aborts the rest.
func (s *Service) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.log.Info("upload sweeper started", zap.Duration("interval", s.cfg.SweepInterval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("upload sweeper shutting down")
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

func (s *Service) sweepExpired() {
	expired := s.sessions.ExpiredIDs(s.nowFunc())
	for _, uploadID := range expired {
		s.cleanupSession(uploadID)
		metrics.UploadsExpired.Inc()
		s.log.Info("cleaned up expired upload session", zap.String("upload_id", uploadID))
	}
}
