package syncer

import (
	"context"
	"time"

	"github.com/origami/repo-data/logging"
	"github.com/origami/repo-data/metrics"
)

func (s *Syncer) monitorQueue(ctx context.Context) {
	monitorTicker := time.NewTicker(s.config.GetMonitorInterval())
	defer monitorTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-monitorTicker.C:
		}
		if err := s.sampleQueue(); err != nil {
			logging.Logger.Errorf("failed to sample ingestion queue, err=%s", err.Error())
		}
	}
}

// sampleQueue publishes queue health and requeues stuck ingestions when
// enabled.
func (s *Syncer) sampleQueue() error {
	dead, err := s.dao.GetOverAttemptedIngestions(s.config.GetMaxIngestionAttempts())
	if err != nil {
		return err
	}
	metrics.DeadIngestionsGauge.Set(float64(len(dead)))
	if len(dead) > 0 {
		logging.Logger.Warningf("%d ingestion(s) reached the maximum number of attempts", len(dead))
	}

	overrunning, err := s.dao.GetOverRunningIngestions(s.config.GetOverrunningThreshold(), s.now())
	if err != nil {
		return err
	}
	metrics.OverrunningIngestionsGauge.Set(float64(len(overrunning)))
	for _, ingestion := range overrunning {
		if !s.config.AutoRequeueOverrunning {
			logging.Logger.Warningf("ingestion %s (%s) has been running since %s",
				ingestion.Id, describeIngestion(ingestion), ingestion.IngestionStartedAt.Format(time.RFC3339))
			continue
		}
		requeued, err := s.dao.RequeueIngestion(ingestion.Id)
		if err != nil {
			return err
		}
		if requeued {
			logging.Logger.Infof("requeued over-running ingestion %s (%s)", ingestion.Id, describeIngestion(ingestion))
		}
	}

	queued, err := s.dao.GetIngestions()
	if err != nil {
		return err
	}
	metrics.QueuedIngestionsGauge.Set(float64(len(queued)))

	versions, err := s.dao.CountVersions()
	if err != nil {
		return err
	}
	metrics.VersionsGauge.Set(float64(versions))
	return nil
}
