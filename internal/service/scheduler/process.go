package scheduler

import (
	"time"

	"github.com/sirupsen/logrus"
)

// pollConnections is the periodic sync of every active connection
func (s *Scheduler) pollConnections() {
	s.wg.Add(1)
	defer s.wg.Done()

	ctx, ok := s.runContext()
	if !ok {
		logrus.Info("Scheduler not running, skipping sync cycle")
		return
	}

	logrus.Info("Starting scheduled sync cycle")
	startTime := time.Now()

	if err := s.runner.SyncAllActive(ctx); err != nil {
		logrus.Errorf("Scheduled sync failed: %v", err)
		return
	}

	logrus.Infof("Scheduled sync cycle completed in %v", time.Since(startTime))
}

// renewWatches restarts push watches that are about to lapse
func (s *Scheduler) renewWatches() {
	s.wg.Add(1)
	defer s.wg.Done()

	ctx, ok := s.runContext()
	if !ok {
		return
	}

	renewed, err := s.runner.RenewWatches(ctx, watchRenewalWindow)
	if err != nil {
		logrus.Errorf("Failed to renew push watches: %v", err)
		return
	}
	logrus.Infof("Renewed %d push watches", renewed)
}
