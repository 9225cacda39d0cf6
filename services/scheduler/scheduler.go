package schedulersvc

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lumiclass/teacherdir/core"
	"github.com/lumiclass/teacherdir/core/directory"
)

// refreshJobTimeout bounds one scheduled refresh run.
const refreshJobTimeout = time.Minute

// RefreshScheduler force-refreshes the teacher directory on a cron spec so
// the cache rarely expires inside the request path.
type RefreshScheduler struct {
	engine *cron.Cron
	svc    *directory.Service
	logger core.Logger
	spec   string
}

func NewRefreshScheduler(svc *directory.Service, logger core.Logger, spec string) *RefreshScheduler {
	return &RefreshScheduler{
		engine: cron.New(),
		svc:    svc,
		logger: logger,
		spec:   spec,
	}
}

func (s *RefreshScheduler) Start() error {
	if _, err := s.engine.AddFunc(s.spec, s.refresh); err != nil {
		return err
	}
	s.engine.Start()
	s.logger.Info("directory refresh scheduler started", "spec", s.spec)
	return nil
}

func (s *RefreshScheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshJobTimeout)
	defer cancel()

	res, err := s.svc.Refresh(ctx)
	if err != nil {
		s.logger.Error("scheduled directory refresh failed", err)
		return
	}
	s.logger.Info("scheduled directory refresh done",
		"source", string(res.Source), "teachers", len(res.Snapshot.Teachers))
}

// Stop halts scheduling and waits for a running job to finish.
func (s *RefreshScheduler) Stop() {
	ctx := s.engine.Stop()
	<-ctx.Done()
	s.logger.Info("directory refresh scheduler stopped")
}
