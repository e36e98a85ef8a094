package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/metrics"
	"feedback-relay-go/internal/model"
	"feedback-relay-go/internal/repository"
	"feedback-relay-go/internal/service/cursor"
)

var (
	// ErrNoActiveConnection is returned when the connection is missing or inactive
	ErrNoActiveConnection = errors.New("no active connection")
	// ErrSyncInProgress is returned when the connection is already being synced
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrWatchUnsupported is returned for channels without push notifications
	ErrWatchUnsupported = errors.New("connector does not support push watches")
)

// SyncResult is the summary returned to the caller of a sync
type SyncResult struct {
	Processed   int    `json:"processed"`
	Total       int    `json:"total,omitempty"`
	Failed      int    `json:"failed,omitempty"`
	Initialized bool   `json:"initialized,omitempty"`
	Message     string `json:"message"`
}

// Syncer is the entry point for every sync trigger
type Syncer struct {
	repo          *repository.Repository
	adapters      ConnectorFactory
	cursors       *cursor.Manager
	orchestrator  *Orchestrator
	metrics       *metrics.Metrics
	backfillLimit int

	locks keyedLock
}

func NewSyncer(repo *repository.Repository, adapters ConnectorFactory, orchestrator *Orchestrator, m *metrics.Metrics, backfillLimit int) *Syncer {
	if backfillLimit <= 0 {
		backfillLimit = 10
	}
	return &Syncer{
		repo:          repo,
		adapters:      adapters,
		cursors:       cursor.NewManager(repo),
		orchestrator:  orchestrator,
		metrics:       m,
		backfillLimit: backfillLimit,
		locks:         keyedLock{held: make(map[string]struct{})},
	}
}

// SyncConnection runs one incremental sync. upperBound, when set, is the
// provider position the sync should advance to.
func (s *Syncer) SyncConnection(ctx context.Context, connectionID string, trigger model.SyncTrigger, upperBound string) (*SyncResult, error) {
	conn, err := s.activeConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return s.sync(ctx, conn, trigger, upperBound)
}

// HandleMailboxPush syncs the Gmail connection named in a push notification
func (s *Syncer) HandleMailboxPush(ctx context.Context, email, historyID string) (*SyncResult, error) {
	conn, err := s.repo.FindActiveConnection(ctx, model.ChannelGmail, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveConnection
		}
		return nil, err
	}
	return s.sync(ctx, conn, model.TriggerPush, historyID)
}

// ResolveSupportDeskConnection finds the Help Scout connection for a mailbox.
// Without an exact match it falls back to the first active Help Scout connection.
func (s *Syncer) ResolveSupportDeskConnection(ctx context.Context, mailboxID string) (*model.Connection, error) {
	if mailboxID != "" {
		conn, err := s.repo.FindActiveConnection(ctx, model.ChannelHelpScout, mailboxID)
		if err == nil {
			return conn, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	conn, err := s.repo.FirstActiveConnection(ctx, model.ChannelHelpScout)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveConnection
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"mailbox_id":    mailboxID,
		"connection_id": conn.ID,
	}).Warn("No Help Scout connection for mailbox, using first active connection")
	return conn, nil
}

// HandleSupportDeskEvent ingests one conversation named by a webhook
func (s *Syncer) HandleSupportDeskEvent(ctx context.Context, conn *model.Connection, conversationID string) (*MessageResult, error) {
	if !s.locks.TryLock(conn.ID) {
		s.logRun(ctx, conn, model.TriggerWebhook, model.SyncSkipped, nil, ErrSyncInProgress)
		return nil, ErrSyncInProgress
	}
	defer s.locks.Unlock(conn.ID)

	target, adapter, err := s.open(ctx, conn)
	if err != nil {
		s.logRun(ctx, conn, model.TriggerWebhook, model.SyncFailed, nil, err)
		return nil, err
	}
	defer adapter.Close()

	res := s.orchestrator.ProcessID(context.WithoutCancel(ctx), target, adapter, conversationID)
	summary := &SyncResult{Total: 1}
	status := model.SyncSuccess
	if res.Status.Failed() {
		summary.Failed = 1
		status = model.SyncPartial
	} else {
		summary.Processed = 1
	}
	s.logRun(ctx, conn, model.TriggerWebhook, status, summary, nil)
	return &res, nil
}

// Backfill ingests the most recent messages without touching the cursor.
// Already processed messages are skipped, so it is safe to repeat.
func (s *Syncer) Backfill(ctx context.Context, connectionID string, limit int) (*SyncResult, error) {
	if limit <= 0 {
		limit = s.backfillLimit
	}
	conn, err := s.activeConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !s.locks.TryLock(conn.ID) {
		s.logRun(ctx, conn, model.TriggerBackfill, model.SyncSkipped, nil, ErrSyncInProgress)
		return nil, ErrSyncInProgress
	}
	defer s.locks.Unlock(conn.ID)

	target, adapter, err := s.open(ctx, conn)
	if err != nil {
		s.logRun(ctx, conn, model.TriggerBackfill, model.SyncFailed, nil, err)
		return nil, err
	}
	defer adapter.Close()

	msgs, err := adapter.FetchRecentMessages(ctx, limit)
	if err != nil {
		s.logRun(ctx, conn, model.TriggerBackfill, model.SyncFailed, nil, err)
		return nil, err
	}

	work := context.WithoutCancel(ctx)
	result := &SyncResult{Total: len(msgs)}
	for i := range msgs {
		res := s.orchestrator.ProcessMessage(work, target, &msgs[i])
		if res.Status.Failed() {
			result.Failed++
		} else {
			result.Processed++
		}
	}
	result.Message = summaryMessage(result)
	s.logRun(ctx, conn, model.TriggerBackfill, runStatus(result), result, nil)
	return result, nil
}

// StartWatch starts or renews the push subscription. An empty cursor is
// initialized to the watch's starting position.
func (s *Syncer) StartWatch(ctx context.Context, connectionID string) (*connector.WatchResult, error) {
	conn, err := s.activeConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return s.watch(ctx, conn)
}

func (s *Syncer) watch(ctx context.Context, conn *model.Connection) (*connector.WatchResult, error) {
	adapter, err := s.adapters.ForConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connector: %w", err)
	}
	defer adapter.Close()

	watcher, ok := adapter.(connector.Watcher)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	result, err := watcher.Watch(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateWatchExpiration(ctx, conn.ID, result.Expiration); err != nil {
		return nil, err
	}
	if conn.CursorValue() == "" && result.Position != "" {
		if err := s.repo.UpdateConnectionCursor(ctx, conn.ID, result.Position); err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"connection_id": conn.ID,
		"expiration":    result.Expiration,
	}).Info("Push watch started")
	return result, nil
}

// RenewWatches renews Gmail watches expiring within the given window
func (s *Syncer) RenewWatches(ctx context.Context, within time.Duration) (int, error) {
	conns, err := s.repo.ListWatchesExpiringBefore(ctx, model.ChannelGmail, time.Now().Add(within))
	if err != nil {
		return 0, err
	}

	renewed := 0
	for i := range conns {
		if _, err := s.watch(ctx, &conns[i]); err != nil {
			logrus.WithField("connection_id", conns[i].ID).WithError(err).Error("Failed to renew push watch")
			continue
		}
		renewed++
	}
	return renewed, nil
}

// SyncAllActive polls every active connection once. Connections already
// being synced are skipped.
func (s *Syncer) SyncAllActive(ctx context.Context) error {
	conns, err := s.repo.ListActiveConnections(ctx)
	if err != nil {
		return err
	}
	s.metrics.ActiveConnections.Set(float64(len(conns)))

	for i := range conns {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn := &conns[i]
		log := logrus.WithFields(logrus.Fields{"connection_id": conn.ID, "channel": conn.Channel})

		result, err := s.sync(ctx, conn, model.TriggerSchedule, "")
		switch {
		case errors.Is(err, ErrSyncInProgress):
			log.Debug("Sync in progress, skipping scheduled sync")
		case err != nil:
			log.WithError(err).Error("Scheduled sync failed")
		default:
			log.Info(result.Message)
		}
	}
	return nil
}

func (s *Syncer) sync(ctx context.Context, conn *model.Connection, trigger model.SyncTrigger, upperBound string) (*SyncResult, error) {
	if !s.locks.TryLock(conn.ID) {
		s.logRun(ctx, conn, trigger, model.SyncSkipped, nil, ErrSyncInProgress)
		return nil, ErrSyncInProgress
	}
	defer s.locks.Unlock(conn.ID)

	log := logrus.WithFields(logrus.Fields{
		"connection_id": conn.ID,
		"channel":       conn.Channel,
		"trigger":       trigger,
	})
	log.Info("Starting sync")

	target, adapter, err := s.open(ctx, conn)
	if err != nil {
		s.logRun(ctx, conn, trigger, model.SyncFailed, nil, err)
		return nil, err
	}
	defer adapter.Close()

	batch, err := s.cursors.FetchNewMessageIDs(ctx, conn, adapter, upperBound)
	if err != nil {
		log.WithError(err).Error("Failed to list new messages")
		s.logRun(ctx, conn, trigger, model.SyncFailed, nil, err)
		return nil, err
	}

	if batch.Initialized {
		result := &SyncResult{Initialized: true, Message: "Sync initialized. New messages will be processed from now on."}
		s.logRun(ctx, conn, trigger, model.SyncInitialized, result, nil)
		return result, nil
	}
	if batch.Reset {
		result := &SyncResult{Initialized: true, Message: "Sync position expired and was reset. Use backfill to recover recent messages."}
		s.logRun(ctx, conn, trigger, model.SyncInitialized, result, nil)
		return result, nil
	}

	// The cursor is already past these ids; this batch is the only place they
	// are seen, so it runs to the end even if the caller goes away.
	work := context.WithoutCancel(ctx)

	result := &SyncResult{Total: len(batch.IDs)}
	for _, id := range batch.IDs {
		res := s.orchestrator.ProcessID(work, target, adapter, id)
		if res.Status.Failed() {
			result.Failed++
		} else {
			result.Processed++
		}
	}
	result.Message = summaryMessage(result)

	log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"total":     result.Total,
		"failed":    result.Failed,
	}).Info("Sync completed")
	s.logRun(ctx, conn, trigger, runStatus(result), result, nil)
	return result, nil
}

func (s *Syncer) activeConnection(ctx context.Context, id string) (*model.Connection, error) {
	conn, err := s.repo.GetConnection(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveConnection
		}
		return nil, err
	}
	if !conn.Active {
		return nil, ErrNoActiveConnection
	}
	return conn, nil
}

func (s *Syncer) open(ctx context.Context, conn *model.Connection) (Target, connector.Connector, error) {
	product, err := s.repo.GetProduct(ctx, conn.ProductID)
	if err != nil {
		return Target{}, nil, fmt.Errorf("failed to load product: %w", err)
	}
	adapter, err := s.adapters.ForConnection(ctx, conn)
	if err != nil {
		return Target{}, nil, fmt.Errorf("failed to open connector: %w", err)
	}
	return Target{Connection: conn, Product: product}, adapter, nil
}

// logRun writes the audit row. Its own failure only gets logged.
func (s *Syncer) logRun(ctx context.Context, conn *model.Connection, trigger model.SyncTrigger, status model.SyncStatus, result *SyncResult, runErr error) {
	s.metrics.SyncRuns.WithLabelValues(string(trigger), string(status)).Inc()

	run := &model.SyncRun{
		ConnectionID: conn.ID,
		Trigger:      trigger,
		Status:       status,
	}
	if result != nil {
		run.Processed = result.Processed
		run.Total = result.Total
		run.Failed = result.Failed
	}
	if runErr != nil {
		run.ErrorMsg = runErr.Error()
	}
	if err := s.repo.LogSyncRun(context.WithoutCancel(ctx), run); err != nil {
		logrus.WithField("connection_id", conn.ID).WithError(err).Error("Failed to log sync run")
	}
}

func summaryMessage(r *SyncResult) string {
	if r.Failed > 0 {
		return fmt.Sprintf("Processed %d of %d messages (%d failed, see server logs)", r.Processed, r.Total, r.Failed)
	}
	return fmt.Sprintf("Processed %d of %d messages", r.Processed, r.Total)
}

func runStatus(r *SyncResult) model.SyncStatus {
	if r.Failed > 0 {
		return model.SyncPartial
	}
	return model.SyncSuccess
}

// keyedLock is a set of non-blocking per-key locks
type keyedLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func (k *keyedLock) TryLock(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.held[key]; ok {
		return false
	}
	k.held[key] = struct{}{}
	return true
}

func (k *keyedLock) Unlock(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.held, key)
}
