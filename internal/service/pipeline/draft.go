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
	"feedback-relay-go/internal/service/classifier"
)

// ErrDraftsUnsupported is returned when a channel adapter cannot store drafts
var ErrDraftsUnsupported = errors.New("connector does not support draft replies")

// DraftJob describes one reply to generate and store as a draft
type DraftJob struct {
	Connection    model.Connection
	ProductName   string
	FeatureTitle  string
	FeatureStatus model.RequestStatus
	Ref           model.ThreadRef
	CustomerName  *string
}

// DraftFailure is reported for every job that did not produce a draft
type DraftFailure struct {
	Job DraftJob
	Err error
}

// DraftGenerator writes the reply body
type DraftGenerator interface {
	GenerateDraftReply(ctx context.Context, req classifier.DraftRequest) (string, error)
}

// ConnectorFactory builds a connection's adapter
type ConnectorFactory interface {
	ForConnection(ctx context.Context, conn *model.Connection) (connector.Connector, error)
}

// DispatcherConfig tunes the draft workers
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher generates and stores draft replies off the ingestion path.
// Every job opens its own adapter.
type Dispatcher struct {
	gen      DraftGenerator
	adapters ConnectorFactory
	metrics  *metrics.Metrics
	timeout  time.Duration

	jobs     chan DraftJob
	failures chan DraftFailure

	mu     sync.Mutex
	closed bool

	workers  sync.WaitGroup
	reporter sync.WaitGroup
}

// NewDispatcher starts the workers and the failure reporter
func NewDispatcher(gen DraftGenerator, adapters ConnectorFactory, m *metrics.Metrics, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	d := &Dispatcher{
		gen:      gen,
		adapters: adapters,
		metrics:  m,
		timeout:  cfg.Timeout,
		jobs:     make(chan DraftJob, cfg.QueueSize),
		failures: make(chan DraftFailure, cfg.QueueSize),
	}

	d.reporter.Add(1)
	go d.report()

	for i := 0; i < cfg.Workers; i++ {
		d.workers.Add(1)
		go d.work()
	}
	return d
}

// Enqueue queues job without blocking. It returns false when the queue is
// full or the dispatcher is stopped.
func (d *Dispatcher) Enqueue(job DraftJob) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	select {
	case d.jobs <- job:
		d.metrics.DraftsQueued.Inc()
		return true
	default:
		d.metrics.DraftsDropped.Inc()
		logrus.WithFields(logrus.Fields{
			"connection_id": job.Connection.ID,
			"message_id":    job.Ref.MessageID,
		}).Warn("Draft queue full, job dropped")
		return false
	}
}

// Stop processes the jobs already queued and then stops the workers
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.workers.Wait()
	close(d.failures)
	d.reporter.Wait()
	logrus.Info("Draft dispatcher stopped")
}

func (d *Dispatcher) work() {
	defer d.workers.Done()
	for job := range d.jobs {
		if err := d.run(job); err != nil {
			d.failures <- DraftFailure{Job: job, Err: err}
		}
	}
}

func (d *Dispatcher) report() {
	defer d.reporter.Done()
	for f := range d.failures {
		d.metrics.DraftFailures.Inc()
		logrus.WithFields(logrus.Fields{
			"connection_id": f.Job.Connection.ID,
			"channel":       f.Job.Connection.Channel,
			"message_id":    f.Job.Ref.MessageID,
		}).WithError(f.Err).Error("Failed to create draft reply")
	}
}

func (d *Dispatcher) run(job DraftJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	body, err := d.gen.GenerateDraftReply(ctx, classifier.DraftRequest{
		CustomerName:  job.CustomerName,
		FeatureTitle:  job.FeatureTitle,
		FeatureStatus: job.FeatureStatus,
		ProductName:   job.ProductName,
		Subject:       job.Ref.Subject,
	})
	if err != nil {
		return err
	}

	conn := job.Connection
	adapter, err := d.adapters.ForConnection(ctx, &conn)
	if err != nil {
		return fmt.Errorf("failed to open connector: %w", err)
	}
	defer adapter.Close()

	creator, ok := adapter.(connector.DraftCreator)
	if !ok {
		return ErrDraftsUnsupported
	}
	created, err := creator.CreateDraftReply(ctx, job.Ref, body)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("provider did not create the draft")
	}

	d.metrics.DraftsCreated.Inc()
	logrus.WithFields(logrus.Fields{
		"connection_id": job.Connection.ID,
		"message_id":    job.Ref.MessageID,
	}).Info("Draft reply created")
	return nil
}
