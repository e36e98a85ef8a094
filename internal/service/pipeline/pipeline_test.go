package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/database/dbtest"
	"feedback-relay-go/internal/llm/llmtest"
	"feedback-relay-go/internal/metrics"
	"feedback-relay-go/internal/model"
	"feedback-relay-go/internal/repository"
	"feedback-relay-go/internal/service/classifier"
	"feedback-relay-go/internal/service/contact"
	"feedback-relay-go/internal/service/matcher"
)

const (
	classifyPrompt = "determine if it contains a feature request"
	extractPrompt  = "return it as JSON"
	matchPrompt    = "You are matching feature requests"
	draftPrompt    = "Write a short, friendly email reply"

	darkModeJSON = `{"title": "Night theme", "description": "Wants a dark UI", "category": "ux", "sentiment": "positive"}`
)

type PipelineSuite struct {
	suite.Suite
	ctx        context.Context
	db         *gorm.DB
	repo       *repository.Repository
	llm        *llmtest.Fake
	metrics    *metrics.Metrics
	src        *fakeSource
	factory    *fakeFactory
	dispatcher *Dispatcher
	orch       *Orchestrator
	syncer     *Syncer
	product    *model.Product
	conn       *model.Connection
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.New(s.T())
	s.repo = repository.New(s.db)
	s.llm = llmtest.New()
	s.metrics = metrics.NewMetrics(prometheus.NewRegistry())
	s.src = newFakeSource()
	s.factory = &fakeFactory{src: s.src}

	cls := classifier.New(s.llm)
	s.dispatcher = NewDispatcher(cls, s.factory, s.metrics, DispatcherConfig{Workers: 1, QueueSize: 10, Timeout: 5 * time.Second})
	s.orch = NewOrchestrator(s.repo, cls, matcher.New(s.repo, s.llm, 50), contact.NewResolver(s.repo), s.dispatcher, s.metrics)
	s.syncer = NewSyncer(s.repo, s.factory, s.orch, s.metrics, 10)

	s.product = &model.Product{Name: "Acme", AutoDraftsEnabled: true}
	s.Require().NoError(s.repo.CreateProduct(s.ctx, s.product))
	s.conn = &model.Connection{ProductID: s.product.ID, Channel: model.ChannelGmail, AccountIdentifier: "team@acme.test", Active: true}
	s.Require().NoError(s.repo.CreateConnection(s.ctx, s.conn))
}

func (s *PipelineSuite) TearDownTest() {
	s.dispatcher.Stop()
}

func (s *PipelineSuite) target() Target {
	return Target{Connection: s.conn, Product: s.product}
}

func (s *PipelineSuite) existingRequest(title string, count int) *model.FeatureRequest {
	fr := &model.FeatureRequest{ProductID: s.product.ID, Title: title, Description: "Dark theme for the app", Category: model.CategoryUX, FeedbackCount: count}
	s.Require().NoError(s.repo.CreateFeatureRequest(s.ctx, fr))
	return fr
}

func (s *PipelineSuite) record(sourceID string) *model.ProcessedMessage {
	var rec model.ProcessedMessage
	s.Require().NoError(s.db.Where("source = ? AND source_message_id = ?", model.ChannelGmail, sourceID).First(&rec).Error)
	return &rec
}

func (s *PipelineSuite) count(m interface{}) int64 {
	var n int64
	s.Require().NoError(s.db.Model(m).Count(&n).Error)
	return n
}

func (s *PipelineSuite) setCursor(cursor string) {
	s.Require().NoError(s.repo.UpdateConnectionCursor(s.ctx, s.conn.ID, cursor))
	s.conn.Cursor = &cursor
}

func (s *PipelineSuite) TestMatchLinksToExistingRequest() {
	existing := s.existingRequest("Dark mode support", 3)
	s.llm.On(classifyPrompt, "yes").On(extractPrompt, darkModeJSON).On(matchPrompt, "0").On(draftPrompt, "Thanks, dark mode is on our list.")

	msg := gmailMessage("m1", "Ada@Example.com", "Ada", "Dark mode?", "Any chance of a night theme?")
	res := s.orch.ProcessMessage(s.ctx, s.target(), &msg)

	s.Equal(StatusLinked, res.Status)
	s.True(res.Matched)
	s.Nil(res.FeatureRequestID)
	s.Require().NotNil(res.FeedbackID)

	fr, err := s.repo.GetFeatureRequest(s.ctx, existing.ID)
	s.Require().NoError(err)
	s.Equal(4, fr.FeedbackCount)

	rec := s.record("m1")
	s.True(rec.IsFeatureRequest)
	s.Nil(rec.FeatureRequestID)
	s.Require().NotNil(rec.FeedbackID)
	s.Equal(*res.FeedbackID, *rec.FeedbackID)

	fb, err := s.repo.GetFeedback(s.ctx, *rec.FeedbackID)
	s.Require().NoError(err)
	s.Equal(existing.ID, *fb.FeatureRequestID)
	s.Equal(model.SentimentPositive, fb.Sentiment)
	s.Require().NotNil(fb.ContactID)

	c, err := s.repo.FindContact(s.ctx, s.product.ID, "ada@example.com")
	s.Require().NoError(err)
	s.Equal(c.ID, *fb.ContactID)

	s.dispatcher.Stop()
	s.Equal(1, s.src.draftCount())
	s.Equal("Ada@Example.com: Thanks, dark mode is on our list.", s.src.drafts[0])
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DraftsCreated))
}

func (s *PipelineSuite) TestNewRequestCreated() {
	s.llm.On(classifyPrompt, "yes").On(extractPrompt, darkModeJSON)

	msg := gmailMessage("m2", "bob@example.com", "", "Idea", "Please add a night theme")
	res := s.orch.ProcessMessage(s.ctx, s.target(), &msg)

	s.Equal(StatusCreated, res.Status)
	s.False(res.Matched)
	s.Require().NotNil(res.FeatureRequestID)
	s.Require().NotNil(res.FeedbackID)
	// no candidates means no match call
	s.Equal(2, s.llm.Calls())

	fr, err := s.repo.GetFeatureRequest(s.ctx, *res.FeatureRequestID)
	s.Require().NoError(err)
	s.Equal(1, fr.FeedbackCount)
	s.Equal("Night theme", fr.Title)
	s.Equal(model.CategoryUX, fr.Category)
	s.Equal(model.StatusUntriaged, fr.Status)
	s.True(fr.AIGenerated)
	s.Equal("m2", *fr.SourceMessageID)

	rec := s.record("m2")
	s.Equal(*res.FeatureRequestID, *rec.FeatureRequestID)
	s.Equal(*res.FeedbackID, *rec.FeedbackID)

	s.dispatcher.Stop()
	s.Zero(s.src.draftCount())
}

func (s *PipelineSuite) TestNoDraftWhenAutoDraftsDisabled() {
	s.existingRequest("Dark mode support", 1)
	s.product.AutoDraftsEnabled = false
	s.llm.On(classifyPrompt, "yes").On(extractPrompt, darkModeJSON).On(matchPrompt, "0")

	msg := gmailMessage("m3", "ada@example.com", "", "Dark mode", "Dark mode please")
	res := s.orch.ProcessMessage(s.ctx, s.target(), &msg)
	s.Equal(StatusLinked, res.Status)

	s.dispatcher.Stop()
	s.Zero(s.src.draftCount())
	s.Zero(testutil.ToFloat64(s.metrics.DraftsQueued))
}

func (s *PipelineSuite) TestClassificationFailsClosed() {
	s.llm.Fail(classifyPrompt, errors.New("model unavailable"))

	msg := gmailMessage("m4", "ada@example.com", "", "Dark mode", "Dark mode please")
	res := s.orch.ProcessMessage(s.ctx, s.target(), &msg)

	s.Equal(StatusClassificationFailed, res.Status)
	s.Len(res.Failures, 1)
	s.False(s.record("m4").IsFeatureRequest)
	s.Zero(s.count(&model.FeatureRequest{}))
	s.Zero(s.count(&model.Feedback{}))
}

func (s *PipelineSuite) TestNotFeatureRequest() {
	s.llm.On(classifyPrompt, "no")

	msg := gmailMessage("m5", "ada@example.com", "", "Invoice", "Where is my invoice?")
	res := s.orch.ProcessMessage(s.ctx, s.target(), &msg)

	s.Equal(StatusNotFeatureRequest, res.Status)
	s.NotEmpty(res.RecordID)
	s.False(s.record("m5").IsFeatureRequest)
	s.Equal(1, s.llm.Calls())
}

func (s *PipelineSuite) TestExtractionFailure() {
	s.llm.On(classifyPrompt, "yes").On(extractPrompt, "Sorry, nothing to extract.")

	msg := gmailMessage("m6", "ada@example.com", "", "Dark mode", "Dark mode please")
	res := s.orch.ProcessMessage(s.ctx, s.target(), &msg)

	s.Equal(StatusExtractionFailed, res.Status)
	s.True(s.record("m6").IsFeatureRequest)
	s.Zero(s.count(&model.FeatureRequest{}))
}

func (s *PipelineSuite) TestMatchFailureCreatesNewRequest() {
	existing := s.existingRequest("Dark mode support", 2)
	s.llm.On(classifyPrompt, "yes").On(extractPrompt, darkModeJSON).Fail(matchPrompt, errors.New("timeout"))

	msg := gmailMessage("m7", "ada@example.com", "", "Dark mode", "Dark mode please")
	res := s.orch.ProcessMessage(s.ctx, s.target(), &msg)

	s.Equal(StatusCreated, res.Status)
	s.NotEqual(existing.ID, *res.FeatureRequestID)
	s.Len(res.Failures, 1)
	s.Equal("match", res.Failures[0].Stage)
}

func (s *PipelineSuite) TestAtMostOnce() {
	s.llm.On(classifyPrompt, "yes").On(extractPrompt, darkModeJSON)

	msg := gmailMessage("m8", "ada@example.com", "", "Dark mode", "Dark mode please")
	first := s.orch.ProcessMessage(s.ctx, s.target(), &msg)
	s.Equal(StatusCreated, first.Status)
	calls := s.llm.Calls()

	second := s.orch.ProcessMessage(s.ctx, s.target(), &msg)
	s.Equal(StatusAlreadyProcessed, second.Status)
	s.Equal(calls, s.llm.Calls())

	s.src.add(msg)
	third := s.orch.ProcessID(s.ctx, s.target(), &fakeAdapter{src: s.src}, "m8")
	s.Equal(StatusAlreadyProcessed, third.Status)

	s.Equal(int64(1), s.count(&model.ProcessedMessage{}))
	s.Equal(int64(1), s.count(&model.FeatureRequest{}))
}

func (s *PipelineSuite) TestPersistenceFailureKeepsRecord() {
	s.llm.On(classifyPrompt, "yes").On(extractPrompt, darkModeJSON)
	s.Require().NoError(s.db.Migrator().DropTable(&model.Feedback{}))

	msg := gmailMessage("m9", "ada@example.com", "", "Dark mode", "Dark mode please")
	res := s.orch.ProcessMessage(s.ctx, s.target(), &msg)

	s.Equal(StatusPersistenceFailed, res.Status)
	rec := s.record("m9")
	s.True(rec.IsFeatureRequest)
	s.Nil(rec.FeatureRequestID)
	s.Nil(rec.FeedbackID)
	s.Zero(s.count(&model.FeatureRequest{}))
}

func (s *PipelineSuite) TestFetchOutcomes() {
	s.src.fetchErrs["spam"] = connector.ErrFiltered
	res := s.orch.ProcessID(s.ctx, s.target(), &fakeAdapter{src: s.src}, "spam")
	s.Equal(StatusFiltered, res.Status)

	res = s.orch.ProcessID(s.ctx, s.target(), &fakeAdapter{src: s.src}, "missing")
	s.Equal(StatusRecordFailed, res.Status)
	s.Equal("fetch", res.Failures[0].Stage)

	s.Zero(s.count(&model.ProcessedMessage{}))
}

func (s *PipelineSuite) TestFirstSyncInitializesCursor() {
	s.src.position = "100"
	s.src.ids = []string{"m1"}

	res, err := s.syncer.SyncConnection(s.ctx, s.conn.ID, model.TriggerManual, "")
	s.Require().NoError(err)
	s.True(res.Initialized)
	s.Zero(res.Processed)
	s.Contains(res.Message, "initialized")
	s.Empty(s.src.listedFor)

	conn, err := s.repo.GetConnection(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	s.Equal("100", conn.CursorValue())
	s.Zero(s.count(&model.ProcessedMessage{}))

	runs, total, err := s.repo.ListSyncRuns(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(model.SyncInitialized, runs[0].Status)
}

func (s *PipelineSuite) TestSyncProcessesNewMessages() {
	s.setCursor("100")
	s.src.position = "200"
	s.src.ids = []string{"a", "b", "gone"}
	s.src.add(gmailMessage("a", "ada@example.com", "", "Dark mode", "Dark mode please"))
	s.src.add(gmailMessage("b", "bob@example.com", "", "Hi", "Just saying hi"))
	s.llm.On(extractPrompt, darkModeJSON).On("Dark mode please", "yes").On(classifyPrompt, "no")

	res, err := s.syncer.SyncConnection(s.ctx, s.conn.ID, model.TriggerManual, "")
	s.Require().NoError(err)
	s.Equal(3, res.Total)
	s.Equal(2, res.Processed)
	s.Equal(1, res.Failed)
	s.Equal("Processed 2 of 3 messages (1 failed, see server logs)", res.Message)
	s.Equal([]string{"100"}, s.src.listedFor)

	conn, err := s.repo.GetConnection(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	s.Equal("200", conn.CursorValue())
	s.Equal(int64(1), s.count(&model.FeatureRequest{}))
	s.Equal(int32(1), s.factory.builds.Load())
	s.Equal(1, s.src.closed)

	runs, _, err := s.repo.ListSyncRuns(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Equal(model.SyncPartial, runs[0].Status)
	s.Equal(2, runs[0].Processed)
}

func (s *PipelineSuite) TestSyncFinishesCommittedBatchWhenCallerCancels() {
	s.setCursor("100")
	s.src.position = "200"
	s.src.ids = []string{"a", "b", "c"}
	s.src.add(gmailMessage("a", "ada@example.com", "", "One", "first note"))
	s.src.add(gmailMessage("b", "bob@example.com", "", "Two", "second note"))
	s.src.add(gmailMessage("c", "cy@example.com", "", "Three", "third note"))

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.llm.OnCall("first note", "no", cancel).On(classifyPrompt, "no")

	res, err := s.syncer.SyncConnection(ctx, s.conn.ID, model.TriggerManual, "")
	s.Require().NoError(err)
	s.Error(ctx.Err())
	s.Equal(3, res.Total)
	s.Equal(3, res.Processed)
	s.Equal(0, res.Failed)

	for _, id := range []string{"a", "b", "c"} {
		s.False(s.record(id).IsFeatureRequest)
	}
	conn, err := s.repo.GetConnection(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	s.Equal("200", conn.CursorValue())
}

func (s *PipelineSuite) TestBackfillFinishesWhenCallerCancels() {
	s.src.recent = []model.NormalizedMessage{
		gmailMessage("r1", "ada@example.com", "", "One", "first note"),
		gmailMessage("r2", "bob@example.com", "", "Two", "second note"),
	}
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.llm.OnCall("first note", "no", cancel).On(classifyPrompt, "no")

	res, err := s.syncer.Backfill(ctx, s.conn.ID, 0)
	s.Require().NoError(err)
	s.Equal(2, res.Processed)
	s.Equal(int64(2), s.count(&model.ProcessedMessage{}))
}

func (s *PipelineSuite) TestSyncConnectorErrorKeepsCursor() {
	s.setCursor("100")
	s.src.position = "200"
	s.src.listErr = connector.NewError(model.ChannelGmail, "history", connector.KindUnavailable, errors.New("503"))

	_, err := s.syncer.SyncConnection(s.ctx, s.conn.ID, model.TriggerManual, "")
	var cerr *connector.Error
	s.Require().ErrorAs(err, &cerr)

	conn, err := s.repo.GetConnection(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	s.Equal("100", conn.CursorValue())
}

func (s *PipelineSuite) TestSyncExpiredCursorReinitializes() {
	s.setCursor("1")
	s.src.position = "500"
	s.src.listErr = connector.ErrCursorExpired

	res, err := s.syncer.SyncConnection(s.ctx, s.conn.ID, model.TriggerManual, "")
	s.Require().NoError(err)
	s.True(res.Initialized)
	s.Contains(res.Message, "reset")

	conn, err := s.repo.GetConnection(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	s.Equal("500", conn.CursorValue())
}

func (s *PipelineSuite) TestConcurrentSyncRejected() {
	s.setCursor("100")
	s.src.position = "200"
	s.Require().True(s.syncer.locks.TryLock(s.conn.ID))

	_, err := s.syncer.SyncConnection(s.ctx, s.conn.ID, model.TriggerManual, "")
	s.ErrorIs(err, ErrSyncInProgress)
	_, err = s.syncer.Backfill(s.ctx, s.conn.ID, 5)
	s.ErrorIs(err, ErrSyncInProgress)

	s.syncer.locks.Unlock(s.conn.ID)
	_, err = s.syncer.SyncConnection(s.ctx, s.conn.ID, model.TriggerManual, "")
	s.NoError(err)
}

func (s *PipelineSuite) TestInactiveOrMissingConnection() {
	_, err := s.syncer.SyncConnection(s.ctx, "does-not-exist", model.TriggerManual, "")
	s.ErrorIs(err, ErrNoActiveConnection)

	s.Require().NoError(s.repo.SetConnectionActive(s.ctx, s.conn.ID, false))
	_, err = s.syncer.SyncConnection(s.ctx, s.conn.ID, model.TriggerManual, "")
	s.ErrorIs(err, ErrNoActiveConnection)

	_, err = s.syncer.HandleMailboxPush(s.ctx, "team@acme.test", "300")
	s.ErrorIs(err, ErrNoActiveConnection)
}

func (s *PipelineSuite) TestMailboxPushUsesHistoryIDAsUpperBound() {
	s.setCursor("100")
	s.src.position = "999"

	res, err := s.syncer.HandleMailboxPush(s.ctx, "team@acme.test", "300")
	s.Require().NoError(err)
	s.Zero(res.Total)

	conn, err := s.repo.GetConnection(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	s.Equal("300", conn.CursorValue())
}

func (s *PipelineSuite) TestBackfillIsIdempotent() {
	s.src.recent = []model.NormalizedMessage{
		gmailMessage("r1", "ada@example.com", "", "Dark mode", "Dark mode please"),
		gmailMessage("r2", "bob@example.com", "", "Hi", "Just saying hi"),
	}
	s.llm.On(extractPrompt, darkModeJSON).On("Dark mode please", "yes").On(classifyPrompt, "no")

	res, err := s.syncer.Backfill(s.ctx, s.conn.ID, 0)
	s.Require().NoError(err)
	s.Equal(2, res.Processed)
	calls := s.llm.Calls()

	res, err = s.syncer.Backfill(s.ctx, s.conn.ID, 0)
	s.Require().NoError(err)
	s.Equal(2, res.Processed)
	s.Equal(calls, s.llm.Calls())
	s.Equal(int64(2), s.count(&model.ProcessedMessage{}))

	conn, err := s.repo.GetConnection(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	s.Empty(conn.CursorValue())
}

func (s *PipelineSuite) TestStartWatchInitializesCursor() {
	exp := time.Now().Add(7 * 24 * time.Hour).Truncate(time.Second)
	s.src.watch = &connector.WatchResult{Position: "4242", Expiration: exp}

	res, err := s.syncer.StartWatch(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	s.Equal("4242", res.Position)

	conn, err := s.repo.GetConnection(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	s.Equal("4242", conn.CursorValue())
	s.Require().NotNil(conn.WatchExpiration)
	s.WithinDuration(exp, *conn.WatchExpiration, time.Second)

	s.src.watch = &connector.WatchResult{Position: "5000", Expiration: exp.Add(time.Hour)}
	_, err = s.syncer.StartWatch(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	conn, err = s.repo.GetConnection(s.ctx, s.conn.ID)
	s.Require().NoError(err)
	s.Equal("4242", conn.CursorValue())
}

func (s *PipelineSuite) TestRenewWatches() {
	soon := time.Now().Add(time.Hour)
	s.Require().NoError(s.repo.UpdateWatchExpiration(s.ctx, s.conn.ID, soon))
	s.src.watch = &connector.WatchResult{Position: "1", Expiration: time.Now().Add(7 * 24 * time.Hour)}

	n, err := s.syncer.RenewWatches(s.ctx, 48*time.Hour)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = s.syncer.RenewWatches(s.ctx, 48*time.Hour)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *PipelineSuite) TestWatchUnsupported() {
	s.factory.plain = true
	_, err := s.syncer.StartWatch(s.ctx, s.conn.ID)
	s.ErrorIs(err, ErrWatchUnsupported)
}

func (s *PipelineSuite) TestResolveSupportDeskConnection() {
	_, err := s.syncer.ResolveSupportDeskConnection(s.ctx, "123")
	s.ErrorIs(err, ErrNoActiveConnection)

	first := &model.Connection{ProductID: s.product.ID, Channel: model.ChannelHelpScout, AccountIdentifier: "111", Active: true}
	s.Require().NoError(s.repo.CreateConnection(s.ctx, first))
	second := &model.Connection{ProductID: s.product.ID, Channel: model.ChannelHelpScout, AccountIdentifier: "222", Active: true}
	s.Require().NoError(s.repo.CreateConnection(s.ctx, second))

	conn, err := s.syncer.ResolveSupportDeskConnection(s.ctx, "222")
	s.Require().NoError(err)
	s.Equal(second.ID, conn.ID)

	conn, err = s.syncer.ResolveSupportDeskConnection(s.ctx, "999")
	s.Require().NoError(err)
	s.Equal(model.ChannelHelpScout, conn.Channel)
}

func (s *PipelineSuite) TestHandleSupportDeskEvent() {
	s.src.add(gmailMessage("c1", "ada@example.com", "", "Dark mode", "Dark mode please"))
	s.llm.On(classifyPrompt, "yes").On(extractPrompt, darkModeJSON)

	res, err := s.syncer.HandleSupportDeskEvent(s.ctx, s.conn, "c1")
	s.Require().NoError(err)
	s.Equal(StatusCreated, res.Status)

	res, err = s.syncer.HandleSupportDeskEvent(s.ctx, s.conn, "c1")
	s.Require().NoError(err)
	s.Equal(StatusAlreadyProcessed, res.Status)
}

func (s *PipelineSuite) TestSyncAllActiveSkipsLockedConnections() {
	s.setCursor("100")
	s.src.position = "200"
	other := &model.Connection{ProductID: s.product.ID, Channel: model.ChannelIMAP, AccountIdentifier: "ops@acme.test", Active: true}
	s.Require().NoError(s.repo.CreateConnection(s.ctx, other))
	s.Require().True(s.syncer.locks.TryLock(other.ID))
	defer s.syncer.locks.Unlock(other.ID)

	s.Require().NoError(s.syncer.SyncAllActive(s.ctx))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.ActiveConnections))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SyncRuns.WithLabelValues(string(model.TriggerSchedule), string(model.SyncSkipped))))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SyncRuns.WithLabelValues(string(model.TriggerSchedule), string(model.SyncSuccess))))
}
