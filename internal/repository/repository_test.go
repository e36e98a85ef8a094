package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"feedback-relay-go/internal/database/dbtest"
	"feedback-relay-go/internal/model"
)

type RepositoryTestSuite struct {
	suite.Suite
	repo    *Repository
	ctx     context.Context
	product *model.Product
}

func (s *RepositoryTestSuite) SetupTest() {
	s.repo = New(dbtest.New(s.T()))
	s.ctx = context.Background()
	s.product = &model.Product{Name: "Acme"}
	require.NoError(s.T(), s.repo.CreateProduct(s.ctx, s.product))
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) newRequest(title string) *model.FeatureRequest {
	fr := &model.FeatureRequest{ProductID: s.product.ID, Title: title, Category: model.CategoryFeature}
	require.NoError(s.T(), s.repo.CreateFeatureRequest(s.ctx, fr))
	return fr
}

func (s *RepositoryTestSuite) newFeedback(frID *string) *model.Feedback {
	fb := &model.Feedback{ProductID: s.product.ID, FeatureRequestID: frID, Content: "please"}
	require.NoError(s.T(), s.repo.CreateFeedback(s.ctx, fb))
	return fb
}

func (s *RepositoryTestSuite) assertCountConsistent(frID string) {
	fr, err := s.repo.GetFeatureRequest(s.ctx, frID)
	require.NoError(s.T(), err)
	n, err := s.repo.CountFeedback(s.ctx, frID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int(n), fr.FeedbackCount)
}

func (s *RepositoryTestSuite) TestProcessedMessage_UniquePerSourceAndID() {
	first := &model.ProcessedMessage{ProductID: s.product.ID, Source: model.ChannelGmail, SourceMessageID: "abc123"}
	require.NoError(s.T(), s.repo.CreateProcessedMessage(s.ctx, first))
	assert.NotEmpty(s.T(), first.ID)
	assert.False(s.T(), first.ProcessedAt.IsZero())

	dup := &model.ProcessedMessage{ProductID: s.product.ID, Source: model.ChannelGmail, SourceMessageID: "abc123"}
	assert.ErrorIs(s.T(), s.repo.CreateProcessedMessage(s.ctx, dup), ErrDuplicate)

	other := &model.ProcessedMessage{ProductID: s.product.ID, Source: model.ChannelHelpScout, SourceMessageID: "abc123"}
	assert.NoError(s.T(), s.repo.CreateProcessedMessage(s.ctx, other))

	ok, err := s.repo.IsMessageProcessed(s.ctx, model.ChannelGmail, "abc123")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	ok, err = s.repo.IsMessageProcessed(s.ctx, model.ChannelGmail, "nope")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *RepositoryTestSuite) TestProcessedMessage_LinkAndList() {
	m := &model.ProcessedMessage{ProductID: s.product.ID, Source: model.ChannelGmail, SourceMessageID: "m1"}
	require.NoError(s.T(), s.repo.CreateProcessedMessage(s.ctx, m))

	fbID := "fb-1"
	require.NoError(s.T(), s.repo.MarkFeatureRequest(s.ctx, m.ID))
	require.NoError(s.T(), s.repo.LinkProcessedMessage(s.ctx, m.ID, nil, &fbID))

	got, err := s.repo.GetProcessedMessage(s.ctx, m.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), got.IsFeatureRequest)
	assert.Nil(s.T(), got.FeatureRequestID)
	require.NotNil(s.T(), got.FeedbackID)
	assert.Equal(s.T(), fbID, *got.FeedbackID)

	msgs, total, err := s.repo.ListProcessedMessages(s.ctx, s.product.ID, 1, 10)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, total)
	assert.Len(s.T(), msgs, 1)

	require.NoError(s.T(), s.repo.DeleteProcessedMessage(s.ctx, m.ID))
	_, err = s.repo.GetProcessedMessage(s.ctx, m.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestFeedbackCount_LinkIncrements() {
	fr := s.newRequest("Dark mode")
	assert.Equal(s.T(), model.StatusUntriaged, fr.Status)
	assert.Equal(s.T(), 0, fr.FeedbackCount)

	s.newFeedback(&fr.ID)
	s.newFeedback(&fr.ID)
	s.newFeedback(nil)

	got, err := s.repo.GetFeatureRequest(s.ctx, fr.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, got.FeedbackCount)
	s.assertCountConsistent(fr.ID)
}

func (s *RepositoryTestSuite) TestFeedbackCount_RelinkAndDelete() {
	a := s.newRequest("A")
	b := s.newRequest("B")
	fb1 := s.newFeedback(&a.ID)
	fb2 := s.newFeedback(&a.ID)
	loose := s.newFeedback(nil)

	_, err := s.repo.RelinkFeedback(s.ctx, fb1.ID, &b.ID)
	require.NoError(s.T(), err)
	s.assertCountConsistent(a.ID)
	s.assertCountConsistent(b.ID)

	_, err = s.repo.RelinkFeedback(s.ctx, fb2.ID, nil)
	require.NoError(s.T(), err)
	s.assertCountConsistent(a.ID)

	_, err = s.repo.RelinkFeedback(s.ctx, loose.ID, &a.ID)
	require.NoError(s.T(), err)
	s.assertCountConsistent(a.ID)

	// relinking to the same request is a no-op
	_, err = s.repo.RelinkFeedback(s.ctx, loose.ID, &a.ID)
	require.NoError(s.T(), err)
	s.assertCountConsistent(a.ID)

	require.NoError(s.T(), s.repo.DeleteFeedback(s.ctx, fb1.ID))
	s.assertCountConsistent(b.ID)
	require.NoError(s.T(), s.repo.DeleteFeedback(s.ctx, fb2.ID))
	require.NoError(s.T(), s.repo.DeleteFeedback(s.ctx, loose.ID))
	s.assertCountConsistent(a.ID)

	assert.ErrorIs(s.T(), s.repo.DeleteFeedback(s.ctx, loose.ID), ErrNotFound)
}

func (s *RepositoryTestSuite) TestFeedbackCount_DecrementFloorsAtZero() {
	fr := s.newRequest("Empty")
	require.NoError(s.T(), s.repo.DecrementFeedbackCount(s.ctx, fr.ID))
	require.NoError(s.T(), s.repo.DecrementFeedbackCount(s.ctx, fr.ID))

	got, err := s.repo.GetFeatureRequest(s.ctx, fr.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, got.FeedbackCount)
}

func (s *RepositoryTestSuite) TestCreateFeedback_UnknownRequestRollsBack() {
	missing := "missing"
	fb := &model.Feedback{ProductID: s.product.ID, FeatureRequestID: &missing, Content: "x"}
	assert.ErrorIs(s.T(), s.repo.CreateFeedback(s.ctx, fb), ErrNotFound)

	_, err := s.repo.GetFeedback(s.ctx, fb.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestRelinkFeedback_RejectsOtherProduct() {
	other := &model.Product{Name: "Other"}
	require.NoError(s.T(), s.repo.CreateProduct(s.ctx, other))
	foreign := &model.FeatureRequest{ProductID: other.ID, Title: "Foreign", Category: model.CategoryFeature}
	require.NoError(s.T(), s.repo.CreateFeatureRequest(s.ctx, foreign))

	fb := s.newFeedback(nil)
	_, err := s.repo.RelinkFeedback(s.ctx, fb.ID, &foreign.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
	s.assertCountConsistent(foreign.ID)
}

func (s *RepositoryTestSuite) TestDeleteFeatureRequest_Cascades() {
	fr := s.newRequest("Gone")
	fb := s.newFeedback(&fr.ID)
	m := &model.ProcessedMessage{ProductID: s.product.ID, Source: model.ChannelGmail, SourceMessageID: "x1"}
	require.NoError(s.T(), s.repo.CreateProcessedMessage(s.ctx, m))
	require.NoError(s.T(), s.repo.LinkProcessedMessage(s.ctx, m.ID, &fr.ID, &fb.ID))

	require.NoError(s.T(), s.repo.DeleteFeatureRequest(s.ctx, fr.ID))

	_, err := s.repo.GetFeedback(s.ctx, fb.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	got, err := s.repo.GetProcessedMessage(s.ctx, m.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), got.FeatureRequestID)
	assert.Nil(s.T(), got.FeedbackID)
}

func (s *RepositoryTestSuite) TestListMatchCandidates_OrderAndLimit() {
	low := s.newRequest("low")
	high := s.newRequest("high")
	mid := s.newRequest("mid")
	for i := 0; i < 3; i++ {
		require.NoError(s.T(), s.repo.IncrementFeedbackCount(s.ctx, high.ID))
	}
	require.NoError(s.T(), s.repo.IncrementFeedbackCount(s.ctx, mid.ID))

	got, err := s.repo.ListMatchCandidates(s.ctx, s.product.ID, 2)
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 2)
	assert.Equal(s.T(), high.ID, got[0].ID)
	assert.Equal(s.T(), mid.ID, got[1].ID)

	all, err := s.repo.ListMatchCandidates(s.ctx, s.product.ID, 50)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), low.ID, all[2].ID)
}

func (s *RepositoryTestSuite) TestConnections() {
	conn := &model.Connection{ProductID: s.product.ID, Channel: model.ChannelGmail, AccountIdentifier: "a@x.com", Active: true}
	require.NoError(s.T(), s.repo.CreateConnection(s.ctx, conn))

	dup := &model.Connection{ProductID: s.product.ID, Channel: model.ChannelGmail, AccountIdentifier: "a@x.com"}
	assert.ErrorIs(s.T(), s.repo.CreateConnection(s.ctx, dup), ErrDuplicate)

	found, err := s.repo.FindActiveConnection(s.ctx, model.ChannelGmail, "a@x.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), conn.ID, found.ID)
	assert.Equal(s.T(), "", found.CursorValue())

	require.NoError(s.T(), s.repo.UpdateConnectionCursor(s.ctx, conn.ID, "42"))
	found, err = s.repo.GetConnection(s.ctx, conn.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "42", found.CursorValue())

	require.NoError(s.T(), s.repo.SetConnectionActive(s.ctx, conn.ID, false))
	_, err = s.repo.FindActiveConnection(s.ctx, model.ChannelGmail, "a@x.com")
	assert.ErrorIs(s.T(), err, ErrNotFound)

	require.NoError(s.T(), s.repo.DeleteConnection(s.ctx, conn.ID))
	assert.ErrorIs(s.T(), s.repo.DeleteConnection(s.ctx, conn.ID), ErrNotFound)
}

func (s *RepositoryTestSuite) TestContacts() {
	c := &model.Contact{ProductID: s.product.ID, Email: "a@x.com"}
	require.NoError(s.T(), s.repo.CreateContact(s.ctx, c))
	assert.ErrorIs(s.T(), s.repo.CreateContact(s.ctx, &model.Contact{ProductID: s.product.ID, Email: "a@x.com"}), ErrDuplicate)

	filled, err := s.repo.UpdateContactName(s.ctx, c.ID, "Ann")
	require.NoError(s.T(), err)
	assert.True(s.T(), filled)

	filled, err = s.repo.UpdateContactName(s.ctx, c.ID, "Bob")
	require.NoError(s.T(), err)
	assert.False(s.T(), filled)

	got, err := s.repo.FindContact(s.ctx, s.product.ID, "a@x.com")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), got.Name)
	assert.Equal(s.T(), "Ann", *got.Name)
}

func (s *RepositoryTestSuite) TestSyncRuns() {
	for i := 0; i < 3; i++ {
		require.NoError(s.T(), s.repo.LogSyncRun(s.ctx, &model.SyncRun{ConnectionID: "c", Trigger: model.TriggerManual, Status: model.SyncSuccess, Processed: i}))
	}
	runs, total, err := s.repo.ListSyncRuns(s.ctx, 1, 2)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 3, total)
	assert.Len(s.T(), runs, 2)

	got, err := s.repo.GetSyncRun(s.ctx, runs[0].ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), runs[0].Processed, got.Processed)
}

func (s *RepositoryTestSuite) TestListWatchesExpiringBefore() {
	never := &model.Connection{ProductID: s.product.ID, Channel: model.ChannelGmail, AccountIdentifier: "never@x.com", Active: true}
	soon := &model.Connection{ProductID: s.product.ID, Channel: model.ChannelGmail, AccountIdentifier: "soon@x.com", Active: true}
	later := &model.Connection{ProductID: s.product.ID, Channel: model.ChannelGmail, AccountIdentifier: "later@x.com", Active: true}
	for _, c := range []*model.Connection{never, soon, later} {
		require.NoError(s.T(), s.repo.CreateConnection(s.ctx, c))
	}
	now := time.Now()
	require.NoError(s.T(), s.repo.UpdateWatchExpiration(s.ctx, soon.ID, now.Add(time.Hour)))
	require.NoError(s.T(), s.repo.UpdateWatchExpiration(s.ctx, later.ID, now.Add(10*24*time.Hour)))

	conns, err := s.repo.ListWatchesExpiringBefore(s.ctx, model.ChannelGmail, now.Add(48*time.Hour))
	require.NoError(s.T(), err)
	require.Len(s.T(), conns, 1)
	assert.Equal(s.T(), soon.ID, conns[0].ID)
}
