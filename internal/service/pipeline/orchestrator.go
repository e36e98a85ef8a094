package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/metrics"
	"feedback-relay-go/internal/model"
	"feedback-relay-go/internal/repository"
	"feedback-relay-go/internal/service/contact"
)

// Classifier answers the classification and extraction questions
type Classifier interface {
	IsFeatureRequest(ctx context.Context, text string) (bool, error)
	ExtractFeatureRequest(ctx context.Context, text string) (*model.ExtractedRequest, error)
}

// Matcher finds an existing request equivalent to an extracted one
type Matcher interface {
	FindMatch(ctx context.Context, productID string, req *model.ExtractedRequest) (*model.FeatureRequest, error)
}

// ContactResolver finds or creates the sender's contact
type ContactResolver interface {
	FindOrCreate(ctx context.Context, productID, email string, name *string) (*model.Contact, error)
}

// DraftQueue accepts draft jobs without blocking
type DraftQueue interface {
	Enqueue(job DraftJob) bool
}

// Target is the connection and product a message is ingested for
type Target struct {
	Connection *model.Connection
	Product    *model.Product
}

// Orchestrator drives a message through CHECK, FETCH, RECORD, CLASSIFY,
// EXTRACT, MATCH, CONTACT and PERSIST
type Orchestrator struct {
	repo       *repository.Repository
	classifier Classifier
	matcher    Matcher
	contacts   ContactResolver
	drafts     DraftQueue
	metrics    *metrics.Metrics
}

func NewOrchestrator(repo *repository.Repository, c Classifier, m Matcher, contacts ContactResolver, drafts DraftQueue, metrics *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		repo:       repo,
		classifier: c,
		matcher:    m,
		contacts:   contacts,
		drafts:     drafts,
		metrics:    metrics,
	}
}

// ProcessID checks, fetches and ingests one message by its source id
func (o *Orchestrator) ProcessID(ctx context.Context, t Target, src connector.Connector, id string) MessageResult {
	res := MessageResult{SourceID: id}
	log := o.logger(t, id)

	if done, ok := o.check(ctx, t, id, &res, log); !ok || done {
		return o.finish(res)
	}

	fetched := o.fetch(ctx, src, id)
	if !fetched.OK() {
		if errors.Is(fetched.Err, connector.ErrFiltered) {
			log.Debug("Message filtered at source, skipping")
			res.Status = StatusFiltered
			return o.finish(res)
		}
		log.WithError(fetched.Err).Error("Failed to fetch message")
		res.fail("fetch", fetched.Err)
		res.Status = StatusRecordFailed
		return o.finish(res)
	}

	return o.finish(o.ingest(ctx, t, fetched.Value, res, log))
}

// ProcessMessage ingests an already fetched message
func (o *Orchestrator) ProcessMessage(ctx context.Context, t Target, msg *model.NormalizedMessage) MessageResult {
	res := MessageResult{SourceID: msg.SourceID}
	log := o.logger(t, msg.SourceID)

	if done, ok := o.check(ctx, t, msg.SourceID, &res, log); !ok || done {
		return o.finish(res)
	}
	return o.finish(o.ingest(ctx, t, msg, res, log))
}

func (o *Orchestrator) logger(t Target, id string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"connection_id": t.Connection.ID,
		"source":        t.Connection.Channel,
		"message_id":    id,
	})
}

func (o *Orchestrator) finish(res MessageResult) MessageResult {
	o.metrics.MessageOutcomes.WithLabelValues(string(res.Status)).Inc()
	return res
}

// check returns done=true when the message was already processed and
// ok=false when the lookup itself failed.
func (o *Orchestrator) check(ctx context.Context, t Target, id string, res *MessageResult, log *logrus.Entry) (done, ok bool) {
	processed, err := o.repo.IsMessageProcessed(ctx, t.Connection.Channel, id)
	if err != nil {
		log.WithError(err).Error("Failed to check processed state")
		res.fail("check", err)
		res.Status = StatusRecordFailed
		return false, false
	}
	if processed {
		log.Debug("Message already processed, skipping")
		res.Status = StatusAlreadyProcessed
		return true, true
	}
	return false, true
}

func (o *Orchestrator) fetch(ctx context.Context, src connector.Connector, id string) Outcome[*model.NormalizedMessage] {
	msg, err := src.FetchMessage(ctx, id)
	if err != nil {
		return Failed[*model.NormalizedMessage](err)
	}
	o.metrics.MessagesFetched.WithLabelValues(string(src.Channel())).Inc()
	return Ok(msg)
}

func (o *Orchestrator) ingest(ctx context.Context, t Target, msg *model.NormalizedMessage, res MessageResult, log *logrus.Entry) MessageResult {
	start := time.Now()
	defer func() { o.metrics.ProcessingTime.Observe(time.Since(start).Seconds()) }()

	// RECORD
	recorded := o.record(ctx, t, msg)
	if !recorded.OK() {
		if errors.Is(recorded.Err, repository.ErrDuplicate) {
			log.Debug("Message recorded concurrently, skipping")
			res.Status = StatusAlreadyProcessed
			return res
		}
		log.WithError(recorded.Err).Error("Failed to record processed message")
		res.fail("record", recorded.Err)
		res.Status = StatusRecordFailed
		return res
	}
	record := recorded.Value
	res.RecordID = record.ID

	// CLASSIFY
	classified := o.classify(ctx, msg)
	if !classified.OK() {
		log.WithError(classified.Err).Warn("Classification failed, treating as not a feature request")
		res.fail("classify", classified.Err)
		res.Status = StatusClassificationFailed
		return res
	}
	if !classified.Value {
		res.Status = StatusNotFeatureRequest
		return res
	}
	if err := o.repo.MarkFeatureRequest(ctx, record.ID); err != nil {
		log.WithError(err).Warn("Failed to mark record as feature request")
		res.fail("classify", err)
	}

	// EXTRACT
	extracted := o.extract(ctx, msg)
	if !extracted.OK() {
		log.WithError(extracted.Err).Warn("Extraction failed")
		res.fail("extract", extracted.Err)
		res.Status = StatusExtractionFailed
		return res
	}
	req := extracted.Value

	// MATCH
	matched := o.match(ctx, t, req)
	if !matched.OK() {
		log.WithError(matched.Err).Warn("Matching failed, creating a new request")
		res.fail("match", matched.Err)
	}
	match := matched.Value

	// CONTACT
	resolved := o.contact(ctx, t, msg)
	if !resolved.OK() {
		if errors.Is(resolved.Err, contact.ErrNoEmail) {
			log.Debug("Message has no sender email, skipping contact")
		} else {
			log.WithError(resolved.Err).Warn("Failed to resolve contact")
			res.fail("contact", resolved.Err)
		}
	}
	var contactID *string
	if c := resolved.Value; c != nil {
		contactID = &c.ID
	}

	// PERSIST
	persisted := o.persist(ctx, t, msg, record, req, match, contactID)
	if !persisted.OK() {
		log.WithError(persisted.Err).Error("Failed to persist feedback")
		res.fail("persist", persisted.Err)
		res.Status = StatusPersistenceFailed
		return res
	}
	links := persisted.Value
	res.FeedbackID = &links.feedbackID
	if match != nil {
		res.Matched = true
		res.Status = StatusLinked
		log.WithField("feature_request_id", match.ID).Info("Linked feedback to existing feature request")
		o.enqueueDraft(t, msg, match, log)
	} else {
		res.FeatureRequestID = &links.featureRequestID
		res.Status = StatusCreated
		log.WithField("feature_request_id", links.featureRequestID).Info("Created new feature request")
	}
	return res
}

func (o *Orchestrator) record(ctx context.Context, t Target, msg *model.NormalizedMessage) Outcome[*model.ProcessedMessage] {
	rec := &model.ProcessedMessage{
		ProductID:       t.Product.ID,
		ConnectionID:    t.Connection.ID,
		Source:          msg.Source,
		SourceMessageID: msg.SourceID,
		SourceThreadID:  msg.SourceThreadID,
		Subject:         msg.Subject,
		SenderEmail:     msg.Sender.Email,
		SenderName:      msg.Sender.Name,
		Content:         msg.Content,
		ReceivedAt:      msg.ReceivedAt,
	}
	if err := o.repo.CreateProcessedMessage(ctx, rec); err != nil {
		return Failed[*model.ProcessedMessage](err)
	}
	return Ok(rec)
}

func (o *Orchestrator) classify(ctx context.Context, msg *model.NormalizedMessage) Outcome[bool] {
	yes, err := o.classifier.IsFeatureRequest(ctx, messageText(msg))
	o.countLLM("classify", err)
	if err != nil {
		return Failed[bool](err)
	}
	return Ok(yes)
}

func (o *Orchestrator) extract(ctx context.Context, msg *model.NormalizedMessage) Outcome[*model.ExtractedRequest] {
	req, err := o.classifier.ExtractFeatureRequest(ctx, messageText(msg))
	o.countLLM("extract", err)
	if err != nil {
		return Failed[*model.ExtractedRequest](err)
	}
	if req == nil {
		return Failed[*model.ExtractedRequest](errors.New("no feature request extracted"))
	}
	return Ok(req)
}

// match never fails the message; an error degrades to "no match"
func (o *Orchestrator) match(ctx context.Context, t Target, req *model.ExtractedRequest) Outcome[*model.FeatureRequest] {
	fr, err := o.matcher.FindMatch(ctx, t.Product.ID, req)
	o.countLLM("match", err)
	if err != nil {
		return Outcome[*model.FeatureRequest]{Err: err}
	}
	return Ok(fr)
}

func (o *Orchestrator) contact(ctx context.Context, t Target, msg *model.NormalizedMessage) Outcome[*model.Contact] {
	c, err := o.contacts.FindOrCreate(ctx, t.Product.ID, msg.Sender.Email, msg.Sender.Name)
	if err != nil {
		return Failed[*model.Contact](err)
	}
	return Ok(c)
}

type persistedLinks struct {
	featureRequestID string
	feedbackID       string
}

func (o *Orchestrator) persist(ctx context.Context, t Target, msg *model.NormalizedMessage, rec *model.ProcessedMessage, req *model.ExtractedRequest, match *model.FeatureRequest, contactID *string) Outcome[persistedLinks] {
	var links persistedLinks
	err := o.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var requestID string
		if match != nil {
			requestID = match.ID
		} else {
			sourceID := msg.SourceID
			fr := &model.FeatureRequest{
				ProductID:       t.Product.ID,
				Title:           req.Title,
				Description:     req.Description,
				Category:        req.Category,
				Status:          model.StatusUntriaged,
				AIGenerated:     true,
				SourceMessageID: &sourceID,
			}
			if err := tx.CreateFeatureRequest(ctx, fr); err != nil {
				return err
			}
			requestID = fr.ID
			links.featureRequestID = fr.ID
		}

		source := msg.Source
		fb := &model.Feedback{
			ProductID:        t.Product.ID,
			FeatureRequestID: &requestID,
			ContactID:        contactID,
			Content:          msg.Content,
			Sentiment:        req.Sentiment,
			Source:           &source,
			SenderName:       msg.Sender.Name,
			AIExtracted:      true,
		}
		if msg.Sender.Email != "" {
			email := msg.Sender.Email
			fb.SenderEmail = &email
		}
		if err := tx.CreateFeedback(ctx, fb); err != nil {
			return err
		}
		links.feedbackID = fb.ID

		var frLink *string
		if match == nil {
			frLink = &links.featureRequestID
		}
		return tx.LinkProcessedMessage(ctx, rec.ID, frLink, &links.feedbackID)
	})
	if err != nil {
		return Failed[persistedLinks](err)
	}
	return Ok(links)
}

func (o *Orchestrator) enqueueDraft(t Target, msg *model.NormalizedMessage, match *model.FeatureRequest, log *logrus.Entry) {
	if !t.Product.AutoDraftsEnabled || o.drafts == nil {
		return
	}
	job := DraftJob{
		Connection:    *t.Connection,
		ProductName:   t.Product.Name,
		FeatureTitle:  match.Title,
		FeatureStatus: match.Status,
		Ref:           msg.ThreadRef(),
		CustomerName:  msg.Sender.Name,
	}
	if o.drafts.Enqueue(job) {
		log.Debug("Draft reply queued")
	}
}

func (o *Orchestrator) countLLM(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.metrics.LLMCalls.WithLabelValues(op, result).Inc()
}

// messageText is what the model sees: the subject followed by the body
func messageText(msg *model.NormalizedMessage) string {
	if msg.Subject == "" {
		return msg.Content
	}
	return "Subject: " + msg.Subject + "\n\n" + msg.Content
}
