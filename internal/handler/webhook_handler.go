package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"feedback-relay-go/internal/connector/helpscout"
	"feedback-relay-go/internal/service/pipeline"
)

const maxWebhookBody = 1 << 20

// GmailWebhook receives Pub/Sub push notifications for watched mailboxes.
// It always acknowledges so Pub/Sub does not redeliver.
func (h *Handlers) GmailWebhook(c *gin.Context) {
	ack := func() { c.JSON(http.StatusOK, gin.H{"received": true}) }

	var push PubSubPush
	if err := c.ShouldBindJSON(&push); err != nil {
		logrus.WithError(err).Warn("Malformed Pub/Sub push envelope")
		ack()
		return
	}

	note, err := decodeMailboxNotification(push.Message.Data)
	if err != nil {
		logrus.WithError(err).Warn("Malformed Gmail notification payload")
		ack()
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"email":      note.EmailAddress,
		"history_id": string(note.HistoryID),
	})

	result, err := h.syncer.HandleMailboxPush(c.Request.Context(), note.EmailAddress, string(note.HistoryID))
	switch {
	case errors.Is(err, pipeline.ErrNoActiveConnection):
		log.Warn("Push notification for unknown or inactive mailbox")
	case errors.Is(err, pipeline.ErrSyncInProgress):
		log.Debug("Sync in progress, push notification skipped")
	case err != nil:
		log.WithError(err).Error("Failed to process push notification")
	default:
		log.WithField("processed", result.Processed).Info("Processed push notification")
	}
	ack()
}

func decodeMailboxNotification(data string) (*MailboxNotification, error) {
	if data == "" {
		return nil, errors.New("empty message data")
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		if raw, err = base64.URLEncoding.DecodeString(data); err != nil {
			return nil, err
		}
	}
	var note MailboxNotification
	if err := json.Unmarshal(raw, &note); err != nil {
		return nil, err
	}
	if note.EmailAddress == "" || note.HistoryID == "" {
		return nil, errors.New("missing emailAddress or historyId")
	}
	return &note, nil
}

// HelpScoutWebhook receives conversation events. Only a bad signature is
// rejected; everything else is acknowledged.
func (h *Handlers) HelpScoutWebhook(c *gin.Context) {
	ack := func() { c.JSON(http.StatusOK, gin.H{"received": true}) }

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logrus.WithError(err).Warn("Failed to read Help Scout webhook body")
		ack()
		return
	}

	var event helpscout.WebhookEvent
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&event); err != nil {
		logrus.WithError(err).Warn("Malformed Help Scout webhook payload")
		ack()
		return
	}

	mailboxID := ""
	if event.MailboxID != 0 {
		mailboxID = strconv.FormatInt(event.MailboxID, 10)
	}

	ctx := c.Request.Context()
	conn, err := h.syncer.ResolveSupportDeskConnection(ctx, mailboxID)
	if err != nil {
		// without a connection there is no secret to check against but the global one
		if !helpscout.VerifySignature(body, c.GetHeader(helpscout.SignatureHeader), h.webhookSecret) {
			writeError(c, http.StatusUnauthorized, "invalid_signature", "Invalid webhook signature")
			return
		}
		logrus.WithField("mailbox_id", mailboxID).WithError(err).Warn("No Help Scout connection for webhook")
		ack()
		return
	}

	secret := conn.WebhookSecret
	if secret == "" {
		secret = h.webhookSecret
	}
	if !helpscout.VerifySignature(body, c.GetHeader(helpscout.SignatureHeader), secret) {
		logrus.WithField("connection_id", conn.ID).Warn("Help Scout webhook signature mismatch")
		writeError(c, http.StatusUnauthorized, "invalid_signature", "Invalid webhook signature")
		return
	}

	eventType := c.GetHeader(helpscout.EventHeader)
	log := logrus.WithFields(logrus.Fields{
		"connection_id":   conn.ID,
		"event":           eventType,
		"conversation_id": event.ID,
	})
	if !helpscout.ProcessedEvents[eventType] {
		log.Debug("Ignoring Help Scout event")
		ack()
		return
	}
	if event.ID == 0 {
		log.Warn("Help Scout event without conversation id")
		ack()
		return
	}

	result, err := h.syncer.HandleSupportDeskEvent(ctx, conn, strconv.FormatInt(event.ID, 10))
	switch {
	case errors.Is(err, pipeline.ErrSyncInProgress):
		log.Debug("Sync in progress, webhook skipped")
	case err != nil:
		log.WithError(err).Error("Failed to process Help Scout event")
	default:
		log.WithField("status", result.Status).Info("Processed Help Scout event")
	}
	ack()
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
