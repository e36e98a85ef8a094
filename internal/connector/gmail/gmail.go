// Package gmail adapts the Gmail API to the connector interface.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"feedback-relay-go/config"
	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/model"
	"feedback-relay-go/internal/normalizer"
)

const (
	userID     = "me"
	labelInbox = "INBOX"
	labelSpam  = "SPAM"
	labelTrash = "TRASH"

	maxHistoryPages = 20
)

// Scopes requested for mailbox connections
var Scopes = []string{gmailapi.GmailReadonlyScope, gmailapi.GmailComposeScope}

// Adapter implements connector.Connector for one Gmail mailbox
type Adapter struct {
	service *gmailapi.Service
	account string
	topic   string
}

var (
	_ connector.Connector    = (*Adapter)(nil)
	_ connector.DraftCreator = (*Adapter)(nil)
	_ connector.Watcher      = (*Adapter)(nil)
)

// Builder returns a registry builder that authenticates with the connection's tokens
func Builder(cfg config.GmailConfig) connector.Builder {
	return func(ctx context.Context, conn *model.Connection) (connector.Connector, error) {
		return New(ctx, cfg, conn)
	}
}

// New creates an adapter using the OAuth tokens stored on conn.
// The token source refreshes expired access tokens on demand.
func New(ctx context.Context, cfg config.GmailConfig, conn *model.Connection) (*Adapter, error) {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
	}
	if conn.TokenExpiry != nil {
		token.Expiry = *conn.TokenExpiry
	}

	service, err := gmailapi.NewService(ctx, option.WithTokenSource(oauth2Config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return NewWithService(service, conn.AccountIdentifier, cfg.PubSubTopic), nil
}

// NewWithService wraps an existing Gmail service
func NewWithService(service *gmailapi.Service, account, topic string) *Adapter {
	return &Adapter{service: service, account: account, topic: topic}
}

func (a *Adapter) Channel() model.Channel {
	return model.ChannelGmail
}

// CurrentPosition returns the mailbox's latest history id
func (a *Adapter) CurrentPosition(ctx context.Context) (string, error) {
	profile, err := a.service.Users.GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return "", a.wrap("users.getProfile", err)
	}
	return strconv.FormatUint(profile.HistoryId, 10), nil
}

// ListChangedMessageIDs walks the history since cursor and returns inbox additions
func (a *Adapter) ListChangedMessageIDs(ctx context.Context, cursor string) ([]string, error) {
	start, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		return nil, connector.ErrCursorExpired
	}

	seen := make(map[string]bool)
	var ids []string
	pageToken := ""

	for page := 0; page < maxHistoryPages; page++ {
		call := a.service.Users.History.List(userID).
			StartHistoryId(start).
			HistoryTypes("messageAdded").
			LabelId(labelInbox).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
				return nil, connector.ErrCursorExpired
			}
			return nil, a.wrap("users.history.list", err)
		}

		for _, h := range resp.History {
			for _, added := range h.MessagesAdded {
				if added.Message == nil || seen[added.Message.Id] {
					continue
				}
				if !isInbound(added.Message.LabelIds) {
					continue
				}
				seen[added.Message.Id] = true
				ids = append(ids, added.Message.Id)
			}
		}

		if resp.NextPageToken == "" {
			return ids, nil
		}
		pageToken = resp.NextPageToken
	}

	logrus.WithField("account", a.account).Warn("Gmail history truncated after page limit")
	return ids, nil
}

// FetchMessage loads one message in full format
func (a *Adapter) FetchMessage(ctx context.Context, id string) (*model.NormalizedMessage, error) {
	msg, err := a.service.Users.Messages.Get(userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, a.wrap("users.messages.get", err)
	}
	if hasLabel(msg.LabelIds, labelSpam) || hasLabel(msg.LabelIds, labelTrash) {
		return nil, connector.ErrFiltered
	}

	normalized := normalizer.Mailbox(model.ChannelGmail, toMailboxMessage(msg))
	return &normalized, nil
}

// FetchRecentMessages returns up to limit of the newest inbox messages
func (a *Adapter) FetchRecentMessages(ctx context.Context, limit int) ([]model.NormalizedMessage, error) {
	resp, err := a.service.Users.Messages.List(userID).LabelIds(labelInbox).MaxResults(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, a.wrap("users.messages.list", err)
	}

	var out []model.NormalizedMessage
	for _, ref := range resp.Messages {
		msg, err := a.FetchMessage(ctx, ref.Id)
		if err != nil {
			if errors.Is(err, connector.ErrFiltered) {
				continue
			}
			return nil, err
		}
		out = append(out, *msg)
	}
	return out, nil
}

// CreateDraftReply stores an unsent reply in the original thread
func (a *Adapter) CreateDraftReply(ctx context.Context, ref model.ThreadRef, body string) (bool, error) {
	raw, err := connector.BuildReply(a.account, ref, body)
	if err != nil {
		return false, err
	}

	draft := &gmailapi.Draft{
		Message: &gmailapi.Message{
			Raw:      base64.URLEncoding.EncodeToString(raw),
			ThreadId: ref.ThreadID,
		},
	}
	if _, err := a.service.Users.Drafts.Create(userID, draft).Context(ctx).Do(); err != nil {
		return false, a.wrap("users.drafts.create", err)
	}
	return true, nil
}

// Watch subscribes the inbox to the configured Pub/Sub topic
func (a *Adapter) Watch(ctx context.Context) (*connector.WatchResult, error) {
	if a.topic == "" {
		return nil, connector.NewError(model.ChannelGmail, "users.watch", connector.KindInvalid, errors.New("pubsub topic not configured"))
	}

	resp, err := a.service.Users.Watch(userID, &gmailapi.WatchRequest{
		TopicName: a.topic,
		LabelIds:  []string{labelInbox},
	}).Context(ctx).Do()
	if err != nil {
		return nil, a.wrap("users.watch", err)
	}

	return &connector.WatchResult{
		Position:   strconv.FormatUint(resp.HistoryId, 10),
		Expiration: time.UnixMilli(resp.Expiration),
	}, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) wrap(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return connector.NewError(model.ChannelGmail, op, connector.KindForStatus(apiErr.Code), err)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return connector.NewError(model.ChannelGmail, op, connector.KindAuth, err)
	}
	return connector.NewError(model.ChannelGmail, op, connector.KindNetwork, err)
}

func isInbound(labels []string) bool {
	return hasLabel(labels, labelInbox) && !hasLabel(labels, labelSpam) && !hasLabel(labels, labelTrash)
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

func toMailboxMessage(msg *gmailapi.Message) normalizer.MailboxMessage {
	m := normalizer.MailboxMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}
	if msg.InternalDate > 0 {
		m.Date = time.UnixMilli(msg.InternalDate)
	}
	if msg.Payload == nil {
		return m
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			m.From = h.Value
		case "subject":
			m.Subject = h.Value
		case "message-id":
			m.HeaderMessageID = h.Value
		}
	}

	collectBodies(msg.Payload, &m)
	return m
}

// collectBodies keeps the first text/plain and text/html parts found depth-first
func collectBodies(part *gmailapi.MessagePart, m *normalizer.MailboxMessage) {
	if part.Body != nil && part.Body.Data != "" {
		if data, err := decodeBody(part.Body.Data); err == nil {
			switch part.MimeType {
			case "text/plain":
				if m.TextBody == "" {
					m.TextBody = data
				}
			case "text/html":
				if m.HTMLBody == "" {
					m.HTMLBody = data
				}
			}
		} else {
			logrus.Warnf("Failed to decode Gmail body part: %v", err)
		}
	}

	for _, sub := range part.Parts {
		collectBodies(sub, m)
	}
}

func decodeBody(data string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode body data: %w", err)
		}
	}
	return string(b), nil
}
