package helpscout

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"feedback-relay-go/config"
	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/model"
	"feedback-relay-go/internal/normalizer"
)

const (
	statusSpam = "spam"

	// cursors are our clock, not the provider's
	clockSkew    = time.Minute
	maxListPages = 10
	listPageSize = 50
)

// Adapter implements connector.Connector for one Help Scout mailbox
type Adapter struct {
	client    *Client
	mailboxID string
}

var (
	_ connector.Connector    = (*Adapter)(nil)
	_ connector.DraftCreator = (*Adapter)(nil)
)

// Builder returns a registry builder sharing one rate limiter across connections
func Builder(cfg config.HelpScoutConfig) connector.Builder {
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 5)
	}
	return func(ctx context.Context, conn *model.Connection) (connector.Connector, error) {
		return New(NewClient(cfg.BaseURL, httpClient(ctx, cfg, conn), limiter), conn.AccountIdentifier), nil
	}
}

// httpClient authenticates with the connection's refresh token when it has one,
// and with the app's client credentials otherwise.
func httpClient(ctx context.Context, cfg config.HelpScoutConfig, conn *model.Connection) *http.Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tokenURL := baseURL + "/oauth2/token"

	if conn.RefreshToken != "" {
		oc := &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		}
		token := &oauth2.Token{AccessToken: conn.AccessToken, RefreshToken: conn.RefreshToken}
		if conn.TokenExpiry != nil {
			token.Expiry = *conn.TokenExpiry
		}
		return oc.Client(ctx, token)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.AppID,
		ClientSecret: cfg.AppSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return cc.Client(ctx)
}

// New wraps a client; mailboxID scopes listings and may be empty
func New(client *Client, mailboxID string) *Adapter {
	return &Adapter{client: client, mailboxID: mailboxID}
}

func (a *Adapter) Channel() model.Channel {
	return model.ChannelHelpScout
}

// CurrentPosition returns an RFC3339 modifiedSince marker
func (a *Adapter) CurrentPosition(ctx context.Context) (string, error) {
	return time.Now().Add(-clockSkew).UTC().Format(time.RFC3339), nil
}

// ListChangedMessageIDs lists conversations modified since cursor
func (a *Adapter) ListChangedMessageIDs(ctx context.Context, cursor string) ([]string, error) {
	since, err := time.Parse(time.RFC3339, cursor)
	if err != nil {
		return nil, connector.ErrCursorExpired
	}

	var ids []string
	seen := make(map[int64]bool)
	for page := 1; page <= maxListPages; page++ {
		convs, totalPages, err := a.client.ListConversations(ctx, ListOptions{
			MailboxID:     a.mailboxID,
			ModifiedSince: since,
			PageSize:      listPageSize,
			Page:          page,
		})
		if err != nil {
			return nil, err
		}
		for _, c := range convs {
			if c.Status == statusSpam || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			ids = append(ids, strconv.FormatInt(c.ID, 10))
		}
		if page >= totalPages {
			return ids, nil
		}
	}

	logrus.WithField("mailbox", a.mailboxID).Warn("Help Scout listing truncated after page limit")
	return ids, nil
}

// FetchMessage loads a conversation and normalizes it
func (a *Adapter) FetchMessage(ctx context.Context, id string) (*model.NormalizedMessage, error) {
	conv, err := a.client.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.Status == statusSpam {
		return nil, connector.ErrFiltered
	}
	msg := normalizer.SupportDesk(toSupportConversation(conv))
	return &msg, nil
}

// FetchRecentMessages returns the newest conversations
func (a *Adapter) FetchRecentMessages(ctx context.Context, limit int) ([]model.NormalizedMessage, error) {
	convs, _, err := a.client.ListConversations(ctx, ListOptions{
		MailboxID: a.mailboxID,
		PageSize:  limit,
		Newest:    true,
	})
	if err != nil {
		return nil, err
	}

	var out []model.NormalizedMessage
	for _, c := range convs {
		if len(out) >= limit {
			break
		}
		msg, err := a.FetchMessage(ctx, strconv.FormatInt(c.ID, 10))
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

// CreateDraftReply stores a draft reply on the conversation
func (a *Adapter) CreateDraftReply(ctx context.Context, ref model.ThreadRef, body string) (bool, error) {
	if err := a.client.CreateDraftReply(ctx, ref.MessageID, ref.RecipientEmail, body); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Adapter) Close() error {
	return nil
}

func toSupportConversation(c *Conversation) normalizer.SupportConversation {
	sc := normalizer.SupportConversation{
		ID:                strconv.FormatInt(c.ID, 10),
		Subject:           c.Subject,
		Preview:           c.Preview,
		CustomerEmail:     c.PrimaryCustomer.Email,
		CustomerFirstName: c.PrimaryCustomer.First,
		CustomerLastName:  c.PrimaryCustomer.Last,
		CreatedAt:         c.CreatedAt,
	}
	for _, t := range c.Embedded.Threads {
		sc.Threads = append(sc.Threads, normalizer.SupportThread{Type: t.Type, Body: t.Body})
	}
	return sc
}
