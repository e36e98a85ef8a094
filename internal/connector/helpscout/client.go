// Package helpscout adapts the Help Scout Mailbox API v2 to the connector interface.
package helpscout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/model"
)

const DefaultBaseURL = "https://api.helpscout.net/v2"

// Customer is the conversation's primary customer
type Customer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	First string `json:"first"`
	Last  string `json:"last"`
}

// Thread is one entry of a conversation
type Thread struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is the subset of the conversation resource the pipeline reads
type Conversation struct {
	ID              int64     `json:"id"`
	Number          int64     `json:"number"`
	Subject         string    `json:"subject"`
	Preview         string    `json:"preview"`
	Status          string    `json:"status"`
	MailboxID       int64     `json:"mailboxId"`
	CreatedAt       time.Time `json:"createdAt"`
	PrimaryCustomer Customer  `json:"primaryCustomer"`
	Embedded        struct {
		Threads []Thread `json:"threads"`
	} `json:"_embedded"`
}

type conversationPage struct {
	Embedded struct {
		Conversations []Conversation `json:"conversations"`
	} `json:"_embedded"`
	Page struct {
		Size          int `json:"size"`
		TotalElements int `json:"totalElements"`
		TotalPages    int `json:"totalPages"`
		Number        int `json:"number"`
	} `json:"page"`
}

// ListOptions filters a conversation listing
type ListOptions struct {
	MailboxID     string
	ModifiedSince time.Time
	PageSize      int
	Page          int
	Newest        bool
}

// Client is a minimal Help Scout REST client.
// Authentication is carried by the supplied http.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client. A nil limiter disables client-side throttling.
func NewClient(baseURL string, httpClient *http.Client, limiter *rate.Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// GetConversation fetches a conversation with its threads embedded
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	path := "/conversations/" + url.PathEscape(id) + "?embed=threads"
	if err := c.do(ctx, "conversations.get", http.MethodGet, path, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns one page of conversations
func (c *Client) ListConversations(ctx context.Context, opts ListOptions) ([]Conversation, int, error) {
	q := url.Values{}
	q.Set("status", "all")
	if opts.MailboxID != "" {
		q.Set("mailbox", opts.MailboxID)
	}
	if !opts.ModifiedSince.IsZero() {
		q.Set("modifiedSince", opts.ModifiedSince.UTC().Format(time.RFC3339))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Newest {
		q.Set("sortField", "createdAt")
		q.Set("sortOrder", "desc")
	}

	var page conversationPage
	if err := c.do(ctx, "conversations.list", http.MethodGet, "/conversations?"+q.Encode(), nil, &page); err != nil {
		return nil, 0, err
	}
	return page.Embedded.Conversations, page.Page.TotalPages, nil
}

// CreateDraftReply adds an unsent reply thread to a conversation
func (c *Client) CreateDraftReply(ctx context.Context, conversationID, customerEmail, text string) error {
	payload := map[string]interface{}{
		"customer": map[string]string{"email": customerEmail},
		"text":     text,
		"draft":    true,
	}
	path := "/conversations/" + url.PathEscape(conversationID) + "/reply"
	return c.do(ctx, "conversations.reply", http.MethodPost, path, payload, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return connector.NewError(model.ChannelHelpScout, op, connector.KindRateLimit, err)
		}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return connector.NewError(model.ChannelHelpScout, op, connector.KindInvalid, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return connector.NewError(model.ChannelHelpScout, op, connector.KindInvalid, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return connector.NewError(model.ChannelHelpScout, op, connector.KindAuth, err)
		}
		return connector.NewError(model.ChannelHelpScout, op, connector.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return connector.NewError(model.ChannelHelpScout, op, connector.KindForStatus(resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return connector.NewError(model.ChannelHelpScout, op, connector.KindInvalid, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
