package handler

import (
	"time"

	"feedback-relay-go/internal/model"
)

// ProductRequest is the body for creating a product
type ProductRequest struct {
	Name              string `json:"name" binding:"required"`
	AutoDraftsEnabled bool   `json:"auto_drafts_enabled"`
}

// ConnectionRequest is the body for registering a source connection
type ConnectionRequest struct {
	ProductID         string        `json:"product_id" binding:"required"`
	Channel           model.Channel `json:"channel" binding:"required"`
	AccountIdentifier string        `json:"account_identifier" binding:"required"`
	AccessToken       string        `json:"access_token"`
	RefreshToken      string        `json:"refresh_token"`
	TokenExpiry       *time.Time    `json:"token_expiry"`
	WebhookSecret     string        `json:"webhook_secret"`
	Active            *bool         `json:"active"`
}

// FeedbackRequest is the body for recording feedback by hand
type FeedbackRequest struct {
	ProductID        string          `json:"product_id" binding:"required"`
	FeatureRequestID *string         `json:"feature_request_id"`
	Content          string          `json:"content" binding:"required"`
	Sentiment        model.Sentiment `json:"sentiment"`
	SenderEmail      *string         `json:"sender_email"`
	SenderName       *string         `json:"sender_name"`
}

// RelinkRequest moves feedback to another request; a null id unlinks it
type RelinkRequest struct {
	FeatureRequestID *string `json:"feature_request_id"`
}

// PubSubPush is the envelope Pub/Sub posts to push endpoints
type PubSubPush struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// MailboxNotification is the decoded Pub/Sub data for a Gmail mailbox change
type MailboxNotification struct {
	EmailAddress string     `json:"emailAddress"`
	HistoryID    flexString `json:"historyId"`
}

// Pagination describes a page of results
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Metrics   map[string]string `json:"metrics,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
