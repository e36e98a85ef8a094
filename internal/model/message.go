package model

import "time"

// Sender identifies who wrote an inbound message
type Sender struct {
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

// NormalizedMessage is the channel-independent shape every pipeline stage consumes
type NormalizedMessage struct {
	Source          Channel   `json:"source"`
	SourceID        string    `json:"source_id"`
	SourceThreadID  *string   `json:"source_thread_id,omitempty"`
	Sender          Sender    `json:"sender"`
	Subject         string    `json:"subject"`
	Content         string    `json:"content"`
	ReceivedAt      time.Time `json:"received_at"`
	HeaderMessageID string    `json:"header_message_id,omitempty"`
}

// ThreadRef carries what an adapter needs to place a draft reply
type ThreadRef struct {
	MessageID       string
	ThreadID        string
	HeaderMessageID string
	RecipientEmail  string
	RecipientName   string
	Subject         string
}

// ThreadRef builds the reply reference for this message
func (m *NormalizedMessage) ThreadRef() ThreadRef {
	ref := ThreadRef{
		MessageID:       m.SourceID,
		HeaderMessageID: m.HeaderMessageID,
		RecipientEmail:  m.Sender.Email,
		Subject:         m.Subject,
	}
	if m.SourceThreadID != nil {
		ref.ThreadID = *m.SourceThreadID
	}
	if m.Sender.Name != nil {
		ref.RecipientName = *m.Sender.Name
	}
	return ref
}

// ExtractedRequest is the structured result of feature-request extraction
type ExtractedRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Sentiment   Sentiment `json:"sentiment"`
}
