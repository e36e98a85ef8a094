// Package normalizer maps channel payloads onto model.NormalizedMessage.
package normalizer

import (
	"regexp"
	"strings"
	"time"

	"feedback-relay-go/internal/htmltext"
	"feedback-relay-go/internal/model"
)

var senderRe = regexp.MustCompile(`^(.+?)\s*<(.+)>$`)

// MailboxMessage is the provider-neutral shape of one mailbox message
type MailboxMessage struct {
	ID              string
	ThreadID        string
	From            string
	Subject         string
	TextBody        string
	HTMLBody        string
	Snippet         string
	Date            time.Time
	HeaderMessageID string
}

// SupportConversation is the provider-neutral shape of one support-desk conversation
type SupportConversation struct {
	ID                string
	Subject           string
	Preview           string
	CustomerEmail     string
	CustomerFirstName string
	CustomerLastName  string
	Threads           []SupportThread
	CreatedAt         time.Time
}

// SupportThread is one entry of a conversation
type SupportThread struct {
	Type string
	Body string
}

// ParseSender splits a "Display Name <email>" header value
func ParseSender(from string) model.Sender {
	from = strings.TrimSpace(from)
	m := senderRe.FindStringSubmatch(from)
	if m == nil {
		return model.Sender{Email: from}
	}

	sender := model.Sender{Email: strings.TrimSpace(m[2])}
	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), `"'`))
	if name != "" {
		sender.Name = &name
	}
	return sender
}

// Mailbox normalizes a mailbox message for the given source channel
func Mailbox(source model.Channel, m MailboxMessage) model.NormalizedMessage {
	msg := model.NormalizedMessage{
		Source:          source,
		SourceID:        m.ID,
		Sender:          ParseSender(m.From),
		Subject:         strings.TrimSpace(m.Subject),
		Content:         mailboxContent(m),
		ReceivedAt:      m.Date,
		HeaderMessageID: m.HeaderMessageID,
	}
	if m.ThreadID != "" {
		thread := m.ThreadID
		msg.SourceThreadID = &thread
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	return msg
}

func mailboxContent(m MailboxMessage) string {
	if text := strings.TrimSpace(m.TextBody); text != "" {
		return text
	}
	if m.HTMLBody != "" {
		if text := htmltext.Strip(m.HTMLBody); text != "" {
			return text
		}
	}
	return htmltext.Strip(m.Snippet)
}

// SupportDesk normalizes a support-desk conversation
func SupportDesk(c SupportConversation) model.NormalizedMessage {
	msg := model.NormalizedMessage{
		Source:     model.ChannelHelpScout,
		SourceID:   c.ID,
		Sender:     model.Sender{Email: strings.TrimSpace(c.CustomerEmail), Name: FullName(c.CustomerFirstName, c.CustomerLastName)},
		Subject:    strings.TrimSpace(c.Subject),
		Content:    conversationContent(c),
		ReceivedAt: c.CreatedAt,
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	return msg
}

// FullName joins name parts with a space, or returns nil when both are empty
func FullName(first, last string) *string {
	var parts []string
	for _, p := range []string{first, last} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	name := strings.Join(parts, " ")
	return &name
}

func conversationContent(c SupportConversation) string {
	for _, t := range c.Threads {
		if t.Type == "customer" {
			if text := htmltext.Strip(t.Body); text != "" {
				return text
			}
		}
	}
	return htmltext.Strip(c.Preview)
}
