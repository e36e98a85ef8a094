package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback-relay-go/internal/model"
)

func TestParseSender(t *testing.T) {
	s := ParseSender(`"Jane Doe" <jane@example.com>`)
	assert.Equal(t, "jane@example.com", s.Email)
	require.NotNil(t, s.Name)
	assert.Equal(t, "Jane Doe", *s.Name)

	s = ParseSender("Bob<bob@example.com>")
	assert.Equal(t, "bob@example.com", s.Email)
	require.NotNil(t, s.Name)
	assert.Equal(t, "Bob", *s.Name)

	s = ParseSender(" plain@example.com ")
	assert.Equal(t, "plain@example.com", s.Email)
	assert.Nil(t, s.Name)
}

func TestMailboxPrefersPlainText(t *testing.T) {
	date := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := Mailbox(model.ChannelGmail, MailboxMessage{
		ID:       "abc123",
		ThreadID: "t1",
		From:     "Jane <jane@example.com>",
		Subject:  " Please add dark mode ",
		TextBody: "Would love dark mode support\n",
		HTMLBody: "<p>ignored</p>",
		Date:     date,
	})

	assert.Equal(t, model.ChannelGmail, msg.Source)
	assert.Equal(t, "abc123", msg.SourceID)
	require.NotNil(t, msg.SourceThreadID)
	assert.Equal(t, "t1", *msg.SourceThreadID)
	assert.Equal(t, "Please add dark mode", msg.Subject)
	assert.Equal(t, "Would love dark mode support", msg.Content)
	assert.Equal(t, date, msg.ReceivedAt)
}

func TestMailboxFallsBackToStrippedHTML(t *testing.T) {
	msg := Mailbox(model.ChannelIMAP, MailboxMessage{
		ID:       "1",
		From:     "x@example.com",
		HTMLBody: "<div>Need <b>export</b> to CSV</div><script>x()</script>",
	})
	assert.Equal(t, "Need export to CSV", msg.Content)
	assert.Nil(t, msg.SourceThreadID)
	assert.False(t, msg.ReceivedAt.IsZero())

	msg = Mailbox(model.ChannelGmail, MailboxMessage{ID: "2", Snippet: "snippet &amp; more"})
	assert.Equal(t, "snippet & more", msg.Content)
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Ann Lee", *FullName("Ann", "Lee"))
	assert.Equal(t, "Ann", *FullName("Ann", " "))
	assert.Equal(t, "Lee", *FullName("", "Lee"))
	assert.Nil(t, FullName("", ""))
}

func TestSupportDesk(t *testing.T) {
	msg := SupportDesk(SupportConversation{
		ID:                "123",
		Subject:           "Feature idea",
		Preview:           "preview text",
		CustomerEmail:     "c@example.com",
		CustomerFirstName: "Cara",
		Threads: []SupportThread{
			{Type: "note", Body: "internal"},
			{Type: "customer", Body: "<p>Add SSO please</p>"},
			{Type: "customer", Body: "second"},
		},
	})
	assert.Equal(t, model.ChannelHelpScout, msg.Source)
	assert.Equal(t, "Add SSO please", msg.Content)
	require.NotNil(t, msg.Sender.Name)
	assert.Equal(t, "Cara", *msg.Sender.Name)

	msg = SupportDesk(SupportConversation{ID: "124", Preview: "only preview"})
	assert.Equal(t, "only preview", msg.Content)
	assert.Nil(t, msg.Sender.Name)
}
