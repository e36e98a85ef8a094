package connector

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"feedback-relay-go/internal/model"
)

// BuildReply composes an RFC 5322 plain-text reply to the referenced message
func BuildReply(from string, ref model.ThreadRef, body string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(replySubject(ref.Subject))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.SetAddressList("To", []*mail.Address{{Name: ref.RecipientName, Address: ref.RecipientEmail}})
	if from != "" {
		h.SetAddressList("From", []*mail.Address{{Address: from}})
	}
	if ref.HeaderMessageID != "" {
		h.Set("In-Reply-To", ref.HeaderMessageID)
		h.Set("References", ref.HeaderMessageID)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}

func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "Re: your feedback"
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
