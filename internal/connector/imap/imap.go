// Package imap adapts a generic IMAP mailbox to the connector interface.
package imap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/sirupsen/logrus"

	"feedback-relay-go/config"
	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/model"
	"feedback-relay-go/internal/normalizer"
)

const inbox = "INBOX"

// Session is the subset of the go-imap client used by the adapter
type Session interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Append(mbox string, flags []string, date time.Time, msg imap.Literal) error
	Logout() error
}

// Dialer opens an authenticated session
type Dialer func() (Session, error)

// Adapter implements connector.Connector over IMAP. Message ids have the form
// "<account>/<uidvalidity>/<uid>" and cursors "<uidvalidity>:<uid>".
type Adapter struct {
	account string
	drafts  string
	dial    Dialer

	mu      sync.Mutex
	session Session
}

var (
	_ connector.Connector    = (*Adapter)(nil)
	_ connector.DraftCreator = (*Adapter)(nil)
)

// Builder returns a registry builder. The connection's access token holds the
// IMAP password (usually an app password).
func Builder(cfg config.IMAPConfig) connector.Builder {
	return func(ctx context.Context, conn *model.Connection) (connector.Connector, error) {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		dial := func() (Session, error) {
			c, err := client.DialTLS(addr, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
			}
			if err := c.Login(conn.AccountIdentifier, conn.AccessToken); err != nil {
				c.Logout()
				return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
			}
			return c, nil
		}
		return New(conn.AccountIdentifier, cfg.DraftsMailbox, dial), nil
	}
}

// New creates an adapter that dials lazily on first use
func New(account, draftsMailbox string, dial Dialer) *Adapter {
	if draftsMailbox == "" {
		draftsMailbox = "Drafts"
	}
	return &Adapter{account: account, drafts: draftsMailbox, dial: dial}
}

func (a *Adapter) Channel() model.Channel {
	return model.ChannelIMAP
}

func (a *Adapter) conn(op string) (Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	s, err := a.dial()
	if err != nil {
		return nil, a.wrap(op, connector.KindNetwork, err)
	}
	a.session = s
	return s, nil
}

func (a *Adapter) selectInbox(op string) (Session, *imap.MailboxStatus, error) {
	s, err := a.conn(op)
	if err != nil {
		return nil, nil, err
	}
	status, err := s.Select(inbox, true)
	if err != nil {
		return nil, nil, a.wrap(op, connector.KindUnavailable, fmt.Errorf("failed to select INBOX: %w", err))
	}
	return s, status, nil
}

// CurrentPosition returns "<uidvalidity>:<highest uid>"
func (a *Adapter) CurrentPosition(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, status, err := a.selectInbox("select")
	if err != nil {
		return "", err
	}
	last := uint32(0)
	if status.UidNext > 0 {
		last = status.UidNext - 1
	}
	return formatCursor(status.UidValidity, last), nil
}

// ListChangedMessageIDs returns inbox UIDs above the cursor's UID
func (a *Adapter) ListChangedMessageIDs(ctx context.Context, cursor string) ([]string, error) {
	validity, lastUID, err := parseCursor(cursor)
	if err != nil {
		return nil, connector.ErrCursorExpired
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, status, err := a.selectInbox("search")
	if err != nil {
		return nil, err
	}
	if status.UidValidity != validity {
		return nil, connector.ErrCursorExpired
	}

	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddRange(lastUID+1, 0)
	criteria.WithoutFlags = []string{imap.DeletedFlag}

	uids, err := s.UidSearch(criteria)
	if err != nil {
		return nil, a.wrap("search", connector.KindUnavailable, err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	var ids []string
	for _, uid := range uids {
		// "n:*" always matches the highest message even when it is below n
		if uid <= lastUID {
			continue
		}
		ids = append(ids, a.messageID(validity, uid))
	}
	return ids, nil
}

// FetchMessage downloads and parses one message
func (a *Adapter) FetchMessage(ctx context.Context, id string) (*model.NormalizedMessage, error) {
	validity, uid, err := a.parseMessageID(id)
	if err != nil {
		return nil, a.wrap("fetch", connector.KindInvalid, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, status, err := a.selectInbox("fetch")
	if err != nil {
		return nil, err
	}
	if status.UidValidity != validity {
		return nil, a.wrap("fetch", connector.KindNotFound, fmt.Errorf("uidvalidity changed"))
	}

	section := &imap.BodySectionName{Peek: true}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.UidFetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, section.FetchItem()}, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}
	if err := <-done; err != nil {
		return nil, a.wrap("fetch", connector.KindUnavailable, err)
	}
	if msg == nil {
		return nil, a.wrap("fetch", connector.KindNotFound, fmt.Errorf("message %s not found", id))
	}
	for _, f := range msg.Flags {
		if f == imap.DeletedFlag {
			return nil, connector.ErrFiltered
		}
	}

	mm, err := parseMessage(msg, section)
	if err != nil {
		return nil, a.wrap("fetch", connector.KindInvalid, err)
	}
	mm.ID = id

	normalized := normalizer.Mailbox(model.ChannelIMAP, mm)
	return &normalized, nil
}

// FetchRecentMessages returns the newest limit inbox messages
func (a *Adapter) FetchRecentMessages(ctx context.Context, limit int) ([]model.NormalizedMessage, error) {
	a.mu.Lock()
	s, status, err := a.selectInbox("search")
	if err != nil {
		a.mu.Unlock()
		return nil, err
	}
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.DeletedFlag}
	uids, err := s.UidSearch(criteria)
	a.mu.Unlock()
	if err != nil {
		return nil, a.wrap("search", connector.KindUnavailable, err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	if len(uids) > limit {
		uids = uids[:limit]
	}

	var out []model.NormalizedMessage
	for _, uid := range uids {
		msg, err := a.FetchMessage(ctx, a.messageID(status.UidValidity, uid))
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

// CreateDraftReply appends a \Draft message to the drafts mailbox
func (a *Adapter) CreateDraftReply(ctx context.Context, ref model.ThreadRef, body string) (bool, error) {
	raw, err := connector.BuildReply(a.account, ref, body)
	if err != nil {
		return false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.conn("append")
	if err != nil {
		return false, err
	}
	if err := s.Append(a.drafts, []string{imap.DraftFlag}, time.Now(), bytes.NewBuffer(raw)); err != nil {
		return false, a.wrap("append", connector.KindUnavailable, err)
	}
	return true, nil
}

// Close logs out of the session if one was opened
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return nil
	}
	err := a.session.Logout()
	a.session = nil
	return err
}

func (a *Adapter) wrap(op string, kind connector.Kind, err error) error {
	return connector.NewError(model.ChannelIMAP, op, kind, err)
}

func (a *Adapter) messageID(validity, uid uint32) string {
	return fmt.Sprintf("%s/%d/%d", a.account, validity, uid)
}

func (a *Adapter) parseMessageID(id string) (uint32, uint32, error) {
	rest, ok := strings.CutPrefix(id, a.account+"/")
	if !ok {
		return 0, 0, fmt.Errorf("message id %q does not belong to %s", id, a.account)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed message id %q", id)
	}
	validity, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed message id %q", id)
	}
	uid, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed message id %q", id)
	}
	return uint32(validity), uint32(uid), nil
}

func formatCursor(validity, uid uint32) string {
	return fmt.Sprintf("%d:%d", validity, uid)
}

func parseCursor(cursor string) (uint32, uint32, error) {
	v, u, ok := strings.Cut(cursor, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed cursor %q", cursor)
	}
	validity, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cursor %q", cursor)
	}
	uid, err := strconv.ParseUint(u, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cursor %q", cursor)
	}
	return uint32(validity), uint32(uid), nil
}

func parseMessage(msg *imap.Message, section *imap.BodySectionName) (normalizer.MailboxMessage, error) {
	var mm normalizer.MailboxMessage

	if env := msg.Envelope; env != nil {
		mm.Subject = env.Subject
		mm.Date = env.Date
		mm.HeaderMessageID = env.MessageId
		if len(env.From) > 0 {
			from := env.From[0]
			if from.PersonalName != "" {
				mm.From = fmt.Sprintf("%s <%s>", from.PersonalName, from.Address())
			} else {
				mm.From = from.Address()
			}
		}
	}

	r := msg.GetBody(section)
	if r == nil {
		return mm, nil
	}

	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return mm, fmt.Errorf("failed to read message: %w", err)
	}

	err = entity.Walk(func(path []int, part *message.Entity, err error) error {
		if err != nil {
			return err
		}
		mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if mediaType == "" && len(path) == 0 {
			mediaType = "text/plain"
		}
		if mediaType != "text/plain" && mediaType != "text/html" {
			return nil
		}
		if disp, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition")); disp == "attachment" {
			return nil
		}

		content, err := io.ReadAll(part.Body)
		if err != nil {
			return fmt.Errorf("failed to read part body: %w", err)
		}
		if mediaType == "text/plain" && mm.TextBody == "" {
			mm.TextBody = string(content)
		} else if mediaType == "text/html" && mm.HTMLBody == "" {
			mm.HTMLBody = string(content)
		}
		return nil
	})
	if err != nil {
		logrus.Warnf("Failed to walk IMAP message parts: %v", err)
	}
	return mm, nil
}
