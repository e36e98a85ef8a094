package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/model"
)

// fakeSource is the provider state shared by every adapter the factory builds
type fakeSource struct {
	mu        sync.Mutex
	position  string
	ids       []string
	listErr   error
	posErr    error
	messages  map[string]*model.NormalizedMessage
	fetchErrs map[string]error
	recent    []model.NormalizedMessage
	drafts    []string
	watch     *connector.WatchResult
	closed    int
	listedFor []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		messages:  map[string]*model.NormalizedMessage{},
		fetchErrs: map[string]error{},
	}
}

func (f *fakeSource) add(msg model.NormalizedMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[msg.SourceID] = &msg
}

func (f *fakeSource) draftCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.drafts)
}

type fakeAdapter struct {
	src *fakeSource
}

var (
	_ connector.Connector    = (*fakeAdapter)(nil)
	_ connector.DraftCreator = (*fakeAdapter)(nil)
	_ connector.Watcher      = (*fakeAdapter)(nil)
)

func (a *fakeAdapter) Channel() model.Channel { return model.ChannelGmail }

func (a *fakeAdapter) CurrentPosition(ctx context.Context) (string, error) {
	a.src.mu.Lock()
	defer a.src.mu.Unlock()
	return a.src.position, a.src.posErr
}

func (a *fakeAdapter) ListChangedMessageIDs(ctx context.Context, cursor string) ([]string, error) {
	a.src.mu.Lock()
	defer a.src.mu.Unlock()
	a.src.listedFor = append(a.src.listedFor, cursor)
	return a.src.ids, a.src.listErr
}

func (a *fakeAdapter) FetchMessage(ctx context.Context, id string) (*model.NormalizedMessage, error) {
	a.src.mu.Lock()
	defer a.src.mu.Unlock()
	if err := a.src.fetchErrs[id]; err != nil {
		return nil, err
	}
	msg, ok := a.src.messages[id]
	if !ok {
		return nil, connector.NewError(model.ChannelGmail, "fetch", connector.KindNotFound, errors.New("no such message"))
	}
	cp := *msg
	return &cp, nil
}

func (a *fakeAdapter) FetchRecentMessages(ctx context.Context, limit int) ([]model.NormalizedMessage, error) {
	a.src.mu.Lock()
	defer a.src.mu.Unlock()
	if len(a.src.recent) > limit {
		return a.src.recent[:limit], nil
	}
	return a.src.recent, nil
}

func (a *fakeAdapter) CreateDraftReply(ctx context.Context, ref model.ThreadRef, body string) (bool, error) {
	a.src.mu.Lock()
	defer a.src.mu.Unlock()
	a.src.drafts = append(a.src.drafts, ref.RecipientEmail+": "+body)
	return true, nil
}

func (a *fakeAdapter) Watch(ctx context.Context) (*connector.WatchResult, error) {
	a.src.mu.Lock()
	defer a.src.mu.Unlock()
	return a.src.watch, nil
}

func (a *fakeAdapter) Close() error {
	a.src.mu.Lock()
	defer a.src.mu.Unlock()
	a.src.closed++
	return nil
}

// plainAdapter hides the optional capabilities of the wrapped adapter
type plainAdapter struct {
	connector.Connector
}

type fakeFactory struct {
	src    *fakeSource
	plain  bool
	builds atomic.Int32
}

func (f *fakeFactory) ForConnection(ctx context.Context, conn *model.Connection) (connector.Connector, error) {
	f.builds.Add(1)
	a := &fakeAdapter{src: f.src}
	if f.plain {
		return plainAdapter{a}, nil
	}
	return a, nil
}

func gmailMessage(id, email, name, subject, content string) model.NormalizedMessage {
	msg := model.NormalizedMessage{
		Source:          model.ChannelGmail,
		SourceID:        id,
		Sender:          model.Sender{Email: email},
		Subject:         subject,
		Content:         content,
		ReceivedAt:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		HeaderMessageID: "<" + id + "@mail.example.com>",
	}
	thread := "t-" + id
	msg.SourceThreadID = &thread
	if name != "" {
		msg.Sender.Name = &name
	}
	return msg
}
