package service_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"agency-forms/models"
	"agency-forms/notification"
)

// fakeMailer records sent messages. sendErr picks an error per message tag.
// With stall set, every call waits for its context like a hung relay.
type fakeMailer struct {
	verifyErr error
	sendErr   map[string]error
	stall     bool

	mu   sync.Mutex
	sent []notification.Message
}

func (f *fakeMailer) Verify(ctx context.Context) error {
	if f.stall {
		<-ctx.Done()
		return notification.ErrTimeout
	}
	return f.verifyErr
}

func (f *fakeMailer) Send(ctx context.Context, msg notification.Message) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	if f.stall {
		<-ctx.Done()
		return notification.ErrTimeout
	}
	return f.sendErr[msg.Tag]
}

func (f *fakeMailer) Close() {}

func (f *fakeMailer) byTag(tag string) (notification.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.sent {
		if m.Tag == tag {
			return m, true
		}
	}
	return notification.Message{}, false
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) AddWaitingListEntry(ctx context.Context, entry models.WaitingListEntry) (models.WaitingListEntry, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(models.WaitingListEntry), args.Error(1)
}

func (m *mockStore) AddContactRequest(ctx context.Context, req models.ContactRequest) (models.ContactRequest, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.ContactRequest), args.Error(1)
}
