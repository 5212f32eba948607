// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"errors"
	"sync"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
)

// ErrInjected is returned by calls configured to fail.
var ErrInjected = errors.New("injected transport failure")

// Sent records one Send call.
type Sent struct {
	To      transport.Recipient
	Content transport.Content
}

// Fake records every call and can be told to fail specific ones.
type Fake struct {
	mu sync.Mutex

	Sent      []Sent
	Threads   []transport.ThreadHandle
	Deleted   []transport.ThreadHandle
	Callbacks []string

	// Unreachable chat ids answer with transport.Unreachable.
	Unreachable map[int64]bool
	// FailKinds makes sends of these kinds return ErrInjected.
	FailKinds map[domain.MediaKind]bool
	// FailChats makes sends to these chat/thread pairs return ErrInjected.
	FailChats map[transport.Recipient]bool
	// FailCreateThread makes CreateThread return ErrInjected.
	FailCreateThread bool
	// FailDeleteThread makes DeleteThread return transport.ErrThreadNotFound.
	FailDeleteThread bool

	nextThread  int64
	nextMessage int
}

// New creates an empty fake.
func New() *Fake {
	return &Fake{
		Unreachable: map[int64]bool{},
		FailKinds:   map[domain.MediaKind]bool{},
		FailChats:   map[transport.Recipient]bool{},
		nextThread:  100,
	}
}

func (f *Fake) Send(ctx context.Context, to transport.Recipient, content transport.Content) (transport.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unreachable[to.ChatID] {
		return transport.Delivery{Status: transport.Unreachable}, nil
	}
	if f.FailKinds[content.Kind()] || f.FailChats[to] {
		return transport.Delivery{}, ErrInjected
	}
	f.nextMessage++
	f.Sent = append(f.Sent, Sent{To: to, Content: content})
	return transport.Delivery{Status: transport.Delivered, MessageID: f.nextMessage}, nil
}

func (f *Fake) CreateThread(ctx context.Context, chatID int64, title string) (transport.ThreadHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreateThread {
		return transport.ThreadHandle{}, ErrInjected
	}
	f.nextThread++
	handle := transport.ThreadHandle{ChatID: chatID, ThreadID: f.nextThread}
	f.Threads = append(f.Threads, handle)
	return handle, nil
}

func (f *Fake) DeleteThread(ctx context.Context, handle transport.ThreadHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDeleteThread {
		return transport.ErrThreadNotFound
	}
	f.Deleted = append(f.Deleted, handle)
	return nil
}

func (f *Fake) AnswerCallback(ctx context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Callbacks = append(f.Callbacks, callbackID)
	return nil
}

// SentTo returns the contents delivered to a recipient, in order.
func (f *Fake) SentTo(to transport.Recipient) []transport.Content {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []transport.Content
	for _, s := range f.Sent {
		if s.To == to {
			out = append(out, s.Content)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps failure settings.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = nil
	f.Deleted = nil
	f.Callbacks = nil
}
