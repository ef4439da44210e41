package usecase

import (
	"context"
	"sync"
	"time"
)

// Dobles compartidos por los tests del paquete.

type sentMessage struct {
	ChatJID string
	Text    string
}

type fakeSender struct {
	mu       sync.Mutex
	messages []sentMessage
	media    []sentMessage
	err      error
}

func (f *fakeSender) SendMessage(_ context.Context, chatJID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, sentMessage{ChatJID: chatJID, Text: text})
	return nil
}

func (f *fakeSender) SendMedia(_ context.Context, chatJID, path, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.media = append(f.media, sentMessage{ChatJID: chatJID, Text: path})
	return nil
}

func (f *fakeSender) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *fakeSender) sentMedia() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.media))
	copy(out, f.media)
	return out
}

func (f *fakeSender) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type notification struct {
	Code    string
	Message string
}

type fakeObserver struct {
	mu            sync.Mutex
	notifications []notification
}

func (f *fakeObserver) Notify(code, message string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, notification{Code: code, Message: message})
}

func (f *fakeObserver) codes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.notifications))
	for _, n := range f.notifications {
		out = append(out, n.Code)
	}
	return out
}

// fakeClock avanza manualmente para probar expiraciones sin dormir.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
