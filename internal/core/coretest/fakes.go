// Package coretest provides in-memory fakes of the core contracts for tests.
package coretest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Televisit/internal/core"
)

// Clock is a manually advanced core.Clock.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ticker
}

func NewClock(now time.Time) *Clock { return &Clock{now: now} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) NewTicker(d time.Duration) core.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &ticker{every: d, next: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Tickers reports how many live tickers were created.
func (c *Clock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// Advance moves the clock and fires every ticker whose deadline passed.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*ticker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.fire(now)
	}
}

type ticker struct {
	mu      sync.Mutex
	every   time.Duration
	next    time.Time
	ch      chan time.Time
	stopped bool
}

func (t *ticker) C() <-chan time.Time { return t.ch }

func (t *ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *ticker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *ticker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || now.Before(t.next) {
		return
	}
	for !now.Before(t.next) {
		t.next = t.next.Add(t.every)
	}
	select {
	case t.ch <- now:
	default:
	}
}

// Message is one text captured by Notifier.
type Message struct {
	Recipient string
	Body      string
}

// Notifier records every SendText call and fails when Err is set.
type Notifier struct {
	mu   sync.Mutex
	Err  error
	sent []Message
}

func (n *Notifier) SendText(_ context.Context, recipient, body string) (core.SendResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Message{Recipient: recipient, Body: body})
	if n.Err != nil {
		return core.SendResult{Success: false, Error: n.Err.Error()}, n.Err
	}
	return core.SendResult{Success: true}, nil
}

func (n *Notifier) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.sent...)
}

var ErrConnClosed = errors.New("connection closed")

// Conn is a core.SignalConnection that keeps every frame it receives.
type Conn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	// Full makes TrySend fail as if the send buffer were exhausted.
	Full bool
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.Full {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, append(core.Frame(nil), f...))
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Event is a decoded frame: its type plus the raw body.
type Event struct {
	Type string
	Raw  json.RawMessage
}

// Events decodes every captured frame.
func (c *Conn) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, 0, len(c.frames))
	for _, f := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(f, &env)
		out = append(out, Event{Type: env.Type, Raw: json.RawMessage(f)})
	}
	return out
}

// Types lists the event types received so far.
func (c *Conn) Types() []string {
	evs := c.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

// Last returns the most recent event of the given type.
func (c *Conn) Last(eventType string) (Event, bool) {
	evs := c.Events()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == eventType {
			return evs[i], true
		}
	}
	return Event{}, false
}

func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}
