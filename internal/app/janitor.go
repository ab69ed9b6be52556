package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Televisit/internal/core"
	"github.com/rs/zerolog/log"
)

// Janitor runs a sweep function on a fixed interval until stopped.
type Janitor struct {
	name  string
	clock core.Clock
	every time.Duration
	sweep func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewJanitor(name string, clock core.Clock, every time.Duration, sweep func()) *Janitor {
	return &Janitor{name: name, clock: clock, every: every, sweep: sweep}
}

// Start launches the sweep loop. Calling Start on a running janitor is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})

	ticker := j.clock.NewTicker(j.every)
	go j.loop(ctx, ticker, j.done)
	log.Info().Str("module", "app.janitor").Str("name", j.name).Dur("every", j.every).Msg("sweep started")
}

func (j *Janitor) loop(ctx context.Context, ticker core.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			j.sweep()
		}
	}
}

// Stop halts the loop and waits for an in-progress sweep to return.
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Info().Str("module", "app.janitor").Str("name", j.name).Msg("sweep stopped")
}
