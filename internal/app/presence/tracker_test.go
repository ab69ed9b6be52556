package presence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Televisit/internal/core/coretest"
	"github.com/dkeye/Televisit/internal/domain"
)

var t0 = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type harness struct {
	clock    *coretest.Clock
	notifier *coretest.Notifier
	tracker  *Tracker

	mu      sync.Mutex
	results []DispatchResult
	done    chan DispatchResult
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		clock:    coretest.NewClock(t0),
		notifier: &coretest.Notifier{},
		done:     make(chan DispatchResult, 8),
	}
	opts = append([]Option{
		WithRecipient("573000000000"),
		WithDispatchHook(func(r DispatchResult) {
			h.mu.Lock()
			h.results = append(h.results, r)
			h.mu.Unlock()
			h.done <- r
		}),
	}, opts...)
	h.tracker = New(h.clock, h.notifier, opts...)
	t.Cleanup(h.tracker.Stop)
	return h
}

func (h *harness) waitDispatch(t *testing.T) DispatchResult {
	t.Helper()
	select {
	case r := <-h.done:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for report dispatch")
	}
	return DispatchResult{}
}

func (h *harness) dispatched() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.results)
}

func TestTrackerSendsOneReportWhenBothLeave(t *testing.T) {
	h := newHarness(t)
	tr := h.tracker

	tr.TrackConnected("R1", "Dr. D1", domain.RoleDoctor)
	h.clock.Advance(30 * time.Second)
	tr.TrackConnected("R1", "P1", domain.RolePatient)
	h.clock.Advance(12 * time.Minute)
	tr.TrackDisconnected("R1", "P1")

	if _, ok := tr.Session("R1"); !ok {
		t.Fatal("room must still be tracked while the doctor is connected")
	}

	h.clock.Advance(5 * time.Second)
	tr.TrackDisconnected("R1", "Dr. D1")

	res := h.waitDispatch(t)
	if res.Err != nil {
		t.Fatalf("unexpected dispatch error: %v", res.Err)
	}
	if res.Room != "R1" {
		t.Fatalf("room = %q", res.Room)
	}
	for _, want := range []string{"R1", "D1", "P1", "12m 35s"} {
		if !strings.Contains(res.Report, want) {
			t.Errorf("report missing %q:\n%s", want, res.Report)
		}
	}
	if strings.Contains(res.Report, "Dr. D1") {
		t.Errorf("doctor code must drop the title prefix:\n%s", res.Report)
	}

	sent := h.notifier.Sent()
	if len(sent) != 1 || sent[0].Recipient != "573000000000" {
		t.Fatalf("sent = %+v", sent)
	}
	if _, ok := tr.Session("R1"); ok {
		t.Fatal("room must be removed after the report")
	}

	// A late duplicate disconnect is a no-op.
	tr.TrackDisconnected("R1", "Dr. D1")
	if got := len(h.notifier.Sent()); got != 1 {
		t.Fatalf("sent %d reports, want 1", got)
	}
}

func TestTrackerNeedsTwoParticipants(t *testing.T) {
	h := newHarness(t)
	h.tracker.TrackConnected("R1", "Dr. D1", domain.RoleDoctor)
	h.tracker.TrackDisconnected("R1", "Dr. D1")

	sess, ok := h.tracker.Session("R1")
	if !ok {
		t.Fatal("single participant room must stay tracked")
	}
	if sess.CompletedAt != nil {
		t.Fatal("single participant room is not complete")
	}
	if len(h.notifier.Sent()) != 0 {
		t.Fatal("no report expected")
	}
}

func TestTrackerReconnectResetsDisconnect(t *testing.T) {
	h := newHarness(t)
	tr := h.tracker

	tr.TrackConnected("R1", "Dr. D1", domain.RoleDoctor)
	tr.TrackConnected("R1", "P1", domain.RolePatient)
	tr.TrackDisconnected("R1", "P1")

	h.clock.Advance(time.Minute)
	tr.TrackConnected("R1", "P1", domain.RolePatient)

	sess, _ := tr.Session("R1")
	p := sess.Participants["P1"]
	if p.DisconnectedAt != nil {
		t.Fatal("reconnect must clear disconnectedAt")
	}
	if !p.ConnectedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("connectedAt = %v", p.ConnectedAt)
	}

	tr.TrackDisconnected("R1", "Dr. D1")
	if len(h.notifier.Sent()) != 0 {
		t.Fatal("patient is back online, no report expected")
	}

	tr.TrackDisconnected("R1", "P1")
	h.waitDispatch(t)
	if got := len(h.notifier.Sent()); got != 1 {
		t.Fatalf("sent %d reports, want 1", got)
	}
}

func TestTrackerMissingRoleKeepsRecord(t *testing.T) {
	h := newHarness(t)
	tr := h.tracker

	tr.TrackConnected("R9", "Dr. A", domain.RoleDoctor)
	tr.TrackConnected("R9", "Dr. B", domain.RoleDoctor)
	tr.TrackDisconnected("R9", "Dr. A")
	tr.TrackDisconnected("R9", "Dr. B")

	sess, ok := tr.Session("R9")
	if !ok {
		t.Fatal("record must be retained until the sweep")
	}
	if sess.CompletedAt == nil {
		t.Fatal("completedAt must be set once completion is detected")
	}
	if len(h.notifier.Sent()) != 0 || h.dispatched() != 0 {
		t.Fatal("no report expected without a patient")
	}
}

func TestTrackerReconnectClearsCompletion(t *testing.T) {
	h := newHarness(t)
	tr := h.tracker

	tr.TrackConnected("R9", "Dr. A", domain.RoleDoctor)
	tr.TrackConnected("R9", "Dr. B", domain.RoleDoctor)
	tr.TrackDisconnected("R9", "Dr. A")
	tr.TrackDisconnected("R9", "Dr. B")

	tr.TrackConnected("R9", "Dr. A", domain.RoleDoctor)
	sess, ok := tr.Session("R9")
	if !ok {
		t.Fatal("record must still exist")
	}
	if sess.CompletedAt != nil {
		t.Fatal("a reconnect must clear completedAt")
	}
	if sess.Complete() {
		t.Fatal("room with a connected participant is not complete")
	}
}

func TestTrackerUnknownRoomIsNoop(t *testing.T) {
	h := newHarness(t)
	h.tracker.TrackDisconnected("nope", "ghost")
	if h.tracker.Len() != 0 {
		t.Fatal("disconnect must not create a record")
	}
}

func TestTrackerDispatchFailureStillRemoves(t *testing.T) {
	h := newHarness(t)
	h.notifier.Err = errors.New("provider down")
	tr := h.tracker

	tr.TrackConnected("R1", "Dr. D1", domain.RoleDoctor)
	tr.TrackConnected("R1", "P1", domain.RolePatient)
	tr.TrackDisconnected("R1", "Dr. D1")
	tr.TrackDisconnected("R1", "P1")

	res := h.waitDispatch(t)
	if res.Err == nil || res.Result.Success {
		t.Fatalf("expected failed dispatch, got %+v", res)
	}
	if _, ok := tr.Session("R1"); ok {
		t.Fatal("record must be removed even when dispatch fails")
	}
	if got := len(h.notifier.Sent()); got != 1 {
		t.Fatalf("failed dispatch must not be retried, attempts = %d", got)
	}
}

func TestCleanOldSessions(t *testing.T) {
	h := newHarness(t)
	tr := h.tracker

	tr.TrackConnected("old", "Dr. D1", domain.RoleDoctor)
	h.clock.Advance(23 * time.Hour)
	tr.TrackConnected("young", "P1", domain.RolePatient)
	h.clock.Advance(time.Hour + time.Second)

	tr.CleanOldSessions()

	if _, ok := tr.Session("old"); ok {
		t.Fatal("room older than retention must be swept")
	}
	if _, ok := tr.Session("young"); !ok {
		t.Fatal("room younger than retention must survive")
	}
}

func TestTrackerStartRunsSweep(t *testing.T) {
	h := newHarness(t, WithRetention(time.Hour), WithSweepInterval(time.Minute))
	tr := h.tracker
	tr.TrackConnected("R1", "Dr. D1", domain.RoleDoctor)

	tr.Start(context.Background())
	h.clock.Advance(2 * time.Hour)

	deadline := time.Now().Add(2 * time.Second)
	for tr.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweep did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                     "0m 0s",
		59*time.Second + 900*time.Millisecond: "0m 59s",
		12*time.Minute + 5*time.Second:        "12m 5s",
		-time.Second:                          "0m 0s",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}
