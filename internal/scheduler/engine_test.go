package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lickton/LinkFlow/internal/storage"
)

type stubDispatcher struct {
	mu    sync.Mutex
	calls []string
	fail  bool
	fired chan string
}

func newStubDispatcher() *stubDispatcher {
	return &stubDispatcher{fired: make(chan string, 16)}
}

func (d *stubDispatcher) Show(title, body string) error {
	d.mu.Lock()
	d.calls = append(d.calls, title+"|"+body)
	fail := d.fail
	d.mu.Unlock()
	d.fired <- title
	if fail {
		return errors.New("notification center unavailable")
	}
	return nil
}

func (d *stubDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func newTestEngine(t *testing.T, repo *storage.SQLiteRepository, dispatcher *stubDispatcher, now time.Time) *Engine {
	t.Helper()
	engine := NewEngine(repo, dispatcher, zerolog.Nop(), time.UTC)
	engine.now = func() time.Time { return now }
	return engine
}

func awaitFire(t *testing.T, dispatcher *stubDispatcher, timeout time.Duration) string {
	t.Helper()
	select {
	case title := <-dispatcher.fired:
		return title
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for dispatch")
		return ""
	}
}

func TestEngineFiresDueReminder(t *testing.T) {
	repo := setupRepo(t)
	dispatcher := newStubDispatcher()

	due := testNow.Add(time.Minute)
	insertReminderTask(t, repo, "task-1", due, 0, testNow.Add(-time.Hour))

	// Clock parked 40ms before the remind instant: the armed timer fires
	// almost immediately in wall time.
	engine := newTestEngine(t, repo, dispatcher, due.Add(-40*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	title := awaitFire(t, dispatcher, 2*time.Second)
	if title != "任务提醒：Task task-1" {
		t.Fatalf("unexpected title: %q", title)
	}

	fired, err := repo.IsReminderFired(ctx, "task-1", due.UnixMilli())
	if err != nil {
		t.Fatalf("check fired: %v", err)
	}
	if !fired {
		t.Fatalf("ledger entry missing after fire")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("engine did not stop on cancellation")
	}
}

func TestEngineWakeupInterruptsSleep(t *testing.T) {
	repo := setupRepo(t)
	dispatcher := newStubDispatcher()

	// Armed candidate a full hour out; the loop would sleep until then.
	insertReminderTask(t, repo, "far", testNow.Add(time.Hour), 0, testNow.Add(-time.Hour))

	engine := newTestEngine(t, repo, dispatcher, testNow)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	// Give the loop time to arm.
	time.Sleep(100 * time.Millisecond)
	if dispatcher.callCount() != 0 {
		t.Fatalf("nothing should have fired yet")
	}

	// A new task already due (delay 0) becomes the candidate on re-resolve.
	insertReminderTask(t, repo, "near", testNow, 0, testNow.Add(-time.Minute))
	engine.Wakeup()

	title := awaitFire(t, dispatcher, 2*time.Second)
	if title != "任务提醒：Task near" {
		t.Fatalf("expected near task to fire after wakeup, got %q", title)
	}
}

func TestEngineWakeupCoalesces(t *testing.T) {
	repo := setupRepo(t)
	engine := newTestEngine(t, repo, newStubDispatcher(), testNow)

	for i := 0; i < 10; i++ {
		engine.Wakeup()
	}
	if len(engine.wakeup) != 1 {
		t.Fatalf("expected one pending wakeup, got %d", len(engine.wakeup))
	}
}

func TestFireSkipsAlreadyClaimedInstant(t *testing.T) {
	repo := setupRepo(t)
	dispatcher := newStubDispatcher()
	engine := newTestEngine(t, repo, dispatcher, testNow)
	ctx := context.Background()

	candidate := &Candidate{TaskID: "task-1", Title: "Standup", RemindAt: testNow.UnixMilli()}
	if _, err := repo.MarkReminderFired(ctx, candidate.TaskID, candidate.RemindAt, testNow.UnixMilli()); err != nil {
		t.Fatalf("pre-claim: %v", err)
	}

	engine.fire(ctx, candidate)
	if dispatcher.callCount() != 0 {
		t.Fatalf("lost claim must not dispatch")
	}
}

func TestFireDispatchFailureKeepsClaim(t *testing.T) {
	repo := setupRepo(t)
	dispatcher := newStubDispatcher()
	dispatcher.fail = true
	engine := newTestEngine(t, repo, dispatcher, testNow)
	ctx := context.Background()

	candidate := &Candidate{TaskID: "task-1", Title: "Standup", RemindAt: testNow.UnixMilli()}
	engine.fire(ctx, candidate)
	if dispatcher.callCount() != 1 {
		t.Fatalf("expected one dispatch attempt, got %d", dispatcher.callCount())
	}

	// The claim is final: a later pass must not re-attempt the dispatch.
	engine.fire(ctx, candidate)
	if dispatcher.callCount() != 1 {
		t.Fatalf("failed dispatch must not be retried, got %d attempts", dispatcher.callCount())
	}
}

func TestNotificationBodyComposition(t *testing.T) {
	cases := []struct {
		name      string
		candidate Candidate
		want      string
	}{
		{
			name:      "detail wins",
			candidate: Candidate{Detail: "bring the slides", ListName: "Work", DueDate: "2026-03-02", DueTime: "13:00"},
			want:      "bring the slides",
		},
		{
			name:      "list prefix fallback",
			candidate: Candidate{ListName: "Work", DueDate: "2026-03-02", DueTime: "13:00"},
			want:      "Work · 2026-03-02 13:00",
		},
		{
			name:      "no list no prefix",
			candidate: Candidate{DueDate: "2026-03-02", DueTime: "13:00"},
			want:      "2026-03-02 13:00",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := notificationBody(&tc.candidate); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestDebugNextReportsDelay(t *testing.T) {
	repo := setupRepo(t)
	engine := newTestEngine(t, repo, newStubDispatcher(), testNow)
	ctx := context.Background()

	got, err := engine.DebugNext(ctx)
	if err != nil {
		t.Fatalf("debug next: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no candidate on empty store, got %#v", got)
	}

	insertReminderTask(t, repo, "task-1", testNow.Add(30*time.Minute), 0, testNow.Add(-time.Hour))
	got, err = engine.DebugNext(ctx)
	if err != nil {
		t.Fatalf("debug next: %v", err)
	}
	if got == nil || got.TaskID != "task-1" {
		t.Fatalf("unexpected debug candidate: %#v", got)
	}
	if got.Delay != 30*time.Minute {
		t.Fatalf("unexpected delay: %s", got.Delay)
	}
}
