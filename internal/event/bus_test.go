package event

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(testLogger(), 16)
	go bus.Start()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	}, StableIDCollision)

	bus.Publish(Event{
		Type:   StableIDCollision,
		Artist: "Aphex Twin",
		Data:   map[string]any{"stable_id": "f22942a1"},
	})
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("got %d events, want 1", len(received))
	}
	if received[0].Data["stable_id"] != "f22942a1" {
		t.Errorf("data[stable_id] = %v", received[0].Data["stable_id"])
	}
	if received[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestSubscribeMultipleTypes(t *testing.T) {
	bus := NewBus(testLogger(), 16)
	go bus.Start()

	var mu sync.Mutex
	count := 0
	bus.Subscribe(func(_ Event) {
		mu.Lock()
		defer mu.Unlock()
		count++
	}, WrongMatch, ImplausibleYear)

	bus.Publish(Event{Type: WrongMatch})
	bus.Publish(Event{Type: ImplausibleYear})
	bus.Publish(Event{Type: CandidateAccepted})
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("got %d handler calls, want 2", count)
	}
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	// Should not panic
	bus.Publish(Event{Type: RunCompleted})
}

func TestBufferFull(t *testing.T) {
	bus := NewBus(testLogger(), 2)
	// Do NOT start the bus -- events will accumulate in the channel

	bus.Publish(Event{Type: RunCompleted})
	bus.Publish(Event{Type: RunCompleted})
	// Third event should be dropped (buffer full)
	bus.Publish(Event{Type: RunCompleted})
	// Stop without Start must not block
	bus.Stop()
}

func TestReviewEventsWaitForRoom(t *testing.T) {
	bus := NewBus(testLogger(), 1)

	var mu sync.Mutex
	var got []string
	bus.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Artist)
	}, WrongMatch)

	bus.Publish(Event{Type: WrongMatch, Artist: "first"})
	published := make(chan struct{})
	go func() {
		bus.Publish(Event{Type: WrongMatch, Artist: "second"})
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("review event was not held back by the full buffer")
	case <-time.After(50 * time.Millisecond):
	}

	go bus.Start()
	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("review event never entered the bus")
	}
	bus.Stop()

	// After Stop the event is still delivered, on this goroutine.
	bus.Publish(Event{Type: WrongMatch, Artist: "third"})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != "first" || got[1] != "second" || got[2] != "third" {
		t.Errorf("delivered = %v, want [first second third]", got)
	}
}

func TestHandlerPanicRecovery(t *testing.T) {
	bus := NewBus(testLogger(), 16)
	go bus.Start()

	var mu sync.Mutex
	secondCalled := false

	bus.Subscribe(func(_ Event) {
		panic("test panic")
	}, Excluded)
	bus.Subscribe(func(_ Event) {
		mu.Lock()
		defer mu.Unlock()
		secondCalled = true
	}, Excluded)

	bus.Publish(Event{Type: Excluded})
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	if !secondCalled {
		t.Error("second handler should still be called after first panics")
	}
}

func TestStopDrainsBuffer(t *testing.T) {
	bus := NewBus(testLogger(), 16)

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(_ Event) {
		mu.Lock()
		defer mu.Unlock()
		count++
	}, RunCompleted)

	// Publish before starting
	bus.Publish(Event{Type: RunCompleted})
	bus.Publish(Event{Type: RunCompleted})

	go bus.Start()
	time.Sleep(50 * time.Millisecond)
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("got %d events, want 2 (all drained)", count)
	}
}

func TestReviewLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review", "review.jsonl")
	rl, err := OpenReviewLog(path, testLogger())
	if err != nil {
		t.Fatalf("OpenReviewLog: %v", err)
	}

	bus := NewBus(testLogger(), 16)
	rl.Attach(bus)
	go bus.Start()
	bus.Publish(Event{Type: WrongMatch, Artist: "Burial", Data: map[string]any{"reason": "wrong match (geo tags: vilnius)"}})
	bus.Publish(Event{Type: CandidateAccepted, Artist: "Kode9"})
	bus.Publish(Event{Type: Excluded, Artist: "Bad Match"})
	bus.Stop()
	if err := rl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var got []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2 (accepted candidates are not review events)", len(got))
	}
	if got[0].Artist != "Burial" || got[1].Type != Excluded {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var p Publisher = &r
	p.Publish(Event{Type: WrongMatch})
	p.Publish(Event{Type: Excluded})
	if len(r.Events()) != 2 || len(r.OfType(Excluded)) != 1 {
		t.Errorf("recorder = %+v", r.Events())
	}
}
