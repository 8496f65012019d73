package logstream

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBrokerPublishAndClose(t *testing.T) {
	b := NewBroker()
	jobID := uuid.New()

	ch := b.Subscribe(jobID)
	if !b.HasSubscribers(jobID) {
		t.Fatal("expected a subscriber")
	}

	b.Publish(jobID, "hello")
	b.Publish(uuid.New(), "other job")

	if got := <-ch; got != "hello" {
		t.Errorf("received %q, want hello", got)
	}

	b.Close(jobID)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
	if b.HasSubscribers(jobID) {
		t.Error("no subscribers expected after Close")
	}

	// Unsubscribe after Close must not double close
	b.Unsubscribe(jobID, ch)
}

func TestBrokerLateSubscriber(t *testing.T) {
	b := NewBroker()
	jobID := uuid.New()
	b.Close(jobID)

	select {
	case _, ok := <-b.Subscribe(jobID):
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("late subscriber blocked")
	}
}

func TestBrokerForgetsOldJobs(t *testing.T) {
	b := NewBroker()
	start := time.Now()
	b.now = func() time.Time { return start }

	old := uuid.New()
	b.Close(old)

	b.now = func() time.Time { return start.Add(finishedRetention + time.Minute) }
	b.Close(uuid.New())

	if _, ok := b.finished[old]; ok {
		t.Error("old job should have been pruned")
	}
}

func TestStreamWriterPublishesLines(t *testing.T) {
	b := NewBroker()
	jobID := uuid.New()
	ch := b.Subscribe(jobID)

	var buf bytes.Buffer
	w := NewStreamWriter(jobID, b, &buf)
	w.Write([]byte("first\nsec"))
	w.Write([]byte("ond\nthird"))
	w.Flush()

	for _, want := range []string{"first", "second", "third"} {
		if got := <-ch; got != want {
			t.Errorf("line = %q, want %q", got, want)
		}
	}
	if buf.String() != "first\nsecond\nthird" {
		t.Errorf("buffer = %q", buf.String())
	}
}

func TestBrokerSubscribeWithBacklog(t *testing.T) {
	b := NewBroker()
	jobID := uuid.New()

	b.Publish(jobID, "one")
	b.Publish(jobID, "two")

	backlog, ch := b.SubscribeWithBacklog(jobID)
	if len(backlog) != 2 || backlog[0] != "one" || backlog[1] != "two" {
		t.Fatalf("backlog = %v, want [one two]", backlog)
	}

	b.Publish(jobID, "three")
	if got := <-ch; got != "three" {
		t.Errorf("received %q, want three", got)
	}

	b.Close(jobID)
	if backlog, _ := b.SubscribeWithBacklog(jobID); backlog != nil {
		t.Errorf("finished job should have no backlog, got %v", backlog)
	}
	b.Publish(jobID, "late")
	if _, ok := b.backlog[jobID]; ok {
		t.Error("lines published after Close should not be kept")
	}
}

func TestBrokerBacklogIsBounded(t *testing.T) {
	b := NewBroker()
	jobID := uuid.New()

	for i := 0; i < maxBacklog+10; i++ {
		b.Publish(jobID, "line")
	}
	b.Publish(jobID, "last")

	backlog, _ := b.SubscribeWithBacklog(jobID)
	if len(backlog) != maxBacklog {
		t.Fatalf("backlog length = %d, want %d", len(backlog), maxBacklog)
	}
	if backlog[len(backlog)-1] != "last" {
		t.Errorf("newest line = %q, want last", backlog[len(backlog)-1])
	}
}
