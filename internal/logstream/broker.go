package logstream

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// finishedRetention is how long a closed job stays known to the broker so
// that late subscribers get a closed channel instead of waiting forever
const finishedRetention = 10 * time.Minute

// maxBacklog bounds the lines kept per running job for late subscribers
const maxBacklog = 5000

// LogBroker fans job log lines out to SSE subscribers
type LogBroker struct {
	subscribers map[uuid.UUID]map[chan string]bool // jobID -> set of subscriber channels
	backlog     map[uuid.UUID][]string
	finished    map[uuid.UUID]time.Time
	mu          sync.RWMutex
	now         func() time.Time
}

// NewBroker creates a new log broker
func NewBroker() *LogBroker {
	return &LogBroker{
		subscribers: make(map[uuid.UUID]map[chan string]bool),
		backlog:     make(map[uuid.UUID][]string),
		finished:    make(map[uuid.UUID]time.Time),
		now:         time.Now,
	}
}

// Subscribe creates a new subscription for a job's logs. The channel is
// closed when the job finishes, immediately if it already has.
func (b *LogBroker) Subscribe(jobID uuid.UUID) chan string {
	_, ch := b.SubscribeWithBacklog(jobID)
	return ch
}

// SubscribeWithBacklog subscribes and returns the lines already published
// for the job. Every line is either in the backlog or sent on the channel.
func (b *LogBroker) SubscribeWithBacklog(jobID uuid.UUID) ([]string, chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan string, 100)
	if _, done := b.finished[jobID]; done {
		close(ch)
		return nil, ch
	}

	if b.subscribers[jobID] == nil {
		b.subscribers[jobID] = make(map[chan string]bool)
	}
	b.subscribers[jobID][ch] = true

	return slices.Clone(b.backlog[jobID]), ch
}

// Unsubscribe removes a subscription
func (b *LogBroker) Unsubscribe(jobID uuid.UUID, ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, exists := b.subscribers[jobID]; exists {
		if !subs[ch] {
			return
		}
		delete(subs, ch)
		close(ch)

		if len(subs) == 0 {
			delete(b.subscribers, jobID)
		}
	}
}

// Publish sends a log line to all subscribers of a job. Slow subscribers
// drop lines rather than block the job.
func (b *LogBroker) Publish(jobID uuid.UUID, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, done := b.finished[jobID]; done {
		return
	}
	lines := append(b.backlog[jobID], line)
	if len(lines) > maxBacklog {
		lines = lines[len(lines)-maxBacklog:]
	}
	b.backlog[jobID] = lines

	for ch := range b.subscribers[jobID] {
		select {
		case ch <- line:
		default:
		}
	}
}

// Close ends every subscription for a job and marks it finished
func (b *LogBroker) Close(jobID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers[jobID] {
		close(ch)
	}
	delete(b.subscribers, jobID)
	delete(b.backlog, jobID)

	now := b.now()
	for id, at := range b.finished {
		if now.Sub(at) > finishedRetention {
			delete(b.finished, id)
		}
	}
	b.finished[jobID] = now
}

// HasSubscribers returns true if there are active subscribers for a job
func (b *LogBroker) HasSubscribers(jobID uuid.UUID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[jobID]) > 0
}
