package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// KernelEventType identifies the category of a kernel-level event, as
// opposed to the per-turn AgentEvent stream an individual adapter emits.
type KernelEventType string

const (
	KernelPhaseStart        KernelEventType = "phase-start"
	KernelPhaseComplete     KernelEventType = "phase-complete"
	KernelError             KernelEventType = "error"
	KernelIteration         KernelEventType = "iteration"
	KernelPlanReady         KernelEventType = "plan-ready"
	KernelFileStart         KernelEventType = "file-start"
	KernelFileComplete      KernelEventType = "file-complete"
	KernelFileAudit         KernelEventType = "file-audit"
	KernelSyntaxCheck       KernelEventType = "syntax-check"
	KernelSyntaxValidation  KernelEventType = "syntax-validation"
	KernelConsultant        KernelEventType = "consultant"
	KernelAdapterStart      KernelEventType = "adapter-start"
	KernelAdapterFallback   KernelEventType = "adapter-fallback"
	KernelAdapterSuccess    KernelEventType = "adapter-success"
	KernelTestStart         KernelEventType = "test-start"
	KernelTestComplete      KernelEventType = "test-complete"
	KernelCommitStart       KernelEventType = "commit-start"
	KernelCommitComplete    KernelEventType = "commit-complete"
	KernelWatchChange       KernelEventType = "watch-change"
	KernelWatchRerun        KernelEventType = "watch-rerun"
	KernelResume            KernelEventType = "resume"
	KernelConfigLoaded      KernelEventType = "config-loaded"
	KernelParallelProgress  KernelEventType = "parallel-progress"
)

// KernelEvent is one occurrence from the catalog above. Fields not
// applicable to a given Type are simply left at their zero value; this
// mirrors AgentEvent's own "one wide struct, sparse per event" shape.
type KernelEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id"`
	Type      KernelEventType `json:"type"`
	Phase     string          `json:"phase,omitempty"`
	FilePath  string          `json:"file_path,omitempty"`
	Iteration int             `json:"iteration,omitempty"`
	Model     string          `json:"model,omitempty"`
	FromModel string          `json:"from_model,omitempty"`
	ToModel   string          `json:"to_model,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Message   string          `json:"message,omitempty"`
	Completed int             `json:"completed,omitempty"`
	Total     int             `json:"total,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}

// Sink is anything that can durably persist a batch of kernel events. A
// *FileSink only knows how to marshal AgentEvent today, so the Bus talks
// to sinks through this narrower interface; JSONL encoding for KernelEvent
// lives in the sink returned by NewKernelFileSink.
type Sink interface {
	WriteKernelEvents(events []KernelEvent) error
}

// Subscriber receives kernel events published to a Bus. Subscribe returns
// a channel rather than taking a callback so the publisher never blocks:
// an event that does not fit a subscriber's full buffer is dropped for that
// subscriber, which itself stays subscribed.
type Subscriber chan KernelEvent

// Bus fans a single stream of KernelEvents out to zero or more
// subscribers and, unconditionally, to a durable Sink. Publish never
// blocks on a subscriber: a channel that is full has its event dropped
// for that subscriber (UI surfaces may miss an update), but the Sink
// write always happens synchronously within Publish, so the session log
// is never missing an event a UI happened to miss.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]Subscriber
	nextID      int
	sink        Sink
	sessionID   string
}

// NewBus creates a Bus that durably logs every published event to sink
// (nil disables durable logging, e.g. in unit tests) tagged with
// sessionID.
func NewBus(sessionID string, sink Sink) *Bus {
	return &Bus{
		subscribers: make(map[int]Subscriber),
		sink:        sink,
		sessionID:   sessionID,
	}
}

// Subscribe registers a new subscriber with the given channel buffer
// size and returns the channel plus an unsubscribe function.
func (b *Bus) Subscribe(buffer int) (Subscriber, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(Subscriber, buffer)
	b.subscribers[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish stamps ev with the bus's session id and current time (if
// unset), writes it to the durable sink, then fans it out to every
// subscriber without blocking.
func (b *Bus) Publish(ev KernelEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.SessionID == "" {
		ev.SessionID = b.sessionID
	}

	if b.sink != nil {
		if err := b.sink.WriteKernelEvents([]KernelEvent{ev}); err != nil {
			return fmt.Errorf("events: durable write failed: %w", err)
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		select {
		case sub <- ev:
		default:
			// Subscriber is full; drop for this UI surface. The durable
			// write above already guarantees the session log has it.
		}
	}
	return nil
}

// kernelJSONLSink is the default durable Sink: JSONL lines appended to a
// file, reusing FileSink's buffered-writer-plus-mutex shape but keyed to
// KernelEvent's own encoding.
type kernelJSONLSink struct {
	inner *FileSink
}

// NewKernelFileSink wraps an existing FileSink (opened on
// <sessionDir>/events.jsonl) so it can durably log KernelEvents
// alongside any AgentEvents an adapter writes to the same file.
func NewKernelFileSink(fs *FileSink) Sink {
	return &kernelJSONLSink{inner: fs}
}

func (s *kernelJSONLSink) WriteKernelEvents(events []KernelEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.inner.mu.Lock()
	defer s.inner.mu.Unlock()

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("events: marshal kernel event: %w", err)
		}
		if _, err := s.inner.writer.Write(data); err != nil {
			return fmt.Errorf("events: write kernel event: %w", err)
		}
		if err := s.inner.writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("events: write newline: %w", err)
		}
	}
	return s.inner.writer.Flush()
}
