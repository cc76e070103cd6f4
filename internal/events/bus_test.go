package events

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBus_PublishFansOutToSubscribers(t *testing.T) {
	bus := NewBus("sess-1", nil)
	ch, unsubscribe := bus.Subscribe(4)
	defer unsubscribe()

	if err := bus.Publish(KernelEvent{Type: KernelPhaseStart, Phase: "planning"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Type != KernelPhaseStart || ev.Phase != "planning" {
			t.Errorf("unexpected event: %+v", ev)
		}
		if ev.SessionID != "sess-1" {
			t.Errorf("expected session id stamped, got %q", ev.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_PublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus("sess-1", nil)
	_, unsubscribe := bus.Subscribe(1)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = bus.Publish(KernelEvent{Type: KernelIteration, Iteration: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus("sess-1", nil)
	ch, unsubscribe := bus.Subscribe(1)
	unsubscribe()

	_, ok := <-ch
	if ok {
		t.Error("expected channel closed after unsubscribe")
	}
}

func TestBus_DurableWriteAlwaysHappensEvenWithoutSubscribers(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	defer fs.Close()

	bus := NewBus("sess-2", NewKernelFileSink(fs))
	if err := bus.Publish(KernelEvent{Type: KernelCommitComplete, Message: "ok"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	fs.Flush()

	data, err := os.ReadFile(filepath.Join(dir, DefaultFilename))
	if err != nil {
		t.Fatalf("read events file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected durable log to contain the published event")
	}
}
