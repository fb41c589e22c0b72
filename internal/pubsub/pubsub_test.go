package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/voxworks/voxsay/internal/logger"
)

func TestNewRejectsBadURL(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	if _, err := New("not a url", log); err == nil {
		t.Error("expected error for malformed redis URL")
	}
}

// startListener runs Listen in the background and blocks until the
// subscription is live, using a malformed payload as the readiness
// signal (mr.Publish reports receiver count). The payload also covers
// the malformed-message path: the subscriber must log and move on.
func startListener(t *testing.T, handle Handler) (*miniredis.Miniredis, context.CancelFunc, chan error) {
	t.Helper()

	mr := miniredis.RunT(t)
	log := logger.New(logger.LevelOff, nil)

	c, err := New("redis://"+mr.Addr(), log)
	if err != nil {
		t.Fatalf("connecting to miniredis: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Listen(ctx, 2, handle) }()

	deadline := time.Now().Add(5 * time.Second)
	for mr.Publish(ChannelPrompts, "this is not json") == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("listener never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	return mr, cancel, done
}

func TestListenSurvivesBadMessages(t *testing.T) {
	handled := make(chan PromptMessage, 8)
	mr, cancel, done := startListener(t, func(ctx context.Context, msg PromptMessage) error {
		handled <- msg
		if msg.Prompt == "fail me" {
			return errors.New("handler blew up")
		}
		return nil
	})
	defer cancel()

	// A valid message whose handler errors, then a valid one that
	// succeeds. Neither the earlier garbage payload nor the handler
	// failure may stop the subscriber.
	for _, prompt := range []string{"fail me", "say this"} {
		data, err := json.Marshal(PromptMessage{Prompt: prompt})
		if err != nil {
			t.Fatal(err)
		}
		mr.Publish(ChannelPrompts, string(data))
	}

	got := map[string]bool{}
	for len(got) < 2 {
		select {
		case msg := <-handled:
			got[msg.Prompt] = true
			if msg.ID.String() == "00000000-0000-0000-0000-000000000000" {
				t.Error("message ID was not filled in")
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out; handled so far: %v", got)
		}
	}
	if !got["say this"] {
		t.Error("message after a failing handler was never dispatched")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Listen returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestPublishResultRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	log := logger.New(logger.LevelOff, nil)

	c, err := New("redis://"+mr.Addr(), log)
	if err != nil {
		t.Fatalf("connecting to miniredis: %v", err)
	}
	defer c.Close()

	// No subscribers: publish still succeeds, receivers are simply zero.
	err = c.PublishResult(context.Background(), ResultMessage{
		Prompt:     "hello",
		OutputPath: "/tmp/hello-abcd.wav",
	})
	if err != nil {
		t.Errorf("PublishResult: %v", err)
	}
}
