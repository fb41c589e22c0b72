// Package pubsub wires voxsay to Redis. Prompt requests arrive on one
// channel, synthesis results are announced on another. The transport is
// plain Redis pub/sub with JSON payloads.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/voxworks/voxsay/internal/logger"
)

// Default channel names.
const (
	ChannelPrompts = "voxsay:prompts"
	ChannelResults = "voxsay:results"
)

// PromptMessage is an inbound synthesis request. Only Prompt is
// required; the rest mirror the CLI flags.
type PromptMessage struct {
	ID           uuid.UUID `json:"id"`
	Prompt       string    `json:"prompt"`
	Speaker      string    `json:"speaker,omitempty"`
	MaxChars     int       `json:"maxchars,omitempty"`
	MaxSentences int       `json:"maxsentences,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ResultMessage announces a finished synthesis.
type ResultMessage struct {
	ID         uuid.UUID `json:"id"`
	Prompt     string    `json:"prompt"`
	Speaker    string    `json:"speaker,omitempty"`
	Text       string    `json:"text"` // what was actually spoken, post-truncation
	OutputPath string    `json:"output_path"`
	SampleRate int       `json:"sample_rate,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Client wraps a Redis connection for both publishing and subscribing.
type Client struct {
	rdb     *redis.Client
	prompts string
	results string
	log     *logger.Logger
}

// Option configures the client.
type Option func(*Client)

// WithChannels overrides the prompt and result channel names.
func WithChannels(prompts, results string) Option {
	return func(c *Client) {
		c.prompts = prompts
		c.results = results
	}
}

// New connects to Redis at the given URL and verifies the connection.
func New(redisURL string, log *logger.Logger, opts ...Option) (*Client, error) {
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	c := &Client{
		rdb:     redis.NewClient(ropts),
		prompts: ChannelPrompts,
		results: ChannelResults,
		log:     log.Named("pubsub"),
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return c, nil
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// PublishResult announces a finished synthesis on the results channel.
// A zero message ID is filled in.
func (c *Client) PublishResult(ctx context.Context, msg ResultMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := c.rdb.Publish(ctx, c.results, data).Err(); err != nil {
		return fmt.Errorf("publishing result: %w", err)
	}

	c.log.Debug("published result %s to %s", msg.ID, c.results)
	return nil
}

// PublishPrompt sends a synthesis request to the prompts channel. Used
// by other processes to drive a listening voxsay instance.
func (c *Client) PublishPrompt(ctx context.Context, msg PromptMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling prompt: %w", err)
	}
	return c.rdb.Publish(ctx, c.prompts, data).Err()
}

// Handler processes one inbound prompt.
type Handler func(ctx context.Context, msg PromptMessage) error

// Listen subscribes to the prompts channel and dispatches messages to
// the handler, at most maxConcurrent at a time. Malformed or failing
// messages are logged and skipped. Blocks until ctx is cancelled.
func (c *Client) Listen(ctx context.Context, maxConcurrent int, handle Handler) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	sub := c.rdb.Subscribe(ctx, c.prompts)
	defer sub.Close()

	// Force the subscription before announcing readiness.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", c.prompts, err)
	}
	c.log.Info("listening on %s (workers=%d)", c.prompts, maxConcurrent)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			// Handler failures only log, so the group error is ctx's.
			_ = g.Wait()
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				_ = g.Wait()
				return nil
			}

			var msg PromptMessage
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				c.log.Warn("skipping malformed message: %v", err)
				continue
			}
			if msg.ID == uuid.Nil {
				msg.ID = uuid.New()
			}

			g.Go(func() error {
				if err := handle(ctx, msg); err != nil {
					c.log.Error("prompt %s failed: %v", msg.ID, err)
				}
				return nil
			})
		}
	}
}
