package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Reloader is satisfied by *Engine.
type Reloader interface {
	Reload(ctx context.Context) Status
}

type changeMessage struct {
	Instance string    `json:"instance"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// Syncer fans grant changes out to every API instance over Redis pub/sub so
// each one rebuilds its engine.
type Syncer struct {
	client   *redis.Client
	channel  string
	reloader Reloader
	logger   *slog.Logger
	instance string
	ready    chan struct{}
}

// NewSyncer returns a Syncer with a fresh instance id.
func NewSyncer(client *redis.Client, channel string, reloader Reloader, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		client:   client,
		channel:  channel,
		reloader: reloader,
		logger:   logger,
		instance: uuid.NewString(),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once Run holds an active subscription.
func (s *Syncer) Ready() <-chan struct{} {
	return s.ready
}

// Notify tells the other instances that grants changed.
func (s *Syncer) Notify(ctx context.Context, reason string) error {
	payload, err := json.Marshal(changeMessage{Instance: s.instance, Reason: reason, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish grant change: %w", err)
	}
	return nil
}

// Run listens for change messages and reloads until ctx is cancelled.
// Messages published by this instance are ignored.
func (s *Syncer) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	close(s.ready)
	s.logger.Info("listening for grant changes", slog.String("channel", s.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var change changeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				s.logger.Warn("ignoring malformed grant change", slog.Any("error", err))
				continue
			}
			if change.Instance == s.instance {
				continue
			}
			st := s.reloader.Reload(ctx)
			s.logger.Info("grants reloaded after remote change",
				slog.String("reason", change.Reason), slog.String("origin", string(st.Origin)), slog.Uint64("version", st.Version))
		}
	}
}
