package bussvc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo/core"
)

// RedisBus publishes platform events on a redis pub/sub channel.
// Delivery is at-least-once; consumers handle duplicates.
type RedisBus struct {
	client  *redis.Client
	channel string
}

var _ core.EventBus = (*RedisBus)(nil)

func NewRedisBus(conf *core.Config) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{Addr: conf.Redis.Addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &RedisBus{client: client, channel: conf.Redis.Channel}, nil
}

func (b *RedisBus) Publish(ctx context.Context, evt core.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshaling event")
	}
	if err = b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publishing %s event", evt.Topic)
	}
	return nil
}

// Subscribe streams the channel's events until ctx is done. Payloads that
// fail to decode are skipped; the raw message may belong to another app
// sharing the channel.
func (b *RedisBus) Subscribe(ctx context.Context) <-chan core.Event {
	sub := b.client.Subscribe(ctx, b.channel)
	events := make(chan core.Event)

	go func() {
		defer close(events)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var evt core.Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					continue
				}
				select {
				case events <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
