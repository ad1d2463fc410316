package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fakhrymubarak/weather-forecast-app/internal/config"
	"github.com/fakhrymubarak/weather-forecast-app/internal/model"
	redisv9 "github.com/redis/go-redis/v9"
)

// StatePublisher stores the latest controller state under a key and announces
// every change on a pub/sub channel.
type StatePublisher struct {
	client  redisv9.UniversalClient
	key     string
	channel string
	ttl     time.Duration
}

func NewStatePublisher(client redisv9.UniversalClient, key, channel string, ttl time.Duration) *StatePublisher {
	return &StatePublisher{client: client, key: key, channel: channel, ttl: ttl}
}

// NewStatePublisherFromConfig wires the publisher to the shared client and redis.* settings.
func NewStatePublisherFromConfig() *StatePublisher {
	return NewStatePublisher(
		GetClient(),
		config.GetRedisStateKey(),
		config.GetRedisStateChannel(),
		config.GetRedisStateTTL(),
	)
}

// Publish writes state and notifies subscribers in one round trip.
func (p *StatePublisher) Publish(ctx context.Context, state model.ControllerState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	_, err = p.client.Pipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Set(ctx, p.key, b, p.ttl)
		pipe.Publish(ctx, p.channel, b)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publishing state v%d: %w", state.Version, err)
	}
	return nil
}

// Latest returns the most recently published state, or nil if none is stored.
func (p *StatePublisher) Latest(ctx context.Context) (*model.ControllerState, error) {
	val, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state model.ControllerState
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	return &state, nil
}

// Subscribe streams published states until ctx is done. Undecodable messages are skipped.
func (p *StatePublisher) Subscribe(ctx context.Context) (<-chan model.ControllerState, error) {
	sub := p.client.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan model.ControllerState)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var state model.ControllerState
				if err := json.Unmarshal([]byte(msg.Payload), &state); err != nil {
					continue
				}
				select {
				case out <- state:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
