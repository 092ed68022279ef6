package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dukapos/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const resultTTL = 10 * time.Minute

// Subscription delivers the result for one checkout request.
type Subscription interface {
	Results() <-chan models.MPesaResult
	Close() error
}

// Notifier fans payment results out to whichever instance is waiting on them.
type Notifier interface {
	Publish(ctx context.Context, result models.MPesaResult) error
	Subscribe(ctx context.Context, checkoutRequestID string) (Subscription, error)
	// Lookup returns a result published before the subscription was made.
	Lookup(ctx context.Context, checkoutRequestID string) (*models.MPesaResult, error)
}

type redisNotifier struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisNotifier(client *redis.Client, log *zap.Logger) Notifier {
	return &redisNotifier{client: client, log: log}
}

func channelName(checkoutRequestID string) string {
	return fmt.Sprintf("dukapos:mpesa:%s", checkoutRequestID)
}

func resultKey(checkoutRequestID string) string {
	return fmt.Sprintf("dukapos:mpesa:result:%s", checkoutRequestID)
}

func (n *redisNotifier) Publish(ctx context.Context, result models.MPesaResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := n.client.Set(ctx, resultKey(result.CheckoutRequestID), data, resultTTL).Err(); err != nil {
		return fmt.Errorf("store mpesa result: %w", err)
	}
	if err := n.client.Publish(ctx, channelName(result.CheckoutRequestID), data).Err(); err != nil {
		return fmt.Errorf("publish mpesa result: %w", err)
	}
	return nil
}

func (n *redisNotifier) Lookup(ctx context.Context, checkoutRequestID string) (*models.MPesaResult, error) {
	data, err := n.client.Get(ctx, resultKey(checkoutRequestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var res models.MPesaResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (n *redisNotifier) Subscribe(ctx context.Context, checkoutRequestID string) (Subscription, error) {
	ps := n.client.Subscribe(ctx, channelName(checkoutRequestID))
	// wait for the subscribe confirmation so nothing published afterwards is lost
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", checkoutRequestID, err)
	}

	sub := &redisSubscription{ps: ps, out: make(chan models.MPesaResult, 1)}
	go func() {
		defer close(sub.out)
		for msg := range ps.Channel() {
			var res models.MPesaResult
			if err := json.Unmarshal([]byte(msg.Payload), &res); err != nil {
				n.log.Warn("discarding malformed mpesa result", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case sub.out <- res:
			default:
			}
		}
	}()
	return sub, nil
}

type redisSubscription struct {
	ps  *redis.PubSub
	out chan models.MPesaResult
}

func (s *redisSubscription) Results() <-chan models.MPesaResult { return s.out }

func (s *redisSubscription) Close() error { return s.ps.Close() }
