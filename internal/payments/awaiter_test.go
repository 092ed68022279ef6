package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dukapos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memNotifier is an in-process Notifier.
type memNotifier struct {
	mu     sync.Mutex
	subs   map[string][]*memSubscription
	stored map[string]models.MPesaResult
}

func newMemNotifier() *memNotifier {
	return &memNotifier{subs: map[string][]*memSubscription{}, stored: map[string]models.MPesaResult{}}
}

type memSubscription struct {
	ch     chan models.MPesaResult
	closed bool
}

func (s *memSubscription) Results() <-chan models.MPesaResult { return s.ch }
func (s *memSubscription) Close() error {
	s.closed = true
	return nil
}

func (n *memNotifier) Publish(_ context.Context, res models.MPesaResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stored[res.CheckoutRequestID] = res
	for _, s := range n.subs[res.CheckoutRequestID] {
		select {
		case s.ch <- res:
		default:
		}
	}
	return nil
}

func (n *memNotifier) Subscribe(_ context.Context, id string) (Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := &memSubscription{ch: make(chan models.MPesaResult, 1)}
	n.subs[id] = append(n.subs[id], s)
	return s, nil
}

func (n *memNotifier) Lookup(_ context.Context, id string) (*models.MPesaResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if res, ok := n.stored[id]; ok {
		return &res, nil
	}
	return nil, nil
}

func (n *memNotifier) subscription(id string) *memSubscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.subs[id]) == 0 {
		return nil
	}
	return n.subs[id][0]
}

func TestAwait_ReceivesPublishedResult(t *testing.T) {
	n := newMemNotifier()
	a := NewAwaiter(n, zap.NewNop())

	go func() {
		for n.subscription("ws_CO_1") == nil {
			time.Sleep(time.Millisecond)
		}
		_ = n.Publish(context.Background(), models.MPesaResult{CheckoutRequestID: "ws_CO_1", ResultCode: 0, ReceiptNumber: "QK12"})
	}()

	res, err := a.Await(context.Background(), "ws_CO_1", time.Second)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "QK12", res.ReceiptNumber)
	assert.True(t, n.subscription("ws_CO_1").closed)
}

func TestAwait_ResultPublishedBeforeSubscribe(t *testing.T) {
	n := newMemNotifier()
	require.NoError(t, n.Publish(context.Background(), models.MPesaResult{CheckoutRequestID: "ws_CO_2", ResultCode: 1032, ResultDesc: "Request cancelled by user"}))

	res, err := NewAwaiter(n, zap.NewNop()).Await(context.Background(), "ws_CO_2", time.Second)
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Equal(t, 1032, res.ResultCode)
}

func TestAwait_Timeout(t *testing.T) {
	n := newMemNotifier()
	_, err := NewAwaiter(n, zap.NewNop()).Await(context.Background(), "ws_CO_3", 20*time.Millisecond)
	assert.ErrorIs(t, err, models.ErrPaymentTimeout)
	assert.True(t, n.subscription("ws_CO_3").closed)
}

func TestAwait_ContextCancelled(t *testing.T) {
	n := newMemNotifier()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAwaiter(n, zap.NewNop()).Await(ctx, "ws_CO_4", time.Second)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, n.subscription("ws_CO_4").closed)
}
