package payments

import (
	"context"
	"fmt"
	"time"

	"dukapos/internal/models"

	"go.uber.org/zap"
)

// Awaiter waits for the confirmation of one checkout request.
type Awaiter struct {
	notifier Notifier
	log      *zap.Logger
}

func NewAwaiter(notifier Notifier, log *zap.Logger) *Awaiter {
	return &Awaiter{notifier: notifier, log: log}
}

// Pending is an open wait on a checkout request. Close must always be called.
type Pending struct {
	id       string
	sub      Subscription
	notifier Notifier
	log      *zap.Logger
}

// Open subscribes for a result. The checkout request id is only known once the
// prompt has been accepted, so Wait also checks for a result stored before Open.
func (a *Awaiter) Open(ctx context.Context, checkoutRequestID string) (*Pending, error) {
	sub, err := a.notifier.Subscribe(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	return &Pending{id: checkoutRequestID, sub: sub, notifier: a.notifier, log: a.log}, nil
}

// Await subscribes and waits in one call.
func (a *Awaiter) Await(ctx context.Context, checkoutRequestID string, timeout time.Duration) (models.MPesaResult, error) {
	p, err := a.Open(ctx, checkoutRequestID)
	if err != nil {
		return models.MPesaResult{}, err
	}
	defer p.Close()
	return p.Wait(ctx, timeout)
}

// Wait blocks until a result arrives, timeout elapses or ctx is done.
func (p *Pending) Wait(ctx context.Context, timeout time.Duration) (models.MPesaResult, error) {
	stored, err := p.notifier.Lookup(ctx, p.id)
	if err != nil {
		p.log.Warn("mpesa result lookup failed", zap.String("checkout_request_id", p.id), zap.Error(err))
	} else if stored != nil {
		return *stored, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res, ok := <-p.sub.Results():
		if !ok {
			return models.MPesaResult{}, fmt.Errorf("subscription for %s closed", p.id)
		}
		return res, nil
	case <-timer.C:
		p.log.Info("mpesa confirmation timed out", zap.String("checkout_request_id", p.id), zap.Duration("timeout", timeout))
		return models.MPesaResult{}, fmt.Errorf("checkout %s: %w", p.id, models.ErrPaymentTimeout)
	case <-ctx.Done():
		return models.MPesaResult{}, ctx.Err()
	}
}

func (p *Pending) Close() error {
	return p.sub.Close()
}
