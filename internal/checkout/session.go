package checkout

import (
	"fmt"

	"dukapos/internal/models"
)

type State string

const (
	StateIdle           State = "idle"
	StateMethodSelected State = "method_selected"
	StateProcessing     State = "processing"
	StateSuccess        State = "success"
	StateFailed         State = "failed"
)

// Session tracks one checkout from cart building to a terminal result.
// It is not safe for concurrent use.
type Session struct {
	state   State
	items   []LineItem
	method  string
	receipt string
	reason  string
}

func NewSession() *Session {
	return &Session{state: StateIdle}
}

func (s *Session) State() State       { return s.state }
func (s *Session) Method() string     { return s.method }
func (s *Session) Receipt() string    { return s.receipt }
func (s *Session) FailReason() string { return s.reason }

// Items returns a copy of the cart.
func (s *Session) Items() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Session) transitionErr(to State) error {
	return fmt.Errorf("%s -> %s: %w", s.state, to, models.ErrInvalidTransition)
}

func (s *Session) editable() error {
	if s.state != StateIdle && s.state != StateMethodSelected {
		return fmt.Errorf("cart is locked in state %s: %w", s.state, models.ErrInvalidTransition)
	}
	return nil
}

// Add puts an item in the cart, merging with an existing line of the same product and variant.
func (s *Session) Add(item LineItem) error {
	if err := s.editable(); err != nil {
		return err
	}
	if item.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", models.ErrInvalidQuantity)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("price must not be negative: %w", models.ErrValidation)
	}
	for i := range s.items {
		if s.items[i].Key() == item.Key() {
			s.items[i].Quantity += item.Quantity
			return nil
		}
	}
	s.items = append(s.items, item)
	return nil
}

// SetQuantity changes a line's quantity; zero removes it.
func (s *Session) SetQuantity(key string, qty int) error {
	if err := s.editable(); err != nil {
		return err
	}
	if qty < 0 {
		return fmt.Errorf("quantity must not be negative: %w", models.ErrInvalidQuantity)
	}
	for i := range s.items {
		if s.items[i].Key() == key {
			if qty == 0 {
				s.items = append(s.items[:i], s.items[i+1:]...)
			} else {
				s.items[i].Quantity = qty
			}
			s.afterEdit()
			return nil
		}
	}
	return fmt.Errorf("cart line %s: %w", key, models.ErrNotFound)
}

func (s *Session) Remove(key string) error {
	return s.SetQuantity(key, 0)
}

func (s *Session) Clear() error {
	if err := s.editable(); err != nil {
		return err
	}
	s.items = nil
	s.afterEdit()
	return nil
}

// an emptied cart cannot keep a selected method
func (s *Session) afterEdit() {
	if len(s.items) == 0 && s.state == StateMethodSelected {
		s.state = StateIdle
		s.method = ""
	}
}

// SelectMethod chooses the payment method. It can be changed until processing starts.
func (s *Session) SelectMethod(method string) error {
	if s.state != StateIdle && s.state != StateMethodSelected {
		return s.transitionErr(StateMethodSelected)
	}
	switch method {
	case models.PaymentCash, models.PaymentCard, models.PaymentMPesa:
	default:
		return fmt.Errorf("unknown payment method %q: %w", method, models.ErrValidation)
	}
	if len(s.items) == 0 {
		return fmt.Errorf("cart is empty: %w", models.ErrValidation)
	}
	s.method = method
	s.state = StateMethodSelected
	return nil
}

// Begin starts processing the payment.
func (s *Session) Begin() error {
	if s.state != StateMethodSelected {
		return s.transitionErr(StateProcessing)
	}
	s.state = StateProcessing
	s.reason = ""
	return nil
}

// Succeed completes the checkout, clearing the cart and recording the receipt.
func (s *Session) Succeed(receipt string) error {
	if s.state != StateProcessing {
		return s.transitionErr(StateSuccess)
	}
	s.state = StateSuccess
	s.receipt = receipt
	s.items = nil
	return nil
}

// Fail records a failed payment. The cart is kept for a retry.
func (s *Session) Fail(reason string) error {
	if s.state != StateProcessing {
		return s.transitionErr(StateFailed)
	}
	s.state = StateFailed
	s.reason = reason
	return nil
}

// Retry returns a failed checkout to method selection.
func (s *Session) Retry() error {
	if s.state != StateFailed {
		return s.transitionErr(StateMethodSelected)
	}
	s.state = StateMethodSelected
	return nil
}

// NewSale resets a finished checkout to an empty idle cart.
func (s *Session) NewSale() error {
	if s.state != StateSuccess {
		return s.transitionErr(StateIdle)
	}
	*s = Session{state: StateIdle}
	return nil
}

// Summary prices the current cart.
func (s *Session) Summary(rates Rates) (Summary, error) {
	return Totals(s.items, rates)
}
