package domain

import "time"

// CheckoutStep identifies one stage of the guided purchase flow.
type CheckoutStep string

const (
	StepCart         CheckoutStep = "cart"
	StepShipping     CheckoutStep = "shipping"
	StepPayment      CheckoutStep = "payment"
	StepConfirmation CheckoutStep = "confirmation"
)

// Steps returns the checkout steps in flow order. Confirmation is terminal.
func Steps() []CheckoutStep {
	return []CheckoutStep{StepCart, StepShipping, StepPayment, StepConfirmation}
}

// IsValidStep checks whether the given step name is part of the flow.
func IsValidStep(step CheckoutStep) bool {
	for _, s := range Steps() {
		if s == step {
			return true
		}
	}
	return false
}

// Address represents a shipping or billing address.
type Address struct {
	FullName    string `json:"full_name" validate:"required"`
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code" validate:"required"`
	Country     string `json:"country" validate:"required,len=2"`
	Phone       string `json:"phone,omitempty"`
}

// ShippingMethod is a candidate delivery option quoted by the server for an
// address and cart contents.
type ShippingMethod struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	EstimateDays int    `json:"estimate_days"`
}

// PaymentMethodSelection captures which gateway payment method the shopper
// picked. The gateway owns the sensitive details; the engine only carries the
// opaque method id.
type PaymentMethodSelection struct {
	MethodID string `json:"method_id" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=card wallet bank_transfer"`
	Save     bool   `json:"save"`
}

// Totals holds the server-computed money rollup for a checkout session.
// Total == Subtotal + Shipping + Tax - Discount, computed authoritatively
// server-side.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

// Sum recomputes the total from the components.
func (t Totals) Sum() int64 {
	return t.Subtotal + t.Shipping + t.Tax - t.Discount
}

// CheckoutSession is the client's reflection of the server-persisted checkout
// draft. Its ID equals the shopper's session identity token.
type CheckoutSession struct {
	ID              string                  `json:"id"`
	ShippingAddress *Address                `json:"shipping_address,omitempty"`
	BillingAddress  *Address                `json:"billing_address,omitempty"`
	ShippingMethod  *ShippingMethod         `json:"shipping_method,omitempty"`
	PaymentMethod   *PaymentMethodSelection `json:"payment_method,omitempty"`
	OrderNotes      string                  `json:"order_notes,omitempty"`
	TermsAccepted   bool                    `json:"terms_accepted"`
	Totals          Totals                  `json:"totals"`
	StepCompletion  []CheckoutStep          `json:"step_completion"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// SessionPatch is a partial checkout session update. Nil fields are left
// untouched. The patch is validated client-side before any network call and
// optimistically merged into the local session while the server round trip is
// pending.
type SessionPatch struct {
	ShippingAddress *Address                `json:"shipping_address,omitempty"`
	BillingAddress  *Address                `json:"billing_address,omitempty"`
	ShippingMethod  *ShippingMethod         `json:"shipping_method,omitempty"`
	PaymentMethod   *PaymentMethodSelection `json:"payment_method,omitempty"`
	OrderNotes      *string                 `json:"order_notes,omitempty"`
	TermsAccepted   *bool                   `json:"terms_accepted,omitempty"`
	CompleteStep    *CheckoutStep           `json:"complete_step,omitempty"`
}

// ApplyTo merges the patch into the session in place. Totals are untouched;
// only the server recomputes money.
func (p SessionPatch) ApplyTo(s *CheckoutSession) {
	if p.ShippingAddress != nil {
		addr := *p.ShippingAddress
		s.ShippingAddress = &addr
	}
	if p.BillingAddress != nil {
		addr := *p.BillingAddress
		s.BillingAddress = &addr
	}
	if p.ShippingMethod != nil {
		m := *p.ShippingMethod
		s.ShippingMethod = &m
	}
	if p.PaymentMethod != nil {
		pm := *p.PaymentMethod
		s.PaymentMethod = &pm
	}
	if p.OrderNotes != nil {
		s.OrderNotes = *p.OrderNotes
	}
	if p.TermsAccepted != nil {
		s.TermsAccepted = *p.TermsAccepted
	}
	if p.CompleteStep != nil {
		s.CompleteStep(*p.CompleteStep)
	}
}

// IsStepComplete reports whether the given step is marked complete.
func (s *CheckoutSession) IsStepComplete(step CheckoutStep) bool {
	for _, done := range s.StepCompletion {
		if done == step {
			return true
		}
	}
	return false
}

// CompleteStep marks the step complete. Idempotent; completion is monotonic.
func (s *CheckoutSession) CompleteStep(step CheckoutStep) {
	if s.IsStepComplete(step) {
		return
	}
	s.StepCompletion = append(s.StepCompletion, step)
}

// Clone returns a deep copy of the session for optimistic patching.
func (s *CheckoutSession) Clone() *CheckoutSession {
	if s == nil {
		return nil
	}
	cp := *s
	if s.ShippingAddress != nil {
		addr := *s.ShippingAddress
		cp.ShippingAddress = &addr
	}
	if s.BillingAddress != nil {
		addr := *s.BillingAddress
		cp.BillingAddress = &addr
	}
	if s.ShippingMethod != nil {
		m := *s.ShippingMethod
		cp.ShippingMethod = &m
	}
	if s.PaymentMethod != nil {
		p := *s.PaymentMethod
		cp.PaymentMethod = &p
	}
	cp.StepCompletion = make([]CheckoutStep, len(s.StepCompletion))
	copy(cp.StepCompletion, s.StepCompletion)
	return &cp
}
