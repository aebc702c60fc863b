package checkout

import (
	"github.com/Project2Studios/storefront-client/internal/domain"
)

// StepMachine gates navigation across the checkout steps
// (Cart → Shipping → Payment → Confirmation). It is pure UI gating: it only
// reads the completion flags the session store maintains and never issues a
// network call itself.
type StepMachine struct {
	store *Store
}

// NewStepMachine creates a step machine over the given session store.
func NewStepMachine(store *Store) *StepMachine {
	return &StepMachine{store: store}
}

// Current returns the first step in flow order that is not yet complete.
// When everything is complete the flow rests on Confirmation, the terminal
// step.
func (m *StepMachine) Current() domain.CheckoutStep {
	sess := m.store.Session()
	if sess == nil {
		return domain.StepCart
	}
	for _, step := range domain.Steps() {
		if !sess.IsStepComplete(step) {
			return step
		}
	}
	return domain.StepConfirmation
}

// CanAccess reports whether the shopper may navigate to the given step: the
// current step, any already-completed step, and the immediate successor of a
// completed step are reachable. Completion is monotonic, so going back to an
// earlier step never locks previously completed steps again.
func (m *StepMachine) CanAccess(step domain.CheckoutStep) bool {
	if !domain.IsValidStep(step) {
		return false
	}
	if step == m.Current() {
		return true
	}

	sess := m.store.Session()
	if sess == nil {
		return step == domain.StepCart
	}
	if sess.IsStepComplete(step) {
		return true
	}

	steps := domain.Steps()
	for i := 0; i < len(steps)-1; i++ {
		if steps[i+1] == step && sess.IsStepComplete(steps[i]) {
			return true
		}
	}
	return false
}
