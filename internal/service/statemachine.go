package service

import (
	"fmt"

	"github.com/devsanbid/quickbite/internal/enum"
)

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can move to.
// delivered and cancelled are terminal and have no entry.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusConfirmed, enum.OrderStatusCancelled},
	enum.OrderStatusConfirmed: {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusPickedUp, enum.OrderStatusCancelled},
	enum.OrderStatusPickedUp:  {enum.OrderStatusDelivered, enum.OrderStatusCancelled},
}

// ValidateTransition checks whether current may move to next.
func ValidateTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("%w: cannot transition from %s", ErrInvalidTransition, current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, current, next)
}

// IsTerminalStatus reports whether no further transitions exist from s.
func IsTerminalStatus(s string) bool {
	_, ok := allowedTransitions[s]
	return !ok
}
