package service_test

import (
	"errors"
	"testing"

	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/devsanbid/quickbite/internal/service"
)

func TestValidateTransitionHappyPath(t *testing.T) {
	path := []string{
		enum.OrderStatusPending,
		enum.OrderStatusConfirmed,
		enum.OrderStatusPreparing,
		enum.OrderStatusReady,
		enum.OrderStatusPickedUp,
		enum.OrderStatusDelivered,
	}

	for i := 0; i < len(path)-1; i++ {
		if err := service.ValidateTransition(path[i], path[i+1]); err != nil {
			t.Errorf("%s -> %s: unexpected error %v", path[i], path[i+1], err)
		}
	}
}

func TestValidateTransitionCancelAnywhereBeforeTerminal(t *testing.T) {
	for _, from := range []string{
		enum.OrderStatusPending,
		enum.OrderStatusConfirmed,
		enum.OrderStatusPreparing,
		enum.OrderStatusReady,
		enum.OrderStatusPickedUp,
	} {
		if err := service.ValidateTransition(from, enum.OrderStatusCancelled); err != nil {
			t.Errorf("%s -> cancelled: unexpected error %v", from, err)
		}
	}
}

func TestValidateTransitionRejectsSkipsAndBackwards(t *testing.T) {
	tests := []struct{ from, to string }{
		{enum.OrderStatusPending, enum.OrderStatusPreparing},
		{enum.OrderStatusPending, enum.OrderStatusDelivered},
		{enum.OrderStatusConfirmed, enum.OrderStatusPending},
		{enum.OrderStatusReady, enum.OrderStatusConfirmed},
		{enum.OrderStatusPickedUp, enum.OrderStatusReady},
	}

	for _, tt := range tests {
		err := service.ValidateTransition(tt.from, tt.to)
		if err == nil {
			t.Errorf("%s -> %s: expected error", tt.from, tt.to)
			continue
		}
		if !errors.Is(err, service.ErrInvalidTransition) {
			t.Errorf("%s -> %s: error %v does not wrap ErrInvalidTransition", tt.from, tt.to, err)
		}
	}
}

func TestValidateTransitionFromTerminal(t *testing.T) {
	for _, from := range []string{enum.OrderStatusDelivered, enum.OrderStatusCancelled} {
		if err := service.ValidateTransition(from, enum.OrderStatusConfirmed); !errors.Is(err, service.ErrInvalidTransition) {
			t.Errorf("%s: expected ErrInvalidTransition, got %v", from, err)
		}
	}
}

func TestIsTerminalStatus(t *testing.T) {
	if !service.IsTerminalStatus(enum.OrderStatusDelivered) {
		t.Error("delivered should be terminal")
	}
	if !service.IsTerminalStatus(enum.OrderStatusCancelled) {
		t.Error("cancelled should be terminal")
	}
	if service.IsTerminalStatus(enum.OrderStatusPending) {
		t.Error("pending should not be terminal")
	}
}
