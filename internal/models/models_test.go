package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from OrderStatus
		to   OrderStatus
		ok   bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusReady, true},
		{StatusConfirmed, StatusPreparing, true},
		{StatusReady, StatusDelivered, true},
		{StatusPreparing, StatusConfirmed, false},
		{StatusPending, StatusPending, false},
		{StatusPending, StatusCancelled, true},
		{StatusReady, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, OrderStatus("shipped"), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}
