package events

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placed(price string) *OrderPlacedEvent {
	return NewOrderPlacedEvent("t1", "AMZN", decimal.RequireFromString(price), 50)
}

func TestDispatcher_DeliversInRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var order []int
	for i := 0; i < 3; i++ {
		idx := i
		d.OnOrderPlaced(OrderPlacedHandlerFunc(func(_ context.Context, _ *OrderPlacedEvent) error {
			order = append(order, idx)
			return nil
		}))
	}

	d.EmitOrderPlaced(context.Background(), placed("3.00"))

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestDispatcher_PlacedAndErroredAreSeparateStreams(t *testing.T) {
	d := NewDispatcher()
	var gotPlaced, gotErrored int
	d.OnOrderPlaced(OrderPlacedHandlerFunc(func(context.Context, *OrderPlacedEvent) error {
		gotPlaced++
		return nil
	}))
	d.OnOrderErrored(OrderErroredHandlerFunc(func(context.Context, *OrderErroredEvent) error {
		gotErrored++
		return nil
	}))

	cause := errors.New("rejected")
	d.EmitOrderErrored(context.Background(), NewOrderErroredEvent("t1", "AMZN", decimal.RequireFromString("4.00"), 50, cause))

	assert.Equal(t, 0, gotPlaced)
	assert.Equal(t, 1, gotErrored)
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	sub := d.OnOrderPlaced(OrderPlacedHandlerFunc(func(context.Context, *OrderPlacedEvent) error {
		calls++
		return nil
	}))

	require.True(t, d.Unsubscribe(sub))
	assert.False(t, d.Unsubscribe(sub), "second unsubscribe should report not found")

	d.EmitOrderPlaced(context.Background(), placed("3.00"))
	assert.Zero(t, calls)

	p, e := d.Count()
	assert.Zero(t, p)
	assert.Zero(t, e)
}

func TestDispatcher_NoReplayForLateSubscribers(t *testing.T) {
	d := NewDispatcher()
	d.EmitOrderPlaced(context.Background(), placed("3.00"))

	calls := 0
	d.OnOrderPlaced(OrderPlacedHandlerFunc(func(context.Context, *OrderPlacedEvent) error {
		calls++
		return nil
	}))
	assert.Zero(t, calls)
}

func TestDispatcher_HandlerFailuresAreContained(t *testing.T) {
	var hooked []string
	d := NewDispatcher(WithFailureHook(func(kind string) { hooked = append(hooked, kind) }))

	reached := false
	d.OnOrderPlaced(OrderPlacedHandlerFunc(func(context.Context, *OrderPlacedEvent) error {
		panic("boom")
	}))
	d.OnOrderPlaced(OrderPlacedHandlerFunc(func(context.Context, *OrderPlacedEvent) error {
		return errors.New("handler failed")
	}))
	d.OnOrderPlaced(OrderPlacedHandlerFunc(func(context.Context, *OrderPlacedEvent) error {
		reached = true
		return nil
	}))

	require.NotPanics(t, func() {
		d.EmitOrderPlaced(context.Background(), placed("3.00"))
	})
	assert.True(t, reached, "handlers after a failing one must still run")
	assert.EqualValues(t, 2, d.Failures())
	assert.Equal(t, []string{"order_placed", "order_placed"}, hooked)
}

func TestDispatcher_UnsubscribeDuringEmit(t *testing.T) {
	d := NewDispatcher()
	var second Subscription
	secondCalls := 0
	d.OnOrderPlaced(OrderPlacedHandlerFunc(func(context.Context, *OrderPlacedEvent) error {
		d.Unsubscribe(second)
		return nil
	}))
	second = d.OnOrderPlaced(OrderPlacedHandlerFunc(func(context.Context, *OrderPlacedEvent) error {
		secondCalls++
		return nil
	}))

	// 快照在 Emit 开始时生成：本次仍然投递，下次不再投递
	d.EmitOrderPlaced(context.Background(), placed("3.00"))
	d.EmitOrderPlaced(context.Background(), placed("3.00"))
	assert.Equal(t, 1, secondCalls)
}

func TestOrderErroredEvent_KeepsCause(t *testing.T) {
	cause := errors.New("Something is wrong with the argument.")
	e := NewOrderErroredEvent("t1", "AMZN", decimal.RequireFromString("4.00"), 50, cause)

	assert.Same(t, cause, e.Cause)
	assert.Equal(t, "Something is wrong with the argument.", e.CauseMessage())
	assert.NotEmpty(t, e.ID)
}
