package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribersInOrder(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var order []string
	dispatcher.Subscribe(EventReportCreated, func(ctx context.Context, event Event) error {
		order = append(order, "first")
		return nil
	})
	dispatcher.Subscribe(EventReportCreated, func(ctx context.Context, event Event) error {
		order = append(order, "second")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventReportCreated})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcherIgnoresUnrelatedEventTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(EventReportAssigned, func(ctx context.Context, event Event) error {
		called = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventReportCreated}))
	assert.False(t, called)
}

func TestDispatcherCollectsHandlerErrors(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	handlerErr := errors.New("handler failed")
	dispatcher.Subscribe(EventMessagePosted, func(ctx context.Context, event Event) error {
		return handlerErr
	})
	delivered := false
	dispatcher.Subscribe(EventMessagePosted, func(ctx context.Context, event Event) error {
		delivered = true
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventMessagePosted})
	assert.ErrorIs(t, err, handlerErr)
	// One failing handler does not starve the rest.
	assert.True(t, delivered)
}
