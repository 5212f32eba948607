package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher(t *testing.T) {
	d := NewInMemoryDispatcher()
	cause := errors.New("first handler failed")

	var got []Event
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		got = append(got, e)
		return cause
	})
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var handlerErr *HandlerError
	require.ErrorAs(t, err, &handlerErr)
	assert.Equal(t, EventTicketCreated, handlerErr.Type)
	assert.Equal(t, int64(7), handlerErr.TicketID)

	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, got[0].ID, got[1].ID)
	assert.Equal(t, got[0].ID, handlerErr.EventID)

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketClosed}))
}

func TestPublishKeepsCallerStamps(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got Event
	d.Subscribe(EventTicketClosed, func(ctx context.Context, e Event) error {
		got = e
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{ID: "evt-1", Type: EventTicketClosed}))
	assert.Equal(t, "evt-1", got.ID)
}

func TestPublishRequiresType(t *testing.T) {
	err := NewInMemoryDispatcher().Publish(context.Background(), Event{TicketID: 1})
	assert.ErrorIs(t, err, ErrNoEventType)
}
