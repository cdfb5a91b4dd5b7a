package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/internal/realtime"
	"github.com/ds124wfegd/afritix/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveConcurrentNeverOversells(t *testing.T) {
	env := newTestEnv(t)
	_, tt := env.seedEvent(t, 5, 10)

	const attempts = 20
	var (
		wg           sync.WaitGroup
		succeeded    int32
		insufficient int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := env.inventory.Reserve(context.Background(), tt.ID, 1)
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case errors.Is(err, entity.ErrInsufficientInventory):
				atomic.AddInt32(&insufficient, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), succeeded)
	assert.Equal(t, int32(attempts-5), insufficient)
	assert.Equal(t, 0, env.ticketTypes.available(tt.ID))
}

func TestReserve(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		missing   bool
		wantErr   error
		wantAvail int
	}{
		{name: "takes units", quantity: 2, wantAvail: 1},
		{name: "exact remaining", quantity: 3, wantAvail: 0},
		{name: "more than available leaves counter untouched", quantity: 4, wantErr: entity.ErrInsufficientInventory, wantAvail: 3},
		{name: "zero quantity", quantity: 0, wantErr: entity.ErrInvalidInput, wantAvail: 3},
		{name: "negative quantity", quantity: -1, wantErr: entity.ErrInvalidInput, wantAvail: 3},
		{name: "unknown ticket type", quantity: 1, missing: true, wantErr: entity.ErrNotFound, wantAvail: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, tt := env.seedEvent(t, 3, 10)

			id := tt.ID
			if tc.missing {
				id = 999
			}
			err := env.inventory.Reserve(context.Background(), id, tc.quantity)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantAvail, env.ticketTypes.available(tt.ID))
		})
	}
}

func TestReserveAnnouncesNewAvailability(t *testing.T) {
	env := newTestEnv(t)
	event, tt := env.seedEvent(t, 10, 10)

	require.NoError(t, env.inventory.Reserve(context.Background(), tt.ID, 4))

	calls := env.broadcaster.sent(realtime.EventRoom(event.ID), realtime.EventTicketUpdate)
	require.Len(t, calls, 1)
	change, ok := calls[0].payload.(entity.InventoryChange)
	require.True(t, ok)
	assert.Equal(t, 6, change.Available)
	assert.Equal(t, tt.ID, change.TicketTypeID)

	assert.Len(t, env.producer.ofType(kafka.EventInventoryChanged), 1)
}

func TestReleaseCannotExceedQuantity(t *testing.T) {
	env := newTestEnv(t)
	_, tt := env.seedEvent(t, 5, 10)
	ctx := context.Background()

	require.NoError(t, env.inventory.Reserve(ctx, tt.ID, 2))
	require.NoError(t, env.inventory.Release(ctx, tt.ID, 2))
	assert.Equal(t, 5, env.ticketTypes.available(tt.ID))

	err := env.inventory.Release(ctx, tt.ID, 1)
	assert.True(t, errors.Is(err, entity.ErrInventoryOverflow))
	assert.Equal(t, 5, env.ticketTypes.available(tt.ID))
}

func TestIncreaseQuantity(t *testing.T) {
	env := newTestEnv(t)
	_, tt := env.seedEvent(t, 5, 10)
	ctx := context.Background()

	require.NoError(t, env.inventory.Reserve(ctx, tt.ID, 5))

	updated, err := env.inventory.IncreaseQuantity(ctx, tt.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Quantity)
	assert.Equal(t, 3, updated.Available)

	_, err = env.inventory.IncreaseQuantity(ctx, tt.ID, 0)
	assert.True(t, errors.Is(err, entity.ErrInvalidInput))
}
