package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	inv := &Inventory{DB: h.db}

	vehicle, err := inv.CreateVehicle(ctx, CreateVehicleInput{Registration: "kbc 123a", Name: "Matatu", Capacity: 3})
	require.NoError(t, err)
	assert.Equal(t, "KBC123A", vehicle.ID)

	_, err = inv.CreateVehicle(ctx, CreateVehicleInput{Registration: "KBC123A", Name: "Dup", Capacity: 3})
	assert.ErrorIs(t, err, ErrVehicleExists)

	seats, err := inv.AddSeats(ctx, vehicle.ID, []string{"1", "2"})
	require.NoError(t, err)
	assert.Len(t, seats, 2)

	_, err = inv.AddSeats(ctx, vehicle.ID, []string{"2"})
	assert.ErrorIs(t, err, ErrSeatExists)

	_, err = inv.AddSeats(ctx, vehicle.ID, []string{"3", "4"})
	assert.True(t, IsValidation(err), "over capacity")

	_, err = inv.AddSeats(ctx, "NOPE", []string{"1"})
	assert.ErrorIs(t, err, ErrVehicleNotFound)

	vehicles, err := inv.ListVehicles(ctx)
	require.NoError(t, err)
	assert.Len(t, vehicles, 2)

	got, err := inv.GetVehicle(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.Len(t, got.Seats, 2)
}

func TestAvailability(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	inv := &Inventory{DB: h.db}
	h.book(t, "A2", "A3")

	seats, err := inv.Availability(ctx, h.fx.vehicle.ID, tomorrow())
	require.NoError(t, err)
	require.Len(t, seats, 4)
	free := map[string]bool{}
	for _, s := range seats {
		free[s.SeatNumber] = s.Available
	}
	assert.Equal(t, map[string]bool{"A1": true, "A2": false, "A3": false, "A4": true}, free)

	seats, err = inv.Availability(ctx, h.fx.vehicle.ID, "2099-01-01")
	require.NoError(t, err)
	for _, s := range seats {
		assert.True(t, s.Available)
	}

	_, err = inv.Availability(ctx, "NOPE", tomorrow())
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}
