package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlfilAlex/taller-upy/internal/db"
	"github.com/AlfilAlex/taller-upy/internal/domain"
	"github.com/AlfilAlex/taller-upy/internal/store"
)

func newTestService(t *testing.T) *LotService {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })
	return NewLotService(store.NewLotStore(d), 2, slog.Default())
}

func donationInput() PublishInput {
	return PublishInput{
		Material: domain.MaterialMadera,
		WeightKg: 5,
		Scheme:   domain.SchemeDonacion,
		Price:    0,
		Address:  domain.Address{Line1: "Calle 1"},
		Images:   []string{"uploads/U1/a", "uploads/U1/b"},
	}
}

func TestPublishDonation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lot, err := svc.Publish(ctx, donationInput(), "U1")
	require.NoError(t, err)
	assert.NotEmpty(t, lot.ID)
	assert.Equal(t, domain.StatusOpen, lot.Status)
	assert.Equal(t, "U1", lot.OwnerID)
	assert.Equal(t, domain.DefaultCondition, lot.Condition)
	assert.Equal(t, domain.DefaultCity, lot.Address.City)
	assert.Equal(t, domain.DayBucket(time.Now()), lot.CreatedDay)
	assert.Empty(t, lot.ReceiverID)

	stored, err := svc.Get(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, lot.ID, stored.ID)
}

func TestPublishNegativePriceRejected(t *testing.T) {
	svc := newTestService(t)

	in := donationInput()
	in.Scheme = domain.SchemeVenta
	in.Price = -5
	_, err := svc.Publish(context.Background(), in, "U1")
	require.Error(t, err)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "price", verr.Field)

	// Fail fast: nothing was written.
	lots, err := svc.List(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.Empty(t, lots)
}

func TestPublishPriceSchemeConsistency(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := donationInput()
	in.Price = 50
	_, err := svc.Publish(ctx, in, "U1")
	assert.Error(t, err)

	in = donationInput()
	in.Scheme = domain.SchemeVenta
	in.Price = 0
	_, err = svc.Publish(ctx, in, "U1")
	assert.Error(t, err)

	in = donationInput()
	in.Scheme = domain.SchemeVenta
	in.Price = 120
	lot, err := svc.Publish(ctx, in, "U1")
	require.NoError(t, err)
	assert.Equal(t, domain.SchemeVenta, lot.Scheme)
}

func TestListFiltersByStatusAndDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lot, err := svc.Publish(ctx, donationInput(), "U1")
	require.NoError(t, err)

	got, err := svc.List(ctx, domain.StatusOpen, lot.CreatedDay, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, lot.ID, got[0].ID)

	got, err = svc.List(ctx, domain.StatusLocked, lot.CreatedDay, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReserve(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lot, err := svc.Publish(ctx, donationInput(), "U1")
	require.NoError(t, err)

	got, err := svc.Reserve(ctx, lot.ID, "U2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLocked, got.Status)
	assert.Equal(t, "U2", got.ReceiverID)
}

func TestReserveOwnLotForbidden(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lot, err := svc.Publish(ctx, donationInput(), "U1")
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, lot.ID, "U1")
	assert.ErrorIs(t, err, ErrSelfReservation)

	stored, err := svc.Get(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, stored.Status)
	assert.Empty(t, stored.ReceiverID)
}

func TestReserveLockedLotAlreadyReserved(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lot, err := svc.Publish(ctx, donationInput(), "U1")
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, lot.ID, "U2")
	require.NoError(t, err)

	// A second receiver is told the lot is gone.
	_, err = svc.Reserve(ctx, lot.ID, "U3")
	assert.ErrorIs(t, err, ErrAlreadyReserved)

	// The owner gets the same answer: the status check precedes the
	// ownership check once the lot has left OPEN.
	_, err = svc.Reserve(ctx, lot.ID, "U1")
	assert.ErrorIs(t, err, ErrAlreadyReserved)

	stored, err := svc.Get(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLocked, stored.Status)
	assert.Equal(t, "U2", stored.ReceiverID)
}

func TestReserveMissingLot(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Reserve(context.Background(), "nope", "U2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReserveRaceHasSingleWinner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lot, err := svc.Publish(ctx, donationInput(), "U1")
	require.NoError(t, err)

	receivers := []string{"U2", "U3", "U4", "U5"}
	errs := make([]error, len(receivers))
	var wg sync.WaitGroup
	for i, receiver := range receivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Reserve(ctx, lot.ID, receiver)
		}()
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyReserved)
		}
	}
	assert.Equal(t, 1, winners)

	stored, err := svc.Get(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLocked, stored.Status)
	assert.Contains(t, receivers, stored.ReceiverID)
}

func TestOwnerAndReceiverListings(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lot, err := svc.Publish(ctx, donationInput(), "U1")
	require.NoError(t, err)
	_, err = svc.Publish(ctx, donationInput(), "U9")
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, lot.ID, "U2")
	require.NoError(t, err)

	mine, err := svc.ListByOwner(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, lot.ID, mine[0].ID)

	reservations, err := svc.ListByReceiver(ctx, "U2", "")
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.Equal(t, lot.ID, reservations[0].ID)
	assert.Equal(t, domain.StatusLocked, reservations[0].Status)
}
